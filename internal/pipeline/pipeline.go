// Package pipeline holds the three event-driven stages a document passes
// through: upload, translate and watermark.
package pipeline

import (
	"context"
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/translator"
)

// JobClient is the batch translation API as the translate stage uses it.
type JobClient interface {
	Submit(ctx context.Context, req translator.BatchRequest) (*translator.Job, error)
	Poll(ctx context.Context, job *translator.Job) (translator.Result, error)
}

// Clock is swapped in tests.
type Clock func() time.Time

func strPtr(s string) *string { return &s }
