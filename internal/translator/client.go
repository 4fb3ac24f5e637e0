// Package translator submits batch document translation jobs and polls them
// to a terminal state.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
)

type Config struct {
	Endpoint        string
	SubscriptionKey string
	APIVersion      string        // default 2024-05-01
	Category        string        // default "general"
	RequestTimeout  time.Duration // per HTTP call, default 30s
	PollInterval    time.Duration // default 10s
	MaxAttempts     int           // default 20
}

// BatchRequest names one source document, its target and one CSV glossary.
type BatchRequest struct {
	SourceURL    string
	TargetURL    string
	GlossaryURL  string
	FromLanguage string
	ToLanguage   string
}

// Handle is the operation URL returned by a successful submit.
type Handle string

// Job tracks a single batch through NOT_STARTED -> SUBMITTED -> terminal.
type Job struct {
	Handle Handle
	State  constants.JobState
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-05-01"
	}
	if cfg.Category == "" {
		cfg.Category = "general"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
		sleep:  sleepContext,
	}
}

// WithSleep replaces the wait between poll attempts.
func (c *Client) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Client {
	c.sleep = fn
	return c
}

type batchBody struct {
	Inputs  []batchInput   `json:"inputs"`
	Options map[string]any `json:"options"`
}

type batchInput struct {
	Source      batchSource   `json:"source"`
	Targets     []batchTarget `json:"targets"`
	StorageType string        `json:"storageType"`
}

type batchSource struct {
	SourceURL     string `json:"sourceUrl"`
	Language      string `json:"language"`
	StorageSource string `json:"storageSource"`
}

type batchTarget struct {
	TargetURL     string          `json:"targetUrl"`
	Category      string          `json:"category"`
	Language      string          `json:"language"`
	StorageSource string          `json:"storageSource"`
	Glossaries    []batchGlossary `json:"glossaries"`
}

type batchGlossary struct {
	GlossaryURL string `json:"glossaryUrl"`
	Format      string `json:"format"`
}

func (c *Client) batchesURL() string {
	return fmt.Sprintf("%s/translator/document/batches?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), url.QueryEscape(c.cfg.APIVersion))
}

// Submit starts a batch job. Only 202 with an Operation-Location header
// counts as submitted; anything else leaves the job FAILED.
func (c *Client) Submit(ctx context.Context, req BatchRequest) (*Job, error) {
	job := &Job{State: constants.JobStateNotStarted}
	rid := uuid.New().String()
	start := time.Now()

	body := batchBody{
		Inputs: []batchInput{{
			Source: batchSource{SourceURL: req.SourceURL, Language: req.FromLanguage, StorageSource: "AzureBlob"},
			Targets: []batchTarget{{
				TargetURL:     req.TargetURL,
				Category:      c.cfg.Category,
				Language:      req.ToLanguage,
				StorageSource: "AzureBlob",
				Glossaries:    []batchGlossary{{GlossaryURL: req.GlossaryURL, Format: "csv"}},
			}},
			StorageType: "File",
		}},
		Options: map[string]any{"experimental": true},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		job.State = constants.JobStateFailed
		return job, common.Errorf(common.ErrJobSubmit, "encode body: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.batchesURL(), bytes.NewReader(bs))
	if err != nil {
		job.State = constants.JobStateFailed
		return job, common.Errorf(common.ErrJobSubmit, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	c.logger.Info("translate.submit.start",
		"req_id", rid,
		"from", req.FromLanguage,
		"to", req.ToLanguage,
		"category", c.cfg.Category,
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		job.State = constants.JobStateFailed
		c.logger.Error("translate.submit.send_error", "req_id", rid, "error", err)
		return job, common.Errorf(common.ErrJobSubmit, "post: %v", err)
	}
	raw := drain(resp.Body)

	loc := resp.Header.Get("Operation-Location")
	if resp.StatusCode != http.StatusAccepted || loc == "" {
		job.State = constants.JobStateFailed
		c.logger.Error("translate.submit.rejected",
			"req_id", rid,
			"status", resp.StatusCode,
			"has_operation_location", loc != "",
			"body", truncate(string(raw), 1024),
		)
		return job, common.Errorf(common.ErrJobSubmit, "status %d", resp.StatusCode)
	}

	job.Handle = Handle(loc)
	job.State = constants.JobStateSubmitted
	c.logger.Info("translate.submit.ok",
		"req_id", rid,
		"operation", loc,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return job, nil
}

func drain(body io.ReadCloser) []byte {
	defer func() {
		_ = body.Close()
	}()
	raw, _ := io.ReadAll(io.LimitReader(body, 1<<20))
	return raw
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
