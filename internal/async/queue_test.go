package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerQueueRunsJobsAndDrains(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	h := HandlerFunc(func(ctx context.Context, job Job) error {
		assert.Equal(t, job.FileName, common.FileNameFromContext(ctx))
		mu.Lock()
		seen = append(seen, job.FileName)
		mu.Unlock()
		if job.FileName == "bad.pdf" {
			return errors.New("boom")
		}
		return nil
	})
	q := NewWorkerQueue(h, discardLogger(), WithWorkers(2), WithQueueSize(4), WithJobTimeout(time.Second))

	ctx := context.Background()
	for _, name := range []string{"a.pdf", "bad.pdf", "c.docx"} {
		require.NoError(t, q.Enqueue(ctx, Job{FileName: name}))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a.pdf", "bad.pdf", "c.docx"}, seen)
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewWorkerQueue(HandlerFunc(func(context.Context, Job) error { return nil }), discardLogger())
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{FileName: "late.pdf"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEnqueueFullHonoursContext(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	h := HandlerFunc(func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-block
		return nil
	})
	q := NewWorkerQueue(h, discardLogger(), WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(block)
		q.Shutdown(context.Background())
	}()

	require.NoError(t, q.Enqueue(context.Background(), Job{FileName: "running.pdf"}))
	<-started
	require.NoError(t, q.Enqueue(context.Background(), Job{FileName: "queued.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{FileName: "overflow.pdf"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPanickingHandlerDoesNotKillWorker(t *testing.T) {
	done := make(chan string, 2)
	h := HandlerFunc(func(ctx context.Context, job Job) error {
		if job.FileName == "panic.pdf" {
			panic("bad input")
		}
		done <- job.FileName
		return nil
	})
	q := NewWorkerQueue(h, discardLogger(), WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), Job{FileName: "panic.pdf"}))
	require.NoError(t, q.Enqueue(context.Background(), Job{FileName: "ok.pdf"}))
	q.Shutdown(context.Background())

	select {
	case name := <-done:
		assert.Equal(t, "ok.pdf", name)
	default:
		t.Fatal("second job did not run")
	}
}
