package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/app"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/pipeline"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/repository"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testApp(t *testing.T) *app.App {
	t.Helper()
	ctx := context.Background()
	cfg := common.DefaultConfig()
	cfg.Server.GRPCAddr = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second

	db, err := repository.Open(ctx, repository.Config{DSN: "sqlite::memory:"}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, discardLogger()) })
	require.NoError(t, repository.Migrate(ctx, db, discardLogger()))

	files := repository.NewFileTranslationRepository(db, discardLogger())
	store := storage.NewMemoryStore()
	layout := app.LayoutFrom(cfg.Storage)
	return &app.App{
		Config:    cfg,
		DB:        db,
		Files:     files,
		Prompts:   repository.NewPromptRepository(db, discardLogger()),
		Store:     store,
		Layout:    layout,
		Upload:    pipeline.NewUploadStage(files, store, layout, discardLogger()),
		Translate: &pipeline.TranslateStage{},
	}
}

func TestRunReturnsWhenHTTPListenFails(t *testing.T) {
	a := testApp(t)
	a.Config.Server.HTTPAddr = "127.0.0.1:-1"

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), a, discardLogger()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after the HTTP listener failed")
	}
}

func TestRunFailsWhenDatabaseUnavailable(t *testing.T) {
	a := testApp(t)
	a.Config.Server.HTTPAddr = "127.0.0.1:0"
	repository.Close(a.DB, discardLogger())

	err := run(context.Background(), a, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping database")
}

func TestRunStopsOnCancel(t *testing.T) {
	a := testApp(t)
	a.Config.Server.HTTPAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, a, discardLogger()) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
