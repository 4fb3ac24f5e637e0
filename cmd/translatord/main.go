package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/app"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/async"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := app.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	// os.Exit skips deferred calls, so the app is closed before exiting.
	err = run(ctx, a, logger)
	a.Close()
	if err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("translatord stopped")
}

// run serves HTTP and gRPC until ctx is cancelled or a server fails, then
// drains the translate queue.
func run(ctx context.Context, a *app.App, logger *slog.Logger) error {
	cfg := a.Config
	if err := a.Health(ctx); err != nil {
		return common.WrapError(err, "ping database")
	}

	queue := async.NewWorkerQueue(a.Translate, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithJobTimeout(cfg.Pipeline.JobTimeout),
	)

	router := server.NewRouter(server.Options{
		Upload:         a.Upload,
		Translate:      queue,
		Watermark:      a.Watermark,
		Files:          a.Files,
		Prompts:        a.Prompts,
		Export:         a.Export,
		Layout:         a.Layout,
		Health:         a.Health,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         logger,
	})
	httpSrv := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: router}
	grpcSrv, hs := server.NewGRPCServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, httpSrv, cfg.Server.ShutdownTimeout, logger)
	})
	g.Go(func() error {
		return server.ServeGRPC(gctx, grpcSrv, cfg.Server.GRPCAddr, logger)
	})
	g.Go(func() error {
		server.WatchHealth(gctx, hs, a.Health, 15*time.Second, logger)
		return nil
	})

	logger.Info("translatord started",
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
		"workers", cfg.Pipeline.Workers,
		"redis_lock", cfg.Redis.Addr != "",
	)

	err := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	queue.Shutdown(drainCtx)
	return err
}
