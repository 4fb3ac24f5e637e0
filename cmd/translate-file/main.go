// Command translate-file runs one translate pass for a file already in the
// landing zone, then optionally the watermark stage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/app"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
		fileName   = flag.String("file", "", "file name in the landing zone (required)")
		mark       = flag.Bool("watermark", false, "run the watermark stage after translating")
	)
	flag.Parse()
	if *fileName == "" {
		fmt.Fprintln(os.Stderr, "usage: translate-file -file <name> [-watermark] [-config path]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := app.NewLogger(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = common.WithFileName(ctx, *fileName)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	err = run(ctx, a, *fileName, *mark)
	a.Close()
	if err != nil {
		logger.Error("translate-file failed", "file_name", *fileName, "error", err)
		os.Exit(1)
	}
}

// run translates fileName, optionally watermarks the result, and prints the
// record's facet statuses.
func run(ctx context.Context, a *app.App, fileName string, mark bool) error {
	if err := a.Translate.Run(ctx, fileName); err != nil {
		return common.WrapError(err, "translate")
	}

	if mark {
		res, err := a.Watermark.Run(ctx, fileName)
		if err != nil {
			return common.WrapError(err, "watermark")
		}
		fmt.Println(res.Path)
	}

	rec, err := a.Files.Get(ctx, fileName)
	if err != nil {
		return common.WrapError(err, "read record")
	}
	fmt.Printf("%s: translation=%s glossary=%s watermark=%s\n",
		rec.FileName, rec.TranslationStatus, rec.GlossaryProcessingStatus, rec.WatermarkStatus)
	return nil
}
