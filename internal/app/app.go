// Package app wires configuration into the stages and servers shared by the
// binaries under cmd/.
package app

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/export"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/extract"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/llm"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/llm/openai"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/lock"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/pipeline"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/repository"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/runner"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/storage"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/translator"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/watermark"
)

// App holds the long-lived collaborators built from a Config.
type App struct {
	Config    *common.Config
	DB        *repository.DB
	Files     repository.FileTranslationRepository
	Prompts   repository.PromptRepository
	Store     storage.BlobStore
	Layout    storage.Layout
	Upload    *pipeline.UploadStage
	Translate *pipeline.TranslateStage
	Watermark *pipeline.WatermarkStage
	Export    *export.Service

	closers []func()
	logger  *slog.Logger
}

// NewLogger builds the JSON slog handler on stdout at the configured level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// LayoutFrom maps storage settings onto the artifact layout.
func LayoutFrom(cfg common.StorageConfig) storage.Layout {
	return storage.Layout{
		AccountURL:       cfg.AccountURL,
		Container:        cfg.Container,
		SASToken:         cfg.SASToken,
		LandingPrefix:    cfg.LandingPrefix,
		TranslatedPrefix: cfg.TranslatedPrefix,
		GlossaryPrefix:   cfg.GlossaryPrefix,
		WatermarkPrefix:  cfg.WatermarkPrefix,
	}
}

// New opens the database, migrates it, connects storage and the lock, and
// builds the three stages. Close releases everything New opened.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger, Layout: LayoutFrom(cfg.Storage)}

	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, common.WrapError(err, "open database")
	}
	a.DB = db
	a.closers = append(a.closers, func() { repository.Close(db, logger) })
	if err := repository.Migrate(ctx, db, logger); err != nil {
		a.Close()
		return nil, err
	}
	a.Files = repository.NewFileTranslationRepository(db, logger)
	a.Prompts = repository.NewPromptRepository(db, logger)

	store, err := storage.NewMinioStore(ctx, storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Container,
	}, logger)
	if err != nil {
		a.Close()
		return nil, common.WrapError(err, "connect storage")
	}
	a.Store = store

	var locker lock.Locker = lock.NewMemory()
	if cfg.Redis.Addr != "" {
		rl, err := lock.NewRedis(ctx, lock.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, logger)
		if err != nil {
			a.Close()
			return nil, common.WrapError(err, "connect redis")
		}
		a.closers = append(a.closers, func() { _ = rl.Close() })
		locker = rl
	}

	pdftotext := cfg.Pipeline.Pdftotext
	if pdftotext != "" && !runner.Available(pdftotext) {
		logger.Warn("pdftotext not found, using the Go PDF reader", "bin", pdftotext)
		pdftotext = ""
	}
	if !runner.Available(cfg.Pipeline.Soffice) {
		logger.Warn("soffice not found, docx watermarking will fail", "bin", cfg.Pipeline.Soffice)
	}
	extractor := extract.NewExtractor(extract.Config{Pdftotext: pdftotext}, nil, logger)
	model := openai.NewClient(openai.Config{
		Endpoint:   cfg.LLM.Endpoint,
		APIKey:     cfg.LLM.APIKey,
		APIVersion: cfg.LLM.APIVersion,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout,
		Params: llm.ChatParameters{
			Deployment:       cfg.LLM.Deployment,
			MaxTokens:        cfg.LLM.MaxTokens,
			Temperature:      cfg.LLM.Temperature,
			TopP:             cfg.LLM.TopP,
			FrequencyPenalty: cfg.LLM.FrequencyPenalty,
			PresencePenalty:  cfg.LLM.PresencePenalty,
			Stop:             cfg.LLM.Stop,
		},
	}, logger)
	jobs := translator.NewClient(translator.Config{
		Endpoint:        cfg.Translator.Endpoint,
		SubscriptionKey: cfg.Translator.SubscriptionKey,
		APIVersion:      cfg.Translator.APIVersion,
		Category:        cfg.Translator.Category,
		RequestTimeout:  cfg.Translator.SubmitTimeout,
		PollInterval:    cfg.Translator.PollInterval,
		MaxAttempts:     cfg.Translator.MaxAttempts,
	}, logger)

	a.Upload = pipeline.NewUploadStage(a.Files, store, a.Layout, logger)
	a.Translate = pipeline.NewTranslateStage(pipeline.TranslateDeps{
		Files:     a.Files,
		Prompts:   a.Prompts,
		Source:    extractor,
		Extractor: extractor,
		Entities:  model,
		Jobs:      jobs,
		Store:     store,
		Layout:    a.Layout,
		Locker:    locker,
	}, logger)
	a.Translate.LockTTL = cfg.Pipeline.LockTTL
	if cfg.LLM.SystemPrompt != "" {
		a.Translate.Instruction = cfg.LLM.SystemPrompt
	}
	a.Translate.Examples = FewShotFrom(cfg.LLM)
	a.Watermark = pipeline.NewWatermarkStage(a.Files, store, a.Layout,
		watermark.NewSoffice(cfg.Pipeline.Soffice, logger),
		watermark.NewTextStamper(cfg.Pipeline.WatermarkText, logger),
		logger)
	a.Export = export.NewService(a.Files, logger)
	return a, nil
}

// FewShotFrom converts configured example pairs into model messages.
func FewShotFrom(cfg common.LLMConfig) []llm.FewShot {
	if len(cfg.FewShotExamples) == 0 {
		return nil
	}
	out := make([]llm.FewShot, 0, len(cfg.FewShotExamples))
	for _, ex := range cfg.FewShotExamples {
		out = append(out, llm.FewShot{UserInput: ex.UserInput, AssistantOutput: ex.ChatbotResponse})
	}
	return out
}

// Health pings the database.
func (a *App) Health(ctx context.Context) error {
	return repository.HealthCheck(ctx, a.DB, a.Config.Database.DialTimeout, a.logger)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
