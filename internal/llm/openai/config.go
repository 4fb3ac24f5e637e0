package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/llm"
)

// Config for the chat completions client. When Deployment is set the client
// speaks the Azure OpenAI dialect, otherwise the plain OpenAI one.
type Config struct {
	Endpoint   string // Azure resource endpoint or OpenAI base URL
	APIKey     string
	APIVersion string // Azure only, default 2024-02-01
	Model      string // OpenAI only
	Timeout    time.Duration
	Params     llm.ChatParameters
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-02-01"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Params.MaxTokens <= 0 {
		cfg.Params.MaxTokens = 800
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}
