package common

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	LLM        LLMConfig        `yaml:"llm"`
	Translator TranslatorConfig `yaml:"translator"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Redis      RedisConfig      `yaml:"redis"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// StorageConfig describes the blob container and how artifacts are addressed.
type StorageConfig struct {
	Endpoint         string `yaml:"endpoint"` // S3-compatible host:port
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	UseSSL           bool   `yaml:"use_ssl"`
	AccountURL       string `yaml:"account_url"` // public base used in artifact URLs
	SASToken         string `yaml:"sas_token"`
	Container        string `yaml:"container"`
	LandingPrefix    string `yaml:"landing_prefix"`
	TranslatedPrefix string `yaml:"translated_prefix"`
	GlossaryPrefix   string `yaml:"glossary_prefix"`
	WatermarkPrefix  string `yaml:"watermark_prefix"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Endpoint         string           `yaml:"endpoint"`
	APIKey           string           `yaml:"api_key"`
	Deployment       string           `yaml:"deployment"`
	Model            string           `yaml:"model"` // used when Deployment is empty
	APIVersion       string           `yaml:"api_version"`
	MaxTokens        int              `yaml:"max_tokens"`
	Temperature      float32          `yaml:"temperature"`
	TopP             float32          `yaml:"top_p"`
	FrequencyPenalty float32          `yaml:"frequency_penalty"`
	PresencePenalty  float32          `yaml:"presence_penalty"`
	Stop             []string         `yaml:"stop"`
	Timeout          time.Duration    `yaml:"timeout"`
	SystemPrompt     string           `yaml:"system_prompt"`
	FewShotExamples  []FewShotExample `yaml:"few_shot_examples"`
}

// FewShotExample is one example exchange sent ahead of the document text.
type FewShotExample struct {
	UserInput       string `yaml:"user_input" json:"userInput"`
	ChatbotResponse string `yaml:"chatbot_response" json:"chatbotResponse"`
}

// TranslatorConfig holds the document translation API settings.
type TranslatorConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	SubscriptionKey string        `yaml:"subscription_key"`
	APIVersion      string        `yaml:"api_version"`
	Category        string        `yaml:"category"`
	SubmitTimeout   time.Duration `yaml:"submit_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxAttempts     int           `yaml:"max_attempts"`
}

// PipelineConfig holds worker and watermark settings.
type PipelineConfig struct {
	Workers       int           `yaml:"workers"`
	QueueSize     int           `yaml:"queue_size"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	Soffice       string        `yaml:"soffice"`
	Pdftotext     string        `yaml:"pdftotext"` // empty uses the pure-Go PDF reader only
	WatermarkText string        `yaml:"watermark_text"`
}

// RedisConfig enables the shared dedup lock when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults before file and env overrides.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  64 << 20,
		},
		Storage: StorageConfig{
			Container:        constants.DefaultContainer,
			LandingPrefix:    constants.DefaultLandingPrefix,
			TranslatedPrefix: constants.DefaultTranslatedPrefix,
			GlossaryPrefix:   constants.DefaultGlossaryPrefix,
			WatermarkPrefix:  constants.DefaultWatermarkPrefix,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			APIVersion:  "2024-02-01",
			MaxTokens:   800,
			Temperature: 0.7,
			TopP:        0.95,
			Timeout:     30 * time.Second,
		},
		Translator: TranslatorConfig{
			APIVersion:    "2024-05-01",
			Category:      "general",
			SubmitTimeout: 30 * time.Second,
			PollInterval:  10 * time.Second,
			MaxAttempts:   20,
		},
		Pipeline: PipelineConfig{
			Workers:       4,
			QueueSize:     64,
			JobTimeout:    10 * time.Minute,
			LockTTL:       15 * time.Minute,
			Soffice:       "soffice",
			WatermarkText: constants.DefaultWatermarkText,
		},
		Redis: RedisConfig{
			Prefix: "translator:lock",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads defaults, then the optional YAML file at path, then
// environment variables (which win).
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "parse config file", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)

	c.Storage.Endpoint = getEnv("STORAGE_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = getEnv("STORAGE_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("STORAGE_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.UseSSL = getEnvAsBool("STORAGE_USE_SSL", c.Storage.UseSSL)
	c.Storage.AccountURL = getEnv("STORAGE_ACCOUNT_URL", c.Storage.AccountURL)
	c.Storage.SASToken = getEnv("SAS_TOKEN", c.Storage.SASToken)
	c.Storage.Container = getEnv("STORAGE_CONTAINER", c.Storage.Container)
	c.Storage.WatermarkPrefix = getEnv("WATERMARK_PREFIX", c.Storage.WatermarkPrefix)

	c.LLM.Endpoint = getEnv("AZURE_OPENAI_ENDPOINT", c.LLM.Endpoint)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.Deployment = getEnv("CHAT_COMPLETIONS_DEPLOYMENT_NAME", c.LLM.Deployment)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.APIVersion = getEnv("OPENAI_API_VERSION", c.LLM.APIVersion)
	c.LLM.SystemPrompt = getEnv("OPENAI_SYSTEM_PROMPT", c.LLM.SystemPrompt)
	c.LLM.MaxTokens = getEnvAsInt("OPENAI_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.TopP = getEnvAsFloat32("OPENAI_TOP_P", c.LLM.TopP)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.FewShotExamples = getEnvAsFewShot("OPENAI_FEW_SHOT_EXAMPLES", c.LLM.FewShotExamples)

	c.Translator.Endpoint = getEnv("TRANSLATE_ENDPOINT", c.Translator.Endpoint)
	c.Translator.SubscriptionKey = getEnv("TRANSLATE_SUBSCRIPTION_KEY", c.Translator.SubscriptionKey)
	c.Translator.PollInterval = getEnvAsDuration("TRANSLATE_POLL_INTERVAL", c.Translator.PollInterval)
	c.Translator.MaxAttempts = getEnvAsInt("TRANSLATE_MAX_ATTEMPTS", c.Translator.MaxAttempts)

	c.Pipeline.Workers = getEnvAsInt("PIPELINE_WORKERS", c.Pipeline.Workers)
	c.Pipeline.QueueSize = getEnvAsInt("PIPELINE_QUEUE_SIZE", c.Pipeline.QueueSize)
	c.Pipeline.JobTimeout = getEnvAsDuration("PIPELINE_JOB_TIMEOUT", c.Pipeline.JobTimeout)
	c.Pipeline.LockTTL = getEnvAsDuration("PIPELINE_LOCK_TTL", c.Pipeline.LockTTL)
	c.Pipeline.Soffice = getEnv("SOFFICE_BIN", c.Pipeline.Soffice)
	c.Pipeline.WatermarkText = getEnv("WATERMARK_TEXT", c.Pipeline.WatermarkText)
	c.Pipeline.Pdftotext = getEnv("PDFTOTEXT_BIN", c.Pipeline.Pdftotext)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsFewShot reads a JSON array of {"userInput","chatbotResponse"} pairs.
func getEnvAsFewShot(key string, defaultValue []FewShotExample) []FewShotExample {
	if value := os.Getenv(key); value != "" {
		var examples []FewShotExample
		if err := json.Unmarshal([]byte(value), &examples); err == nil {
			return examples
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	var missing []string
	if c.Database.DSN == "" {
		missing = append(missing, "DB_URL")
	}
	if c.Server.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	if c.Storage.Endpoint == "" {
		missing = append(missing, "STORAGE_ENDPOINT")
	}
	if c.Storage.AccountURL == "" {
		missing = append(missing, "STORAGE_ACCOUNT_URL")
	}
	if c.LLM.Endpoint == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Translator.Endpoint == "" {
		missing = append(missing, "TRANSLATE_ENDPOINT")
	}
	if c.Translator.SubscriptionKey == "" {
		missing = append(missing, "TRANSLATE_SUBSCRIPTION_KEY")
	}
	if len(missing) > 0 {
		return NewAppError("CONFIG_ERROR", strings.Join(missing, ", ")+" required", ErrInvalidInput)
	}
	if c.Translator.MaxAttempts <= 0 || c.Translator.PollInterval <= 0 {
		return NewAppError("CONFIG_ERROR",
			fmt.Sprintf("invalid poll settings: attempts=%d interval=%s", c.Translator.MaxAttempts, c.Translator.PollInterval),
			ErrInvalidInput)
	}
	return nil
}
