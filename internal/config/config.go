package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth for serve mode
	SheetfillAPIKey string

	// Model providers
	Provider        string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string

	// Hierarchy classification batching
	BatchSize    int
	BatchOverlap int
	MinBatchSize int
	MaxBatches   int
	MaxFailures  int
	MaxAttempts  int
	RetryDelay   time.Duration

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// OutputDir receives extraction result directories and filled copies.
	OutputDir string

	// Fill distribution percentages
	FillPositive int
	FillNegative int
	FillPartial  int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		SheetfillAPIKey: os.Getenv("SHEETFILL_API_KEY"),

		Provider:        envOr("SHEETFILL_PROVIDER", "claude"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     envOr("GEMINI_MODEL", "gemini-2.5-flash"),

		BatchSize:    envInt("BATCH_SIZE", 50),
		BatchOverlap: envInt("BATCH_OVERLAP", 10),
		MinBatchSize: envInt("MIN_BATCH_SIZE", 20),
		MaxBatches:   envInt("MAX_BATCHES", 50),
		MaxFailures:  envInt("MAX_FAILURES", 3),
		MaxAttempts:  envInt("MAX_ATTEMPTS", 5),
		RetryDelay:   envDuration("RETRY_DELAY", 1*time.Second),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		OutputDir: envOr("OUTPUT_DIR", "."),

		FillPositive: envInt("FILL_POSITIVE", 70),
		FillNegative: envInt("FILL_NEGATIVE", 15),
		FillPartial:  envInt("FILL_PARTIAL", 15),
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchOverlap < 0 {
		cfg.BatchOverlap = 10
	}
	if cfg.MinBatchSize <= 0 {
		cfg.MinBatchSize = 20
	}
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = 50
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.FillPositive+cfg.FillNegative+cfg.FillPartial != 100 {
		cfg.FillPositive, cfg.FillNegative, cfg.FillPartial = 70, 15, 15
	}

	return cfg
}

func (c Config) Validate() error {
	switch c.Provider {
	case "claude":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown SHEETFILL_PROVIDER %q", c.Provider)
	}
	return nil
}

// ValidateServe adds the serve-mode requirements on top of Validate.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.SheetfillAPIKey == "" {
		return fmt.Errorf("SHEETFILL_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
