package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Summarization providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderLocal     = "local"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server ports
	APIPort  int
	SMTPPort int

	// Inbound mail: recipient domains the listener accepts (empty = any)
	AcceptedDomains []string

	// Storage
	ArticlesPath string

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int

	// Pipeline
	IngestWorkers  int
	FetchTimeout   time.Duration
	PollInterval   time.Duration
	PollBatch      int
	DigestInterval time.Duration

	Outbound   OutboundConfig
	Summarizer SummarizerConfig
}

// OutboundConfig describes the SMTP relay used for device delivery
type OutboundConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromEmail   string
	DeviceEmail string
}

// Addr returns host:port
func (o OutboundConfig) Addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// Enabled reports whether delivery is configured at all
func (o OutboundConfig) Enabled() bool {
	return o.Host != "" && o.DeviceEmail != ""
}

// SummarizerConfig enumerates the recognized summarization options
type SummarizerConfig struct {
	Provider       string
	MaxRetries     int
	TimeoutSeconds int
	EnableFallback bool

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicKey     string
	AnthropicModel   string
	AnthropicBaseURL string

	LocalURL   string
	LocalModel string
}

// Timeout returns the per-call timeout
func (s SummarizerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Validate checks provider selection and retry bounds
func (s SummarizerConfig) Validate() error {
	switch s.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderLocal:
	default:
		return fmt.Errorf("AI_PROVIDER must be one of openai, anthropic, local (got %q)", s.Provider)
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("AI_MAX_RETRIES must be at least 1")
	}
	if s.TimeoutSeconds < 1 {
		return fmt.Errorf("AI_TIMEOUT must be at least 1 second")
	}
	return nil
}

// DefaultSummarizerConfig returns the defaults used when no env is set
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		Provider:         ProviderOpenAI,
		MaxRetries:       3,
		TimeoutSeconds:   60,
		EnableFallback:   true,
		OpenAIModel:      "gpt-3.5-turbo",
		OpenAIBaseURL:    "https://api.openai.com/v1",
		AnthropicModel:   "claude-3-haiku-20240307",
		AnthropicBaseURL: "https://api.anthropic.com/v1",
		LocalURL:         "http://localhost:11434/api/generate",
		LocalModel:       "llama2",
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	var err error
	if cfg.APIPort, err = getEnvInt("API_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getEnvInt("SMTP_PORT", 2525); err != nil {
		return nil, err
	}

	if domains := os.Getenv("ACCEPTED_DOMAINS"); domains != "" {
		for _, d := range strings.Split(domains, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				cfg.AcceptedDomains = append(cfg.AcceptedDomains, d)
			}
		}
	}

	cfg.ArticlesPath = getEnvOrDefault("ARTICLES_PATH", "./articles")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Security configuration
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = getEnvOrDefault("APP_ENV", "development")

	// Rate limiting configuration
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	// Pipeline
	if cfg.IngestWorkers, err = getEnvInt("INGEST_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getEnvDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PollBatch, err = getEnvInt("POLL_BATCH", 50); err != nil {
		return nil, err
	}
	if cfg.DigestInterval, err = getEnvDuration("DIGEST_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}

	// Outbound delivery
	cfg.Outbound.Host = os.Getenv("OUTBOUND_SMTP_HOST")
	if cfg.Outbound.Port, err = getEnvInt("OUTBOUND_SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.Outbound.Username = os.Getenv("OUTBOUND_SMTP_USERNAME")
	cfg.Outbound.Password = os.Getenv("OUTBOUND_SMTP_PASSWORD")
	cfg.Outbound.FromEmail = getEnvOrDefault("FROM_EMAIL", cfg.Outbound.Username)
	cfg.Outbound.DeviceEmail = os.Getenv("KINDLE_EMAIL")

	// Summarization
	cfg.Summarizer = DefaultSummarizerConfig()
	cfg.Summarizer.Provider = strings.ToLower(getEnvOrDefault("AI_PROVIDER", cfg.Summarizer.Provider))
	if cfg.Summarizer.MaxRetries, err = getEnvInt("AI_MAX_RETRIES", cfg.Summarizer.MaxRetries); err != nil {
		return nil, err
	}
	if cfg.Summarizer.TimeoutSeconds, err = getEnvInt("AI_TIMEOUT", cfg.Summarizer.TimeoutSeconds); err != nil {
		return nil, err
	}
	if cfg.Summarizer.EnableFallback, err = getEnvBool("AI_ENABLE_FALLBACK", cfg.Summarizer.EnableFallback); err != nil {
		return nil, err
	}
	cfg.Summarizer.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Summarizer.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.Summarizer.OpenAIModel)
	cfg.Summarizer.OpenAIBaseURL = getEnvOrDefault("OPENAI_BASE_URL", cfg.Summarizer.OpenAIBaseURL)
	cfg.Summarizer.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Summarizer.AnthropicModel = getEnvOrDefault("ANTHROPIC_MODEL", cfg.Summarizer.AnthropicModel)
	cfg.Summarizer.AnthropicBaseURL = getEnvOrDefault("ANTHROPIC_BASE_URL", cfg.Summarizer.AnthropicBaseURL)
	cfg.Summarizer.LocalURL = getEnvOrDefault("LOCAL_MODEL_URL", cfg.Summarizer.LocalURL)
	cfg.Summarizer.LocalModel = getEnvOrDefault("LOCAL_MODEL_NAME", cfg.Summarizer.LocalModel)

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Production-specific validation
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTPPort must be between 1 and 65535")
	}
	if c.ArticlesPath == "" {
		return fmt.Errorf("ArticlesPath cannot be empty")
	}
	if c.IngestWorkers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1")
	}
	if c.PollBatch < 1 {
		return fmt.Errorf("POLL_BATCH must be at least 1")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	return c.Summarizer.Validate()
}

// IsProduction reports whether APP_ENV selects production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.Int("smtp_port", c.SMTPPort),
		slog.Any("accepted_domains", c.AcceptedDomains),
		slog.String("articles_path", c.ArticlesPath),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
		slog.Int("ingest_workers", c.IngestWorkers),
		slog.Duration("poll_interval", c.PollInterval),
		slog.Bool("delivery_enabled", c.Outbound.Enabled()),
		slog.String("ai_provider", c.Summarizer.Provider),
		slog.Int("ai_max_retries", c.Summarizer.MaxRetries),
		slog.Bool("ai_fallback", c.Summarizer.EnableFallback),
	)
}

// SlogLevel maps LOG_LEVEL to a slog level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return v, nil
}
