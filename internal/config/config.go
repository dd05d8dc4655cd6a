package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
)

type Config struct {
	Token        string     `env:"TOKEN,required,notEmpty"`
	AllowedUsers []int64    `env:"ALLOWED_USERS"`
	DBPath       string     `env:"DB_PATH"                 envDefault:"db.sqlite"`
	LogLevel     slog.Level `env:"LOG_LEVEL"               envDefault:"INFO"`

	Provider     string `env:"SUMMARIZER_PROVIDER" envDefault:"huggingface"`
	HFAPIToken   string `env:"HF_API_TOKEN"`
	HFAPIURL     string `env:"HF_API_URL"          envDefault:"https://api-inference.huggingface.co/models/facebook/bart-large-cnn"`
	HFModel      string `env:"HF_MODEL"            envDefault:"facebook/bart-large-cnn"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL"`

	SummaryMinLength  int           `env:"SUMMARY_MIN_LENGTH"  envDefault:"30"`
	SummaryMaxLength  int           `env:"SUMMARY_MAX_LENGTH"  envDefault:"130"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT"        envDefault:"60s"`
	RemoteMaxAttempts int           `env:"REMOTE_MAX_ATTEMPTS" envDefault:"3"`

	CacheFlushSpec string `env:"CACHE_FLUSH_SPEC" envDefault:"*/5 * * * *"`
}

func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderHuggingFace:
		if strings.TrimSpace(c.HFAPIToken) == "" {
			errs = append(errs, errors.New("HF_API_TOKEN is required for huggingface provider"))
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SUMMARIZER_PROVIDER %q", c.Provider))
	}

	if c.SummaryMinLength < 0 || c.SummaryMaxLength <= c.SummaryMinLength {
		errs = append(errs, fmt.Errorf(
			"SUMMARY_MIN_LENGTH must be non-negative and below SUMMARY_MAX_LENGTH (min = %d, max = %d)",
			c.SummaryMinLength,
			c.SummaryMaxLength,
		))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}

	if c.RemoteMaxAttempts <= 0 {
		errs = append(errs, errors.New("REMOTE_MAX_ATTEMPTS must be positive"))
	}

	return errors.Join(errs...)
}
