// Package config defines the sentiment service configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/sentiment/internal/classifier"
	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
	infraconfig "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/config"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/sentiment/internal/segmenter"
)

// Default configuration values.
const (
	defaultServiceName      = "sentiment"
	defaultServiceVersion   = "1.0.0"
	defaultServicePort      = 5000
	defaultConcurrency      = 4
	defaultRedisAddress     = "localhost:6379"
	defaultCacheTTL         = 24 * time.Hour
	defaultInferenceTimeout = 30 * time.Second
	defaultMaxRetries       = 3
	defaultRetryDelay       = 200 * time.Millisecond
	defaultRetryMaxDelay    = 5 * time.Second
	defaultBreakerFailures  = 5
	defaultBreakerSuccesses = 2
	defaultBreakerTimeout   = 30 * time.Second
	defaultProgressEvery    = 100
	defaultMaxBatchTexts    = 100
	imdbModelID             = "omidroshani/imdb-sentiment-analysis"
	robertaModelID          = "siebert/sentiment-roberta-large-english"
	defaultImdbURL          = "http://localhost:8081"
	defaultRobertaURL       = "http://localhost:8082"
)

// Config holds all configuration for the sentiment service.
type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	Logging      logger.Config      `yaml:"logging"`
	Auth         AuthConfig         `yaml:"auth"`
	Redis        RedisConfig        `yaml:"redis"`
	Inference    InferenceConfig    `yaml:"inference"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Aggregation  AggregationConfig  `yaml:"aggregation"`
	CORS         CORSConfig         `yaml:"cors"`
	Models       []ModelConfig      `yaml:"models"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Port        int    `env:"SENTIMENT_PORT"        yaml:"port"`
	Debug       bool   `env:"APP_DEBUG"             yaml:"debug"`
	Concurrency int    `env:"SENTIMENT_CONCURRENCY" yaml:"concurrency"`
	// MaxBatchTexts caps POST /api/classify/batch.
	MaxBatchTexts int `yaml:"max_batch_texts"`
	// ProgressEvery is how many texts pass between batch progress logs.
	ProgressEvery int `yaml:"progress_every"`
}

// AuthConfig holds authentication configuration. An empty secret leaves
// the API open.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// RedisConfig holds the result cache configuration.
type RedisConfig struct {
	Enabled bool `env:"REDIS_ENABLED" yaml:"enabled"`

	infraredis.Config `yaml:",inline"`

	TTL time.Duration `env:"REDIS_CACHE_TTL" yaml:"ttl"`
}

// InferenceConfig holds settings shared by every model's inference transport.
type InferenceConfig struct {
	Timeout          time.Duration `env:"INFERENCE_TIMEOUT"     yaml:"timeout"`
	MaxRetries       int           `env:"INFERENCE_MAX_RETRIES" yaml:"max_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	RetryMaxDelay    time.Duration `yaml:"retry_max_delay"`
	RateLimit        float64       `env:"INFERENCE_RATE_LIMIT"  yaml:"rate_limit"`
	Burst            int           `yaml:"burst"`
	BreakerFailures  int           `yaml:"breaker_failures"`
	BreakerSuccesses int           `yaml:"breaker_successes"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
}

// SegmentationConfig holds segmenter settings.
type SegmentationConfig struct {
	// Language selects the sentence splitter model; only english is bundled.
	Language       string `yaml:"language"`
	ReservedTokens int    `yaml:"reserved_tokens"`
}

// AggregationConfig selects how segment predictions are combined.
type AggregationConfig struct {
	Strategy string `env:"AGGREGATION_STRATEGY" yaml:"strategy"`
}

// CORSConfig holds allowed origins for the HTTP API.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" yaml:"allowed_origins"`
}

// ModelConfig describes one model and the inference server hosting it.
type ModelConfig struct {
	ID        string            `yaml:"id"`
	Task      string            `yaml:"task"`
	URL       string            `yaml:"url"`
	MaxLength int               `yaml:"max_length"`
	LabelMap  map[string]string `yaml:"label_map"`
	// ReservedTokens overrides segmentation.reserved_tokens for this model.
	ReservedTokens int `yaml:"reserved_tokens"`
}

// Spec converts m into a domain.ModelSpec.
func (m ModelConfig) Spec(defaultReserved int) (domain.ModelSpec, error) {
	lm, err := domain.NewLabelMap(m.LabelMap)
	if err != nil {
		return domain.ModelSpec{}, fmt.Errorf("model %s: %w", m.ID, err)
	}
	reserved := m.ReservedTokens
	if reserved == 0 {
		reserved = defaultReserved
	}
	return domain.ModelSpec{
		ID:             m.ID,
		Task:           m.Task,
		LabelMap:       lm,
		MaxLength:      m.MaxLength,
		ReservedTokens: reserved,
	}.WithDefaults(), nil
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, SetDefaults)
}

// DefaultModels returns the two bundled IMDB sentiment models.
func DefaultModels() []ModelConfig {
	return []ModelConfig{
		{
			ID:        imdbModelID,
			Task:      "text-classification",
			URL:       defaultImdbURL,
			MaxLength: domain.DefaultMaxLength,
			LabelMap:  map[string]string{"LABEL_0": "NEGATIVE", "LABEL_1": "POSITIVE"},
		},
		{
			ID:        robertaModelID,
			Task:      "sentiment-analysis",
			URL:       defaultRobertaURL,
			MaxLength: domain.DefaultMaxLength,
			LabelMap:  map[string]string{"NEGATIVE": "NEGATIVE", "POSITIVE": "POSITIVE"},
		},
	}
}

// SetDefaults applies default values to the config.
func SetDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setRedisDefaults(&cfg.Redis)
	setInferenceDefaults(&cfg.Inference)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Segmentation.Language == "" {
		cfg.Segmentation.Language = segmenter.LanguageEnglish
	}
	if cfg.Segmentation.ReservedTokens == 0 {
		cfg.Segmentation.ReservedTokens = domain.DefaultReservedTokens
	}
	if cfg.Aggregation.Strategy == "" {
		cfg.Aggregation.Strategy = classifier.AggregationMeanConfidence.String()
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels()
	}
	for i := range cfg.Models {
		if cfg.Models[i].MaxLength == 0 {
			cfg.Models[i].MaxLength = domain.DefaultMaxLength
		}
	}
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
	if s.Concurrency == 0 {
		s.Concurrency = defaultConcurrency
	}
	if s.MaxBatchTexts == 0 {
		s.MaxBatchTexts = defaultMaxBatchTexts
	}
	if s.ProgressEvery == 0 {
		s.ProgressEvery = defaultProgressEvery
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.TTL == 0 {
		r.TTL = defaultCacheTTL
	}
}

func setInferenceDefaults(i *InferenceConfig) {
	if i.Timeout == 0 {
		i.Timeout = defaultInferenceTimeout
	}
	if i.MaxRetries == 0 {
		i.MaxRetries = defaultMaxRetries
	}
	if i.RetryDelay == 0 {
		i.RetryDelay = defaultRetryDelay
	}
	if i.RetryMaxDelay == 0 {
		i.RetryMaxDelay = defaultRetryMaxDelay
	}
	if i.BreakerFailures == 0 {
		i.BreakerFailures = defaultBreakerFailures
	}
	if i.BreakerSuccesses == 0 {
		i.BreakerSuccesses = defaultBreakerSuccesses
	}
	if i.BreakerTimeout == 0 {
		i.BreakerTimeout = defaultBreakerTimeout
	}
}

// Validate reports every invalid field, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(infraconfig.ValidateRequired("service.name", c.Service.Name))
	add(infraconfig.ValidatePort("service.port", c.Service.Port))
	add(infraconfig.ValidateLogLevel("logging.level", c.Logging.Level))
	if c.Service.Concurrency < 1 {
		add(&infraconfig.ValidationError{Field: "service.concurrency", Message: "must be at least 1"})
	}
	if c.Redis.Enabled {
		add(infraconfig.ValidateRequired("redis.address", c.Redis.Address))
	}
	if c.Inference.RateLimit < 0 {
		add(&infraconfig.ValidationError{Field: "inference.rate_limit", Message: "must not be negative"})
	}
	if !segmenter.IsSupportedLanguage(c.Segmentation.Language) {
		add(&infraconfig.ValidationError{Field: "segmentation.language", Message: "only english is supported"})
	}
	if _, err := classifier.ParseAggregation(c.Aggregation.Strategy); err != nil {
		add(&infraconfig.ValidationError{Field: "aggregation.strategy", Message: err.Error()})
	}

	if len(c.Models) == 0 {
		add(&infraconfig.ValidationError{Field: "models", Message: "at least one model is required"})
	}
	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		prefix := fmt.Sprintf("models[%d]", i)
		add(infraconfig.ValidateRequired(prefix+".id", m.ID))
		add(infraconfig.ValidateURL(prefix+".url", m.URL))
		if seen[m.ID] {
			add(&infraconfig.ValidationError{Field: prefix + ".id", Message: "duplicate model " + m.ID})
		}
		seen[m.ID] = true
		if len(m.LabelMap) == 0 {
			add(&infraconfig.ValidationError{Field: prefix + ".label_map", Message: "is required"})
		} else if _, err := domain.NewLabelMap(m.LabelMap); err != nil {
			add(&infraconfig.ValidationError{Field: prefix + ".label_map", Message: err.Error()})
		}
		reserved := m.ReservedTokens
		if reserved == 0 {
			reserved = c.Segmentation.ReservedTokens
		}
		if m.MaxLength-reserved < 1 {
			add(&infraconfig.ValidationError{Field: prefix + ".max_length", Message: "must exceed reserved tokens"})
		}
	}

	return errors.Join(errs...)
}
