package bootstrap

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/sentiment/internal/cache"
	"github.com/jonesrussell/north-cloud/sentiment/internal/classifier"
	"github.com/jonesrussell/north-cloud/sentiment/internal/config"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/circuitbreaker"
	infragin "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/sentiment/internal/mlhealth"
	"github.com/jonesrussell/north-cloud/sentiment/internal/mltransport"
	"github.com/jonesrussell/north-cloud/sentiment/internal/registry"
	"github.com/jonesrussell/north-cloud/sentiment/internal/segmenter"
	"github.com/jonesrussell/north-cloud/sentiment/internal/teiclient"
	"github.com/jonesrussell/north-cloud/sentiment/internal/telemetry"
)

// Components holds everything the HTTP service and the CLI share.
type Components struct {
	Registry  *registry.Registry
	Telemetry *telemetry.Provider
	// Cache is nil when redis is disabled.
	Cache *cache.RedisCache
	// Checks are the /health dependency checks, one per model plus the cache.
	Checks map[string]infragin.HealthChecker

	redis *goredis.Client
}

// NewComponents builds a frozen registry with one TEI-backed classifier per
// configured model. extra options are applied after the configured ones.
func NewComponents(ctx context.Context, cfg *config.Config, log logger.Logger, extra ...registry.Option) (*Components, error) {
	strategy, err := classifier.ParseAggregation(cfg.Aggregation.Strategy)
	if err != nil {
		return nil, fmt.Errorf("aggregation: %w", err)
	}

	splitter, err := segmenter.NewSplitter(cfg.Segmentation.Language)
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}

	comps := &Components{
		Telemetry: telemetry.NewProvider(),
		Checks:    make(map[string]infragin.HealthChecker, len(cfg.Models)+1),
	}

	opts := []registry.Option{
		registry.WithConcurrency(cfg.Service.Concurrency),
		registry.WithRecorder(comps.Telemetry),
		registry.WithTracer(comps.Telemetry.Tracer),
		registry.WithClassifierOptions(
			classifier.WithAggregation(strategy),
			classifier.WithSplitter(splitter),
		),
	}

	if cfg.Redis.Enabled {
		client, redisErr := infraredis.NewClient(ctx, cfg.Redis.Config)
		if redisErr != nil {
			return nil, fmt.Errorf("connect result cache: %w", redisErr)
		}
		comps.redis = client
		comps.Cache = cache.NewRedisCache(client, cfg.Redis.TTL)
		comps.Checks["redis"] = infragin.PingHealthChecker("redis", infragin.HealthStatusDegraded, comps.Cache.Ping)
		opts = append(opts, registry.WithCache(comps.Cache))
		log.Info("Result cache enabled",
			logger.String("address", cfg.Redis.Address),
			logger.Duration("ttl", cfg.Redis.TTL),
		)
	}

	comps.Registry = registry.New(log, append(opts, extra...)...)

	for _, mc := range cfg.Models {
		if err := comps.registerModel(cfg, mc, log); err != nil {
			_ = comps.Close()
			return nil, err
		}
	}
	comps.Registry.Freeze()

	log.Info("Model registry ready",
		logger.Strings("models", comps.Registry.Models()),
		logger.String("aggregation", strategy.String()),
		logger.String("language", splitter.Language()),
	)
	return comps, nil
}

func (c *Components) registerModel(cfg *config.Config, mc config.ModelConfig, log logger.Logger) error {
	spec, err := mc.Spec(cfg.Segmentation.ReservedTokens)
	if err != nil {
		return err
	}

	tr, err := mltransport.New(transportConfig(cfg.Inference, mc, c.Telemetry, log))
	if err != nil {
		return fmt.Errorf("model %s: %w", mc.ID, err)
	}

	if err := c.Registry.Register(spec, teiclient.New(tr)); err != nil {
		return fmt.Errorf("register model: %w", err)
	}
	c.Telemetry.SetBreakerState(mc.ID, int(circuitbreaker.StateClosed))
	c.Checks["model:"+mc.ID] = mlhealth.Checker(mc.ID, tr)
	return nil
}

func transportConfig(ic config.InferenceConfig, mc config.ModelConfig, tel *telemetry.Provider, log logger.Logger) mltransport.Config {
	modelID := mc.ID
	return mltransport.Config{
		BaseURL: mc.URL,
		Timeout: ic.Timeout,
		Retry: retry.Config{
			MaxAttempts:  ic.MaxRetries,
			InitialDelay: ic.RetryDelay,
			MaxDelay:     ic.RetryMaxDelay,
		},
		Breaker: circuitbreaker.Config{
			FailureThreshold: ic.BreakerFailures,
			SuccessThreshold: ic.BreakerSuccesses,
			Timeout:          ic.BreakerTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				tel.SetBreakerState(modelID, int(to))
				log.Warn("Inference circuit state changed",
					logger.String("model", modelID),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			},
		},
		RateLimit: ic.RateLimit,
		Burst:     ic.Burst,
		Observer: func(endpoint string, err error) {
			tel.RecordBackendRequest(modelID, endpoint, err)
		},
	}
}

// Ready reports whether the registry has finished initialisation.
func (c *Components) Ready() bool {
	return c.Registry != nil && c.Registry.Frozen()
}

// Close releases the cache connection.
func (c *Components) Close() error {
	if c.redis == nil {
		return nil
	}
	err := c.redis.Close()
	c.redis = nil
	if err != nil && !errors.Is(err, goredis.ErrClosed) {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

// ProgressLogger logs batch progress every n texts and on completion.
func ProgressLogger(log logger.Logger, every int) registry.ProgressFunc {
	if every <= 0 {
		every = 1
	}
	return func(done, total int) {
		if done%every != 0 && done != total {
			return
		}
		log.Info("Classifying texts",
			logger.Int("done", done),
			logger.Int("total", total),
			logger.Float64("percent", 100*float64(done)/float64(total)),
		)
	}
}
