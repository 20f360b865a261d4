package bootstrap

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/sentiment/internal/api"
	"github.com/jonesrussell/north-cloud/sentiment/internal/config"
	infragin "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 120 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// SetupHTTPServer creates the HTTP server with all handlers wired.
func SetupHTTPServer(cfg *config.Config, comps *Components, log logger.Logger) *infragin.Server {
	handler := api.NewHandler(comps.Registry, log, cfg.Service.MaxBatchTexts)

	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithCORSOrigins(cfg.CORS.AllowedOrigins).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithReadiness(comps.Ready).
		WithRoutes(func(router *gin.Engine) {
			api.SetupRoutes(router, handler, cfg.Auth.JWTSecret, comps.Telemetry.Handler())
		})
	for name, check := range comps.Checks {
		builder = builder.WithHealthCheck(name, check)
	}
	return builder.Build()
}
