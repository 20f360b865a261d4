// Package mlhealth turns inference sidecar probes into service health checks.
package mlhealth

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/circuitbreaker"
	infragin "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/sentiment/internal/mltransport"
)

// Prober is the part of the transport a health check needs.
type Prober interface {
	DoHealth(ctx context.Context) (mltransport.Health, error)
	BreakerState() circuitbreaker.State
}

// Check probes GET /health once.
func Check(ctx context.Context, p Prober) (mltransport.Health, error) {
	h, err := p.DoHealth(ctx)
	if err != nil {
		return h, fmt.Errorf("ml health check: %w", err)
	}
	return h, nil
}

// Checker reports the model's sidecar as unhealthy when unreachable and as
// degraded when reachable while its circuit is not closed.
func Checker(modelID string, p Prober) infragin.HealthChecker {
	return func(ctx context.Context) infragin.CheckResult {
		h, err := Check(ctx, p)
		latency := h.Latency.String()
		if err != nil {
			return infragin.CheckResult{
				Status:  infragin.HealthStatusUnhealthy,
				Message: modelID + ": " + err.Error(),
				Latency: latency,
			}
		}

		if state := p.BreakerState(); state != circuitbreaker.StateClosed {
			return infragin.CheckResult{
				Status:  infragin.HealthStatusDegraded,
				Message: modelID + ": circuit " + state.String(),
				Latency: latency,
			}
		}
		return infragin.CheckResult{
			Status:  infragin.HealthStatusHealthy,
			Message: modelID + " OK",
			Latency: latency,
		}
	}
}
