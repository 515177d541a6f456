package health

import (
	"context"
	"log/slog"

	"github.com/eleven-am/subflow/internal/ports"
	"github.com/eleven-am/subflow/internal/readiness"
)

type Checker struct {
	store     ports.Pinger
	registry  ports.DriverRegistryPort
	readiness *readiness.Manager
	logger    *slog.Logger
}

func NewHealthChecker(store ports.Pinger, registry ports.DriverRegistryPort, state *readiness.Manager, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Checker{
		store:     store,
		registry:  registry,
		readiness: state,
		logger:    logger.With("component", "health-checker"),
	}
}

func (hc *Checker) GetHealth(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Healthy: true,
		Status:  "healthy",
		State:   readiness.StateReady.String(),
	}

	if hc.readiness != nil {
		state := hc.readiness.GetState()
		status.State = state.String()
		if state == readiness.StateDraining || state == readiness.StateStopped {
			status.Status = "draining"
		}
	}

	if hc.registry != nil {
		status.Drivers = hc.registry.GetDriverCount()
		if status.Drivers == 0 {
			status.Healthy = false
			status.Status = "no_drivers"
		}
	}

	if hc.store != nil {
		if err := hc.store.Ping(ctx); err != nil {
			hc.logger.Warn("store health check failed", "error", err)
			status.Healthy = false
			status.Status = "store_unavailable"
			status.StoreError = err.Error()
		}
	}

	return status
}

// IsReady reports whether new work should be routed here: the process has
// finished starting, is not draining and is healthy.
func (hc *Checker) IsReady(ctx context.Context) bool {
	if hc.readiness != nil && !hc.readiness.IsReady() {
		return false
	}
	return hc.GetHealth(ctx).Healthy
}
