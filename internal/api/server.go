package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/eleven-am/subflow/internal/adapters/observability"
	"github.com/eleven-am/subflow/internal/ports"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
}

// NewServer builds the HTTP API. health may be nil, in which case /healthz
// and /readyz always report ok.
func NewServer(addr string, orchestrator ports.OrchestratorPort, registry ports.DriverRegistryPort, health ports.HealthProvider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Warn("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency", v.Latency,
					"error", v.Error)
				return nil
			}
			logger.Debug("request handled",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency)
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		if health == nil {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		}
		status := health.GetHealth(c.Request().Context())
		if !status.Healthy {
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		return c.JSON(http.StatusOK, status)
	})
	e.GET("/readyz", func(c echo.Context) error {
		if health != nil && !health.IsReady(c.Request().Context()) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})
	NewHandler(orchestrator, registry).Register(e.Group("/api/v1"))

	return &Server{echo: e, addr: addr, logger: logger}
}

// EnableMetrics serves the collector at /metrics (JSON) and
// /metrics/prometheus (text exposition format).
func (s *Server) EnableMetrics(collector *observability.Collector) {
	s.echo.GET("/metrics", func(c echo.Context) error {
		return c.JSON(http.StatusOK, collector.Collect())
	})
	s.echo.GET("/metrics/prometheus", func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
		c.Response().WriteHeader(http.StatusOK)
		return collector.WritePrometheus(c.Response())
	})
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
