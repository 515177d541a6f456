package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/subflow/internal/domain"
	"github.com/eleven-am/subflow/internal/readiness"
)

// Server is a long-running surface started and stopped with the process.
type Server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Orchestrator owns the process lifecycle: it runs the sweeper and any
// servers in the background and shuts them down before closing the store.
type Orchestrator struct {
	logger  *slog.Logger
	sweeper *Sweeper
	servers []Server
	store   io.Closer
	state   *readiness.Manager

	mu              sync.Mutex
	isStarted       bool
	isShutdown      bool
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	shutdownTimeout time.Duration
	errCh           chan error
}

type OrchestratorConfig struct {
	ShutdownTimeout time.Duration
	Readiness       *readiness.Manager
}

type ComponentResult struct {
	Component string
	Error     error
	Duration  time.Duration
}

func NewOrchestrator(logger *slog.Logger, sweeper *Sweeper, store io.Closer, config OrchestratorConfig, servers ...Server) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 30 * time.Second
	}
	if config.Readiness == nil {
		config.Readiness = readiness.NewManager()
	}

	return &Orchestrator{
		logger:          logger.With("component", "orchestrator"),
		sweeper:         sweeper,
		servers:         servers,
		store:           store,
		state:           config.Readiness,
		shutdownTimeout: config.ShutdownTimeout,
		errCh:           make(chan error, len(servers)+1),
	}
}

// Startup launches the background components and returns immediately.
// Failures of running components are reported on Errors.
func (s *Orchestrator) Startup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted || s.isShutdown {
		return domain.NewWorkflowError("orchestrator already started", nil).WithOperation("startup")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.sweeper != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.sweeper.Run(runCtx); err != nil {
				s.errCh <- err
			}
		}()
	}

	for _, server := range s.servers {
		server := server
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := server.Start(); err != nil {
				s.logger.Error("server stopped with error", "error", err)
				s.errCh <- err
			}
		}()
	}

	s.isStarted = true
	s.state.SetState(readiness.StateReady)
	s.logger.Info("startup completed", "servers", len(s.servers), "sweeper", s.sweeper != nil)
	return nil
}

func (s *Orchestrator) Readiness() *readiness.Manager {
	return s.state
}

func (s *Orchestrator) Errors() <-chan error {
	return s.errCh
}

func (s *Orchestrator) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.isShutdown {
		s.mu.Unlock()
		return nil
	}
	s.isShutdown = true
	cancel := s.cancel
	s.mu.Unlock()

	s.state.SetState(readiness.StateDraining)
	s.logger.Info("initiating graceful shutdown", "timeout", s.shutdownTimeout)
	defer s.state.SetState(readiness.StateStopped)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer shutdownCancel()

	var results []ComponentResult
	for _, server := range s.servers {
		start := time.Now()
		err := server.Shutdown(shutdownCtx)
		results = append(results, ComponentResult{Component: "server", Error: err, Duration: time.Since(start)})
	}

	if cancel != nil {
		cancel()
	}

	workersChan := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(workersChan)
	}()

	select {
	case <-workersChan:
		s.logger.Debug("all workers stopped gracefully")
	case <-shutdownCtx.Done():
		s.logger.Warn("timeout waiting for workers to stop")
	}

	if s.store != nil {
		start := time.Now()
		err := s.store.Close()
		results = append(results, ComponentResult{Component: "store", Error: err, Duration: time.Since(start)})
	}

	var errs []error
	for _, result := range results {
		if result.Error != nil {
			s.logger.Error("component shutdown failed",
				"component", result.Component,
				"error", result.Error,
				"duration", result.Duration)
			errs = append(errs, result.Error)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.logger.Info("graceful shutdown completed successfully")
	return nil
}
