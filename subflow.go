// Package subflow runs workflows that compose other workflows.
//
// A parent workflow schedules a SUB_WORKFLOW task; the task driver starts the
// child workflow, polls it until it reaches a terminal status and maps that
// status back onto the task. Terminating the parent terminates the child, and
// the cascade continues through every generation of nesting.
//
// Basic usage:
//
//	sf, err := subflow.New(subflow.DefaultConfig(), logger)
//	if err != nil { ... }
//	defer sf.Stop(context.Background())
//
//	parentID, _ := sf.StartWorkflow(ctx, "checkout", 1, input, "order-7", "", "", nil)
//	task, _ := sf.ScheduleTask(ctx, parentID, &subflow.Task{
//	    Kind: subflow.SubWorkflowKind,
//	    InputData: map[string]interface{}{
//	        "subWorkflowName":    "billing",
//	        "subWorkflowVersion": 2,
//	    },
//	})
package subflow

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/eleven-am/subflow/internal/adapters/driver_registry"
	"github.com/eleven-am/subflow/internal/adapters/health"
	"github.com/eleven-am/subflow/internal/adapters/observability"
	"github.com/eleven-am/subflow/internal/adapters/storage"
	"github.com/eleven-am/subflow/internal/adapters/subworkflow"
	"github.com/eleven-am/subflow/internal/api"
	"github.com/eleven-am/subflow/internal/core"
	"github.com/eleven-am/subflow/internal/domain"
	"github.com/eleven-am/subflow/internal/ports"
	"github.com/eleven-am/subflow/internal/readiness"
)

// Config is the full runtime configuration: driver retry policy, sweeper,
// storage, HTTP API and logging.
type Config = domain.Config

// Workflow is a workflow instance as stored, optionally with its tasks.
type Workflow = domain.Workflow

// WorkflowStatus is the lifecycle status of a workflow.
type WorkflowStatus = domain.WorkflowStatus

// WorkflowFilter narrows ListWorkflows by status and parent.
type WorkflowFilter = domain.WorkflowFilter

// Task is a single step of a workflow executed by the driver for its kind.
type Task = domain.Task

// TaskStatus is the lifecycle status of a task.
type TaskStatus = domain.TaskStatus

// TaskDriver executes one kind of task. Register custom kinds with
// RegisterDriver.
type TaskDriver = ports.TaskDriver

// WorkflowExecutor is the facade drivers use to start, inspect and terminate
// workflows.
type WorkflowExecutor = ports.WorkflowExecutor

// DomainError is the structured error returned by every operation.
type DomainError = domain.DomainError

// HealthStatus is the result of a health check.
type HealthStatus = ports.HealthStatus

// SweepResult summarises one sweep pass.
type SweepResult = core.SweepResult

// DriverMetrics are the counters kept by the sub-workflow driver.
type DriverMetrics = subworkflow.MetricsSnapshot

const SubWorkflowKind = subworkflow.Kind

const (
	WorkflowStatusRunning    = domain.WorkflowStatusRunning
	WorkflowStatusCompleted  = domain.WorkflowStatusCompleted
	WorkflowStatusFailed     = domain.WorkflowStatusFailed
	WorkflowStatusTimedOut   = domain.WorkflowStatusTimedOut
	WorkflowStatusTerminated = domain.WorkflowStatusTerminated
	WorkflowStatusPaused     = domain.WorkflowStatusPaused
)

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return domain.DefaultConfig()
}

// Subflow wires the record store, driver registry, sub-workflow driver,
// executor, sweeper and HTTP API together. The executor operations are
// available directly on Subflow.
type Subflow struct {
	*core.Executor

	logger       *slog.Logger
	registry     *driver_registry.Adapter
	driver       *subworkflow.Driver
	store        *storage.AppStorage
	sweeper      *core.Sweeper
	server       *api.Server
	orchestrator *core.Orchestrator
	health       *health.Checker
}

// New validates cfg, opens the store and builds every component. Nothing
// runs in the background until Start is called.
func New(cfg *Config, logger *slog.Logger) (*Subflow, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	registry := driver_registry.NewAdapter(logger)
	driver := subworkflow.NewDriver(logger, subworkflow.WithRetryPolicy(subworkflow.RetryPolicyFromConfig(cfg.Driver)))
	if err := registry.RegisterDriver(driver); err != nil {
		_ = store.Close()
		return nil, err
	}

	executor := core.NewExecutor(store, registry, logger)
	state := readiness.NewManager()
	checker := health.NewHealthChecker(store, registry, state, logger)
	server := api.NewServer(cfg.API.Addr, executor, registry, checker, logger)

	collector := observability.NewCollector("subflow")
	collector.Register("subworkflow", func() map[string]int64 { return driver.Metrics().Values() })
	server.EnableMetrics(collector)

	var sweeper *core.Sweeper
	if !cfg.Sweeper.Disabled {
		sweeper = core.NewSweeper(executor, cfg.Sweeper, logger)
	}

	orchestrator := core.NewOrchestrator(logger, sweeper, store,
		core.OrchestratorConfig{ShutdownTimeout: cfg.API.ShutdownTimeout, Readiness: state}, server)

	return &Subflow{
		Executor:     executor,
		logger:       logger.With("component", "subflow"),
		registry:     registry,
		driver:       driver,
		store:        store,
		sweeper:      sweeper,
		server:       server,
		orchestrator: orchestrator,
		health:       checker,
	}, nil
}

// RegisterDriver adds a driver for another task kind.
func (s *Subflow) RegisterDriver(driver TaskDriver) error {
	return s.registry.RegisterDriver(driver)
}

// Drivers lists the registered task kinds.
func (s *Subflow) Drivers() []string {
	return s.registry.ListDrivers()
}

func (s *Subflow) DriverMetrics() DriverMetrics {
	return s.driver.Metrics()
}

// Sweep runs one sweep pass immediately, whether or not the background
// sweeper is enabled.
func (s *Subflow) Sweep(ctx context.Context) (SweepResult, error) {
	if s.sweeper != nil {
		return s.sweeper.Sweep(ctx)
	}
	return core.NewSweeper(s.Executor, domain.DefaultSweeperConfig(), s.logger).Sweep(ctx)
}

// Handler exposes the HTTP API for embedding in another server.
func (s *Subflow) Handler() http.Handler {
	return s.server.Handler()
}

// Health reports the store, driver and lifecycle state.
func (s *Subflow) Health(ctx context.Context) HealthStatus {
	return s.health.GetHealth(ctx)
}

// Start runs the HTTP API and the background sweeper.
func (s *Subflow) Start(ctx context.Context) error {
	return s.orchestrator.Startup(ctx)
}

// Errors reports failures of background components after Start.
func (s *Subflow) Errors() <-chan error {
	return s.orchestrator.Errors()
}

// Stop shuts everything down and closes the store. It is safe to call Stop
// without Start.
func (s *Subflow) Stop(ctx context.Context) error {
	return s.orchestrator.Shutdown(ctx)
}
