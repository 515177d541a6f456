package core

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/eleven-am/subflow/internal/domain"
	"github.com/eleven-am/subflow/internal/ports"
	"golang.org/x/sync/errgroup"
)

// Sweeper periodically polls every non-terminal task of every running
// workflow. It is what eventually retries sub-workflow starts that failed and
// notices children that finished.
type Sweeper struct {
	orchestrator ports.OrchestratorPort
	interval     time.Duration
	concurrency  int
	logger       *slog.Logger
}

type SweepResult struct {
	Workflows int
	Tasks     int
	Changed   int
	Errors    int
}

func NewSweeper(orchestrator ports.OrchestratorPort, cfg domain.SweeperConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := domain.DefaultSweeperConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}

	return &Sweeper{
		orchestrator: orchestrator,
		interval:     cfg.Interval,
		concurrency:  cfg.Concurrency,
		logger:       logger.With("component", "sweeper"),
	}
}

// Sweep runs one pass. Task errors are logged and counted; only failing to
// list the running workflows aborts the pass.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	workflows, err := s.orchestrator.ListWorkflows(ctx, domain.WorkflowFilter{
		Statuses: []domain.WorkflowStatus{domain.WorkflowStatusRunning},
	})
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Workflows: len(workflows)}
	var changed, failed, tasks atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, wf := range workflows {
		withTasks, err := s.orchestrator.GetWorkflow(ctx, wf.ID, true)
		if err != nil {
			s.logger.Warn("failed to load workflow tasks", "workflow_id", wf.ID, "error", err)
			failed.Add(1)
			continue
		}

		for _, task := range withTasks.Tasks {
			if task.Status.IsTerminal() {
				continue
			}
			tasks.Add(1)

			workflowID, taskID := wf.ID, task.ID
			g.Go(func() error {
				updated, err := s.orchestrator.ExecuteTask(gctx, workflowID, taskID)
				if err != nil {
					failed.Add(1)
					s.logger.Error("task execution failed",
						"workflow_id", workflowID,
						"task_id", taskID,
						"error", err)
					return nil
				}
				if updated {
					changed.Add(1)
				}
				return nil
			})
		}
	}

	_ = g.Wait()

	result.Tasks = int(tasks.Load())
	result.Changed = int(changed.Load())
	result.Errors = int(failed.Load())

	s.logger.Debug("sweep completed",
		"workflows", result.Workflows,
		"tasks", result.Tasks,
		"changed", result.Changed,
		"errors", result.Errors)
	return result, ctx.Err()
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.interval, "concurrency", s.concurrency)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}
