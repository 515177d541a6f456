package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eleven-am/subflow/internal/domain"
	"github.com/eleven-am/subflow/internal/ports"
	"github.com/google/uuid"
)

// Executor implements the orchestrator facade over a RecordStore and
// dispatches tasks to the driver registered for their kind. Drivers receive
// the Executor itself, so a child workflow's tasks run through the same
// machinery as their parent's.
type Executor struct {
	store    ports.RecordStore
	registry ports.DriverRegistryPort
	logger   *slog.Logger
	clock    func() time.Time
	newID    func() string
	locks    *taskLocks
}

type ExecutorOption func(*Executor)

func WithExecutorClock(clock func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithIDGenerator(newID func() string) ExecutorOption {
	return func(e *Executor) {
		if newID != nil {
			e.newID = newID
		}
	}
}

func NewExecutor(store ports.RecordStore, registry ports.DriverRegistryPort, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Executor{
		store:    store,
		registry: registry,
		logger:   logger.With("component", "executor"),
		clock:    time.Now,
		newID:    uuid.NewString,
		locks:    newTaskLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) StartWorkflow(ctx context.Context, name string, version int, input map[string]interface{}, correlationID, parentWorkflowID, parentTaskID string, event *string) (string, error) {
	if name == "" {
		return "", domain.NewValidationError("workflow name is required", domain.ErrInvalidInput)
	}
	if version <= 0 {
		return "", domain.NewValidationError("workflow version is invalid", domain.ErrInvalidInput).
			WithDetail("name", name).
			WithDetail("version", version)
	}

	workflow := &domain.Workflow{
		ID:               e.newID(),
		Name:             name,
		Version:          version,
		Status:           domain.WorkflowStatusRunning,
		CorrelationID:    correlationID,
		Input:            domain.CloneData(input),
		ParentWorkflowID: parentWorkflowID,
		ParentTaskID:     parentTaskID,
		CreatedAt:        e.clock(),
	}
	if event != nil {
		workflow.Event = *event
	}

	if err := e.store.SaveWorkflow(ctx, workflow); err != nil {
		return "", err
	}

	e.logger.Info("workflow started",
		"workflow_id", workflow.ID,
		"name", name,
		"version", version,
		"correlation_id", correlationID,
		"parent_workflow_id", parentWorkflowID,
		"parent_task_id", parentTaskID)
	return workflow.ID, nil
}

func (e *Executor) GetWorkflow(ctx context.Context, workflowID string, includeTasks bool) (*domain.Workflow, error) {
	workflow, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if includeTasks {
		tasks, err := e.store.ListTasks(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		workflow.Tasks = tasks
	}
	return workflow, nil
}

func (e *Executor) ListWorkflows(ctx context.Context, filter domain.WorkflowFilter) ([]*domain.Workflow, error) {
	return e.store.ListWorkflows(ctx, filter)
}

// TerminateWorkflow marks the stored workflow TERMINATED and cancels its
// non-terminal tasks through their drivers. The status of the passed record is
// not trusted; only the stored status decides whether there is anything to do.
// Every task is attempted before the joined cancellation errors are returned.
func (e *Executor) TerminateWorkflow(ctx context.Context, workflow *domain.Workflow, reason string, failedTaskID *string) error {
	if workflow == nil || workflow.ID == "" {
		return domain.NewValidationError("workflow id is required", domain.ErrInvalidInput)
	}

	stored, err := e.store.GetWorkflow(ctx, workflow.ID)
	if err != nil {
		return err
	}
	if stored.Status.IsTerminal() {
		e.logger.Debug("workflow already terminal, skipping terminate",
			"workflow_id", stored.ID,
			"status", string(stored.Status))
		return nil
	}

	now := e.clock()
	stored.Status = domain.WorkflowStatusTerminated
	stored.ReasonForIncompletion = reason
	stored.EndTime = &now
	if failedTaskID != nil {
		stored.FailedTaskID = *failedTaskID
	}
	if err := e.store.SaveWorkflow(ctx, stored); err != nil {
		return err
	}

	workflow.Status = stored.Status
	workflow.ReasonForIncompletion = stored.ReasonForIncompletion
	workflow.FailedTaskID = stored.FailedTaskID
	workflow.EndTime = stored.EndTime

	e.logger.Info("workflow terminated",
		"workflow_id", stored.ID,
		"parent_workflow_id", stored.ParentWorkflowID,
		"reason", reason)

	tasks, err := e.store.ListTasks(ctx, stored.ID)
	if err != nil {
		return err
	}

	var errs []error
	for _, task := range tasks {
		if task.Status.IsTerminal() {
			continue
		}
		if err := e.cancelTask(ctx, stored, task.ID, reason); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CompleteWorkflow records the final status and output of a workflow.
func (e *Executor) CompleteWorkflow(ctx context.Context, workflowID string, status domain.WorkflowStatus, output map[string]interface{}) error {
	if !status.IsTerminal() {
		return domain.NewValidationError("completion status must be terminal", domain.ErrInvalidInput).
			WithWorkflowID(workflowID).
			WithDetail("status", string(status))
	}

	workflow, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}
	if workflow.Status.IsTerminal() {
		return domain.NewWorkflowError("workflow already in terminal state", nil).
			WithWorkflowID(workflowID).
			WithDetail("status", string(workflow.Status))
	}

	now := e.clock()
	workflow.Status = status
	workflow.Output = domain.CloneData(output)
	workflow.EndTime = &now
	if err := e.store.SaveWorkflow(ctx, workflow); err != nil {
		return err
	}

	e.logger.Info("workflow completed",
		"workflow_id", workflowID,
		"status", string(status),
		"parent_workflow_id", workflow.ParentWorkflowID)
	return nil
}
