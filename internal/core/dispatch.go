package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/eleven-am/subflow/internal/domain"
)

// ScheduleTask records a new task as SCHEDULED and runs its driver's Start.
// A Start that rejects the task input fails the task; any other outcome is
// persisted as the driver left it.
func (e *Executor) ScheduleTask(ctx context.Context, workflowID string, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.NewValidationError("task is required", domain.ErrInvalidInput)
	}
	if task.Kind == "" {
		return nil, domain.NewValidationError("task kind is required", domain.ErrInvalidInput).
			WithWorkflowID(workflowID)
	}

	workflow, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if workflow.Status.IsTerminal() {
		return nil, domain.NewWorkflowError("cannot schedule task on workflow in terminal state", nil).
			WithWorkflowID(workflowID).
			WithDetail("status", string(workflow.Status))
	}

	driver, err := e.registry.GetDriver(task.Kind)
	if err != nil {
		return nil, err
	}

	if task.ID == "" {
		task.ID = e.newID()
	}
	task.WorkflowID = workflowID
	task.Status = domain.TaskStatusScheduled
	task.ScheduledTime = e.clock()
	task.EnsureData()

	unlock := e.locks.lock(workflowID, task.ID)
	defer unlock()

	if err := e.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}

	e.logger.Debug("task scheduled",
		"workflow_id", workflowID,
		"task_id", task.ID,
		"kind", task.Kind)

	// A terminate that landed after the first check has either already saved
	// the terminal status (seen here) or will list this task and cancel it
	// once the lock is released.
	current, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		now := e.clock()
		task.Status = domain.TaskStatusCanceled
		task.EndTime = &now
		task.ReasonForIncompletion = fmt.Sprintf("workflow %s before task could start", current.Status)
		if err := e.store.SaveTask(ctx, task); err != nil {
			return nil, err
		}
		return task, domain.NewWorkflowError("cannot schedule task on workflow in terminal state", nil).
			WithWorkflowID(workflowID).
			WithDetail("status", string(current.Status))
	}
	workflow = current

	if err := driver.Start(ctx, workflow, task, e); err != nil {
		return task, e.failTask(ctx, task, err)
	}

	if err := e.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ExecuteTask polls a task through its driver and persists it when the driver
// reports a change.
func (e *Executor) ExecuteTask(ctx context.Context, workflowID, taskID string) (bool, error) {
	unlock := e.locks.lock(workflowID, taskID)
	defer unlock()

	task, err := e.store.GetTask(ctx, workflowID, taskID)
	if err != nil {
		return false, err
	}
	if task.Status.IsTerminal() {
		return false, nil
	}

	workflow, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return false, err
	}

	driver, err := e.registry.GetDriver(task.Kind)
	if err != nil {
		return false, err
	}

	changed, err := driver.Execute(ctx, workflow, task, e)
	if err != nil {
		if domain.IsValidation(err) {
			return true, e.failTask(ctx, task, err)
		}
		return false, err
	}

	if changed {
		if err := e.store.SaveTask(ctx, task); err != nil {
			return false, err
		}
		e.logger.Debug("task updated",
			"workflow_id", workflowID,
			"task_id", taskID,
			"status", string(task.Status))
	}
	return changed, nil
}

func (e *Executor) CancelTask(ctx context.Context, workflowID, taskID string) error {
	workflow, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}
	return e.cancelTask(ctx, workflow, taskID, "task cancelled")
}

// cancelTask runs the driver's Cancel and marks the task CANCELED. A
// SCHEDULED sub-workflow task without a child id has nothing to cancel.
func (e *Executor) cancelTask(ctx context.Context, workflow *domain.Workflow, taskID, reason string) error {
	unlock := e.locks.lock(workflow.ID, taskID)
	defer unlock()

	task, err := e.store.GetTask(ctx, workflow.ID, taskID)
	if err != nil {
		return err
	}
	if task.Status.IsTerminal() {
		return nil
	}

	driver, err := e.registry.GetDriver(task.Kind)
	if err != nil {
		return err
	}

	cancelErr := driver.Cancel(ctx, workflow, task, e)
	if cancelErr != nil && task.Status == domain.TaskStatusScheduled && errors.Is(cancelErr, domain.ErrSubWorkflowIDMissing) {
		e.logger.Debug("task never started, nothing to cancel",
			"workflow_id", workflow.ID,
			"task_id", task.ID)
		cancelErr = nil
	}

	now := e.clock()
	task.Status = domain.TaskStatusCanceled
	task.EndTime = &now
	task.ReasonForIncompletion = reason
	if err := e.store.SaveTask(ctx, task); err != nil {
		return errors.Join(cancelErr, err)
	}

	if cancelErr != nil {
		e.logger.Error("task cancellation failed",
			"workflow_id", workflow.ID,
			"task_id", task.ID,
			"kind", task.Kind,
			"error", cancelErr)
	}
	return cancelErr
}

func (e *Executor) failTask(ctx context.Context, task *domain.Task, cause error) error {
	now := e.clock()
	task.Status = domain.TaskStatusFailed
	task.EndTime = &now
	task.ReasonForIncompletion = cause.Error()

	e.logger.Error("task failed",
		"workflow_id", task.WorkflowID,
		"task_id", task.ID,
		"kind", task.Kind,
		"error", cause)

	if err := e.store.SaveTask(ctx, task); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
