package subworkflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eleven-am/subflow/internal/domain"
	"github.com/eleven-am/subflow/internal/ports"
)

const Kind = "SUB_WORKFLOW"

// Driver runs SUB_WORKFLOW tasks: it starts a child workflow, polls it until
// it reaches a terminal status and terminates it when the parent is cancelled.
// All progress lives on the task record, so one Driver serves every task.
type Driver struct {
	policy  RetryPolicy
	clock   func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Driver)

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(d *Driver) {
		d.policy = policy
	}
}

func WithClock(clock func() time.Time) Option {
	return func(d *Driver) {
		if clock != nil {
			d.clock = clock
		}
	}
}

func NewDriver(logger *slog.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Driver{
		policy:  DefaultRetryPolicy(),
		clock:   time.Now,
		logger:  logger.With("component", "subworkflow-driver"),
		metrics: &Metrics{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Kind() string {
	return Kind
}

func (d *Driver) RetryPolicy() RetryPolicy {
	return d.policy
}

func (d *Driver) Metrics() MetricsSnapshot {
	return d.metrics.Snapshot()
}

// Start launches the child workflow. A failed launch is logged and leaves the
// task SCHEDULED so Execute can retry it once the retry window has passed.
// Only malformed task input is returned as an error.
func (d *Driver) Start(ctx context.Context, workflow *domain.Workflow, task *domain.Task, executor ports.WorkflowExecutor) error {
	task.EnsureData()

	name, version, err := subWorkflowTarget(task)
	if err != nil {
		return err
	}
	input := childInput(task)

	childID, err := executor.StartWorkflow(ctx, name, version, input, workflow.CorrelationID, workflow.ID, task.ID, nil)
	now := d.clock()
	if err != nil {
		task.StartAttempts++
		task.LastStartAttempt = &now
		d.metrics.startsFailed.Add(1)

		d.logger.Error("failed to start sub-workflow",
			"workflow_id", workflow.ID,
			"task_id", task.ID,
			"sub_workflow_name", name,
			"sub_workflow_version", version,
			"attempts", task.StartAttempts,
			"next_retry_at", d.policy.NextEligibleAt(task),
			"error", err)
		return nil
	}

	task.InputData[KeySubWorkflowID] = childID
	task.OutputData[KeySubWorkflowID] = childID
	task.Status = domain.TaskStatusInProgress
	task.StartTime = &now
	d.metrics.startsSucceeded.Add(1)

	d.logger.Info("sub-workflow started",
		"workflow_id", workflow.ID,
		"task_id", task.ID,
		"sub_workflow_id", childID,
		"sub_workflow_name", name,
		"sub_workflow_version", version)
	return nil
}

// Execute polls the child workflow and reports whether the task changed.
func (d *Driver) Execute(ctx context.Context, workflow *domain.Workflow, task *domain.Task, executor ports.WorkflowExecutor) (bool, error) {
	childID, hasChild := SubWorkflowID(task)

	if task.Status == domain.TaskStatusScheduled {
		now := d.clock()
		if !d.policy.Due(task, now) {
			return false, nil
		}

		d.metrics.startRetries.Add(1)
		d.logger.Warn("retrying sub-workflow start",
			"workflow_id", workflow.ID,
			"task_id", task.ID,
			"scheduled_time", task.ScheduledTime,
			"attempts", task.StartAttempts)

		if err := d.Start(ctx, workflow, task, executor); err != nil {
			return false, err
		}
		return true, nil
	}

	if task.Status.IsTerminal() {
		return false, nil
	}

	if !hasChild {
		return false, d.missingChild(workflow, task, "execute")
	}

	child, err := executor.GetWorkflow(ctx, childID, false)
	if err != nil {
		return false, fmt.Errorf("fetching sub-workflow %s: %w", childID, err)
	}

	if !child.Status.IsTerminal() {
		return false, nil
	}

	// The child's own subWorkflowId (forwarded from a grandchild) must not
	// replace the id this task already recorded.
	output := domain.CloneData(child.Output)
	output[KeySubWorkflowID] = childID
	task.OutputData = output

	now := d.clock()
	task.EndTime = &now
	if child.Status.IsSuccessful() {
		task.Status = domain.TaskStatusCompleted
		d.metrics.completed.Add(1)
	} else {
		task.Status = domain.TaskStatusFailed
		task.ReasonForIncompletion = child.ReasonForIncompletion
		d.metrics.failed.Add(1)
	}

	d.logger.Info("sub-workflow finished",
		"workflow_id", workflow.ID,
		"task_id", task.ID,
		"sub_workflow_id", childID,
		"sub_workflow_status", string(child.Status),
		"task_status", string(task.Status))
	return true, nil
}

// Cancel terminates the child workflow. It is a single best-effort call;
// failures are returned to the caller and not retried here.
func (d *Driver) Cancel(ctx context.Context, workflow *domain.Workflow, task *domain.Task, executor ports.WorkflowExecutor) error {
	childID, ok := SubWorkflowID(task)
	if !ok {
		return d.missingChild(workflow, task, "cancel")
	}

	child, err := executor.GetWorkflow(ctx, childID, false)
	if err != nil {
		return fmt.Errorf("fetching sub-workflow %s: %w", childID, err)
	}

	child.Status = domain.WorkflowStatusTerminated
	reason := fmt.Sprintf("Parent workflow has been terminated with status %s", workflow.Status)
	if err := executor.TerminateWorkflow(ctx, child, reason, nil); err != nil {
		return fmt.Errorf("terminating sub-workflow %s: %w", childID, err)
	}

	d.metrics.cancelled.Add(1)
	d.logger.Info("sub-workflow terminated",
		"workflow_id", workflow.ID,
		"task_id", task.ID,
		"sub_workflow_id", childID,
		"reason", reason)
	return nil
}

func (d *Driver) missingChild(workflow *domain.Workflow, task *domain.Task, op string) error {
	d.logger.Error("sub-workflow id missing on task",
		"workflow_id", workflow.ID,
		"task_id", task.ID,
		"task_status", string(task.Status),
		"operation", op)

	return domain.NewWorkflowError("sub-workflow id missing", domain.ErrSubWorkflowIDMissing).
		WithWorkflowID(workflow.ID).
		WithTaskID(task.ID).
		WithOperation(op)
}
