package ports

import (
	"context"

	"github.com/eleven-am/subflow/internal/domain"
)

// WorkflowExecutor is the orchestrator facade drivers call into. Drivers
// never touch storage directly.
type WorkflowExecutor interface {
	StartWorkflow(ctx context.Context, name string, version int, input map[string]interface{}, correlationID, parentWorkflowID, parentTaskID string, event *string) (string, error)
	GetWorkflow(ctx context.Context, workflowID string, includeTasks bool) (*domain.Workflow, error)
	TerminateWorkflow(ctx context.Context, workflow *domain.Workflow, reason string, failedTaskID *string) error
}

// OrchestratorPort extends the facade with the task dispatch surface used by
// the sweeper and the HTTP API.
type OrchestratorPort interface {
	WorkflowExecutor

	CompleteWorkflow(ctx context.Context, workflowID string, status domain.WorkflowStatus, output map[string]interface{}) error
	ListWorkflows(ctx context.Context, filter domain.WorkflowFilter) ([]*domain.Workflow, error)

	ScheduleTask(ctx context.Context, workflowID string, task *domain.Task) (*domain.Task, error)
	ExecuteTask(ctx context.Context, workflowID, taskID string) (bool, error)
	CancelTask(ctx context.Context, workflowID, taskID string) error
}
