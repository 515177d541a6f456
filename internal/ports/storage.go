package ports

import (
	"context"

	"github.com/eleven-am/subflow/internal/domain"
)

// RecordStore persists workflow and task records. Lookups of missing records
// return an error for which domain.IsNotFound is true.
type RecordStore interface {
	SaveWorkflow(ctx context.Context, workflow *domain.Workflow) error
	GetWorkflow(ctx context.Context, workflowID string) (*domain.Workflow, error)
	ListWorkflows(ctx context.Context, filter domain.WorkflowFilter) ([]*domain.Workflow, error)
	DeleteWorkflow(ctx context.Context, workflowID string) error

	SaveTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, workflowID, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, workflowID string) ([]*domain.Task, error)

	Close() error
}
