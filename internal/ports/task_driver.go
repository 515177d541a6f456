package ports

import (
	"context"

	"github.com/eleven-am/subflow/internal/domain"
)

// TaskDriver owns the lifecycle of one task kind. Start runs once when the
// task is first dispatched, Execute is polled while the task is non-terminal
// and Cancel runs when the owning workflow is terminated.
//
// Execute returns true when the task changed state and the workflow should be
// re-evaluated, false when it should simply be polled again later.
type TaskDriver interface {
	Kind() string
	Start(ctx context.Context, workflow *domain.Workflow, task *domain.Task, executor WorkflowExecutor) error
	Execute(ctx context.Context, workflow *domain.Workflow, task *domain.Task, executor WorkflowExecutor) (bool, error)
	Cancel(ctx context.Context, workflow *domain.Workflow, task *domain.Task, executor WorkflowExecutor) error
}

type DriverRegistryPort interface {
	RegisterDriver(driver TaskDriver) error
	GetDriver(kind string) (TaskDriver, error)
	HasDriver(kind string) bool
	ListDrivers() []string
	UnregisterDriver(kind string) error
	GetDriverCount() int
}

type DriverRegistrationError struct {
	Kind   string
	Reason string
}

func (e DriverRegistrationError) Error() string {
	return "driver registration failed for '" + e.Kind + "': " + e.Reason
}
