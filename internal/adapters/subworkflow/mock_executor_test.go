package subworkflow

import (
	"context"

	"github.com/eleven-am/subflow/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) StartWorkflow(ctx context.Context, name string, version int, input map[string]interface{}, correlationID, parentWorkflowID, parentTaskID string, event *string) (string, error) {
	args := m.Called(ctx, name, version, input, correlationID, parentWorkflowID, parentTaskID, event)
	return args.String(0), args.Error(1)
}

func (m *MockExecutor) GetWorkflow(ctx context.Context, workflowID string, includeTasks bool) (*domain.Workflow, error) {
	args := m.Called(ctx, workflowID, includeTasks)
	if wf := args.Get(0); wf != nil {
		return wf.(*domain.Workflow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExecutor) TerminateWorkflow(ctx context.Context, workflow *domain.Workflow, reason string, failedTaskID *string) error {
	args := m.Called(ctx, workflow, reason, failedTaskID)
	return args.Error(0)
}
