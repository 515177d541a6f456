package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/eleven-am/subflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *AppStorage {
	t.Helper()
	store, err := Open(domain.StorageConfig{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppStorage_WorkflowRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	workflow := &domain.Workflow{
		ID:               "wf-1",
		Name:             "billing",
		Version:          2,
		Status:           domain.WorkflowStatusRunning,
		CorrelationID:    "corr-1",
		Input:            map[string]interface{}{"amount": 100},
		ParentWorkflowID: "parent",
		ParentTaskID:     "t1",
		CreatedAt:        created,
		Tasks:            []*domain.Task{{ID: "ignored"}},
	}
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	loaded, err := store.GetWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "billing", loaded.Name)
	assert.Equal(t, 2, loaded.Version)
	assert.Equal(t, domain.WorkflowStatusRunning, loaded.Status)
	assert.Equal(t, "parent", loaded.ParentWorkflowID)
	assert.Equal(t, "t1", loaded.ParentTaskID)
	assert.Equal(t, float64(100), loaded.Input["amount"])
	assert.True(t, created.Equal(loaded.CreatedAt))
	assert.Nil(t, loaded.Tasks)
	assert.Len(t, workflow.Tasks, 1)
}

func TestAppStorage_GetWorkflow_NotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetWorkflow(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestAppStorage_SaveWorkflow_RequiresID(t *testing.T) {
	store := newTestStorage(t)

	err := store.SaveWorkflow(context.Background(), &domain.Workflow{})
	assert.True(t, domain.IsValidation(err))
}

func TestAppStorage_ListWorkflows_Filter(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	statuses := []domain.WorkflowStatus{
		domain.WorkflowStatusRunning,
		domain.WorkflowStatusCompleted,
		domain.WorkflowStatusRunning,
	}
	for i, status := range statuses {
		require.NoError(t, store.SaveWorkflow(ctx, &domain.Workflow{
			ID:               fmt.Sprintf("wf-%d", i),
			Status:           status,
			ParentWorkflowID: map[bool]string{true: "parent"}[i == 2],
			CreatedAt:        base.Add(time.Duration(len(statuses)-i) * time.Minute),
		}))
	}

	all, err := store.ListWorkflows(ctx, domain.WorkflowFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "wf-2", all[0].ID)
	assert.Equal(t, "wf-0", all[2].ID)

	running, err := store.ListWorkflows(ctx, domain.WorkflowFilter{
		Statuses: []domain.WorkflowStatus{domain.WorkflowStatusRunning},
	})
	require.NoError(t, err)
	assert.Len(t, running, 2)

	children, err := store.ListWorkflows(ctx, domain.WorkflowFilter{ParentID: "parent"})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "wf-2", children[0].ID)
}

func TestAppStorage_TaskRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	scheduled := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	task := &domain.Task{
		ID:            "t1",
		WorkflowID:    "wf-1",
		Kind:          "SUB_WORKFLOW",
		Status:        domain.TaskStatusScheduled,
		ScheduledTime: scheduled,
		InputData:     map[string]interface{}{"subWorkflowName": "billing", "subWorkflowVersion": 2},
		OutputData:    map[string]interface{}{},
	}
	require.NoError(t, store.SaveTask(ctx, task))

	loaded, err := store.GetTask(ctx, "wf-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusScheduled, loaded.Status)
	assert.Equal(t, "billing", loaded.InputData["subWorkflowName"])
	assert.Equal(t, float64(2), loaded.InputData["subWorkflowVersion"])
	assert.True(t, scheduled.Equal(loaded.ScheduledTime))

	_, err = store.GetTask(ctx, "wf-1", "t2")
	assert.True(t, domain.IsNotFound(err))
}

func TestAppStorage_ListTasks_ScopedToWorkflow(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveTask(ctx, &domain.Task{ID: "b", WorkflowID: "wf-1", ScheduledTime: base.Add(time.Minute)}))
	require.NoError(t, store.SaveTask(ctx, &domain.Task{ID: "a", WorkflowID: "wf-1", ScheduledTime: base.Add(2 * time.Minute)}))
	require.NoError(t, store.SaveTask(ctx, &domain.Task{ID: "c", WorkflowID: "wf-10", ScheduledTime: base}))

	tasks, err := store.ListTasks(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "b", tasks[0].ID)
	assert.Equal(t, "a", tasks[1].ID)
}

func TestAppStorage_DeleteWorkflow_RemovesTasks(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveWorkflow(ctx, &domain.Workflow{ID: "wf-1", Status: domain.WorkflowStatusCompleted}))
	require.NoError(t, store.SaveTask(ctx, &domain.Task{ID: "t1", WorkflowID: "wf-1"}))
	require.NoError(t, store.SaveTask(ctx, &domain.Task{ID: "t1", WorkflowID: "wf-2"}))

	require.NoError(t, store.DeleteWorkflow(ctx, "wf-1"))

	_, err := store.GetWorkflow(ctx, "wf-1")
	assert.True(t, domain.IsNotFound(err))
	tasks, err := store.ListTasks(ctx, "wf-1")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = store.GetTask(ctx, "wf-2", "t1")
	assert.NoError(t, err)

	assert.True(t, domain.IsNotFound(store.DeleteWorkflow(ctx, "wf-1")))
}

func TestAppStorage_Closed(t *testing.T) {
	store, err := Open(domain.StorageConfig{InMemory: true}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Ping(context.Background()), domain.ErrClosed)

	_, err = store.GetWorkflow(context.Background(), "wf-1")
	assert.ErrorIs(t, err, domain.ErrClosed)
}

func TestAppStorage_CancelledContext(t *testing.T) {
	store := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.SaveTask(ctx, &domain.Task{ID: "t1", WorkflowID: "wf-1"})
	assert.ErrorIs(t, err, context.Canceled)
}
