package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus(t *testing.T) {
	for _, s := range []TaskStatus{TaskStatusScheduled, TaskStatusInProgress} {
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []TaskStatus{TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled, TaskStatusTimedOut, TaskStatusSkipped} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.True(t, TaskStatusSkipped.IsSuccessful())
	assert.False(t, TaskStatusFailed.IsSuccessful())
}

func TestWorkflowStatus(t *testing.T) {
	assert.False(t, WorkflowStatusRunning.IsTerminal())
	assert.False(t, WorkflowStatusPaused.IsTerminal())
	assert.True(t, WorkflowStatusTerminated.IsTerminal())
	assert.True(t, WorkflowStatusTimedOut.IsTerminal())

	assert.True(t, WorkflowStatusPaused.IsSuccessful())
	assert.False(t, WorkflowStatusTerminated.IsSuccessful())

	assert.True(t, WorkflowStatusCompleted.Valid())
	assert.False(t, WorkflowStatus("DONE").Valid())
}

func TestWorkflowFilter(t *testing.T) {
	child := &Workflow{ID: "c", Status: WorkflowStatusRunning, ParentWorkflowID: "p"}
	root := &Workflow{ID: "p", Status: WorkflowStatusCompleted}

	assert.True(t, WorkflowFilter{}.Matches(child))
	assert.True(t, WorkflowFilter{ParentID: "p"}.Matches(child))
	assert.False(t, WorkflowFilter{ParentID: "p"}.Matches(root))
	assert.True(t, WorkflowFilter{Statuses: []WorkflowStatus{WorkflowStatusCompleted}}.Matches(root))
	assert.False(t, WorkflowFilter{Statuses: []WorkflowStatus{WorkflowStatusCompleted}}.Matches(child))

	assert.True(t, child.IsSubWorkflow())
	assert.False(t, root.IsSubWorkflow())
}

func TestTask_EnsureData(t *testing.T) {
	task := &Task{}
	task.EnsureData()
	assert.NotNil(t, task.InputData)
	assert.NotNil(t, task.OutputData)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "workflow:wf-1", WorkflowKey("wf-1"))
	assert.Equal(t, "task:wf-1:t-1", TaskKey("wf-1", "t-1"))
	assert.Equal(t, "task:wf-1:", WorkflowTasksPrefix("wf-1"))
}
