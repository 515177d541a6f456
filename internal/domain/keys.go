package domain

import "fmt"

const (
	WorkflowPrefix = "workflow:"
	TaskPrefix     = "task:"
)

// WorkflowKey builds the canonical key for a workflow record
func WorkflowKey(id string) string {
	return fmt.Sprintf("%s%s", WorkflowPrefix, id)
}

// TaskKey builds the canonical key for a task record, scoped by workflow
func TaskKey(workflowID, taskID string) string {
	return fmt.Sprintf("%s%s:%s", TaskPrefix, workflowID, taskID)
}

// WorkflowTasksPrefix is the prefix shared by every task of a workflow
func WorkflowTasksPrefix(workflowID string) string {
	return fmt.Sprintf("%s%s:", TaskPrefix, workflowID)
}
