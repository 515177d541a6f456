package api

import (
	"github.com/eleven-am/subflow/internal/domain"
)

type StartWorkflowRequest struct {
	Name             string                 `json:"name"`
	Version          int                    `json:"version"`
	Input            map[string]interface{} `json:"input"`
	CorrelationID    string                 `json:"correlation_id"`
	ParentWorkflowID string                 `json:"parent_workflow_id"`
	ParentTaskID     string                 `json:"parent_task_id"`
	Event            *string                `json:"event"`
}

type StartWorkflowResponse struct {
	ID string `json:"id"`
}

type TerminateWorkflowRequest struct {
	Reason       string  `json:"reason"`
	FailedTaskID *string `json:"failed_task_id"`
}

type CompleteWorkflowRequest struct {
	Status domain.WorkflowStatus  `json:"status"`
	Output map[string]interface{} `json:"output"`
}

type ScheduleTaskRequest struct {
	ID    string                 `json:"id"`
	Kind  string                 `json:"kind"`
	Input map[string]interface{} `json:"input"`
}

type ExecuteTaskResponse struct {
	Changed bool         `json:"changed"`
	Task    *domain.Task `json:"task"`
}

type DriversResponse struct {
	Kinds []string `json:"kinds"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
