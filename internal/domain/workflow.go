package domain

import (
	"time"
)

type WorkflowStatus string

const (
	WorkflowStatusRunning    WorkflowStatus = "RUNNING"
	WorkflowStatusCompleted  WorkflowStatus = "COMPLETED"
	WorkflowStatusFailed     WorkflowStatus = "FAILED"
	WorkflowStatusTimedOut   WorkflowStatus = "TIMED_OUT"
	WorkflowStatusTerminated WorkflowStatus = "TERMINATED"
	WorkflowStatusPaused     WorkflowStatus = "PAUSED"
)

func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusTimedOut, WorkflowStatusTerminated:
		return true
	default:
		return false
	}
}

// IsSuccessful reports whether the status counts as success. PAUSED is
// successful but not terminal.
func (s WorkflowStatus) IsSuccessful() bool {
	return s == WorkflowStatusCompleted || s == WorkflowStatusPaused
}

func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusRunning, WorkflowStatusCompleted, WorkflowStatusFailed,
		WorkflowStatusTimedOut, WorkflowStatusTerminated, WorkflowStatusPaused:
		return true
	default:
		return false
	}
}

type Workflow struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	Version               int                    `json:"version"`
	Status                WorkflowStatus         `json:"status"`
	CorrelationID         string                 `json:"correlation_id,omitempty"`
	Input                 map[string]interface{} `json:"input,omitempty"`
	Output                map[string]interface{} `json:"output,omitempty"`
	ParentWorkflowID      string                 `json:"parent_workflow_id,omitempty"`
	ParentTaskID          string                 `json:"parent_task_id,omitempty"`
	Event                 string                 `json:"event,omitempty"`
	ReasonForIncompletion string                 `json:"reason_for_incompletion,omitempty"`
	FailedTaskID          string                 `json:"failed_task_id,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
	EndTime               *time.Time             `json:"end_time,omitempty"`
	Tasks                 []*Task                `json:"tasks,omitempty"`
}

func (w *Workflow) IsSubWorkflow() bool {
	return w.ParentWorkflowID != ""
}

type WorkflowFilter struct {
	Statuses []WorkflowStatus
	ParentID string
}

func (f WorkflowFilter) Matches(w *Workflow) bool {
	if f.ParentID != "" && w.ParentWorkflowID != f.ParentID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if w.Status == s {
			return true
		}
	}
	return false
}
