package domain

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusScheduled  TaskStatus = "SCHEDULED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusCanceled   TaskStatus = "CANCELED"
	TaskStatusTimedOut   TaskStatus = "TIMED_OUT"
	TaskStatusSkipped    TaskStatus = "SKIPPED"
)

func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusScheduled, TaskStatusInProgress:
		return false
	default:
		return true
	}
}

func (s TaskStatus) IsSuccessful() bool {
	return s == TaskStatusCompleted || s == TaskStatusSkipped
}

// Task is one step instance of a workflow. Drivers keep all of their
// continuation state in Status, InputData, OutputData and the timestamps.
type Task struct {
	ID                    string                 `json:"id"`
	WorkflowID            string                 `json:"workflow_id"`
	Kind                  string                 `json:"kind"`
	Status                TaskStatus             `json:"status"`
	ScheduledTime         time.Time              `json:"scheduled_time"`
	StartTime             *time.Time             `json:"start_time,omitempty"`
	EndTime               *time.Time             `json:"end_time,omitempty"`
	InputData             map[string]interface{} `json:"input_data"`
	OutputData            map[string]interface{} `json:"output_data"`
	StartAttempts         int                    `json:"start_attempts,omitempty"`
	LastStartAttempt      *time.Time             `json:"last_start_attempt,omitempty"`
	ReasonForIncompletion string                 `json:"reason_for_incompletion,omitempty"`
}

// EnsureData makes InputData and OutputData safe to write to.
func (t *Task) EnsureData() {
	if t.InputData == nil {
		t.InputData = make(map[string]interface{})
	}
	if t.OutputData == nil {
		t.OutputData = make(map[string]interface{})
	}
}
