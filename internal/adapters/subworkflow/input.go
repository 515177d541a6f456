package subworkflow

import (
	"math"

	"github.com/eleven-am/subflow/internal/domain"
)

const (
	InputSubWorkflowName    = "subWorkflowName"
	InputSubWorkflowVersion = "subWorkflowVersion"
	InputWorkflowInput      = "workflowInput"
	KeySubWorkflowID        = "subWorkflowId"
)

// SubWorkflowID resolves the child workflow id of a task. The input location
// wins; the output location is kept for records written before the id was
// stored in both places.
func SubWorkflowID(task *domain.Task) (string, bool) {
	if id, ok := task.InputData[KeySubWorkflowID].(string); ok && id != "" {
		return id, true
	}
	if id, ok := task.OutputData[KeySubWorkflowID].(string); ok && id != "" {
		return id, true
	}
	return "", false
}

func subWorkflowTarget(task *domain.Task) (string, int, error) {
	rawName, ok := task.InputData[InputSubWorkflowName]
	if !ok || rawName == nil {
		return "", 0, domain.NewValidationError("subWorkflowName is required", domain.ErrInvalidInput).
			WithTaskID(task.ID).
			WithDetail("key", InputSubWorkflowName)
	}
	name, ok := rawName.(string)
	if !ok || name == "" {
		return "", 0, domain.NewValidationError("subWorkflowName has invalid type", domain.ErrInvalidInput).
			WithTaskID(task.ID).
			WithDetail("key", InputSubWorkflowName).
			WithDetail("value", rawName)
	}

	rawVersion, ok := task.InputData[InputSubWorkflowVersion]
	if !ok || rawVersion == nil {
		return "", 0, domain.NewValidationError("subWorkflowVersion is required", domain.ErrInvalidInput).
			WithTaskID(task.ID).
			WithDetail("key", InputSubWorkflowVersion)
	}
	version, ok := toInt(rawVersion)
	if !ok {
		return "", 0, domain.NewValidationError("subWorkflowVersion has invalid type", domain.ErrInvalidInput).
			WithTaskID(task.ID).
			WithDetail("key", InputSubWorkflowVersion).
			WithDetail("value", rawVersion)
	}

	return name, version, nil
}

// childInput is workflowInput when it is a non-empty map, otherwise the whole
// task input.
func childInput(task *domain.Task) map[string]interface{} {
	if wfInput, ok := task.InputData[InputWorkflowInput].(map[string]interface{}); ok && len(wfInput) > 0 {
		return domain.CloneData(wfInput)
	}
	return domain.CloneData(task.InputData)
}

type int64er interface {
	Int64() (int64, error)
}

// toInt accepts the integer shapes a version takes in memory and after a JSON
// round trip. Fractional numbers are rejected.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case int64er:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
