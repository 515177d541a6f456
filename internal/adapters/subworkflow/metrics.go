package subworkflow

import "sync/atomic"

type Metrics struct {
	startsSucceeded atomic.Int64
	startsFailed    atomic.Int64
	startRetries    atomic.Int64
	completed       atomic.Int64
	failed          atomic.Int64
	cancelled       atomic.Int64
}

type MetricsSnapshot struct {
	StartsSucceeded int64 `json:"starts_succeeded"`
	StartsFailed    int64 `json:"starts_failed"`
	StartRetries    int64 `json:"start_retries"`
	Completed       int64 `json:"completed"`
	Failed          int64 `json:"failed"`
	Cancelled       int64 `json:"cancelled"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		StartsSucceeded: m.startsSucceeded.Load(),
		StartsFailed:    m.startsFailed.Load(),
		StartRetries:    m.startRetries.Load(),
		Completed:       m.completed.Load(),
		Failed:          m.failed.Load(),
		Cancelled:       m.cancelled.Load(),
	}
}

func (s MetricsSnapshot) Values() map[string]int64 {
	return map[string]int64{
		"starts_succeeded": s.StartsSucceeded,
		"starts_failed":    s.StartsFailed,
		"start_retries":    s.StartRetries,
		"completed":        s.Completed,
		"failed":           s.Failed,
		"cancelled":        s.Cancelled,
	}
}
