package subworkflow

import (
	"time"

	"github.com/eleven-am/subflow/internal/domain"
)

// RetryPolicy decides when a task whose start failed may be started again.
type RetryPolicy struct {
	Window time.Duration
	Anchor domain.RetryAnchor
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Window: domain.DefaultRetryWindow,
		Anchor: domain.RetryAnchorScheduledTime,
	}
}

func RetryPolicyFromConfig(cfg domain.DriverConfig) RetryPolicy {
	policy := DefaultRetryPolicy()
	if cfg.RetryWindow > 0 {
		policy.Window = cfg.RetryWindow
	}
	if cfg.RetryAnchor != "" {
		policy.Anchor = cfg.RetryAnchor
	}
	return policy
}

// NextEligibleAt is the earliest time a start retry is allowed.
func (p RetryPolicy) NextEligibleAt(task *domain.Task) time.Time {
	anchor := task.ScheduledTime
	if p.Anchor == domain.RetryAnchorLastAttempt && task.LastStartAttempt != nil && task.LastStartAttempt.After(anchor) {
		anchor = *task.LastStartAttempt
	}
	return anchor.Add(p.Window)
}

func (p RetryPolicy) Due(task *domain.Task, now time.Time) bool {
	return !now.Before(p.NextEligibleAt(task))
}
