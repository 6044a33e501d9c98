// Package timeout schedules and fires the wait bounds on human steps. Timers
// are durable: a restart picks pending timers back up from the store.
package timeout

import (
	"time"

	id "onboarding-gateway/pkg/domain"
)

// Waiting names the human step whose bound the timer enforces.
type Waiting string

const (
	WaitingSignature  Waiting = "signature"
	WaitingCompliance Waiting = "compliance"
	WaitingDecision   Waiting = "decision"
)

// Timer is one scheduled wait bound. Fired timers stay in the store as an
// audit trail of which bounds expired.
type Timer struct {
	ID         id.TimerID
	WorkflowID id.WorkflowID
	Waiting    Waiting
	FireAt     time.Time
	CreatedAt  time.Time
	FiredAt    *time.Time
	CanceledAt *time.Time
}

// Pending reports whether the timer can still fire.
func (t *Timer) Pending() bool { return t.FiredAt == nil && t.CanceledAt == nil }

// Clone returns a copy for store snapshot isolation.
func (t *Timer) Clone() *Timer {
	if t == nil {
		return nil
	}
	cp := *t
	if t.FiredAt != nil {
		v := *t.FiredAt
		cp.FiredAt = &v
	}
	if t.CanceledAt != nil {
		v := *t.CanceledAt
		cp.CanceledAt = &v
	}
	return &cp
}
