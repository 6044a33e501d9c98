// Package quote implements the fee-quote sub-saga nested inside the
// quotation stage.
package quote

import (
	"time"

	id "onboarding-gateway/pkg/domain"
)

// Status is the quote lifecycle status.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusPendingApproval  Status = "pending_approval"
	StatusPendingSignature Status = "pending_signature"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
)

// quoteTransitions is the allowed transition table. `rejected` is reachable
// from any pre-approved state; `approved` and `rejected` are final.
var quoteTransitions = map[Status][]Status{
	StatusDraft:            {StatusPendingApproval, StatusRejected},
	StatusPendingApproval:  {StatusPendingSignature, StatusRejected},
	StatusPendingSignature: {StatusApproved, StatusRejected},
}

// CanTransition reports whether the status transition is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range quoteTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Quote is a fee quote for one workflow. Financial fields are fixed-point
// smallest-unit values; floating point never touches them.
type Quote struct {
	ID          id.QuoteID
	WorkflowID  id.WorkflowID
	Amount      id.Money
	BaseFee     id.Money
	AdjustedFee id.Money
	Status      Status
	Rationale   string
	GeneratedBy string
	// Overlimit flags amounts above the configured threshold for extra
	// scrutiny. Informational only: it never blocks approval.
	Overlimit bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Mutable reports whether financial fields may still change. Once a quote is
// past pending_approval the record's terms are frozen.
func (q *Quote) Mutable() bool {
	return q.Status == StatusDraft || q.Status == StatusPendingApproval
}

// Final reports whether the record is immutable in its entirety.
func (q *Quote) Final() bool {
	return q.Status == StatusApproved || q.Status == StatusRejected
}

// Clone returns a copy so stores can hand out snapshots safely.
func (q *Quote) Clone() *Quote {
	if q == nil {
		return nil
	}
	cp := *q
	return &cp
}
