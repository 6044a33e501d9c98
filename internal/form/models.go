// Package form manages magic-link form instances: issuance, viewing,
// submission and revocation. The plaintext token is returned exactly once at
// issuance; only its bcrypt hash is stored.
package form

import (
	"encoding/json"
	"time"

	id "onboarding-gateway/pkg/domain"
)

// Type identifies what the applicant is being asked to complete.
type Type string

const (
	TypeComplianceQuestionnaire Type = "compliance_questionnaire"
	TypeMandate                 Type = "mandate"
	TypeContractSignature       Type = "contract_signature"
	TypeDocumentUpload          Type = "document_upload"
)

// ParseType validates a wire-format form type.
func ParseType(raw string) (Type, bool) {
	switch t := Type(raw); t {
	case TypeComplianceQuestionnaire, TypeMandate, TypeContractSignature, TypeDocumentUpload:
		return t, true
	default:
		return "", false
	}
}

// Status is the form instance lifecycle status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusSubmitted Status = "submitted"
	StatusExpired   Status = "expired"
	StatusRevoked   Status = "revoked"
)

// Terminal reports whether the instance can change no further.
func (s Status) Terminal() bool {
	return s == StatusSubmitted || s == StatusExpired || s == StatusRevoked
}

// Instance is one issued form. TokenHash is a bcrypt hash; the plaintext
// never persists anywhere.
type Instance struct {
	ID          id.FormInstanceID
	WorkflowID  id.WorkflowID
	Type        Type
	Status      Status
	TokenHash   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
}

// Clone returns a copy for store snapshot isolation.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	cp := *i
	if i.SubmittedAt != nil {
		t := *i.SubmittedAt
		cp.SubmittedAt = &t
	}
	return &cp
}

// Submission is the recorded answer set for an instance. Version counts
// submissions per workflow and form type, so a re-requested form produces
// version 2 rather than overwriting the first answer set.
type Submission struct {
	FormInstanceID id.FormInstanceID
	WorkflowID     id.WorkflowID
	Type           Type
	Version        int
	Answers        json.RawMessage
	SubmittedAt    time.Time
	Actor          id.Actor
}
