// Package adapters normalizes results from external providers into the typed
// values the orchestrator consumes. Every adapter call is bounded by a
// timeout; transport failures surface as coded errors, never as fabricated
// results.
package adapters

//go:generate mockgen -source=adapters.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
)

// CreditResult is a normalized credit bureau response.
type CreditResult struct {
	Score  int
	Source string
}

// CreditChecker pulls the applicant's credit score from a bureau.
type CreditChecker interface {
	Check(ctx context.Context, applicantID id.ApplicantID) (CreditResult, error)
}

// DocumentAnalyzer runs uploaded documents through risk analysis. The
// returned assessment is consumed verbatim; the orchestrator only routes on
// it.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, workflowID id.WorkflowID, applicantID id.ApplicantID) (models.RiskAssessment, error)
}

// SanctionsScreener checks the applicant against sanctions lists.
type SanctionsScreener interface {
	Screen(ctx context.Context, applicantID id.ApplicantID) (listed bool, err error)
}

// IntegrationProvisioner provisions the downstream account once the saga
// reaches the integration stage. The returned reference identifies the
// provisioned resource.
type IntegrationProvisioner interface {
	Provision(ctx context.Context, workflow *models.Workflow) (ref string, err error)
}
