package adapters

import (
	"context"
	"fmt"
	"hash/fnv"

	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
)

// Deterministic stubs for environments without provider credentials. Results
// derive from a hash of the applicant id, so replaying a workflow in a dev
// environment reproduces the same path. Production wiring must never select
// these.

// StubCreditChecker returns scores in the 300-899 range.
type StubCreditChecker struct{}

var _ CreditChecker = StubCreditChecker{}

func (StubCreditChecker) Check(ctx context.Context, applicantID id.ApplicantID) (CreditResult, error) {
	if err := ctx.Err(); err != nil {
		return CreditResult{}, err
	}
	return CreditResult{
		Score:  300 + int(seed(applicantID.String())%600),
		Source: "stub-bureau",
	}, nil
}

// StubDocumentAnalyzer maps the hash onto a trust score and recommendation.
type StubDocumentAnalyzer struct{}

var _ DocumentAnalyzer = StubDocumentAnalyzer{}

func (StubDocumentAnalyzer) Analyze(ctx context.Context, workflowID id.WorkflowID, applicantID id.ApplicantID) (models.RiskAssessment, error) {
	if err := ctx.Err(); err != nil {
		return models.RiskAssessment{}, err
	}
	trust := int(seed(applicantID.String()) % 101)
	assessment := models.RiskAssessment{TrustScore: trust}
	switch {
	case trust >= 70:
		assessment.Recommendation = models.RecommendAutoApprove
	case trust >= 30:
		assessment.Recommendation = models.RecommendManualReview
		assessment.Flags = []models.RiskFlag{{Code: "inconclusive_documents", Severity: models.SeverityMedium}}
	default:
		assessment.Recommendation = models.RecommendDecline
		assessment.Flags = []models.RiskFlag{{Code: "document_integrity", Severity: models.SeverityHigh}}
	}
	return assessment, nil
}

// StubSanctionsScreener lists roughly one applicant in fifty.
type StubSanctionsScreener struct{}

var _ SanctionsScreener = StubSanctionsScreener{}

func (StubSanctionsScreener) Screen(ctx context.Context, applicantID id.ApplicantID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return seed(applicantID.String())%50 == 0, nil
}

// StubIntegrationProvisioner fabricates a stable downstream reference.
type StubIntegrationProvisioner struct{}

var _ IntegrationProvisioner = StubIntegrationProvisioner{}

func (StubIntegrationProvisioner) Provision(ctx context.Context, workflow *models.Workflow) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("acct-%08x", seed(workflow.ID.String())), nil
}

func seed(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
