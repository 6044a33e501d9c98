package adapters

import (
	"context"
	"errors"

	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

// ErrUnconfigured marks an adapter that has no real provider behind it.
// Production wiring selects these instead of the deterministic stubs, so a
// missing integration surfaces as a recorded step failure rather than a
// fabricated result.
var ErrUnconfigured = errors.New("adapter is not configured")

func unconfigured(name string) error {
	return dErrors.Wrap(ErrUnconfigured, dErrors.CodeUnavailable, name+" adapter is not configured")
}

// UnconfiguredCreditChecker refuses every call.
type UnconfiguredCreditChecker struct{}

var _ CreditChecker = UnconfiguredCreditChecker{}

func (UnconfiguredCreditChecker) Check(context.Context, id.ApplicantID) (CreditResult, error) {
	return CreditResult{}, unconfigured("credit bureau")
}

// UnconfiguredDocumentAnalyzer refuses every call.
type UnconfiguredDocumentAnalyzer struct{}

var _ DocumentAnalyzer = UnconfiguredDocumentAnalyzer{}

func (UnconfiguredDocumentAnalyzer) Analyze(context.Context, id.WorkflowID, id.ApplicantID) (models.RiskAssessment, error) {
	return models.RiskAssessment{}, unconfigured("document analysis")
}

// UnconfiguredSanctionsScreener refuses every call.
type UnconfiguredSanctionsScreener struct{}

var _ SanctionsScreener = UnconfiguredSanctionsScreener{}

func (UnconfiguredSanctionsScreener) Screen(context.Context, id.ApplicantID) (bool, error) {
	return false, unconfigured("sanctions screening")
}

// UnconfiguredIntegrationProvisioner refuses every call.
type UnconfiguredIntegrationProvisioner struct{}

var _ IntegrationProvisioner = UnconfiguredIntegrationProvisioner{}

func (UnconfiguredIntegrationProvisioner) Provision(context.Context, *models.Workflow) (string, error) {
	return "", unconfigured("integration provisioning")
}
