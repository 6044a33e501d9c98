package adapters

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"onboarding-gateway/internal/platform/metrics"
	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

// VerificationEvidence bundles the independent provider results the
// verification stage waits on.
type VerificationEvidence struct {
	Assessment      models.RiskAssessment
	SanctionsListed bool
}

// EvidenceGatherer fans out to the analysis and sanctions providers in
// parallel. Either failure fails the gather: verification never proceeds on
// partial evidence.
type EvidenceGatherer struct {
	analyzer  DocumentAnalyzer
	sanctions SanctionsScreener
	timeout   time.Duration
	metrics   *metrics.Metrics
}

func NewEvidenceGatherer(analyzer DocumentAnalyzer, sanctions SanctionsScreener, timeout time.Duration, m *metrics.Metrics) *EvidenceGatherer {
	return &EvidenceGatherer{analyzer: analyzer, sanctions: sanctions, timeout: timeout, metrics: m}
}

// Gather collects both results or reports the first failure.
func (g *EvidenceGatherer) Gather(ctx context.Context, workflowID id.WorkflowID, applicantID id.ApplicantID) (VerificationEvidence, error) {
	var evidence VerificationEvidence

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		callCtx, cancel := context.WithTimeout(groupCtx, g.timeout)
		defer cancel()
		started := time.Now()
		assessment, err := g.analyzer.Analyze(callCtx, workflowID, applicantID)
		g.metrics.ObserveAdapterLatency("document_analysis", time.Since(started).Seconds())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "document analysis failed")
		}
		evidence.Assessment = assessment
		return nil
	})
	group.Go(func() error {
		callCtx, cancel := context.WithTimeout(groupCtx, g.timeout)
		defer cancel()
		started := time.Now()
		listed, err := g.sanctions.Screen(callCtx, applicantID)
		g.metrics.ObserveAdapterLatency("sanctions_screening", time.Since(started).Seconds())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "sanctions screening failed")
		}
		evidence.SanctionsListed = listed
		return nil
	})

	if err := group.Wait(); err != nil {
		return VerificationEvidence{}, err
	}
	return evidence, nil
}
