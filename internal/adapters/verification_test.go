package adapters_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"onboarding-gateway/internal/adapters"
	"onboarding-gateway/internal/adapters/mocks"
	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

func TestEvidenceGatherer(t *testing.T) {
	ctx := context.Background()
	workflowID := id.NewWorkflowID()
	applicantID := id.NewApplicantID()

	t.Run("combines both provider results", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		analyzer := mocks.NewMockDocumentAnalyzer(ctrl)
		screener := mocks.NewMockSanctionsScreener(ctrl)
		analyzer.EXPECT().Analyze(gomock.Any(), workflowID, applicantID).
			Return(models.RiskAssessment{TrustScore: 82, Recommendation: models.RecommendAutoApprove}, nil)
		screener.EXPECT().Screen(gomock.Any(), applicantID).Return(true, nil)

		gatherer := adapters.NewEvidenceGatherer(analyzer, screener, time.Second, nil)
		evidence, err := gatherer.Gather(ctx, workflowID, applicantID)
		require.NoError(t, err)
		assert.Equal(t, 82, evidence.Assessment.TrustScore)
		assert.True(t, evidence.SanctionsListed)
	})

	t.Run("either failure fails the gather", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		analyzer := mocks.NewMockDocumentAnalyzer(ctrl)
		screener := mocks.NewMockSanctionsScreener(ctrl)
		analyzer.EXPECT().Analyze(gomock.Any(), workflowID, applicantID).
			Return(models.RiskAssessment{TrustScore: 82}, nil).AnyTimes()
		screener.EXPECT().Screen(gomock.Any(), applicantID).Return(false, assert.AnError)

		gatherer := adapters.NewEvidenceGatherer(analyzer, screener, time.Second, nil)
		_, err := gatherer.Gather(ctx, workflowID, applicantID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("slow provider hits the call timeout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		analyzer := mocks.NewMockDocumentAnalyzer(ctrl)
		screener := mocks.NewMockSanctionsScreener(ctrl)
		analyzer.EXPECT().Analyze(gomock.Any(), workflowID, applicantID).
			DoAndReturn(func(callCtx context.Context, _ id.WorkflowID, _ id.ApplicantID) (models.RiskAssessment, error) {
				<-callCtx.Done()
				return models.RiskAssessment{}, callCtx.Err()
			})
		screener.EXPECT().Screen(gomock.Any(), applicantID).Return(false, nil).AnyTimes()

		gatherer := adapters.NewEvidenceGatherer(analyzer, screener, 10*time.Millisecond, nil)
		_, err := gatherer.Gather(ctx, workflowID, applicantID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestStubsAreDeterministic(t *testing.T) {
	ctx := context.Background()
	applicantID := id.NewApplicantID()

	first, err := adapters.StubCreditChecker{}.Check(ctx, applicantID)
	require.NoError(t, err)
	second, err := adapters.StubCreditChecker{}.Check(ctx, applicantID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first.Score, 300)
	assert.Less(t, first.Score, 900)

	workflowID := id.NewWorkflowID()
	assessment, err := adapters.StubDocumentAnalyzer{}.Analyze(ctx, workflowID, applicantID)
	require.NoError(t, err)
	again, err := adapters.StubDocumentAnalyzer{}.Analyze(ctx, workflowID, applicantID)
	require.NoError(t, err)
	assert.Equal(t, assessment, again)
	assert.NotEmpty(t, assessment.Recommendation)
}

// Production wiring selects these adapters, so a missing integration fails
// the step instead of fabricating a result.
func TestUnconfiguredAdaptersRefuse(t *testing.T) {
	ctx := context.Background()
	workflowID := id.NewWorkflowID()
	applicantID := id.NewApplicantID()

	_, creditErr := adapters.UnconfiguredCreditChecker{}.Check(ctx, applicantID)
	_, analyzeErr := adapters.UnconfiguredDocumentAnalyzer{}.Analyze(ctx, workflowID, applicantID)
	_, screenErr := adapters.UnconfiguredSanctionsScreener{}.Screen(ctx, applicantID)
	_, provisionErr := adapters.UnconfiguredIntegrationProvisioner{}.Provision(ctx, nil)

	for _, err := range []error{creditErr, analyzeErr, screenErr, provisionErr} {
		assert.True(t, errors.Is(err, adapters.ErrUnconfigured))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	}
}
