//go:build integration

package quote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-gateway/internal/workflow/models"
	"onboarding-gateway/internal/workflow/store"
	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
	"onboarding-gateway/pkg/testutil/containers"
)

// quotes reference workflows, so each test seeds a workflow row first.
type quoteFixture struct {
	quotes    *PostgresStore
	workflows *store.Postgres
}

func newQuoteFixture(t *testing.T) *quoteFixture {
	t.Helper()
	pg := containers.NewPostgresContainer(t)
	pg.Migrate(t, "../../migrations")
	return &quoteFixture{
		quotes:    NewPostgresStore(pg.DB),
		workflows: store.NewPostgres(pg.DB),
	}
}

func (f *quoteFixture) newWorkflowID(t *testing.T) id.WorkflowID {
	t.Helper()
	workflow := models.NewWorkflow(id.NewApplicantID(), time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, f.workflows.Create(context.Background(), workflow))
	return workflow.ID
}

func (f *quoteFixture) newQuote(workflowID id.WorkflowID) *Quote {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &Quote{
		ID:          id.NewQuoteID(),
		WorkflowID:  workflowID,
		Amount:      10_000_000,
		BaseFee:     200_000,
		AdjustedFee: 210_000,
		Status:      StatusDraft,
		GeneratedBy: "platform",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestPostgresQuoteStore(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()

	t.Run("round trips all fields", func(t *testing.T) {
		workflowID := f.newWorkflowID(t)
		quote := f.newQuote(workflowID)
		quote.Overlimit = true
		require.NoError(t, f.quotes.Create(ctx, quote))

		found, err := f.quotes.FindByID(ctx, quote.ID)
		require.NoError(t, err)
		assert.Equal(t, quote.ID, found.ID)
		assert.Equal(t, workflowID, found.WorkflowID)
		assert.Equal(t, quote.Amount, found.Amount)
		assert.Equal(t, quote.BaseFee, found.BaseFee)
		assert.Equal(t, quote.AdjustedFee, found.AdjustedFee)
		assert.Equal(t, StatusDraft, found.Status)
		assert.True(t, found.Overlimit)
		assert.True(t, found.CreatedAt.Equal(quote.CreatedAt))

		byWorkflow, err := f.quotes.FindByWorkflow(ctx, workflowID)
		require.NoError(t, err)
		assert.Equal(t, quote.ID, byWorkflow.ID)
	})

	t.Run("one quote per workflow", func(t *testing.T) {
		workflowID := f.newWorkflowID(t)
		require.NoError(t, f.quotes.Create(ctx, f.newQuote(workflowID)))

		err := f.quotes.Create(ctx, f.newQuote(workflowID))
		assert.ErrorIs(t, err, sentinel.ErrDuplicate)
	})

	t.Run("update persists status and terms", func(t *testing.T) {
		workflowID := f.newWorkflowID(t)
		quote := f.newQuote(workflowID)
		require.NoError(t, f.quotes.Create(ctx, quote))

		quote.Status = StatusPendingApproval
		quote.AdjustedFee = 195_000
		quote.Rationale = "negotiated discount"
		quote.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, f.quotes.Update(ctx, quote))

		found, err := f.quotes.FindByID(ctx, quote.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPendingApproval, found.Status)
		assert.Equal(t, id.Money(195_000), found.AdjustedFee)
		assert.Equal(t, "negotiated discount", found.Rationale)
	})

	t.Run("missing rows surface not found", func(t *testing.T) {
		_, err := f.quotes.FindByID(ctx, id.NewQuoteID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		err = f.quotes.Update(ctx, f.newQuote(f.newWorkflowID(t)))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
