package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"onboarding-gateway/internal/workflow/models"
)

func TestCanTransition(t *testing.T) {
	t.Run("terminal statuses have no successors", func(t *testing.T) {
		for _, terminal := range []models.Status{
			models.StatusCompleted,
			models.StatusFailed,
			models.StatusTerminated,
		} {
			for _, to := range []models.Status{
				models.StatusPending,
				models.StatusInProgress,
				models.StatusAwaitingHuman,
				models.StatusCompleted,
				models.StatusFailed,
				models.StatusTimeout,
				models.StatusTerminated,
			} {
				assert.False(t, CanTransition(terminal, to), "%s -> %s must be rejected", terminal, to)
			}
		}
	})

	t.Run("timeout is recoverable", func(t *testing.T) {
		assert.True(t, CanTransition(models.StatusTimeout, models.StatusInProgress))
		assert.True(t, CanTransition(models.StatusTimeout, models.StatusAwaitingHuman))
		assert.True(t, CanTransition(models.StatusTimeout, models.StatusTerminated))
	})

	t.Run("termination reachable from every non-terminal state", func(t *testing.T) {
		for _, from := range []models.Status{
			models.StatusPending,
			models.StatusInProgress,
			models.StatusAwaitingHuman,
			models.StatusTimeout,
		} {
			assert.True(t, CanTransition(from, models.StatusTerminated), "%s -> terminated", from)
		}
	})

	t.Run("pending cannot await a human", func(t *testing.T) {
		assert.False(t, CanTransition(models.StatusPending, models.StatusAwaitingHuman))
	})

	t.Run("completion only from in_progress", func(t *testing.T) {
		assert.True(t, CanTransition(models.StatusInProgress, models.StatusCompleted))
		assert.False(t, CanTransition(models.StatusAwaitingHuman, models.StatusCompleted))
		assert.False(t, CanTransition(models.StatusTimeout, models.StatusCompleted))
	})
}

func TestCanAdvanceStage(t *testing.T) {
	t.Run("advances by one", func(t *testing.T) {
		assert.True(t, CanAdvanceStage(models.StageCapture, models.StageQuotation))
		assert.True(t, CanAdvanceStage(models.StageVerification, models.StageIntegration))
	})

	t.Run("retry re-enters the same stage", func(t *testing.T) {
		assert.True(t, CanAdvanceStage(models.StageQuotation, models.StageQuotation))
	})

	t.Run("never regresses or skips", func(t *testing.T) {
		assert.False(t, CanAdvanceStage(models.StageQuotation, models.StageCapture))
		assert.False(t, CanAdvanceStage(models.StageCapture, models.StageVerification))
	})

	t.Run("rejects out-of-range stages", func(t *testing.T) {
		assert.False(t, CanAdvanceStage(models.StageIntegration, models.StageIntegration+1))
		assert.False(t, CanAdvanceStage(0, models.StageCapture))
	})
}

func TestReachable(t *testing.T) {
	assert.True(t, Reachable(models.StageCapture, models.StatusPending))
	assert.False(t, Reachable(models.StageQuotation, models.StatusPending))
	assert.True(t, Reachable(models.StageIntegration, models.StatusCompleted))
	assert.False(t, Reachable(models.StageVerification, models.StatusCompleted))
	assert.False(t, Reachable(models.StageCapture, models.StatusAwaitingHuman))
	assert.True(t, Reachable(models.StageCapture, models.StatusFailed))
	assert.True(t, Reachable(models.StageVerification, models.StatusTimeout))
}
