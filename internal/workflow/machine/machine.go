// Package machine holds the workflow transition rules. This is pure domain
// logic - no I/O, no side effects - so every reachable state combination is
// unit-testable without a store.
package machine

import (
	"onboarding-gateway/internal/workflow/models"
)

// transitions is the allowed status transition table. Terminal statuses have
// no successors; `timeout` is recoverable by a manual decision, which is why
// it is not terminal.
var transitions = map[models.Status][]models.Status{
	models.StatusPending: {
		models.StatusInProgress,
		models.StatusFailed,
		models.StatusTimeout,
		models.StatusTerminated,
	},
	models.StatusInProgress: {
		models.StatusInProgress,
		models.StatusAwaitingHuman,
		models.StatusCompleted,
		models.StatusFailed,
		models.StatusTimeout,
		models.StatusTerminated,
	},
	models.StatusAwaitingHuman: {
		models.StatusInProgress,
		models.StatusAwaitingHuman,
		models.StatusFailed,
		models.StatusTimeout,
		models.StatusTerminated,
	},
	models.StatusTimeout: {
		models.StatusInProgress,
		models.StatusAwaitingHuman,
		models.StatusFailed,
		models.StatusTerminated,
	},
}

// CanTransition reports whether the status transition is allowed.
func CanTransition(from, to models.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanAdvanceStage reports whether a stage move is legal: stages advance
// monotonically by one, or re-enter the same stage on a recoverable retry.
func CanAdvanceStage(from, to models.Stage) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	return to == from || to == from+1
}

// Reachable reports whether a (stage, status) pair corresponds to a state
// the saga can actually occupy.
func Reachable(stage models.Stage, status models.Status) bool {
	if !stage.IsValid() || !status.IsValid() {
		return false
	}
	switch status {
	case models.StatusPending:
		// A workflow is only pending before its first transition.
		return stage == models.StageCapture
	case models.StatusCompleted:
		return stage == models.StageIntegration
	case models.StatusAwaitingHuman:
		// Capture has no human gate; it either auto-advances or declines.
		return stage != models.StageCapture
	default:
		return true
	}
}
