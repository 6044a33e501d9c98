package timeout

import (
	"context"
	"log/slog"
	"time"

	"onboarding-gateway/internal/platform/metrics"
)

// Handler receives a fired timer. Implementations must be idempotent: a
// timer whose handling succeeded but whose fired mark failed will be
// delivered again on the next poll.
type Handler interface {
	HandleTimeout(ctx context.Context, timer *Timer) error
}

// Manager polls the timer store and delivers expired wait bounds. One
// manager per process is enough; concurrent managers are safe because the
// handler is idempotent, they just duplicate work.
type Manager struct {
	store    Store
	handler  Handler
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewManager(store Store, handler Handler, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Manager {
	return &Manager{store: store, handler: handler, interval: interval, metrics: m, logger: logger}
}

// Run polls until the context is canceled. An immediate first sweep picks up
// timers that expired while the process was down.
func (m *Manager) Run(ctx context.Context) {
	m.sweep(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "timeout manager stopping")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep fires every due timer once. The fired mark is written only after the
// handler succeeds, so a crash mid-handling re-delivers rather than drops.
func (m *Manager) sweep(ctx context.Context) {
	now := time.Now().UTC()
	due, err := m.store.Due(ctx, now)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to list due timers", "error", err)
		return
	}
	for _, timer := range due {
		if ctx.Err() != nil {
			return
		}
		if err := m.handler.HandleTimeout(ctx, timer); err != nil {
			m.logger.ErrorContext(ctx, "failed to handle expired timer",
				"timer_id", timer.ID, "workflow_id", timer.WorkflowID, "waiting", timer.Waiting, "error", err)
			continue
		}
		if err := m.store.MarkFired(ctx, timer.ID, now); err != nil {
			m.logger.ErrorContext(ctx, "failed to mark timer fired",
				"timer_id", timer.ID, "error", err)
			continue
		}
		if m.metrics != nil {
			m.metrics.TimeoutsFired.Inc()
		}
		m.logger.InfoContext(ctx, "wait bound expired",
			"timer_id", timer.ID, "workflow_id", timer.WorkflowID, "waiting", timer.Waiting)
	}
}
