// Package lifecycle completes events whose end instant has passed.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/logging"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/Elizabethomito/nearby/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Sweeper marks expired events completed.
type Sweeper struct {
	store store.Store
	log   *slog.Logger
}

// New creates a Sweeper.
func New(s store.Store, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: s, log: logging.OrDefault(logger)}
}

// Sweep completes every active event with end_at <= now. Rows whose end
// instant cannot be read, and rows that fail to update, are logged and
// counted as skipped; the sweep carries on. Running it twice, or from two
// processes at once, completes each event exactly once.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (res models.SweepResult, err error) {
	nowEpoch := now.UTC().Unix()
	ctx, span := telemetry.Start(ctx, "lifecycle.Sweep", attribute.Int64("now", nowEpoch))
	defer func() { telemetry.End(span, err) }()

	endings, err := s.store.ActiveEventEndings(ctx)
	if err != nil {
		return models.SweepResult{}, apperr.Internal("scan active events", err)
	}

	for _, e := range endings {
		if e.Err != nil {
			s.log.WarnContext(ctx, "sweep: unreadable end instant", "event_id", e.EventID, "error", e.Err)
			res.Skipped++
			continue
		}
		if e.EndAt > nowEpoch {
			continue
		}
		changed, err := s.store.CompleteEvent(ctx, e.EventID)
		if err != nil {
			s.log.WarnContext(ctx, "sweep: complete failed", "event_id", e.EventID, "error", err)
			res.Skipped++
			continue
		}
		if changed {
			res.Completed++
			s.log.InfoContext(ctx, "event completed", "event_id", e.EventID, "end_at", e.EndAt)
		}
	}

	span.SetAttributes(attribute.Int("completed", res.Completed), attribute.Int("skipped", res.Skipped))
	return res, nil
}

// Run sweeps once immediately and then every interval until ctx is done.
// A failed sweep is logged and retried at the next tick.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	s.sweepAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	res, err := s.Sweep(ctx, time.Now())
	if err != nil {
		s.log.ErrorContext(ctx, "sweep failed", "error", err)
		return
	}
	if res.Completed > 0 || res.Skipped > 0 {
		s.log.InfoContext(ctx, "sweep finished", "completed", res.Completed, "skipped", res.Skipped)
	}
}
