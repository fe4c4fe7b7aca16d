// Package membership implements direct join and leave on events.
//
// Every operation is one store transaction: the event row is locked, the
// attendee link and available_slots change together, and a failure leaves
// both untouched. The invariant kept is
//
//	available_slots + |attendees| == capacity
package membership

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/logging"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/Elizabethomito/nearby/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Canceller cancels the approved join request of a user who left. It runs
// inside the leave transaction.
type Canceller interface {
	CancelApproved(ctx context.Context, q store.Queries, eventID, userID string) error
}

// Manager runs join and leave.
type Manager struct {
	store     store.Store
	canceller Canceller
	log       *slog.Logger
}

// New creates a Manager. canceller may be nil, in which case leave does not
// touch join requests.
func New(s store.Store, canceller Canceller, logger *slog.Logger) *Manager {
	return &Manager{store: s, canceller: canceller, log: logging.OrDefault(logger)}
}

// Join adds userID to a public event and takes one slot.
func (m *Manager) Join(ctx context.Context, eventID, userID string) (ev models.Event, err error) {
	ctx, span := telemetry.Start(ctx, "membership.Join",
		attribute.String("event_id", eventID), attribute.String("user_id", userID))
	defer func() { telemetry.End(span, err) }()

	err = m.store.WithTx(ctx, func(q store.Queries) error {
		e, err := q.LockEvent(ctx, eventID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "lock event")
		}
		if e.Status != models.EventStatusActive {
			return apperr.ErrEventClosed
		}
		// A full event refuses every direct join, whoever asks.
		if e.AvailableSlots <= 0 {
			return apperr.ErrSlotsExhausted
		}
		if !e.IsPublic {
			return apperr.ErrRequestRequired
		}
		if err := Attach(ctx, q, e, userID); err != nil {
			return err
		}
		ev, err = q.GetEvent(ctx, eventID)
		if err != nil {
			return apperr.Internal("reload event", err)
		}
		return nil
	})
	if err != nil {
		return models.Event{}, err
	}
	m.log.InfoContext(ctx, "joined event", "event_id", eventID, "user_id", userID, "available_slots", ev.AvailableSlots)
	return ev, nil
}

// Attach links userID to the locked event e and takes one slot. It must run
// inside a transaction that already holds the event lock. The request
// workflow uses it when an organizer approves a request. Checks run in
// order: closed, full, already a member.
func Attach(ctx context.Context, q store.Queries, e models.Event, userID string) error {
	if e.Status != models.EventStatusActive {
		return apperr.ErrEventClosed
	}
	if e.AvailableSlots <= 0 {
		return apperr.ErrSlotsExhausted
	}
	member, err := q.IsAttendee(ctx, e.ID, userID)
	if err != nil {
		return apperr.Internal("check attendee", err)
	}
	if member {
		return apperr.ErrAlreadyMember
	}
	took, err := q.TakeSlot(ctx, e.ID)
	if err != nil {
		return apperr.Internal("take slot", err)
	}
	if !took {
		return apperr.ErrSlotsExhausted
	}
	if err := q.AddAttendee(ctx, e.ID, userID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return apperr.ErrAlreadyMember
		}
		return apperr.FromStore(err, apperr.ErrUserNotFound, "add attendee")
	}
	return nil
}

// Leave removes userID from the event, gives the slot back (never above
// capacity) and cancels an approved request for the pair if one exists.
func (m *Manager) Leave(ctx context.Context, eventID, userID string) (ev models.Event, err error) {
	ctx, span := telemetry.Start(ctx, "membership.Leave",
		attribute.String("event_id", eventID), attribute.String("user_id", userID))
	defer func() { telemetry.End(span, err) }()

	err = m.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.LockEvent(ctx, eventID); err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "lock event")
		}
		removed, err := q.RemoveAttendee(ctx, eventID, userID)
		if err != nil {
			return apperr.Internal("remove attendee", err)
		}
		if !removed {
			return apperr.ErrNotAMember
		}
		released, err := q.ReleaseSlot(ctx, eventID)
		if err != nil {
			return apperr.Internal("release slot", err)
		}
		if !released {
			m.log.WarnContext(ctx, "slot release capped at capacity", "event_id", eventID, "user_id", userID)
		}
		if m.canceller != nil {
			if err := m.canceller.CancelApproved(ctx, q, eventID, userID); err != nil {
				return err
			}
		}
		ev, err = q.GetEvent(ctx, eventID)
		if err != nil {
			return apperr.Internal("reload event", err)
		}
		return nil
	})
	if err != nil {
		return models.Event{}, err
	}
	m.log.InfoContext(ctx, "left event", "event_id", eventID, "user_id", userID, "available_slots", ev.AvailableSlots)
	return ev, nil
}
