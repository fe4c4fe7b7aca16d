// Package workflow implements organizer-gated join requests.
//
// A request moves through
//
//	pending ──approve──▶ approved ──leave──▶ cancelled
//	   └─────reject────▶ rejected
//
// and at most one request row exists per (event, user). Rejected and
// cancelled rows are deleted when the user asks again.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/logging"
	"github.com/Elizabethomito/nearby/internal/membership"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/notify"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/Elizabethomito/nearby/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Signaller receives a push after a transition commits.
type Signaller interface {
	Signal(ctx context.Context, p notify.Push)
}

// Workflow runs the request state machine.
type Workflow struct {
	store  store.Store
	signal Signaller
	log    *slog.Logger
	now    func() time.Time
}

// New creates a Workflow. signal may be nil.
func New(s store.Store, signal Signaller, logger *slog.Logger) *Workflow {
	return &Workflow{store: s, signal: signal, log: logging.OrDefault(logger), now: time.Now}
}

var _ membership.Canceller = (*Workflow)(nil)

// RequestJoin records a pending request from userID and notifies the organizer.
func (w *Workflow) RequestJoin(ctx context.Context, eventID, userID string) (req models.EventRequest, err error) {
	ctx, span := telemetry.Start(ctx, "workflow.RequestJoin",
		attribute.String("event_id", eventID), attribute.String("user_id", userID))
	defer func() { telemetry.End(span, err) }()

	var ev models.Event
	var requester, organizer models.User
	err = w.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		requester, err = q.GetUser(ctx, userID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrUserNotFound, "load requester")
		}
		if requester.IsBlocked {
			return apperr.ErrUserBlocked
		}
		ev, err = q.LockEvent(ctx, eventID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "lock event")
		}
		if ev.Status != models.EventStatusActive {
			return apperr.ErrEventClosed
		}
		member, err := q.IsAttendee(ctx, eventID, userID)
		if err != nil {
			return apperr.Internal("check attendee", err)
		}
		if member {
			return apperr.ErrAlreadyMember
		}

		existing, err := q.FindRequest(ctx, eventID, userID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return apperr.Internal("find request", err)
		case existing.Status == models.RequestPending:
			return apperr.ErrAlreadyRequested
		case existing.Status == models.RequestApproved:
			return apperr.ErrAlreadyMember
		default:
			if err := q.DeleteRequest(ctx, existing.ID); err != nil {
				return apperr.Internal("delete old request", err)
			}
		}

		now := w.now().UTC()
		req = models.EventRequest{
			ID:          uuid.New().String(),
			EventID:     eventID,
			UserID:      userID,
			OrganizerID: ev.OrganizerID,
			Status:      models.RequestPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := q.InsertRequest(ctx, req); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.ErrAlreadyRequested
			}
			return apperr.Internal("insert request", err)
		}
		if err := q.ReplaceNotification(ctx, models.UserNotification{
			MyUserID: ev.OrganizerID,
			UserID:   userID,
			ItemID:   eventID,
			Type:     models.NotificationJoinRequest,
		}); err != nil {
			return apperr.Internal("notification", err)
		}

		organizer, err = q.GetUser(ctx, ev.OrganizerID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return apperr.Internal("load organizer", err)
		}
		return nil
	})
	if err != nil {
		return models.EventRequest{}, err
	}

	w.log.InfoContext(ctx, "join requested", "event_id", eventID, "user_id", userID, "request_id", req.ID)
	w.push(ctx, organizer.DeviceToken, "New join request",
		requester.Name+" wants to join "+ev.Title, eventID, models.NotificationJoinRequest)
	return req, nil
}

// Resolve applies the organizer's decision to the pending request of
// userID. Approval attaches the user and takes a slot in the same
// transaction; when no slot is free the request stays pending.
func (w *Workflow) Resolve(ctx context.Context, eventID, organizerID, userID string, decision models.RequestStatus) (req models.EventRequest, err error) {
	ctx, span := telemetry.Start(ctx, "workflow.Resolve",
		attribute.String("event_id", eventID), attribute.String("user_id", userID),
		attribute.String("decision", string(decision)))
	defer func() { telemetry.End(span, err) }()

	if decision != models.RequestApproved && decision != models.RequestRejected {
		return models.EventRequest{}, apperr.Validation("decision must be one of [approved rejected]")
	}

	var ev models.Event
	var requester models.User
	err = w.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		ev, err = q.LockEvent(ctx, eventID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "lock event")
		}
		if ev.OrganizerID != organizerID {
			return apperr.ErrNotOrganizer
		}
		req, err = q.FindRequest(ctx, eventID, userID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrNoPendingRequest, "find request")
		}
		if req.Status != models.RequestPending {
			return apperr.ErrNoPendingRequest
		}

		if decision == models.RequestApproved {
			if ev.Status != models.EventStatusActive {
				return apperr.ErrEventClosed
			}
			member, err := q.IsAttendee(ctx, eventID, userID)
			if err != nil {
				return apperr.Internal("check attendee", err)
			}
			// An attendee already holds a slot; approving must not take another.
			if !member {
				if err := membership.Attach(ctx, q, ev, userID); err != nil {
					return err
				}
			}
		}

		moved, err := q.TransitionRequest(ctx, req.ID, models.RequestPending, decision)
		if err != nil {
			return apperr.Internal("transition request", err)
		}
		if !moved {
			return apperr.ErrNoPendingRequest
		}
		req.Status = decision
		req.UpdatedAt = w.now().UTC()

		if err := q.ReplaceNotification(ctx, models.UserNotification{
			MyUserID: userID,
			UserID:   organizerID,
			ItemID:   eventID,
			Type:     models.NotificationJoinResponse,
		}); err != nil {
			return apperr.Internal("notification", err)
		}

		requester, err = q.GetUser(ctx, userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return apperr.Internal("load requester", err)
		}
		return nil
	})
	if err != nil {
		return models.EventRequest{}, err
	}

	w.log.InfoContext(ctx, "join request resolved", "event_id", eventID, "user_id", userID, "status", decision)
	body := "Your request to join " + ev.Title + " was " + string(decision)
	w.push(ctx, requester.DeviceToken, "Join request "+string(decision), body, eventID, models.NotificationJoinResponse)
	return req, nil
}

// CancelApproved moves an approved request for the pair to cancelled. A
// missing or non-approved request is left alone. It runs inside the
// caller's transaction.
func (w *Workflow) CancelApproved(ctx context.Context, q store.Queries, eventID, userID string) error {
	req, err := q.FindRequest(ctx, eventID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Internal("find request", err)
	}
	if req.Status != models.RequestApproved {
		return nil
	}
	if _, err := q.TransitionRequest(ctx, req.ID, models.RequestApproved, models.RequestCancelled); err != nil {
		return apperr.Internal("cancel request", err)
	}
	w.log.DebugContext(ctx, "approved request cancelled", "event_id", eventID, "user_id", userID)
	return nil
}

func (w *Workflow) push(ctx context.Context, token, title, body, eventID string, kind models.NotificationType) {
	if w.signal == nil {
		return
	}
	w.signal.Signal(ctx, notify.Push{
		DeviceToken: token,
		Title:       title,
		Body:        body,
		Data:        map[string]string{"event_id": eventID, "type": string(kind)},
	})
}
