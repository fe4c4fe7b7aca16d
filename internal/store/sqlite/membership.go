package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/google/uuid"
)

func (q *queries) IsAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	var exists int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_attendees WHERE event_id = ? AND user_id = ?`,
		eventID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendee: %w", err)
	}
	return exists > 0, nil
}

func (q *queries) AddAttendee(ctx context.Context, eventID, userID string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO event_attendees (event_id, user_id, joined_at) VALUES (?, ?, ?)`,
		eventID, userID, time.Now().UTC())
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("add attendee: %w", store.ErrNotFound)
		}
		if isConstraintError(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("add attendee: %w", err)
	}
	return nil
}

func (q *queries) RemoveAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("remove attendee: %w", err)
	}
	return affected(res)
}

func (q *queries) CountAttendees(ctx context.Context, eventID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_attendees WHERE event_id = ?`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return n, nil
}

// TakeSlot is a conditional decrement: zero affected rows means the event
// had no free slot when the statement ran.
func (q *queries) TakeSlot(ctx context.Context, eventID string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE events SET available_slots = available_slots - 1, updated_at = ?
		 WHERE id = ? AND available_slots > 0`, time.Now().UTC(), eventID)
	if err != nil {
		return false, fmt.Errorf("take slot: %w", err)
	}
	return affected(res)
}

func (q *queries) ReleaseSlot(ctx context.Context, eventID string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE events SET available_slots = available_slots + 1, updated_at = ?
		 WHERE id = ? AND available_slots < capacity`, time.Now().UTC(), eventID)
	if err != nil {
		return false, fmt.Errorf("release slot: %w", err)
	}
	return affected(res)
}

const requestColumns = `id, event_id, user_id, organizer_id, status, created_at, updated_at`

func (q *queries) FindRequest(ctx context.Context, eventID, userID string) (models.EventRequest, error) {
	var r models.EventRequest
	err := q.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM event_requests WHERE event_id = ? AND user_id = ?`,
		eventID, userID).Scan(&r.ID, &r.EventID, &r.UserID, &r.OrganizerID, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.EventRequest{}, notFound(err)
	}
	return r, nil
}

func (q *queries) InsertRequest(ctx context.Context, r models.EventRequest) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO event_requests (`+requestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.EventID, r.UserID, r.OrganizerID, r.Status, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("insert request: %w", store.ErrNotFound)
		}
		if isConstraintError(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (q *queries) DeleteRequest(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM event_requests WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return nil
}

func (q *queries) TransitionRequest(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE event_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("transition request: %w", err)
	}
	return affected(res)
}

// ReplaceNotification deletes then inserts rather than updating in place,
// so the row's id and created_at always belong to the latest action.
func (q *queries) ReplaceNotification(ctx context.Context, n models.UserNotification) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM user_notifications WHERE my_user_id = ? AND user_id = ? AND item_id = ? AND type = ?`,
		n.MyUserID, n.UserID, n.ItemID, n.Type)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO user_notifications (id, my_user_id, user_id, item_id, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.MyUserID, n.UserID, n.ItemID, n.Type, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
