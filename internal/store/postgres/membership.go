package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (q *queries) IsAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&attendeeRow{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check attendee: %w", err)
	}
	return n > 0, nil
}

func (q *queries) AddAttendee(ctx context.Context, eventID, userID string) error {
	row := attendeeRow{EventID: eventID, UserID: userID, JoinedAt: time.Now().UTC()}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isForeignKey(err) {
			return fmt.Errorf("add attendee: %w", store.ErrNotFound)
		}
		if isDuplicate(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("add attendee: %w", err)
	}
	return nil
}

func (q *queries) RemoveAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	res := q.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&attendeeRow{})
	if res.Error != nil {
		return false, fmt.Errorf("remove attendee: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (q *queries) CountAttendees(ctx context.Context, eventID string) (int, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&attendeeRow{}).Where("event_id = ?", eventID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return int(n), nil
}

// TakeSlot and ReleaseSlot are conditional single-statement updates. The
// WHERE clause keeps 0 <= available_slots <= capacity even without the
// row lock.
func (q *queries) TakeSlot(ctx context.Context, eventID string) (bool, error) {
	return q.moveSlot(ctx, eventID, "available_slots > 0", "available_slots - 1")
}

func (q *queries) ReleaseSlot(ctx context.Context, eventID string) (bool, error) {
	return q.moveSlot(ctx, eventID, "available_slots < capacity", "available_slots + 1")
}

func (q *queries) moveSlot(ctx context.Context, eventID, guard, expr string) (bool, error) {
	res := q.db.WithContext(ctx).Model(&eventRow{}).
		Where("id = ? AND "+guard, eventID).
		Updates(map[string]any{"available_slots": gorm.Expr(expr), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("move slot: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (q *queries) FindRequest(ctx context.Context, eventID, userID string) (models.EventRequest, error) {
	var row requestRow
	err := q.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).First(&row).Error
	if err != nil {
		return models.EventRequest{}, notFound(err)
	}
	return row.model(), nil
}

func (q *queries) InsertRequest(ctx context.Context, r models.EventRequest) error {
	row := requestRow{
		ID: r.ID, EventID: r.EventID, UserID: r.UserID, OrganizerID: r.OrganizerID,
		Status: string(r.Status), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isForeignKey(err) {
			return fmt.Errorf("insert request: %w", store.ErrNotFound)
		}
		if isDuplicate(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (q *queries) DeleteRequest(ctx context.Context, id string) error {
	if err := q.db.WithContext(ctx).Where("id = ?", id).Delete(&requestRow{}).Error; err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return nil
}

func (q *queries) TransitionRequest(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	res := q.db.WithContext(ctx).Model(&requestRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("transition request: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (q *queries) ReplaceNotification(ctx context.Context, n models.UserNotification) error {
	db := q.db.WithContext(ctx)
	err := db.Where("my_user_id = ? AND user_id = ? AND item_id = ? AND type = ?",
		n.MyUserID, n.UserID, n.ItemID, string(n.Type)).Delete(&notificationRow{}).Error
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	row := notificationRow{
		ID: n.ID, MyUserID: n.MyUserID, UserID: n.UserID, ItemID: n.ItemID,
		Type: string(n.Type), CreatedAt: n.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
