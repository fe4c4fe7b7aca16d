package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"gorm.io/gorm/clause"
)

func (q *queries) GetEvent(ctx context.Context, id string) (models.Event, error) {
	var row eventRow
	if err := q.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Event{}, notFound(err)
	}
	return row.model(), nil
}

// LockEvent reads the row with FOR UPDATE. The lock is held until the
// surrounding transaction commits or rolls back.
func (q *queries) LockEvent(ctx context.Context, id string) (models.Event, error) {
	var row eventRow
	err := q.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "id = ?", id).Error
	if err != nil {
		return models.Event{}, notFound(err)
	}
	return row.model(), nil
}

func (q *queries) InsertEvent(ctx context.Context, e models.Event) error {
	row := eventRowFrom(e)
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isForeignKey(err) {
			return fmt.Errorf("insert event: %w", store.ErrNotFound)
		}
		if isDuplicate(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (q *queries) UpdateEventDetails(ctx context.Context, e models.Event) error {
	res := q.db.WithContext(ctx).Model(&eventRow{}).Where("id = ?", e.ID).Updates(map[string]any{
		"title":         e.Title,
		"description":   e.Description,
		"start_date":    e.StartDate,
		"start_time":    e.StartTime,
		"end_date":      e.EndDate,
		"end_time":      e.EndTime,
		"timezone":      e.Timezone,
		"start_at":      e.StartAt,
		"end_at":        e.EndAt,
		"location_name": e.LocationName,
		"latitude":      e.Latitude,
		"longitude":     e.Longitude,
		"is_public":     e.IsPublic,
		"updated_at":    e.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("update event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteEvent clears the rows that carry no foreign key to events (reports,
// notifications) and lets ON DELETE CASCADE take the rest. Attendees,
// requests, ratings and interest tags are deleted explicitly as well so the
// result matches the SQLite store row for row.
func (q *queries) DeleteEvent(ctx context.Context, id string) error {
	db := q.db.WithContext(ctx)
	dependents := []struct {
		model any
		where string
	}{
		{&attendeeRow{}, "event_id = ?"},
		{&requestRow{}, "event_id = ?"},
		{&ratingRow{}, "event_id = ?"},
		{&eventInterestRow{}, "event_id = ?"},
		{&reportRow{}, "event_id = ?"},
		{&notificationRow{}, "item_id = ?"},
	}
	for _, d := range dependents {
		if err := db.Where(d.where, id).Delete(d.model).Error; err != nil {
			return fmt.Errorf("delete event dependents: %w", err)
		}
	}
	res := db.Where("id = ?", id).Delete(&eventRow{})
	if res.Error != nil {
		return fmt.Errorf("delete event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) SetEventInterests(ctx context.Context, eventID string, interestIDs []string) error {
	db := q.db.WithContext(ctx)
	if err := db.Where("event_id = ?", eventID).Delete(&eventInterestRow{}).Error; err != nil {
		return fmt.Errorf("clear event interests: %w", err)
	}
	for _, iid := range interestIDs {
		err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&eventInterestRow{EventID: eventID, InterestID: iid}).Error
		if err != nil {
			if isForeignKey(err) {
				return fmt.Errorf("interest %s: %w", iid, store.ErrNotFound)
			}
			return fmt.Errorf("insert event interest: %w", err)
		}
	}
	return nil
}

func (q *queries) ListEvents(ctx context.Context, f store.ListFilter) ([]models.Event, error) {
	f = f.Normalize()

	tx := q.db.WithContext(ctx).Model(&eventRow{})
	if f.ExcludeStatus != "" {
		tx = tx.Where("status <> ?", string(f.ExcludeStatus))
	}
	if f.InterestID != "" {
		tx = tx.Where(`EXISTS (SELECT 1 FROM event_interests ei WHERE ei.event_id = events.id AND ei.interest_id = ?)`, f.InterestID)
	}
	if f.OrderBy == store.OrderByCreated {
		tx = tx.Order("created_at DESC, id")
	} else {
		tx = tx.Order("start_at ASC, id")
	}

	var rows []eventRow
	if err := tx.Limit(f.Limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]models.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.model())
	}
	return events, nil
}

func (q *queries) EventInterests(ctx context.Context, eventIDs []string) (map[string][]models.Interest, error) {
	out := make(map[string][]models.Interest, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		EventID   string
		ID        string
		Name      string
		CreatedAt time.Time
	}
	err := q.db.WithContext(ctx).Raw(
		`SELECT ei.event_id, i.id, i.name, i.created_at
		 FROM event_interests ei JOIN interests i ON i.id = ei.interest_id
		 WHERE ei.event_id IN ?
		 ORDER BY i.name`, eventIDs).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("event interests: %w", err)
	}
	for _, r := range rows {
		out[r.EventID] = append(out[r.EventID], models.Interest{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (q *queries) EventAttendees(ctx context.Context, eventIDs []string, viewerID string) (map[string][]models.AttendeeSummary, error) {
	out := make(map[string][]models.AttendeeSummary, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		EventID      string
		ID           string
		Name         string
		ProfileImage string
		Followed     bool
	}
	err := q.db.WithContext(ctx).Raw(
		`SELECT a.event_id, u.id, u.name, u.profile_image,
		        EXISTS (SELECT 1 FROM user_follows f WHERE f.follower_id = ? AND f.followee_id = u.id) AS followed
		 FROM event_attendees a JOIN users u ON u.id = a.user_id
		 WHERE a.event_id IN ?
		 ORDER BY a.joined_at, u.id`, viewerID, eventIDs).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("event attendees: %w", err)
	}
	for _, r := range rows {
		out[r.EventID] = append(out[r.EventID], models.AttendeeSummary{
			ID: r.ID, Name: r.Name, ProfileImage: r.ProfileImage, Followed: r.Followed,
		})
	}
	return out, nil
}

// ActiveEventEndings reads end_at as text, matching the SQLite scan, so a
// value that does not parse is reported per row.
func (q *queries) ActiveEventEndings(ctx context.Context) ([]models.EventEnding, error) {
	var rows []struct {
		ID  string
		Raw string
	}
	err := q.db.WithContext(ctx).Raw(
		`SELECT id, end_at::text AS raw FROM events WHERE status = ? ORDER BY id`,
		string(models.EventStatusActive)).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("scan active events: %w", err)
	}
	out := make([]models.EventEnding, 0, len(rows))
	for _, r := range rows {
		ending := models.EventEnding{EventID: r.ID}
		ending.EndAt, ending.Err = strconv.ParseInt(strings.TrimSpace(r.Raw), 10, 64)
		out = append(out, ending)
	}
	return out, nil
}

func (q *queries) CompleteEvent(ctx context.Context, id string) (bool, error) {
	res := q.db.WithContext(ctx).Model(&eventRow{}).
		Where("id = ? AND status = ?", id, string(models.EventStatusActive)).
		Updates(map[string]any{"status": string(models.EventStatusCompleted), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("complete event: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (q *queries) UpsertRating(ctx context.Context, r models.EventRating) error {
	now := time.Now().UTC()
	row := ratingRow{EventID: r.EventID, UserID: r.UserID, Rating: r.Rating, CreatedAt: now, UpdatedAt: now}
	err := q.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		if isForeignKey(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

func (q *queries) RecomputeRating(ctx context.Context, eventID string) (float64, error) {
	db := q.db.WithContext(ctx)
	var avg float64
	err := db.Raw(`SELECT COALESCE(AVG(rating), 0) FROM event_ratings WHERE event_id = ?`, eventID).
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	res := db.Model(&eventRow{}).Where("id = ?", eventID).UpdateColumn("rating", avg)
	if res.Error != nil {
		return 0, fmt.Errorf("store rating: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, store.ErrNotFound
	}
	return avg, nil
}
