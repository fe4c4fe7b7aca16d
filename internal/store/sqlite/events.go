package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
)

const eventColumns = `id, organizer_id, title, description, start_date, start_time, end_date, end_time,
	timezone, start_at, end_at, location_name, latitude, longitude, capacity, available_slots,
	status, is_public, rating, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (models.Event, error) {
	var e models.Event
	var isPublic int
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description,
		&e.StartDate, &e.StartTime, &e.EndDate, &e.EndTime,
		&e.Timezone, &e.StartAt, &e.EndAt, &e.LocationName, &e.Latitude, &e.Longitude,
		&e.Capacity, &e.AvailableSlots, &e.Status, &isPublic, &e.Rating,
		&e.CreatedAt, &e.UpdatedAt)
	e.IsPublic = isPublic != 0
	return e, err
}

func (q *queries) GetEvent(ctx context.Context, id string) (models.Event, error) {
	e, err := scanEvent(q.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		return models.Event{}, notFound(err)
	}
	return e, nil
}

// LockEvent is GetEvent: inside a BEGIN IMMEDIATE transaction the whole
// database is already write-locked.
func (q *queries) LockEvent(ctx context.Context, id string) (models.Event, error) {
	return q.GetEvent(ctx, id)
}

func (q *queries) InsertEvent(ctx context.Context, e models.Event) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrganizerID, e.Title, e.Description,
		e.StartDate, e.StartTime, e.EndDate, e.EndTime,
		e.Timezone, e.StartAt, e.EndAt, e.LocationName, e.Latitude, e.Longitude,
		e.Capacity, e.AvailableSlots, e.Status, boolInt(e.IsPublic), e.Rating,
		e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("insert event: %w", store.ErrNotFound)
		}
		if isConstraintError(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (q *queries) UpdateEventDetails(ctx context.Context, e models.Event) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, start_date = ?, start_time = ?,
		        end_date = ?, end_time = ?, timezone = ?, start_at = ?, end_at = ?,
		        location_name = ?, latitude = ?, longitude = ?, is_public = ?, updated_at = ?
		 WHERE id = ?`,
		e.Title, e.Description, e.StartDate, e.StartTime,
		e.EndDate, e.EndTime, e.Timezone, e.StartAt, e.EndAt,
		e.LocationName, e.Latitude, e.Longitude, boolInt(e.IsPublic), e.UpdatedAt,
		e.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

// DeleteEvent removes dependents explicitly so the cascade does not depend
// on the connection having foreign_keys enabled.
func (q *queries) DeleteEvent(ctx context.Context, id string) error {
	dependents := []string{
		`DELETE FROM event_attendees WHERE event_id = ?`,
		`DELETE FROM event_requests WHERE event_id = ?`,
		`DELETE FROM event_ratings WHERE event_id = ?`,
		`DELETE FROM event_interests WHERE event_id = ?`,
		`DELETE FROM reports WHERE event_id = ?`,
		`DELETE FROM user_notifications WHERE item_id = ?`,
	}
	for _, stmt := range dependents {
		if _, err := q.db.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete event dependents: %w", err)
		}
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) SetEventInterests(ctx context.Context, eventID string, interestIDs []string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM event_interests WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("clear event interests: %w", err)
	}
	for _, iid := range interestIDs {
		_, err := q.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO event_interests (event_id, interest_id) VALUES (?, ?)`, eventID, iid)
		if err != nil {
			if isForeignKeyError(err) {
				return fmt.Errorf("interest %s: %w", iid, store.ErrNotFound)
			}
			return fmt.Errorf("insert event interest: %w", err)
		}
	}
	return nil
}

func (q *queries) ListEvents(ctx context.Context, f store.ListFilter) ([]models.Event, error) {
	f = f.Normalize()

	var where []string
	var args []any
	if f.ExcludeStatus != "" {
		where = append(where, `e.status <> ?`)
		args = append(args, f.ExcludeStatus)
	}
	if f.InterestID != "" {
		where = append(where, `EXISTS (SELECT 1 FROM event_interests ei WHERE ei.event_id = e.id AND ei.interest_id = ?)`)
		args = append(args, f.InterestID)
	}

	query := `SELECT ` + prefixed("e", eventColumns) + ` FROM events e`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	if f.OrderBy == store.OrderByCreated {
		query += ` ORDER BY e.created_at DESC, e.id`
	} else {
		query += ` ORDER BY e.start_at ASC, e.id`
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (q *queries) EventInterests(ctx context.Context, eventIDs []string) (map[string][]models.Interest, error) {
	out := make(map[string][]models.Interest, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT ei.event_id, i.id, i.name, i.created_at
		 FROM event_interests ei JOIN interests i ON i.id = ei.interest_id
		 WHERE ei.event_id IN (`+placeholders(len(eventIDs))+`)
		 ORDER BY i.name`, stringArgs(eventIDs)...)
	if err != nil {
		return nil, fmt.Errorf("event interests: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var eventID string
		var i models.Interest
		if err := rows.Scan(&eventID, &i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interest: %w", err)
		}
		out[eventID] = append(out[eventID], i)
	}
	return out, rows.Err()
}

func (q *queries) EventAttendees(ctx context.Context, eventIDs []string, viewerID string) (map[string][]models.AttendeeSummary, error) {
	out := make(map[string][]models.AttendeeSummary, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	args := append([]any{viewerID}, stringArgs(eventIDs)...)
	rows, err := q.db.QueryContext(ctx,
		`SELECT a.event_id, u.id, u.name, u.profile_image,
		        EXISTS (SELECT 1 FROM user_follows f WHERE f.follower_id = ? AND f.followee_id = u.id)
		 FROM event_attendees a JOIN users u ON u.id = a.user_id
		 WHERE a.event_id IN (`+placeholders(len(eventIDs))+`)
		 ORDER BY a.joined_at, u.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("event attendees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var eventID string
		var a models.AttendeeSummary
		var followed int
		if err := rows.Scan(&eventID, &a.ID, &a.Name, &a.ProfileImage, &followed); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		a.Followed = followed != 0
		out[eventID] = append(out[eventID], a)
	}
	return out, rows.Err()
}

// ActiveEventEndings reads end_at as text so that one corrupt row is
// reported on its EventEnding instead of failing the whole scan.
func (q *queries) ActiveEventEndings(ctx context.Context) ([]models.EventEnding, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, CAST(end_at AS TEXT) FROM events WHERE status = ? ORDER BY id`,
		models.EventStatusActive)
	if err != nil {
		return nil, fmt.Errorf("scan active events: %w", err)
	}
	defer rows.Close()

	var out []models.EventEnding
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan event ending: %w", err)
		}
		ending := models.EventEnding{EventID: id}
		ending.EndAt, ending.Err = strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		out = append(out, ending)
	}
	return out, rows.Err()
}

func (q *queries) CompleteEvent(ctx context.Context, id string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE events SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.EventStatusCompleted, time.Now().UTC(), id, models.EventStatusActive)
	if err != nil {
		return false, fmt.Errorf("complete event: %w", err)
	}
	return affected(res)
}

func (q *queries) UpsertRating(ctx context.Context, r models.EventRating) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO event_ratings (event_id, user_id, rating, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(event_id, user_id) DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at`,
		r.EventID, r.UserID, r.Rating, now, now)
	if err != nil {
		if isForeignKeyError(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

func (q *queries) RecomputeRating(ctx context.Context, eventID string) (float64, error) {
	var avg float64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating), 0) FROM event_ratings WHERE event_id = ?`, eventID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `UPDATE events SET rating = ? WHERE id = ?`, avg, eventID)
	if err != nil {
		return 0, fmt.Errorf("store rating: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, store.ErrNotFound
	}
	return avg, nil
}

// prefixed qualifies every column in a comma separated list with alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
