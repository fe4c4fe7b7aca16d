package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
)

const userColumns = `id, email, password_hash, name, profile_image, role, is_blocked, device_token, created_at, updated_at`

func scanUser(row scanner) (models.User, error) {
	var u models.User
	var blocked int
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.ProfileImage,
		&u.Role, &blocked, &u.DeviceToken, &u.CreatedAt, &u.UpdatedAt)
	u.IsBlocked = blocked != 0
	return u, err
}

func (q *queries) CreateUser(ctx context.Context, u models.User) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.ProfileImage, u.Role,
		boolInt(u.IsBlocked), u.DeviceToken, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isConstraintError(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (q *queries) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return models.User{}, notFound(err)
	}
	return u, nil
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return models.User{}, notFound(err)
	}
	return u, nil
}

func (q *queries) SetUserBlocked(ctx context.Context, id string, blocked bool) error {
	return q.updateUser(ctx, `UPDATE users SET is_blocked = ?, updated_at = ? WHERE id = ?`,
		boolInt(blocked), time.Now().UTC(), id)
}

func (q *queries) SetDeviceToken(ctx context.Context, id, token string) error {
	return q.updateUser(ctx, `UPDATE users SET device_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().UTC(), id)
}

func (q *queries) updateUser(ctx context.Context, stmt string, args ...any) error {
	res, err := q.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
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

func (q *queries) Follow(ctx context.Context, followerID, followeeID string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)`,
		followerID, followeeID, time.Now().UTC())
	if err != nil {
		if isForeignKeyError(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

func (q *queries) Unfollow(ctx context.Context, followerID, followeeID string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM user_follows WHERE follower_id = ? AND followee_id = ?`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

func (q *queries) CreateInterest(ctx context.Context, i models.Interest) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO interests (id, name, created_at) VALUES (?, ?, ?)`, i.ID, i.Name, i.CreatedAt)
	if err != nil {
		if isConstraintError(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert interest: %w", err)
	}
	return nil
}

func (q *queries) ListInterests(ctx context.Context) ([]models.Interest, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, created_at FROM interests ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	defer rows.Close()

	interests := []models.Interest{}
	for rows.Next() {
		var i models.Interest
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interest: %w", err)
		}
		interests = append(interests, i)
	}
	return interests, rows.Err()
}

const reportColumns = `id, type, user_id, event_id, reason, description, created_at`

func scanReport(row scanner) (models.Report, error) {
	var r models.Report
	var eventID sql.NullString
	err := row.Scan(&r.ID, &r.Type, &r.UserID, &eventID, &r.Reason, &r.Description, &r.CreatedAt)
	r.EventID = eventID.String
	return r, err
}

func (q *queries) InsertReport(ctx context.Context, r models.Report) error {
	var eventID sql.NullString
	if r.EventID != "" {
		eventID = sql.NullString{String: r.EventID, Valid: true}
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO reports (`+reportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Type, r.UserID, eventID, r.Reason, r.Description, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (q *queries) GetReport(ctx context.Context, id string) (models.Report, error) {
	r, err := scanReport(q.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
	if err != nil {
		return models.Report{}, notFound(err)
	}
	return r, nil
}

func (q *queries) ListReports(ctx context.Context, t models.ReportType, offset, limit int) ([]models.Report, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE type = ?
		 ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, t, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (q *queries) DeleteEventReports(ctx context.Context, eventID string) (int, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM reports WHERE event_id = ?`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete reports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (q *queries) DeleteUserReports(ctx context.Context, userID string) (int, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM reports WHERE type = ? AND user_id = ?`, models.ReportTypeUser, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user reports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
