package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"gorm.io/gorm/clause"
)

func (q *queries) CreateUser(ctx context.Context, u models.User) error {
	row := userRow{
		ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, Name: u.Name,
		ProfileImage: u.ProfileImage, Role: string(u.Role), IsBlocked: u.IsBlocked,
		DeviceToken: u.DeviceToken, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (q *queries) GetUser(ctx context.Context, id string) (models.User, error) {
	var row userRow
	if err := q.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.User{}, notFound(err)
	}
	return row.model(), nil
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var row userRow
	if err := q.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		return models.User{}, notFound(err)
	}
	return row.model(), nil
}

func (q *queries) SetUserBlocked(ctx context.Context, id string, blocked bool) error {
	return q.updateUser(ctx, id, map[string]any{"is_blocked": blocked})
}

func (q *queries) SetDeviceToken(ctx context.Context, id, token string) error {
	return q.updateUser(ctx, id, map[string]any{"device_token": token})
}

func (q *queries) updateUser(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := q.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) Follow(ctx context.Context, followerID, followeeID string) error {
	row := followRow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: time.Now().UTC()}
	err := q.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		if isForeignKey(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

func (q *queries) Unfollow(ctx context.Context, followerID, followeeID string) error {
	err := q.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&followRow{}).Error
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

func (q *queries) CreateInterest(ctx context.Context, i models.Interest) error {
	row := interestRow{ID: i.ID, Name: i.Name, CreatedAt: i.CreatedAt}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert interest: %w", err)
	}
	return nil
}

func (q *queries) ListInterests(ctx context.Context) ([]models.Interest, error) {
	var rows []interestRow
	if err := q.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	interests := make([]models.Interest, 0, len(rows))
	for _, r := range rows {
		interests = append(interests, models.Interest{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt})
	}
	return interests, nil
}

func (q *queries) InsertReport(ctx context.Context, r models.Report) error {
	row := reportRow{
		ID: r.ID, Type: int(r.Type), UserID: r.UserID,
		Reason: r.Reason, Description: r.Description, CreatedAt: r.CreatedAt,
	}
	if r.EventID != "" {
		row.EventID = &r.EventID
	}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (q *queries) GetReport(ctx context.Context, id string) (models.Report, error) {
	var row reportRow
	if err := q.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Report{}, notFound(err)
	}
	return row.model(), nil
}

func (q *queries) ListReports(ctx context.Context, t models.ReportType, offset, limit int) ([]models.Report, error) {
	var rows []reportRow
	err := q.db.WithContext(ctx).Where("type = ?", int(t)).
		Order("created_at DESC, id").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	reports := make([]models.Report, 0, len(rows))
	for _, r := range rows {
		reports = append(reports, r.model())
	}
	return reports, nil
}

func (q *queries) DeleteEventReports(ctx context.Context, eventID string) (int, error) {
	res := q.db.WithContext(ctx).Where("event_id = ?", eventID).Delete(&reportRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete reports: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (q *queries) DeleteUserReports(ctx context.Context, userID string) (int, error) {
	res := q.db.WithContext(ctx).
		Where("type = ? AND user_id = ?", int(models.ReportTypeUser), userID).Delete(&reportRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete user reports: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
