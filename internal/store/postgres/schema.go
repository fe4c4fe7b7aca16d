package postgres

import (
	"time"

	"github.com/Elizabethomito/nearby/internal/models"
)

// schema mirrors the SQLite schema in internal/db with PostgreSQL types.
// end_at stays BIGINT unix seconds so both backends compare instants the
// same way.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL,
    profile_image TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user','admin')),
    is_blocked    BOOLEAN NOT NULL DEFAULT FALSE,
    device_token  TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_follows (
    follower_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    followee_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (follower_id, followee_id)
);

CREATE TABLE IF NOT EXISTS interests (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS events (
    id              TEXT PRIMARY KEY,
    organizer_id    TEXT NOT NULL REFERENCES users(id),
    title           TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    start_date      TEXT NOT NULL,
    start_time      TEXT NOT NULL,
    end_date        TEXT NOT NULL,
    end_time        TEXT NOT NULL,
    timezone        TEXT NOT NULL DEFAULT 'UTC',
    start_at        BIGINT NOT NULL,
    end_at          BIGINT NOT NULL,
    location_name   TEXT NOT NULL DEFAULT '',
    latitude        DOUBLE PRECISION NOT NULL,
    longitude       DOUBLE PRECISION NOT NULL,
    capacity        INTEGER NOT NULL CHECK (capacity >= 1),
    available_slots INTEGER NOT NULL CHECK (available_slots >= 0 AND available_slots <= capacity),
    status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','completed')),
    is_public       BOOLEAN NOT NULL DEFAULT TRUE,
    rating          DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_events_status_start ON events(status, start_at);

CREATE TABLE IF NOT EXISTS event_interests (
    event_id    TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    interest_id TEXT NOT NULL REFERENCES interests(id) ON DELETE CASCADE,
    PRIMARY KEY (event_id, interest_id)
);

CREATE TABLE IF NOT EXISTS event_attendees (
    event_id  TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS event_requests (
    id           TEXT PRIMARY KEY,
    event_id     TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    organizer_id TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'pending'
                     CHECK (status IN ('pending','approved','rejected','cancelled')),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS event_ratings (
    event_id   TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    rating     DOUBLE PRECISION NOT NULL CHECK (rating >= 0 AND rating <= 10),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS reports (
    id          TEXT PRIMARY KEY,
    type        INTEGER NOT NULL,
    user_id     TEXT NOT NULL,
    event_id    TEXT,
    reason      TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_event ON reports(event_id);
CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(type, user_id);

CREATE TABLE IF NOT EXISTS user_notifications (
    id         TEXT PRIMARY KEY,
    my_user_id TEXT NOT NULL,
    user_id    TEXT NOT NULL,
    item_id    TEXT NOT NULL,
    type       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_user_notifications_key ON user_notifications(my_user_id, user_id, item_id, type);
CREATE INDEX IF NOT EXISTS idx_user_notifications_item ON user_notifications(item_id)
`

// Row types map tables to GORM models. Every write that must store a zero
// value (false, 0, "") goes through Create or a map-based Updates, which
// both write zero values.

type userRow struct {
	ID           string `gorm:"primaryKey"`
	Email        string
	PasswordHash string
	Name         string
	ProfileImage string
	Role         string
	IsBlocked    bool
	DeviceToken  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) model() models.User {
	return models.User{
		ID: r.ID, Email: r.Email, PasswordHash: r.PasswordHash, Name: r.Name,
		ProfileImage: r.ProfileImage, Role: models.UserRole(r.Role), IsBlocked: r.IsBlocked,
		DeviceToken: r.DeviceToken, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type followRow struct {
	FollowerID string `gorm:"primaryKey"`
	FolloweeID string `gorm:"primaryKey"`
	CreatedAt  time.Time
}

func (followRow) TableName() string { return "user_follows" }

type interestRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
}

func (interestRow) TableName() string { return "interests" }

type eventRow struct {
	ID             string `gorm:"primaryKey"`
	OrganizerID    string
	Title          string
	Description    string
	StartDate      string
	StartTime      string
	EndDate        string
	EndTime        string
	Timezone       string
	StartAt        int64
	EndAt          int64
	LocationName   string
	Latitude       float64
	Longitude      float64
	Capacity       int
	AvailableSlots int
	Status         string
	IsPublic       bool
	Rating         float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (eventRow) TableName() string { return "events" }

func eventRowFrom(e models.Event) eventRow {
	return eventRow{
		ID: e.ID, OrganizerID: e.OrganizerID, Title: e.Title, Description: e.Description,
		StartDate: e.StartDate, StartTime: e.StartTime, EndDate: e.EndDate, EndTime: e.EndTime,
		Timezone: e.Timezone, StartAt: e.StartAt, EndAt: e.EndAt, LocationName: e.LocationName,
		Latitude: e.Latitude, Longitude: e.Longitude, Capacity: e.Capacity,
		AvailableSlots: e.AvailableSlots, Status: string(e.Status), IsPublic: e.IsPublic,
		Rating: e.Rating, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

func (r eventRow) model() models.Event {
	return models.Event{
		ID: r.ID, OrganizerID: r.OrganizerID, Title: r.Title, Description: r.Description,
		StartDate: r.StartDate, StartTime: r.StartTime, EndDate: r.EndDate, EndTime: r.EndTime,
		Timezone: r.Timezone, StartAt: r.StartAt, EndAt: r.EndAt, LocationName: r.LocationName,
		Latitude: r.Latitude, Longitude: r.Longitude, Capacity: r.Capacity,
		AvailableSlots: r.AvailableSlots, Status: models.EventStatus(r.Status), IsPublic: r.IsPublic,
		Rating: r.Rating, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type eventInterestRow struct {
	EventID    string `gorm:"primaryKey"`
	InterestID string `gorm:"primaryKey"`
}

func (eventInterestRow) TableName() string { return "event_interests" }

type attendeeRow struct {
	EventID  string `gorm:"primaryKey"`
	UserID   string `gorm:"primaryKey"`
	JoinedAt time.Time
}

func (attendeeRow) TableName() string { return "event_attendees" }

type requestRow struct {
	ID          string `gorm:"primaryKey"`
	EventID     string
	UserID      string
	OrganizerID string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (requestRow) TableName() string { return "event_requests" }

func (r requestRow) model() models.EventRequest {
	return models.EventRequest{
		ID: r.ID, EventID: r.EventID, UserID: r.UserID, OrganizerID: r.OrganizerID,
		Status: models.RequestStatus(r.Status), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type ratingRow struct {
	EventID   string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	Rating    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ratingRow) TableName() string { return "event_ratings" }

type reportRow struct {
	ID          string `gorm:"primaryKey"`
	Type        int
	UserID      string
	EventID     *string
	Reason      string
	Description string
	CreatedAt   time.Time
}

func (reportRow) TableName() string { return "reports" }

func (r reportRow) model() models.Report {
	rep := models.Report{
		ID: r.ID, Type: models.ReportType(r.Type), UserID: r.UserID,
		Reason: r.Reason, Description: r.Description, CreatedAt: r.CreatedAt,
	}
	if r.EventID != nil {
		rep.EventID = *r.EventID
	}
	return rep
}

type notificationRow struct {
	ID        string `gorm:"primaryKey"`
	MyUserID  string
	UserID    string
	ItemID    string
	Type      string
	CreatedAt time.Time
}

func (notificationRow) TableName() string { return "user_notifications" }
