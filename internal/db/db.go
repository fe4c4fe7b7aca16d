// Package db handles SQLite initialisation and schema migrations.
//
// modernc.org/sqlite is a pure-Go port of SQLite, so the binary builds
// without CGo. The driver name is "sqlite".
package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	// Blank import: the modernc driver registers itself with
	// database/sql under the name "sqlite" when this package loads.
	_ "modernc.org/sqlite"
)

// DefaultDSN is the production file DSN. Every pooled connection gets the
// pragmas; _txlock=immediate makes BEGIN take the write lock up front so
// two read-modify-write transactions cannot interleave.
const DefaultDSN = "nearby.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"

// Open opens (or creates) the SQLite database at dsn and runs all migrations.
//
// Recommended DSN formats:
//   - Production file: DefaultDSN
//   - Tests:           "file:testXYZ?mode=memory&cache=shared&_pragma=foreign_keys(1)&_txlock=immediate"
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Debug("database ready", "dsn", dsn)
	return db, nil
}

// migrate runs each DDL statement in the schema individually. The drivers
// execute only the first statement of a multi-statement Exec, so the schema
// is split on ";".
func migrate(db *sql.DB) error {
	stmts := strings.Split(schema, ";")
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration statement failed: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

// schema contains every CREATE statement for the application.
//
//	events            : capacity is fixed at insert; available_slots is only
//	                     moved by the membership/request code paths. end_at is
//	                     the authoritative UTC end instant (unix seconds).
//	event_attendees   : one row per (event,user); the primary key is what
//	                     makes a duplicate join impossible.
//	event_requests    : at most one row per (event,user). Rejected and
//	                     cancelled rows are deleted before a new request.
//	event_ratings     : one score per (event,user); events.rating caches the mean.
//	reports           : moderation reports; event_id is NULL for user reports.
//	user_notifications: in-app notification rows, replaced rather than updated.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL,
    profile_image TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'user' CHECK(role IN ('user','admin')),
    is_blocked    INTEGER NOT NULL DEFAULT 0,
    device_token  TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_follows (
    follower_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    followee_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (follower_id, followee_id)
);

CREATE TABLE IF NOT EXISTS interests (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
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
    start_at        INTEGER NOT NULL,
    end_at          INTEGER NOT NULL,
    location_name   TEXT NOT NULL DEFAULT '',
    latitude        REAL NOT NULL,
    longitude       REAL NOT NULL,
    capacity        INTEGER NOT NULL CHECK(capacity >= 1),
    available_slots INTEGER NOT NULL CHECK(available_slots >= 0 AND available_slots <= capacity),
    status          TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active','completed')),
    is_public       INTEGER NOT NULL DEFAULT 1,
    rating          REAL NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
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
    joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS event_requests (
    id           TEXT PRIMARY KEY,
    event_id     TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    organizer_id TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'pending'
                     CHECK(status IN ('pending','approved','rejected','cancelled')),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS event_ratings (
    event_id   TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    rating     REAL NOT NULL CHECK(rating >= 0 AND rating <= 10),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS reports (
    id          TEXT PRIMARY KEY,
    type        INTEGER NOT NULL,
    user_id     TEXT NOT NULL,
    event_id    TEXT,
    reason      TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reports_event ON reports(event_id);
CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(type, user_id);

CREATE TABLE IF NOT EXISTS user_notifications (
    id         TEXT PRIMARY KEY,
    my_user_id TEXT NOT NULL,
    user_id    TEXT NOT NULL,
    item_id    TEXT NOT NULL,
    type       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_user_notifications_key ON user_notifications(my_user_id, user_id, item_id, type);
CREATE INDEX IF NOT EXISTS idx_user_notifications_item ON user_notifications(item_id)
`
