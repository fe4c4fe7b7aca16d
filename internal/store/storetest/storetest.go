// Package storetest provides SQLite-backed stores and seed helpers for
// tests of packages built on store.Store.
package storetest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/Elizabethomito/nearby/internal/store/sqlite"
)

var counter atomic.Int64

// NewSQLite returns a migrated in-memory store private to the test.
func NewSQLite(t testing.TB) *sqlite.Store {
	t.Helper()
	n := counter.Add(1)
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared&_pragma=foreign_keys(1)&_txlock=immediate", n)
	s, err := sqlite.Open(dsn)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// NewSQLiteFile returns a migrated WAL file database in t.TempDir(). Use it
// when several goroutines write at once: the busy timeout and BEGIN
// IMMEDIATE then serialise writers the same way they do in production.
func NewSQLiteFile(t testing.TB) *sqlite.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nearby.db")
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
	s, err := sqlite.Open(dsn)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// SeedUser inserts a user with the given id and email id@test.com.
func SeedUser(t testing.TB, s store.Queries, id string) models.User {
	t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID: id, Email: id + "@test.com", PasswordHash: "x", Name: "User " + id,
		Role: models.RoleUser, DeviceToken: "device-" + id, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

// EventOption customises SeedEvent.
type EventOption func(*models.Event)

// WithEndAt sets the authoritative end instant.
func WithEndAt(endAt int64) EventOption {
	return func(e *models.Event) { e.StartAt, e.EndAt = endAt-3600, endAt }
}

// WithLocation sets the coordinates.
func WithLocation(lat, lng float64) EventOption {
	return func(e *models.Event) { e.Latitude, e.Longitude = lat, lng }
}

// Private marks the event as request-only.
func Private() EventOption {
	return func(e *models.Event) { e.IsPublic = false }
}

// WithSlots sets available_slots independently of capacity.
func WithSlots(n int) EventOption {
	return func(e *models.Event) { e.AvailableSlots = n }
}

// SeedEvent inserts an active public event with the given capacity and all
// slots free. The organizer is not attached as an attendee.
func SeedEvent(t testing.TB, s store.Queries, id, organizerID string, capacity int, opts ...EventOption) models.Event {
	t.Helper()
	now := time.Now().UTC()
	end := now.Add(24 * time.Hour).Unix()
	e := models.Event{
		ID: id, OrganizerID: organizerID, Title: "Event " + id,
		StartDate: "2030-01-01", StartTime: "10:00", EndDate: "2030-01-01", EndTime: "11:00",
		Timezone: "UTC", StartAt: end - 3600, EndAt: end,
		LocationName: "Somewhere", Capacity: capacity, AvailableSlots: capacity,
		Status: models.EventStatusActive, IsPublic: true, CreatedAt: now, UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&e)
	}
	if err := s.InsertEvent(context.Background(), e); err != nil {
		t.Fatalf("seed event %s: %v", id, err)
	}
	return e
}

// Event reloads an event, failing the test on error.
func Event(t testing.TB, s store.Queries, id string) models.Event {
	t.Helper()
	e, err := s.GetEvent(context.Background(), id)
	if err != nil {
		t.Fatalf("load event %s: %v", id, err)
	}
	return e
}

// AssertSlotAccounting fails the test unless available_slots equals
// capacity minus the number of attendees.
func AssertSlotAccounting(t testing.TB, s store.Queries, eventID string) {
	t.Helper()
	e := Event(t, s, eventID)
	n, err := s.CountAttendees(context.Background(), eventID)
	if err != nil {
		t.Fatalf("count attendees: %v", err)
	}
	if e.AvailableSlots+n != e.Capacity {
		t.Errorf("slot accounting broken for %s: available=%d attendees=%d capacity=%d",
			eventID, e.AvailableSlots, n, e.Capacity)
	}
}
