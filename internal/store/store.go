// Package store declares the persistence contracts the core services use.
//
// Two implementations exist: store/sqlite (embedded, the default) and
// store/postgres (GORM, row-level locks). Services only see these
// interfaces, and every mutation that touches a counter or a status runs
// inside Store.WithTx.
package store

import (
	"context"
	"errors"

	"github.com/Elizabethomito/nearby/internal/models"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("store: conflict")
)

// MaxPageSize caps ListFilter.Limit.
const MaxPageSize = 10

// Event list orderings.
const (
	OrderByStart   = "start"
	OrderByCreated = "created"
)

// ListFilter selects one page of events.
type ListFilter struct {
	// ExcludeStatus drops events in this status when non-empty.
	ExcludeStatus models.EventStatus
	// InterestID keeps only events tagged with this interest when non-empty.
	InterestID string
	Offset     int
	Limit      int
	// OrderBy is OrderByStart (default) or OrderByCreated.
	OrderBy string
}

// Normalize clamps Limit into [1, MaxPageSize] and Offset to ≥ 0.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.OrderBy != OrderByCreated {
		f.OrderBy = OrderByStart
	}
	return f
}

// Queries is the set of reads and writes available both inside and outside
// a transaction.
type Queries interface {
	// Events
	GetEvent(ctx context.Context, id string) (models.Event, error)
	// LockEvent reads the event and holds a write lock on its row until the
	// surrounding transaction ends. Outside a transaction it behaves like
	// GetEvent.
	LockEvent(ctx context.Context, id string) (models.Event, error)
	InsertEvent(ctx context.Context, e models.Event) error
	// UpdateEventDetails writes descriptive fields only. Capacity,
	// available_slots, status and rating are never written here.
	UpdateEventDetails(ctx context.Context, e models.Event) error
	// DeleteEvent removes the event and every row that depends on it.
	DeleteEvent(ctx context.Context, id string) error
	SetEventInterests(ctx context.Context, eventID string, interestIDs []string) error
	ListEvents(ctx context.Context, f ListFilter) ([]models.Event, error)
	EventInterests(ctx context.Context, eventIDs []string) (map[string][]models.Interest, error)
	EventAttendees(ctx context.Context, eventIDs []string, viewerID string) (map[string][]models.AttendeeSummary, error)
	ActiveEventEndings(ctx context.Context) ([]models.EventEnding, error)
	// CompleteEvent moves an active event to completed. It reports false
	// when the event was not active.
	CompleteEvent(ctx context.Context, id string) (bool, error)

	// Membership
	IsAttendee(ctx context.Context, eventID, userID string) (bool, error)
	// AddAttendee returns ErrConflict when the link already exists.
	AddAttendee(ctx context.Context, eventID, userID string) error
	RemoveAttendee(ctx context.Context, eventID, userID string) (bool, error)
	CountAttendees(ctx context.Context, eventID string) (int, error)
	// TakeSlot decrements available_slots if it is positive.
	TakeSlot(ctx context.Context, eventID string) (bool, error)
	// ReleaseSlot increments available_slots if it is below capacity.
	ReleaseSlot(ctx context.Context, eventID string) (bool, error)

	// Requests
	FindRequest(ctx context.Context, eventID, userID string) (models.EventRequest, error)
	// InsertRequest returns ErrConflict when a row for the pair exists.
	InsertRequest(ctx context.Context, r models.EventRequest) error
	DeleteRequest(ctx context.Context, id string) error
	// TransitionRequest moves a request from one status to another and
	// reports false when the request was not in the from status.
	TransitionRequest(ctx context.Context, id string, from, to models.RequestStatus) (bool, error)

	// ReplaceNotification deletes any notification with the same
	// (my_user_id, user_id, item_id, type) and inserts n.
	ReplaceNotification(ctx context.Context, n models.UserNotification) error

	// Ratings
	UpsertRating(ctx context.Context, r models.EventRating) error
	// RecomputeRating stores the mean of all ratings on the event row.
	RecomputeRating(ctx context.Context, eventID string) (float64, error)

	// Reports
	InsertReport(ctx context.Context, r models.Report) error
	GetReport(ctx context.Context, id string) (models.Report, error)
	ListReports(ctx context.Context, t models.ReportType, offset, limit int) ([]models.Report, error)
	DeleteEventReports(ctx context.Context, eventID string) (int, error)
	// DeleteUserReports removes every user report against userID.
	DeleteUserReports(ctx context.Context, userID string) (int, error)

	// Users
	// CreateUser returns ErrConflict when the email is taken.
	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	SetUserBlocked(ctx context.Context, id string, blocked bool) error
	SetDeviceToken(ctx context.Context, id, token string) error
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error

	// Interests
	// CreateInterest returns ErrConflict when the name is taken.
	CreateInterest(ctx context.Context, i models.Interest) error
	ListInterests(ctx context.Context) ([]models.Interest, error)
}

// Store is a Queries bound to the database plus transaction control.
type Store interface {
	Queries
	// WithTx runs fn in a single transaction. fn's Queries see only the
	// transaction. The transaction commits when fn returns nil and rolls
	// back otherwise; fn's error is returned unchanged.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Close() error
}
