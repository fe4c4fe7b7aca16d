package models

import "time"

// UserRole defines the type of user account.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// EventStatus represents the lifecycle state of an event.
type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusCompleted EventStatus = "completed"
)

// RequestStatus is the state of a join request.
//
//	pending → approved → cancelled
//	pending → rejected
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transition can leave this status
// through the request workflow itself.
func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestCancelled
}

// NotificationType keys a UserNotification row.
type NotificationType string

const (
	NotificationJoinRequest  NotificationType = "event_join_request"
	NotificationJoinResponse NotificationType = "event_join_response"
)

// ReportType distinguishes what a Report row points at.
type ReportType int

const (
	ReportTypeUser  ReportType = 1
	ReportTypeEvent ReportType = 2
)

// User is a platform account. Users are referenced by events, never owned.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profile_image"`
	Role         UserRole  `json:"role"`
	IsBlocked    bool      `json:"is_blocked"`
	DeviceToken  string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Admin  bool
}

// Interest is a tag events can be filtered by.
type Interest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a location-based gathering created by an organizer.
//
// StartDate/StartTime/EndDate/EndTime are the organizer's local display
// values. EndAt is the authoritative end instant (UTC unix seconds) derived
// from them when they are written; expiry decisions use EndAt only.
type Event struct {
	ID             string      `json:"id"`
	OrganizerID    string      `json:"organizer_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	StartDate      string      `json:"start_date"`
	StartTime      string      `json:"start_time"`
	EndDate        string      `json:"end_date"`
	EndTime        string      `json:"end_time"`
	Timezone       string      `json:"timezone"`
	StartAt        int64       `json:"start_at"`
	EndAt          int64       `json:"end_at"`
	LocationName   string      `json:"location"`
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	Capacity       int         `json:"capacity"`
	AvailableSlots int         `json:"available_slots"`
	Status         EventStatus `json:"status"`
	IsPublic       bool        `json:"is_public"`
	Rating         float64     `json:"rating"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// Populated on read
	InterestIDs []string          `json:"interest_ids,omitempty"`
	Interests   []Interest        `json:"interests,omitempty"`
	Attendees   []AttendeeSummary `json:"attendees,omitempty"`
	DistanceKm  *float64          `json:"distance_km,omitempty"`
}

// AttendeeSummary is the public view of an attendee shown with an event.
type AttendeeSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profile_image"`
	// Followed is true when the viewing user follows this attendee.
	Followed bool `json:"followed"`
}

// EventRequest is a user's request to join an event gated by the organizer.
type EventRequest struct {
	ID          string        `json:"id"`
	EventID     string        `json:"event_id"`
	UserID      string        `json:"user_id"`
	OrganizerID string        `json:"organizer_id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// EventRating is one user's score for an event, in [0,10].
type EventRating struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// Report flags an event or a user for moderation. For an event report
// UserID is the reporter; for a user report it is the reported user and
// EventID is empty.
type Report struct {
	ID          string     `json:"id"`
	Type        ReportType `json:"type"`
	UserID      string     `json:"user_id"`
	EventID     string     `json:"event_id,omitempty"`
	Reason      string     `json:"reason"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}

// UserNotification is the in-app notification row for MyUserID about an
// action UserID took on ItemID.
type UserNotification struct {
	ID        string           `json:"id"`
	MyUserID  string           `json:"my_user_id"`
	UserID    string           `json:"user_id"`
	ItemID    string           `json:"item_id"`
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"created_at"`
}

// EventEnding is one row of the sweeper scan. Err is set when the stored
// end instant could not be read as an integer.
type EventEnding struct {
	EventID string
	EndAt   int64
	Err     error
}

// ---- Request / Response DTOs ----

// Envelope is the uniform response body of the HTTP surface.
type Envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type DeviceTokenRequest struct {
	DeviceToken string `json:"device_token" validate:"required"`
}

type CreateInterestRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateEventRequest is the typed body of POST /api/events. Dates are
// YYYY-MM-DD and times HH:MM in Timezone (an IANA name).
type CreateEventRequest struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	StartDate    string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	StartTime    string   `json:"start_time" validate:"required,datetime=15:04"`
	EndDate      string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	EndTime      string   `json:"end_time" validate:"required,datetime=15:04"`
	Timezone     string   `json:"timezone"`
	LocationName string   `json:"location" validate:"required"`
	Latitude     *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Capacity     int      `json:"capacity" validate:"required,min=1"`
	IsPublic     *bool    `json:"is_public"`
	InterestIDs  []string `json:"interest_ids"`
}

// UpdateEventRequest carries a partial update. Nil fields are left as-is.
// Capacity is accepted only so an attempt to change it can be rejected.
type UpdateEventRequest struct {
	Title        *string   `json:"title" validate:"omitempty,min=1"`
	Description  *string   `json:"description"`
	StartDate    *string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	StartTime    *string   `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndDate      *string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	EndTime      *string   `json:"end_time" validate:"omitempty,datetime=15:04"`
	Timezone     *string   `json:"timezone"`
	LocationName *string   `json:"location" validate:"omitempty,min=1"`
	Latitude     *float64  `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude    *float64  `json:"longitude" validate:"omitempty,min=-180,max=180"`
	IsPublic     *bool     `json:"is_public"`
	Capacity     *int      `json:"capacity"`
	InterestIDs  *[]string `json:"interest_ids"`
}

// DiscoverRequest is the discovery query surface.
type DiscoverRequest struct {
	UserID   string  `json:"user_id"`
	UserLat  float64 `json:"user_lat" validate:"min=-90,max=90"`
	UserLng  float64 `json:"user_lng" validate:"min=-180,max=180"`
	Interest string  `json:"interest"`
	Limit    int     `json:"limit" validate:"min=0,max=10"`
	Offset   int     `json:"offset" validate:"min=0"`
	OrderBy  string  `json:"order" validate:"omitempty,oneof=start created"`
}

type ResolveRequestBody struct {
	Decision RequestStatus `json:"decision" validate:"required,oneof=approved rejected"`
}

type RateEventRequest struct {
	Rating *float64 `json:"rating" validate:"required,min=0,max=10"`
}

type ReportEventRequest struct {
	Reason      string `json:"reason" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type ReportUserRequest struct {
	Reason      string `json:"reason" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// SweepResult is returned by the expiry surface.
type SweepResult struct {
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
}
