// Package apperr defines the error taxonomy shared by every core operation.
//
// Core services never return raw storage or driver errors to their callers.
// They return an *Error carrying a Kind (which class of failure) and a Code
// (which specific failure), so the HTTP layer can pick a status code and a
// client can branch on the code without parsing messages.
package apperr

import (
	"errors"
	"fmt"

	"github.com/Elizabethomito/nearby/internal/store"
)

// Kind groups codes into the four caller-visible failure classes plus Internal.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindAuthorization Kind = "authorization"
	KindInternal      Kind = "internal"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation         Code = "VALIDATION"
	CodeEventNotFound      Code = "EVENT_NOT_FOUND"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeReportNotFound     Code = "REPORT_NOT_FOUND"
	CodeAlreadyMember      Code = "ALREADY_MEMBER"
	CodeAlreadyRequested   Code = "ALREADY_REQUESTED"
	CodeSlotsExhausted     Code = "SLOTS_EXHAUSTED"
	CodeNotAMember         Code = "NOT_A_MEMBER"
	CodeNoPendingRequest   Code = "NO_PENDING_REQUEST"
	CodeEventClosed        Code = "EVENT_CLOSED"
	CodeRequestRequired    Code = "REQUEST_REQUIRED"
	CodeCapacityImmutable  Code = "CAPACITY_IMMUTABLE"
	CodeEmailTaken         Code = "EMAIL_TAKEN"
	CodeNotOrganizer       Code = "NOT_ORGANIZER"
	CodeUserBlocked        Code = "USER_BLOCKED"
	CodeUserAlreadyBlocked Code = "USER_ALREADY_BLOCKED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeInternal           Code = "INTERNAL"
)

var codeKinds = map[Code]Kind{
	CodeValidation:         KindValidation,
	CodeCapacityImmutable:  KindValidation,
	CodeEventNotFound:      KindNotFound,
	CodeUserNotFound:       KindNotFound,
	CodeReportNotFound:     KindNotFound,
	CodeAlreadyMember:      KindConflict,
	CodeAlreadyRequested:   KindConflict,
	CodeSlotsExhausted:     KindConflict,
	CodeNotAMember:         KindConflict,
	CodeNoPendingRequest:   KindConflict,
	CodeEventClosed:        KindConflict,
	CodeRequestRequired:    KindConflict,
	CodeEmailTaken:         KindConflict,
	CodeUserAlreadyBlocked: KindConflict,
	CodeNotOrganizer:       KindAuthorization,
	CodeUserBlocked:        KindAuthorization,
	CodeInvalidCredentials: KindAuthorization,
	CodeInternal:           KindInternal,
}

// Error is the domain error returned by core operations.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the failure class of the error's code.
func (e *Error) Kind() Kind {
	if k, ok := codeKinds[e.Code]; ok {
		return k
	}
	return KindInternal
}

// New creates a domain error with a code and caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Internal wraps an unexpected failure. The message is for logs only.
func Internal(message string, cause error) *Error {
	return Wrap(CodeInternal, message, cause)
}

// Validation returns a validation error with the given message.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Sentinels for errors.Is comparisons in callers and tests.
var (
	ErrEventNotFound      = New(CodeEventNotFound, "event not found")
	ErrUserNotFound       = New(CodeUserNotFound, "user not found")
	ErrReportNotFound     = New(CodeReportNotFound, "report not found")
	ErrAlreadyMember      = New(CodeAlreadyMember, "user is already a member of this event")
	ErrAlreadyRequested   = New(CodeAlreadyRequested, "a join request is already pending")
	ErrSlotsExhausted     = New(CodeSlotsExhausted, "no slots available for this event")
	ErrNotAMember         = New(CodeNotAMember, "user is not a member of this event")
	ErrNoPendingRequest   = New(CodeNoPendingRequest, "no pending request for this user")
	ErrEventClosed        = New(CodeEventClosed, "event is no longer active")
	ErrRequestRequired    = New(CodeRequestRequired, "this event only accepts join requests")
	ErrCapacityImmutable  = New(CodeCapacityImmutable, "capacity cannot be changed after creation")
	ErrEmailTaken         = New(CodeEmailTaken, "email already registered")
	ErrNotOrganizer       = New(CodeNotOrganizer, "only the organizer can resolve requests")
	ErrUserBlocked        = New(CodeUserBlocked, "user is blocked")
	ErrInvalidCredentials = New(CodeInvalidCredentials, "invalid email or password")
	ErrUserAlreadyBlocked = New(CodeUserAlreadyBlocked, "user already blocked")
)

// KindOf returns the failure class of err. Errors that are not *Error are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindInternal
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Message returns a message safe to show to a caller. Internal failures
// never expose their cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind() != KindInternal {
		return e.Message
	}
	return "internal error"
}

// FromStore maps an error from a store call. Domain errors pass through,
// store.ErrNotFound becomes notFound and anything else is Internal(op).
func FromStore(err error, notFound *Error, op string) error {
	var e *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return err
	case errors.Is(err, store.ErrNotFound):
		return notFound
	default:
		return Internal(op, err)
	}
}
