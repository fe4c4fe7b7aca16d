// Package events owns event records: creation, edits, deletion, discovery
// and ratings.
//
// Counters (available_slots) are never written here after creation; they
// belong to the membership and workflow packages.
package events

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/logging"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/Elizabethomito/nearby/internal/telemetry"
	"github.com/Elizabethomito/nearby/internal/validate"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Options configures a Service.
type Options struct {
	// OrganizerConsumesSlot attaches the organizer as an attendee on create.
	OrganizerConsumesSlot bool
	// DefaultTimezone applies when a create request names none. Empty is UTC.
	DefaultTimezone string
	Logger          *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service implements the event operations.
type Service struct {
	store store.Store
	opts  Options
	log   *slog.Logger
}

// New creates a Service.
func New(s store.Store, opts Options) *Service {
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "UTC"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: s, opts: opts, log: logging.OrDefault(opts.Logger)}
}

// Create inserts a new active event owned by organizerID. With
// OrganizerConsumesSlot the organizer becomes the first attendee and the
// event starts with capacity-1 free slots.
func (s *Service) Create(ctx context.Context, organizerID string, req models.CreateEventRequest) (ev models.Event, err error) {
	ctx, span := telemetry.Start(ctx, "events.Create", attribute.String("organizer_id", organizerID))
	defer func() { telemetry.End(span, err) }()

	if err := validate.Struct(req); err != nil {
		return models.Event{}, err
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = s.opts.DefaultTimezone
	}
	sched := schedule{
		StartDate: req.StartDate, StartTime: req.StartTime,
		EndDate: req.EndDate, EndTime: req.EndTime,
		Timezone: tz,
	}
	if err := sched.resolve(); err != nil {
		return models.Event{}, err
	}

	now := s.opts.Now().UTC()
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	ev = models.Event{
		ID:             uuid.New().String(),
		OrganizerID:    organizerID,
		Title:          req.Title,
		Description:    req.Description,
		StartDate:      sched.StartDate,
		StartTime:      sched.StartTime,
		EndDate:        sched.EndDate,
		EndTime:        sched.EndTime,
		Timezone:       sched.Timezone,
		StartAt:        sched.StartAt,
		EndAt:          sched.EndAt,
		LocationName:   req.LocationName,
		Latitude:       *req.Latitude,
		Longitude:      *req.Longitude,
		Capacity:       req.Capacity,
		AvailableSlots: req.Capacity,
		Status:         models.EventStatusActive,
		IsPublic:       isPublic,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if s.opts.OrganizerConsumesSlot {
		ev.AvailableSlots = req.Capacity - 1
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		organizer, err := q.GetUser(ctx, organizerID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrUserNotFound, "load organizer")
		}
		if organizer.IsBlocked {
			return apperr.ErrUserBlocked
		}
		if err := q.InsertEvent(ctx, ev); err != nil {
			return apperr.Internal("insert event", err)
		}
		if err := q.SetEventInterests(ctx, ev.ID, req.InterestIDs); err != nil {
			return apperr.FromStore(err, apperr.Validation("interest_ids contains an unknown interest"), "set interests")
		}
		if s.opts.OrganizerConsumesSlot {
			if err := q.AddAttendee(ctx, ev.ID, organizerID); err != nil {
				return apperr.Internal("attach organizer", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Event{}, err
	}

	s.log.InfoContext(ctx, "event created", "event_id", ev.ID, "organizer_id", organizerID,
		"capacity", ev.Capacity, "available_slots", ev.AvailableSlots)
	return s.Get(ctx, ev.ID, organizerID)
}

// Get returns one event with its interests and attendees. viewerID drives
// the attendees' followed flag and may be empty.
func (s *Service) Get(ctx context.Context, id, viewerID string) (ev models.Event, err error) {
	ctx, span := telemetry.Start(ctx, "events.Get", attribute.String("event_id", id))
	defer func() { telemetry.End(span, err) }()

	ev, err = s.store.GetEvent(ctx, id)
	if err != nil {
		return models.Event{}, apperr.FromStore(err, apperr.ErrEventNotFound, "load event")
	}
	page := []models.Event{ev}
	if err := s.hydrate(ctx, page, viewerID); err != nil {
		return models.Event{}, err
	}
	return page[0], nil
}

// Update applies a partial edit to descriptive fields. A capacity that
// differs from the stored one is rejected with CAPACITY_IMMUTABLE. When any
// date, time or timezone field changes the end instant is derived again.
func (s *Service) Update(ctx context.Context, id string, actor models.Actor, req models.UpdateEventRequest) (ev models.Event, err error) {
	ctx, span := telemetry.Start(ctx, "events.Update", attribute.String("event_id", id))
	defer func() { telemetry.End(span, err) }()

	if err := validate.Struct(req); err != nil {
		return models.Event{}, err
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		cur, err := q.LockEvent(ctx, id)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "load event")
		}
		if !actor.Admin && cur.OrganizerID != actor.UserID {
			return apperr.New(apperr.CodeNotOrganizer, "only the organizer can edit this event")
		}
		if req.Capacity != nil && *req.Capacity != cur.Capacity {
			return apperr.ErrCapacityImmutable
		}

		applyString(&cur.Title, req.Title)
		applyString(&cur.Description, req.Description)
		applyString(&cur.LocationName, req.LocationName)
		if req.Latitude != nil {
			cur.Latitude = *req.Latitude
		}
		if req.Longitude != nil {
			cur.Longitude = *req.Longitude
		}
		if req.IsPublic != nil {
			cur.IsPublic = *req.IsPublic
		}

		if req.StartDate != nil || req.StartTime != nil || req.EndDate != nil || req.EndTime != nil || req.Timezone != nil {
			sched := schedule{
				StartDate: cur.StartDate, StartTime: cur.StartTime,
				EndDate: cur.EndDate, EndTime: cur.EndTime,
				Timezone: cur.Timezone,
			}
			applyString(&sched.StartDate, req.StartDate)
			applyString(&sched.StartTime, req.StartTime)
			applyString(&sched.EndDate, req.EndDate)
			applyString(&sched.EndTime, req.EndTime)
			applyString(&sched.Timezone, req.Timezone)
			if err := sched.resolve(); err != nil {
				return err
			}
			cur.StartDate, cur.StartTime = sched.StartDate, sched.StartTime
			cur.EndDate, cur.EndTime = sched.EndDate, sched.EndTime
			cur.Timezone, cur.StartAt, cur.EndAt = sched.Timezone, sched.StartAt, sched.EndAt
		}
		cur.UpdatedAt = s.opts.Now().UTC()

		if err := q.UpdateEventDetails(ctx, cur); err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "update event")
		}
		if req.InterestIDs != nil {
			if err := q.SetEventInterests(ctx, id, *req.InterestIDs); err != nil {
				return apperr.FromStore(err, apperr.Validation("interest_ids contains an unknown interest"), "set interests")
			}
		}
		return nil
	})
	if err != nil {
		return models.Event{}, err
	}
	return s.Get(ctx, id, actor.UserID)
}

// Delete removes the event and everything that references it in one
// transaction. Only the organizer or an admin may delete.
func (s *Service) Delete(ctx context.Context, id string, actor models.Actor) (err error) {
	ctx, span := telemetry.Start(ctx, "events.Delete", attribute.String("event_id", id))
	defer func() { telemetry.End(span, err) }()

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		cur, err := q.LockEvent(ctx, id)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "load event")
		}
		if !actor.Admin && cur.OrganizerID != actor.UserID {
			return apperr.New(apperr.CodeNotOrganizer, "only the organizer can delete this event")
		}
		if err := q.DeleteEvent(ctx, id); err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "delete event")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "event deleted", "event_id", id, "by", actor.UserID)
	return nil
}

// hydrate fills Interests, InterestIDs and Attendees on every event in page
// with one query per relation.
func (s *Service) hydrate(ctx context.Context, page []models.Event, viewerID string) error {
	if len(page) == 0 {
		return nil
	}
	ids := make([]string, len(page))
	for i, e := range page {
		ids[i] = e.ID
	}
	interests, err := s.store.EventInterests(ctx, ids)
	if err != nil {
		return apperr.Internal("load interests", err)
	}
	attendees, err := s.store.EventAttendees(ctx, ids, viewerID)
	if err != nil {
		return apperr.Internal("load attendees", err)
	}
	for i := range page {
		page[i].Interests = interests[page[i].ID]
		page[i].InterestIDs = nil
		for _, in := range page[i].Interests {
			page[i].InterestIDs = append(page[i].InterestIDs, in.ID)
		}
		page[i].Attendees = attendees[page[i].ID]
	}
	return nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
