package events

import (
	"context"
	"errors"
	"strings"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/geo"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/Elizabethomito/nearby/internal/telemetry"
	"github.com/Elizabethomito/nearby/internal/validate"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Discover returns one page of non-completed events ranked by distance from
// (UserLat, UserLng). The store paginates first; ranking only reorders the
// page it returned. Events stored with out-of-range coordinates are logged
// and left out, so a page can come back shorter than Limit.
func (s *Service) Discover(ctx context.Context, req models.DiscoverRequest) (page []models.Event, err error) {
	ctx, span := telemetry.Start(ctx, "events.Discover",
		attribute.Int("limit", req.Limit), attribute.Int("offset", req.Offset))
	defer func() { telemetry.End(span, err) }()

	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	candidates, err := s.store.ListEvents(ctx, store.ListFilter{
		ExcludeStatus: models.EventStatusCompleted,
		InterestID:    req.Interest,
		Offset:        req.Offset,
		Limit:         req.Limit,
		OrderBy:       req.OrderBy,
	})
	if err != nil {
		return nil, apperr.Internal("list events", err)
	}

	valid := candidates[:0]
	for _, e := range candidates {
		if !geo.Valid(e.Latitude, e.Longitude) {
			s.log.WarnContext(ctx, "skipping event with invalid coordinates",
				"event_id", e.ID, "lat", e.Latitude, "lng", e.Longitude)
			continue
		}
		valid = append(valid, e)
	}
	if dropped := len(candidates) - len(valid); dropped > 0 {
		span.SetAttributes(attribute.Int("dropped", dropped))
	}

	ranked, err := geo.Rank(req.UserLat, req.UserLng, valid)
	if errors.Is(err, geo.ErrInvalidCoordinate) {
		return nil, apperr.Validation("user_lat and user_lng must be valid coordinates")
	}
	if err != nil {
		return nil, apperr.Internal("rank events", err)
	}
	page = make([]models.Event, len(ranked))
	for i, r := range ranked {
		d := r.DistanceKm
		page[i] = r.Event
		page[i].DistanceKm = &d
	}
	if err := s.hydrate(ctx, page, req.UserID); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("results", len(page)))
	return page, nil
}

// Rate stores userID's score for the event and refreshes the event's mean
// rating in the same transaction.
func (s *Service) Rate(ctx context.Context, eventID, userID string, req models.RateEventRequest) (mean float64, err error) {
	ctx, span := telemetry.Start(ctx, "events.Rate", attribute.String("event_id", eventID))
	defer func() { telemetry.End(span, err) }()

	if err := validate.Struct(req); err != nil {
		return 0, err
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.GetEvent(ctx, eventID); err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "load event")
		}
		u, err := q.GetUser(ctx, userID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrUserNotFound, "load user")
		}
		if u.IsBlocked {
			return apperr.ErrUserBlocked
		}
		if err := q.UpsertRating(ctx, models.EventRating{EventID: eventID, UserID: userID, Rating: *req.Rating}); err != nil {
			return apperr.Internal("store rating", err)
		}
		mean, err = q.RecomputeRating(ctx, eventID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "recompute rating")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return mean, nil
}

// CreateInterest adds a tag to the catalogue.
func (s *Service) CreateInterest(ctx context.Context, req models.CreateInterestRequest) (models.Interest, error) {
	if err := validate.Struct(req); err != nil {
		return models.Interest{}, err
	}
	in := models.Interest{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: s.opts.Now().UTC(),
	}
	if err := s.store.CreateInterest(ctx, in); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Interest{}, apperr.Validation("interest name already exists")
		}
		return models.Interest{}, apperr.Internal("create interest", err)
	}
	return in, nil
}

// ListInterests returns the whole catalogue ordered by name.
func (s *Service) ListInterests(ctx context.Context) ([]models.Interest, error) {
	interests, err := s.store.ListInterests(ctx)
	if err != nil {
		return nil, apperr.Internal("list interests", err)
	}
	return interests, nil
}
