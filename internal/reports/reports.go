// Package reports handles moderation reports against events and users.
package reports

import (
	"context"
	"log/slog"
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

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service implements event and user reports.
type Service struct {
	store store.Store
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Service.
func New(s store.Store, logger *slog.Logger) *Service {
	return &Service{store: s, log: logging.OrDefault(logger), now: time.Now}
}

// AddEventReport files a report by userID against eventID.
func (s *Service) AddEventReport(ctx context.Context, userID, eventID string, req models.ReportEventRequest) (rep models.Report, err error) {
	ctx, span := telemetry.Start(ctx, "reports.AddEventReport", attribute.String("event_id", eventID))
	defer func() { telemetry.End(span, err) }()

	if err := validate.Struct(req); err != nil {
		return models.Report{}, err
	}
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		u, err := q.GetUser(ctx, userID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrUserNotFound, "load reporter")
		}
		if u.IsBlocked {
			return apperr.ErrUserBlocked
		}
		if _, err := q.GetEvent(ctx, eventID); err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "load event")
		}
		rep = models.Report{
			ID:          uuid.New().String(),
			Type:        models.ReportTypeEvent,
			UserID:      userID,
			EventID:     eventID,
			Reason:      req.Reason,
			Description: req.Description,
			CreatedAt:   s.now().UTC(),
		}
		if err := q.InsertReport(ctx, rep); err != nil {
			return apperr.Internal("insert report", err)
		}
		return nil
	})
	if err != nil {
		return models.Report{}, err
	}
	s.log.InfoContext(ctx, "event reported", "event_id", eventID, "report_id", rep.ID)
	return rep, nil
}

// AddUserReport files a report by reporterID against reportedID. A user
// who is already blocked cannot be reported again.
func (s *Service) AddUserReport(ctx context.Context, reporterID, reportedID string, req models.ReportUserRequest) (rep models.Report, err error) {
	ctx, span := telemetry.Start(ctx, "reports.AddUserReport", attribute.String("reported_user_id", reportedID))
	defer func() { telemetry.End(span, err) }()

	if err := validate.Struct(req); err != nil {
		return models.Report{}, err
	}
	if reporterID == reportedID {
		return models.Report{}, apperr.Validation("cannot report yourself")
	}
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		reporter, err := q.GetUser(ctx, reporterID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrUserNotFound, "load reporter")
		}
		if reporter.IsBlocked {
			return apperr.ErrUserBlocked
		}
		reported, err := q.GetUser(ctx, reportedID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrUserNotFound, "load reported user")
		}
		if reported.IsBlocked {
			return apperr.ErrUserAlreadyBlocked
		}
		rep = models.Report{
			ID:          uuid.New().String(),
			Type:        models.ReportTypeUser,
			UserID:      reportedID,
			Reason:      req.Reason,
			Description: req.Description,
			CreatedAt:   s.now().UTC(),
		}
		if err := q.InsertReport(ctx, rep); err != nil {
			return apperr.Internal("insert report", err)
		}
		return nil
	})
	if err != nil {
		return models.Report{}, err
	}
	s.log.InfoContext(ctx, "user reported", "reported_user_id", reportedID, "report_id", rep.ID)
	return rep, nil
}

// ListEventReports returns event reports newest first. A non-positive
// limit means the default page size.
func (s *Service) ListEventReports(ctx context.Context, offset, limit int) ([]models.Report, error) {
	return s.list(ctx, models.ReportTypeEvent, offset, limit)
}

// ListUserReports pages user reports like ListEventReports.
func (s *Service) ListUserReports(ctx context.Context, offset, limit int) ([]models.Report, error) {
	return s.list(ctx, models.ReportTypeUser, offset, limit)
}

func (s *Service) list(ctx context.Context, t models.ReportType, offset, limit int) ([]models.Report, error) {
	if offset < 0 {
		return nil, apperr.Validation("offset must be at least 0")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	reps, err := s.store.ListReports(ctx, t, offset, limit)
	if err != nil {
		return nil, apperr.Internal("list reports", err)
	}
	return reps, nil
}

// RejectEventReport dismisses the report and every other report on the
// same event. It returns how many reports were removed.
func (s *Service) RejectEventReport(ctx context.Context, reportID string) (removed int, err error) {
	ctx, span := telemetry.Start(ctx, "reports.RejectEventReport", attribute.String("report_id", reportID))
	defer func() { telemetry.End(span, err) }()

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		rep, err := q.GetReport(ctx, reportID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrReportNotFound, "load report")
		}
		if rep.Type != models.ReportTypeEvent || rep.EventID == "" {
			return apperr.ErrReportNotFound
		}
		removed, err = q.DeleteEventReports(ctx, rep.EventID)
		if err != nil {
			return apperr.Internal("delete reports", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// RejectUserReport dismisses the report and every other report against
// the same user.
func (s *Service) RejectUserReport(ctx context.Context, reportID string) (removed int, err error) {
	ctx, span := telemetry.Start(ctx, "reports.RejectUserReport", attribute.String("report_id", reportID))
	defer func() { telemetry.End(span, err) }()

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		rep, err := q.GetReport(ctx, reportID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrReportNotFound, "load report")
		}
		if rep.Type != models.ReportTypeUser {
			return apperr.ErrReportNotFound
		}
		removed, err = q.DeleteUserReports(ctx, rep.UserID)
		if err != nil {
			return apperr.Internal("delete reports", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteEventFromReport deletes the reported event, with the same cascade
// as an organizer delete, in one transaction.
func (s *Service) DeleteEventFromReport(ctx context.Context, reportID string) (eventID string, err error) {
	ctx, span := telemetry.Start(ctx, "reports.DeleteEventFromReport", attribute.String("report_id", reportID))
	defer func() { telemetry.End(span, err) }()

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		rep, err := q.GetReport(ctx, reportID)
		if err != nil {
			return apperr.FromStore(err, apperr.ErrReportNotFound, "load report")
		}
		if rep.Type != models.ReportTypeEvent || rep.EventID == "" {
			return apperr.ErrReportNotFound
		}
		eventID = rep.EventID
		if err := q.DeleteEvent(ctx, eventID); err != nil {
			return apperr.FromStore(err, apperr.ErrEventNotFound, "delete event")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.log.InfoContext(ctx, "event deleted from report", "event_id", eventID, "report_id", reportID)
	return eventID, nil
}
