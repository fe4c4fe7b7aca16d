package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store/sqlite"
	"github.com/Elizabethomito/nearby/internal/store/storetest"
)

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T, consumes bool) (*Service, *sqlite.Store) {
	t.Helper()
	s := storetest.NewSQLite(t)
	svc := New(s, Options{OrganizerConsumesSlot: consumes})
	return svc, s
}

func validCreate() models.CreateEventRequest {
	return models.CreateEventRequest{
		Title:        "Picnic",
		StartDate:    "2030-06-01",
		StartTime:    "10:00",
		EndDate:      "2030-06-01",
		EndTime:      "14:30",
		Timezone:     "Europe/Madrid",
		LocationName: "Retiro",
		Latitude:     ptr(40.4153),
		Longitude:    ptr(-3.6844),
		Capacity:     3,
	}
}

func TestCreate_OrganizerConsumesSlot(t *testing.T) {
	svc, s := newService(t, true)
	storetest.SeedUser(t, s, "org")

	ev, err := svc.Create(context.Background(), "org", validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ev.AvailableSlots != 2 || ev.Capacity != 3 {
		t.Errorf("slots: got %d/%d, want 2/3", ev.AvailableSlots, ev.Capacity)
	}
	if len(ev.Attendees) != 1 || ev.Attendees[0].ID != "org" {
		t.Errorf("organizer should be the only attendee: %+v", ev.Attendees)
	}
	if ev.Status != models.EventStatusActive || !ev.IsPublic {
		t.Errorf("status/public: %s %v", ev.Status, ev.IsPublic)
	}
	storetest.AssertSlotAccounting(t, s, ev.ID)
}

func TestCreate_OrganizerNotAttached(t *testing.T) {
	svc, s := newService(t, false)
	storetest.SeedUser(t, s, "org")

	ev, err := svc.Create(context.Background(), "org", validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ev.AvailableSlots != 3 || len(ev.Attendees) != 0 {
		t.Errorf("got slots=%d attendees=%d", ev.AvailableSlots, len(ev.Attendees))
	}
}

func TestCreate_EndInstantUsesTimezone(t *testing.T) {
	svc, s := newService(t, true)
	storetest.SeedUser(t, s, "org")

	ev, err := svc.Create(context.Background(), "org", validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// 14:30 in Madrid in June is 12:30 UTC (CEST, +02:00).
	want := time.Date(2030, 6, 1, 12, 30, 0, 0, time.UTC).Unix()
	if ev.EndAt != want {
		t.Errorf("EndAt: got %d, want %d", ev.EndAt, want)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, s := newService(t, true)
	storetest.SeedUser(t, s, "org")

	tests := []struct {
		name   string
		mutate func(*models.CreateEventRequest)
	}{
		{"missing title", func(r *models.CreateEventRequest) { r.Title = "" }},
		{"zero capacity", func(r *models.CreateEventRequest) { r.Capacity = 0 }},
		{"bad latitude", func(r *models.CreateEventRequest) { r.Latitude = ptr(123.0) }},
		{"missing longitude", func(r *models.CreateEventRequest) { r.Longitude = nil }},
		{"bad time", func(r *models.CreateEventRequest) { r.EndTime = "25:99" }},
		{"bad timezone", func(r *models.CreateEventRequest) { r.Timezone = "Mars/Olympus" }},
		{"ends before start", func(r *models.CreateEventRequest) { r.EndTime = "09:00" }},
		{"unknown interest", func(r *models.CreateEventRequest) { r.InterestIDs = []string{"nope"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), "org", req)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreate_UnknownOrganizer(t *testing.T) {
	svc, _ := newService(t, true)
	_, err := svc.Create(context.Background(), "ghost", validCreate())
	if !errors.Is(err, apperr.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdate_CapacityImmutable(t *testing.T) {
	svc, s := newService(t, true)
	storetest.SeedUser(t, s, "org")
	ev, _ := svc.Create(context.Background(), "org", validCreate())
	actor := models.Actor{UserID: "org"}

	_, err := svc.Update(context.Background(), ev.ID, actor, models.UpdateEventRequest{Capacity: ptr(10)})
	if !errors.Is(err, apperr.ErrCapacityImmutable) {
		t.Fatalf("expected ErrCapacityImmutable, got %v", err)
	}
	// Same value is not a change.
	if _, err := svc.Update(context.Background(), ev.ID, actor, models.UpdateEventRequest{Capacity: ptr(3)}); err != nil {
		t.Errorf("unchanged capacity: %v", err)
	}
	got := storetest.Event(t, s, ev.ID)
	if got.Capacity != 3 || got.AvailableSlots != 2 {
		t.Errorf("counters changed: %d/%d", got.AvailableSlots, got.Capacity)
	}
}

func TestUpdate_RecomputesEndInstant(t *testing.T) {
	svc, s := newService(t, true)
	storetest.SeedUser(t, s, "org")
	ev, _ := svc.Create(context.Background(), "org", validCreate())

	updated, err := svc.Update(context.Background(), ev.ID, models.Actor{UserID: "org"}, models.UpdateEventRequest{
		Title:    ptr("Evening picnic"),
		EndTime:  ptr("20:00"),
		Timezone: ptr("UTC"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := time.Date(2030, 6, 1, 20, 0, 0, 0, time.UTC).Unix()
	if updated.EndAt != want || updated.Title != "Evening picnic" {
		t.Errorf("got title=%q end_at=%d, want end_at=%d", updated.Title, updated.EndAt, want)
	}
	if updated.AvailableSlots != ev.AvailableSlots {
		t.Errorf("available_slots changed by an edit")
	}
}

func TestUpdate_OnlyOrganizerOrAdmin(t *testing.T) {
	svc, s := newService(t, true)
	storetest.SeedUser(t, s, "org")
	storetest.SeedUser(t, s, "other")
	ev, _ := svc.Create(context.Background(), "org", validCreate())

	_, err := svc.Update(context.Background(), ev.ID, models.Actor{UserID: "other"}, models.UpdateEventRequest{Title: ptr("x")})
	if apperr.CodeOf(err) != apperr.CodeNotOrganizer {
		t.Errorf("expected NOT_ORGANIZER, got %v", err)
	}
	if _, err := svc.Update(context.Background(), ev.ID, models.Actor{UserID: "other", Admin: true}, models.UpdateEventRequest{Title: ptr("x")}); err != nil {
		t.Errorf("admin edit: %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, s := newService(t, true)
	storetest.SeedUser(t, s, "org")
	ev, _ := svc.Create(context.Background(), "org", validCreate())

	if err := svc.Delete(context.Background(), ev.ID, models.Actor{UserID: "org"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), ev.ID, ""); !errors.Is(err, apperr.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound after delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), ev.ID, models.Actor{UserID: "org"}); !errors.Is(err, apperr.ErrEventNotFound) {
		t.Errorf("second delete: expected ErrEventNotFound, got %v", err)
	}
}

func TestDiscover_RanksWithinPage(t *testing.T) {
	svc, s := newService(t, false)
	storetest.SeedUser(t, s, "org")
	storetest.SeedUser(t, s, "viewer")
	now := time.Now().UTC().Unix()
	// Start order: far, near, mid. Distance order: near, mid, far.
	storetest.SeedEvent(t, s, "far", "org", 5, storetest.WithEndAt(now+3600), storetest.WithLocation(0, 3))
	storetest.SeedEvent(t, s, "near", "org", 5, storetest.WithEndAt(now+7200), storetest.WithLocation(0, 0.1))
	storetest.SeedEvent(t, s, "mid", "org", 5, storetest.WithEndAt(now+10800), storetest.WithLocation(0, 1))
	if _, err := s.CompleteEvent(context.Background(), "mid"); err != nil {
		t.Fatal(err)
	}

	page, err := svc.Discover(context.Background(), models.DiscoverRequest{UserID: "viewer", UserLat: 0, UserLng: 0, Limit: 10})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 events (completed excluded), got %d", len(page))
	}
	if page[0].ID != "near" || page[1].ID != "far" {
		t.Errorf("order: got %s, %s", page[0].ID, page[1].ID)
	}
	if page[0].DistanceKm == nil || *page[0].DistanceKm > *page[1].DistanceKm {
		t.Errorf("distances not ascending")
	}

	// Page of one: ranking does not pull "near" forward across pages.
	first, err := svc.Discover(context.Background(), models.DiscoverRequest{Limit: 1})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(first) != 1 || first[0].ID != "far" {
		t.Errorf("first page: %+v", first)
	}
}

func TestDiscover_SkipsEventsWithInvalidCoordinates(t *testing.T) {
	svc, s := newService(t, false)
	storetest.SeedUser(t, s, "org")
	now := time.Now().UTC().Unix()
	storetest.SeedEvent(t, s, "near", "org", 5, storetest.WithEndAt(now+3600), storetest.WithLocation(0, 0.1))
	storetest.SeedEvent(t, s, "broken", "org", 5, storetest.WithEndAt(now+7200), storetest.WithLocation(200, 0))
	storetest.SeedEvent(t, s, "far", "org", 5, storetest.WithEndAt(now+10800), storetest.WithLocation(0, 3))

	page, err := svc.Discover(context.Background(), models.DiscoverRequest{UserLat: 0, UserLng: 0, Limit: 10})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(page) != 2 || page[0].ID != "near" || page[1].ID != "far" {
		t.Errorf("page: %+v", page)
	}
}

func TestDiscover_LimitAboveMaxRejected(t *testing.T) {
	svc, _ := newService(t, false)
	_, err := svc.Discover(context.Background(), models.DiscoverRequest{Limit: 11})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDiscover_InterestFilterAndFollowed(t *testing.T) {
	svc, s := newService(t, true)
	storetest.SeedUser(t, s, "org")
	storetest.SeedUser(t, s, "viewer")
	ctx := context.Background()

	music, err := svc.CreateInterest(ctx, models.CreateInterestRequest{Name: "Music"})
	if err != nil {
		t.Fatalf("CreateInterest: %v", err)
	}
	req := validCreate()
	req.InterestIDs = []string{music.ID}
	tagged, err := svc.Create(ctx, "org", req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, "org", validCreate()); err != nil {
		t.Fatalf("Create untagged: %v", err)
	}
	if err := s.Follow(ctx, "viewer", "org"); err != nil {
		t.Fatal(err)
	}

	page, err := svc.Discover(ctx, models.DiscoverRequest{UserID: "viewer", Interest: music.ID, UserLat: 40, UserLng: -3})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(page) != 1 || page[0].ID != tagged.ID {
		t.Fatalf("interest filter: %+v", page)
	}
	if len(page[0].Interests) != 1 || page[0].Interests[0].Name != "Music" {
		t.Errorf("interests not hydrated: %+v", page[0].Interests)
	}
	if len(page[0].Attendees) != 1 || !page[0].Attendees[0].Followed {
		t.Errorf("followed flag: %+v", page[0].Attendees)
	}
}

func TestRate_MeanAndBounds(t *testing.T) {
	svc, s := newService(t, false)
	storetest.SeedUser(t, s, "org")
	storetest.SeedUser(t, s, "a")
	storetest.SeedUser(t, s, "b")
	storetest.SeedEvent(t, s, "ev", "org", 5)
	ctx := context.Background()

	if _, err := svc.Rate(ctx, "ev", "a", models.RateEventRequest{Rating: ptr(10.0)}); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	mean, err := svc.Rate(ctx, "ev", "b", models.RateEventRequest{Rating: ptr(5.0)})
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if mean != 7.5 {
		t.Errorf("mean: got %v, want 7.5", mean)
	}
	if _, err := svc.Rate(ctx, "ev", "a", models.RateEventRequest{Rating: ptr(11.0)}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("rating 11: expected validation error, got %v", err)
	}
	if _, err := svc.Rate(ctx, "missing", "a", models.RateEventRequest{Rating: ptr(1.0)}); !errors.Is(err, apperr.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestCreateInterest_Duplicate(t *testing.T) {
	svc, _ := newService(t, false)
	ctx := context.Background()
	if _, err := svc.CreateInterest(ctx, models.CreateInterestRequest{Name: "Art"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateInterest(ctx, models.CreateInterestRequest{Name: "Art"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	list, _ := svc.ListInterests(ctx)
	if len(list) != 1 {
		t.Errorf("interests: %+v", list)
	}
}
