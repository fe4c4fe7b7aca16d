package handlers

// SeedDemo handles POST /api/admin/seed
//
// This endpoint is ONLY for demos. It inserts a fixed set of users,
// interests and events so a demo can start from a known state without
// running external scripts.
//
// The endpoint is idempotent: IDs are hard-coded and rows that already
// exist are skipped, so calling it twice produces the same data.
//
// DEMO SCENARIO (Kisumu, all passwords "demo1234")
// ─────────────────────────────────────────────────────────────────────────
// Admin     : "Nearby Admin"   (admin@nearby.test)
// Organizer : "Amara Osei"     (amara@nearby.test)
// Attendee  : "Baraka Mwangi"  (baraka@nearby.test)
//
// Events (all organized by Amara):
//  1. Lakeside Jazz Evening  public, capacity 30, Baraka already attending
//  2. Founders Breakfast     private, capacity 2 (Amara holds one slot)
//                            → Baraka must send a join request
//  3. Sunrise Run            public, ended an hour ago but still active
//                            → the next sweep moves it to completed
//  4. Street Food Tour       completed last week, never listed

import (
	"errors"
	"net/http"
	"time"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Pre-determined IDs keep the seed idempotent across restarts.
const (
	SeedAdminID  = "seed-user-admin-0000-0000-000000000001"
	SeedAmaraID  = "seed-user-amara-0000-0000-000000000002"
	SeedBarakaID = "seed-user-barak-0000-0000-000000000003"

	SeedInterestMusicID  = "seed-interest-music-0000-000000000010"
	SeedInterestTechID   = "seed-interest-tech--0000-000000000011"
	SeedInterestSportsID = "seed-interest-sport-0000-000000000012"
	SeedInterestFoodID   = "seed-interest-food--0000-000000000013"

	SeedEventJazzID      = "seed-event-jazz----0000-000000000020"
	SeedEventBreakfastID = "seed-event-bfast---0000-000000000021"
	SeedEventRunID       = "seed-event-run-----0000-000000000022"
	SeedEventFoodTourID  = "seed-event-food----0000-000000000023"

	seedPassword = "demo1234"
)

// Kisumu waterfront.
const (
	seedLat = -0.0917
	seedLng = 34.7680
)

type seedEvent struct {
	models.Event
	attendees []string
}

// SeedDemo handles POST /api/admin/seed
func (s *Server) SeedDemo(w http.ResponseWriter, r *http.Request) {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		s.fail(w, r, apperr.Internal("hash seed password", err))
		return
	}
	now := time.Now().UTC()

	users := []models.User{
		{ID: SeedAdminID, Email: "admin@nearby.test", Name: "Nearby Admin", Role: models.RoleAdmin},
		{ID: SeedAmaraID, Email: "amara@nearby.test", Name: "Amara Osei", Role: models.RoleUser},
		{ID: SeedBarakaID, Email: "baraka@nearby.test", Name: "Baraka Mwangi", Role: models.RoleUser},
	}
	interests := []models.Interest{
		{ID: SeedInterestMusicID, Name: "Music"},
		{ID: SeedInterestTechID, Name: "Tech"},
		{ID: SeedInterestSportsID, Name: "Sports"},
		{ID: SeedInterestFoodID, Name: "Food"},
	}
	events := []seedEvent{
		{
			Event: demoEvent(SeedEventJazzID, "Lakeside Jazz Evening", "Live jazz by the lake",
				"Dunga Beach", now.Add(48*time.Hour), 4*time.Hour, 30, true, -0.1180, 34.7420),
			attendees: []string{SeedAmaraID, SeedBarakaID},
		},
		{
			Event: demoEvent(SeedEventBreakfastID, "Founders Breakfast", "Small table, big ideas",
				"Acacia Hotel", now.Add(24*time.Hour), 2*time.Hour, 2, false, -0.1022, 34.7617),
			attendees: []string{SeedAmaraID},
		},
		{
			Event: demoEvent(SeedEventRunID, "Sunrise Run", "5 km along the shore",
				"Hippo Point", now.Add(-3*time.Hour), 2*time.Hour, 50, true, -0.1100, 34.7300),
			attendees: []string{SeedAmaraID},
		},
		{
			Event: demoEvent(SeedEventFoodTourID, "Street Food Tour", "Fish, ugali and more",
				"Kibuye Market", now.AddDate(0, 0, -7), 3*time.Hour, 10, true, -0.0850, 34.7700),
			attendees: []string{SeedAmaraID},
		},
	}
	events[3].Status = models.EventStatusCompleted
	eventInterests := map[string][]string{
		SeedEventJazzID:      {SeedInterestMusicID},
		SeedEventBreakfastID: {SeedInterestTechID, SeedInterestFoodID},
		SeedEventRunID:       {SeedInterestSportsID},
		SeedEventFoodTourID:  {SeedInterestFoodID},
	}

	ctx := r.Context()
	err = s.Store.WithTx(ctx, func(q store.Queries) error {
		for _, u := range users {
			u.PasswordHash = string(hash)
			u.CreatedAt, u.UpdatedAt = now, now
			if err := ignoreConflict(q.CreateUser(ctx, u)); err != nil {
				return err
			}
		}
		for _, in := range interests {
			in.CreatedAt = now
			if err := ignoreConflict(q.CreateInterest(ctx, in)); err != nil {
				return err
			}
		}
		for _, e := range events {
			if _, err := q.GetEvent(ctx, e.ID); err == nil {
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			e.AvailableSlots = e.Capacity - len(e.attendees)
			e.CreatedAt, e.UpdatedAt = now, now
			if err := q.InsertEvent(ctx, e.Event); err != nil {
				return err
			}
			if err := q.SetEventInterests(ctx, e.ID, eventInterests[e.ID]); err != nil {
				return err
			}
			for _, uid := range e.attendees {
				if err := q.AddAttendee(ctx, e.ID, uid); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		s.fail(w, r, apperr.Internal("seed", err))
		return
	}

	s.Logger.InfoContext(ctx, "demo data seeded")
	respond(w, http.StatusOK, "seeded", map[string]any{
		"accounts": []map[string]string{
			{"role": "admin", "email": "admin@nearby.test", "password": seedPassword},
			{"role": "user", "email": "amara@nearby.test", "password": seedPassword, "name": "Amara Osei (organizer)"},
			{"role": "user", "email": "baraka@nearby.test", "password": seedPassword, "name": "Baraka Mwangi"},
		},
		"center": map[string]float64{"user_lat": seedLat, "user_lng": seedLng},
		"private_event": map[string]any{
			"event_id":        SeedEventBreakfastID,
			"available_slots": 1,
		},
	})
}

// demoEvent builds an active UTC event starting at start and lasting d.
func demoEvent(id, title, desc, location string, start time.Time, d time.Duration,
	capacity int, public bool, lat, lng float64) models.Event {
	start = start.Truncate(time.Minute)
	end := start.Add(d)
	return models.Event{
		ID:           id,
		OrganizerID:  SeedAmaraID,
		Title:        title,
		Description:  desc,
		StartDate:    start.Format("2006-01-02"),
		StartTime:    start.Format("15:04"),
		EndDate:      end.Format("2006-01-02"),
		EndTime:      end.Format("15:04"),
		Timezone:     "UTC",
		StartAt:      start.Unix(),
		EndAt:        end.Unix(),
		LocationName: location,
		Latitude:     lat,
		Longitude:    lng,
		Capacity:     capacity,
		Status:       models.EventStatusActive,
		IsPublic:     public,
	}
}

func ignoreConflict(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return nil
	}
	return err
}
