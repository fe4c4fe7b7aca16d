package validate

import (
	"testing"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/models"
)

func ptr[T any](v T) *T { return &v }

func validEvent() models.CreateEventRequest {
	return models.CreateEventRequest{
		Title:        "Board games",
		StartDate:    "2026-11-01",
		StartTime:    "18:00",
		EndDate:      "2026-11-01",
		EndTime:      "21:30",
		LocationName: "Cafe",
		Latitude:     ptr(0.0),
		Longitude:    ptr(0.0),
		Capacity:     4,
	}
}

func TestStruct_Valid(t *testing.T) {
	req := validEvent()
	if err := Struct(req); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestStruct_FirstViolationOnly(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CreateEventRequest)
		want   string
	}{
		{"missing title", func(r *models.CreateEventRequest) { r.Title = "" }, "title is required"},
		{"missing latitude", func(r *models.CreateEventRequest) { r.Latitude = nil }, "latitude is required"},
		{"latitude range", func(r *models.CreateEventRequest) { r.Latitude = ptr(91.0) }, "latitude must be at most 90"},
		{"bad time", func(r *models.CreateEventRequest) { r.EndTime = "9pm" }, "end_time must match the format 15:04"},
		{"zero capacity", func(r *models.CreateEventRequest) { r.Capacity = 0 }, "capacity is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validEvent()
			tt.mutate(&req)
			err := Struct(req)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := apperr.Message(err); got != tt.want {
				t.Errorf("message: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStruct_DiscoverLimit(t *testing.T) {
	err := Struct(models.DiscoverRequest{UserLat: 1, UserLng: 1, Limit: 11})
	if got := apperr.Message(err); got != "limit must be at most 10" {
		t.Errorf("got %q", got)
	}
}
