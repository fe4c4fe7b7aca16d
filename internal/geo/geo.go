// Package geo ranks events by great-circle distance from an origin.
//
// Everything here is pure: no I/O, no shared state, safe for concurrent use.
package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Elizabethomito/nearby/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate is returned when a latitude or longitude is outside
// its valid range. Inputs are never clamped.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Valid reports whether lat is in [-90,90] and lng in [-180,180].
func Valid(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the haversine distance in kilometres between two points
// given in degrees.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Ranked pairs an event with its distance from the ranking origin.
type Ranked struct {
	Event      models.Event
	DistanceKm float64
}

// Rank orders candidates by ascending distance from the origin. Ties keep
// the candidates' original order.
func Rank(originLat, originLng float64, candidates []models.Event) ([]Ranked, error) {
	if !Valid(originLat, originLng) {
		return nil, fmt.Errorf("%w: origin (%v, %v)", ErrInvalidCoordinate, originLat, originLng)
	}
	out := make([]Ranked, 0, len(candidates))
	for _, e := range candidates {
		if !Valid(e.Latitude, e.Longitude) {
			return nil, fmt.Errorf("%w: event %s (%v, %v)", ErrInvalidCoordinate, e.ID, e.Latitude, e.Longitude)
		}
		out = append(out, Ranked{
			Event:      e,
			DistanceKm: Distance(originLat, originLng, e.Latitude, e.Longitude),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}
