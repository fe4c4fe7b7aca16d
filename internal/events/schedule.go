package events

import (
	"fmt"
	"time"

	// Embedded zone database so LoadLocation works on hosts without one.
	_ "time/tzdata"

	"github.com/Elizabethomito/nearby/internal/apperr"
)

const localLayout = "2006-01-02 15:04"

// schedule is the local display fields of an event plus the instants
// derived from them.
type schedule struct {
	StartDate, StartTime string
	EndDate, EndTime     string
	Timezone             string
	StartAt, EndAt       int64
}

// resolve computes StartAt/EndAt from the local fields. EndAt is the
// authoritative expiry instant, so this is the only place it is derived.
func (s *schedule) resolve() error {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return apperr.Validation(fmt.Sprintf("timezone %q is not a valid IANA zone", s.Timezone))
	}
	start, err := time.ParseInLocation(localLayout, s.StartDate+" "+s.StartTime, loc)
	if err != nil {
		return apperr.Validation("start_date/start_time are not a valid local time")
	}
	end, err := time.ParseInLocation(localLayout, s.EndDate+" "+s.EndTime, loc)
	if err != nil {
		return apperr.Validation("end_date/end_time are not a valid local time")
	}
	if end.Before(start) {
		return apperr.Validation("event cannot end before it starts")
	}
	s.StartAt = start.UTC().Unix()
	s.EndAt = end.UTC().Unix()
	return nil
}
