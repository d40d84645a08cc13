package cycle

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Schedule holds the local opening time of every timeline phase.
type Schedule struct {
	opens [6]int // minutes after local midnight, indexed like Timeline
}

// NewSchedule parses {"VOTING": "08:00", ...}. Every timeline phase must be
// present and the times must strictly increase.
func NewSchedule(times map[string]string) (*Schedule, error) {
	s := &Schedule{}
	for i, p := range Timeline {
		raw, ok := times[string(p)]
		if !ok {
			return nil, fmt.Errorf("schedule: missing %s", p)
		}
		t, err := time.Parse("15:04", raw)
		if err != nil {
			return nil, fmt.Errorf("schedule: %s: %w", p, err)
		}
		s.opens[i] = t.Hour()*60 + t.Minute()
		if i > 0 && s.opens[i] <= s.opens[i-1] {
			return nil, fmt.Errorf("schedule: %s (%s) must open after %s", p, raw, Timeline[i-1])
		}
	}
	return s, nil
}

// midnight returns local midnight of date (YYYY-MM-DD) in loc.
func midnight(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, date, loc)
}

// StartsAt returns when phase opens on date. CANCELLED has no start.
func (s *Schedule) StartsAt(p Phase, date string, loc *time.Location) time.Time {
	i := p.Index()
	day, err := midnight(date, loc)
	if i < 0 || err != nil {
		return time.Time{}
	}
	// Wall-clock minutes, so a DST change at night does not shift the day.
	return time.Date(day.Year(), day.Month(), day.Day(), 0, s.opens[i], 0, 0, loc)
}

// EndsAt returns when phase closes on date: the next phase's opening. The
// terminal phases end when COMPLETED opens.
func (s *Schedule) EndsAt(p Phase, date string, loc *time.Location) time.Time {
	next := p.Next()
	if next == "" {
		return s.StartsAt(PhaseCompleted, date, loc)
	}
	return s.StartsAt(next, date, loc)
}

// PhaseAt returns the phase the clock says the cycle of date should be in at
// now. Before SUGGESTING opens it is still SUGGESTING.
func (s *Schedule) PhaseAt(date string, now time.Time, loc *time.Location) Phase {
	current := PhaseSuggesting
	for _, p := range Timeline {
		if !now.Before(s.StartsAt(p, date, loc)) {
			current = p
		}
	}
	return current
}

// Today returns the local date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(dateLayout)
}
