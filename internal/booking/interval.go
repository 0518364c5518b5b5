package booking

import (
	"sort"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// Interval is a half-open time span [Start, End).  Touching endpoints do
// not overlap: a reservation ending at 10:00 and one starting at 10:00 may
// coexist on the same resource.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DateOf truncates t to midnight of its calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MinuteOf returns the minute of day of t (0..1439).
func MinuteOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// AtMinute places a minute-of-day on a calendar date.
func AtMinute(date time.Time, minute int) time.Time {
	d := DateOf(date)
	return d.Add(time.Duration(minute) * time.Minute)
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// FreeGaps computes the free sub-intervals of window not covered by any of
// the given reservations.  Reservations outside the window are clamped;
// the result is ordered and non-overlapping.  Zero-length gaps are omitted.
func FreeGaps(window Interval, busy []model.Reservation) []Interval {
	spans := make([]Interval, 0, len(busy))
	for _, r := range busy {
		if !Overlaps(window.Start, window.End, r.StartsAt, r.EndsAt) {
			continue
		}
		s, e := r.StartsAt, r.EndsAt
		if s.Before(window.Start) {
			s = window.Start
		}
		if e.After(window.End) {
			e = window.End
		}
		spans = append(spans, Interval{Start: s, End: e})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start.Before(spans[j].Start) })

	gaps := make([]Interval, 0, len(spans)+1)
	cursor := window.Start
	for _, sp := range spans {
		if cursor.Before(sp.Start) {
			gaps = append(gaps, Interval{Start: cursor, End: sp.Start})
		}
		if sp.End.After(cursor) {
			cursor = sp.End
		}
	}
	if cursor.Before(window.End) {
		gaps = append(gaps, Interval{Start: cursor, End: window.End})
	}
	return gaps
}
