package booking

import (
	"context"
	"time"
)

// Calendar answers whether a venue is open at a given moment, combining the
// weekly operating-hours template with dated closure exceptions.  Closure
// exceptions always win over the weekly schedule; within the weekly
// schedule an early-close override wins over the normal closing time.
type Calendar struct {
	Schedules ScheduleStore
}

// NewCalendar returns a Calendar reading from the given schedule store.
func NewCalendar(schedules ScheduleStore) *Calendar {
	return &Calendar{Schedules: schedules}
}

// OpenWindow returns the open interval of the venue on the date of t, or
// ok=false when the venue is closed all day.  Windows are half-open:
// the venue is open for minutes in [open, close).
func (c *Calendar) OpenWindow(ctx context.Context, venueID uint64, date time.Time) (Interval, bool, error) {
	day := DateOf(date)

	exc, err := c.Schedules.ClosureOn(ctx, venueID, day)
	if err != nil {
		return Interval{}, false, err
	}
	if exc != nil {
		if exc.ClosedAllDay || exc.OpenMinute == nil || exc.CloseMinute == nil {
			return Interval{}, false, nil
		}
		return Interval{
			Start: AtMinute(day, *exc.OpenMinute),
			End:   AtMinute(day, *exc.CloseMinute),
		}, true, nil
	}

	entry, err := c.Schedules.WeeklyEntry(ctx, venueID, day.Weekday())
	if err != nil {
		return Interval{}, false, err
	}
	if entry == nil || !entry.Open {
		return Interval{}, false, nil
	}
	return Interval{
		Start: AtMinute(day, entry.OpenMinute),
		End:   AtMinute(day, entry.EffectiveClose()),
	}, true, nil
}

// IsOpenAt reports whether the venue is open at instant t.
func (c *Calendar) IsOpenAt(ctx context.Context, venueID uint64, t time.Time) (bool, error) {
	win, ok, err := c.OpenWindow(ctx, venueID, t)
	if err != nil || !ok {
		return false, err
	}
	return !t.Before(win.Start) && t.Before(win.End), nil
}

// ValidateInterval checks that [start, end) lies entirely within operating
// hours.  When singleDay is set, start and end must share a calendar date.
// The walk is per-date so that a multi-day room booking is validated
// against each day's window.  A ValidationError names the first violation.
func (c *Calendar) ValidateInterval(ctx context.Context, venueID uint64, start, end time.Time, singleDay bool) error {
	if !start.Before(end) {
		return validationf("start must be before end")
	}
	if singleDay && !SameDate(start, end) && !end.Equal(DateOf(end)) {
		return validationf("reservation must start and end on the same day")
	}
	for day := DateOf(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		segStart, segEnd := day, day.AddDate(0, 0, 1)
		if segStart.Before(start) {
			segStart = start
		}
		if segEnd.After(end) {
			segEnd = end
		}
		if !segStart.Before(segEnd) {
			continue
		}
		win, open, err := c.OpenWindow(ctx, venueID, day)
		if err != nil {
			return err
		}
		if !open {
			return validationf("venue is closed on %s", day.Format("2006-01-02"))
		}
		if segStart.Before(win.Start) {
			return validationf("venue opens at %s on %s", win.Start.Format("15:04"), day.Format("2006-01-02"))
		}
		if segEnd.After(win.End) {
			return validationf("venue closes at %s on %s", win.End.Format("15:04"), day.Format("2006-01-02"))
		}
	}
	return nil
}
