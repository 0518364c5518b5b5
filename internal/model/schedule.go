package model

import "time"

// ScheduleEntry is one weekday row of a venue's weekly operating-hours
// template.  Times of day are stored as minutes after midnight so that the
// calendar is independent of any particular date.  A closed day keeps its
// minute columns at zero.
//
// Fields:
//  ID               – primary key identifier.
//  VenueID          – venue this row belongs to.
//  Weekday          – day of week (time.Sunday .. time.Saturday).
//  Open             – whether the venue opens at all on this weekday.
//  OpenMinute       – opening time, minutes after midnight.
//  CloseMinute      – closing time, minutes after midnight (exclusive).
//  EarlyCloseMinute – optional early-close override; wins over CloseMinute.
//  Message          – optional free-text notice shown to users.
type ScheduleEntry struct {
	ID               uint64       // schedule_entries.id
	VenueID          uint64       // schedule_entries.venue_id
	Weekday          time.Weekday // schedule_entries.weekday
	Open             bool         // schedule_entries.open
	OpenMinute       int          // schedule_entries.open_minute
	CloseMinute      int          // schedule_entries.close_minute
	EarlyCloseMinute *int         // schedule_entries.early_close_minute (nullable)
	Message          *string      // schedule_entries.message (nullable)
}

// EffectiveClose returns the minute the venue actually closes on this
// weekday, honouring the early-close override.
func (e *ScheduleEntry) EffectiveClose() int {
	if e.EarlyCloseMinute != nil && *e.EarlyCloseMinute < e.CloseMinute {
		return *e.EarlyCloseMinute
	}
	return e.CloseMinute
}

// ClosureException overrides the weekly template for one specific date,
// either closing the venue all day or substituting its own open window.
// Exceptions always take precedence over the weekly schedule.
//
// Fields:
//  ID           – primary key identifier.
//  VenueID      – venue this exception applies to.
//  Date         – the calendar date being overridden (midnight-normalized).
//  ClosedAllDay – true when the venue does not open at all.
//  OpenMinute   – replacement opening minute (nullable, windowed closures).
//  CloseMinute  – replacement closing minute (nullable, windowed closures).
//  Message      – optional free-text reason (e.g. "exam period").
type ClosureException struct {
	ID           uint64    // closure_exceptions.id
	VenueID      uint64    // closure_exceptions.venue_id
	Date         time.Time // closure_exceptions.date
	ClosedAllDay bool      // closure_exceptions.closed_all_day
	OpenMinute   *int      // closure_exceptions.open_minute (nullable)
	CloseMinute  *int      // closure_exceptions.close_minute (nullable)
	Message      *string   // closure_exceptions.message (nullable)
}
