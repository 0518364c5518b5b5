package model

import "time"

// RecurrenceType selects the cadence of a recurring series.
type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "DAILY"
	RecurWeekly  RecurrenceType = "WEEKLY"
	RecurMonthly RecurrenceType = "MONTHLY"
	RecurCustom  RecurrenceType = "CUSTOM" // every Interval days
)

// RecurringSeries describes a template from which future reservation
// occurrences are materialized.  The time-of-day window is date-independent;
// every generated occurrence uses exactly StartMinute..EndMinute of its
// date.  LastGeneratedDate is a high-water mark: generation never revisits
// dates at or before it, so a series can never double-generate a date.
//
// Fields:
//  ID                – primary key identifier.
//  UserID            – owner of the series.
//  ResourceID        – resource every occurrence books.
//  Recurrence        – DAILY, WEEKLY, MONTHLY or CUSTOM.
//  Interval          – cadence multiplier (every N days/weeks/months).
//  Weekdays          – weekday set for WEEKLY series (bitmask, bit 0 = Sunday).
//  StartMinute       – occurrence start, minutes after midnight.
//  EndMinute         – occurrence end, minutes after midnight (exclusive).
//  SeriesStart       – first date eligible for generation.
//  SeriesEnd         – last date eligible for generation.
//  LastGeneratedDate – generation high-water mark (nullable before first run).
//  Active            – deactivated series are skipped by generation.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type RecurringSeries struct {
	ID                uint64         // recurring_series.id
	UserID            uint64         // recurring_series.user_id
	ResourceID        uint64         // recurring_series.resource_id
	Recurrence        RecurrenceType // recurring_series.recurrence
	Interval          int            // recurring_series.interval_n
	Weekdays          uint8          // recurring_series.weekdays
	StartMinute       int            // recurring_series.start_minute
	EndMinute         int            // recurring_series.end_minute
	SeriesStart       time.Time      // recurring_series.series_start (date)
	SeriesEnd         time.Time      // recurring_series.series_end (date)
	LastGeneratedDate *time.Time     // recurring_series.last_generated_date (nullable)
	Active            bool           // recurring_series.active
	CreatedAt         time.Time      // recurring_series.created_at
	UpdatedAt         time.Time      // recurring_series.updated_at
}

// WeekdaySet packs a list of weekdays into the bitmask stored on a series.
func WeekdaySet(days ...time.Weekday) uint8 {
	var m uint8
	for _, d := range days {
		m |= 1 << uint(d)
	}
	return m
}

// HasWeekday reports whether the series' weekday set contains d.
func (s *RecurringSeries) HasWeekday(d time.Weekday) bool {
	return s.Weekdays&(1<<uint(d)) != 0
}
