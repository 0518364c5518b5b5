package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// PolicyConfig carries the booking rules of one resource type.  Seat and
// room rules differ in the source system (grace periods, weekly caps,
// approval) and are deliberately kept separate; nothing in the engine
// assumes one universal rule set.
type PolicyConfig struct {
	MinLeadTime           time.Duration // start must be at least this far in the future
	MaxDuration           time.Duration // longest single booking
	MaxOccurrenceDuration time.Duration // longest occurrence of a recurring series
	DailyCountCap         int           // active reservations per user per day
	WeeklyMinutesCap      int           // cumulative booked minutes per Sunday-aligned week
	MaxActiveSeries       int           // concurrently active recurring series per user
	SingleDay             bool          // reservation must start and end on the same date

	EarlyCheckIn     time.Duration // check-in accepted this long before start
	LateCheckInGrace time.Duration // check-in accepted this long after start
	NoShowGrace      time.Duration // RESERVED past start by more than this becomes NO_SHOW

	ExtensionLookahead      time.Duration // offer extensions to bookings ending within this window
	ExtensionResponseWindow time.Duration // holder must answer the offer within this window
	ExtensionUnit           time.Duration // length added by accepting an offer
	MaxExtensionHours       int           // ceiling for explicit extend-by-N-hours
	ReminderLead            time.Duration // ending-soon reminder look-ahead
}

// DefaultSeatPolicy mirrors the seat-booking rules of the source system.
func DefaultSeatPolicy() PolicyConfig {
	return PolicyConfig{
		MinLeadTime:             5 * time.Minute,
		MaxDuration:             6 * time.Hour,
		MaxOccurrenceDuration:   3 * time.Hour,
		DailyCountCap:           3,
		WeeklyMinutesCap:        6 * 60,
		MaxActiveSeries:         2,
		SingleDay:               true,
		EarlyCheckIn:            15 * time.Minute,
		LateCheckInGrace:        20 * time.Minute,
		NoShowGrace:             7 * time.Minute,
		ExtensionLookahead:      10 * time.Minute,
		ExtensionResponseWindow: 5 * time.Minute,
		ExtensionUnit:           time.Hour,
		MaxExtensionHours:       4,
		ReminderLead:            15 * time.Minute,
	}
}

// DefaultRoomPolicy mirrors the room-booking rules of the source system.
// Rooms tolerate a later check-in but allow fewer weekly hours.
func DefaultRoomPolicy() PolicyConfig {
	return PolicyConfig{
		MinLeadTime:             10 * time.Minute,
		MaxDuration:             4 * time.Hour,
		MaxOccurrenceDuration:   2 * time.Hour,
		DailyCountCap:           2,
		WeeklyMinutesCap:        3 * 60,
		MaxActiveSeries:         1,
		SingleDay:               true,
		EarlyCheckIn:            15 * time.Minute,
		LateCheckInGrace:        30 * time.Minute,
		NoShowGrace:             15 * time.Minute,
		ExtensionLookahead:      15 * time.Minute,
		ExtensionResponseWindow: 5 * time.Minute,
		ExtensionUnit:           time.Hour,
		MaxExtensionHours:       2,
		ReminderLead:            15 * time.Minute,
	}
}

// BookingRequest is one candidate reservation to validate and create.
type BookingRequest struct {
	ResourceID   uint64
	Start        time.Time
	End          time.Time
	Participants uint32
	Recurring    bool // occurrence of a recurring series
}

// Validator runs the quota and policy checks for a booking request.  The
// checks run in a fixed order and short-circuit on the first failure, so
// the caller always learns the most fundamental violation.
type Validator struct {
	Calendar     *Calendar
	Reservations ReservationStore
	Series       SeriesStore
	Policies     map[model.ResourceType]PolicyConfig
	Clock        Clock
}

// PolicyFor returns the rules of the resource type, falling back to the
// seat defaults when no explicit policy is configured.
func (v *Validator) PolicyFor(t model.ResourceType) PolicyConfig {
	if p, ok := v.Policies[t]; ok {
		return p
	}
	if t == model.ResourceRoom {
		return DefaultRoomPolicy()
	}
	return DefaultSeatPolicy()
}

// weekBounds returns the Sunday-aligned booking window observed at now.
// The current week (Sunday through Saturday) is always bookable; on a
// Sunday the window rolls over and extends through the following Saturday.
func weekBounds(now time.Time) (time.Time, time.Time) {
	start := DateOf(now).AddDate(0, 0, -int(now.Weekday()))
	end := start.AddDate(0, 0, 7)
	if now.Weekday() == time.Sunday {
		end = end.AddDate(0, 0, 7)
	}
	return start, end
}

// Validate runs the ordered policy checks for the request against the
// resource.  It returns a ValidationError, PolicyLimitError or calendar
// ValidationError describing the first rule violated, or nil when the
// request may proceed to conflict detection.
func (v *Validator) Validate(ctx context.Context, actor model.UserRef, res *model.Resource, req BookingRequest) error {
	now := v.Clock.Now()
	pol := v.PolicyFor(res.Type)

	// 1. interval sanity and minimum lead time
	if !req.Start.Before(req.End) {
		return validationf("start must be before end")
	}
	if req.Start.Before(now.Add(pol.MinLeadTime)) {
		return validationf("start must be at least %s in the future", pol.MinLeadTime)
	}

	// 2. maximum single-booking duration
	dur := req.End.Sub(req.Start)
	max := pol.MaxDuration
	if req.Recurring && pol.MaxOccurrenceDuration > 0 {
		max = pol.MaxOccurrenceDuration
	}
	if dur > max {
		return validationf("duration %s exceeds the %s maximum", dur, max)
	}

	// 3. operating-hours validity across the full span
	if err := v.Calendar.ValidateInterval(ctx, res.VenueID, req.Start, req.End, pol.SingleDay); err != nil {
		return err
	}

	// 4. booking horizon: current Sunday-aligned week, next week on Sundays
	weekStart, horizonEnd := weekBounds(now)
	if req.Start.Before(weekStart) || !req.Start.Before(horizonEnd) {
		return &PolicyLimitError{
			Limit: "horizon",
			Msg:   "start must fall before " + horizonEnd.Format("2006-01-02"),
		}
	}

	// 5. capacity versus requested participants
	participants := req.Participants
	if participants == 0 {
		participants = 1
	}
	if participants > res.Capacity {
		return &PolicyLimitError{
			Limit: "capacity",
			Msg:   fmt.Sprintf("resource holds at most %d participants", res.Capacity),
		}
	}

	// 6. per-user daily count cap and weekly cumulative-hours cap
	dayStart := DateOf(req.Start)
	count, err := v.Reservations.CountActiveForUserBetween(ctx, actor.ID, res.Type, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if pol.DailyCountCap > 0 && count >= pol.DailyCountCap {
		return &PolicyLimitError{Limit: "daily_count", Msg: "daily reservation limit reached"}
	}
	reqWeekStart := DateOf(req.Start).AddDate(0, 0, -int(req.Start.Weekday()))
	minutes, err := v.Reservations.ActiveMinutesForUserBetween(ctx, actor.ID, res.Type, reqWeekStart, reqWeekStart.AddDate(0, 0, 7))
	if err != nil {
		return err
	}
	if pol.WeeklyMinutesCap > 0 && minutes+int(dur.Minutes()) > pol.WeeklyMinutesCap {
		return &PolicyLimitError{Limit: "weekly_hours", Msg: "weekly booked-hours limit reached"}
	}
	return nil
}

// ValidateSeries enforces the recurring-specific caps before a series is
// created: the per-user active-series ceiling and the shorter occurrence
// duration.  Occurrence-level checks run again when each occurrence is
// generated.
func (v *Validator) ValidateSeries(ctx context.Context, actor model.UserRef, res *model.Resource, startMinute, endMinute int) error {
	pol := v.PolicyFor(res.Type)
	if startMinute < 0 || endMinute > 24*60 || startMinute >= endMinute {
		return validationf("invalid time-of-day window")
	}
	dur := time.Duration(endMinute-startMinute) * time.Minute
	if pol.MaxOccurrenceDuration > 0 && dur > pol.MaxOccurrenceDuration {
		return validationf("occurrence duration %s exceeds the %s maximum", dur, pol.MaxOccurrenceDuration)
	}
	active, err := v.Series.CountActiveForUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	if pol.MaxActiveSeries > 0 && active >= pol.MaxActiveSeries {
		return &PolicyLimitError{Limit: "active_series", Msg: "active recurring series limit reached"}
	}
	return nil
}
