// Package handler contains the HTTP handlers for the reservation API.
// Handlers parse and validate transport-level input, call into the booking
// engine and translate engine errors into HTTP status codes.  All business
// rules live in internal/booking; nothing here mutates state directly.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-space-reservation/internal/booking"
	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// actor rebuilds the acting user from the claims the JWT middleware stored
// in the request context.  Claims arrive as interface{} values because JSON
// numbers decode as float64; toUint64 normalizes the representations.
func actor(c echo.Context) model.UserRef {
	role, _ := c.Get("role").(string)
	return model.UserRef{
		ID:          toUint64(c.Get("user_id")),
		Role:        role,
		HomeVenueID: toUint64(c.Get("home_venue_id")),
	}
}

// toUint64 coerces a JWT claim value into a uint64 identifier.  Unknown
// types yield zero, which downstream checks treat as unauthenticated.
func toUint64(v interface{}) uint64 {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case int64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case uint64:
		return t
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// pathID parses the named path parameter as a positive integer identifier.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// timeNow is swapped out by tests that need a fixed clock.
var timeNow = time.Now

// timeLayouts are the accepted wall-clock formats, most specific first.
// Times are interpreted in the venue's local zone; offsets in RFC 3339
// input are honoured and then treated as local wall time.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseTime parses a request timestamp in the process-local zone.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized time format")
}

// parseDate parses a bare calendar date.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// writeEngineError maps booking engine errors onto HTTP responses.  The
// mapping is total: anything unrecognized becomes a 500 without leaking
// internals to the client.
func writeEngineError(c echo.Context, err error) error {
	var (
		ve *booking.ValidationError
		ce *booking.ConflictError
		pe *booking.PolicyLimitError
		se *booking.StateError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg})
	case errors.As(err, &pe):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": pe.Msg, "limit": pe.Limit})
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{"error": ce.Msg})
	case errors.As(err, &se):
		return c.JSON(http.StatusConflict, echo.Map{"error": se.Msg})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// reservationView shapes a reservation for JSON output.  Nullable
// timestamps are omitted while unset.
func reservationView(r *model.Reservation) echo.Map {
	m := echo.Map{
		"id":           r.ID,
		"resource_id":  r.ResourceID,
		"user_id":      r.UserID,
		"starts_at":    r.StartsAt,
		"ends_at":      r.EndsAt,
		"status":       r.Status,
		"participants": r.Participants,
		"extended":     r.Extended,
		"created_at":   r.CreatedAt,
		"updated_at":   r.UpdatedAt,
	}
	if r.CheckedInAt != nil {
		m["checked_in_at"] = *r.CheckedInAt
	}
	if r.CheckedOutAt != nil {
		m["checked_out_at"] = *r.CheckedOutAt
	}
	if r.CancelledAt != nil {
		m["cancelled_at"] = *r.CancelledAt
	}
	if r.CancelReason != nil {
		m["cancel_reason"] = *r.CancelReason
	}
	if r.ExtensionRequested {
		m["extension_requested"] = true
		if r.ExtensionNotifiedAt != nil {
			m["extension_notified_at"] = *r.ExtensionNotifiedAt
		}
	}
	if r.SeriesID != nil {
		m["series_id"] = *r.SeriesID
	}
	return m
}

func reservationViews(rows []model.Reservation) []echo.Map {
	out := make([]echo.Map, 0, len(rows))
	for i := range rows {
		out = append(out, reservationView(&rows[i]))
	}
	return out
}

// waitlistView shapes a waitlist entry for JSON output.
func waitlistView(e *model.WaitlistEntry) echo.Map {
	m := echo.Map{
		"id":            e.ID,
		"resource_id":   e.ResourceID,
		"user_id":       e.UserID,
		"desired_start": e.DesiredStart,
		"desired_end":   e.DesiredEnd,
		"position":      e.Position,
		"status":        e.Status,
		"created_at":    e.CreatedAt,
	}
	if e.NotifiedAt != nil {
		m["notified_at"] = *e.NotifiedAt
	}
	return m
}

// seriesView shapes a recurring series for JSON output.
func seriesView(s *model.RecurringSeries) echo.Map {
	weekdays := make([]string, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.HasWeekday(d) {
			weekdays = append(weekdays, d.String())
		}
	}
	m := echo.Map{
		"id":           s.ID,
		"resource_id":  s.ResourceID,
		"user_id":      s.UserID,
		"recurrence":   s.Recurrence,
		"interval":     s.Interval,
		"weekdays":     weekdays,
		"start_minute": s.StartMinute,
		"end_minute":   s.EndMinute,
		"series_start": s.SeriesStart.Format("2006-01-02"),
		"series_end":   s.SeriesEnd.Format("2006-01-02"),
		"active":       s.Active,
		"created_at":   s.CreatedAt,
	}
	if s.LastGeneratedDate != nil {
		m["last_generated_date"] = s.LastGeneratedDate.Format("2006-01-02")
	}
	return m
}
