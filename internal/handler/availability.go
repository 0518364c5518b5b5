package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-space-reservation/internal/booking"
	"github.com/iliyamo/campus-space-reservation/internal/model"
	"github.com/iliyamo/campus-space-reservation/internal/repository"
)

// AvailabilityHandler serves the read-only browse surface: venues, their
// resources, operating hours and free-slot availability.  These endpoints
// sit behind the response cache middleware; they never mutate state.
type AvailabilityHandler struct {
	detector  *booking.Detector
	calendar  *booking.Calendar
	resources *repository.ResourceRepo
	venues    *repository.VenueRepo
	schedules *repository.ScheduleRepo
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(detector *booking.Detector, calendar *booking.Calendar, resources *repository.ResourceRepo, venues *repository.VenueRepo, schedules *repository.ScheduleRepo) *AvailabilityHandler {
	return &AvailabilityHandler{
		detector:  detector,
		calendar:  calendar,
		resources: resources,
		venues:    venues,
		schedules: schedules,
	}
}

// ListVenues returns all venues.
func (h *AvailabilityHandler) ListVenues(c echo.Context) error {
	rows, err := h.venues.List(c.Request().Context())
	if err != nil {
		return writeEngineError(c, err)
	}
	out := make([]echo.Map, 0, len(rows))
	for _, v := range rows {
		out = append(out, echo.Map{"id": v.ID, "name": v.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"venues": out})
}

// ListResources returns the resources of a venue, optionally filtered by
// ?type=SEAT or ?type=ROOM.
func (h *AvailabilityHandler) ListResources(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var rtype model.ResourceType
	if t := strings.ToUpper(c.QueryParam("type")); t != "" {
		if t != string(model.ResourceSeat) && t != string(model.ResourceRoom) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be SEAT or ROOM"})
		}
		rtype = model.ResourceType(t)
	}
	rows, err := h.resources.ListByVenue(c.Request().Context(), venueID, rtype)
	if err != nil {
		return writeEngineError(c, err)
	}
	out := make([]echo.Map, 0, len(rows))
	for _, r := range rows {
		out = append(out, echo.Map{
			"id":                r.ID,
			"venue_id":          r.VenueID,
			"type":              r.Type,
			"name":              r.Name,
			"capacity":          r.Capacity,
			"requires_approval": r.RequiresApproval,
			"active":            r.Active,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"resources": out})
}

// WeekSchedule returns the venue's weekly operating-hours template.
func (h *AvailabilityHandler) WeekSchedule(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.schedules.WeekTemplate(c.Request().Context(), venueID)
	if err != nil {
		return writeEngineError(c, err)
	}
	out := make([]echo.Map, 0, len(rows))
	for i := range rows {
		e := &rows[i]
		m := echo.Map{
			"weekday":      e.Weekday.String(),
			"open":         e.Open,
			"open_minute":  e.OpenMinute,
			"close_minute": e.CloseMinute,
		}
		if e.EarlyCloseMinute != nil {
			m["early_close_minute"] = *e.EarlyCloseMinute
		}
		if e.Message != nil {
			m["message"] = *e.Message
		}
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"schedule": out})
}

// FreeSlots returns the free sub-intervals of a resource on the requested
// date (?date=YYYY-MM-DD, today when omitted), clamped to the venue's open
// window.  A closed day yields an empty slot list.
func (h *AvailabilityHandler) FreeSlots(c echo.Context) error {
	resourceID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	res, err := h.resources.GetByID(ctx, resourceID)
	if err != nil {
		return writeEngineError(c, err)
	}

	date := booking.DateOf(timeNow())
	if s := c.QueryParam("date"); s != "" {
		if date, err = parseDate(s); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
		}
	}

	win, open, err := h.calendar.OpenWindow(ctx, res.VenueID, date)
	if err != nil {
		return writeEngineError(c, err)
	}
	if !open {
		return c.JSON(http.StatusOK, echo.Map{
			"resource_id": res.ID,
			"date":        date.Format("2006-01-02"),
			"open":        false,
			"free":        []booking.Interval{},
		})
	}
	free, err := h.detector.FreeSlots(ctx, res.ID, win)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"resource_id": res.ID,
		"date":        date.Format("2006-01-02"),
		"open":        true,
		"window":      win,
		"free":        free,
	})
}
