package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-space-reservation/internal/booking"
	"github.com/iliyamo/campus-space-reservation/internal/model"
	"github.com/iliyamo/campus-space-reservation/internal/repository"
)

// AdminHandler groups the administrative endpoints: approval resolution,
// manual check-in, maintenance bulk-cancel and venue/resource/schedule
// management.  The router additionally guards these routes with the ADMIN
// role; the engine re-checks the actor on every override.
type AdminHandler struct {
	svc       *booking.Service
	resources *repository.ResourceRepo
	venues    *repository.VenueRepo
	schedules *repository.ScheduleRepo
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc *booking.Service, resources *repository.ResourceRepo, venues *repository.VenueRepo, schedules *repository.ScheduleRepo) *AdminHandler {
	return &AdminHandler{svc: svc, resources: resources, venues: venues, schedules: schedules}
}

// approveRequest is the body of POST /v1/admin/reservations/:id/approve.
type approveRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// Approve resolves a PENDING room reservation either way.
func (h *AdminHandler) Approve(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req approveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.svc.Approve(c.Request().Context(), actor(c), id, req.Approve, req.Reason)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, reservationView(r))
}

// CheckIn is the manual check-in override without the time-window guard,
// for front-desk staff correcting a scanner failure.
func (h *AdminHandler) CheckIn(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.AdminCheckIn(c.Request().Context(), actor(c), id)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, reservationView(r))
}

// bulkCancelRequest is the body of POST /v1/admin/resources/:id/bulk-cancel.
type bulkCancelRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

// BulkCancel cancels every active reservation of the resource overlapping
// the window, for maintenance closures.
func (h *AdminHandler) BulkCancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req bulkCancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	start, err := parseTime(req.Start)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start"})
	}
	end, err := parseTime(req.End)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end"})
	}
	if req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
	}
	n, err := h.svc.BulkCancel(c.Request().Context(), actor(c), id, start, end, req.Reason)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"cancelled": n})
}

// createVenueRequest is the body of POST /v1/admin/venues.
type createVenueRequest struct {
	Name string `json:"name"`
}

// CreateVenue registers a new venue.  Its weekly schedule starts empty,
// which the calendar treats as closed every day.
func (h *AdminHandler) CreateVenue(c echo.Context) error {
	var req createVenueRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	now := time.Now()
	v := &model.Venue{Name: strings.TrimSpace(req.Name), CreatedAt: now, UpdatedAt: now}
	if err := h.venues.Create(c.Request().Context(), v); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": v.ID, "name": v.Name})
}

// createResourceRequest is the body of POST /v1/admin/resources.
type createResourceRequest struct {
	VenueID          uint64 `json:"venue_id"`
	Type             string `json:"type"`
	Name             string `json:"name"`
	Capacity         uint32 `json:"capacity"`
	RequiresApproval bool   `json:"requires_approval"`
}

// CreateResource registers a bookable seat or room under a venue.
func (h *AdminHandler) CreateResource(c echo.Context) error {
	var req createResourceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rtype := model.ResourceType(strings.ToUpper(req.Type))
	if rtype != model.ResourceSeat && rtype != model.ResourceRoom {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be SEAT or ROOM"})
	}
	if req.VenueID == 0 || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id and name are required"})
	}
	if _, err := h.venues.GetByID(c.Request().Context(), req.VenueID); err != nil {
		return writeEngineError(c, err)
	}
	capacity := req.Capacity
	if rtype == model.ResourceSeat || capacity == 0 {
		capacity = 1
	}
	now := time.Now()
	res := &model.Resource{
		VenueID:          req.VenueID,
		Type:             rtype,
		Name:             strings.TrimSpace(req.Name),
		Capacity:         capacity,
		RequiresApproval: req.RequiresApproval,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.resources.Create(c.Request().Context(), res); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": res.ID, "name": res.Name, "type": res.Type})
}

// setActiveRequest is the body of PATCH /v1/admin/resources/:id/active.
type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetResourceActive toggles whether a resource accepts new reservations.
// Existing reservations are untouched; use BulkCancel to clear them.
func (h *AdminHandler) SetResourceActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.resources.SetActive(c.Request().Context(), id, req.Active); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "active": req.Active})
}

// upsertWeeklyRequest is the body of PUT /v1/admin/venues/:id/schedule/:weekday.
type upsertWeeklyRequest struct {
	Open             bool    `json:"open"`
	OpenMinute       int     `json:"open_minute"`
	CloseMinute      int     `json:"close_minute"`
	EarlyCloseMinute *int    `json:"early_close_minute"`
	Message          *string `json:"message"`
}

// UpsertWeekly replaces one weekday row of the venue's operating-hours
// template.  Minutes are after midnight; an open day needs open < close.
func (h *AdminHandler) UpsertWeekly(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	weekday, ok := weekdayNames[strings.ToLower(c.Param("weekday"))]
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown weekday"})
	}
	var req upsertWeeklyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Open && (req.OpenMinute < 0 || req.CloseMinute > 24*60 || req.OpenMinute >= req.CloseMinute) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "open_minute must precede close_minute within the day"})
	}
	e := &model.ScheduleEntry{
		VenueID:          venueID,
		Weekday:          weekday,
		Open:             req.Open,
		OpenMinute:       req.OpenMinute,
		CloseMinute:      req.CloseMinute,
		EarlyCloseMinute: req.EarlyCloseMinute,
		Message:          req.Message,
	}
	if err := h.schedules.UpsertWeekly(c.Request().Context(), e); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venueID, "weekday": weekday.String()})
}

// upsertClosureRequest is the body of PUT /v1/admin/venues/:id/closures/:date.
type upsertClosureRequest struct {
	ClosedAllDay bool    `json:"closed_all_day"`
	OpenMinute   *int    `json:"open_minute"`
	CloseMinute  *int    `json:"close_minute"`
	Message      *string `json:"message"`
}

// UpsertClosure records a dated exception to the weekly template: a full
// closure or a replacement open window for one calendar date.
func (h *AdminHandler) UpsertClosure(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	date, err := parseDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	var req upsertClosureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !req.ClosedAllDay {
		if req.OpenMinute == nil || req.CloseMinute == nil || *req.OpenMinute >= *req.CloseMinute {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a windowed closure needs open_minute < close_minute"})
		}
	}
	exc := &model.ClosureException{
		VenueID:      venueID,
		Date:         date,
		ClosedAllDay: req.ClosedAllDay,
		OpenMinute:   req.OpenMinute,
		CloseMinute:  req.CloseMinute,
		Message:      req.Message,
	}
	if err := h.schedules.UpsertClosure(c.Request().Context(), exc); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venueID, "date": date.Format("2006-01-02")})
}

// DeleteClosure removes a dated exception, restoring the weekly template.
func (h *AdminHandler) DeleteClosure(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	date, err := parseDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	if err := h.schedules.DeleteClosure(c.Request().Context(), venueID, date); err != nil {
		return writeEngineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
