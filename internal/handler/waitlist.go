package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-space-reservation/internal/booking"
	"github.com/iliyamo/campus-space-reservation/internal/repository"
)

// WaitlistHandler exposes the per-resource waitlist queue over HTTP.
type WaitlistHandler struct {
	cascade *booking.Cascade
	repo    *repository.WaitlistRepo
}

// NewWaitlistHandler constructs a WaitlistHandler.
func NewWaitlistHandler(cascade *booking.Cascade, repo *repository.WaitlistRepo) *WaitlistHandler {
	return &WaitlistHandler{cascade: cascade, repo: repo}
}

// joinWaitlistRequest is the body of POST /v1/waitlist.
type joinWaitlistRequest struct {
	ResourceID   uint64 `json:"resource_id"`
	DesiredStart string `json:"desired_start"`
	DesiredEnd   string `json:"desired_end"`
}

// Join appends the user to the resource's queue.  A user holds at most one
// live entry per resource; duplicates come back as 409.
func (h *WaitlistHandler) Join(c echo.Context) error {
	var req joinWaitlistRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ResourceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}
	start, err := parseTime(req.DesiredStart)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid desired_start"})
	}
	end, err := parseTime(req.DesiredEnd)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid desired_end"})
	}
	e, err := h.cascade.Join(c.Request().Context(), actor(c), req.ResourceID, start, end)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, waitlistView(e))
}

// Leave cancels the entry and recompacts the queue behind it.
func (h *WaitlistHandler) Leave(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.cascade.Leave(c.Request().Context(), actor(c), id); err != nil {
		return writeEngineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List returns the authenticated user's waitlist entries.
func (h *WaitlistHandler) List(c echo.Context) error {
	rows, err := h.repo.ListByUser(c.Request().Context(), actor(c).ID)
	if err != nil {
		return writeEngineError(c, err)
	}
	out := make([]echo.Map, 0, len(rows))
	for i := range rows {
		out = append(out, waitlistView(&rows[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}
