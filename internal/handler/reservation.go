package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-space-reservation/internal/booking"
	"github.com/iliyamo/campus-space-reservation/internal/repository"
)

// ReservationHandler exposes the reservation lifecycle over HTTP.  All
// state transitions go through the booking service; the repository is used
// directly only for read-only listings.
type ReservationHandler struct {
	svc  *booking.Service
	repo *repository.ReservationRepo
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc *booking.Service, repo *repository.ReservationRepo) *ReservationHandler {
	return &ReservationHandler{svc: svc, repo: repo}
}

// createReservationRequest is the body of POST /v1/reservations.
type createReservationRequest struct {
	ResourceID   uint64 `json:"resource_id"`
	StartsAt     string `json:"starts_at"`
	EndsAt       string `json:"ends_at"`
	Participants uint32 `json:"participants"`
}

// Create books a resource for the authenticated user.  Rooms that require
// approval come back as PENDING; everything else as RESERVED.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ResourceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}
	start, err := parseTime(req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at"})
	}
	end, err := parseTime(req.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ends_at"})
	}

	r, err := h.svc.Create(c.Request().Context(), actor(c), booking.BookingRequest{
		ResourceID:   req.ResourceID,
		Start:        start,
		End:          end,
		Participants: req.Participants,
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, reservationView(r))
}

// List returns the authenticated user's reservations, newest first.
func (h *ReservationHandler) List(c echo.Context) error {
	rows, err := h.repo.ListByUser(c.Request().Context(), actor(c).ID, 100)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": reservationViews(rows)})
}

// Get returns a single reservation.  Holders see their own rows; admins
// see everything.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.repo.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeEngineError(c, err)
	}
	u := actor(c)
	if r.UserID != u.ID && !u.IsAdmin() {
		return writeEngineError(c, booking.ErrForbidden)
	}
	return c.JSON(http.StatusOK, reservationView(r))
}

// CheckIn marks the holder as present.  Only legal inside the check-in
// window around the reservation start.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.CheckIn(c.Request().Context(), actor(c), id)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, reservationView(r))
}

// CheckOut completes a checked-in reservation and frees the remaining
// interval to the waitlist.
func (h *ReservationHandler) CheckOut(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.CheckOut(c.Request().Context(), actor(c), id)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, reservationView(r))
}

// cancelRequest is the optional body of POST /v1/reservations/:id/cancel.
type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel terminates an active reservation.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req cancelRequest
	_ = c.Bind(&req) // body is optional
	r, err := h.svc.Cancel(c.Request().Context(), actor(c), id, req.Reason)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, reservationView(r))
}

// extendRequest is the body of POST /v1/reservations/:id/extend.
type extendRequest struct {
	Hours int `json:"hours"`
}

// Extend pushes the reservation end out by whole hours, subject to the
// per-type extension cap, operating hours and the conflict detector.
func (h *ReservationHandler) Extend(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req extendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.svc.Extend(c.Request().Context(), actor(c), id, req.Hours)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, reservationView(r))
}

// extensionResponseRequest is the body of POST /v1/reservations/:id/extension.
type extensionResponseRequest struct {
	Accept bool `json:"accept"`
}

// RespondExtension answers a pending end-of-session extension offer.
func (h *ReservationHandler) RespondExtension(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req extensionResponseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.svc.RespondExtension(c.Request().Context(), actor(c), id, req.Accept)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, reservationView(r))
}
