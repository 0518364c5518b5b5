package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-space-reservation/internal/repository"
)

// NotificationHandler serves the per-user notification inbox.
type NotificationHandler struct {
	repo *repository.NotificationRepo
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(repo *repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// List returns the user's notifications, newest first.  ?limit caps the
// page size.
func (h *NotificationHandler) List(c echo.Context) error {
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}
	rows, err := h.repo.ListByUser(c.Request().Context(), actor(c).ID, limit)
	if err != nil {
		return writeEngineError(c, err)
	}
	out := make([]echo.Map, 0, len(rows))
	for i := range rows {
		n := &rows[i]
		m := echo.Map{
			"id":         n.ID,
			"title":      n.Title,
			"body":       n.Body,
			"category":   n.Category,
			"created_at": n.CreatedAt,
		}
		if n.ReadAt != nil {
			m["read_at"] = *n.ReadAt
		}
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out})
}

// MarkRead stamps one of the user's notifications as read.  Idempotent.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.repo.MarkRead(c.Request().Context(), actor(c).ID, id); err != nil {
		return writeEngineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
