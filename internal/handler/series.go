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

// SeriesHandler exposes recurring-series management over HTTP.
type SeriesHandler struct {
	gen  *booking.Generator
	repo *repository.SeriesRepo
}

// NewSeriesHandler constructs a SeriesHandler.
func NewSeriesHandler(gen *booking.Generator, repo *repository.SeriesRepo) *SeriesHandler {
	return &SeriesHandler{gen: gen, repo: repo}
}

// createSeriesRequest is the body of POST /v1/series.  Weekdays are full
// English names, case-insensitive.  Times of day are minutes after
// midnight.
type createSeriesRequest struct {
	ResourceID  uint64   `json:"resource_id"`
	Recurrence  string   `json:"recurrence"`
	Interval    int      `json:"interval"`
	Weekdays    []string `json:"weekdays"`
	StartMinute int      `json:"start_minute"`
	EndMinute   int      `json:"end_minute"`
	SeriesStart string   `json:"series_start"`
	SeriesEnd   string   `json:"series_end"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Create stores a new recurring series and materializes its first horizon
// of occurrences.
func (h *SeriesHandler) Create(c echo.Context) error {
	var req createSeriesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ResourceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}
	start, err := parseDate(req.SeriesStart)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid series_start"})
	}
	end, err := parseDate(req.SeriesEnd)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid series_end"})
	}
	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, name := range req.Weekdays {
		d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown weekday " + name})
		}
		weekdays = append(weekdays, d)
	}

	s, err := h.gen.CreateSeries(c.Request().Context(), actor(c), booking.SeriesRequest{
		ResourceID:  req.ResourceID,
		Recurrence:  model.RecurrenceType(strings.ToUpper(req.Recurrence)),
		Interval:    req.Interval,
		Weekdays:    weekdays,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		SeriesStart: start,
		SeriesEnd:   end,
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, seriesView(s))
}

// Cancel deactivates the series and cancels its future occurrences.
func (h *SeriesHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req cancelRequest
	_ = c.Bind(&req) // body is optional
	n, err := h.gen.CancelSeries(c.Request().Context(), actor(c), id, req.Reason)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"cancelled_occurrences": n})
}

// List returns the authenticated user's series, active first.
func (h *SeriesHandler) List(c echo.Context) error {
	rows, err := h.repo.ListByUser(c.Request().Context(), actor(c).ID)
	if err != nil {
		return writeEngineError(c, err)
	}
	out := make([]echo.Map, 0, len(rows))
	for i := range rows {
		out = append(out, seriesView(&rows[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"series": out})
}
