package booking

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// Generator materializes recurring series into concrete reservations up to
// a rolling horizon.  Generation is best-effort per occurrence: dates that
// conflict are logged and skipped, never surfaced as user errors, and the
// series watermark always advances so past dates are never re-attempted.
type Generator struct {
	Series       SeriesStore
	Reservations ReservationStore
	Resources    ResourceStore
	Detector     *Detector
	Validator    *Validator
	Waitlist     *Cascade
	Locks        *ResourceLocks
	Clock        Clock

	// Horizon is the rolling future window materialized ahead of time.
	Horizon time.Duration
}

// NewGenerator wires the recurrence generator.  locks must be the same
// lock set the Service uses (Service.Locks()) so generation and booking
// requests on one resource serialize.  The Waitlist is optional.
func NewGenerator(series SeriesStore, reservations ReservationStore, resources ResourceStore, detector *Detector, validator *Validator, waitlist *Cascade, locks *ResourceLocks, clock Clock, horizon time.Duration) *Generator {
	if series == nil || reservations == nil || resources == nil || detector == nil || validator == nil || locks == nil || clock == nil {
		panic("nil collaborator passed to NewGenerator")
	}
	if horizon <= 0 {
		horizon = 28 * 24 * time.Hour
	}
	return &Generator{
		Series:       series,
		Reservations: reservations,
		Resources:    resources,
		Detector:     detector,
		Validator:    validator,
		Waitlist:     waitlist,
		Locks:        locks,
		Clock:        clock,
		Horizon:      horizon,
	}
}

// SeriesRequest describes a recurring series to create.
type SeriesRequest struct {
	ResourceID  uint64
	Recurrence  model.RecurrenceType
	Interval    int
	Weekdays    []time.Weekday
	StartMinute int
	EndMinute   int
	SeriesStart time.Time
	SeriesEnd   time.Time
}

// CreateSeries validates and stores a new series, then materializes its
// first horizon of occurrences.
func (g *Generator) CreateSeries(ctx context.Context, actor model.UserRef, req SeriesRequest) (*model.RecurringSeries, error) {
	res, err := g.Resources.GetByID(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !res.Active {
		return nil, validationf("resource %q is not accepting reservations", res.Name)
	}
	if err := g.Validator.ValidateSeries(ctx, actor, res, req.StartMinute, req.EndMinute); err != nil {
		return nil, err
	}
	start, end := DateOf(req.SeriesStart), DateOf(req.SeriesEnd)
	if end.Before(start) {
		return nil, validationf("series end date precedes its start date")
	}
	switch req.Recurrence {
	case model.RecurDaily, model.RecurMonthly, model.RecurCustom:
	case model.RecurWeekly:
		if len(req.Weekdays) == 0 {
			return nil, validationf("weekly series needs at least one weekday")
		}
	default:
		return nil, validationf("unknown recurrence type %q", req.Recurrence)
	}
	interval := req.Interval
	if interval < 1 {
		interval = 1
	}

	now := g.Clock.Now()
	series := &model.RecurringSeries{
		UserID:      actor.ID,
		ResourceID:  req.ResourceID,
		Recurrence:  req.Recurrence,
		Interval:    interval,
		Weekdays:    model.WeekdaySet(req.Weekdays...),
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		SeriesStart: start,
		SeriesEnd:   end,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := g.Series.Create(ctx, series); err != nil {
		return nil, err
	}
	if _, err := g.Generate(ctx, series, DateOf(now.Add(g.Horizon))); err != nil {
		log.Printf("recurrence: initial generation for series %d: %v", series.ID, err)
	}
	return series, nil
}

// Generate materializes the series' occurrences from the day after its
// watermark through min(until, seriesEnd).  Calling it twice with
// increasing horizons produces the same set as one call with the larger
// horizon: no duplicates, no gaps.  The conflict check and the insert run
// under the resource lock shared with the Service, so a concurrent booking
// request cannot slip between them.  Returns the number of occurrences
// created.
func (g *Generator) Generate(ctx context.Context, series *model.RecurringSeries, until time.Time) (int, error) {
	if !series.Active {
		return 0, nil
	}
	from := series.SeriesStart
	if series.LastGeneratedDate != nil {
		if next := series.LastGeneratedDate.AddDate(0, 0, 1); next.After(from) {
			from = next
		}
	}
	until = DateOf(until)
	if series.SeriesEnd.Before(until) {
		until = series.SeriesEnd
	}

	res, err := g.Resources.GetByID(ctx, series.ResourceID)
	if err != nil {
		return 0, err
	}
	unlock := g.Locks.Lock(series.ResourceID)
	defer unlock()

	now := g.Clock.Now()
	created := 0
	for day := from; !day.After(until); day = day.AddDate(0, 0, 1) {
		if !g.matches(series, day) {
			continue
		}
		start := AtMinute(day, series.StartMinute)
		end := AtMinute(day, series.EndMinute)
		if !start.After(now) {
			continue // never generate occurrences in the past
		}
		overlaps, err := g.Detector.FindOverlaps(ctx, series.ResourceID, start, end, 0)
		if err != nil {
			return created, err
		}
		if len(overlaps) > 0 {
			log.Printf("recurrence: series %d skips %s (conflict)", series.ID, day.Format("2006-01-02"))
			continue
		}
		status := model.StatusReserved
		if res.RequiresApproval {
			status = model.StatusPending
		}
		sid := series.ID
		r := &model.Reservation{
			ResourceID:   series.ResourceID,
			UserID:       series.UserID,
			StartsAt:     start,
			EndsAt:       end,
			Status:       status,
			Participants: 1,
			SeriesID:     &sid,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := g.Reservations.Create(ctx, r); err != nil {
			log.Printf("recurrence: series %d occurrence on %s: %v", series.ID, day.Format("2006-01-02"), err)
			continue
		}
		created++
	}

	// Advance the watermark unconditionally so repeated sweeps never
	// re-attempt dates, even when some occurrences were skipped.
	if !until.Before(from) {
		wm := until
		series.LastGeneratedDate = &wm
		series.UpdatedAt = g.Clock.Now()
		if err := g.Series.Update(ctx, series); err != nil {
			return created, err
		}
	}
	return created, nil
}

// GenerateAll runs Generate for every active series up to the rolling
// horizon.  One failing series is logged and skipped.
func (g *Generator) GenerateAll(ctx context.Context) (int, error) {
	series, err := g.Series.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	until := DateOf(g.Clock.Now().Add(g.Horizon))
	total := 0
	for i := range series {
		n, err := g.Generate(ctx, &series[i], until)
		total += n
		if err != nil {
			log.Printf("recurrence: series %d: %v", series[i].ID, err)
		}
	}
	return total, nil
}

// CancelSeries deactivates the series and cancels only its future
// non-terminal occurrences; past occurrences stay untouched.  Every freed
// interval cascades to the waitlist, like any other cancellation.
func (g *Generator) CancelSeries(ctx context.Context, actor model.UserRef, seriesID uint64, reason string) (int, error) {
	series, err := g.Series.GetByID(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	if series.UserID != actor.ID && !actor.IsAdmin() {
		return 0, ErrForbidden
	}
	unlock := g.Locks.Lock(series.ResourceID)
	defer unlock()
	if series, err = g.Series.GetByID(ctx, seriesID); err != nil {
		return 0, err
	}
	if !series.Active {
		return 0, statef("series is already cancelled")
	}
	now := g.Clock.Now()
	series.Active = false
	series.UpdatedAt = now
	if err := g.Series.Update(ctx, series); err != nil {
		return 0, err
	}
	future, err := g.Reservations.FindBySeriesAfter(ctx, seriesID, now)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for i := range future {
		r := &future[i]
		if r.Status.Terminal() {
			continue
		}
		r.Status = model.StatusCancelled
		r.CancelledAt = &now
		if reason != "" {
			r.CancelReason = &reason
		}
		r.UpdatedAt = now
		if err := g.Reservations.Update(ctx, r); err != nil {
			log.Printf("recurrence: cancel occurrence %d: %v", r.ID, err)
			continue
		}
		cancelled++
		g.cascadeFreed(ctx, r.ResourceID, r.StartsAt, r.EndsAt)
	}
	return cancelled, nil
}

// cascadeFreed hands a freed occurrence interval to the waitlist cascade.
// Failures are logged and never abort the cancellation that freed the slot.
func (g *Generator) cascadeFreed(ctx context.Context, resourceID uint64, start, end time.Time) {
	if g.Waitlist == nil || !start.Before(end) {
		return
	}
	if err := g.Waitlist.OnFreed(ctx, resourceID, start, end); err != nil {
		log.Printf("waitlist: cascade for resource %d failed: %v", resourceID, err)
	}
}

// matches reports whether the series generates an occurrence on the date.
func (g *Generator) matches(series *model.RecurringSeries, day time.Time) bool {
	interval := series.Interval
	if interval < 1 {
		interval = 1
	}
	switch series.Recurrence {
	case model.RecurDaily, model.RecurCustom:
		days := int(day.Sub(series.SeriesStart).Hours() / 24)
		return days%interval == 0
	case model.RecurWeekly:
		if !series.HasWeekday(day.Weekday()) {
			return false
		}
		anchor := series.SeriesStart.AddDate(0, 0, -int(series.SeriesStart.Weekday()))
		weeks := int(day.Sub(anchor).Hours() / (24 * 7))
		return weeks%interval == 0
	case model.RecurMonthly:
		if day.Day() != series.SeriesStart.Day() {
			return false
		}
		months := (day.Year()-series.SeriesStart.Year())*12 + int(day.Month()-series.SeriesStart.Month())
		return months%interval == 0
	}
	return false
}
