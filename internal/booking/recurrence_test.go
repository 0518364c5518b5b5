package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// sunday is the day before the reference monday, used as "now" so every
// generated occurrence lies in the future.
var sunday = monday.AddDate(0, 0, -1)

func occurrenceStarts(rows []model.Reservation) []time.Time {
	var out []time.Time
	for _, r := range rows {
		if r.SeriesID != nil {
			out = append(out, r.StartsAt)
		}
	}
	return out
}

func TestCreateSeriesGeneratesMonWedFourWeeks(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(sunday, 9, 0))

	series, err := e.generator.CreateSeries(ctx, student, SeriesRequest{
		ResourceID:  1,
		Recurrence:  model.RecurWeekly,
		Interval:    1,
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
		StartMinute: 10 * 60,
		EndMinute:   11 * 60,
		SeriesStart: monday,
		SeriesEnd:   monday.AddDate(0, 0, 25), // Friday of week 4
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	got := occurrenceStarts(e.reservations.all())
	var want []time.Time
	for week := 0; week < 4; week++ {
		want = append(want,
			at(monday.AddDate(0, 0, 7*week), 10, 0),
			at(monday.AddDate(0, 0, 7*week+2), 10, 0),
		)
	}
	if len(got) != len(want) {
		t.Fatalf("generated %d occurrences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
	if series.LastGeneratedDate == nil {
		t.Fatal("watermark not advanced")
	}
}

func TestGenerateIsResumable(t *testing.T) {
	ctx := context.Background()

	build := func() (*testEngine, *model.RecurringSeries) {
		e := newTestEngine(t, at(sunday, 9, 0))
		s := &model.RecurringSeries{
			UserID:      student.ID,
			ResourceID:  1,
			Recurrence:  model.RecurWeekly,
			Interval:    1,
			Weekdays:    model.WeekdaySet(time.Monday, time.Wednesday),
			StartMinute: 10 * 60,
			EndMinute:   11 * 60,
			SeriesStart: monday,
			SeriesEnd:   monday.AddDate(0, 0, 25),
			Active:      true,
		}
		if err := e.series.Create(ctx, s); err != nil {
			t.Fatalf("seed series: %v", err)
		}
		return e, s
	}

	until1 := monday.AddDate(0, 0, 10)
	until2 := monday.AddDate(0, 0, 24)

	// Two generation passes with increasing horizons.
	stepwise, s1 := build()
	if _, err := stepwise.generator.Generate(ctx, s1, until1); err != nil {
		t.Fatalf("generate until1: %v", err)
	}
	if _, err := stepwise.generator.Generate(ctx, s1, until2); err != nil {
		t.Fatalf("generate until2: %v", err)
	}

	// One pass straight to the larger horizon.
	oneshot, s2 := build()
	if _, err := oneshot.generator.Generate(ctx, s2, until2); err != nil {
		t.Fatalf("generate: %v", err)
	}

	a := occurrenceStarts(stepwise.reservations.all())
	b := occurrenceStarts(oneshot.reservations.all())
	if len(a) != len(b) {
		t.Fatalf("stepwise produced %d occurrences, one-shot %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("occurrence %d differs: %v vs %v", i, a[i], b[i])
		}
	}

	// Re-running at the same horizon adds nothing.
	if n, err := stepwise.generator.Generate(ctx, s1, until2); err != nil || n != 0 {
		t.Fatalf("repeat generation created %d (%v)", n, err)
	}
}

func TestGenerateSkipsConflictsWithoutRetrying(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(sunday, 9, 0))

	// An existing booking collides with the Wednesday occurrence.
	wednesday := monday.AddDate(0, 0, 2)
	blocker := &model.Reservation{
		ResourceID: 1, UserID: 99,
		StartsAt: at(wednesday, 10, 30), EndsAt: at(wednesday, 11, 30),
		Status: model.StatusReserved, Participants: 1,
	}
	if err := e.reservations.Create(ctx, blocker); err != nil {
		t.Fatalf("seed blocker: %v", err)
	}

	series, err := e.generator.CreateSeries(ctx, student, SeriesRequest{
		ResourceID:  1,
		Recurrence:  model.RecurWeekly,
		Interval:    1,
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
		StartMinute: 10 * 60,
		EndMinute:   11 * 60,
		SeriesStart: monday,
		SeriesEnd:   monday.AddDate(0, 0, 11),
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	got := occurrenceStarts(e.reservations.all())
	want := []time.Time{
		at(monday, 10, 0),
		at(monday.AddDate(0, 0, 7), 10, 0),
		at(monday.AddDate(0, 0, 9), 10, 0),
	}
	if len(got) != len(want) {
		t.Fatalf("generated %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}

	// The blocker cancelling later must not resurrect the skipped date; the
	// watermark has moved past it.
	blocker.Status = model.StatusCancelled
	if err := e.reservations.Update(ctx, blocker); err != nil {
		t.Fatalf("cancel blocker: %v", err)
	}
	fresh, _ := e.series.GetByID(ctx, series.ID)
	if n, err := e.generator.Generate(ctx, fresh, monday.AddDate(0, 0, 11)); err != nil || n != 0 {
		t.Fatalf("regeneration created %d (%v)", n, err)
	}
}

func TestCancelSeriesLeavesPastOccurrences(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(sunday, 9, 0))

	series, err := e.generator.CreateSeries(ctx, student, SeriesRequest{
		ResourceID:  1,
		Recurrence:  model.RecurWeekly,
		Interval:    1,
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
		StartMinute: 10 * 60,
		EndMinute:   11 * 60,
		SeriesStart: monday,
		SeriesEnd:   monday.AddDate(0, 0, 25),
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	// Two weeks in, the student cancels the series.
	e.clock.Set(at(monday.AddDate(0, 0, 11), 9, 0)) // Friday of week 2
	n, err := e.generator.CancelSeries(ctx, student, series.ID, "schedule changed")
	if err != nil {
		t.Fatalf("CancelSeries: %v", err)
	}
	if n != 4 {
		t.Fatalf("cancelled %d occurrences, want 4", n)
	}
	for _, r := range e.reservations.all() {
		if r.SeriesID == nil {
			continue
		}
		if r.StartsAt.After(e.clock.Now()) {
			if r.Status != model.StatusCancelled {
				t.Fatalf("future occurrence %v left %s", r.StartsAt, r.Status)
			}
		} else if r.Status != model.StatusReserved {
			t.Fatalf("past occurrence %v mutated to %s", r.StartsAt, r.Status)
		}
	}

	// Cancelling again is a StateError, and generation is over.
	var se *StateError
	if _, err := e.generator.CancelSeries(ctx, student, series.ID, ""); !errors.As(err, &se) {
		t.Fatalf("expected StateError, got %v", err)
	}
	fresh, _ := e.series.GetByID(ctx, series.ID)
	if n, err := e.generator.Generate(ctx, fresh, monday.AddDate(0, 0, 60)); err != nil || n != 0 {
		t.Fatalf("inactive series generated %d (%v)", n, err)
	}
}

func TestCreateSeriesValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(sunday, 9, 0))

	// Weekly series without weekdays.
	var ve *ValidationError
	_, err := e.generator.CreateSeries(ctx, student, SeriesRequest{
		ResourceID: 1, Recurrence: model.RecurWeekly,
		StartMinute: 10 * 60, EndMinute: 11 * 60,
		SeriesStart: monday, SeriesEnd: monday.AddDate(0, 0, 14),
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError without weekdays, got %v", err)
	}

	// Occurrence longer than the recurring ceiling.
	_, err = e.generator.CreateSeries(ctx, student, SeriesRequest{
		ResourceID: 1, Recurrence: model.RecurDaily,
		StartMinute: 9 * 60, EndMinute: 13 * 60,
		SeriesStart: monday, SeriesEnd: monday.AddDate(0, 0, 7),
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for long occurrence, got %v", err)
	}

	// The per-user active-series cap.
	mk := func(wd time.Weekday, startH int) error {
		_, err := e.generator.CreateSeries(ctx, student, SeriesRequest{
			ResourceID: 1, Recurrence: model.RecurWeekly,
			Weekdays:    []time.Weekday{wd},
			StartMinute: startH * 60, EndMinute: (startH + 1) * 60,
			SeriesStart: monday, SeriesEnd: monday.AddDate(0, 0, 14),
		})
		return err
	}
	if err := mk(time.Monday, 9); err != nil {
		t.Fatalf("first series: %v", err)
	}
	if err := mk(time.Tuesday, 9); err != nil {
		t.Fatalf("second series: %v", err)
	}
	var pe *PolicyLimitError
	if err := mk(time.Thursday, 9); !errors.As(err, &pe) || pe.Limit != "active_series" {
		t.Fatalf("expected active_series violation, got %v", err)
	}
}

// overlapHookStore runs a one-shot callback before answering an overlap
// query, exposing the window between a conflict check and its insert.
type overlapHookStore struct {
	*fakeReservationStore
	mu   sync.Mutex
	hook func()
}

func (s *overlapHookStore) FindOverlapping(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	s.mu.Lock()
	hook := s.hook
	s.hook = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return s.fakeReservationStore.FindOverlapping(ctx, resourceID, start, end, excludeID)
}

func TestGenerateAndCreateCannotDoubleBook(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(monday, 8, 0))
	schedules := newFakeScheduleStore()
	standardWeek(schedules)
	resources := newFakeResourceStore(
		model.Resource{ID: 1, VenueID: 1, Type: model.ResourceSeat, Name: "A-17", Capacity: 1, Active: true},
	)
	store := &overlapHookStore{fakeReservationStore: newFakeReservationStore(resources)}
	seriesStore := newFakeSeriesStore()
	calendar := NewCalendar(schedules)
	detector := NewDetector(store)
	validator := &Validator{
		Calendar:     calendar,
		Reservations: store,
		Series:       seriesStore,
		Policies: map[model.ResourceType]PolicyConfig{
			model.ResourceSeat: DefaultSeatPolicy(),
		},
		Clock: clock,
	}
	svc := NewService(resources, store, validator, detector, calendar, nil, nil, clock)
	gen := NewGenerator(seriesStore, store, resources, detector, validator, nil, svc.Locks(), clock, 28*24*time.Hour)

	// While the generator sits between its conflict check and its insert,
	// a booking request for the same interval arrives on another goroutine.
	// The shared resource lock must hold that request back until the
	// occurrence is committed.
	createErr := make(chan error, 1)
	store.mu.Lock()
	store.hook = func() {
		go func() {
			_, err := svc.Create(ctx, student, BookingRequest{
				ResourceID: 1, Start: at(monday, 10, 0), End: at(monday, 11, 0),
			})
			createErr <- err
		}()
		time.Sleep(20 * time.Millisecond) // let the request reach the resource lock
	}
	store.mu.Unlock()

	if _, err := gen.CreateSeries(ctx, student, SeriesRequest{
		ResourceID:  1,
		Recurrence:  model.RecurWeekly,
		Interval:    1,
		Weekdays:    []time.Weekday{time.Monday},
		StartMinute: 10 * 60,
		EndMinute:   11 * 60,
		SeriesStart: monday,
		SeriesEnd:   monday,
	}); err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	var ce *ConflictError
	if err := <-createErr; !errors.As(err, &ce) {
		t.Fatalf("concurrent create returned %v, want ConflictError", err)
	}
	rows := store.all()
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			a, b := rows[i], rows[j]
			if a.ResourceID == b.ResourceID && !a.Status.Terminal() && !b.Status.Terminal() &&
				Overlaps(a.StartsAt, a.EndsAt, b.StartsAt, b.EndsAt) {
				t.Fatalf("double booking: reservation %d overlaps %d", a.ID, b.ID)
			}
		}
	}
}

func TestCancelSeriesCascadesFreedSlotsToWaitlist(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(sunday, 9, 0))

	series, err := e.generator.CreateSeries(ctx, student, SeriesRequest{
		ResourceID:  1,
		Recurrence:  model.RecurWeekly,
		Interval:    1,
		Weekdays:    []time.Weekday{time.Monday},
		StartMinute: 10 * 60,
		EndMinute:   11 * 60,
		SeriesStart: monday,
		SeriesEnd:   monday.AddDate(0, 0, 14),
	})
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	// Another student is waiting for the second Monday's slot.
	waiter := model.UserRef{ID: 41, Role: model.RoleStudent}
	entry, err := e.cascade.Join(ctx, waiter, 1,
		at(monday.AddDate(0, 0, 7), 10, 0), at(monday.AddDate(0, 0, 7), 11, 0))
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := e.generator.CancelSeries(ctx, student, series.ID, "course moved"); err != nil {
		t.Fatalf("CancelSeries: %v", err)
	}

	got, err := e.waitlist.GetByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("reload entry: %v", err)
	}
	if got.Status != model.WaitlistNotified {
		t.Fatalf("waitlist entry status = %s, want NOTIFIED after the series freed its slot", got.Status)
	}
	notes := e.notifier.byCategory(model.NotifyWaitlist)
	if len(notes) != 1 || notes[0].UserID != waiter.ID {
		t.Fatalf("waitlist notifications = %v, want exactly one to user %d", notes, waiter.ID)
	}
}

func TestDailyAndMonthlyCadence(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(sunday, 9, 0))

	// Every other day over one week: Jan 5, 7, 9, 11.
	s := &model.RecurringSeries{
		UserID: student.ID, ResourceID: 1,
		Recurrence: model.RecurDaily, Interval: 2,
		StartMinute: 9 * 60, EndMinute: 10 * 60,
		SeriesStart: monday, SeriesEnd: monday.AddDate(0, 0, 6),
		Active: true,
	}
	if err := e.series.Create(ctx, s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	n, err := e.generator.Generate(ctx, s, monday.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// Jan 11 is a Sunday but generation does not consult the calendar; the
	// occurrence materializes and conflicts surface at check-in time.
	if n != 4 {
		t.Fatalf("daily interval 2 generated %d, want 4", n)
	}

	// Monthly on the 5th.
	m := &model.RecurringSeries{
		UserID: 8, ResourceID: 2,
		Recurrence: model.RecurMonthly, Interval: 1,
		StartMinute: 14 * 60, EndMinute: 15 * 60,
		SeriesStart: monday, SeriesEnd: monday.AddDate(0, 3, 0),
		Active: true,
	}
	if err := e.series.Create(ctx, m); err != nil {
		t.Fatalf("seed: %v", err)
	}
	n, err = e.generator.Generate(ctx, m, monday.AddDate(0, 3, 0))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if n != 4 {
		t.Fatalf("monthly generated %d, want 4 (Jan through Apr 5)", n)
	}
}
