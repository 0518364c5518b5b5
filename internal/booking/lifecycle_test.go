package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// testEngine bundles a fully wired engine over in-memory stores.
type testEngine struct {
	clock        *fakeClock
	resources    *fakeResourceStore
	reservations *fakeReservationStore
	schedules    *fakeScheduleStore
	series       *fakeSeriesStore
	waitlist     *fakeWaitlistStore
	notifier     *recordingNotifier
	cascade      *Cascade
	generator    *Generator
	svc          *Service
}

func newTestEngine(t *testing.T, now time.Time) *testEngine {
	t.Helper()
	clock := newFakeClock(now)
	schedules := newFakeScheduleStore()
	standardWeek(schedules)
	resources := newFakeResourceStore(
		model.Resource{ID: 1, VenueID: 1, Type: model.ResourceSeat, Name: "A-17", Capacity: 1, Active: true},
		model.Resource{ID: 2, VenueID: 1, Type: model.ResourceRoom, Name: "Room 204", Capacity: 6, RequiresApproval: true, Active: true},
	)
	reservations := newFakeReservationStore(resources)
	series := newFakeSeriesStore()
	waitlist := newFakeWaitlistStore()
	notifier := &recordingNotifier{}
	announcer := NewAnnouncer(nil, notifier, clock)

	calendar := NewCalendar(schedules)
	detector := NewDetector(reservations)
	validator := &Validator{
		Calendar:     calendar,
		Reservations: reservations,
		Series:       series,
		Policies: map[model.ResourceType]PolicyConfig{
			model.ResourceSeat: DefaultSeatPolicy(),
			model.ResourceRoom: DefaultRoomPolicy(),
		},
		Clock: clock,
	}
	cascade := NewCascade(waitlist, announcer, clock, 30*time.Minute)
	svc := NewService(resources, reservations, validator, detector, calendar, cascade, announcer, clock)
	generator := NewGenerator(series, reservations, resources, detector, validator, cascade, svc.Locks(), clock, 28*24*time.Hour)
	return &testEngine{
		clock:        clock,
		resources:    resources,
		reservations: reservations,
		schedules:    schedules,
		series:       series,
		waitlist:     waitlist,
		notifier:     notifier,
		cascade:      cascade,
		generator:    generator,
		svc:          svc,
	}
}

var student = model.UserRef{ID: 7, Role: model.RoleStudent, HomeVenueID: 1}
var admin = model.UserRef{ID: 1, Role: model.RoleAdmin, HomeVenueID: 1}

func TestCreateScenarios(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))

	// Booking Monday 09:00-10:00 with nothing existing succeeds as RESERVED.
	r, err := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 9, 0), End: at(monday, 10, 0)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != model.StatusReserved {
		t.Fatalf("status = %s, want RESERVED", r.Status)
	}

	// Sunday is closed; the request is rejected with a ValidationError.
	sunday := monday.AddDate(0, 0, 6)
	_, err = e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(sunday, 10, 0), End: at(sunday, 11, 0)})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for closed Sunday, got %v", err)
	}

	// Monday 19:30-21:00 runs past close.
	_, err = e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 19, 30), End: at(monday, 21, 0)})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError past close, got %v", err)
	}

	// An overlapping interval from another user is a ConflictError.
	other := model.UserRef{ID: 8, Role: model.RoleStudent}
	_, err = e.svc.Create(ctx, other, BookingRequest{ResourceID: 1, Start: at(monday, 9, 30), End: at(monday, 10, 30)})
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// Touching intervals coexist.
	if _, err := e.svc.Create(ctx, other, BookingRequest{ResourceID: 1, Start: at(monday, 10, 0), End: at(monday, 11, 0)}); err != nil {
		t.Fatalf("touching interval should not conflict: %v", err)
	}

	// Rooms requiring approval start as PENDING.
	room, err := e.svc.Create(ctx, student, BookingRequest{ResourceID: 2, Start: at(monday, 9, 0), End: at(monday, 10, 0), Participants: 4})
	if err != nil {
		t.Fatalf("room create: %v", err)
	}
	if room.Status != model.StatusPending {
		t.Fatalf("room status = %s, want PENDING", room.Status)
	}
}

func TestNoDoubleBookingUnderInterleaving(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	users := []model.UserRef{
		{ID: 10, Role: model.RoleStudent}, {ID: 11, Role: model.RoleStudent},
		{ID: 12, Role: model.RoleStudent}, {ID: 13, Role: model.RoleStudent},
	}

	// Interleave creates and cancels over randomized-ish intervals and then
	// assert the invariant: no two active reservations on the resource
	// overlap.
	var created []uint64
	for i := 0; i < 40; i++ {
		u := users[i%len(users)]
		startHour := 9 + (i*3)%9
		start := at(monday, startHour, (i*17)%60)
		end := start.Add(time.Duration(30+(i*13)%90) * time.Minute)
		if r, err := e.svc.Create(ctx, u, BookingRequest{ResourceID: 1, Start: start, End: end}); err == nil {
			created = append(created, r.ID)
		}
		if i%5 == 4 && len(created) > 0 {
			id := created[0]
			created = created[1:]
			r, err := e.reservations.GetByID(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			owner := model.UserRef{ID: r.UserID, Role: model.RoleStudent}
			if _, err := e.svc.Cancel(ctx, owner, id, "making room"); err != nil {
				t.Fatalf("cancel: %v", err)
			}
		}
	}

	rows := e.reservations.all()
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			a, b := rows[i], rows[j]
			if a.ResourceID != b.ResourceID || a.Status.Terminal() || b.Status.Terminal() {
				continue
			}
			if a.StartsAt.Before(b.EndsAt) && b.StartsAt.Before(a.EndsAt) {
				t.Fatalf("double booking: %d %v-%v and %d %v-%v", a.ID, a.StartsAt, a.EndsAt, b.ID, b.StartsAt, b.EndsAt)
			}
		}
	}
}

func TestCheckInWindowAndIdempotence(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	r, err := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 14, 0), End: at(monday, 15, 0)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Too early: 14:00 start minus 15 minutes early window opens at 13:45.
	e.clock.Set(at(monday, 13, 30))
	if _, err := e.svc.CheckIn(ctx, student, r.ID); err == nil {
		t.Fatal("expected early check-in to fail")
	}
	got, _ := e.reservations.GetByID(ctx, r.ID)
	if got.Status != model.StatusReserved {
		t.Fatalf("failed check-in must not mutate; status = %s", got.Status)
	}

	// Inside the window it succeeds once; the second call is a StateError
	// and the state after N duplicate calls equals the state after one.
	e.clock.Set(at(monday, 14, 5))
	if _, err := e.svc.CheckIn(ctx, student, r.ID); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	after1, _ := e.reservations.GetByID(ctx, r.ID)
	for i := 0; i < 3; i++ {
		var se *StateError
		if _, err := e.svc.CheckIn(ctx, student, r.ID); !errors.As(err, &se) {
			t.Fatalf("expected StateError on duplicate check-in, got %v", err)
		}
	}
	afterN, _ := e.reservations.GetByID(ctx, r.ID)
	if afterN.Status != after1.Status || !afterN.CheckedInAt.Equal(*after1.CheckedInAt) {
		t.Fatal("duplicate check-ins changed state")
	}

	// Past the late grace no check-in is accepted.
	r2, err := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 16, 0), End: at(monday, 17, 0)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	e.clock.Set(at(monday, 16, 25)) // seat late grace is 20 minutes
	var se *StateError
	if _, err := e.svc.CheckIn(ctx, student, r2.ID); !errors.As(err, &se) {
		t.Fatalf("expected StateError after grace, got %v", err)
	}
}

func TestCheckOutCompletesAndForeignUserForbidden(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	r, _ := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 9, 0), End: at(monday, 12, 0)})
	e.clock.Set(at(monday, 9, 0))
	if _, err := e.svc.CheckIn(ctx, student, r.ID); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	stranger := model.UserRef{ID: 99, Role: model.RoleStudent}
	if _, err := e.svc.CheckOut(ctx, stranger, r.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	e.clock.Set(at(monday, 10, 0))
	got, err := e.svc.CheckOut(ctx, student, r.ID)
	if err != nil {
		t.Fatalf("check-out: %v", err)
	}
	if got.Status != model.StatusCompleted || got.CheckedOutAt == nil {
		t.Fatalf("expected COMPLETED with checkout stamp, got %+v", got)
	}
}

func TestNoShowSweepExactlyOnce(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	r, err := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 14, 0), End: at(monday, 15, 0)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// A waiting user overlaps the interval that will be freed.
	waiter := model.UserRef{ID: 21, Role: model.RoleStudent}
	if _, err := e.cascade.Join(ctx, waiter, 1, at(monday, 14, 0), at(monday, 15, 0)); err != nil {
		t.Fatalf("join: %v", err)
	}

	// At 14:06 the 7-minute grace has not elapsed.
	e.clock.Set(at(monday, 14, 6))
	if n, err := e.svc.SweepNoShows(ctx); err != nil || n != 0 {
		t.Fatalf("premature sweep transitioned %d (%v)", n, err)
	}

	// At 14:08 the sweep marks the reservation NO_SHOW exactly once.
	e.clock.Set(at(monday, 14, 8))
	n, err := e.svc.SweepNoShows(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep = %d, %v; want 1", n, err)
	}
	got, _ := e.reservations.GetByID(ctx, r.ID)
	if got.Status != model.StatusNoShow || got.CancelledAt == nil {
		t.Fatalf("expected NO_SHOW with cancellation stamp, got %+v", got)
	}

	// Later ticks leave the terminal row alone.
	for i := 0; i < 3; i++ {
		e.clock.Advance(time.Minute)
		if n, err := e.svc.SweepNoShows(ctx); err != nil || n != 0 {
			t.Fatalf("repeat sweep transitioned %d (%v)", n, err)
		}
	}
	still, _ := e.reservations.GetByID(ctx, r.ID)
	if still.Status != model.StatusNoShow {
		t.Fatalf("status drifted to %s", still.Status)
	}

	// The freed interval notified exactly one waitlist entry.
	notes := e.notifier.byCategory(model.NotifyWaitlist)
	if len(notes) != 1 || notes[0].UserID != waiter.ID {
		t.Fatalf("waitlist notifications = %v, want one for user %d", notes, waiter.ID)
	}
}

func TestExtensionOfferAndResponse(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	r, _ := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 9, 0), End: at(monday, 11, 0)})
	e.clock.Set(at(monday, 9, 0))
	if _, err := e.svc.CheckIn(ctx, student, r.ID); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	// Before the look-ahead window nothing is offered.
	e.clock.Set(at(monday, 10, 30))
	if n, _ := e.svc.SweepExtensionOffers(ctx); n != 0 {
		t.Fatalf("offered %d too early", n)
	}

	// Within 10 minutes of the end the offer goes out once.
	e.clock.Set(at(monday, 10, 52))
	if n, _ := e.svc.SweepExtensionOffers(ctx); n != 1 {
		t.Fatal("expected one extension offer")
	}
	if n, _ := e.svc.SweepExtensionOffers(ctx); n != 0 {
		t.Fatal("offer must not repeat")
	}

	// Accepting within the response window extends by one unit.
	e.clock.Set(at(monday, 10, 55))
	got, err := e.svc.RespondExtension(ctx, student, r.ID, true)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !got.EndsAt.Equal(at(monday, 12, 0)) || !got.Extended {
		t.Fatalf("expected end pushed to 12:00, got %+v", got)
	}
}

func TestExtensionOfferExpires(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	r, _ := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 9, 0), End: at(monday, 11, 0)})
	e.clock.Set(at(monday, 9, 0))
	if _, err := e.svc.CheckIn(ctx, student, r.ID); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	e.clock.Set(at(monday, 10, 52))
	if n, _ := e.svc.SweepExtensionOffers(ctx); n != 1 {
		t.Fatal("expected one extension offer")
	}

	// Six minutes later the 5-minute response window has lapsed.
	e.clock.Set(at(monday, 10, 58))
	var se *StateError
	if _, err := e.svc.RespondExtension(ctx, student, r.ID, true); !errors.As(err, &se) {
		t.Fatalf("expected StateError for lapsed offer, got %v", err)
	}
	got, _ := e.reservations.GetByID(ctx, r.ID)
	if got.Extended || !got.EndsAt.Equal(at(monday, 11, 0)) {
		t.Fatal("lapsed offer must not mutate the reservation")
	}
}

func TestExtensionBlockedByNeighbor(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	r, _ := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 9, 0), End: at(monday, 11, 0)})
	other := model.UserRef{ID: 8, Role: model.RoleStudent}
	if _, err := e.svc.Create(ctx, other, BookingRequest{ResourceID: 1, Start: at(monday, 11, 0), End: at(monday, 12, 0)}); err != nil {
		t.Fatalf("neighbor create: %v", err)
	}
	e.clock.Set(at(monday, 9, 0))
	if _, err := e.svc.CheckIn(ctx, student, r.ID); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	e.clock.Set(at(monday, 10, 52))
	if n, _ := e.svc.SweepExtensionOffers(ctx); n != 1 {
		t.Fatal("expected one extension offer")
	}
	e.clock.Set(at(monday, 10, 54))
	var ce *ConflictError
	if _, err := e.svc.RespondExtension(ctx, student, r.ID, true); !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestExplicitExtend(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	r, _ := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 9, 0), End: at(monday, 10, 0)})

	// Bounded at the policy's hour ceiling.
	var ve *ValidationError
	if _, err := e.svc.Extend(ctx, student, r.ID, 5); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError over the ceiling, got %v", err)
	}

	got, err := e.svc.Extend(ctx, student, r.ID, 2)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !got.EndsAt.Equal(at(monday, 12, 0)) {
		t.Fatalf("end = %v, want 12:00", got.EndsAt)
	}

	// Extending past closing time fails against the calendar.
	r2, err := e.svc.Create(ctx, student, BookingRequest{ResourceID: 1, Start: at(monday, 17, 0), End: at(monday, 18, 0)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.svc.Extend(ctx, student, r2.ID, 3); err == nil {
		t.Fatal("expected extension into closed hours to fail")
	}
}

func TestApprovalFlow(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	r, err := e.svc.Create(ctx, student, BookingRequest{ResourceID: 2, Start: at(monday, 9, 0), End: at(monday, 10, 0), Participants: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.svc.Approve(ctx, student, r.ID, true, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("students must not approve; got %v", err)
	}
	got, err := e.svc.Approve(ctx, admin, r.ID, true, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != model.StatusReserved {
		t.Fatalf("status = %s, want RESERVED", got.Status)
	}

	// Rejection terminalizes and cascades.
	r2, _ := e.svc.Create(ctx, student, BookingRequest{ResourceID: 2, Start: at(monday, 11, 0), End: at(monday, 12, 0), Participants: 3})
	waiter := model.UserRef{ID: 31, Role: model.RoleStudent}
	if _, err := e.cascade.Join(ctx, waiter, 2, at(monday, 11, 0), at(monday, 12, 0)); err != nil {
		t.Fatalf("join: %v", err)
	}
	got2, err := e.svc.Approve(ctx, admin, r2.ID, false, "double-checking maintenance")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got2.Status != model.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", got2.Status)
	}
	if notes := e.notifier.byCategory(model.NotifyWaitlist); len(notes) != 1 || notes[0].UserID != waiter.ID {
		t.Fatalf("expected one waitlist notification for user %d, got %v", waiter.ID, notes)
	}
}

func TestBulkCancel(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, at(monday, 8, 0))
	users := []model.UserRef{{ID: 41, Role: model.RoleStudent}, {ID: 42, Role: model.RoleStudent}}
	for i, u := range users {
		start := at(monday, 9+2*i, 0)
		if _, err := e.svc.Create(ctx, u, BookingRequest{ResourceID: 1, Start: start, End: start.Add(time.Hour)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := e.svc.BulkCancel(ctx, student, 1, at(monday, 8, 0), at(monday, 20, 0), "pipe burst"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}
	n, err := e.svc.BulkCancel(ctx, admin, 1, at(monday, 8, 0), at(monday, 20, 0), "pipe burst")
	if err != nil || n != 2 {
		t.Fatalf("bulk cancel = %d, %v; want 2", n, err)
	}
	for _, r := range e.reservations.all() {
		if !r.Status.Terminal() {
			t.Fatalf("reservation %d left active after bulk cancel", r.ID)
		}
	}
}

func TestNewAnnouncerRequiresClock(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil clock")
		}
	}()
	NewAnnouncer(nil, nil, nil)
}
