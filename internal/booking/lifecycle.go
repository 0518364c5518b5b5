package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// Service owns the reservation state machine.  Every state-changing
// operation executes as an atomic read-check-write unit under the
// per-resource advisory lock; read-only callers go through the Detector
// directly and may observe slightly stale state.
type Service struct {
	Resources    ResourceStore
	Reservations ReservationStore
	Validator    *Validator
	Detector     *Detector
	Calendar     *Calendar
	Waitlist     *Cascade
	Announcer    *Announcer
	Clock        Clock

	locks ResourceLocks
}

// Locks exposes the per-resource lock set so that other writers (the
// recurrence generator) share the Service's critical sections.
func (s *Service) Locks() *ResourceLocks { return &s.locks }

// NewService wires the lifecycle engine.  All collaborators except the
// Announcer and Waitlist are required.
func NewService(resources ResourceStore, reservations ReservationStore, validator *Validator, detector *Detector, calendar *Calendar, waitlist *Cascade, announcer *Announcer, clock Clock) *Service {
	if resources == nil || reservations == nil || validator == nil || detector == nil || calendar == nil || clock == nil {
		panic("nil collaborator passed to NewService")
	}
	return &Service{
		Resources:    resources,
		Reservations: reservations,
		Validator:    validator,
		Detector:     detector,
		Calendar:     calendar,
		Waitlist:     waitlist,
		Announcer:    announcer,
		Clock:        clock,
	}
}

// Create books the resource for the actor.  It runs the policy validator,
// then the conflict detector, inside the resource's critical section, and
// creates the reservation as RESERVED (or PENDING when the resource
// requires approval).  On success any live waitlist entry of the actor for
// this resource is marked fulfilled.
func (s *Service) Create(ctx context.Context, actor model.UserRef, req BookingRequest) (*model.Reservation, error) {
	res, err := s.Resources.GetByID(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !res.Active {
		return nil, validationf("resource %q is not accepting reservations", res.Name)
	}

	unlock := s.locks.Lock(res.ID)
	defer unlock()

	if err := s.Validator.Validate(ctx, actor, res, req); err != nil {
		return nil, err
	}
	overlaps, err := s.Detector.FindOverlaps(ctx, res.ID, req.Start, req.End, 0)
	if err != nil {
		return nil, err
	}
	if len(overlaps) > 0 {
		return nil, &ConflictError{ResourceID: res.ID, Msg: "interval is already booked"}
	}

	now := s.Clock.Now()
	status := model.StatusReserved
	if res.RequiresApproval {
		status = model.StatusPending
	}
	participants := req.Participants
	if participants == 0 {
		participants = 1
	}
	r := &model.Reservation{
		ResourceID:   res.ID,
		UserID:       actor.ID,
		StartsAt:     req.Start,
		EndsAt:       req.End,
		Status:       status,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Reservations.Create(ctx, r); err != nil {
		return nil, err
	}
	if s.Waitlist != nil {
		s.Waitlist.MarkFulfilled(ctx, actor.ID, res.ID)
	}
	return r, nil
}

// load fetches the reservation and enforces that the actor is its holder or
// an administrator.
func (s *Service) load(ctx context.Context, actor model.UserRef, id uint64) (*model.Reservation, error) {
	r, err := s.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return r, nil
}

// CheckIn transitions RESERVED to CHECKED_IN.  It is legal only within
// [start-early, start+lateGrace]; outside the window the call fails with a
// StateError and no side effects.
func (s *Service) CheckIn(ctx context.Context, actor model.UserRef, id uint64) (*model.Reservation, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(r.ResourceID)
	defer unlock()
	if r, err = s.Reservations.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if r.Status != model.StatusReserved {
		return nil, statef("cannot check in from %s", r.Status)
	}

	res, err := s.Resources.GetByID(ctx, r.ResourceID)
	if err != nil {
		return nil, err
	}
	pol := s.Validator.PolicyFor(res.Type)
	now := s.Clock.Now()
	windowStart := r.StartsAt.Add(-pol.EarlyCheckIn)
	windowEnd := r.StartsAt.Add(pol.LateCheckInGrace)
	if now.Before(windowStart) || now.After(windowEnd) {
		return nil, statef("check-in window is %s to %s",
			windowStart.Format("15:04"), windowEnd.Format("15:04"))
	}

	r.Status = model.StatusCheckedIn
	r.CheckedInAt = &now
	r.UpdatedAt = now
	if err := s.Reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// AdminCheckIn is the manual override: it performs the same transition
// without the time-window guard.  Admin only.
func (s *Service) AdminCheckIn(ctx context.Context, actor model.UserRef, id uint64) (*model.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	r, err := s.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(r.ResourceID)
	defer unlock()
	if r, err = s.Reservations.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if r.Status != model.StatusReserved {
		return nil, statef("cannot check in from %s", r.Status)
	}
	now := s.Clock.Now()
	r.Status = model.StatusCheckedIn
	r.CheckedInAt = &now
	r.UpdatedAt = now
	if err := s.Reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CheckOut transitions CHECKED_IN to COMPLETED, stamps the checkout time
// and cascades the remaining interval to the waitlist.
func (s *Service) CheckOut(ctx context.Context, actor model.UserRef, id uint64) (*model.Reservation, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(r.ResourceID)
	defer unlock()
	if r, err = s.Reservations.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if r.Status != model.StatusCheckedIn {
		return nil, statef("cannot check out from %s", r.Status)
	}
	now := s.Clock.Now()
	r.Status = model.StatusCompleted
	r.CheckedOutAt = &now
	r.UpdatedAt = now
	if err := s.Reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	s.cascadeFreed(ctx, r.ResourceID, now, r.EndsAt)
	return r, nil
}

// Cancel terminates a PENDING, RESERVED or CHECKED_IN reservation.  A
// checked-in holder is also checked out.  The freed interval cascades to
// the waitlist.
func (s *Service) Cancel(ctx context.Context, actor model.UserRef, id uint64, reason string) (*model.Reservation, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(r.ResourceID)
	defer unlock()
	if r, err = s.Reservations.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, statef("reservation is already %s", r.Status)
	}
	now := s.Clock.Now()
	if r.Status == model.StatusCheckedIn {
		r.CheckedOutAt = &now
	}
	r.Status = model.StatusCancelled
	r.CancelledAt = &now
	if reason != "" {
		r.CancelReason = &reason
	}
	r.UpdatedAt = now
	if err := s.Reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	freedStart := r.StartsAt
	if now.After(freedStart) {
		freedStart = now
	}
	s.cascadeFreed(ctx, r.ResourceID, freedStart, r.EndsAt)
	return r, nil
}

// Approve resolves a PENDING room reservation.  Approval moves it to
// RESERVED; rejection terminalizes it, cascades the freed interval and
// notifies the holder either way.  Admin only.
func (s *Service) Approve(ctx context.Context, actor model.UserRef, id uint64, approve bool, reason string) (*model.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	r, err := s.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(r.ResourceID)
	defer unlock()
	if r, err = s.Reservations.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if r.Status != model.StatusPending {
		return nil, statef("cannot resolve approval from %s", r.Status)
	}
	now := s.Clock.Now()
	if approve {
		r.Status = model.StatusReserved
		r.UpdatedAt = now
		if err := s.Reservations.Update(ctx, r); err != nil {
			return nil, err
		}
		s.Announcer.Send(ctx, r.UserID, "Reservation approved",
			fmt.Sprintf("Your reservation for %s was approved.", r.StartsAt.Format("Jan 2 15:04")),
			model.NotifyApproval)
		return r, nil
	}
	r.Status = model.StatusRejected
	r.CancelledAt = &now
	if reason != "" {
		r.CancelReason = &reason
	}
	r.UpdatedAt = now
	if err := s.Reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	s.Announcer.Send(ctx, r.UserID, "Reservation rejected",
		fmt.Sprintf("Your reservation for %s was rejected: %s", r.StartsAt.Format("Jan 2 15:04"), reason),
		model.NotifyApproval)
	s.cascadeFreed(ctx, r.ResourceID, r.StartsAt, r.EndsAt)
	return r, nil
}

// RespondExtension answers a pending extension offer.  Acceptance is only
// honoured within the response window and re-runs the conflict detector
// over the added unit; a collision leaves the reservation untouched.
// Declining simply lets the offer lapse.
func (s *Service) RespondExtension(ctx context.Context, actor model.UserRef, id uint64, accept bool) (*model.Reservation, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(r.ResourceID)
	defer unlock()
	if r, err = s.Reservations.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if r.Status != model.StatusCheckedIn || !r.ExtensionRequested {
		return nil, statef("no extension offer is pending")
	}
	if r.ExtensionRespondedAt != nil {
		return nil, statef("extension offer already answered")
	}
	res, err := s.Resources.GetByID(ctx, r.ResourceID)
	if err != nil {
		return nil, err
	}
	pol := s.Validator.PolicyFor(res.Type)
	now := s.Clock.Now()
	if r.ExtensionNotifiedAt == nil || now.Sub(*r.ExtensionNotifiedAt) > pol.ExtensionResponseWindow {
		return nil, statef("extension offer has expired")
	}

	if !accept {
		r.ExtensionRespondedAt = &now
		r.UpdatedAt = now
		if err := s.Reservations.Update(ctx, r); err != nil {
			return nil, err
		}
		return r, nil
	}

	newEnd := r.EndsAt.Add(pol.ExtensionUnit)
	overlaps, err := s.Detector.FindOverlaps(ctx, r.ResourceID, r.EndsAt, newEnd, r.ID)
	if err != nil {
		return nil, err
	}
	if len(overlaps) > 0 {
		return nil, &ConflictError{ResourceID: r.ResourceID, Msg: "the next slot is already booked"}
	}
	r.ExtensionRespondedAt = &now
	r.EndsAt = newEnd
	r.Extended = true
	r.UpdatedAt = now
	if err := s.Reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Extend pushes the reservation end out by a bounded number of hours,
// re-validating the added span against the operating-hours calendar and
// the conflict detector excluding the reservation itself.
func (s *Service) Extend(ctx context.Context, actor model.UserRef, id uint64, hours int) (*model.Reservation, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(r.ResourceID)
	defer unlock()
	if r, err = s.Reservations.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if r.Status != model.StatusReserved && r.Status != model.StatusCheckedIn {
		return nil, statef("cannot extend from %s", r.Status)
	}
	res, err := s.Resources.GetByID(ctx, r.ResourceID)
	if err != nil {
		return nil, err
	}
	pol := s.Validator.PolicyFor(res.Type)
	if hours < 1 || hours > pol.MaxExtensionHours {
		return nil, validationf("extension must be between 1 and %d hours", pol.MaxExtensionHours)
	}

	newEnd := r.EndsAt.Add(time.Duration(hours) * time.Hour)
	if err := s.Calendar.ValidateInterval(ctx, res.VenueID, r.StartsAt, newEnd, pol.SingleDay); err != nil {
		return nil, err
	}
	overlaps, err := s.Detector.FindOverlaps(ctx, r.ResourceID, r.EndsAt, newEnd, r.ID)
	if err != nil {
		return nil, err
	}
	if len(overlaps) > 0 {
		return nil, &ConflictError{ResourceID: r.ResourceID, Msg: "extension overlaps another reservation"}
	}
	now := s.Clock.Now()
	r.EndsAt = newEnd
	r.Extended = true
	r.UpdatedAt = now
	if err := s.Reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// BulkCancel terminates every active reservation of the resource
// overlapping [start, end), for maintenance closures.  One failing row is
// logged and skipped; the rest of the batch proceeds.  Admin only.
func (s *Service) BulkCancel(ctx context.Context, actor model.UserRef, resourceID uint64, start, end time.Time, reason string) (int, error) {
	if !actor.IsAdmin() {
		return 0, ErrForbidden
	}
	unlock := s.locks.Lock(resourceID)
	defer unlock()
	rows, err := s.Reservations.FindActiveByResourceBetween(ctx, resourceID, start, end)
	if err != nil {
		return 0, err
	}
	now := s.Clock.Now()
	cancelled := 0
	for i := range rows {
		r := &rows[i]
		if r.Status == model.StatusCheckedIn {
			r.CheckedOutAt = &now
		}
		r.Status = model.StatusCancelled
		r.CancelledAt = &now
		r.CancelReason = &reason
		r.UpdatedAt = now
		if err := s.Reservations.Update(ctx, r); err != nil {
			log.Printf("bulk-cancel: reservation %d: %v", r.ID, err)
			continue
		}
		cancelled++
		s.Announcer.Send(ctx, r.UserID, "Reservation cancelled",
			fmt.Sprintf("Your reservation for %s was cancelled: %s", r.StartsAt.Format("Jan 2 15:04"), reason),
			model.NotifyApproval)
		freedStart := r.StartsAt
		if now.After(freedStart) {
			freedStart = now
		}
		s.cascadeFreed(ctx, r.ResourceID, freedStart, r.EndsAt)
	}
	return cancelled, nil
}

// cascadeFreed hands a freed interval to the waitlist cascade.  Failures
// are logged and never abort the state transition that freed the slot.
func (s *Service) cascadeFreed(ctx context.Context, resourceID uint64, start, end time.Time) {
	if s.Waitlist == nil || !start.Before(end) {
		return
	}
	if err := s.Waitlist.OnFreed(ctx, resourceID, start, end); err != nil {
		log.Printf("waitlist: cascade for resource %d failed: %v", resourceID, err)
	}
}
