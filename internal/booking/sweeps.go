package booking

import (
	"context"
	"fmt"
	"log"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// Time-driven transitions.  The sweeper invokes these on its tickers; each
// is idempotent, tolerates late or repeated invocation, and never lets one
// bad record halt the batch.

var sweepTypes = []model.ResourceType{model.ResourceSeat, model.ResourceRoom}

// SweepNoShows moves RESERVED reservations whose start is more than the
// resource type's grace period in the past to NO_SHOW, stamps the
// cancellation and cascades the freed interval.  Returns the number of
// reservations transitioned.
func (s *Service) SweepNoShows(ctx context.Context) (int, error) {
	now := s.Clock.Now()
	total := 0
	for _, rt := range sweepTypes {
		pol := s.Validator.PolicyFor(rt)
		cutoff := now.Add(-pol.NoShowGrace)
		rows, err := s.Reservations.FindReservedStartedBefore(ctx, rt, cutoff)
		if err != nil {
			return total, err
		}
		for i := range rows {
			r := &rows[i]
			if err := s.markNoShow(ctx, r.ID); err != nil {
				log.Printf("no-show sweep: reservation %d: %v", r.ID, err)
				continue
			}
			total++
		}
	}
	return total, nil
}

// markNoShow performs the NO_SHOW transition for one reservation under its
// resource lock, re-reading the row so a concurrent check-in wins.
func (s *Service) markNoShow(ctx context.Context, id uint64) error {
	r, err := s.Reservations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(r.ResourceID)
	defer unlock()
	if r, err = s.Reservations.GetByID(ctx, id); err != nil {
		return err
	}
	if r.Status != model.StatusReserved {
		return nil // checked in or cancelled since the query; nothing to do
	}
	now := s.Clock.Now()
	reason := "missed check-in window"
	r.Status = model.StatusNoShow
	r.CancelledAt = &now
	r.CancelReason = &reason
	r.UpdatedAt = now
	if err := s.Reservations.Update(ctx, r); err != nil {
		return err
	}
	s.Announcer.Send(ctx, r.UserID, "Reservation forfeited",
		fmt.Sprintf("Your reservation for %s was released because you did not check in.", r.StartsAt.Format("Jan 2 15:04")),
		model.NotifyNoShow)
	s.cascadeFreed(ctx, r.ResourceID, r.StartsAt, r.EndsAt)
	return nil
}

// SweepExtensionOffers flags CHECKED_IN reservations ending within the
// look-ahead window that have not been offered an extension yet, stamps the
// offer and emits the extension-offer event.
func (s *Service) SweepExtensionOffers(ctx context.Context) (int, error) {
	now := s.Clock.Now()
	total := 0
	for _, rt := range sweepTypes {
		pol := s.Validator.PolicyFor(rt)
		rows, err := s.Reservations.FindCheckedInEndingBetween(ctx, rt, now, now.Add(pol.ExtensionLookahead))
		if err != nil {
			return total, err
		}
		for i := range rows {
			r := &rows[i]
			if r.ExtensionRequested {
				continue
			}
			r.ExtensionRequested = true
			t := now
			r.ExtensionNotifiedAt = &t
			r.UpdatedAt = now
			if err := s.Reservations.Update(ctx, r); err != nil {
				log.Printf("extension sweep: reservation %d: %v", r.ID, err)
				continue
			}
			total++
			s.Announcer.Send(ctx, r.UserID, "Extend your reservation?",
				fmt.Sprintf("Your reservation ends at %s. Reply within %s to extend it.",
					r.EndsAt.Format("15:04"), pol.ExtensionResponseWindow),
				model.NotifyExtensionOffer)
		}
	}
	return total, nil
}

// SweepReminders sends the ending-soon reminder to CHECKED_IN reservations
// approaching their end, at most once per reservation.
func (s *Service) SweepReminders(ctx context.Context) (int, error) {
	now := s.Clock.Now()
	total := 0
	for _, rt := range sweepTypes {
		pol := s.Validator.PolicyFor(rt)
		rows, err := s.Reservations.FindCheckedInEndingBetween(ctx, rt, now, now.Add(pol.ReminderLead))
		if err != nil {
			return total, err
		}
		for i := range rows {
			r := &rows[i]
			if r.ReminderSentAt != nil {
				continue
			}
			t := now
			r.ReminderSentAt = &t
			r.UpdatedAt = now
			if err := s.Reservations.Update(ctx, r); err != nil {
				log.Printf("reminder sweep: reservation %d: %v", r.ID, err)
				continue
			}
			total++
			s.Announcer.Send(ctx, r.UserID, "Reservation ending soon",
				fmt.Sprintf("Your reservation ends at %s.", r.EndsAt.Format("15:04")),
				model.NotifyReminder)
		}
	}
	return total, nil
}
