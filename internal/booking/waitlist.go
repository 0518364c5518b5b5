package booking

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// Cascade manages the per-resource FIFO waitlist.  Whenever an event frees
// an interval it notifies the earliest compatible waiting entry exactly
// once; entries are otherwise never proactively re-checked.
type Cascade struct {
	Entries   WaitlistStore
	Announcer *Announcer
	Clock     Clock

	// ResponseWindow bounds how long a NOTIFIED entry stays live before
	// the expiry sweep moves it to EXPIRED and passes the chance along.
	ResponseWindow time.Duration

	locks ResourceLocks
}

// NewCascade wires the waitlist cascade.
func NewCascade(entries WaitlistStore, announcer *Announcer, clock Clock, responseWindow time.Duration) *Cascade {
	if entries == nil || clock == nil {
		panic("nil collaborator passed to NewCascade")
	}
	if responseWindow <= 0 {
		responseWindow = 30 * time.Minute
	}
	return &Cascade{
		Entries:        entries,
		Announcer:      announcer,
		Clock:          clock,
		ResponseWindow: responseWindow,
	}
}

// Join appends the actor to the resource's queue.  A user may hold at most
// one live entry per resource.
func (c *Cascade) Join(ctx context.Context, actor model.UserRef, resourceID uint64, start, end time.Time) (*model.WaitlistEntry, error) {
	if !start.Before(end) {
		return nil, validationf("start must be before end")
	}
	unlock := c.locks.Lock(resourceID)
	defer unlock()

	existing, err := c.Entries.FindLiveByUserAndResource(ctx, actor.ID, resourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ConflictError{ResourceID: resourceID, Msg: "you are already on this waitlist"}
	}
	maxPos, err := c.Entries.MaxPosition(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	now := c.Clock.Now()
	e := &model.WaitlistEntry{
		ResourceID:   resourceID,
		UserID:       actor.ID,
		DesiredStart: start,
		DesiredEnd:   end,
		Position:     maxPos + 1,
		Status:       model.WaitlistWaiting,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.Entries.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Leave cancels the entry and recompacts the remaining WAITING positions.
func (c *Cascade) Leave(ctx context.Context, actor model.UserRef, entryID uint64) error {
	e, err := c.Entries.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if e.UserID != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}
	unlock := c.locks.Lock(e.ResourceID)
	defer unlock()
	if e, err = c.Entries.GetByID(ctx, entryID); err != nil {
		return err
	}
	if !e.Status.Live() {
		return statef("waitlist entry is already %s", e.Status)
	}
	now := c.Clock.Now()
	e.Status = model.WaitlistCancelled
	e.UpdatedAt = now
	if err := c.Entries.Update(ctx, e); err != nil {
		return err
	}
	return c.recompact(ctx, e.ResourceID)
}

// OnFreed is the cascade trigger: given a freed interval on a resource it
// notifies the lowest-position WAITING entry whose desired interval
// overlaps it, then stops.  At most one entry is notified per event.
func (c *Cascade) OnFreed(ctx context.Context, resourceID uint64, start, end time.Time) error {
	unlock := c.locks.Lock(resourceID)
	defer unlock()

	waiting, err := c.Entries.FindWaitingByResource(ctx, resourceID)
	if err != nil {
		return err
	}
	for i := range waiting {
		e := &waiting[i]
		if e.Status != model.WaitlistWaiting || e.NotifiedAt != nil {
			continue
		}
		if !Overlaps(e.DesiredStart, e.DesiredEnd, start, end) {
			continue
		}
		now := c.Clock.Now()
		e.Status = model.WaitlistNotified
		e.NotifiedAt = &now
		e.UpdatedAt = now
		if err := c.Entries.Update(ctx, e); err != nil {
			return err
		}
		c.Announcer.Send(ctx, e.UserID, "A slot opened up",
			fmt.Sprintf("The slot %s to %s you were waiting for is now free.",
				start.Format("Jan 2 15:04"), end.Format("15:04")),
			model.NotifyWaitlist)
		if err := c.recompact(ctx, resourceID); err != nil {
			return err
		}
		return nil
	}
	return nil
}

// MarkFulfilled closes the actor's live entry for the resource after a
// successful booking.  Best-effort: failures are logged only.
func (c *Cascade) MarkFulfilled(ctx context.Context, userID, resourceID uint64) {
	e, err := c.Entries.FindLiveByUserAndResource(ctx, userID, resourceID)
	if err != nil || e == nil {
		if err != nil {
			log.Printf("waitlist: fulfil lookup for user %d: %v", userID, err)
		}
		return
	}
	now := c.Clock.Now()
	e.Status = model.WaitlistFulfilled
	e.UpdatedAt = now
	if err := c.Entries.Update(ctx, e); err != nil {
		log.Printf("waitlist: fulfil entry %d: %v", e.ID, err)
		return
	}
	if err := c.recompact(ctx, resourceID); err != nil {
		log.Printf("waitlist: recompact resource %d: %v", resourceID, err)
	}
}

// ExpireNotified moves NOTIFIED entries past the response window to
// EXPIRED and re-runs the cascade for each lapsed interval so the next
// waiting entry gets its turn.  One bad entry never halts the batch.
func (c *Cascade) ExpireNotified(ctx context.Context) (int, error) {
	now := c.Clock.Now()
	rows, err := c.Entries.FindNotifiedBefore(ctx, now.Add(-c.ResponseWindow))
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range rows {
		e := &rows[i]
		e.Status = model.WaitlistExpired
		e.UpdatedAt = now
		if err := c.Entries.Update(ctx, e); err != nil {
			log.Printf("waitlist expiry: entry %d: %v", e.ID, err)
			continue
		}
		expired++
		if err := c.OnFreed(ctx, e.ResourceID, e.DesiredStart, e.DesiredEnd); err != nil {
			log.Printf("waitlist expiry: cascade for resource %d: %v", e.ResourceID, err)
		}
	}
	return expired, nil
}

// recompact re-ranks the WAITING entries of a resource densely from 1 in
// original creation order.  Caller must hold the resource lock.
func (c *Cascade) recompact(ctx context.Context, resourceID uint64) error {
	waiting, err := c.Entries.FindWaitingByResource(ctx, resourceID)
	if err != nil {
		return err
	}
	sort.Slice(waiting, func(i, j int) bool {
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})
	for i := range waiting {
		want := uint32(i + 1)
		if waiting[i].Position == want {
			continue
		}
		waiting[i].Position = want
		waiting[i].UpdatedAt = c.Clock.Now()
		if err := c.Entries.Update(ctx, &waiting[i]); err != nil {
			return err
		}
	}
	return nil
}
