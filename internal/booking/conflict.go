package booking

import (
	"context"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// Detector finds reservations that collide with a candidate interval.  It
// is a pure read path: both the booking validators and the availability
// display use it, and it never mutates anything.
type Detector struct {
	Reservations ReservationStore
}

// NewDetector returns a Detector reading from the given reservation store.
func NewDetector(reservations ReservationStore) *Detector {
	return &Detector{Reservations: reservations}
}

// FindOverlaps returns the active reservations on the resource whose
// interval overlaps [start, end) under the half-open rule.  excludeID,
// when non-zero, omits that reservation so a booking can be re-validated
// against everything but itself.
func (d *Detector) FindOverlaps(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	rows, err := d.Reservations.FindOverlapping(ctx, resourceID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	// The store applies the same predicate in SQL; filter again so fakes
	// and future stores cannot weaken the invariant.
	out := rows[:0]
	for _, r := range rows {
		if r.Status.Terminal() || r.ID == excludeID && excludeID != 0 {
			continue
		}
		if Overlaps(r.StartsAt, r.EndsAt, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

// FreeSlots returns the free sub-intervals of window on the resource,
// computed as the gaps between the sorted overlapping reservations.
func (d *Detector) FreeSlots(ctx context.Context, resourceID uint64, window Interval) ([]Interval, error) {
	busy, err := d.FindOverlaps(ctx, resourceID, window.Start, window.End, 0)
	if err != nil {
		return nil, err
	}
	return FreeGaps(window, busy), nil
}
