package booking

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// The engine talks to persistence through the narrow interfaces below.
// internal/repository provides the MySQL implementations; tests use
// in-memory fakes.  Implementations must translate "no rows" into
// ErrNotFound.

// ScheduleStore loads the operating-hours calendar for a venue.
type ScheduleStore interface {
	// WeeklyEntry returns the schedule row for the venue and weekday, or
	// (nil, nil) when no row exists (treated as closed).
	WeeklyEntry(ctx context.Context, venueID uint64, day time.Weekday) (*model.ScheduleEntry, error)
	// ClosureOn returns the closure exception for the date, or (nil, nil)
	// when the weekly template applies unmodified.
	ClosureOn(ctx context.Context, venueID uint64, date time.Time) (*model.ClosureException, error)
}

// ResourceStore resolves bookable units.
type ResourceStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Resource, error)
}

// ReservationStore persists reservations.  Save semantics are upsert by ID;
// rows are never deleted, only terminalized.
type ReservationStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	Create(ctx context.Context, r *model.Reservation) error
	Update(ctx context.Context, r *model.Reservation) error

	// FindOverlapping returns reservations on the resource in an active
	// status whose interval satisfies starts_at < end AND ends_at > start.
	// excludeID, when non-zero, omits that reservation (self-exclusion for
	// extensions).
	FindOverlapping(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error)

	// FindActiveByResourceBetween returns active reservations on the
	// resource overlapping [start, end), ordered by starts_at.
	FindActiveByResourceBetween(ctx context.Context, resourceID uint64, start, end time.Time) ([]model.Reservation, error)

	// FindReservedStartedBefore returns RESERVED reservations of the given
	// resource type whose start lies strictly before cutoff.
	FindReservedStartedBefore(ctx context.Context, rtype model.ResourceType, cutoff time.Time) ([]model.Reservation, error)

	// FindCheckedInEndingBetween returns CHECKED_IN reservations of the
	// given resource type ending within [from, to).
	FindCheckedInEndingBetween(ctx context.Context, rtype model.ResourceType, from, to time.Time) ([]model.Reservation, error)

	// CountActiveForUserBetween counts the user's active reservations of
	// the given resource type starting within [from, to).
	CountActiveForUserBetween(ctx context.Context, userID uint64, rtype model.ResourceType, from, to time.Time) (int, error)

	// ActiveMinutesForUserBetween sums the durations, in minutes, of the
	// user's RESERVED and CHECKED_IN reservations of the given resource
	// type starting within [from, to).
	ActiveMinutesForUserBetween(ctx context.Context, userID uint64, rtype model.ResourceType, from, to time.Time) (int, error)

	// FindBySeriesAfter returns reservations belonging to the series whose
	// start is at or after the given time.
	FindBySeriesAfter(ctx context.Context, seriesID uint64, after time.Time) ([]model.Reservation, error)
}

// SeriesStore persists recurring series definitions.
type SeriesStore interface {
	GetByID(ctx context.Context, id uint64) (*model.RecurringSeries, error)
	Create(ctx context.Context, s *model.RecurringSeries) error
	Update(ctx context.Context, s *model.RecurringSeries) error
	CountActiveForUser(ctx context.Context, userID uint64) (int, error)
	ListActive(ctx context.Context) ([]model.RecurringSeries, error)
}

// WaitlistStore persists waitlist entries for the cascade.
type WaitlistStore interface {
	GetByID(ctx context.Context, id uint64) (*model.WaitlistEntry, error)
	Create(ctx context.Context, e *model.WaitlistEntry) error
	Update(ctx context.Context, e *model.WaitlistEntry) error

	// FindWaitingByResource returns WAITING entries for the resource
	// ordered by queue position ascending.
	FindWaitingByResource(ctx context.Context, resourceID uint64) ([]model.WaitlistEntry, error)

	// FindLiveByUserAndResource returns the user's WAITING or NOTIFIED
	// entry for the resource, or (nil, nil) when none exists.
	FindLiveByUserAndResource(ctx context.Context, userID, resourceID uint64) (*model.WaitlistEntry, error)

	// MaxPosition returns the highest queue position among WAITING entries
	// for the resource (0 when the queue is empty).
	MaxPosition(ctx context.Context, resourceID uint64) (uint32, error)

	// FindNotifiedBefore returns NOTIFIED entries whose notified_at is at
	// or before cutoff.
	FindNotifiedBefore(ctx context.Context, cutoff time.Time) ([]model.WaitlistEntry, error)
}

// NotificationStore is the append-only per-recipient notification log.
type NotificationStore interface {
	Append(ctx context.Context, n *model.Notification) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifier is the outbound notification sink.  Delivery is fire-and-forget
// and at-least-once is not guaranteed; callers swallow failures.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, title, body, category string) error
}

// Announcer records the decision to notify: it appends to the notification
// store and pushes the event to the sink.  Failures on either side are
// logged and never propagate, so a state transition is never rolled back by
// its notification.
type Announcer struct {
	Store NotificationStore
	Sink  Notifier
	Clock Clock
}

// NewAnnouncer wires the notification fan-out.  Store and sink may each be
// nil; the clock may not, because Send stamps every stored notification.
func NewAnnouncer(store NotificationStore, sink Notifier, clock Clock) *Announcer {
	if clock == nil {
		panic("nil clock passed to NewAnnouncer")
	}
	return &Announcer{Store: store, Sink: sink, Clock: clock}
}

// Send records and dispatches one notification.  Safe to call with a nil
// receiver or nil collaborators; it degrades to a log line.
func (a *Announcer) Send(ctx context.Context, userID uint64, title, body, category string) {
	if a == nil {
		log.Printf("notify: dropped %s for user %d (no announcer)", category, userID)
		return
	}
	if a.Store != nil {
		n := &model.Notification{
			UserID:    userID,
			Title:     title,
			Body:      body,
			Category:  category,
			CreatedAt: a.Clock.Now(),
		}
		if err := a.Store.Append(ctx, n); err != nil {
			log.Printf("notify: append failed for user %d: %v", userID, err)
		}
	}
	if a.Sink != nil {
		if err := a.Sink.Notify(ctx, userID, title, body, category); err != nil {
			log.Printf("notify: dispatch failed for user %d: %v", userID, err)
		}
	}
}
