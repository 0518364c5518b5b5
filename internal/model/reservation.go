package model

import "time"

// ReservationStatus enumerates the lifecycle states of a reservation.
// Transitions are monotonic: once a terminal state is reached the row is
// never mutated again, only read.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"    // room awaiting approval
	StatusReserved  ReservationStatus = "RESERVED"   // booked, not yet checked in
	StatusCheckedIn ReservationStatus = "CHECKED_IN" // holder is present
	StatusCompleted ReservationStatus = "COMPLETED"  // checked out normally
	StatusCancelled ReservationStatus = "CANCELLED"  // cancelled by holder or admin
	StatusNoShow    ReservationStatus = "NO_SHOW"    // missed the check-in window
	StatusRejected  ReservationStatus = "REJECTED"   // approval denied
)

// Terminal reports whether the status admits no further transitions.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow, StatusRejected:
		return true
	}
	return false
}

// ActiveStatuses lists the statuses that occupy a resource interval and
// therefore participate in conflict detection.
func ActiveStatuses() []ReservationStatus {
	return []ReservationStatus{StatusPending, StatusReserved, StatusCheckedIn}
}

// Reservation records one time-bounded booking of a resource by a user.
// Rows are never deleted; they are terminalized via status.  The invariant
// StartsAt < EndsAt holds for every row, and no two reservations in an
// active status may overlap on the same resource.
//
// Fields:
//  ID                   – primary key identifier.
//  ResourceID           – resource being booked.
//  UserID               – holder of the reservation.
//  StartsAt             – interval start (naive local time).
//  EndsAt               – interval end, exclusive.
//  Status               – current lifecycle state.
//  Participants         – declared headcount (rooms; 1 for seats).
//  CheckedInAt          – when the holder checked in (nullable).
//  CheckedOutAt         – when the holder checked out (nullable).
//  CancelledAt          – when the row was cancelled or no-showed (nullable).
//  CancelReason         – free-text reason for cancellation (nullable).
//  ExtensionRequested   – an extension offer has been issued.
//  ExtensionNotifiedAt  – when the offer was issued (nullable).
//  ExtensionRespondedAt – when the holder answered the offer (nullable).
//  Extended             – the reservation end was pushed out at least once.
//  ReminderSentAt       – when the ending-soon reminder went out (nullable).
//  SeriesID             – owning recurring series, if generated (nullable).
//  CreatedAt            – creation timestamp.
//  UpdatedAt            – last update timestamp.
type Reservation struct {
	ID                   uint64            // reservations.id
	ResourceID           uint64            // reservations.resource_id
	UserID               uint64            // reservations.user_id
	StartsAt             time.Time         // reservations.starts_at
	EndsAt               time.Time         // reservations.ends_at
	Status               ReservationStatus // reservations.status
	Participants         uint32            // reservations.participants
	CheckedInAt          *time.Time        // reservations.checked_in_at (nullable)
	CheckedOutAt         *time.Time        // reservations.checked_out_at (nullable)
	CancelledAt          *time.Time        // reservations.cancelled_at (nullable)
	CancelReason         *string           // reservations.cancel_reason (nullable)
	ExtensionRequested   bool              // reservations.extension_requested
	ExtensionNotifiedAt  *time.Time        // reservations.extension_notified_at (nullable)
	ExtensionRespondedAt *time.Time        // reservations.extension_responded_at (nullable)
	Extended             bool              // reservations.extended
	ReminderSentAt       *time.Time        // reservations.reminder_sent_at (nullable)
	SeriesID             *uint64           // reservations.series_id (nullable)
	CreatedAt            time.Time         // reservations.created_at
	UpdatedAt            time.Time         // reservations.updated_at
}
