package model

import "time"

// WaitlistStatus enumerates the states of a waitlist entry.  FULFILLED,
// CANCELLED and EXPIRED entries are immutable.
type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "WAITING"
	WaitlistNotified  WaitlistStatus = "NOTIFIED"
	WaitlistFulfilled WaitlistStatus = "FULFILLED"
	WaitlistCancelled WaitlistStatus = "CANCELLED"
	WaitlistExpired   WaitlistStatus = "EXPIRED"
)

// WaitlistEntry is one user's interest in a resource over a desired
// interval.  Position is a dense 1-based rank among the WAITING entries of
// the same resource, consistent with creation order and recomputed when an
// entry leaves the queue.
//
// Fields:
//  ID           – primary key identifier.
//  ResourceID   – resource the user is waiting for.
//  UserID       – requester.
//  DesiredStart – start of the interval the user wants.
//  DesiredEnd   – end of the interval, exclusive.
//  Position     – dense 1-based queue rank among WAITING entries.
//  Status       – WAITING, NOTIFIED, FULFILLED, CANCELLED or EXPIRED.
//  NotifiedAt   – when the cascade notified this entry (nullable).
//  CreatedAt    – creation timestamp; queue order follows it.
//  UpdatedAt    – last update timestamp.
type WaitlistEntry struct {
	ID           uint64         // waitlist_entries.id
	ResourceID   uint64         // waitlist_entries.resource_id
	UserID       uint64         // waitlist_entries.user_id
	DesiredStart time.Time      // waitlist_entries.desired_start
	DesiredEnd   time.Time      // waitlist_entries.desired_end
	Position     uint32         // waitlist_entries.position
	Status       WaitlistStatus // waitlist_entries.status
	NotifiedAt   *time.Time     // waitlist_entries.notified_at (nullable)
	CreatedAt    time.Time      // waitlist_entries.created_at
	UpdatedAt    time.Time      // waitlist_entries.updated_at
}

// Live reports whether the entry still participates in the queue.
func (s WaitlistStatus) Live() bool {
	return s == WaitlistWaiting || s == WaitlistNotified
}
