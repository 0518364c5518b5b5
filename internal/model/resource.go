package model

import "time"

// ResourceType distinguishes the two bookable unit kinds.  Seats and rooms
// follow different policy rules (quotas, grace windows, approval) which must
// never be silently unified.
type ResourceType string

const (
	ResourceSeat ResourceType = "SEAT"
	ResourceRoom ResourceType = "ROOM"
)

// Venue represents a physical location with its own operating-hours
// calendar.  Resources belong to exactly one venue.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the location.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Venue struct {
	ID        uint64    // venues.id
	Name      string    // venues.name
	CreatedAt time.Time // venues.created_at
	UpdatedAt time.Time // venues.updated_at
}

// Resource is a bookable unit, either a study seat or a meeting room,
// belonging to a venue.  Rooms may require administrative approval before a
// reservation becomes active and carry a participant capacity.
//
// Fields:
//  ID               – primary key identifier.
//  VenueID          – venue the resource is located in.
//  Type             – SEAT or ROOM.
//  Name             – human-readable label (e.g. "A-17", "Room 204").
//  Capacity         – maximum participant count (1 for seats).
//  RequiresApproval – whether new reservations start in PENDING.
//  Active           – inactive resources reject new reservations.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Resource struct {
	ID               uint64       // resources.id
	VenueID          uint64       // resources.venue_id
	Type             ResourceType // resources.type
	Name             string       // resources.name
	Capacity         uint32       // resources.capacity
	RequiresApproval bool         // resources.requires_approval
	Active           bool         // resources.active
	CreatedAt        time.Time    // resources.created_at
	UpdatedAt        time.Time    // resources.updated_at
}
