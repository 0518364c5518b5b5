package model

import "time"

// Notification categories emitted by the engine.  Delivery transport is a
// collaborator; the engine only records the decision to notify.
const (
	NotifyWaitlist       = "WAITLIST"
	NotifyExtensionOffer = "EXTENSION_OFFER"
	NotifyReminder       = "REMINDER"
	NotifyNoShow         = "NO_SHOW"
	NotifyApproval       = "APPROVAL"
)

// Notification is one append-only message for a recipient.  Notifications
// are stored independently of the user record and pruned by their own
// expiry sweep; they are never mutated except to stamp ReadAt.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – recipient.
//  Title     – short subject line.
//  Body      – message text.
//  Category  – one of the Notify* constants.
//  ReadAt    – when the recipient read it (nullable).
//  CreatedAt – creation timestamp.
type Notification struct {
	ID        uint64     // notifications.id
	UserID    uint64     // notifications.user_id
	Title     string     // notifications.title
	Body      string     // notifications.body
	Category  string     // notifications.category
	ReadAt    *time.Time // notifications.read_at (nullable)
	CreatedAt time.Time  // notifications.created_at
}
