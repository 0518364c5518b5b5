// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationEvent is published whenever the engine decides to notify a
// user: waitlist openings, extension offers, ending-soon reminders,
// no-show forfeitures and approval outcomes.  It carries enough context
// for downstream consumers to deliver or log the message without querying
// the primary database.
type NotificationEvent struct {
	UserID    uint64 `json:"user_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Category  string `json:"category"`
	EmittedAt string `json:"emitted_at"`
}
