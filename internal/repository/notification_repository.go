package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// NotificationRepo is the append-only per-recipient notification log.
// Rows are pruned in bulk by age, never edited except to stamp read_at.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Append inserts one notification and populates its generated ID.
func (r *NotificationRepo) Append(ctx context.Context, n *model.Notification) error {
	const q = `INSERT INTO notifications (user_id, title, body, category, created_at)
	       VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, n.UserID, n.Title, n.Body, n.Category, n.CreatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// DeleteOlderThan prunes notifications created before cutoff and returns
// how many rows were removed.
func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM notifications WHERE created_at < ?`
	result, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListByUser returns the user's notifications newest-first, bounded for
// display.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT id, user_id, title, body, category, read_at, created_at
	       FROM notifications
	       WHERE user_id = ?
	       ORDER BY created_at DESC
	       LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Category, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead stamps read_at on one of the user's notifications.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uint64) error {
	const q = `UPDATE notifications SET read_at = ? WHERE id = ? AND user_id = ? AND read_at IS NULL`
	result, err := r.db.ExecContext(ctx, q, time.Now(), id, userID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var found uint64
		if err := r.db.QueryRowContext(ctx, `SELECT id FROM notifications WHERE id = ? AND user_id = ?`, id, userID).Scan(&found); err != nil {
			return notFound(err)
		}
	}
	return nil
}
