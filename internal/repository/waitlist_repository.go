package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// WaitlistRepo persists waitlist entries for the cascade.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistCols = `id, resource_id, user_id, desired_start, desired_end,
       position, status, notified_at, created_at, updated_at`

func scanWaitlistEntry(row rowScanner) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	var notified sql.NullTime
	err := row.Scan(&e.ID, &e.ResourceID, &e.UserID, &e.DesiredStart, &e.DesiredEnd,
		&e.Position, &e.Status, &notified, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if notified.Valid {
		e.NotifiedAt = &notified.Time
	}
	return &e, nil
}

func collectWaitlistEntries(rows *sql.Rows) ([]model.WaitlistEntry, error) {
	defer rows.Close()
	var out []model.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns the entry or booking.ErrNotFound.
func (r *WaitlistRepo) GetByID(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries WHERE id = ?`
	e, err := scanWaitlistEntry(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// Create inserts a new entry and populates its generated ID.
func (r *WaitlistRepo) Create(ctx context.Context, e *model.WaitlistEntry) error {
	const q = `INSERT INTO waitlist_entries
	       (resource_id, user_id, desired_start, desired_end, position, status, created_at, updated_at)
	       VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, e.ResourceID, e.UserID,
		e.DesiredStart, e.DesiredEnd, e.Position, e.Status, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// Update writes the mutable columns back to the row.
func (r *WaitlistRepo) Update(ctx context.Context, e *model.WaitlistEntry) error {
	const q = `UPDATE waitlist_entries SET
	       position = ?, status = ?, notified_at = ?, updated_at = ?
	       WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, e.Position, e.Status, nullTime(e.NotifiedAt), e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var id uint64
		if err := r.db.QueryRowContext(ctx, `SELECT id FROM waitlist_entries WHERE id = ?`, e.ID).Scan(&id); err != nil {
			return notFound(err)
		}
	}
	return nil
}

// FindWaitingByResource returns the resource's WAITING entries ordered by
// queue position.
func (r *WaitlistRepo) FindWaitingByResource(ctx context.Context, resourceID uint64) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries
	       WHERE resource_id = ? AND status = 'WAITING'
	       ORDER BY position`
	rows, err := r.db.QueryContext(ctx, q, resourceID)
	if err != nil {
		return nil, err
	}
	return collectWaitlistEntries(rows)
}

// FindLiveByUserAndResource returns the user's WAITING or NOTIFIED entry
// for the resource, or (nil, nil) when none exists.
func (r *WaitlistRepo) FindLiveByUserAndResource(ctx context.Context, userID, resourceID uint64) (*model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries
	       WHERE user_id = ? AND resource_id = ? AND status IN ('WAITING','NOTIFIED')
	       LIMIT 1`
	e, err := scanWaitlistEntry(r.db.QueryRowContext(ctx, q, userID, resourceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// MaxPosition returns the highest position among the resource's WAITING
// entries, 0 when the queue is empty.
func (r *WaitlistRepo) MaxPosition(ctx context.Context, resourceID uint64) (uint32, error) {
	const q = `SELECT COALESCE(MAX(position), 0) FROM waitlist_entries
	       WHERE resource_id = ? AND status = 'WAITING'`
	var max uint32
	if err := r.db.QueryRowContext(ctx, q, resourceID).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// FindNotifiedBefore returns NOTIFIED entries whose notification is at or
// before cutoff, for the expiry sweep.
func (r *WaitlistRepo) FindNotifiedBefore(ctx context.Context, cutoff time.Time) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries
	       WHERE status = 'NOTIFIED' AND notified_at <= ?
	       ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	return collectWaitlistEntries(rows)
}

// ListByUser returns the user's entries newest-first.
func (r *WaitlistRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries
	       WHERE user_id = ?
	       ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return collectWaitlistEntries(rows)
}
