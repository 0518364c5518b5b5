package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  Rows are
// never deleted; lifecycle transitions only update the status and its
// accompanying timestamp columns.  All timestamp columns hold naive local
// campus time.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `id, resource_id, user_id, starts_at, ends_at, status, participants,
       checked_in_at, checked_out_at, cancelled_at, cancel_reason,
       extension_requested, extension_notified_at, extension_responded_at, extended,
       reminder_sent_at, series_id, created_at, updated_at`

// activeStatuses is inlined into queries that only consider reservations
// occupying their interval.  Must match model.ActiveStatuses.
const activeStatuses = `('PENDING','RESERVED','CHECKED_IN')`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanReservation maps one row selected with reservationCols onto the model.
func scanReservation(row rowScanner) (*model.Reservation, error) {
	var r model.Reservation
	var checkedIn, checkedOut, cancelled, extNotified, extResponded, reminder sql.NullTime
	var cancelReason sql.NullString
	var seriesID sql.NullInt64
	err := row.Scan(
		&r.ID, &r.ResourceID, &r.UserID, &r.StartsAt, &r.EndsAt, &r.Status, &r.Participants,
		&checkedIn, &checkedOut, &cancelled, &cancelReason,
		&r.ExtensionRequested, &extNotified, &extResponded, &r.Extended,
		&reminder, &seriesID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if checkedIn.Valid {
		r.CheckedInAt = &checkedIn.Time
	}
	if checkedOut.Valid {
		r.CheckedOutAt = &checkedOut.Time
	}
	if cancelled.Valid {
		r.CancelledAt = &cancelled.Time
	}
	if cancelReason.Valid {
		reason := cancelReason.String
		r.CancelReason = &reason
	}
	if extNotified.Valid {
		r.ExtensionNotifiedAt = &extNotified.Time
	}
	if extResponded.Valid {
		r.ExtensionRespondedAt = &extResponded.Time
	}
	if reminder.Valid {
		r.ReminderSentAt = &reminder.Time
	}
	if seriesID.Valid {
		sid := uint64(seriesID.Int64)
		r.SeriesID = &sid
	}
	return &r, nil
}

// collectReservations drains a multi-row result set.
func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns the reservation or booking.ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return res, nil
}

// Create inserts a new reservation and populates the generated ID on the
// provided record.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	       (resource_id, user_id, starts_at, ends_at, status, participants, series_id, created_at, updated_at)
	       VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var seriesID interface{}
	if res.SeriesID != nil {
		seriesID = *res.SeriesID
	}
	result, err := r.db.ExecContext(ctx, q,
		res.ResourceID, res.UserID, res.StartsAt, res.EndsAt, res.Status,
		res.Participants, seriesID, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// Update writes every mutable column back to the row.  Returns
// booking.ErrNotFound when the row no longer exists.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations SET
	       starts_at = ?, ends_at = ?, status = ?, participants = ?,
	       checked_in_at = ?, checked_out_at = ?, cancelled_at = ?, cancel_reason = ?,
	       extension_requested = ?, extension_notified_at = ?, extension_responded_at = ?, extended = ?,
	       reminder_sent_at = ?, updated_at = ?
	       WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q,
		res.StartsAt, res.EndsAt, res.Status, res.Participants,
		nullTime(res.CheckedInAt), nullTime(res.CheckedOutAt), nullTime(res.CancelledAt), nullString(res.CancelReason),
		res.ExtensionRequested, nullTime(res.ExtensionNotifiedAt), nullTime(res.ExtensionRespondedAt), res.Extended,
		nullTime(res.ReminderSentAt), res.UpdatedAt,
		res.ID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is also 0 for a no-op update, so confirm existence.
		var id uint64
		if err := r.db.QueryRowContext(ctx, `SELECT id FROM reservations WHERE id = ?`, res.ID).Scan(&id); err != nil {
			return notFound(err)
		}
	}
	return nil
}

// FindOverlapping returns active reservations on the resource whose
// interval satisfies starts_at < end AND ends_at > start, excluding
// excludeID (IDs start at 1, so 0 excludes nothing).
func (r *ReservationRepo) FindOverlapping(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	       WHERE resource_id = ? AND id <> ? AND status IN ` + activeStatuses + `
	         AND starts_at < ? AND ends_at > ?
	       ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, resourceID, excludeID, end, start)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// FindActiveByResourceBetween returns active reservations on the resource
// overlapping [start, end), ordered by start time.
func (r *ReservationRepo) FindActiveByResourceBetween(ctx context.Context, resourceID uint64, start, end time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	       WHERE resource_id = ? AND status IN ` + activeStatuses + `
	         AND starts_at < ? AND ends_at > ?
	       ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, resourceID, end, start)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// FindReservedStartedBefore returns RESERVED reservations of the resource
// type whose start lies strictly before cutoff.  Used by the no-show sweep.
func (r *ReservationRepo) FindReservedStartedBefore(ctx context.Context, rtype model.ResourceType, cutoff time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColsQualified + ` FROM reservations rv
	       JOIN resources rs ON rs.id = rv.resource_id
	       WHERE rv.status = 'RESERVED' AND rs.type = ? AND rv.starts_at < ?
	       ORDER BY rv.starts_at`
	rows, err := r.db.QueryContext(ctx, q, rtype, cutoff)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// reservationColsQualified is reservationCols with the rv alias, for joins.
const reservationColsQualified = `rv.id, rv.resource_id, rv.user_id, rv.starts_at, rv.ends_at, rv.status, rv.participants,
       rv.checked_in_at, rv.checked_out_at, rv.cancelled_at, rv.cancel_reason,
       rv.extension_requested, rv.extension_notified_at, rv.extension_responded_at, rv.extended,
       rv.reminder_sent_at, rv.series_id, rv.created_at, rv.updated_at`

// FindCheckedInEndingBetween returns CHECKED_IN reservations of the
// resource type ending within [from, to).  Used by the extension-offer and
// reminder sweeps.
func (r *ReservationRepo) FindCheckedInEndingBetween(ctx context.Context, rtype model.ResourceType, from, to time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColsQualified + ` FROM reservations rv
	       JOIN resources rs ON rs.id = rv.resource_id
	       WHERE rv.status = 'CHECKED_IN' AND rs.type = ? AND rv.ends_at >= ? AND rv.ends_at < ?
	       ORDER BY rv.ends_at`
	rows, err := r.db.QueryContext(ctx, q, rtype, from, to)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// CountActiveForUserBetween counts the user's active reservations of the
// resource type starting within [from, to).
func (r *ReservationRepo) CountActiveForUserBetween(ctx context.Context, userID uint64, rtype model.ResourceType, from, to time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations rv
	       JOIN resources rs ON rs.id = rv.resource_id
	       WHERE rv.user_id = ? AND rs.type = ? AND rv.status IN ` + activeStatuses + `
	         AND rv.starts_at >= ? AND rv.starts_at < ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID, rtype, from, to).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ActiveMinutesForUserBetween sums the booked minutes of the user's
// RESERVED and CHECKED_IN reservations of the resource type starting
// within [from, to).
func (r *ReservationRepo) ActiveMinutesForUserBetween(ctx context.Context, userID uint64, rtype model.ResourceType, from, to time.Time) (int, error) {
	const q = `SELECT COALESCE(SUM(TIMESTAMPDIFF(MINUTE, rv.starts_at, rv.ends_at)), 0)
	       FROM reservations rv
	       JOIN resources rs ON rs.id = rv.resource_id
	       WHERE rv.user_id = ? AND rs.type = ? AND rv.status IN ('RESERVED','CHECKED_IN')
	         AND rv.starts_at >= ? AND rv.starts_at < ?`
	var minutes int
	if err := r.db.QueryRowContext(ctx, q, userID, rtype, from, to).Scan(&minutes); err != nil {
		return 0, err
	}
	return minutes, nil
}

// FindBySeriesAfter returns the series' occurrences starting at or after
// the given time, ordered by start.
func (r *ReservationRepo) FindBySeriesAfter(ctx context.Context, seriesID uint64, after time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	       WHERE series_id = ? AND starts_at >= ?
	       ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, seriesID, after)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// ListByUser returns the user's reservations newest-first, bounded for
// display.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Reservation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT ` + reservationCols + ` FROM reservations
	       WHERE user_id = ?
	       ORDER BY starts_at DESC
	       LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
