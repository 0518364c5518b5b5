package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// SeriesRepo persists recurring-series definitions.  The interval column
// is named interval_n because INTERVAL is a reserved word in MySQL.
type SeriesRepo struct {
	db *sql.DB
}

// NewSeriesRepo returns a new SeriesRepo bound to the given database.
func NewSeriesRepo(db *sql.DB) *SeriesRepo { return &SeriesRepo{db: db} }

const seriesCols = `id, user_id, resource_id, recurrence, interval_n, weekdays,
       start_minute, end_minute, series_start, series_end, last_generated_date,
       active, created_at, updated_at`

func scanSeries(row rowScanner) (*model.RecurringSeries, error) {
	var s model.RecurringSeries
	var lastGenerated sql.NullTime
	err := row.Scan(
		&s.ID, &s.UserID, &s.ResourceID, &s.Recurrence, &s.Interval, &s.Weekdays,
		&s.StartMinute, &s.EndMinute, &s.SeriesStart, &s.SeriesEnd, &lastGenerated,
		&s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastGenerated.Valid {
		s.LastGeneratedDate = &lastGenerated.Time
	}
	return &s, nil
}

// GetByID returns the series or booking.ErrNotFound.
func (r *SeriesRepo) GetByID(ctx context.Context, id uint64) (*model.RecurringSeries, error) {
	const q = `SELECT ` + seriesCols + ` FROM recurring_series WHERE id = ?`
	s, err := scanSeries(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// Create inserts a new series and populates its generated ID.
func (r *SeriesRepo) Create(ctx context.Context, s *model.RecurringSeries) error {
	const q = `INSERT INTO recurring_series
	       (user_id, resource_id, recurrence, interval_n, weekdays, start_minute, end_minute,
	        series_start, series_end, active, created_at, updated_at)
	       VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		s.UserID, s.ResourceID, s.Recurrence, s.Interval, s.Weekdays,
		s.StartMinute, s.EndMinute,
		s.SeriesStart.Format("2006-01-02"), s.SeriesEnd.Format("2006-01-02"),
		s.Active, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Update writes the mutable columns (watermark and active flag) back.
func (r *SeriesRepo) Update(ctx context.Context, s *model.RecurringSeries) error {
	const q = `UPDATE recurring_series SET
	       last_generated_date = ?, active = ?, updated_at = ?
	       WHERE id = ?`
	var watermark interface{}
	if s.LastGeneratedDate != nil {
		watermark = s.LastGeneratedDate.Format("2006-01-02")
	}
	result, err := r.db.ExecContext(ctx, q, watermark, s.Active, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var id uint64
		if err := r.db.QueryRowContext(ctx, `SELECT id FROM recurring_series WHERE id = ?`, s.ID).Scan(&id); err != nil {
			return notFound(err)
		}
	}
	return nil
}

// CountActiveForUser counts the user's active series for the per-user cap.
func (r *SeriesRepo) CountActiveForUser(ctx context.Context, userID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM recurring_series WHERE user_id = ? AND active = TRUE`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListActive returns every active series, oldest first, for the generation
// sweep.
func (r *SeriesRepo) ListActive(ctx context.Context) ([]model.RecurringSeries, error) {
	const q = `SELECT ` + seriesCols + ` FROM recurring_series WHERE active = TRUE ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RecurringSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns the user's series newest-first.
func (r *SeriesRepo) ListByUser(ctx context.Context, userID uint64) ([]model.RecurringSeries, error) {
	const q = `SELECT ` + seriesCols + ` FROM recurring_series WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RecurringSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
