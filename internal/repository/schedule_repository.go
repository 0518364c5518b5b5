package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// ScheduleRepo persists the weekly operating-hours template and its
// per-date closure exceptions.  The calendar layer treats a missing weekly
// row as closed, so lookups return (nil, nil) instead of an error when no
// row exists.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo returns a new ScheduleRepo bound to the given database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const scheduleCols = `id, venue_id, weekday, open, open_minute, close_minute, early_close_minute, message`

func scanScheduleEntry(row rowScanner) (*model.ScheduleEntry, error) {
	var e model.ScheduleEntry
	var weekday int
	var earlyClose sql.NullInt64
	var message sql.NullString
	err := row.Scan(&e.ID, &e.VenueID, &weekday, &e.Open, &e.OpenMinute, &e.CloseMinute, &earlyClose, &message)
	if err != nil {
		return nil, err
	}
	e.Weekday = time.Weekday(weekday)
	if earlyClose.Valid {
		m := int(earlyClose.Int64)
		e.EarlyCloseMinute = &m
	}
	if message.Valid {
		msg := message.String
		e.Message = &msg
	}
	return &e, nil
}

// WeeklyEntry returns the schedule row for the venue and weekday, or
// (nil, nil) when none exists.
func (s *ScheduleRepo) WeeklyEntry(ctx context.Context, venueID uint64, day time.Weekday) (*model.ScheduleEntry, error) {
	const q = `SELECT ` + scheduleCols + ` FROM schedule_entries WHERE venue_id = ? AND weekday = ?`
	e, err := scanScheduleEntry(s.db.QueryRowContext(ctx, q, venueID, int(day)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// WeekTemplate returns all weekly rows of the venue ordered by weekday.
func (s *ScheduleRepo) WeekTemplate(ctx context.Context, venueID uint64) ([]model.ScheduleEntry, error) {
	const q = `SELECT ` + scheduleCols + ` FROM schedule_entries WHERE venue_id = ? ORDER BY weekday`
	rows, err := s.db.QueryContext(ctx, q, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ScheduleEntry
	for rows.Next() {
		e, err := scanScheduleEntry(rows)
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

// UpsertWeekly inserts or replaces the venue's row for one weekday.
func (s *ScheduleRepo) UpsertWeekly(ctx context.Context, e *model.ScheduleEntry) error {
	const q = `INSERT INTO schedule_entries (venue_id, weekday, open, open_minute, close_minute, early_close_minute, message)
	       VALUES (?, ?, ?, ?, ?, ?, ?)
	       ON DUPLICATE KEY UPDATE
	         open = VALUES(open), open_minute = VALUES(open_minute),
	         close_minute = VALUES(close_minute),
	         early_close_minute = VALUES(early_close_minute), message = VALUES(message)`
	var earlyClose interface{}
	if e.EarlyCloseMinute != nil {
		earlyClose = *e.EarlyCloseMinute
	}
	_, err := s.db.ExecContext(ctx, q, e.VenueID, int(e.Weekday), e.Open,
		e.OpenMinute, e.CloseMinute, earlyClose, nullString(e.Message))
	return err
}

// ClosureOn returns the closure exception for the date, or (nil, nil) when
// the weekly template applies unmodified.
func (s *ScheduleRepo) ClosureOn(ctx context.Context, venueID uint64, date time.Time) (*model.ClosureException, error) {
	const q = `SELECT id, venue_id, date, closed_all_day, open_minute, close_minute, message
	       FROM closure_exceptions WHERE venue_id = ? AND date = ?`
	var c model.ClosureException
	var openMin, closeMin sql.NullInt64
	var message sql.NullString
	err := s.db.QueryRowContext(ctx, q, venueID, date.Format("2006-01-02")).Scan(
		&c.ID, &c.VenueID, &c.Date, &c.ClosedAllDay, &openMin, &closeMin, &message,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if openMin.Valid {
		m := int(openMin.Int64)
		c.OpenMinute = &m
	}
	if closeMin.Valid {
		m := int(closeMin.Int64)
		c.CloseMinute = &m
	}
	if message.Valid {
		msg := message.String
		c.Message = &msg
	}
	return &c, nil
}

// UpsertClosure inserts or replaces the venue's exception for one date.
func (s *ScheduleRepo) UpsertClosure(ctx context.Context, c *model.ClosureException) error {
	const q = `INSERT INTO closure_exceptions (venue_id, date, closed_all_day, open_minute, close_minute, message)
	       VALUES (?, ?, ?, ?, ?, ?)
	       ON DUPLICATE KEY UPDATE
	         closed_all_day = VALUES(closed_all_day), open_minute = VALUES(open_minute),
	         close_minute = VALUES(close_minute), message = VALUES(message)`
	var openMin, closeMin interface{}
	if c.OpenMinute != nil {
		openMin = *c.OpenMinute
	}
	if c.CloseMinute != nil {
		closeMin = *c.CloseMinute
	}
	_, err := s.db.ExecContext(ctx, q, c.VenueID, c.Date.Format("2006-01-02"),
		c.ClosedAllDay, openMin, closeMin, nullString(c.Message))
	return err
}

// DeleteClosure removes the exception for one date; the weekly template
// applies again afterwards.
func (s *ScheduleRepo) DeleteClosure(ctx context.Context, venueID uint64, date time.Time) error {
	const q = `DELETE FROM closure_exceptions WHERE venue_id = ? AND date = ?`
	result, err := s.db.ExecContext(ctx, q, venueID, date.Format("2006-01-02"))
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(sql.ErrNoRows)
	}
	return nil
}
