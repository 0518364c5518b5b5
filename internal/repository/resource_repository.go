package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// ResourceRepo provides CRUD operations for bookable units (seats and
// rooms) and their venues.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo returns a new ResourceRepo bound to the given database.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

const resourceCols = `id, venue_id, type, name, capacity, requires_approval, active, created_at, updated_at`

func scanResource(row rowScanner) (*model.Resource, error) {
	var r model.Resource
	err := row.Scan(&r.ID, &r.VenueID, &r.Type, &r.Name, &r.Capacity,
		&r.RequiresApproval, &r.Active, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByID returns the resource or booking.ErrNotFound.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (*model.Resource, error) {
	const q = `SELECT ` + resourceCols + ` FROM resources WHERE id = ?`
	res, err := scanResource(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return res, nil
}

// ListByVenue returns the venue's resources, optionally filtered by type
// (pass an empty type for all), ordered by name.
func (r *ResourceRepo) ListByVenue(ctx context.Context, venueID uint64, rtype model.ResourceType) ([]model.Resource, error) {
	q := `SELECT ` + resourceCols + ` FROM resources WHERE venue_id = ?`
	args := []interface{}{venueID}
	if rtype != "" {
		q += ` AND type = ?`
		args = append(args, rtype)
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new resource and populates its generated ID.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	const q = `INSERT INTO resources (venue_id, type, name, capacity, requires_approval, active)
	       VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, res.VenueID, res.Type, res.Name,
		res.Capacity, res.RequiresApproval, res.Active)
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

// SetActive toggles whether the resource accepts new reservations.
func (r *ResourceRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE resources SET active = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, active, time.Now(), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var found uint64
		if err := r.db.QueryRowContext(ctx, `SELECT id FROM resources WHERE id = ?`, id).Scan(&found); err != nil {
			return notFound(err)
		}
	}
	return nil
}

// VenueRepo provides CRUD operations for venues.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo returns a new VenueRepo bound to the given database.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

// GetByID returns the venue or booking.ErrNotFound.
func (v *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	const q = `SELECT id, name, created_at, updated_at FROM venues WHERE id = ?`
	var ven model.Venue
	err := v.db.QueryRowContext(ctx, q, id).Scan(&ven.ID, &ven.Name, &ven.CreatedAt, &ven.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &ven, nil
}

// List returns all venues ordered by name.
func (v *VenueRepo) List(ctx context.Context) ([]model.Venue, error) {
	const q = `SELECT id, name, created_at, updated_at FROM venues ORDER BY name`
	rows, err := v.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Venue
	for rows.Next() {
		var ven model.Venue
		if err := rows.Scan(&ven.ID, &ven.Name, &ven.CreatedAt, &ven.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ven)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new venue and populates its generated ID.
func (v *VenueRepo) Create(ctx context.Context, ven *model.Venue) error {
	const q = `INSERT INTO venues (name) VALUES (?)`
	result, err := v.db.ExecContext(ctx, q, ven.Name)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	ven.ID = uint64(id)
	return nil
}
