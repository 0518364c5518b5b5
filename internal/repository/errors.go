// Package repository contains the MySQL implementations of the persistence
// interfaces consumed by the booking engine.  Each repository is a thin
// mapping layer: raw SQL in, model structs out, with "no rows" translated
// into booking.ErrNotFound so that callers never see database/sql
// sentinels.
package repository

import (
	"database/sql"
	"errors"

	"github.com/iliyamo/campus-space-reservation/internal/booking"
)

// notFound rewrites sql.ErrNoRows into the engine's ErrNotFound sentinel
// and passes every other error through unchanged.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return booking.ErrNotFound
	}
	return err
}
