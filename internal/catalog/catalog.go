// Package catalog resolves vendor identifiers against the internal parts
// catalog over PostgreSQL and computes per-part available stock.
//
// Availability is physical stock minus quantities already allocated to open
// sales orders, optionally scoped to a preferred stock location.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kwei/leadsync/internal/recon"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements recon.Catalog over the parts tables.
type Store struct {
	db         DBTX
	locationID int64 // 0 means availability is computed across all locations
}

// New creates a Store with unscoped availability.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// WithLocation returns a Store whose availability queries are restricted to
// the given stock location. The receiver is unchanged.
func (s *Store) WithLocation(locationID int64) *Store {
	return &Store{db: s.db, locationID: locationID}
}

const findByIdentifierSQL = `
SELECT p.id, p.name, COALESCE(p.image_url, '')
FROM parts p
JOIN part_identifiers pi ON pi.part_id = p.id
WHERE pi.kind = $1 AND lower(pi.value) = lower($2)
ORDER BY p.id`

// FindBySKU looks up the part carrying the given SKU identifier.
func (s *Store) FindBySKU(ctx context.Context, sku string) (*recon.PartRecord, error) {
	return s.findByIdentifier(ctx, "sku", sku)
}

// FindByTSIN looks up the part carrying the given TSIN identifier.
func (s *Store) FindByTSIN(ctx context.Context, tsin string) (*recon.PartRecord, error) {
	return s.findByIdentifier(ctx, "tsin", tsin)
}

// findByIdentifier returns (nil, nil) when no part carries the identifier and
// recon.ErrAmbiguousIdentifier when more than one does. Lookups are
// case-insensitive, matching the vendor's identifier handling.
func (s *Store) findByIdentifier(ctx context.Context, kind, value string) (*recon.PartRecord, error) {
	rows, err := s.db.Query(ctx, findByIdentifierSQL, kind, value)
	if err != nil {
		return nil, fmt.Errorf("lookup part by %s: %w", kind, err)
	}
	defer rows.Close()

	var parts []recon.PartRecord
	for rows.Next() {
		var p recon.PartRecord
		if err := rows.Scan(&p.ID, &p.Name, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup part by %s: %w", kind, err)
	}

	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		part := parts[0]
		available, err := s.availableStock(ctx, part.ID)
		if err != nil {
			return nil, err
		}
		part.Available = available
		return &part, nil
	default:
		return nil, fmt.Errorf("%s %q: %w", kind, value, recon.ErrAmbiguousIdentifier)
	}
}

// availableStock computes on-hand quantity minus open sales-order
// allocations, never negative.
func (s *Store) availableStock(ctx context.Context, partID int64) (int, error) {
	onHandSQL := `SELECT COALESCE(SUM(quantity), 0) FROM stock_items WHERE part_id = $1 AND quantity > 0`
	allocSQL := `
SELECT COALESCE(SUM(a.quantity), 0)
FROM sales_order_allocations a
JOIN stock_items si ON si.id = a.stock_item_id
WHERE si.part_id = $1`

	args := []interface{}{partID}
	if s.locationID != 0 {
		onHandSQL += ` AND location_id = $2`
		allocSQL += ` AND si.location_id = $2`
		args = append(args, s.locationID)
	}

	var onHand int
	if err := s.db.QueryRow(ctx, onHandSQL, args...).Scan(&onHand); err != nil {
		return 0, fmt.Errorf("sum stock for part %d: %w", partID, err)
	}

	var allocated int
	if err := s.db.QueryRow(ctx, allocSQL, args...).Scan(&allocated); err != nil {
		return 0, fmt.Errorf("sum allocations for part %d: %w", partID, err)
	}

	available := onHand - allocated
	if available < 0 {
		available = 0
	}
	return available, nil
}

// LocationName returns the display name of a stock location and whether it
// exists. Used to warn when the configured default location is unknown.
func (s *Store) LocationName(ctx context.Context, locationID int64) (string, bool, error) {
	var name string
	err := s.db.QueryRow(ctx,
		`SELECT name FROM stock_locations WHERE id = $1`, locationID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup stock location %d: %w", locationID, err)
	}
	return name, true, nil
}
