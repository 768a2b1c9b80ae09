// Package order materializes a confirmed reconciliation as a sales order
// with one shipment line per matched item.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kwei/leadsync/internal/recon"
)

// ErrNoCustomer is returned when the configured vendor customer record does
// not exist. Orders are always addressed to that fixed customer.
var ErrNoCustomer = errors.New("vendor customer record not found")

// ErrNoItems is returned when the confirmed set contains nothing to ship.
var ErrNoItems = errors.New("no matched items to order")

// Materializer creates one sales order from a confirmed matched set. It must
// either fully succeed (order plus all lines persisted) or fail without
// persisting anything; line-level failures carry a *LineError so the caller
// can attribute them.
type Materializer interface {
	CreateOrder(ctx context.Context, items []recon.MatchedItem, targetDate time.Time) (Receipt, error)
}

// Receipt describes a successfully created order.
type Receipt struct {
	OrderID   int64  `json:"order_id"`
	Reference string `json:"reference"`
	Lines     int    `json:"lines"`
	URL       string `json:"url,omitempty"`
}

// LineError attributes a materialization failure to one picking-list line.
// The enclosing transaction is rolled back, so nothing partial persists.
type LineError struct {
	Line int // 1-based position within the matched set
	SKU  string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("order line %d (sku %q): %v", e.Line, e.SKU, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// DB is the transactional capability the materializer needs.
// Satisfied by *pgxpool.Pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the PostgreSQL-backed Materializer.
type Store struct {
	db           DB
	customerName string
	baseURL      string
	locationID   int64 // 0 means stock is allocated from any location
}

// NewStore creates a Store. customerName is the fixed customer orders are
// addressed to ("TakeALot" in production). baseURL, when set, prefixes the
// receipt's order URL.
func NewStore(db DB, customerName, baseURL string) *Store {
	return &Store{
		db:           db,
		customerName: customerName,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

// WithLocation returns a Store that allocates stock only from the given
// stock location. The receiver is unchanged.
func (s *Store) WithLocation(locationID int64) *Store {
	c := *s
	c.locationID = locationID
	return &c
}

// CreateOrder creates the sales order, its shipment, one line per item at
// the item's send quantity and the stock allocations backing each line, all
// inside a single transaction. A zero targetDate defaults to today.
func (s *Store) CreateOrder(ctx context.Context, items []recon.MatchedItem, targetDate time.Time) (Receipt, error) {
	if len(items) == 0 {
		return Receipt{}, ErrNoItems
	}
	targetDate = DefaultTargetDate(targetDate)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var customerID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM customers WHERE lower(name) = lower($1) AND is_customer`,
		s.customerName).Scan(&customerID)
	if err != nil {
		return Receipt{}, fmt.Errorf("customer %q: %w", s.customerName, ErrNoCustomer)
	}

	reference := newReference()
	var orderID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO sales_orders (reference, customer_id, target_date)
		 VALUES ($1, $2, $3) RETURNING id`,
		reference, customerID, targetDate).Scan(&orderID)
	if err != nil {
		return Receipt{}, fmt.Errorf("create sales order: %w", err)
	}

	var shipmentID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO sales_order_shipments (order_id, delivery_date)
		 VALUES ($1, $2) RETURNING id`,
		orderID, targetDate).Scan(&shipmentID)
	if err != nil {
		return Receipt{}, fmt.Errorf("create shipment: %w", err)
	}

	for i, item := range items {
		var lineID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO sales_order_lines
			   (order_id, shipment_id, part_id, quantity, target_date, notes)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			orderID, shipmentID, item.PartID, item.QtyToSend, targetDate, LineNotes(item)).Scan(&lineID)
		if err != nil {
			return Receipt{}, &LineError{Line: i + 1, SKU: item.SKU, Err: err}
		}
		if err := s.allocateLine(ctx, tx, lineID, item); err != nil {
			return Receipt{}, &LineError{Line: i + 1, SKU: item.SKU, Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, fmt.Errorf("commit order: %w", err)
	}

	return Receipt{
		OrderID:   orderID,
		Reference: reference,
		Lines:     len(items),
		URL:       s.orderURL(orderID),
	}, nil
}

// allocateLine reserves stock for one order line so availability seen by the
// next reconciliation is reduced by what this order will ship. Stock items
// are walked in id order, each contributing what it has left after earlier
// allocations, until the line quantity is covered. Short stock is not an
// error: availability was computed before confirmation and may have moved,
// so the line allocates whatever remains.
func (s *Store) allocateLine(ctx context.Context, tx pgx.Tx, lineID int64, item recon.MatchedItem) error {
	query := `
SELECT si.id, si.quantity - COALESCE(SUM(a.quantity), 0)
FROM stock_items si
LEFT JOIN sales_order_allocations a ON a.stock_item_id = si.id
WHERE si.part_id = $1 AND si.quantity > 0`
	args := []interface{}{item.PartID}
	if s.locationID != 0 {
		query += ` AND si.location_id = $2`
		args = append(args, s.locationID)
	}
	query += `
GROUP BY si.id
ORDER BY si.id`

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("stock for part %d: %w", item.PartID, err)
	}
	defer rows.Close()

	type slot struct {
		stockItemID int64
		free        int
	}
	var slots []slot
	for rows.Next() {
		var sl slot
		if err := rows.Scan(&sl.stockItemID, &sl.free); err != nil {
			return fmt.Errorf("scan stock item: %w", err)
		}
		slots = append(slots, sl)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("stock for part %d: %w", item.PartID, err)
	}
	rows.Close()

	remaining := item.QtyToSend
	for _, sl := range slots {
		if remaining == 0 {
			break
		}
		qty := sl.free
		if qty <= 0 {
			continue
		}
		if qty > remaining {
			qty = remaining
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO sales_order_allocations (line_id, stock_item_id, quantity)
			 VALUES ($1, $2, $3)`,
			lineID, sl.stockItemID, qty)
		if err != nil {
			return fmt.Errorf("allocate stock item %d: %w", sl.stockItemID, err)
		}
		remaining -= qty
	}

	return nil
}

func (s *Store) orderURL(orderID int64) string {
	if s.baseURL == "" {
		return fmt.Sprintf("/order/sales-order/%d/", orderID)
	}
	return fmt.Sprintf("%s/order/sales-order/%d/", s.baseURL, orderID)
}

// DefaultTargetDate returns today (at midnight UTC) when t is zero.
func DefaultTargetDate(t time.Time) time.Time {
	if !t.IsZero() {
		return t
	}
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// LineNotes records where the line came from: the vendor's DC and the full
// quantity the picking list required, which may exceed what was sendable.
func LineNotes(item recon.MatchedItem) string {
	return fmt.Sprintf("Imported: DC=%s, Qty Required=%d", item.DC, item.QtyRequired)
}

// newReference generates a short, unique human-quotable order reference.
func newReference() string {
	return "SO-" + strings.ToUpper(uuid.NewString()[:8])
}
