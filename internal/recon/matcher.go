package recon

import (
	"context"
	"errors"
	"log/slog"
)

// Catalog is the read-only lookup capability the matcher needs.
//
// Lookups are case-insensitive and must be deterministic for a given catalog
// snapshot. A nil record with a nil error means no part carries the
// identifier; ErrAmbiguousIdentifier means more than one does.
type Catalog interface {
	FindBySKU(ctx context.Context, sku string) (*PartRecord, error)
	FindByTSIN(ctx context.Context, tsin string) (*PartRecord, error)
}

// Match resolves a vendor row to at most one catalog part. The strategy is
// ordered and first-match-wins: SKU, then TSIN. An ambiguous identifier is
// never tie-broken; the row falls through to the next strategy and, failing
// that, lands in unmatched with ReasonAmbiguous.
//
// The returned error is reserved for infrastructure failures (catalog
// unreachable); match outcomes themselves never error.
func Match(ctx context.Context, cat Catalog, row VendorRow) (*PartRecord, MatchReason, error) {
	ambiguous := false

	if row.SKU != "" {
		part, err := cat.FindBySKU(ctx, row.SKU)
		switch {
		case errors.Is(err, ErrAmbiguousIdentifier):
			slog.Warn("ambiguous SKU in catalog", "sku", row.SKU)
			ambiguous = true
		case err != nil:
			return nil, "", err
		case part != nil:
			return part, "", nil
		}
	}

	if row.TSIN != "" {
		part, err := cat.FindByTSIN(ctx, row.TSIN)
		switch {
		case errors.Is(err, ErrAmbiguousIdentifier):
			slog.Warn("ambiguous TSIN in catalog", "tsin", row.TSIN)
			ambiguous = true
		case err != nil:
			return nil, "", err
		case part != nil:
			return part, "", nil
		}
	}

	if ambiguous {
		return nil, ReasonAmbiguous, nil
	}
	return nil, ReasonNoMatch, nil
}
