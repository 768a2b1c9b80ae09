package recon

import "context"

// Reconcile runs the matcher and the allocation calculator over every parsed
// row, in file order, and partitions the outcome into matched and unmatched
// sequences preserving that order.
//
// Every row lands in exactly one of the two sequences; nothing is dropped.
// The computation is pure given a catalog snapshot, so re-running it for the
// same file yields the same result.
func Reconcile(ctx context.Context, cat Catalog, rows []VendorRow) (*Result, error) {
	res := &Result{
		Matched:   []MatchedItem{},
		Unmatched: []UnmatchedItem{},
	}

	for _, row := range rows {
		part, reason, err := Match(ctx, cat, row)
		if err != nil {
			return nil, err
		}

		if part == nil {
			res.Unmatched = append(res.Unmatched, UnmatchedItem{
				Title:       row.Title,
				SKU:         row.SKU,
				TSIN:        row.TSIN,
				DC:          row.DC,
				QtyRequired: row.QtyRequired,
				Reason:      reason,
			})
			continue
		}

		alloc := Allocate(row.QtyRequired, part.Available)
		res.Matched = append(res.Matched, MatchedItem{
			PartID:        part.ID,
			SKU:           row.SKU,
			TSIN:          row.TSIN,
			Name:          part.Name,
			ImageURL:      part.ImageURL,
			DC:            row.DC,
			QtyRequired:   row.QtyRequired,
			QtyToSend:     alloc.QtyToSend,
			Available:     part.Available,
			CalculatedSoH: alloc.CalculatedSoH,
		})
	}

	return res, nil
}
