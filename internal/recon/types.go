// Package recon implements the reconciliation and allocation engine for
// vendor picking-list imports. It parses uploaded rows, matches them against
// the internal parts catalog and computes shipment quantities and the
// resulting stock on hand. The package has no UI or transport dependencies
// and can be driven by any frontend.
package recon

// VendorRow is one normalized line from an uploaded picking list.
// Rows are immutable once parsed and discarded after reconciliation.
type VendorRow struct {
	Title       string
	SKU         string
	TSIN        string
	DC          string
	QtyRequired int
	// QtySending is the quantity the vendor file claims is being sent.
	// Informational only: the engine computes its own send quantity.
	QtySending int
}

// PartRecord is an internal catalog part resolved during matching.
// Available is the stock on hand minus quantities already allocated to open
// sales orders, scoped to the preferred stock location when one is configured.
type PartRecord struct {
	ID        int64
	Name      string
	ImageURL  string
	Available int
}

// MatchReason explains why a row landed in the unmatched set.
type MatchReason string

const (
	// ReasonNoMatch means no catalog part carries the row's identifiers.
	ReasonNoMatch MatchReason = "no_match"
	// ReasonAmbiguous means an identifier is shared by more than one part.
	ReasonAmbiguous MatchReason = "ambiguous_identifier"
)

// MatchedItem joins a vendor row with its resolved part plus the computed
// allocation. CalculatedSoH is a pre-fill suggestion; the user may override
// it before the stock sync is confirmed.
type MatchedItem struct {
	PartID        int64  `json:"part"`
	SKU           string `json:"sku"`
	TSIN          string `json:"tsin"`
	Name          string `json:"name"`
	ImageURL      string `json:"image_url,omitempty"`
	DC            string `json:"dc"`
	QtyRequired   int    `json:"qty_required"`
	QtyToSend     int    `json:"qty_to_send"`
	Available     int    `json:"available"`
	CalculatedSoH int    `json:"calculated_soh"`
}

// UnmatchedItem is a row that resolved to no part. Terminal: it is never
// promoted to matched; the display fields are kept for diagnostics.
type UnmatchedItem struct {
	Title       string `json:"product_title"`
	SKU         string `json:"sku"`
	TSIN        string `json:"tsin"`
	DC          string `json:"dc"`
	QtyRequired int    `json:"qty_required"`
	// QtySending is always zero for an unmatched row; kept so the display
	// columns line up with matched items.
	QtySending int         `json:"qty_sending"`
	Reason     MatchReason `json:"reason"`
}

// Result is the outcome of reconciling one uploaded file. It is serializable
// so it can be parked between the upload and confirmation requests and
// re-submitted under an opaque token.
type Result struct {
	Matched   []MatchedItem   `json:"matched_items"`
	Unmatched []UnmatchedItem `json:"unmatched_items"`
	// TargetDate is the requested delivery date in YYYY-MM-DD form.
	// Empty means "today" at confirmation time.
	TargetDate string   `json:"target_date,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// HasMatches reports whether any row resolved to a catalog part.
// Confirmation actions are gated on this.
func (r *Result) HasMatches() bool { return len(r.Matched) > 0 }
