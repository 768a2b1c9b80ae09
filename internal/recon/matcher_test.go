package recon

import (
	"context"
	"strings"
	"testing"
)

// fakeCatalog is an in-memory Catalog snapshot for tests. Identifier keys are
// stored lowercase; an identifier mapped to more than one part reports
// ErrAmbiguousIdentifier, matching the real catalog's behavior.
type fakeCatalog struct {
	bySKU  map[string][]PartRecord
	byTSIN map[string][]PartRecord
}

func (f *fakeCatalog) find(m map[string][]PartRecord, id string) (*PartRecord, error) {
	parts := m[strings.ToLower(id)]
	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		p := parts[0]
		return &p, nil
	default:
		return nil, ErrAmbiguousIdentifier
	}
}

func (f *fakeCatalog) FindBySKU(_ context.Context, sku string) (*PartRecord, error) {
	return f.find(f.bySKU, sku)
}

func (f *fakeCatalog) FindByTSIN(_ context.Context, tsin string) (*PartRecord, error) {
	return f.find(f.byTSIN, tsin)
}

func TestMatch(t *testing.T) {
	widget := PartRecord{ID: 1, Name: "Widget", Available: 7}
	gadget := PartRecord{ID: 2, Name: "Gadget", Available: 5}
	clone := PartRecord{ID: 3, Name: "Widget Clone", Available: 1}

	cat := &fakeCatalog{
		bySKU: map[string][]PartRecord{
			"abc123": {widget},
			"dup":    {widget, clone},
		},
		byTSIN: map[string][]PartRecord{
			"t99":   {gadget},
			"t-wid": {widget},
			"dupt":  {gadget, clone},
		},
	}

	tests := []struct {
		name       string
		row        VendorRow
		wantPart   int64 // 0 means unmatched
		wantReason MatchReason
	}{
		{
			name:     "sku match",
			row:      VendorRow{SKU: "ABC123"},
			wantPart: 1,
		},
		{
			name:     "sku match is case-insensitive",
			row:      VendorRow{SKU: "abc123"},
			wantPart: 1,
		},
		{
			name:     "tsin fallback when sku blank",
			row:      VendorRow{TSIN: "T99"},
			wantPart: 2,
		},
		{
			name:     "tsin fallback when sku unknown",
			row:      VendorRow{SKU: "ZZZ", TSIN: "T99"},
			wantPart: 2,
		},
		{
			name:     "sku takes precedence when both resolve to different parts",
			row:      VendorRow{SKU: "ABC123", TSIN: "T99"},
			wantPart: 1,
		},
		{
			name:       "no identifiers",
			row:        VendorRow{},
			wantReason: ReasonNoMatch,
		},
		{
			name:       "unknown identifiers",
			row:        VendorRow{SKU: "ZZZ", TSIN: "nope"},
			wantReason: ReasonNoMatch,
		},
		{
			name:       "ambiguous sku with no tsin is unmatched",
			row:        VendorRow{SKU: "DUP"},
			wantReason: ReasonAmbiguous,
		},
		{
			name:       "ambiguous on both strategies",
			row:        VendorRow{SKU: "DUP", TSIN: "DUPT"},
			wantReason: ReasonAmbiguous,
		},
		{
			name:     "ambiguous sku falls through to unique tsin",
			row:      VendorRow{SKU: "DUP", TSIN: "T-WID"},
			wantPart: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, reason, err := Match(context.Background(), cat, tt.row)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if tt.wantPart == 0 {
				if part != nil {
					t.Fatalf("expected no match, got part %d", part.ID)
				}
				if reason != tt.wantReason {
					t.Errorf("reason = %q, want %q", reason, tt.wantReason)
				}
				return
			}
			if part == nil {
				t.Fatalf("expected part %d, got no match (reason %q)", tt.wantPart, reason)
			}
			if part.ID != tt.wantPart {
				t.Errorf("part.ID = %d, want %d", part.ID, tt.wantPart)
			}
		})
	}
}

func TestMatch_Deterministic(t *testing.T) {
	cat := &fakeCatalog{
		bySKU:  map[string][]PartRecord{"abc": {{ID: 1, Name: "Widget", Available: 3}}},
		byTSIN: map[string][]PartRecord{},
	}
	row := VendorRow{SKU: "ABC", QtyRequired: 2}

	first, _, err := Match(context.Background(), cat, row)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		got, _, err := Match(context.Background(), cat, row)
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		if got == nil || first == nil || *got != *first {
			t.Fatalf("run %d: result %+v differs from first %+v", i, got, first)
		}
	}
}
