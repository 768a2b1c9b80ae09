package recon

import (
	"errors"
	"strings"
	"testing"
)

const validHeader = "DC,Product Label Number,SKU,TSIN,Product Title,Qty Sending,Qty Required\n"

func TestParseRows_Valid(t *testing.T) {
	data := validHeader +
		"JHB,PLN1,ABC123,T01,Widget,5,10\n" +
		"CPT,PLN2,DEF456,T02,Gadget,0,3\n"

	rows, err := ParseRows([]byte(data))
	if err != nil {
		t.Fatalf("ParseRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	want := VendorRow{
		Title: "Widget", SKU: "ABC123", TSIN: "T01", DC: "JHB",
		QtyRequired: 10, QtySending: 5,
	}
	if rows[0] != want {
		t.Errorf("rows[0] = %+v, want %+v", rows[0], want)
	}
	if rows[1].QtyRequired != 3 {
		t.Errorf("rows[1].QtyRequired = %d, want 3", rows[1].QtyRequired)
	}
}

func TestParseRows_HeaderAfterBannerRows(t *testing.T) {
	data := "Takealot Picking List Export\n" +
		"Generated 2024-01-15\n" +
		validHeader +
		"JHB,PLN1,ABC123,T01,Widget,0,2\n"

	rows, err := ParseRows([]byte(data))
	if err != nil {
		t.Fatalf("ParseRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].SKU != "ABC123" {
		t.Errorf("SKU = %q, want %q", rows[0].SKU, "ABC123")
	}
}

func TestParseRows_Normalization(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want VendorRow
	}{
		{
			name: "excel formula wrapped sku",
			row:  `JHB,PLN1,"=""ABC123""",T01,Widget,0,1`,
			want: VendorRow{Title: "Widget", SKU: "ABC123", TSIN: "T01", DC: "JHB", QtyRequired: 1},
		},
		{
			name: "blank tsin becomes empty identifier",
			row:  "JHB,PLN1,ABC123,,Widget,0,1",
			want: VendorRow{Title: "Widget", SKU: "ABC123", DC: "JHB", QtyRequired: 1},
		},
		{
			name: "blank quantities become zero",
			row:  "JHB,PLN1,ABC123,T01,Widget,,",
			want: VendorRow{Title: "Widget", SKU: "ABC123", TSIN: "T01", DC: "JHB"},
		},
		{
			name: "surrounding quotes stripped from title",
			row:  `JHB,PLN1,ABC123,T01,"""Widget""",0,1`,
			want: VendorRow{Title: "Widget", SKU: "ABC123", TSIN: "T01", DC: "JHB", QtyRequired: 1},
		},
		{
			name: "bad sending quantity normalizes to zero",
			row:  "JHB,PLN1,ABC123,T01,Widget,many,1",
			want: VendorRow{Title: "Widget", SKU: "ABC123", TSIN: "T01", DC: "JHB", QtyRequired: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ParseRows([]byte(validHeader + tt.row + "\n"))
			if err != nil {
				t.Fatalf("ParseRows() error = %v", err)
			}
			if len(rows) != 1 {
				t.Fatalf("got %d rows, want 1", len(rows))
			}
			if rows[0] != tt.want {
				t.Errorf("row = %+v, want %+v", rows[0], tt.want)
			}
		})
	}
}

func TestParseRows_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "empty file",
			data: "",
		},
		{
			name: "missing required column",
			data: "DC,SKU,TSIN,Product Title,Qty Sending\nJHB,ABC,T1,Widget,1\n",
		},
		{
			name: "qty required not a number",
			data: validHeader + "JHB,PLN1,ABC123,T01,Widget,0,abc\n",
		},
		{
			name: "qty required negative",
			data: validHeader + "JHB,PLN1,ABC123,T01,Widget,0,-4\n",
		},
		{
			name: "header never appears",
			data: strings.Repeat("junk,row\n", 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ParseRows([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseRows() expected error")
			}
			if !IsMalformedInput(err) {
				t.Errorf("error %v is not a MalformedInputError", err)
			}
			if rows != nil {
				t.Errorf("expected no partial rows, got %d", len(rows))
			}
		})
	}
}

func TestParseRows_BadQuantityAbortsWholeParse(t *testing.T) {
	// The good first row must not leak out when a later row is malformed.
	data := validHeader +
		"JHB,PLN1,GOOD,T01,Widget,0,1\n" +
		"JHB,PLN2,BAD,T02,Gadget,0,abc\n"

	rows, err := ParseRows([]byte(data))
	if err == nil {
		t.Fatal("ParseRows() expected error")
	}
	var m *MalformedInputError
	if !errors.As(err, &m) {
		t.Fatalf("error %v is not a MalformedInputError", err)
	}
	if m.Line != 3 {
		t.Errorf("Line = %d, want 3", m.Line)
	}
	if rows != nil {
		t.Errorf("expected nil rows on abort, got %v", rows)
	}
}

func TestParseRows_SkipsEmptyRows(t *testing.T) {
	data := validHeader +
		"JHB,PLN1,ABC123,T01,Widget,0,1\n" +
		",,,,,,\n" +
		"CPT,PLN2,DEF456,T02,Gadget,0,2\n"

	rows, err := ParseRows([]byte(data))
	if err != nil {
		t.Fatalf("ParseRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows, want 2 (empty row skipped)", len(rows))
	}
}

func TestParseRows_InvalidUTF8Sanitized(t *testing.T) {
	data := validHeader + "JHB,PLN1,ABC123,T01,Caf\xe9 Widget,0,1\n"

	rows, err := ParseRows([]byte(data))
	if err != nil {
		t.Fatalf("ParseRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if !strings.Contains(rows[0].Title, "�") {
		t.Errorf("Title = %q, want replacement character for invalid byte", rows[0].Title)
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{`="12345"`, "12345"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := cleanCell(tt.in); got != tt.want {
			t.Errorf("cleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
