package recon

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// RequiredColumns are the picking-list header columns the parser insists on,
// in the vendor's export order. Header matching is case-insensitive and
// position-independent.
var RequiredColumns = []string{
	"DC",
	"Product Label Number",
	"SKU",
	"TSIN",
	"Product Title",
	"Qty Sending",
	"Qty Required",
}

// MaxHeaderSearchRows is how many leading rows are scanned for the header.
// Vendor exports occasionally prepend banner or summary rows.
var MaxHeaderSearchRows = 20

// headerIndex maps lowercased column names to their position in a row.
type headerIndex map[string]int

// ParseRows turns raw picking-list bytes into normalized vendor rows.
//
// The whole upload fails with *MalformedInputError when the file is not
// parseable CSV, the required columns are absent, or a Qty Required cell is
// not a non-negative integer. Blank optional cells (TSIN, DC, quantities)
// normalize rather than reject: missing TSIN becomes "", a blank quantity
// becomes zero.
func ParseRows(data []byte) ([]VendorRow, error) {
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, &MalformedInputError{Reason: fmt.Sprintf("not parseable as CSV: %v", err)}
	}
	if len(records) == 0 {
		return nil, &MalformedInputError{Reason: "empty file"}
	}

	headerRow := findHeader(records)
	if headerRow < 0 {
		return nil, &MalformedInputError{
			Reason: "missing required columns, expected: " + strings.Join(RequiredColumns, ", "),
		}
	}
	idx := makeHeaderIndex(records[headerRow])

	var rows []VendorRow
	for i, rec := range records[headerRow+1:] {
		line := headerRow + i + 2 // 1-indexed, after header
		if isEmptyRow(rec) {
			continue
		}

		qtyRequired, err := parseQty(cell(rec, idx, "Qty Required"))
		if err != nil {
			return nil, &MalformedInputError{Line: line, Reason: fmt.Sprintf("Qty Required: %v", err)}
		}
		// The file's own sending quantity is informational; a bad value
		// normalizes to zero instead of failing the upload.
		qtySending, err := parseQty(cell(rec, idx, "Qty Sending"))
		if err != nil {
			qtySending = 0
		}

		rows = append(rows, VendorRow{
			Title:       cell(rec, idx, "Product Title"),
			SKU:         cell(rec, idx, "SKU"),
			TSIN:        cell(rec, idx, "TSIN"),
			DC:          cell(rec, idx, "DC"),
			QtyRequired: qtyRequired,
			QtySending:  qtySending,
		})
	}

	return rows, nil
}

// parseQty parses a quantity cell. Empty means zero; anything else must be a
// non-negative integer.
func parseQty(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%q is negative", s)
	}
	return n, nil
}

// cell returns the cleaned value of the named column, or "" when the column
// is absent or the row is short.
func cell(row []string, idx headerIndex, name string) string {
	pos, ok := idx[strings.ToLower(name)]
	if !ok || pos >= len(row) {
		return ""
	}
	return cleanCell(row[pos])
}

// findHeader scans the leading rows for one that carries all required
// columns and returns its index, or -1.
func findHeader(records [][]string) int {
	maxRows := MaxHeaderSearchRows
	if len(records) < maxRows {
		maxRows = len(records)
	}

	for i := 0; i < maxRows; i++ {
		if hasRequiredColumns(records[i]) {
			return i
		}
	}
	return -1
}

func hasRequiredColumns(row []string) bool {
	idx := makeHeaderIndex(row)
	for _, col := range RequiredColumns {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return false
		}
	}
	return true
}

func makeHeaderIndex(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(cleanCell(h))] = i
	}
	return idx
}

// cleanCell strips whitespace, Excel formula wrappers (="...") and stray
// surrounding quotes from a cell value.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode replacement
// character so the CSV reader never chokes on vendor encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
