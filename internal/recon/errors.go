package recon

import (
	"errors"
	"fmt"
)

// ErrAmbiguousIdentifier is returned by catalog lookups when more than one
// part shares the same vendor identifier. The matcher routes such rows to
// unmatched rather than picking a part arbitrarily.
var ErrAmbiguousIdentifier = errors.New("identifier matches more than one part")

// MalformedInputError aborts an entire upload: required columns are missing
// or a quantity cell cannot be parsed. No partial parse is surfaced.
type MalformedInputError struct {
	Line   int // 1-based CSV line, 0 when the file as a whole is at fault
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed picking list (line %d): %s", e.Line, e.Reason)
	}
	return "malformed picking list: " + e.Reason
}

// IsMalformedInput reports whether err is a parse-time failure that should be
// shown to the user as a single blocking message.
func IsMalformedInput(err error) bool {
	var m *MalformedInputError
	return errors.As(err, &m)
}
