package errors

import "fmt"

// Location represents the position of a node or token within the original
// rule text. It enables precise error reporting for parse and evaluation
// errors.
type Location struct {
	Line   int // Line number (1-based)
	Column int // Column number (1-based, in runes)
}

// String returns a human-readable representation of the location.
// Format: "line:column"
func (l Location) String() string {
	if !l.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// IsValid returns true if the location carries position information.
func (l Location) IsValid() bool {
	return l.Line > 0
}
