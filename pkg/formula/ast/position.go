package ast

import "fmt"

// Pos is the 1-based character offset of a node or token in the expression.
// The zero value means the position is unknown.
type Pos int

// IsValid returns true if the position points into the expression.
func (p Pos) IsValid() bool {
	return p > 0
}

// String returns a human-readable representation of the position.
func (p Pos) String() string {
	if !p.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("col %d", int(p))
}
