// Package styled defines the engine's output unit: document text plus an
// ordered set of disjoint colored spans.
package styled

import (
	"fmt"
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// Role is the small set of color roles a highlighter assigns.
type Role uint8

const (
	RoleDefault Role = iota
	RoleKeyword
	RoleType
	RoleString
	RoleComment
	RoleNumber

	// RoleCount is the number of defined roles.
	RoleCount
)

var roleNames = [RoleCount]string{"default", "keyword", "type", "string", "comment", "number"}

func (r Role) String() string {
	if r < RoleCount {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole maps a role name ("keyword", "comment", ...) to a Role.
func ParseRole(name string) (Role, bool) {
	for i, n := range roleNames {
		if n == name {
			return Role(i), true
		}
	}
	return 0, false
}

// Unit is the unit span positions are measured in.
type Unit uint8

const (
	// UnitRune counts Unicode code points.
	UnitRune Unit = iota
	// UnitUTF16 counts UTF-16 code units.
	UnitUTF16
	// UnitByte counts UTF-8 bytes.
	UnitByte
)

func (u Unit) String() string {
	switch u {
	case UnitRune:
		return "rune"
	case UnitUTF16:
		return "utf16"
	case UnitByte:
		return "byte"
	}
	return fmt.Sprintf("unit(%d)", uint8(u))
}

// ParseUnit maps a unit name to a Unit.  The empty string is UnitRune.
func ParseUnit(name string) (Unit, error) {
	switch name {
	case "", "rune":
		return UnitRune, nil
	case "utf16":
		return UnitUTF16, nil
	case "byte":
		return UnitByte, nil
	}
	return 0, fmt.Errorf("unknown position unit %q", name)
}

// Length returns the length of text measured in u.
func (u Unit) Length(text string) int {
	switch u {
	case UnitByte:
		return len(text)
	case UnitUTF16:
		n := 0
		for _, r := range text {
			n += utf16.RuneLen(r)
		}
		return n
	default:
		return utf8.RuneCountInString(text)
	}
}

// Color is a resolved 24-bit color.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Span colors positions [Start, End) of the text.
type Span struct {
	Start int
	End   int
	Role  Role
	Color Color
}

// Result is a highlighted document.  Spans are sorted, pairwise disjoint and
// lie within [0, Unit.Length(Text)).
type Result struct {
	Text  string
	Unit  Unit
	Spans []Span
}

// Plain returns an uncolored Result for text.
func Plain(text string, unit Unit) *Result {
	return &Result{Text: text, Unit: unit}
}

// spanSize approximates the in-memory footprint of one Span.
const spanSize = 24

// EstimatedSize is a cheap upper-bound-ish estimate of r's memory footprint.
func (r *Result) EstimatedSize() int64 {
	if r == nil {
		return 0
	}
	return int64(len(r.Text)) + int64(len(r.Spans))*spanSize + 64
}

// Validate reports whether r's spans are sorted, disjoint, non-empty and
// within the text bounds.
func (r *Result) Validate() error {
	n := r.Unit.Length(r.Text)
	prevEnd := 0
	for i, s := range r.Spans {
		if s.Start < prevEnd {
			return fmt.Errorf("span %d [%d,%d) overlaps or precedes previous end %d", i, s.Start, s.End, prevEnd)
		}
		if s.End <= s.Start {
			return fmt.Errorf("span %d [%d,%d) is empty", i, s.Start, s.End)
		}
		if s.End > n {
			return fmt.Errorf("span %d [%d,%d) exceeds text length %d", i, s.Start, s.End, n)
		}
		if s.Role >= RoleCount {
			return fmt.Errorf("span %d has unknown role %d", i, s.Role)
		}
		prevEnd = s.End
	}
	return nil
}

// SortSpans orders spans by start position.
func SortSpans(spans []Span) {
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
}

// Coalesce merges adjacent spans that share a role and color.
func Coalesce(spans []Span) []Span {
	if len(spans) < 2 {
		return spans
	}
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if last.End == s.Start && last.Role == s.Role && last.Color == s.Color {
			last.End = s.End
			continue
		}
		out = append(out, s)
	}
	return out
}
