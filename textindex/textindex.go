// Package textindex translates byte offsets reported by regexp matches into
// the output positions of a styled.Result in constant time.
//
// A Mapping is built once per document in a single pass and then consulted
// for every match; nothing walks the string per lookup.
package textindex

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/cptaffe/previewhl/styled"
)

// Mapping holds two tables for one document:
//
//	runeAt[b] = index of the rune that starts at or contains byte b
//	posAt[i]  = output position of rune i in the configured unit
//
// Both tables carry one trailing entry so the end offset of the text maps
// to the text length.
type Mapping struct {
	unit   styled.Unit
	n      int
	runeAt []int32
	posAt  []int32
}

// Build indexes text for unit.  Invalid UTF-8 bytes count as one rune each,
// matching how range over a string decodes them.
func Build(text string, unit styled.Unit) *Mapping {
	m := &Mapping{unit: unit, n: len(text)}
	if unit == styled.UnitByte {
		return m
	}
	m.runeAt = make([]int32, len(text)+1)
	m.posAt = make([]int32, 0, len(text)+1)

	pos := int32(0)
	ri := int32(0)
	for b := 0; b < len(text); {
		r, size := utf8.DecodeRuneInString(text[b:])
		for k := 0; k < size; k++ {
			m.runeAt[b+k] = ri
		}
		m.posAt = append(m.posAt, pos)
		if unit == styled.UnitUTF16 {
			pos += int32(utf16.RuneLen(r))
		} else {
			pos++
		}
		b += size
		ri++
	}
	m.runeAt[len(text)] = ri
	m.posAt = append(m.posAt, pos)
	m.n = int(pos)
	return m
}

// Unit returns the unit positions are reported in.
func (m *Mapping) Unit() styled.Unit { return m.unit }

// Pos converts byte offset b into an output position.  Offsets outside the
// text are clamped.
func (m *Mapping) Pos(b int) int {
	if b < 0 {
		return 0
	}
	if m.unit == styled.UnitByte {
		return min(b, m.n)
	}
	if b >= len(m.runeAt) {
		b = len(m.runeAt) - 1
	}
	return int(m.posAt[m.runeAt[b]])
}

// Len returns the text length in output units.
func (m *Mapping) Len() int { return m.n }
