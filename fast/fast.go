// Package fast is the regex-table highlighter used for every language that
// has a pattern.Set.
//
// Highlighting a document runs the literal scan (comments and strings
// together) first, then numbers, keywords and types.  A byte claimed by an
// earlier pass is never recolored: a later match that touches a claimed byte
// is dropped whole, so a keyword inside a string or a number inside a
// comment never produces a span.
package fast

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/cptaffe/previewhl/pattern"
	"github.com/cptaffe/previewhl/styled"
	"github.com/cptaffe/previewhl/textindex"
	"github.com/cptaffe/previewhl/theme"
)

// ErrUnsupported is returned for languages without a pattern table.
var ErrUnsupported = errors.New("fast: unsupported language")

// Supported reports whether lang has a pattern table.
func Supported(lang string) bool {
	_, err := pattern.Lookup(lang)
	return !errors.Is(err, pattern.ErrUnknown)
}

// Highlight colors text as language lang using palette p, reporting span
// positions in unit.  An empty text yields an empty Result.
func Highlight(text, lang string, p theme.Palette, unit styled.Unit) (*styled.Result, error) {
	set, err := pattern.Lookup(lang)
	if errors.Is(err, pattern.ErrUnknown) {
		return nil, fmt.Errorf("%w %q", ErrUnsupported, lang)
	}
	if err != nil {
		return nil, err
	}
	if text == "" {
		return styled.Plain(text, unit), nil
	}

	h := &highlighter{
		text:    text,
		palette: p,
		mapping: textindex.Build(text, unit),
		covered: make([]bool, len(text)),
	}
	h.literals(set)
	h.pass(set.Numbers, styled.RoleNumber)
	h.pass(set.Keywords, styled.RoleKeyword)
	h.pass(set.Types, styled.RoleType)

	styled.SortSpans(h.spans)
	return &styled.Result{Text: text, Unit: unit, Spans: styled.Coalesce(h.spans)}, nil
}

// highlighter is the per-document state.  covered[b] is true once byte b
// belongs to an emitted span.
type highlighter struct {
	text    string
	palette theme.Palette
	mapping *textindex.Mapping
	covered []bool
	spans   []styled.Span
}

// literals runs the combined comment/string scan.  Matches of one regexp
// never overlap, so every match is claimed unconditionally.
func (h *highlighter) literals(set *pattern.Set) {
	if set.Literals == nil {
		return
	}
	for _, m := range set.Literals.FindAllStringSubmatchIndex(h.text, -1) {
		role := styled.RoleString
		if g := set.CommentGroup; g > 0 && m[2*g] >= 0 {
			role = styled.RoleComment
		}
		h.claim(m[0], m[1], role)
	}
}

// pass colors every match of re that does not touch an already covered byte.
func (h *highlighter) pass(re *regexp.Regexp, role styled.Role) {
	if re == nil {
		return
	}
	for _, m := range re.FindAllStringIndex(h.text, -1) {
		if !h.free(m[0], m[1]) {
			continue
		}
		h.claim(m[0], m[1], role)
	}
}

func (h *highlighter) free(start, end int) bool {
	for b := start; b < end; b++ {
		if h.covered[b] {
			return false
		}
	}
	return true
}

// claim marks bytes [start, end) covered and emits a span for them.
func (h *highlighter) claim(start, end int, role styled.Role) {
	if end <= start {
		return
	}
	for b := start; b < end; b++ {
		h.covered[b] = true
	}
	ps, pe := h.mapping.Pos(start), h.mapping.Pos(end)
	if pe <= ps {
		return
	}
	h.spans = append(h.spans, styled.Span{
		Start: ps,
		End:   pe,
		Role:  role,
		Color: h.palette.Color(role),
	})
}
