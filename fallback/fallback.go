// Package fallback holds the slower, broader highlighters consulted when the
// fast path has no pattern table for a language.
//
// Engines check their context between units of work and return ctx.Err()
// once it is done.  Cancellation is cooperative: a caller that gives up on a
// call must not wait for the engine to notice.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/cptaffe/previewhl/styled"
	"github.com/cptaffe/previewhl/textindex"
	"github.com/cptaffe/previewhl/theme"
)

// ErrUnsupported is returned by an engine that cannot highlight a language.
var ErrUnsupported = errors.New("fallback: unsupported language")

// Highlighter colors one document.
type Highlighter interface {
	Highlight(ctx context.Context, text, lang string, p theme.Palette, unit styled.Unit) (*styled.Result, error)
}

// Chain tries each engine in order and returns the first result.  An engine
// reporting ErrUnsupported passes the document on; any other error stops
// the chain.
type Chain []Highlighter

func (c Chain) Highlight(ctx context.Context, text, lang string, p theme.Palette, unit styled.Unit) (*styled.Result, error) {
	for _, h := range c {
		r, err := h.Highlight(ctx, text, lang, p, unit)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		return r, err
	}
	return nil, fmt.Errorf("%w %q", ErrUnsupported, lang)
}

// Default returns the standard chain: grammar queries first, chroma's
// lexers for everything else.
func Default() Chain {
	return Chain{NewTreeSitter(), NewChroma()}
}

// toResult converts a per-byte role array (roles[i] colors byte i of text;
// RoleDefault = uncolored) into a Result in unit.
func toResult(text string, roles []styled.Role, p theme.Palette, unit styled.Unit) *styled.Result {
	m := textindex.Build(text, unit)
	r := &styled.Result{Text: text, Unit: unit}
	emit := func(start, end int, role styled.Role) {
		if role == styled.RoleDefault {
			return
		}
		ps, pe := m.Pos(start), m.Pos(end)
		if pe <= ps {
			return
		}
		r.Spans = append(r.Spans, styled.Span{Start: ps, End: pe, Role: role, Color: p.Color(role)})
	}

	start := 0
	cur := styled.RoleDefault
	for b, role := range roles {
		if role != cur {
			emit(start, b, cur)
			cur, start = role, b
		}
	}
	emit(start, len(roles), cur)
	return r
}
