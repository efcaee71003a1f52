// Package pattern holds the static per-language vocabularies and compiled
// regular expressions used by the fast highlighter.
//
// Each language's Set is compiled on first use and shared, read-only, for the
// life of the process.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrUnknown is returned by Lookup for a language with no table entry.
var ErrUnknown = errors.New("no pattern table for language")

// Set is the compiled, immutable pattern bundle for one language.
type Set struct {
	ID string

	// Literals matches comments and strings in one leftmost-first scan.
	// Submatch CommentGroup is set for comments, StringGroup for strings.
	// Nil if the language has neither.
	Literals     *regexp.Regexp
	CommentGroup int
	StringGroup  int

	// Numbers, Keywords and Types are nil when the language defines none.
	Numbers  *regexp.Regexp
	Keywords *regexp.Regexp
	Types    *regexp.Regexp
}

// definition is the uncompiled table entry for a language.  Regex fields
// are pattern sources; word lists are matched whole-word.
type definition struct {
	comments []string
	strings  []string
	numbers  string
	keywords []string
	builtins []string // colored as keywords
	types    []string
	typeRule string // extra pattern for type names, e.g. capitalized identifiers
}

type entry struct {
	def  definition
	once sync.Once
	set  *Set
	err  error
}

var registry = func() map[string]*entry {
	m := make(map[string]*entry, len(definitions))
	for id, d := range definitions {
		m[id] = &entry{def: d}
	}
	return m
}()

// Lookup returns the Set for language id, compiling it on first use.
// A compile failure is a defect in the static tables; it is returned for
// every lookup of that language.
func Lookup(id string) (*Set, error) {
	e, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknown, id)
	}
	e.once.Do(func() {
		e.set, e.err = compile(id, e.def)
	})
	return e.set, e.err
}

// Languages returns the ids that have a pattern table, sorted.
func Languages() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func compile(id string, d definition) (*Set, error) {
	s := &Set{ID: id}

	var lit []string
	if len(d.comments) > 0 {
		lit = append(lit, "(?P<comment>"+strings.Join(d.comments, "|")+")")
	}
	if len(d.strings) > 0 {
		lit = append(lit, "(?P<string>"+strings.Join(d.strings, "|")+")")
	}
	var err error
	if len(lit) > 0 {
		if s.Literals, err = regexp.Compile(strings.Join(lit, "|")); err != nil {
			return nil, fmt.Errorf("%s literals: %w", id, err)
		}
		s.CommentGroup = s.Literals.SubexpIndex("comment")
		s.StringGroup = s.Literals.SubexpIndex("string")
	}
	if d.numbers != "" {
		if s.Numbers, err = regexp.Compile(d.numbers); err != nil {
			return nil, fmt.Errorf("%s numbers: %w", id, err)
		}
	}
	if re := wordAlternation(d.keywords, d.builtins); re != "" {
		if s.Keywords, err = regexp.Compile(re); err != nil {
			return nil, fmt.Errorf("%s keywords: %w", id, err)
		}
	}
	typ := wordAlternation(d.types)
	if d.typeRule != "" {
		if typ != "" {
			typ += "|"
		}
		typ += d.typeRule
	}
	if typ != "" {
		if s.Types, err = regexp.Compile(typ); err != nil {
			return nil, fmt.Errorf("%s types: %w", id, err)
		}
	}
	return s, nil
}

func wordSet(lists ...[]string) map[string]struct{} {
	m := make(map[string]struct{})
	for _, l := range lists {
		for _, w := range l {
			m[w] = struct{}{}
		}
	}
	return m
}

// wordAlternation builds one `\b(?:w1|w2|...)\b` pattern.  Longer words sort
// first so a word is never shadowed by one of its prefixes.
func wordAlternation(lists ...[]string) string {
	seen := wordSet(lists...)
	if len(seen) == 0 {
		return ""
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, regexp.QuoteMeta(w))
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return `\b(?:` + strings.Join(words, "|") + `)\b`
}
