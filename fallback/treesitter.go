package fallback

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_scala "github.com/tree-sitter/tree-sitter-scala/bindings/go"
	"go.uber.org/zap"

	"github.com/cptaffe/previewhl/styled"
	"github.com/cptaffe/previewhl/theme"
)

//go:embed queries/bash.scm
var bashHighlights string

//go:embed queries/c.scm
var cHighlights string

//go:embed queries/java.scm
var javaHighlights string

//go:embed queries/rust.scm
var rustHighlights string

//go:embed queries/scala.scm
var scalaHighlights string

// grammar bundles a tree-sitter Language and its compiled highlight query.
// Both are shared read-only across goroutines for the process lifetime.
type grammar struct {
	id    string
	lang  *tree_sitter.Language
	query *tree_sitter.Query // nil if the query failed to compile
}

var (
	grammarsOnce sync.Once
	grammars     map[string]*grammar
)

// loadGrammars compiles every grammar's query once.  A grammar whose query
// fails to compile is kept without one and highlights nothing, so the chain
// moves on to the next engine.
func loadGrammars() {
	grammarsOnce.Do(func() {
		specs := []struct {
			id    string
			lang  *tree_sitter.Language
			query string
		}{
			{"bash", tree_sitter.NewLanguage(tree_sitter_bash.Language()), bashHighlights},
			{"c", tree_sitter.NewLanguage(tree_sitter_c.Language()), cHighlights},
			// No C++ grammar is bundled; the C grammar covers its common subset.
			{"cpp", tree_sitter.NewLanguage(tree_sitter_c.Language()), cHighlights},
			{"java", tree_sitter.NewLanguage(tree_sitter_java.Language()), javaHighlights},
			{"rust", tree_sitter.NewLanguage(tree_sitter_rust.Language()), rustHighlights},
			{"scala", tree_sitter.NewLanguage(tree_sitter_scala.Language()), scalaHighlights},
		}
		grammars = make(map[string]*grammar, len(specs))
		for _, s := range specs {
			g := &grammar{id: s.id, lang: s.lang}
			q, qerr := tree_sitter.NewQuery(s.lang, s.query)
			if qerr != nil {
				zap.L().Error("highlight query failed to compile",
					zap.String("lang", s.id), zap.Uint("offset", qerr.Offset), zap.String("message", qerr.Message))
			} else {
				g.query = q
			}
			grammars[s.id] = g
		}
	})
}

// TreeSitter highlights the languages it has a grammar for by running the
// grammar's highlight query over the parse tree.
type TreeSitter struct{}

// NewTreeSitter returns the grammar engine, compiling its queries on first
// use.
func NewTreeSitter() *TreeSitter {
	loadGrammars()
	return &TreeSitter{}
}

// TreeSitterLanguages lists the language ids with a usable grammar query.
func TreeSitterLanguages() []string {
	loadGrammars()
	var ids []string
	for id, g := range grammars {
		if g.query != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Highlight parses text with lang's grammar and colors the query captures.
// For a byte claimed by several captures the pattern earliest in the query
// file wins, so specific patterns are listed before catch-alls.
func (*TreeSitter) Highlight(ctx context.Context, text, lang string, p theme.Palette, unit styled.Unit) (*styled.Result, error) {
	loadGrammars()
	g := grammars[lang]
	if g == nil || g.query == nil {
		return nil, fmt.Errorf("%w %q", ErrUnsupported, lang)
	}
	if text == "" {
		return styled.Plain(text, unit), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := []byte(text)

	// Parsers and cursors are not safe for concurrent use; each call owns
	// its own.
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(g.lang); err != nil {
		return nil, fmt.Errorf("treesitter %s: %w", lang, err)
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("treesitter %s: parse failed", lang)
	}
	defer tree.Close()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	roles := make([]styled.Role, len(src))
	names := g.query.CaptureNames()
	captures := qc.Captures(g.query, tree.RootNode(), src)
	n := 0
	for match, idx := captures.Next(); match != nil; match, idx = captures.Next() {
		if n++; n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if int(idx) >= len(match.Captures) {
			continue
		}
		c := match.Captures[idx]
		if int(c.Index) >= len(names) {
			continue
		}
		claim(roles, int(c.Node.StartByte()), int(c.Node.EndByte()), captureRole(names[c.Index]))
	}
	return toResult(text, roles, p, unit), nil
}

// checkEvery is how many tokens or captures an engine processes between
// context checks.
const checkEvery = 256
