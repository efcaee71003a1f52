package fallback

import (
	"context"
	"fmt"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/cptaffe/previewhl/styled"
	"github.com/cptaffe/previewhl/theme"
)

// Chroma highlights any language chroma has a lexer for, except the
// lexers in stalling.
type Chroma struct{}

// stalling names lexers whose rules loop inside a single token on ordinary
// input.  A canceled context cannot stop them, so they are never run.
var stalling = map[string]bool{
	"JSONata": true,
	"Jungle":  true,
}

// NewChroma returns the generic lexer engine.
func NewChroma() *Chroma { return &Chroma{} }

// ChromaLanguages lists the names of the chroma lexers Chroma will run.
func ChromaLanguages() []string {
	var names []string
	for _, name := range lexers.Names(false) {
		if !stalling[name] {
			names = append(names, name)
		}
	}
	return names
}

// tokenRole maps a chroma token type onto the role set.
func tokenRole(t chroma.TokenType) styled.Role {
	switch {
	case t == chroma.KeywordType, t == chroma.NameClass:
		return styled.RoleType
	case t.InCategory(chroma.Keyword):
		return styled.RoleKeyword
	case t.InCategory(chroma.Comment):
		return styled.RoleComment
	case t.InSubCategory(chroma.LiteralString):
		return styled.RoleString
	case t.InSubCategory(chroma.LiteralNumber):
		return styled.RoleNumber
	}
	return styled.RoleDefault
}

// Highlight tokenises text with the lexer registered for lang.
func (*Chroma) Highlight(ctx context.Context, text, lang string, p theme.Palette, unit styled.Unit) (*styled.Result, error) {
	lexer := lexers.Get(lang)
	if lexer == nil || stalling[lexer.Config().Name] {
		return nil, fmt.Errorf("%w %q", ErrUnsupported, lang)
	}
	if text == "" {
		return styled.Plain(text, unit), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// EnsureLF would rewrite CRLF and shift every later offset.
	it, err := chroma.Coalesce(lexer).Tokenise(&chroma.TokeniseOptions{State: "root"}, text)
	if err != nil {
		return nil, fmt.Errorf("chroma %s: %w", lang, err)
	}

	roles := make([]styled.Role, len(text))
	off, n := 0, 0
	for tok := it(); tok != chroma.EOF && off < len(text); tok = it() {
		if n++; n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		// Lexers configured with EnsureNL append a newline past the text.
		end := min(off+len(tok.Value), len(text))
		claim(roles, off, end, tokenRole(tok.Type))
		off = end
	}
	return toResult(text, roles, p, unit), nil
}
