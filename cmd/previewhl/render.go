package main

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/cptaffe/previewhl"
	"github.com/cptaffe/previewhl/styled"
	"github.com/cptaffe/previewhl/theme"
)

// clearScreen homes the cursor and erases the terminal before a repaint.
const clearScreen = "\x1b[H\x1b[2J"

type printer struct {
	out     io.Writer
	engine  *previewhl.Engine
	palette theme.Palette
	lang    string
	color   bool
	clear   bool
}

func (p *printer) show(ctx context.Context, doc previewhl.Document) {
	if p.lang != "" {
		doc.LanguageID = p.lang
	}
	r := p.engine.Highlight(ctx, doc, p.palette)
	if p.clear {
		io.WriteString(p.out, clearScreen) //nolint:errcheck
	}
	if !p.color {
		io.WriteString(p.out, r.Text) //nolint:errcheck
		return
	}
	io.WriteString(p.out, render(lipgloss.NewRenderer(p.out), r, p.palette.Background)) //nolint:errcheck
}

// render paints r's spans with re on background bg.  Span positions are
// converted back to byte offsets by walking the text once in r.Unit.
func render(re *lipgloss.Renderer, r *styled.Result, bg styled.Color) string {
	var sb strings.Builder
	base := re.NewStyle().
		Background(lipgloss.Color(bg.Hex())).
		TabWidth(lipgloss.NoTabConversion)
	styles := make(map[styled.Color]lipgloss.Style)
	style := func(c styled.Color) lipgloss.Style {
		s, ok := styles[c]
		if !ok {
			s = base.Foreground(lipgloss.Color(c.Hex()))
			styles[c] = s
		}
		return s
	}

	text := r.Text
	pos, b := 0, 0
	// advance moves b forward until the position reaches target.
	advance := func(target int) {
		for b < len(text) && pos < target {
			_, n := utf8.DecodeRuneInString(text[b:])
			pos += r.Unit.Length(text[b : b+n])
			b += n
		}
	}
	for _, s := range r.Spans {
		start := b
		advance(s.Start)
		paint(&sb, base, text[start:b])
		start = b
		advance(s.End)
		paint(&sb, style(s.Color), text[start:b])
	}
	paint(&sb, base, text[b:])
	return sb.String()
}

// paint writes s in st one line at a time.  lipgloss pads multi-line
// strings to a common width, so newlines are written unstyled.
func paint(sb *strings.Builder, st lipgloss.Style, s string) {
	for {
		line, rest, more := strings.Cut(s, "\n")
		if line != "" {
			sb.WriteString(st.Render(line))
		}
		if !more {
			return
		}
		sb.WriteByte('\n')
		s = rest
	}
}
