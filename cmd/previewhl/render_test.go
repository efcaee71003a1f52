package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/cptaffe/previewhl"
	"github.com/cptaffe/previewhl/styled"
	"github.com/cptaffe/previewhl/theme"
)

// A renderer on a non-terminal writer has no color profile, so render must
// reproduce the text exactly however the spans cut it.
func TestRenderPreservesText(t *testing.T) {
	re := lipgloss.NewRenderer(&bytes.Buffer{})
	cases := []struct {
		name string
		r    *styled.Result
	}{
		{"plain", styled.Plain("a 😀 b\n", styled.UnitRune)},
		{"runes", &styled.Result{Text: "a😀b c\n", Unit: styled.UnitRune, Spans: []styled.Span{
			{Start: 1, End: 2}, {Start: 4, End: 5},
		}}},
		{"utf16", &styled.Result{Text: "a😀b c\n", Unit: styled.UnitUTF16, Spans: []styled.Span{
			{Start: 1, End: 3}, {Start: 5, End: 6},
		}}},
		{"bytes", &styled.Result{Text: "a😀b c\n", Unit: styled.UnitByte, Spans: []styled.Span{
			{Start: 0, End: 5}, {Start: 7, End: 8},
		}}},
		{"multi-line span", &styled.Result{Text: "/* a\n   b */\nx\r\n\ty\n", Unit: styled.UnitByte, Spans: []styled.Span{
			{Start: 0, End: 12}, {Start: 16, End: 18},
		}}},
	}
	for _, c := range cases {
		if got := render(re, c.r, theme.Default.Background); got != c.r.Text {
			t.Errorf("%s: render = %q, want %q", c.name, got, c.r.Text)
		}
	}
}

func TestRenderBackground(t *testing.T) {
	re := lipgloss.NewRenderer(&bytes.Buffer{}, termenv.WithProfile(termenv.TrueColor))
	r := &styled.Result{Text: "ab\n  cd\n", Unit: styled.UnitRune, Spans: []styled.Span{
		{Start: 0, End: 5, Color: styled.Color{R: 0xff}},
	}}
	got := render(re, r, styled.Color{R: 0x1e, G: 0x1e, B: 0x1e})
	if !strings.Contains(got, "48;2;30;30;30") {
		t.Errorf("render = %q, want the background painted", got)
	}
	if !strings.Contains(got, "38;2;255;0;0") {
		t.Errorf("render = %q, want the span foreground painted", got)
	}
	// Lines keep their own width; nothing is padded.
	if n := strings.Count(got, " "); n != 2 {
		t.Errorf("render has %d spaces, want 2: %q", n, got)
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, previewhl.Stats{MemoryHits: 3})
	if !strings.Contains(buf.String(), "memory hits 3") {
		t.Errorf("stats output = %q", buf.String())
	}
}
