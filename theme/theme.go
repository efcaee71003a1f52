// Package theme resolves a theme id into the color table the highlighters
// paint with.
package theme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gdamore/tcell/v2"

	"github.com/cptaffe/previewhl/styled"
)

// DefaultID names the built-in palette used when a theme id is unknown.
const DefaultID = "default"

// Palette maps every role to a concrete color.  Background is the surface
// the colors are drawn on; results never carry it, so it is left out of
// Fingerprint.
type Palette struct {
	ID         string
	Colors     [styled.RoleCount]styled.Color
	Background styled.Color
}

// Color returns the color for role r.
func (p Palette) Color(r styled.Role) styled.Color {
	if r >= styled.RoleCount {
		return p.Colors[styled.RoleDefault]
	}
	return p.Colors[r]
}

// Fingerprint identifies the palette for cache keys: the id plus every
// color, so redefining a configured theme under the same id still changes
// the key.
func (p Palette) Fingerprint() string {
	var sb strings.Builder
	sb.WriteString(p.ID)
	sb.WriteByte('@')
	for _, c := range p.Colors {
		fmt.Fprintf(&sb, "%02x%02x%02x", c.R, c.G, c.B)
	}
	return sb.String()
}

// Default is the built-in dark palette.
var Default = Palette{
	ID:         DefaultID,
	Background: styled.Color{R: 0x1e, G: 0x1e, B: 0x1e},
	Colors: [styled.RoleCount]styled.Color{
		styled.RoleDefault: {R: 0xd4, G: 0xd4, B: 0xd4},
		styled.RoleKeyword: {R: 0xc5, G: 0x86, B: 0xc0},
		styled.RoleType:    {R: 0x4e, G: 0xc9, B: 0xb0},
		styled.RoleString:  {R: 0xce, G: 0x91, B: 0x78},
		styled.RoleComment: {R: 0x6a, G: 0x99, B: 0x55},
		styled.RoleNumber:  {R: 0xb5, G: 0xce, B: 0xa8},
	},
}

// chromaRoles lists, per role, the chroma token types consulted in order.
var chromaRoles = [styled.RoleCount][]chroma.TokenType{
	styled.RoleDefault: {chroma.Text},
	styled.RoleKeyword: {chroma.Keyword},
	styled.RoleType:    {chroma.KeywordType, chroma.NameClass},
	styled.RoleString:  {chroma.LiteralString, chroma.Literal},
	styled.RoleComment: {chroma.Comment},
	styled.RoleNumber:  {chroma.LiteralNumber, chroma.Literal},
}

// FromChroma derives a palette from the chroma style registered as name.
// Roles the style leaves unset take the style's text color, or the default
// palette's when that is unset as well.  The background falls back the same
// way.
func FromChroma(name string) (Palette, bool) {
	style, ok := styles.Registry[name]
	if !ok {
		return Palette{}, false
	}
	p := Palette{ID: name, Background: Default.Background}
	if c := style.Get(chroma.Background).Background; c.IsSet() {
		p.Background = fromColour(c)
	}
	base := Default.Colors[styled.RoleDefault]
	if c := style.Get(chroma.Text).Colour; c.IsSet() {
		base = fromColour(c)
	}
	for role, types := range chromaRoles {
		p.Colors[role] = base
		for _, tt := range types {
			if c := style.Get(tt).Colour; c.IsSet() {
				p.Colors[role] = fromColour(c)
				break
			}
		}
	}
	return p, true
}

func fromColour(c chroma.Colour) styled.Color {
	return styled.Color{R: c.Red(), G: c.Green(), B: c.Blue()}
}

// ParseColor accepts "#rrggbb" or any color name tcell knows ("teal",
// "darkorange", ...).
func ParseColor(s string) (styled.Color, error) {
	c := tcell.GetColor(strings.ToLower(strings.TrimSpace(s)))
	if c == tcell.ColorDefault {
		return styled.Color{}, fmt.Errorf("unknown color %q", s)
	}
	r, g, b := c.RGB()
	if r < 0 || g < 0 || b < 0 {
		return styled.Color{}, fmt.Errorf("color %q has no RGB value", s)
	}
	return styled.Color{R: uint8(r), G: uint8(g), B: uint8(b)}, nil
}

// BackgroundKey is the table key that sets a configured palette's
// background instead of a role color.
const BackgroundKey = "background"

// New builds a palette from a role-name -> color-string table.  Roles the
// table omits keep the default palette's colors.
func New(id string, table map[string]string) (Palette, error) {
	p := Palette{ID: id, Colors: Default.Colors, Background: Default.Background}
	for name, value := range table {
		c, err := ParseColor(value)
		if err != nil {
			return Palette{}, fmt.Errorf("theme %s: role %s: %w", id, name, err)
		}
		if name == BackgroundKey {
			p.Background = c
			continue
		}
		role, ok := styled.ParseRole(name)
		if !ok {
			return Palette{}, fmt.Errorf("theme %s: unknown role %q", id, name)
		}
		p.Colors[role] = c
	}
	return p, nil
}

// Registry resolves theme ids.  Configured palettes shadow the built-in
// default and chroma styles of the same name.
type Registry struct {
	custom map[string]Palette
}

// NewRegistry compiles the configured theme tables.
func NewRegistry(tables map[string]map[string]string) (*Registry, error) {
	r := &Registry{custom: make(map[string]Palette, len(tables))}
	for id, table := range tables {
		p, err := New(id, table)
		if err != nil {
			return nil, err
		}
		r.custom[id] = p
	}
	return r, nil
}

// Resolve returns the palette for id.  Unknown ids resolve to Default with
// ok == false.
func (r *Registry) Resolve(id string) (p Palette, ok bool) {
	if r != nil {
		if p, ok := r.custom[id]; ok {
			return p, true
		}
	}
	if id == DefaultID || id == "" {
		return Default, true
	}
	if p, ok := FromChroma(id); ok {
		return p, true
	}
	return Default, false
}

// Names lists every resolvable theme id, sorted.
func (r *Registry) Names() []string {
	seen := map[string]struct{}{DefaultID: {}}
	for _, name := range styles.Names() {
		seen[name] = struct{}{}
	}
	if r != nil {
		for id := range r.custom {
			seen[id] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
