package styled

import (
	"errors"
	"reflect"
	"testing"
)

func TestUnitLength(t *testing.T) {
	cases := []struct {
		text string
		unit Unit
		want int
	}{
		{"abc", UnitRune, 3},
		{"abc", UnitUTF16, 3},
		{"abc", UnitByte, 3},
		{"héllo", UnitRune, 5},
		{"héllo", UnitByte, 6},
		{"a😀b", UnitRune, 3},
		{"a😀b", UnitUTF16, 4},
		{"a😀b", UnitByte, 6},
		{"", UnitUTF16, 0},
	}
	for _, c := range cases {
		if got := c.unit.Length(c.text); got != c.want {
			t.Errorf("%v.Length(%q) = %d, want %d", c.unit, c.text, got, c.want)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		spans []Span
		ok    bool
	}{
		{"empty", nil, true},
		{"sorted", []Span{{0, 2, RoleKeyword, Color{}}, {3, 5, RoleNumber, Color{}}}, true},
		{"adjacent", []Span{{0, 2, RoleKeyword, Color{}}, {2, 5, RoleNumber, Color{}}}, true},
		{"overlap", []Span{{0, 3, RoleKeyword, Color{}}, {2, 5, RoleNumber, Color{}}}, false},
		{"unsorted", []Span{{3, 5, RoleKeyword, Color{}}, {0, 2, RoleNumber, Color{}}}, false},
		{"empty span", []Span{{1, 1, RoleKeyword, Color{}}}, false},
		{"past end", []Span{{4, 7, RoleKeyword, Color{}}}, false},
		{"bad role", []Span{{0, 1, RoleCount, Color{}}}, false},
	}
	for _, c := range cases {
		r := &Result{Text: "hello", Spans: c.spans}
		if err := r.Validate(); (err == nil) != c.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", c.name, err, c.ok)
		}
	}
}

func TestCoalesce(t *testing.T) {
	red := Color{R: 255}
	in := []Span{
		{0, 2, RoleString, red},
		{2, 4, RoleString, red},
		{4, 6, RoleComment, red},
		{7, 8, RoleComment, red},
	}
	want := []Span{
		{0, 4, RoleString, red},
		{4, 6, RoleComment, red},
		{7, 8, RoleComment, red},
	}
	if got := Coalesce(in); !reflect.DeepEqual(got, want) {
		t.Errorf("Coalesce = %v, want %v", got, want)
	}
}

func TestEncodeDecode(t *testing.T) {
	r := &Result{
		Text: "func f() { return \"☃\" }",
		Unit: UnitUTF16,
		Spans: []Span{
			{0, 4, RoleKeyword, Color{0x11, 0x22, 0x33}},
			{11, 17, RoleKeyword, Color{0x11, 0x22, 0x33}},
			{18, 21, RoleString, Color{0xaa, 0xbb, 0xcc}},
		},
	}
	data, err := Encode(r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, r) {
		t.Errorf("Decode(Encode(r)) = %+v, want %+v", got, r)
	}

	plain, err := Encode(Plain("", UnitRune))
	if err != nil {
		t.Fatalf("Encode plain: %v", err)
	}
	p, err := Decode(plain)
	if err != nil {
		t.Fatalf("Decode plain: %v", err)
	}
	if p.Text != "" || len(p.Spans) != 0 {
		t.Errorf("plain round trip = %+v", p)
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	r := &Result{Text: "ab", Spans: []Span{{1, 5, RoleKeyword, Color{}}}}
	if _, err := Encode(r); err == nil {
		t.Error("Encode accepted a span past the end of the text")
	}
	if _, err := Encode(&Result{Text: "\xff"}); err == nil {
		t.Error("Encode accepted invalid UTF-8")
	}
}

func TestDecodeCorrupt(t *testing.T) {
	good, err := Encode(&Result{Text: "let x = 1", Spans: []Span{{0, 3, RoleKeyword, Color{1, 2, 3}}}})
	if err != nil {
		t.Fatal(err)
	}

	flip := func(i int) []byte {
		b := append([]byte(nil), good...)
		b[i] ^= 0xff
		return b
	}
	cases := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"short", good[:10]},
		{"truncated", good[:len(good)-1]},
		{"magic", flip(0)},
		{"body", flip(len(good) - 10)},
		{"checksum", flip(len(good) - 1)},
		{"trailing", append(append([]byte(nil), good...), 0)},
	}
	for _, c := range cases {
		_, err := Decode(c.data)
		if !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: Decode err = %v, want ErrCorrupt", c.name, err)
		}
	}
}
