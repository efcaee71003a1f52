package styled

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
)

// ErrCorrupt is wrapped by every Decode failure.
var ErrCorrupt = errors.New("corrupt styled entry")

var magic = [4]byte{'P', 'H', 'L', '1'}

const (
	headerLen   = len(magic) + 1 // magic + unit
	checksumLen = 8
	// minSpanLen is the smallest encoding of one span: two one-byte
	// uvarints, a role and three color bytes.
	minSpanLen = 6
)

// Encode serializes r:
//
//	magic "PHL1" | unit | uvarint count |
//	  count x (uvarint gap, uvarint length, role, r, g, b) |
//	uvarint len(text) | text | xxh3-64 of everything before (little endian)
//
// Span starts are stored as the gap from the previous span's end, so a
// result that fails Validate cannot be encoded.
func Encode(r *Result) ([]byte, error) {
	if !utf8.ValidString(r.Text) {
		return nil, errors.New("encode: text is not valid UTF-8")
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	buf := make([]byte, 0, headerLen+len(r.Spans)*minSpanLen+len(r.Text)+2*binary.MaxVarintLen64+checksumLen)
	buf = append(buf, magic[:]...)
	buf = append(buf, byte(r.Unit))
	buf = binary.AppendUvarint(buf, uint64(len(r.Spans)))
	prev := 0
	for _, s := range r.Spans {
		buf = binary.AppendUvarint(buf, uint64(s.Start-prev))
		buf = binary.AppendUvarint(buf, uint64(s.End-s.Start))
		buf = append(buf, byte(s.Role), s.Color.R, s.Color.G, s.Color.B)
		prev = s.End
	}
	buf = binary.AppendUvarint(buf, uint64(len(r.Text)))
	buf = append(buf, r.Text...)
	buf = binary.LittleEndian.AppendUint64(buf, xxh3.Hash(buf))
	return buf, nil
}

// Decode parses data written by Encode.  The returned Result never aliases
// data, so data may be unmapped or reused afterwards.
func Decode(data []byte) (*Result, error) {
	if len(data) < headerLen+checksumLen+2 {
		return nil, fmt.Errorf("%w: short entry (%d bytes)", ErrCorrupt, len(data))
	}
	body := data[:len(data)-checksumLen]
	if sum := binary.LittleEndian.Uint64(data[len(body):]); sum != xxh3.Hash(body) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	if [4]byte(body[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, body[:4])
	}
	unit := Unit(body[4])
	if unit > UnitByte {
		return nil, fmt.Errorf("%w: unknown unit %d", ErrCorrupt, unit)
	}

	d := decoder{buf: body, off: headerLen}
	count := d.uvarint()
	if d.err == nil && count > uint64(len(body)/minSpanLen) {
		return nil, fmt.Errorf("%w: span count %d exceeds entry size", ErrCorrupt, count)
	}
	var spans []Span
	if count > 0 {
		spans = make([]Span, 0, count)
	}
	prev := uint64(0)
	for i := uint64(0); i < count && d.err == nil; i++ {
		gap, length := d.uvarint(), d.uvarint()
		attrs := d.bytes(4)
		if d.err != nil {
			break
		}
		start := prev + gap
		end := start + length
		if start < prev || end < start || end > uint64(len(body))*4 {
			return nil, fmt.Errorf("%w: span %d out of range", ErrCorrupt, i)
		}
		spans = append(spans, Span{
			Start: int(start),
			End:   int(end),
			Role:  Role(attrs[0]),
			Color: Color{R: attrs[1], G: attrs[2], B: attrs[3]},
		})
		prev = end
	}
	textLen := d.uvarint()
	if d.err != nil {
		return nil, d.err
	}
	if textLen != uint64(len(body)-d.off) {
		return nil, fmt.Errorf("%w: text length %d, %d bytes remain", ErrCorrupt, textLen, len(body)-d.off)
	}
	text := string(body[d.off:])
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrCorrupt)
	}

	r := &Result{Text: text, Unit: unit, Spans: spans}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return r, nil
}

type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		d.err = fmt.Errorf("%w: bad varint at offset %d", ErrCorrupt, d.off)
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf)-d.off < n {
		d.err = fmt.Errorf("%w: truncated at offset %d", ErrCorrupt, d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}
