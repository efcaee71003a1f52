// Package cachekey derives the identity under which a highlighted document
// is stored in both cache tiers.
package cachekey

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"time"
)

// NoLanguage is the language id used when none was detected.
const NoLanguage = "none"

// Key is a SHA-256 digest of a document's identity and rendering context.
type Key [sha256.Size]byte

// String returns the lowercase hex encoding of k; it is also the disk
// cache filename stem.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Fields are the inputs that make up a key.  Changing any one of them
// changes the key.
type Fields struct {
	Path       string
	ModTime    time.Time
	Size       int64
	ThemeID    string
	LanguageID string
}

// version is mixed into every key so a change to the key layout never
// reuses entries written under the old one.
const version = 1

// New derives the key for f.  Each field is written with a tag byte and a
// length prefix, so no two field tuples share an encoding ("a/1" + "23"
// differs from "a" + "123").
func New(f Fields) Key {
	lang := f.LanguageID
	if lang == "" {
		lang = NoLanguage
	}
	h := sha256.New()
	writeUint(h, 'v', version)
	writeString(h, 'p', f.Path)
	writeUint(h, 'm', uint64(f.ModTime.UnixNano()))
	writeUint(h, 's', uint64(f.Size))
	writeString(h, 't', f.ThemeID)
	writeString(h, 'l', lang)

	var k Key
	h.Sum(k[:0])
	return k
}

func writeString(h hash.Hash, tag byte, s string) {
	var hdr [1 + binary.MaxVarintLen64]byte
	hdr[0] = tag
	n := binary.PutUvarint(hdr[1:], uint64(len(s)))
	h.Write(hdr[:1+n])
	h.Write([]byte(s))
}

func writeUint(h hash.Hash, tag byte, v uint64) {
	var buf [9]byte
	buf[0] = tag
	binary.BigEndian.PutUint64(buf[1:], v)
	h.Write(buf[:])
}
