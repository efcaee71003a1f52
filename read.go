package previewhl

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// ReadDocument reads up to maxBytes of path (all of it when maxBytes <= 0)
// into a Document with no language set.  A truncated read is cut back to a
// whole rune and invalid UTF-8 is replaced, so the text is always valid.
func ReadDocument(path string, maxBytes int64) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return Document{}, err
	}
	if fi.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", path)
	}
	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, err
	}
	if maxBytes > 0 && int64(len(data)) == maxBytes && fi.Size() > maxBytes {
		data = trimPartialRune(data)
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}
	return Document{
		Path:    path,
		Text:    text,
		ModTime: fi.ModTime(),
		Size:    fi.Size(),
	}, nil
}

// trimPartialRune drops a multi-byte sequence cut off at the end of data.
func trimPartialRune(data []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		c := data[len(data)-i]
		if !utf8.RuneStart(c) {
			continue
		}
		if !utf8.FullRune(data[len(data)-i:]) {
			return data[:len(data)-i]
		}
		break
	}
	return data
}
