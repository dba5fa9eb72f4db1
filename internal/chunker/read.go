package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	textunicode "golang.org/x/text/encoding/unicode"
)

// decoders are tried in order. A decode that yields only whitespace for a
// non-empty file is treated as a wrong-encoding guess and the next decoder
// is tried.
var decoders = []struct {
	name string
	dec  *encoding.Decoder
}{
	{"utf-8", nil}, // handled natively
	// UTF-16 only applies when a BOM is present; otherwise arbitrary
	// byte pairs would decode "successfully" into garbage.
	{"utf-16", textunicode.UTF16(textunicode.LittleEndian, textunicode.ExpectBOM).NewDecoder()},
	{"latin-1", charmap.ISO8859_1.NewDecoder()},
	{"cp1252", charmap.Windows1252.NewDecoder()},
}

// decodeContent attempts the fixed encoding chain and reports failure if
// no decoder produces usable text.
func decodeContent(data []byte) (string, bool) {
	for _, d := range decoders {
		var text string
		if d.dec == nil {
			if !utf8.Valid(data) {
				continue
			}
			text = string(data)
		} else {
			decoded, err := d.dec.Bytes(data)
			if err != nil {
				continue
			}
			text = string(decoded)
		}
		if len(data) > 0 && strings.TrimSpace(text) == "" {
			continue
		}
		return text, true
	}
	return "", false
}

// isLikelyBinary reports whether decoded content looks binary: a NUL byte,
// or fewer than 70% printable characters.
func isLikelyBinary(text string) bool {
	if strings.ContainsRune(text, 0) {
		return true
	}
	if len(text) == 0 {
		return false
	}
	printable, total := 0, 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable)/float64(total) < 0.7
}
