// Package pathutil implements UTF-8/platform-codepage path conversion: the
// internal canonical form is UTF-8. DecodePathBytes keeps raw bytes that are
// valid UTF-8 and otherwise decodes them as Windows-1252, a fixed fallback
// code page (the system's active code page is not queried). ToUTF16 and
// FromUTF16 convert between that UTF-8 form and UTF-16.
package pathutil

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodePathBytes converts raw path bytes from an external source (a file
// listing API, a dropped-file payload, a legacy playlist) into the
// project's canonical UTF-8 string. If data is already valid UTF-8 it is
// returned unchanged; otherwise it is reinterpreted as Windows-1252 (the
// most common single-byte fallback code page on the platforms this engine
// targets) and re-encoded to UTF-8.
func DecodePathBytes(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("pathutil: failed to decode path bytes as UTF-8 or Windows-1252: %w", err)
	}
	return string(decoded), nil
}

// ToUTF16 converts a canonical UTF-8 path to a null-terminated UTF-16 code
// unit slice, the form Windows file APIs expect.
func ToUTF16(path string) []uint16 {
	return utf16.Encode([]rune(path + "\x00"))
}

// FromUTF16 converts a null-terminated (or not) UTF-16 code unit slice back
// to a canonical UTF-8 string, stopping at the first null terminator if
// present.
func FromUTF16(units []uint16) string {
	for i, u := range units {
		if u == 0 {
			units = units[:i]
			break
		}
	}
	return string(utf16.Decode(units))
}

// IsValidUTF8 reports whether path is already valid UTF-8, the condition
// DecodePathBytes uses to skip the codepage fallback.
func IsValidUTF8(path []byte) bool {
	return utf8.Valid(path)
}
