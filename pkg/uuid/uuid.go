// Package uuid provides the stable 128-bit identity used for clips and
// playlist lanes, wrapping github.com/google/uuid with the canonical
// formatting and tolerant parsing rules for this codebase.
package uuid

import (
	"strings"

	"github.com/google/uuid"
)

// ID is a 128-bit identifier, canonically rendered as lowercase hex with
// dashes in 8-4-4-4-12 form.
type ID uuid.UUID

// Nil is the zero-value identifier, used to mean "no identity assigned".
var Nil ID

// New generates a new random (v4) identifier.
func New() ID {
	return ID(uuid.New())
}

// String renders the canonical lowercase 8-4-4-4-12 form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}

// Parse trims surrounding whitespace and accepts the canonical dashed form
// and the 32-character undashed hex form (dashes are inserted before
// parsing). The other forms github.com/google/uuid.Parse takes, such as
// {braced} and urn:uuid: strings, are accepted too; anything else, including
// a non-hex character, is an error.
func Parse(s string) (ID, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.Contains(trimmed, "-") && len(trimmed) == 32 {
		trimmed = strings.Join([]string{
			trimmed[0:8], trimmed[8:12], trimmed[12:16], trimmed[16:20], trimmed[20:32],
		}, "-")
	}
	u, err := uuid.Parse(trimmed)
	if err != nil {
		return Nil, err
	}
	return ID(u), nil
}

// MustParse is like Parse but panics on error; intended for constants in
// tests, never for parsing untrusted input.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}
