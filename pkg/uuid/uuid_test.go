package uuid

import "testing"

func TestNewProducesDistinctNonNilIDs(t *testing.T) {
	a, b := New(), New()
	if a.IsNil() || b.IsNil() {
		t.Fatal("New() should never produce the nil ID")
	}
	if a == b {
		t.Fatal("two calls to New() produced the same ID")
	}
}

func TestParseRoundTripsCanonicalForm(t *testing.T) {
	id := New()
	parsed, err := Parse(id.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != id {
		t.Errorf("Parse(%q) = %v, want %v", id.String(), parsed, id)
	}
}

func TestParseToleratesMissingDashes(t *testing.T) {
	id := New()
	undashed := ""
	for _, r := range id.String() {
		if r != '-' {
			undashed += string(r)
		}
	}
	parsed, err := Parse(undashed)
	if err != nil {
		t.Fatalf("Parse(%q): %v", undashed, err)
	}
	if parsed != id {
		t.Errorf("Parse(%q) = %v, want %v", undashed, parsed, id)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected Parse to reject a malformed string")
	}
}

func TestMustParsePanicsOnError(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustParse to panic on invalid input")
		}
	}()
	MustParse("bogus")
}
