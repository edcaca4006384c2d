package pathutil

import (
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestDecodePathBytesPassesThroughValidUTF8(t *testing.T) {
	want := "café/track.wav"
	got, err := DecodePathBytes([]byte(want))
	if err != nil {
		t.Fatalf("DecodePathBytes: %v", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecodePathBytesFallsBackToWindows1252(t *testing.T) {
	original := "naïve.wav"
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(original))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	got, err := DecodePathBytes(encoded)
	if err != nil {
		t.Fatalf("DecodePathBytes: %v", err)
	}
	if got != original {
		t.Errorf("got %q, want %q", got, original)
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	path := "music/日本語.flac"
	units := ToUTF16(path)
	got := FromUTF16(units)
	if got != path {
		t.Errorf("round trip = %q, want %q", got, path)
	}
}

func TestIsValidUTF8(t *testing.T) {
	if !IsValidUTF8([]byte("plain.wav")) {
		t.Error("expected plain ASCII to be valid UTF-8")
	}
	if IsValidUTF8([]byte{0xff, 0xfe, 0x00}) {
		t.Error("expected invalid byte sequence to be reported as not UTF-8")
	}
}
