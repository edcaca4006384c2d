package wav

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecoderRoundTripsThroughLoadFloat32(t *testing.T) {
	data := make([]byte, 8) // two frames, 2 channels, 16-bit
	binary.LittleEndian.PutUint16(data[0:2], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(data[2:4], 0xC000) // int16(-16384)
	binary.LittleEndian.PutUint16(data[4:6], uint16(int16(32767)))
	binary.LittleEndian.PutUint16(data[6:8], 0x8000) // int16(-32768)
	path := buildWAV(t, pcmFmtBody(2, 44100, 16), nil, data)

	d := NewDecoder()
	if err := d.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	rate, channels, bits := d.GetFormat()
	if rate != 44100 || channels != 2 || bits != 32 {
		t.Fatalf("GetFormat() = (%d, %d, %d), want (44100, 2, 32)", rate, channels, bits)
	}
	if !d.IsFloatFormat() {
		t.Fatal("IsFloatFormat() = false, want true")
	}

	buf := make([]byte, 4*2*4) // room for 4 frames, 2 channels, 4 bytes each
	n, err := d.DecodeSamples(4, buf)
	if err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}
	if n != 2 {
		t.Fatalf("DecodeSamples returned %d frames, want 2", n)
	}

	last := math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16]))
	if last != -1 {
		t.Errorf("last sample = %f, want -1 (full-scale negative)", last)
	}

	n, err = d.DecodeSamples(4, buf)
	if err != nil {
		t.Fatalf("DecodeSamples at EOF: %v", err)
	}
	if n != 0 {
		t.Fatalf("DecodeSamples at EOF returned %d, want 0", n)
	}
}

func TestDecoderRejectsUseBeforeOpen(t *testing.T) {
	d := NewDecoder()
	buf := make([]byte, 16)
	if _, err := d.DecodeSamples(1, buf); err == nil {
		t.Fatal("expected error decoding before Open")
	}
}
