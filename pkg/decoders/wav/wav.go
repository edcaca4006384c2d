package wav

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decoder serves WAV audio through the tolerant RIFF chunk walker in
// riffwalk.go instead of reading sample-by-sample off disk: LoadFloat32
// parses the whole file up front (out-of-order chunks, JUNK/LIST, odd-byte
// padding, IEEE-float all handled there), and Decoder replays the resulting
// float32 buffer through the same DecodeSamples/GetFormat shape every other
// backend uses. Implements types.AudioDecoder.
type Decoder struct {
	samples  []float32
	pos      int
	channels int
	rate     int
}

// NewDecoder creates a new WAV decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open parses fileName via LoadFloat32 and buffers the decoded samples.
func (d *Decoder) Open(fileName string) error {
	samples, channels, rate, err := LoadFloat32(fileName)
	if err != nil {
		return err
	}
	d.samples = samples
	d.channels = channels
	d.rate = rate
	d.pos = 0
	return nil
}

// Close releases the decoded buffer; there is no open file handle to close
// once Open has returned (LoadFloat32 reads the file fully up front).
func (d *Decoder) Close() error {
	d.samples = nil
	return nil
}

// GetFormat reports the decoded rate and channel count. BitsPerSample is
// always 32: LoadFloat32 normalizes every supported bit depth to float32.
func (d *Decoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, d.channels, 32
}

// IsFloatFormat reports that DecodeSamples already emits normalized IEEE
// float32 samples, so decoders.DecodeAllFloat32 and streamdecoder's
// normalize step pass them through instead of rescaling as integer PCM.
func (d *Decoder) IsFloatFormat() bool { return true }

// DecodeSamples copies up to 'samples' frames worth of pre-decoded float32
// data into audio as little-endian IEEE-754 bytes, advancing the read
// position. Returns (0, nil) once the buffered samples are exhausted,
// matching the other backends' end-of-stream convention.
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.channels <= 0 {
		return 0, fmt.Errorf("wav: decoder not initialized")
	}

	framesAvailable := (len(d.samples) - d.pos) / d.channels
	if framesAvailable <= 0 {
		return 0, nil
	}
	if samples > framesAvailable {
		samples = framesAvailable
	}

	if need := samples * d.channels * 4; need > len(audio) {
		samples = len(audio) / (d.channels * 4)
	}

	for i := 0; i < samples*d.channels; i++ {
		bits := math.Float32bits(d.samples[d.pos+i])
		binary.LittleEndian.PutUint32(audio[i*4:], bits)
	}
	d.pos += samples * d.channels

	return samples, nil
}
