package vorbis

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// Decoder wraps github.com/jfreymuth/oggvorbis. Unlike the PCM-based
// decoders (flac, mp3) it produces samples natively as float32, so
// DecodeSamples packs them as IEEE-754 little-endian rather than scaled
// integers; IsFloatFormat reports this to decoders.DecodeAllFloat32.
type Decoder struct {
	file     *os.File
	reader   *oggvorbis.Reader
	rate     int
	channels int
	scratch  []float32
}

// NewDecoder creates a new Ogg Vorbis decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens and initializes a Vorbis file for decoding.
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", fileName, err)
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create vorbis reader: %w", err)
	}

	d.file = file
	d.reader = reader
	d.rate = reader.SampleRate()
	d.channels = reader.Channels()

	return nil
}

// Close closes the decoder and releases resources.
func (d *Decoder) Close() error {
	d.reader = nil
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}

// GetFormat returns the audio format (rate, channels, bits per sample).
// Bits per sample is reported as 32 to describe the float32 wire width used
// by DecodeSamples, not a true integer bit depth.
func (d *Decoder) GetFormat() (int, int, int) {
	return d.rate, d.channels, 32
}

// IsFloatFormat reports that DecodeSamples emits IEEE-754 float32 samples.
func (d *Decoder) IsFloatFormat() bool {
	return true
}

// DecodeSamples decodes up to 'samples' frames into audio as interleaved
// little-endian float32 values (4 bytes per channel per frame).
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	need := samples * d.channels
	if cap(d.scratch) < need {
		d.scratch = make([]float32, need)
	}
	buf := d.scratch[:need]

	total := 0
	for total < need {
		n, err := d.reader.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				break
			}
			frames := total / d.channels
			return frames, fmt.Errorf("vorbis decode: %w", err)
		}
		if n == 0 {
			break
		}
	}

	frames := total / d.channels
	needBytes := frames * d.channels * 4
	if needBytes > len(audio) {
		frames = len(audio) / (d.channels * 4)
		needBytes = frames * d.channels * 4
	}
	for i := 0; i < frames*d.channels; i++ {
		binary.LittleEndian.PutUint32(audio[i*4:], math.Float32bits(buf[i]))
	}

	return frames, nil
}
