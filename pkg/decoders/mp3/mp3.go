package mp3

import (
	"fmt"
	"io"
	"os"

	goMp3 "github.com/imcarsen/go-mp3"
)

// Decoder wraps github.com/imcarsen/go-mp3, a pure-Go MP3 decoder.
// Implements types.AudioDecoder interface.
//
// go-mp3 always produces 16-bit signed little-endian stereo PCM regardless
// of the source channel layout, so Channels() and BitsPerSample() are fixed.
type Decoder struct {
	file    *os.File
	decoder *goMp3.Decoder
	rate    int
}

// NewDecoder creates a new MP3 decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// GetFormat returns the audio format (rate, channels, bits per sample).
func (d *Decoder) GetFormat() (int, int, int) {
	return d.rate, 2, 16
}

// DecodeSamples decodes up to 'samples' audio samples (frames) into audio.
// Returns the number of samples actually decoded.
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	const bytesPerSample = 2 * 2 // stereo, 16-bit
	want := samples * bytesPerSample
	if want > len(audio) {
		want = (len(audio) / bytesPerSample) * bytesPerSample
	}

	n, err := io.ReadFull(d.decoder, audio[:want])
	decodedSamples := n / bytesPerSample
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return decodedSamples, nil
	}
	if err != nil {
		return decodedSamples, fmt.Errorf("mp3 decode: %w", err)
	}
	return decodedSamples, nil
}

// Open opens and initializes an MP3 file for decoding.
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", fileName, err)
	}

	decoder, err := goMp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	d.file = file
	d.decoder = decoder
	d.rate = decoder.SampleRate()

	return nil
}

// Close closes the decoder and releases resources.
func (d *Decoder) Close() error {
	d.decoder = nil
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}

// Rate returns the sample rate in Hz.
func (d *Decoder) Rate() int {
	return d.rate
}

// Channels returns the number of audio channels (always 2 for go-mp3).
func (d *Decoder) Channels() int {
	return 2
}

// BitsPerSample returns the bits per sample (always 16 for go-mp3).
func (d *Decoder) BitsPerSample() int {
	return 16
}
