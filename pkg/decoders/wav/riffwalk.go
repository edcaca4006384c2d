package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Chunk IDs walked by the tolerant RIFF reader below.
const (
	idRIFF = "RIFF"
	idWAVE = "WAVE"
	idFmt  = "fmt "
	idData = "data"
)

const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

// LoadFloat32 parses a RIFF/WAVE file with a chunk walker that tolerates
// out-of-order chunks, JUNK/LIST chunks interspersed before or after "data",
// and the odd-byte chunk padding rule. Supported formats: PCM 16/24/32-bit
// little-endian and IEEE-float 32-bit. On any parse or validation failure it
// returns an error and no partial buffer; a "data" chunk shorter than the
// header implies is trimmed to the frames actually present rather than
// treated as an error.
func LoadFloat32(path string) (samples []float32, channels, rate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("wav: open %s: %w", path, err)
	}
	defer f.Close()

	var riffHdr [12]byte
	if _, err := io.ReadFull(f, riffHdr[:]); err != nil {
		return nil, 0, 0, fmt.Errorf("wav: %s: short RIFF header: %w", path, err)
	}
	if string(riffHdr[0:4]) != idRIFF || string(riffHdr[8:12]) != idWAVE {
		return nil, 0, 0, fmt.Errorf("wav: %s: not a RIFF/WAVE file", path)
	}

	var (
		haveFmt       bool
		audioFormat   uint16
		numChannels   uint16
		sampleRate    uint32
		bitsPerSample uint16
		dataBytes     []byte
	)

chunkLoop:
	for {
		var hdr [8]byte
		n, rerr := io.ReadFull(f, hdr[:])
		if rerr == io.EOF || (rerr == io.ErrUnexpectedEOF && n == 0) {
			break
		}
		if rerr != nil {
			return nil, 0, 0, fmt.Errorf("wav: %s: short chunk header: %w", path, rerr)
		}

		chunkID := string(hdr[0:4])
		chunkSize := binary.LittleEndian.Uint32(hdr[4:8])

		switch chunkID {
		case idFmt:
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, body); err != nil {
				return nil, 0, 0, fmt.Errorf("wav: %s: truncated fmt chunk: %w", path, err)
			}
			if len(body) < 16 {
				return nil, 0, 0, fmt.Errorf("wav: %s: fmt chunk too small", path)
			}
			audioFormat = binary.LittleEndian.Uint16(body[0:2])
			numChannels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = binary.LittleEndian.Uint32(body[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			if audioFormat == formatExtensible && len(body) >= 40 {
				// WAVE_FORMAT_EXTENSIBLE: the real format hides in the first
				// two bytes of the SubFormat GUID at offset 24.
				audioFormat = binary.LittleEndian.Uint16(body[24:26])
			}
			haveFmt = true
			if chunkSize%2 == 1 {
				skipPad(f)
			}

		case idData:
			body := make([]byte, chunkSize)
			nRead, rerr := io.ReadFull(f, body)
			if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
				return nil, 0, 0, fmt.Errorf("wav: %s: reading data chunk: %w", path, rerr)
			}
			// Trim to frames actually present: a decoder producing fewer
			// frames than the header claims is success, not failure.
			dataBytes = body[:nRead]
			if chunkSize%2 == 1 {
				skipPad(f)
			}

		default:
			// JUNK, LIST, fact, and anything else: skip the body (and pad).
			if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				// Chunk claims more bytes than remain in the file; stop
				// walking but keep whatever we already parsed.
				break chunkLoop
			}
			if chunkSize%2 == 1 {
				skipPad(f)
			}
		}
	}

	if !haveFmt {
		return nil, 0, 0, fmt.Errorf("wav: %s: missing fmt chunk", path)
	}
	if dataBytes == nil {
		return nil, 0, 0, fmt.Errorf("wav: %s: missing data chunk", path)
	}
	if numChannels == 0 {
		return nil, 0, 0, fmt.Errorf("wav: %s: zero channel count", path)
	}

	switch audioFormat {
	case formatPCM:
		switch bitsPerSample {
		case 16, 24, 32:
		default:
			return nil, 0, 0, fmt.Errorf("wav: %s: unsupported PCM bit depth %d", path, bitsPerSample)
		}
	case formatIEEEFloat:
		if bitsPerSample != 32 {
			return nil, 0, 0, fmt.Errorf("wav: %s: unsupported float bit depth %d", path, bitsPerSample)
		}
	default:
		return nil, 0, 0, fmt.Errorf("wav: %s: unsupported audio format code %d", path, audioFormat)
	}

	bytesPerSample := int(bitsPerSample) / 8
	frameBytes := bytesPerSample * int(numChannels)
	if frameBytes == 0 {
		return nil, 0, 0, fmt.Errorf("wav: %s: invalid frame size", path)
	}
	usable := (len(dataBytes) / frameBytes) * frameBytes
	out := make([]float32, usable/bytesPerSample)

	switch {
	case audioFormat == formatIEEEFloat:
		for i := range out {
			bits := binary.LittleEndian.Uint32(dataBytes[i*4:])
			out[i] = clampUnit(math.Float32frombits(bits))
		}
	case bitsPerSample == 16:
		for i := range out {
			v := int16(binary.LittleEndian.Uint16(dataBytes[i*2:]))
			out[i] = float32(v) / 32768.0
		}
	case bitsPerSample == 24:
		for i := range out {
			b0, b1, b2 := dataBytes[i*3], dataBytes[i*3+1], dataBytes[i*3+2]
			v := int32(b0) | int32(b1)<<8 | int32(b2)<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			out[i] = float32(v) / 8388608.0
		}
	case bitsPerSample == 32:
		for i := range out {
			v := int32(binary.LittleEndian.Uint32(dataBytes[i*4:]))
			out[i] = float32(v) / 2147483648.0
		}
	}

	return out, int(numChannels), int(sampleRate), nil
}

func skipPad(f *os.File) {
	var pad [1]byte
	io.ReadFull(f, pad[:])
}

func clampUnit(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
