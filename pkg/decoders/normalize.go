package decoders

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nomadaudio/engine/pkg/types"
)

// FloatFormatter is implemented by decoder backends whose DecodeSamples
// already produces IEEE-754 float32 little-endian samples instead of
// integer PCM (the vorbis backend, and wav's adapter over the already-
// normalized riffwalk parser). DecodeAllFloat32 uses it to pick the right
// normalization path.
type FloatFormatter interface {
	IsFloatFormat() bool
}

// DecodeAllFloat32 fully decodes an already-Open'd decoder into a single
// interleaved float32 buffer normalized to [-1, 1]. This is the bridge every
// AudioDecoder backend funnels through before landing in an AudioBuffer:
// integer PCM of any supported width is divided by its full-scale value,
// IEEE float samples are passed through clamped.
func DecodeAllFloat32(dec types.AudioDecoder) (samples []float32, channels, rate int, err error) {
	rate, channels, bps := dec.GetFormat()
	if channels <= 0 {
		return nil, 0, 0, fmt.Errorf("decoders: invalid channel count %d", channels)
	}
	bytesPerSample := bps / 8
	if bytesPerSample <= 0 {
		return nil, 0, 0, fmt.Errorf("decoders: invalid bits per sample %d", bps)
	}

	isFloat := false
	if ff, ok := dec.(FloatFormatter); ok {
		isFloat = ff.IsFloatFormat()
	}

	const chunkFrames = 4096
	buf := make([]byte, chunkFrames*channels*bytesPerSample)

	var out []float32
	for {
		n, derr := dec.DecodeSamples(chunkFrames, buf)
		if n > 0 {
			decoded, cerr := NormalizeChunk(buf[:n*channels*bytesPerSample], bytesPerSample, isFloat)
			if cerr != nil {
				return nil, 0, 0, cerr
			}
			out = append(out, decoded...)
		}
		if derr != nil {
			return nil, 0, 0, fmt.Errorf("decoders: decode failed: %w", derr)
		}
		if n == 0 || n < chunkFrames {
			break
		}
	}

	return out, channels, rate, nil
}

// NormalizeChunk converts one chunk of raw decoded PCM bytes into normalized
// float32 samples, dividing integer PCM by its full-scale value or passing
// IEEE float32 samples through clamped. Used by DecodeAllFloat32 and by
// streamdecoder's incremental chunk loop so both paths share one conversion.
func NormalizeChunk(data []byte, bytesPerSample int, isFloat bool) ([]float32, error) {
	return convertPCMToFloat32(data, bytesPerSample, isFloat)
}

func convertPCMToFloat32(data []byte, bytesPerSample int, isFloat bool) ([]float32, error) {
	count := len(data) / bytesPerSample
	out := make([]float32, count)

	if isFloat {
		if bytesPerSample != 4 {
			return nil, fmt.Errorf("decoders: float format requires 4-byte samples, got %d", bytesPerSample)
		}
		for i := range out {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			out[i] = clamp32(math.Float32frombits(bits))
		}
		return out, nil
	}

	switch bytesPerSample {
	case 1:
		for i := range out {
			out[i] = float32(int(data[i])-128) / 128.0
		}
	case 2:
		for i := range out {
			v := int16(binary.LittleEndian.Uint16(data[i*2:]))
			out[i] = float32(v) / 32768.0
		}
	case 3:
		for i := range out {
			b0, b1, b2 := data[i*3], data[i*3+1], data[i*3+2]
			v := int32(b0) | int32(b1)<<8 | int32(b2)<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			out[i] = float32(v) / 8388608.0
		}
	case 4:
		for i := range out {
			v := int32(binary.LittleEndian.Uint32(data[i*4:]))
			out[i] = float32(v) / 2147483648.0
		}
	default:
		return nil, fmt.Errorf("decoders: unsupported sample width %d bytes", bytesPerSample)
	}

	return out, nil
}

func clamp32(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
