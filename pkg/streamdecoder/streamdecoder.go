// Package streamdecoder implements progressive, chunked decoding of an audio
// file into a frame ring so playback can start before the whole file is
// decoded. Grounded on NomadAudio/include/StreamingDecoder.h: same state
// machine (Idle -> Starting -> Streaming -> Complete|Error), same decode
// thread / ring buffer split, same fixed decode chunk size.
package streamdecoder

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/nomadaudio/engine/pkg/decoders"
	"github.com/nomadaudio/engine/pkg/framering"
)

// State is the lifecycle of a streaming decode.
type State int32

const (
	Idle State = iota
	Starting
	Streaming
	Complete
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Streaming:
		return "streaming"
	case Complete:
		return "complete"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// decodeChunkFrames mirrors kDecodeChunkFrames: decode 4096 frames at a time.
const decodeChunkFrames = 4096

// OnReady, OnError and OnComplete mirror the three StreamingDecoder
// callbacks. All are invoked from the decode goroutine, never from read.
type OnReady func(sampleRate, channels int, durationSeconds float64)
type OnError func(err error)
type OnComplete func()

// Decoder progressively decodes a file into an internal frame ring. One
// decode goroutine (the producer) runs per active stream; read is the only
// method meant to be called from the RT callback (the consumer).
type Decoder struct {
	state State32

	sampleRate    atomic.Uint32
	channels      atomic.Uint32
	decodedFrames atomic.Uint64

	bufferMu sync.Mutex
	ring     *framering.Ring

	stopRequested atomic.Bool
	done          chan struct{}

	OnReady    OnReady
	OnError    OnError
	OnComplete OnComplete
}

// State32 wraps atomic.Int32 so State can be stored/loaded atomically
// without an import cycle on sync/atomic in the public API.
type State32 struct{ v atomic.Int32 }

func (s *State32) Load() State    { return State(s.v.Load()) }
func (s *State32) Store(st State) { s.v.Store(int32(st)) }

// New returns an idle Decoder.
func New() *Decoder {
	d := &Decoder{}
	d.state.Store(Idle)
	return d
}

// Start begins decoding path on a new goroutine, sized to hold
// bufferSizeSeconds of audio once the format is known. targetLatencyMs is
// accepted for parity with the original contract and is not used: the
// decoder enters Streaming and fires OnReady as soon as the format is known
// and the ring is allocated, before the first chunk is decoded.
func (d *Decoder) Start(path string, bufferSizeSeconds, targetLatencyMs float64) error {
	if d.state.Load() == Streaming || d.state.Load() == Starting {
		return fmt.Errorf("streamdecoder: already active")
	}
	d.state.Store(Starting)
	d.stopRequested.Store(false)
	d.decodedFrames.Store(0)
	d.done = make(chan struct{})

	go d.decodeThread(path, bufferSizeSeconds)
	return nil
}

// Stop requests the decode goroutine to exit and blocks until it has.
func (d *Decoder) Stop() {
	if d.state.Load() == Idle {
		return
	}
	d.stopRequested.Store(true)
	if d.done != nil {
		<-d.done
	}
	d.state.Store(Idle)
}

func (d *Decoder) decodeThread(path string, bufferSizeSeconds float64) {
	defer close(d.done)

	dec, err := decoders.NewDecoder(path)
	if err != nil {
		d.fail(fmt.Errorf("streamdecoder: open %s: %w", path, err))
		return
	}
	defer dec.Close()

	rate, channels, bps := dec.GetFormat()
	if rate <= 0 {
		rate = 44100
	}
	if channels <= 0 {
		channels = 2
	}
	bytesPerSample := bps / 8
	if bytesPerSample <= 0 {
		bytesPerSample = 2
	}
	isFloat := false
	if ff, ok := dec.(decoders.FloatFormatter); ok {
		isFloat = ff.IsFloatFormat()
	}
	d.sampleRate.Store(uint32(rate))
	d.channels.Store(uint32(channels))

	capacityFrames := uint64(bufferSizeSeconds * float64(rate))
	if capacityFrames < decodeChunkFrames*2 {
		capacityFrames = decodeChunkFrames * 2
	}

	d.bufferMu.Lock()
	d.ring = framering.New(capacityFrames, channels)
	d.bufferMu.Unlock()

	d.state.Store(Streaming)
	if d.OnReady != nil {
		d.OnReady(rate, channels, 0)
	}

	scratchBytes := make([]byte, decodeChunkFrames*channels*bytesPerSample)

	for {
		if d.stopRequested.Load() {
			d.state.Store(Idle)
			return
		}

		n, derr := dec.DecodeSamples(decodeChunkFrames, scratchBytes)
		if n > 0 {
			floatChunk, cerr := decoders.NormalizeChunk(scratchBytes[:n*channels*bytesPerSample], bytesPerSample, isFloat)
			if cerr != nil {
				d.fail(fmt.Errorf("streamdecoder: normalize chunk: %w", cerr))
				return
			}
			d.writeAll(floatChunk, n)
			d.decodedFrames.Add(uint64(n))
		}
		if derr != nil || n == 0 {
			d.state.Store(Complete)
			if d.OnComplete != nil {
				d.OnComplete()
			}
			return
		}
	}
}

// writeAll blocks (via cooperative retry) until the whole chunk is written
// or a stop is requested, since the decode thread must not drop audio.
func (d *Decoder) writeAll(samples []float32, frames int) {
	for {
		if d.stopRequested.Load() {
			return
		}
		d.bufferMu.Lock()
		r := d.ring
		d.bufferMu.Unlock()
		if r == nil {
			return
		}
		if _, err := r.Write(samples, frames); err == nil {
			return
		}
		// Ring is full: the consumer is behind. Yield and retry rather than
		// dropping audio, matching the original's blocking producer design.
		runtime.Gosched()
	}
}

// Read copies up to numFrames from the internal ring into output
// (interleaved, sized numFrames*Channels()), filling any shortfall with
// silence. Never allocates. It takes bufferMu to load the ring pointer, so
// it waits whenever the decode goroutine holds that lock, which it does only
// while storing or loading the same pointer.
func (d *Decoder) Read(output []float32, numFrames int) int {
	d.bufferMu.Lock()
	r := d.ring
	d.bufferMu.Unlock()
	if r == nil {
		for i := range output {
			output[i] = 0
		}
		return 0
	}
	return r.ReadOrSilence(output, numFrames)
}

func (d *Decoder) fail(err error) {
	d.state.Store(Error)
	if d.OnError != nil {
		d.OnError(err)
	}
}

// GetState returns the current lifecycle state.
func (d *Decoder) GetState() State { return d.state.Load() }

// IsReady reports whether the stream is Streaming or Complete.
func (d *Decoder) IsReady() bool {
	s := d.state.Load()
	return s == Streaming || s == Complete
}

// IsComplete reports whether decoding has finished.
func (d *Decoder) IsComplete() bool { return d.state.Load() == Complete }

// GetSampleRate returns the decoded file's sample rate, valid after OnReady.
func (d *Decoder) GetSampleRate() int { return int(d.sampleRate.Load()) }

// GetChannels returns the decoded file's channel count, valid after OnReady.
func (d *Decoder) GetChannels() int { return int(d.channels.Load()) }

// GetDecodedFrames returns the number of frames decoded so far.
func (d *Decoder) GetDecodedFrames() uint64 { return d.decodedFrames.Load() }

// GetDuration returns the duration decoded so far, in seconds, derived from
// decoded frame count and sample rate (some formats never report total
// duration up front, so this is the only value guaranteed available).
func (d *Decoder) GetDuration() float64 {
	rate := d.sampleRate.Load()
	if rate == 0 {
		return 0
	}
	return float64(d.decodedFrames.Load()) / float64(rate)
}
