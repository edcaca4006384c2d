// Package preview implements single-voice file preview playback: load a
// file (through the shared sample pool), fade it in, mix it into the
// device's output stream, and fade it out on stop or completion. Grounded
// on NomadAudio/include/PreviewEngine.h and PreviewEngine.cpp: same voice
// lifecycle (fade-in, optional max duration, fade-out, onComplete), same
// single-active-voice contract, same linear-interpolated render loop.
package preview

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/nomadaudio/engine/pkg/decoders"
	"github.com/nomadaudio/engine/pkg/interpolate"
	"github.com/nomadaudio/engine/pkg/samplepool"
)

const (
	defaultGainDb           = -6.0
	fadeInSeconds           = 0.02
	fadeOutSeconds          = 0.05
	defaultOutputSampleRate = 48000.0
)

// dbToLinear converts a decibel gain to a linear amplitude multiplier.
func dbToLinear(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// voice is one in-flight preview. A voice is only ever touched from
// Engine.Process (the RT side) except for the atomic stopRequested flag,
// which Stop may set concurrently.
type voice struct {
	buffer   *samplepool.AudioBuffer
	path     string
	phase    float64 // frame position in buffer, fractional
	rate     float64 // buffer's native sample rate
	gain     float64 // linear, includes per-call and global gain

	maxSeconds     float64
	elapsedSeconds float64

	fadeInPos  float64
	fadeOutPos float64

	stopRequested atomic.Bool
	fadeOutActive bool
}

// Engine owns at most one active preview voice at a time, mirroring
// PreviewEngine's shared_ptr<PreviewVoice> + mutex pattern: Go's atomic
// package can't hold a non-trivial pointer-with-fields type any more
// cleanly than std::atomic can, so a short mutex guards voice swaps instead.
type Engine struct {
	pool *samplepool.Pool

	mu     sync.Mutex
	active *voice

	outputSampleRate atomic.Uint64 // math.Float64bits
	globalGainDb     atomic.Uint64 // math.Float64bits

	onCompleteMu sync.Mutex
	onComplete   func(path string)
}

// New returns an Engine with no active voice, 48kHz output assumed, and the
// default -6dB global preview gain.
func New(pool *samplepool.Pool) *Engine {
	e := &Engine{pool: pool}
	e.outputSampleRate.Store(math.Float64bits(defaultOutputSampleRate))
	e.globalGainDb.Store(math.Float64bits(defaultGainDb))
	return e
}

// SetOutputSampleRate sets the rate Process resamples to. Ignored if sr is
// non-positive.
func (e *Engine) SetOutputSampleRate(sr float64) {
	if sr <= 0 {
		return
	}
	e.outputSampleRate.Store(math.Float64bits(sr))
}

func (e *Engine) outputRate() float64 {
	return math.Float64frombits(e.outputSampleRate.Load())
}

// SetGlobalVolume sets the gain in dB applied to every subsequent Play
// call, on top of that call's own gainDb argument.
func (e *Engine) SetGlobalVolume(gainDb float64) {
	e.globalGainDb.Store(math.Float64bits(gainDb))
}

// GetGlobalVolume returns the current global preview gain in dB.
func (e *Engine) GetGlobalVolume() float64 {
	return math.Float64frombits(e.globalGainDb.Load())
}

// SetOnComplete registers a callback invoked (from inside Process, on the
// RT thread) with a voice's path once its fade-out has finished (or its
// buffer has run out) and it has been released. There is no per-call synchronization guarantee beyond
// Process's own serialization; callers needing UI-thread delivery should
// hop off the RT thread themselves.
func (e *Engine) SetOnComplete(cb func(path string)) {
	e.onCompleteMu.Lock()
	defer e.onCompleteMu.Unlock()
	e.onComplete = cb
}

func (e *Engine) fireOnComplete(path string) {
	e.onCompleteMu.Lock()
	cb := e.onComplete
	e.onCompleteMu.Unlock()
	if cb != nil {
		cb(path)
	}
}

// Play loads (or reuses a pooled copy of) the file at path and makes it the
// active preview, replacing any currently playing voice. The replaced voice
// is dropped at once, without a fade-out, and onComplete is not invoked for
// it. gainDb is added to the engine's global preview gain. If maxSeconds is
// <= 0 the whole buffer plays; the voice is released when the buffer runs
// out, without a fade-out.
func (e *Engine) Play(path string, gainDb, maxSeconds float64) error {
	buf, err := e.loadBuffer(path)
	if err != nil {
		return fmt.Errorf("preview: load %s: %w", path, err)
	}

	v := &voice{
		buffer:     buf,
		path:       path,
		rate:       rateOf(buf),
		gain:       dbToLinear(gainDb + e.GetGlobalVolume()),
		maxSeconds: maxSeconds,
	}

	e.mu.Lock()
	e.active = v
	e.mu.Unlock()
	return nil
}

func rateOf(buf *samplepool.AudioBuffer) float64 {
	if buf.SampleRate > 0 {
		return float64(buf.SampleRate)
	}
	return defaultOutputSampleRate
}

// loadBuffer acquires path from the shared pool, decoding and forcing it
// to stereo on a cache miss.
func (e *Engine) loadBuffer(path string) (*samplepool.AudioBuffer, error) {
	return e.pool.Acquire(path, func(out *samplepool.AudioBuffer) error {
		dec, err := decoders.NewDecoder(path)
		if err != nil {
			return err
		}
		defer dec.Close()

		samples, channels, rate, err := decoders.DecodeAllFloat32(dec)
		if err != nil {
			return err
		}

		samples, channels = forceStereo(samples, channels)

		out.Data = samples
		out.Channels = channels
		out.SampleRate = rate
		out.SourcePath = path
		return nil
	})
}

// forceStereo duplicates mono to stereo or downmixes 3+ channels to stereo
// using fixed per-role coefficients, matching PreviewEngine.cpp's
// downmixToStereoImpl/forceStereo: center and channel index 2 at ~0.707,
// LFE (index 3) at 0.5, surrounds (4,5) at ~0.707, anything past 6 at 0.5.
func forceStereo(data []float32, channels int) ([]float32, int) {
	if channels == 2 || channels == 0 {
		return data, channels
	}
	if channels == 1 {
		out := make([]float32, len(data)*2)
		for i, s := range data {
			out[i*2] = s
			out[i*2+1] = s
		}
		return out, 2
	}

	frames := len(data) / channels
	out := make([]float32, frames*2)
	const side = 0.7071
	for i := 0; i < frames; i++ {
		frame := data[i*channels : i*channels+channels]
		var left, right float32
		left += frame[0]
		right += frame[1]
		if channels >= 3 {
			c := frame[2] * side
			left += c
			right += c
		}
		if channels >= 4 {
			lfe := frame[3] * 0.5
			left += lfe
			right += lfe
		}
		if channels >= 5 {
			left += frame[4] * side
		}
		if channels >= 6 {
			right += frame[5] * side
		}
		for ch := 6; ch < channels; ch++ {
			v := frame[ch] * 0.5
			left += v
			right += v
		}
		out[i*2] = clamp1(left)
		out[i*2+1] = clamp1(right)
	}
	return out, 2
}

func clamp1(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// Stop requests the active voice (if any) begin a fade-out rather than
// cutting off abruptly.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		e.active.stopRequested.Store(true)
	}
}

// IsPlaying reports whether a voice is currently active.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Process mixes the active voice additively into interleaved stereo
// output, resampling with linear interpolation, applying fade-in/fade-out
// envelopes and per-voice gain, and advances voice playback state. Safe to
// call with no active voice (a no-op). Invokes the onComplete callback and
// releases the voice once its fade-out finishes or its buffer runs out.
func (e *Engine) Process(output []float32, numFrames int) {
	e.mu.Lock()
	v := e.active
	e.mu.Unlock()
	if v == nil || len(output) < numFrames*2 {
		return
	}
	buf := v.buffer
	if buf == nil || len(buf.Data) == 0 || buf.SampleRate == 0 {
		return
	}

	streamRate := e.outputRate()
	fadeInFrames := streamRate * fadeInSeconds
	fadeOutFrames := streamRate * fadeOutSeconds
	ratio := v.rate / streamRate
	totalFrames := buf.NumFrames
	data := buf.Data
	phase := v.phase
	gain := v.gain

	for i := 0; i < numFrames; i++ {
		if int(phase) >= totalFrames {
			v.stopRequested.Store(true)
			v.fadeOutActive = true
			v.fadeOutPos = fadeOutFrames // nothing left to fade
			break
		}
		outL := interpolate.LinearSample(data, totalFrames, phase, 0, 2)
		outR := interpolate.LinearSample(data, totalFrames, phase, 1, 2)

		envelope := 1.0
		if v.fadeInPos < fadeInFrames {
			envelope = v.fadeInPos / fadeInFrames
			v.fadeInPos++
		}
		if v.stopRequested.Load() || v.fadeOutActive {
			v.fadeOutActive = true
			remaining := (fadeOutFrames - v.fadeOutPos) / fadeOutFrames
			if remaining < 0 {
				remaining = 0
			}
			envelope *= remaining
			v.fadeOutPos++
		}

		output[i*2] += float32(outL * gain * envelope)
		output[i*2+1] += float32(outR * gain * envelope)

		phase += ratio
	}

	v.phase = phase
	v.elapsedSeconds += float64(numFrames) / streamRate
	if v.maxSeconds > 0 && v.elapsedSeconds >= v.maxSeconds {
		v.stopRequested.Store(true)
		v.fadeOutActive = true
	}

	finished := v.fadeOutActive && v.fadeOutPos >= fadeOutFrames
	if finished {
		e.fireOnComplete(v.path)
		e.mu.Lock()
		if e.active == v {
			e.active = nil
		}
		e.mu.Unlock()
	}
}
