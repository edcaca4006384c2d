// Package device defines the contract between the audio engine and a
// concrete output backend, plus the auto-scale-on-underrun policy that sits
// in front of it. No concrete backend (PortAudio, malgo, WASAPI, CoreAudio)
// lives in this package; DeviceManager stays contract-only, matching how
// the original AudioEngine.h takes a raw callback and format triplet rather
// than owning a driver itself.
package device

import (
	"fmt"
	"sync/atomic"
)

// Callback is invoked by a backend once per audio block. output is an
// interleaved stereo float32 buffer of length numFrames*2 to fill; input is
// the matching capture buffer, or nil if the stream is output-only.
// streamTime is the backend's monotonic stream clock in seconds. A nonzero
// return aborts the stream (matches the original's "return 0 to continue"
// convention).
type Callback func(output, input []float32, numFrames int, streamTime float64) int

// Format describes a stream's negotiated parameters.
type Format struct {
	SampleRate   int
	BufferFrames int
}

// Manager is implemented by a concrete backend (PortAudio, malgo, ...). The
// core engine never imports a backend package directly; cmd/nomadaudio
// wires a concrete Manager at the binary's entry point.
type Manager interface {
	// Open starts a stereo output stream (with optional input) at format,
	// invoking cb once per block until Close is called or cb returns
	// nonzero.
	Open(format Format, cb Callback) error
	Close() error
	// CurrentFormat reports the stream's actual negotiated format, which
	// may differ from the one requested by Open.
	CurrentFormat() Format
}

// Stats are the counters DeviceManager publishes: current sample rate,
// current buffer frames, and a running underrun count a backend increments
// whenever it has to emit silence because the callback didn't produce data
// in time.
type Stats struct {
	SampleRate   atomic.Int64
	BufferFrames atomic.Int64
	Underruns    atomic.Uint64
}

// AutoScalePolicy implements the bounded-retry reopen-with-larger-buffer
// behavior: when the driver reports repeated underruns, it requests the
// device reopen with a larger buffer size, within a bounded retry count.
type AutoScalePolicy struct {
	maxRetries     int
	growthFactor   float64
	underrunBudget int // consecutive underruns tolerated before scaling

	retries          int
	consecutiveUnder int
}

// DefaultAutoScalePolicy doubles the buffer after 3 consecutive underrun
// reports, up to 5 reopen attempts.
func DefaultAutoScalePolicy() AutoScalePolicy {
	return AutoScalePolicy{
		maxRetries:     5,
		growthFactor:   2.0,
		underrunBudget: 3,
	}
}

// RecordUnderrun tells the policy one more underrun occurred. It returns
// the new buffer size to reopen with and true if the policy has decided to
// scale up; otherwise it returns (0, false) and the caller should keep the
// stream as-is.
func (p *AutoScalePolicy) RecordUnderrun(currentBufferFrames int) (int, bool) {
	p.consecutiveUnder++
	if p.consecutiveUnder < p.underrunBudget {
		return 0, false
	}
	p.consecutiveUnder = 0
	if p.retries >= p.maxRetries {
		return 0, false
	}
	p.retries++
	return int(float64(currentBufferFrames) * p.growthFactor), true
}

// RecordHealthyBlock resets the consecutive-underrun counter; a policy
// should not scale on underruns separated by long healthy stretches.
func (p *AutoScalePolicy) RecordHealthyBlock() {
	p.consecutiveUnder = 0
}

// Reopener abstracts the narrow slice of Manager that AutoScaler needs:
// closing the current stream and reopening at a new format. Kept separate
// from Manager so AutoScaler can be unit tested against a fake.
type Reopener interface {
	Reopen(format Format, cb Callback) error
}

// AutoScaler wires a Manager, a Callback, and an AutoScalePolicy together
// so the auto-scale decision happens transparently around every underrun
// report the backend makes.
type AutoScaler struct {
	reopener Reopener
	cb       Callback
	policy   AutoScalePolicy
	format   Format
}

// NewAutoScaler wraps reopener with policy, tracking format as the stream's
// current (possibly already-reopened) format.
func NewAutoScaler(reopener Reopener, cb Callback, format Format, policy AutoScalePolicy) *AutoScaler {
	return &AutoScaler{reopener: reopener, cb: cb, policy: policy, format: format}
}

// OnUnderrun should be called by the backend's underrun hook. It may reopen
// the stream with a larger buffer via a.reopener.
func (a *AutoScaler) OnUnderrun() error {
	newFrames, scale := a.policy.RecordUnderrun(a.format.BufferFrames)
	if !scale {
		return nil
	}
	a.format.BufferFrames = newFrames
	if err := a.reopener.Reopen(a.format, a.cb); err != nil {
		return fmt.Errorf("device: auto-scale reopen failed: %w", err)
	}
	return nil
}

// OnHealthyBlock should be called once per successfully rendered block.
func (a *AutoScaler) OnHealthyBlock() {
	a.policy.RecordHealthyBlock()
}

// CurrentFormat reports the format AutoScaler believes is active.
func (a *AutoScaler) CurrentFormat() Format {
	return a.format
}
