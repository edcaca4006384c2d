// Package clipmodel is the editable, UI-thread-owned data model: clips
// placed non-destructively on playlist lanes. It is grounded on NomadAudio's
// AudioClip.h/.cpp and PlaylistTrack.h, with string IDs replaced by the
// stable 128-bit pkg/uuid identity.
package clipmodel

import (
	"errors"
	"sync/atomic"

	"github.com/nomadaudio/engine/pkg/uuid"
)

// ErrInvalidSplit is returned by SplitAt when the requested position does
// not fall strictly inside the clip's timeline span.
var ErrInvalidSplit = errors.New("clipmodel: split position outside clip span")

// ErrClipNotFound is returned by lane lookups for an unknown clip UUID.
var ErrClipNotFound = errors.New("clipmodel: clip not found")

// SourceBuffer is the read-only view a clip needs into decoded audio,
// satisfied by both *samplepool.AudioBuffer (pooled, shared) and
// *OwnedBuffer (clip-owned PCM that never went through the pool).
type SourceBuffer interface {
	BufferData() []float32
	BufferChannels() int
	BufferSampleRate() int
	BufferFrames() int
	BufferReady() bool
}

// OwnedBuffer wraps PCM data a clip owns outright rather than sharing
// through the SamplePool — the "owned PCM" half of AudioClip's "owned PCM
// or reference to a pooled buffer" data member.
type OwnedBuffer struct {
	data       []float32
	channels   int
	sampleRate int
}

// NewOwnedBuffer wraps data (interleaved, already normalized to [-1,1]) as
// a clip-owned source buffer.
func NewOwnedBuffer(data []float32, channels, sampleRate int) *OwnedBuffer {
	return &OwnedBuffer{data: data, channels: channels, sampleRate: sampleRate}
}

func (b *OwnedBuffer) BufferData() []float32    { return b.data }
func (b *OwnedBuffer) BufferChannels() int      { return b.channels }
func (b *OwnedBuffer) BufferSampleRate() int    { return b.sampleRate }
func (b *OwnedBuffer) BufferFrames() int {
	if b.channels == 0 {
		return 0
	}
	return len(b.data) / b.channels
}
func (b *OwnedBuffer) BufferReady() bool { return true }

// AudioClip is a non-destructive reference to a region of a source buffer,
// placed at a timeline position. Instances are mutated only from the UI
// thread; the RT side only ever sees immutable ClipRenderState snapshots
// derived from a clip by pkg/rendergraph.
type AudioClip struct {
	ID            uuid.ID
	DisplayName   string
	Color         uint32
	TimelineStart float64 // seconds
	TrimStart     float64 // seconds into the source
	TrimEnd       float64 // seconds into the source; 0 means "use full source"
	Gain          float64 // linear
	Pan           float64 // -1..+1, per-clip constant-power pan fed into ClipRenderState

	Source           SourceBuffer
	SourceSampleRate int
	SourceChannels   int
	SourcePath       string // empty for clips with no backing file

	refCount atomic.Int32
}

// NewAudioClip constructs a clip referencing source, with default gain 1.0
// and the trim window covering the whole source.
func NewAudioClip(name string, source SourceBuffer, sourceSampleRate, sourceChannels int, sourcePath string) *AudioClip {
	return &AudioClip{
		ID:               uuid.New(),
		DisplayName:      name,
		Gain:             1.0,
		Source:           source,
		SourceSampleRate: sourceSampleRate,
		SourceChannels:   sourceChannels,
		SourcePath:       sourcePath,
	}
}

// SourceDuration returns the full duration of the underlying source buffer
// in seconds, or 0 if the source has no frames yet (still decoding).
func (c *AudioClip) SourceDuration() float64 {
	if c.Source == nil || c.SourceSampleRate == 0 {
		return 0
	}
	return float64(c.Source.BufferFrames()) / float64(c.SourceSampleRate)
}

// EffectiveTrimEnd returns TrimEnd if set, otherwise the full source
// duration — the "0 means use full source" rule from the data model.
func (c *AudioClip) EffectiveTrimEnd() float64 {
	if c.TrimEnd > 0 {
		return c.TrimEnd
	}
	return c.SourceDuration()
}

// TrimmedDuration returns max(0, effectiveTrimEnd - trimStart).
func (c *AudioClip) TrimmedDuration() float64 {
	d := c.EffectiveTrimEnd() - c.TrimStart
	if d < 0 {
		return 0
	}
	return d
}

// EndTime returns TimelineStart + TrimmedDuration, the other half of the
// trim math property.
func (c *AudioClip) EndTime() float64 {
	return c.TimelineStart + c.TrimmedDuration()
}

// Validate checks 0 <= trimStart < effectiveTrimEnd <= sourceDuration.
func (c *AudioClip) Validate() error {
	if c.TrimStart < 0 {
		return errors.New("clipmodel: trimStart must be >= 0")
	}
	eff := c.EffectiveTrimEnd()
	if !(c.TrimStart < eff) {
		return errors.New("clipmodel: trimStart must be < effectiveTrimEnd")
	}
	if dur := c.SourceDuration(); dur > 0 && eff > dur+1e-9 {
		return errors.New("clipmodel: effectiveTrimEnd exceeds sourceDuration")
	}
	return nil
}

// Duplicate returns a cheap copy of c sharing the same underlying source
// buffer, with a fresh identity and a zeroed reference count — ported from
// AudioClip::duplicate in the original engine.
func (c *AudioClip) Duplicate() *AudioClip {
	dup := *c
	dup.ID = uuid.New()
	dup.refCount = atomic.Int32{}
	return &dup
}

// SplitAt splits the clip at absolute timeline position t, returning two
// new clips sharing the same source buffer. t must fall strictly inside
// [TimelineStart, EndTime()); otherwise ErrInvalidSplit is returned and the
// original clip is unchanged — grounded on AudioClip::splitAt /
// PlaylistTrack::splitClipAt.
func (c *AudioClip) SplitAt(t float64) (left, right *AudioClip, err error) {
	if t <= c.TimelineStart || t >= c.EndTime() {
		return nil, nil, ErrInvalidSplit
	}
	offsetIntoClip := t - c.TimelineStart

	left = c.Duplicate()
	left.TrimEnd = c.TrimStart + offsetIntoClip

	right = c.Duplicate()
	right.TimelineStart = t
	right.TrimStart = c.TrimStart + offsetIntoClip
	right.TrimEnd = c.TrimEnd

	return left, right, nil
}

// Retain increments the clip's reference count, returning the new count.
// Lanes call this when they start sharing a clip.
func (c *AudioClip) Retain() int32 {
	return c.refCount.Add(1)
}

// Release decrements the clip's reference count, returning the new count.
// A lane drops its hold on a clip by calling Release; when the count
// reaches zero the clip has no remaining owners (Go's GC reclaims it once
// nothing else references it — this counter exists only to mirror the
// "destroyed when the last owner releases" lifecycle language for
// bookkeeping/tests, not to manage memory directly).
func (c *AudioClip) Release() int32 {
	return c.refCount.Add(-1)
}

// RefCount returns the current reference count.
func (c *AudioClip) RefCount() int32 {
	return c.refCount.Load()
}
