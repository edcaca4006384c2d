// Package framering implements the frame-addressed single-producer
// single-consumer ring buffer used to hand decoded float32 audio from a
// decode-ahead worker to the real-time callback. It generalizes the
// teacher's byte-oriented pkg/ringbuffer to whole interleaved frames, since
// the RT reader must never reason about a frame split across a byte
// boundary mid-channel.
package framering

import (
	"sync/atomic"

	"github.com/nomadaudio/engine/pkg/types"
)

// Re-export the shared sentinel errors so callers can use errors.Is against
// either this package or pkg/ringbuffer without importing both.
var (
	ErrInsufficientSpace = types.ErrInsufficientSpace
	ErrInsufficientData  = types.ErrInsufficientData
)

// Ring is a lock-free SPSC ring buffer of interleaved float32 audio frames.
//
//   - Write must only be called by the producer (decode worker).
//   - Read, ReadOrSilence, and AvailableRead must only be called by the consumer (RT callback).
//
// There is no peek: every read consumes what it copies. Short reads are
// normal; callers treat them as partial success (a read that finds no data
// at all returns ErrInsufficientData). Write is all-or-nothing: a block that
// does not fit whole is not written and ErrInsufficientSpace is returned.
type Ring struct {
	buffer   []float32 // capacityFrames * channels
	channels int
	capacity uint64 // frames, power of 2
	mask     uint64
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

// New creates a ring able to hold capacityFrames frames of channels each.
// capacityFrames is rounded up to the next power of 2.
func New(capacityFrames uint64, channels int) *Ring {
	capacityFrames = nextPowerOf2(capacityFrames)
	return &Ring{
		buffer:   make([]float32, capacityFrames*uint64(channels)),
		channels: channels,
		capacity: capacityFrames,
		mask:     capacityFrames - 1,
	}
}

// Channels returns the interleaved channel count frames are stored with.
func (r *Ring) Channels() int {
	return r.channels
}

// Capacity returns the ring's frame capacity.
func (r *Ring) Capacity() uint64 {
	return r.capacity
}

// AvailableWrite returns the number of frames free for writing.
func (r *Ring) AvailableWrite() uint64 {
	return r.capacity - (r.writePos.Load() - r.readPos.Load())
}

// AvailableRead returns the number of frames available for reading.
func (r *Ring) AvailableRead() uint64 {
	return r.writePos.Load() - r.readPos.Load()
}

// Write copies frames worth of interleaved samples from src (len(src) must
// be >= frames*channels) into the ring. It writes all frames or none: if
// there is insufficient space it writes nothing and returns
// ErrInsufficientSpace, mirroring pkg/ringbuffer's all-or-nothing Write.
func (r *Ring) Write(src []float32, frames int) (int, error) {
	if frames <= 0 {
		return 0, nil
	}
	n := uint64(frames)
	if n > r.AvailableWrite() {
		return 0, ErrInsufficientSpace
	}

	writePos := r.writePos.Load()
	start := (writePos & r.mask) * uint64(r.channels)
	count := n * uint64(r.channels)
	end := start + count

	if end <= uint64(len(r.buffer)) {
		copy(r.buffer[start:end], src[:count])
	} else {
		firstLen := uint64(len(r.buffer)) - start
		copy(r.buffer[start:], src[:firstLen])
		copy(r.buffer[:count-firstLen], src[firstLen:count])
	}

	r.writePos.Store(writePos + n)
	return frames, nil
}

// Read copies up to frames frames from the ring into dst (which must have
// room for frames*channels samples). If fewer frames are available it reads
// what it can and returns that count with no error, the "short read is
// normal" contract; a call with zero frames available returns
// ErrInsufficientData.
func (r *Ring) Read(dst []float32, frames int) (int, error) {
	if frames <= 0 {
		return 0, nil
	}
	available := r.AvailableRead()
	if available == 0 {
		return 0, ErrInsufficientData
	}

	n := uint64(frames)
	if n > available {
		n = available
	}

	readPos := r.readPos.Load()
	start := (readPos & r.mask) * uint64(r.channels)
	count := n * uint64(r.channels)
	end := start + count

	if end <= uint64(len(r.buffer)) {
		copy(dst[:count], r.buffer[start:end])
	} else {
		firstLen := uint64(len(r.buffer)) - start
		copy(dst[:firstLen], r.buffer[start:])
		copy(dst[firstLen:count], r.buffer[:count-firstLen])
	}

	r.readPos.Store(readPos + n)
	return int(n), nil
}

// ReadOrSilence reads up to frames frames, filling any shortfall with
// digital silence. This is the RT-safe entry point used directly by the
// callback: it never returns an error, matching the streaming contract that
// missing frames become silence rather than a stall.
func (r *Ring) ReadOrSilence(dst []float32, frames int) int {
	n, err := r.Read(dst, frames)
	if err != nil {
		n = 0
	}
	count := n * r.channels
	total := frames * r.channels
	for i := count; i < total && i < len(dst); i++ {
		dst[i] = 0
	}
	return n
}

// Clear resets read and write positions to zero. Not safe to call
// concurrently with Read or Write.
func (r *Ring) Clear() {
	r.readPos.Store(0)
	r.writePos.Store(0)
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
