// Package filedevice is a software-only device.Manager backend: it drives a
// device.Callback on a wall-clock ticker and writes every produced block to
// a WAV file instead of a sound card. It exists so cmd/nomadaudio's play
// path can exercise the real device.Manager contract (and so
// someone without an audio interface attached can still "play" a project)
// without pulling a CGo-backed PortAudio/malgo binding into the core
// engine, which stays a contract-only interface.
package filedevice

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	wav "github.com/youpy/go-wav"

	"github.com/nomadaudio/engine/pkg/device"
	"github.com/nomadaudio/engine/pkg/ringbuffer"
)

// flushFraction is the portion of the staging ring's capacity that must be
// filled before stream() batches a write to disk, so a tick's worth of PCM
// doesn't turn into a tick's worth of syscalls.
const flushFraction = 0.5

// Manager streams a device.Callback's output to path for a fixed duration,
// pacing callbacks with a wall-clock ticker rather than a tight loop. It
// implements device.Reopener, but it never reports underruns, so
// Stats.Underruns stays zero.
type Manager struct {
	path     string
	duration time.Duration

	mu     sync.Mutex
	format device.Format
	cb     device.Callback
	stopCh chan struct{}
	stats  *device.Stats
}

// New constructs a Manager that writes to path for duration of simulated
// playback. stats, if non-nil, is updated with the negotiated format on
// every Open/Reopen.
func New(path string, duration time.Duration, stats *device.Stats) *Manager {
	return &Manager{path: path, duration: duration, stats: stats}
}

// Open starts streaming cb's output to the backing file at format. Open
// blocks until the configured duration elapses, cb returns nonzero, or
// Close is called, mirroring a real backend's synchronous stream-open call
// in this CLI's single-goroutine usage.
func (m *Manager) Open(format device.Format, cb device.Callback) error {
	m.mu.Lock()
	m.format = format
	m.cb = cb
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	if m.stats != nil {
		m.stats.SampleRate.Store(int64(format.SampleRate))
		m.stats.BufferFrames.Store(int64(format.BufferFrames))
	}

	return m.stream()
}

// Reopen closes any active stream and opens a new one at format, satisfying
// device.Reopener for AutoScaler's buffer-growth path.
func (m *Manager) Reopen(format device.Format, cb device.Callback) error {
	_ = m.Close()
	return m.Open(format, cb)
}

// Close stops the active stream, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	stopCh := m.stopCh
	m.mu.Unlock()
	if stopCh != nil {
		select {
		case <-stopCh:
		default:
			close(stopCh)
		}
	}
	return nil
}

// CurrentFormat reports the most recently negotiated format.
func (m *Manager) CurrentFormat() device.Format {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.format
}

func (m *Manager) stream() error {
	m.mu.Lock()
	format := m.format
	cb := m.cb
	stopCh := m.stopCh
	m.mu.Unlock()

	if format.SampleRate <= 0 || format.BufferFrames <= 0 {
		return fmt.Errorf("filedevice: invalid format %+v", format)
	}

	f, err := os.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("filedevice: open output: %w", err)
	}
	defer f.Close()

	// The header declares the configured duration's frame count up front,
	// since go-wav writes it on the first Write call: a stream stopped early
	// by Close or a nonzero callback return (an abort path, not the bounce
	// path offlineharness uses) leaves the header overstating length.
	totalFrames := int(m.duration.Seconds() * float64(format.SampleRate))
	writer := wav.NewWriter(f, uint32(totalFrames), 2, uint32(format.SampleRate), 16)

	// Stage produced PCM in a byte ring sized for roughly one second of
	// stereo 16-bit audio, so disk writes happen in batches instead of one
	// syscall per ticker block: the ring decouples the callback's pacing
	// from drainRing's write cadence the same way it decouples a decode
	// producer from an RT consumer elsewhere in this engine.
	ringBytes := uint64(format.SampleRate) * 2 * 2
	if ringBytes < uint64(format.BufferFrames)*2*2*4 {
		ringBytes = uint64(format.BufferFrames) * 2 * 2 * 4
	}
	rb := ringbuffer.New(ringBytes)
	flushThreshold := uint64(float64(rb.Size()) * flushFraction)

	output := make([]float32, format.BufferFrames*2)
	block := make([]byte, 0, format.BufferFrames*2*2)
	blockDuration := time.Duration(float64(format.BufferFrames) / float64(format.SampleRate) * float64(time.Second))
	ticker := time.NewTicker(blockDuration)
	defer ticker.Stop()

	var streamTime float64
	framesWritten := 0
	for framesWritten < totalFrames {
		select {
		case <-stopCh:
			return drainRing(writer, rb)
		case <-ticker.C:
		}

		n := format.BufferFrames
		if framesWritten+n > totalFrames {
			n = totalFrames - framesWritten
		}
		clear(output)
		if ret := cb(output[:n*2], nil, n, streamTime); ret != 0 {
			return drainRing(writer, rb)
		}
		streamTime += float64(n) / float64(format.SampleRate)
		framesWritten += n

		block = appendClampedPCM(block[:0], output[:n*2])
		stageBlock(rb, block)

		if rb.AvailableRead() >= flushThreshold {
			if err := drainRing(writer, rb); err != nil {
				return fmt.Errorf("filedevice: flush staged PCM: %w", err)
			}
		}
	}

	return drainRing(writer, rb)
}

// stageBlock writes block into rb, retrying while yielding if the ring is
// temporarily full (a slow disk falling behind the ticker), rather than
// dropping audio.
func stageBlock(rb *ringbuffer.RingBuffer, block []byte) {
	for len(block) > 0 {
		n, err := rb.Write(block)
		if err != nil {
			runtime.Gosched()
			continue
		}
		block = block[n:]
	}
}

// drainRing writes every byte currently staged in rb to writer, using the
// ring's zero-copy slice view so the flush never allocates.
func drainRing(writer *wav.Writer, rb *ringbuffer.RingBuffer) error {
	for rb.AvailableRead() > 0 {
		first, second, total := rb.ReadSlices()
		if total == 0 {
			break
		}
		if len(first) > 0 {
			if _, err := writer.Write(first); err != nil {
				return err
			}
		}
		if len(second) > 0 {
			if _, err := writer.Write(second); err != nil {
				return err
			}
		}
		if err := rb.Consume(total); err != nil {
			return err
		}
	}
	return nil
}

func appendClampedPCM(pcm []byte, interleaved []float32) []byte {
	for _, s := range interleaved {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		sample := int16(v * 32767)
		pcm = append(pcm, byte(sample), byte(sample>>8))
	}
	return pcm
}
