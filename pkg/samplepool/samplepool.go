// Package samplepool implements the content-addressed, weak-reference LRU
// cache of decoded audio buffers shared across clips. It is grounded on
// NomadAudio's SamplePool.cpp: the double-checked-locking acquire pattern,
// the path+mtime cache key, and LRU-tick eviction under a byte budget all
// carry over, rewritten around Go's weak.Pointer (the stdlib's closest
// analogue to std::weak_ptr) instead of hand-rolled reference counting.
package samplepool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	gocache "github.com/patrickmn/go-cache"
)

// SampleKey identifies a decoded buffer by absolute path and modification
// time; a changed mtime forces cache invalidation on the next Acquire.
type SampleKey struct {
	Path    string
	ModTime int64
}

// AudioBuffer holds interleaved float32 samples in [-1, 1] along with the
// bookkeeping the pool needs for eviction. Consumers that hold a strong
// reference keep the buffer alive even after the pool's own weak entry is
// collected or evicted.
type AudioBuffer struct {
	Data       []float32
	Channels   int
	SampleRate int
	NumFrames  int
	SourcePath string

	ready          atomic.Bool
	lastAccessTick atomic.Uint64
}

// Ready reports whether the buffer has finished loading.
func (b *AudioBuffer) Ready() bool {
	return b.ready.Load()
}

// The BufferXxx accessors below let *AudioBuffer satisfy clipmodel's
// SourceBuffer interface without colliding with the struct's own field
// names (Channels, SampleRate, NumFrames).

// BufferData returns the interleaved float32 sample data.
func (b *AudioBuffer) BufferData() []float32 { return b.Data }

// BufferChannels returns the channel count.
func (b *AudioBuffer) BufferChannels() int { return b.Channels }

// BufferSampleRate returns the source sample rate in Hz.
func (b *AudioBuffer) BufferSampleRate() int { return b.SampleRate }

// BufferFrames returns the frame count.
func (b *AudioBuffer) BufferFrames() int { return b.NumFrames }

// BufferReady reports whether the buffer has finished loading.
func (b *AudioBuffer) BufferReady() bool { return b.Ready() }

func (b *AudioBuffer) bytes() int64 {
	return int64(len(b.Data)) * 4
}

// Loader fills in buf's Data/Channels/SampleRate for a cache miss. It is
// invoked outside any pool lock, so it may block on file I/O.
type Loader func(buf *AudioBuffer) error

// Pool is the process-wide (or test-scoped) sample cache. The zero value is
// not usable; construct with New.
type Pool struct {
	mu            sync.Mutex
	samples       map[SampleKey]weak.Pointer[AudioBuffer]
	accessCounter atomic.Uint64
	memoryBudget  atomic.Int64
	memoryCurrent atomic.Int64

	// pathIndex accelerates TryGetCached's path-only lookup by mapping a
	// normalized path straight to the most recent SampleKey inserted for
	// it, so the common "is this already cached" check skips the full map
	// scan the original tryGetCached performs. A stale or missing entry
	// just falls back to the scan; it is never load-bearing for
	// correctness.
	pathIndex *gocache.Cache
}

// New constructs an empty pool with no memory budget (unlimited).
func New() *Pool {
	return &Pool{
		samples:   make(map[SampleKey]weak.Pointer[AudioBuffer]),
		pathIndex: gocache.New(30*time.Second, time.Minute),
	}
}

// MakeKey resolves path to an absolute form and stats it for a modification
// time. On a stat failure it falls back to the raw path with ModTime 0,
// mirroring the original's catch-all fallback rather than failing the
// acquire outright.
func MakeKey(path string) SampleKey {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		return SampleKey{Path: abs, ModTime: 0}
	}
	return SampleKey{Path: abs, ModTime: info.ModTime().UnixNano()}
}

// MakeKeyFast resolves path to an absolute form without stat'ing it, for UI
// callers that only need "is this the same file", not "is this the same
// version of the file".
func MakeKeyFast(path string) SampleKey {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return SampleKey{Path: abs, ModTime: 0}
}

// Acquire returns the cached buffer for path, loading it via loader on a
// miss. On a cache hit the buffer's LRU tick is refreshed. loader runs
// outside the pool's lock; a concurrent Acquire for the same key may also
// run its own loader, but only one result is ever cached and returned to
// later callers once a winner is recorded (the same race the original
// SamplePool::acquire resolves by re-checking under lock before inserting).
func (p *Pool) Acquire(path string, loader Loader) (*AudioBuffer, error) {
	key := MakeKey(path)

	if buf := p.lookup(key); buf != nil {
		return buf, nil
	}

	if loader == nil {
		return nil, fmt.Errorf("samplepool: no loader provided for missing sample %s", path)
	}

	buf := &AudioBuffer{SourcePath: path}
	if err := loader(buf); err != nil {
		return nil, fmt.Errorf("samplepool: loader failed for %s: %w", path, err)
	}
	if buf.Channels > 0 {
		buf.NumFrames = len(buf.Data) / buf.Channels
	}
	buf.ready.Store(true)
	buf.lastAccessTick.Store(p.accessCounter.Add(1))

	p.mu.Lock()
	defer p.mu.Unlock()

	if wp, ok := p.samples[key]; ok {
		if existing := wp.Value(); existing != nil {
			return existing, nil // another goroutine's load already won
		}
	}

	p.samples[key] = weak.Make(buf)
	p.pathIndex.Set(key.Path, key, gocache.DefaultExpiration)
	p.updateMemoryUsageLocked()
	p.gcLocked()

	return buf, nil
}

// lookup acquires the pool's lock itself; callers must not already hold it.
func (p *Pool) lookup(key SampleKey) *AudioBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	wp, ok := p.samples[key]
	if !ok {
		return nil
	}
	buf := wp.Value()
	if buf == nil {
		delete(p.samples, key)
		return nil
	}
	buf.lastAccessTick.Store(p.accessCounter.Add(1))
	return buf
}

// TryGetCached performs a path-only lookup (ignoring modification time),
// for UI-thread "is this already cached" checks such as drag-and-drop
// preview, where instant feedback matters more than mtime precision.
func (p *Pool) TryGetCached(path string) *AudioBuffer {
	fastKey := MakeKeyFast(path)

	if v, ok := p.pathIndex.Get(fastKey.Path); ok {
		if key, ok := v.(SampleKey); ok {
			if buf := p.lookupExact(key); buf != nil && buf.Ready() {
				return buf
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for k, wp := range p.samples {
		if k.Path != fastKey.Path {
			continue
		}
		if buf := wp.Value(); buf != nil && buf.Ready() {
			buf.lastAccessTick.Store(p.accessCounter.Add(1))
			return buf
		}
	}
	return nil
}

// lookupExact acquires the pool's lock itself; callers must not already hold it.
func (p *Pool) lookupExact(key SampleKey) *AudioBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	wp, ok := p.samples[key]
	if !ok {
		return nil
	}
	return wp.Value()
}

// SetBudget sets the memory budget in bytes; zero means unlimited. Setting
// a budget immediately runs a GC pass.
func (p *Pool) SetBudget(bytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memoryBudget.Store(bytes)
	p.gcLocked()
}

// Usage returns the current estimated live-buffer byte total.
func (p *Pool) Usage() int64 {
	return p.memoryCurrent.Load()
}

// GC removes expired weak entries and, if a budget is set and exceeded,
// evicts strong-held buffers in ascending LRU-tick order until usage is at
// or below budget. Eviction only drops the pool's own reference; a buffer
// still held by a consumer elsewhere stays live.
func (p *Pool) GC() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gcLocked()
}

func (p *Pool) gcLocked() {
	for k, wp := range p.samples {
		if wp.Value() == nil {
			delete(p.samples, k)
		}
	}

	budget := p.memoryBudget.Load()
	if budget == 0 {
		p.updateMemoryUsageLocked()
		return
	}

	type liveEntry struct {
		key  SampleKey
		tick uint64
		size int64
	}
	live := make([]liveEntry, 0, len(p.samples))
	var total int64
	for k, wp := range p.samples {
		buf := wp.Value()
		if buf == nil {
			continue
		}
		sz := buf.bytes()
		live = append(live, liveEntry{k, buf.lastAccessTick.Load(), sz})
		total += sz
	}
	p.memoryCurrent.Store(total)

	if p.memoryCurrent.Load() <= budget {
		return
	}

	sort.Slice(live, func(i, j int) bool { return live[i].tick < live[j].tick })

	for _, e := range live {
		if p.memoryCurrent.Load() <= budget {
			break
		}
		if _, ok := p.samples[e.key]; ok {
			delete(p.samples, e.key)
			p.memoryCurrent.Add(-e.size)
		}
	}
}

func (p *Pool) updateMemoryUsageLocked() {
	var total int64
	for _, wp := range p.samples {
		if buf := wp.Value(); buf != nil {
			total += buf.bytes()
		}
	}
	p.memoryCurrent.Store(total)
}
