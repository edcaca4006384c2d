package samplepool

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func countingLoader(calls *int) Loader {
	return func(buf *AudioBuffer) error {
		*calls++
		buf.Channels = 1
		buf.SampleRate = 48000
		buf.Data = make([]float32, 1024)
		return nil
	}
}

func TestAcquireDedupsUnchangedMtime(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.wav", 16)

	pool := New()
	calls := 0
	loader := countingLoader(&calls)

	first, err := pool.Acquire(path, loader)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	second, err := pool.Acquire(path, loader)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if first != second {
		t.Fatalf("expected same buffer pointer on repeated acquire")
	}
	if calls != 1 {
		t.Fatalf("loader called %d times, want 1", calls)
	}
}

func TestAcquireReloadsAfterMtimeChange(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.wav", 16)

	pool := New()
	calls := 0
	loader := countingLoader(&calls)

	first, err := pool.Acquire(path, loader)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	second, err := pool.Acquire(path, loader)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if first == second {
		t.Fatalf("expected a new buffer after mtime change")
	}
	if calls != 2 {
		t.Fatalf("loader called %d times, want 2", calls)
	}
}

func TestAcquireReturnsEmptyOnLoaderFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "bad.wav", 16)

	pool := New()
	_, err := pool.Acquire(path, func(buf *AudioBuffer) error {
		return os.ErrInvalid
	})
	if err == nil {
		t.Fatalf("expected error from failing loader")
	}
	if pool.Usage() != 0 {
		t.Fatalf("usage = %d, want 0 after failed load", pool.Usage())
	}
}

func TestBudgetEvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	pool := New()

	const bufBytes = 2 * 1024 * 1024 // 2MB per buffer, matching scenario F
	loader := func(buf *AudioBuffer) error {
		buf.Channels = 1
		buf.SampleRate = 48000
		buf.Data = make([]float32, bufBytes/4)
		return nil
	}

	var held []*AudioBuffer
	paths := make([]string, 6)
	for i := 0; i < 6; i++ {
		paths[i] = writeTempFile(t, dir, filepath_Base(i), 16)
		buf, err := pool.Acquire(paths[i], loader)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		held = append(held, buf)
	}

	pool.SetBudget(10 * 1024 * 1024) // 10MB

	// Check only the 3 most recently used buffers from here on (the reslice
	// leaves the others reachable through the backing array); eviction
	// itself only needs to drop the pool's own map entry (per the budget
	// contract), independent of whether anything else still holds them.
	held = held[3:]

	pool.GC()

	if pool.Usage() > 10*1024*1024 {
		t.Fatalf("usage = %d bytes, want <= 10MB", pool.Usage())
	}

	for i, buf := range held {
		got, err := pool.Acquire(paths[3+i], nil)
		if err != nil {
			t.Fatalf("Acquire of retained buffer should not need a loader: %v", err)
		}
		if got != buf {
			t.Fatalf("retained buffer %d was evicted or reloaded unexpectedly", i)
		}
	}
}

func filepath_Base(i int) string {
	return "sample" + string(rune('a'+i)) + ".wav"
}
