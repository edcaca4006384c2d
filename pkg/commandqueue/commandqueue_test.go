package commandqueue

import (
	"sync"
	"testing"
)

func TestPushDrainFIFOOrder(t *testing.T) {
	q := New(16)
	for i := 0; i < 5; i++ {
		if !q.Push(Command{Type: SetTrackVolume, TrackIndex: i, Value1: float64(i)}) {
			t.Fatalf("Push(%d) dropped unexpectedly", i)
		}
	}

	var got []int
	q.Drain(func(c Command) {
		got = append(got, c.TrackIndex)
	})

	for i, v := range got {
		if v != i {
			t.Errorf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestPushDropsWhenFullAndCountsDrops(t *testing.T) {
	q := New(4)
	for i := 0; i < 4; i++ {
		if !q.Push(Command{TrackIndex: i}) {
			t.Fatalf("Push(%d) should have succeeded", i)
		}
	}
	if q.Push(Command{TrackIndex: 99}) {
		t.Fatal("Push on full queue should fail")
	}
	if q.DroppedCount() != 1 {
		t.Errorf("DroppedCount() = %d, want 1", q.DroppedCount())
	}
}

func TestDrainIsIdempotentWhenEmpty(t *testing.T) {
	q := New(4)
	n := q.Drain(func(Command) { t.Fatal("should not be called") })
	if n != 0 {
		t.Errorf("Drain() on empty queue returned %d, want 0", n)
	}
}

func TestLastWriteWinsAtBlockBoundary(t *testing.T) {
	q := New(16)
	q.Push(Command{Type: SetTrackVolume, TrackIndex: 0, Value1: 0.0})
	q.Push(Command{Type: SetTrackVolume, TrackIndex: 0, Value1: 1.0})

	var lastValue float64
	q.Drain(func(c Command) {
		if c.Type == SetTrackVolume && c.TrackIndex == 0 {
			lastValue = c.Value1
		}
	})

	if lastValue != 1.0 {
		t.Errorf("lastValue = %f, want 1.0 (last write wins)", lastValue)
	}
}

func TestConcurrentProducersSerializeThroughMutex(t *testing.T) {
	q := New(1 << 16)
	const perProducer = 2000
	const producers = 8

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(Command{Type: SetTrackVolume, TrackIndex: id, Value1: float64(i)})
			}
		}(p)
	}
	wg.Wait()

	count := 0
	q.Drain(func(Command) { count++ })
	if count != producers*perProducer {
		t.Errorf("drained %d commands, want %d", count, producers*perProducer)
	}
}
