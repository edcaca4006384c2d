package framering

import (
	"errors"
	"sync"
	"testing"
)

func TestNewRoundsCapacityUpToPowerOfTwo(t *testing.T) {
	r := New(100, 2)
	if r.Capacity() != 128 {
		t.Fatalf("capacity = %d, want 128", r.Capacity())
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	r := New(16, 2)
	src := []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3}

	n, err := r.Write(src, 3)
	if err != nil || n != 3 {
		t.Fatalf("Write() = %d, %v, want 3, nil", n, err)
	}

	dst := make([]float32, 6)
	n, err = r.Read(dst, 3)
	if err != nil || n != 3 {
		t.Fatalf("Read() = %d, %v, want 3, nil", n, err)
	}
	for i, v := range src {
		if dst[i] != v {
			t.Errorf("dst[%d] = %f, want %f", i, dst[i], v)
		}
	}
}

func TestWriteInsufficientSpaceIsAllOrNothing(t *testing.T) {
	r := New(4, 1)
	if _, err := r.Write([]float32{1, 2, 3, 4, 5}, 5); !errors.Is(err, ErrInsufficientSpace) {
		t.Fatalf("want ErrInsufficientSpace, got %v", err)
	}
	if r.AvailableRead() != 0 {
		t.Fatalf("partial write leaked %d frames", r.AvailableRead())
	}
}

func TestReadShortIsNotAnError(t *testing.T) {
	r := New(8, 1)
	r.Write([]float32{1, 2}, 2)

	dst := make([]float32, 5)
	n, err := r.Read(dst, 5)
	if err != nil {
		t.Fatalf("short read returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
}

func TestReadOrSilenceFillsShortfall(t *testing.T) {
	r := New(8, 2)
	r.Write([]float32{0.5, 0.5}, 1)

	dst := make([]float32, 8)
	for i := range dst {
		dst[i] = 9
	}
	n := r.ReadOrSilence(dst, 4)
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
	if dst[0] != 0.5 || dst[1] != 0.5 {
		t.Fatalf("first frame corrupted: %v", dst[:2])
	}
	for i := 2; i < 8; i++ {
		if dst[i] != 0 {
			t.Errorf("dst[%d] = %f, want silence", i, dst[i])
		}
	}
}

func TestConcurrentProducerConsumerPreservesOrder(t *testing.T) {
	const totalFrames = 20000
	r := New(256, 1)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		chunk := make([]float32, 64)
		written := 0
		for written < totalFrames {
			n := min(64, totalFrames-written)
			for i := 0; i < n; i++ {
				chunk[i] = float32(written + i)
			}
			for {
				wrote, err := r.Write(chunk[:n], n)
				if err == nil {
					written += wrote
					break
				}
			}
		}
	}()

	go func() {
		defer wg.Done()
		dst := make([]float32, 64)
		read := 0
		for read < totalFrames {
			n, err := r.Read(dst, 64)
			if err != nil {
				continue
			}
			for i := 0; i < n; i++ {
				want := float32(read + i)
				if dst[i] != want {
					t.Errorf("frame %d = %f, want %f", read+i, dst[i], want)
				}
			}
			read += n
		}
	}()

	wg.Wait()
}
