package filedevice

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	wav "github.com/youpy/go-wav"

	"github.com/nomadaudio/engine/pkg/device"
)

func sineCallback(freq, sampleRate float64) device.Callback {
	return func(output, input []float32, numFrames int, streamTime float64) int {
		for i := 0; i < numFrames; i++ {
			t := streamTime + float64(i)/sampleRate
			s := float32(0.5 * math.Sin(2*math.Pi*freq*t))
			output[i*2] = s
			output[i*2+1] = s
		}
		return 0
	}
}

func TestOpenWritesWAVWithNegotiatedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	stats := &device.Stats{}
	mgr := New(path, 250*time.Millisecond, stats)

	format := device.Format{SampleRate: 48000, BufferFrames: 512}
	if err := mgr.Open(format, sineCallback(440, 48000)); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if stats.SampleRate.Load() != 48000 {
		t.Errorf("stats.SampleRate = %d, want 48000", stats.SampleRate.Load())
	}
	if stats.BufferFrames.Load() != 512 {
		t.Errorf("stats.BufferFrames = %d, want 512", stats.BufferFrames.Load())
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	reader := wav.NewReader(f)
	format2, err := reader.Format()
	if err != nil {
		t.Fatalf("read format: %v", err)
	}
	if format2.NumChannels != 2 {
		t.Errorf("NumChannels = %d, want 2", format2.NumChannels)
	}
	if format2.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", format2.SampleRate)
	}
}

func TestCallbackNonzeroReturnStopsStreamEarly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	mgr := New(path, time.Second, nil)

	blocks := 0
	cb := func(output, input []float32, numFrames int, streamTime float64) int {
		blocks++
		if blocks >= 2 {
			return 1
		}
		return 0
	}

	if err := mgr.Open(device.Format{SampleRate: 48000, BufferFrames: 4800}, cb); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if blocks != 2 {
		t.Errorf("blocks = %d, want exactly 2 (stream should stop after nonzero return)", blocks)
	}
}

func TestCloseStopsAnInFlightStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	mgr := New(path, 10*time.Second, nil)

	done := make(chan error, 1)
	go func() {
		done <- mgr.Open(device.Format{SampleRate: 48000, BufferFrames: 512}, sineCallback(220, 48000))
	}()

	time.Sleep(20 * time.Millisecond)
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Open returned error after Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Open did not return after Close")
	}
}
