package engine

import (
	"math"
	"testing"

	"github.com/nomadaudio/engine/pkg/clipmodel"
	"github.com/nomadaudio/engine/pkg/rendergraph"
)

func sineBuffer(freq float64, rate, frames, channels int) *clipmodel.OwnedBuffer {
	data := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(rate)))
		for c := 0; c < channels; c++ {
			data[i*channels+c] = v
		}
	}
	return clipmodel.NewOwnedBuffer(data, channels, rate)
}

func singleTrackGraph(t *testing.T, frames int) *rendergraph.AudioGraph {
	t.Helper()
	src := sineBuffer(440, 48000, frames, 2)
	return &rendergraph.AudioGraph{
		Tracks: []rendergraph.TrackRenderState{
			{
				TrackID:    1,
				TrackIndex: 0,
				Volume:     1.0,
				Pan:        0.0,
				Clips: []rendergraph.ClipRenderState{
					{
						AudioData:        src.BufferData(),
						TotalFrames:      frames,
						SourceSampleRate: 48000,
						SourceChannels:   2,
						StartSample:      0,
						EndSample:        uint64(frames),
						SampleOffset:     0,
						Gain:             1.0,
						Pan:              0.0,
					},
				},
			},
		},
		TimelineEndSample: uint64(frames),
	}
}

func TestProcessBlockIsDeterministicAcrossRuns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 48000
	cfg.MaxBufferFrames = 512

	graph := singleTrackGraph(t, 2000)

	run := func() []float32 {
		e := New(cfg)
		e.EngineState().SwapGraph(graph)
		e.SetTransportPlaying(true)
		out := make([]float32, 512*2)
		// Drain the transport command and one block to get past fade-in.
		e.ProcessBlock(out, nil, 512, 0)
		out2 := make([]float32, 512*2)
		e.ProcessBlock(out2, nil, 512, 0)
		return out2
	}

	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %f vs %f (not bit-identical)", i, a[i], b[i])
		}
	}
}

func TestProcessBlockSilentWithoutGraph(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBufferFrames = 256
	e := New(cfg)
	e.SetTransportPlaying(true)

	out := make([]float32, 256*2)
	e.ProcessBlock(out, nil, 256, 0)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %f, want 0 with no published graph", i, v)
		}
	}
}

func TestMuteSilencesTrack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBufferFrames = 512
	cfg.SmoothingCoeff = 1.0 // snap instantly for test determinism
	e := New(cfg)
	graph := singleTrackGraph(t, 2000)
	e.EngineState().SwapGraph(graph)
	e.SetTransportPlaying(true)

	out := make([]float32, 512*2)
	e.ProcessBlock(out, nil, 512, 0) // drain transport command, seed track state

	e.ensureTrackState(0, &graph.Tracks[0])
	e.trackState[0].mute = true

	e.ProcessBlock(out, nil, 512, 0)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %f, want 0 with track muted", i, v)
		}
	}
}

func TestSoloedTrackStaysAudible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBufferFrames = 256
	e := New(cfg)

	frames := 2000
	srcA := sineBuffer(220, 48000, frames, 2)
	srcB := sineBuffer(880, 48000, frames, 2)
	graph := &rendergraph.AudioGraph{
		Tracks: []rendergraph.TrackRenderState{
			{TrackIndex: 0, Volume: 1, Clips: []rendergraph.ClipRenderState{{
				AudioData: srcA.BufferData(), TotalFrames: frames, SourceSampleRate: 48000,
				SourceChannels: 2, StartSample: 0, EndSample: uint64(frames), Gain: 1,
			}}},
			{TrackIndex: 1, Volume: 1, Clips: []rendergraph.ClipRenderState{{
				AudioData: srcB.BufferData(), TotalFrames: frames, SourceSampleRate: 48000,
				SourceChannels: 2, StartSample: 0, EndSample: uint64(frames), Gain: 1,
			}}},
		},
		TimelineEndSample: uint64(frames),
	}
	e.EngineState().SwapGraph(graph)
	e.SetTransportPlaying(true)
	e.ensureTrackState(1, &graph.Tracks[1])
	e.trackState[1].solo = true
	e.trackState[1].seeded = true

	out := make([]float32, 256*2)
	e.ProcessBlock(out, nil, 256, 0)
	e.ProcessBlock(out, nil, 256, 0)

	allZero := true
	for _, v := range out {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatal("soloed track produced silent output")
	}
}

func TestEdgeFadeGainRampsAtClipBoundaries(t *testing.T) {
	if g := edgeFadeGain(0, 1000, 128); g >= 1.0 {
		t.Errorf("first frame gain = %f, want < 1", g)
	}
	if g := edgeFadeGain(127, 1000, 128); math.Abs(g-1.0) > 1e-9 {
		t.Errorf("gain at fade boundary = %f, want 1.0", g)
	}
	if g := edgeFadeGain(500, 1000, 128); g != 1.0 {
		t.Errorf("mid-clip gain = %f, want 1.0", g)
	}
	if g := edgeFadeGain(999, 1000, 128); g >= 1.0 {
		t.Errorf("last frame gain = %f, want < 1", g)
	}
}

func TestTransportFadeInRampsFromZero(t *testing.T) {
	f := newTransportFade(4, 4)
	f.onTransportChange(true)
	var gains []float64
	for i := 0; i < 4; i++ {
		gains = append(gains, f.nextGain())
	}
	if gains[0] >= gains[3] {
		t.Errorf("fade-in should ramp upward: %v", gains)
	}
	if math.Abs(gains[3]-1.0) > 1e-9 {
		t.Errorf("fade-in should reach 1.0 by the end: %v", gains)
	}
	if g := f.nextGain(); g != 1.0 {
		t.Errorf("gain after fade-in completes = %f, want 1.0", g)
	}
}

func TestTransportFadeOutEndsSilent(t *testing.T) {
	f := newTransportFade(4, 4)
	f.onTransportChange(false)
	var last float64
	for i := 0; i < 4; i++ {
		last = f.nextGain()
	}
	if last != 0 {
		t.Errorf("fade-out should end at 0: got %f", last)
	}
	if g := f.nextGain(); g != 0 {
		t.Errorf("gain after fade-out should stay silent: got %f", g)
	}
}
