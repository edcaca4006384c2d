package rendergraph

import (
	"testing"

	"github.com/nomadaudio/engine/pkg/clipmodel"
)

func buffer(frames, channels, rate int) *clipmodel.OwnedBuffer {
	return clipmodel.NewOwnedBuffer(make([]float32, frames*channels), channels, rate)
}

func TestBuildSkipsNotReadyClips(t *testing.T) {
	lane := clipmodel.NewLane("a", 1, 0)
	clip := clipmodel.NewAudioClip("c", nil, 48000, 1, "") // nil source: never ready
	lane.AddClip(clip)

	graph := Builder{}.Build([]*clipmodel.Lane{lane}, 48000)
	if len(graph.Tracks[0].Clips) != 0 {
		t.Fatalf("expected not-ready clip to be skipped, got %d clips", len(graph.Tracks[0].Clips))
	}
}

func TestBuildDerivesSampleBoundaries(t *testing.T) {
	buf := buffer(48000, 1, 48000) // 1 second source at 48kHz
	clip := clipmodel.NewAudioClip("c", buf, 48000, 1, "")
	clip.TimelineStart = 1.0
	clip.TrimStart = 0.25
	clip.TrimEnd = 0.75 // trimmedDuration = 0.5s

	lane := clipmodel.NewLane("a", 1, 0)
	lane.AddClip(clip)

	graph := Builder{}.Build([]*clipmodel.Lane{lane}, 48000)
	crs := graph.Tracks[0].Clips[0]

	if crs.StartSample != 48000 {
		t.Errorf("StartSample = %d, want 48000", crs.StartSample)
	}
	if crs.EndSample != 48000+24000 {
		t.Errorf("EndSample = %d, want %d", crs.EndSample, 48000+24000)
	}
	if crs.SampleOffset != 12000 {
		t.Errorf("SampleOffset = %d, want 12000", crs.SampleOffset)
	}
	if graph.TimelineEndSample != crs.EndSample {
		t.Errorf("TimelineEndSample = %d, want %d", graph.TimelineEndSample, crs.EndSample)
	}
}

func TestBuildClampsSampleOffsetToTotalFrames(t *testing.T) {
	buf := buffer(1000, 1, 48000) // short source
	clip := clipmodel.NewAudioClip("c", buf, 48000, 1, "")
	clip.TrimStart = 10.0 // way past the source's actual length
	clip.TrimEnd = 10.5

	lane := clipmodel.NewLane("a", 1, 0)
	lane.AddClip(clip)

	graph := Builder{}.Build([]*clipmodel.Lane{lane}, 48000)
	crs := graph.Tracks[0].Clips[0]

	if crs.SampleOffset != 1000 {
		t.Errorf("SampleOffset = %d, want clamped to 1000", crs.SampleOffset)
	}
}

func TestSecondsToSamplesClampsOverflow(t *testing.T) {
	if got := SecondsToSamples(-1, 48000); got != 0 {
		t.Errorf("negative seconds = %d, want 0", got)
	}
	if got := SecondsToSamples(1e300, 1e300); got == 0 {
		t.Errorf("overflowing product should clamp to max, not 0")
	}
}
