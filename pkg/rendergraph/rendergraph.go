// Package rendergraph holds the immutable, RT-readable description of what
// to mix (ClipRenderState / TrackRenderState / AudioGraph) and the off-RT
// builder that constructs one from the editable clipmodel. Grounded on
// NomadAudio's AudioGraph.h and AudioGraphBuilder.cpp.
package rendergraph

import "math"

// ClipRenderState is an immutable, RT-safe view into one clip's contribution
// to a block: a range into its source buffer plus the positioning and gain
// needed to resample and mix it. Valid for the lifetime of the AudioGraph
// that holds it because the graph keeps the source's buffer reachable
// (clipmodel.SourceBuffer, behind a strong reference) for as long as the
// snapshot lives.
type ClipRenderState struct {
	AudioData        []float32 // interleaved source samples, shared, never mutated
	TotalFrames      int
	SourceSampleRate int
	SourceChannels   int

	StartSample  uint64 // inclusive, engine sample-rate timeline
	EndSample    uint64 // exclusive
	SampleOffset uint64 // source frames, clamped to TotalFrames

	Gain float64
	Pan  float64
}

// TrackRenderState is one lane's immutable contribution: its clips plus the
// per-track mix parameters the engine reads every block.
type TrackRenderState struct {
	TrackID    uint64
	TrackIndex int
	Clips      []ClipRenderState
	Volume     float64
	Pan        float64
	Mute       bool
	Solo       bool
}

// AudioGraph is the complete immutable render graph published from UI to
// RT. Once built it is never mutated; a new graph always replaces it
// wholesale through EngineState.SwapGraph.
type AudioGraph struct {
	Tracks            []TrackRenderState
	TimelineEndSample uint64
}

// SecondsToSamples converts seconds to a sample count at the given rate,
// clamping overflow to the representable maximum rather than wrapping. This
// is the Go analogue of AudioGraphBuilder::safeSecondsToSamples's
// long-double math: float64 carries enough precision for any timeline
// duration this engine will see, and the clamp keeps a pathological input
// (negative, NaN, or absurdly large) from producing an invalid uint64.
func SecondsToSamples(seconds, sampleRate float64) uint64 {
	if sampleRate <= 0 || seconds <= 0 || math.IsNaN(seconds) || math.IsNaN(sampleRate) {
		return 0
	}
	product := seconds * sampleRate
	if math.IsInf(product, 1) || product >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(product)
}
