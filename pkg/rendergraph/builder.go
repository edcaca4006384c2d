package rendergraph

import "github.com/nomadaudio/engine/pkg/clipmodel"

// Builder constructs an immutable AudioGraph from the editable clipmodel.
// It runs entirely off the RT thread; its only job is to produce a snapshot
// that EngineState.SwapGraph can publish.
type Builder struct{}

// Build walks lanes in order, producing one TrackRenderState per lane and
// one ClipRenderState per ready clip, per AudioGraphBuilder::buildFromTrackManager:
//   - clips whose source buffer is not ready are skipped entirely
//   - startSample/endSample are derived from the clip's timeline position
//     and trimmed duration at outputSampleRate
//   - sampleOffset is derived from the clip's trim start at its own source
//     sample rate, clamped to the source's total frame count
//   - timelineEndSample tracks the maximum endSample across every clip
func (Builder) Build(lanes []*clipmodel.Lane, outputSampleRate int) *AudioGraph {
	graph := &AudioGraph{}
	var timelineEnd uint64
	rate := float64(outputSampleRate)

	for _, lane := range lanes {
		track := TrackRenderState{
			TrackID:    lane.TrackID,
			TrackIndex: lane.TrackIndex,
			Volume:     lane.Volume,
			Pan:        lane.Pan,
			Mute:       lane.Mute,
			Solo:       lane.Solo,
		}

		for _, clip := range lane.Clips() {
			if clip.Source == nil || !clip.Source.BufferReady() {
				continue
			}

			totalFrames := clip.Source.BufferFrames()
			startSample := SecondsToSamples(clip.TimelineStart, rate)
			endSample := startSample + SecondsToSamples(clip.TrimmedDuration(), rate)
			if endSample < startSample {
				endSample = startSample
			}

			sampleOffset := SecondsToSamples(clip.TrimStart, float64(clip.SourceSampleRate))
			if sampleOffset > uint64(totalFrames) {
				sampleOffset = uint64(totalFrames)
			}

			track.Clips = append(track.Clips, ClipRenderState{
				AudioData:        clip.Source.BufferData(),
				TotalFrames:      totalFrames,
				SourceSampleRate: clip.SourceSampleRate,
				SourceChannels:   clip.SourceChannels,
				StartSample:      startSample,
				EndSample:        endSample,
				SampleOffset:     sampleOffset,
				Gain:             clip.Gain,
				Pan:              clip.Pan,
			})

			if endSample > timelineEnd {
				timelineEnd = endSample
			}
		}

		graph.Tracks = append(graph.Tracks, track)
	}

	graph.TimelineEndSample = timelineEnd
	return graph
}
