// Package engine implements the real-time audio callback: draining the
// command queue, resolving the currently published render graph, resampling
// and mixing every clip into per-track double-precision buses, applying
// track and master processing, and updating telemetry. Grounded on
// NomadAudio/include/AudioEngine.h for the pipeline shape and math; no
// allocation ever occurs inside ProcessBlock once an Engine is constructed.
package engine

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/nomadaudio/engine/pkg/commandqueue"
	"github.com/nomadaudio/engine/pkg/enginestate"
	"github.com/nomadaudio/engine/pkg/interpolate"
	"github.com/nomadaudio/engine/pkg/rendergraph"
	"github.com/nomadaudio/engine/pkg/rtutil"
	"github.com/nomadaudio/engine/pkg/telemetry"
)

// trackRTState is the RT-resident per-track mix state, one per slot in a
// fixed maxTracks array so ensureTrackState never allocates.
type trackRTState struct {
	seeded bool
	volume smoothedParamD
	pan    smoothedParamD
	mute   bool
	solo   bool
}

// Engine is the real-time audio callback object. Construct with New, size
// with a Config, then call ProcessBlock once per driver callback.
type Engine struct {
	cfg Config

	commandQueue *commandqueue.Queue
	telemetry    *telemetry.Counters
	state        *enginestate.State

	sampleRate      int
	maxBufferFrames int
	outputChannels  int

	transportPlaying bool
	globalSamplePos  uint64

	trackBuffersD [][]float64 // [maxTracks][maxBufferFrames*2], stereo interleaved
	masterBufferD []float64   // [maxBufferFrames*2], stereo interleaved
	trackState    [maxTracks]trackRTState

	interpQuality interpolate.Quality

	masterGain       smoothedParamD
	headroomLinear   float64
	dcBlockerL       dcBlockerD
	dcBlockerR       dcBlockerD
	safetyProcessing bool
	fade             transportFade

	denormalOnce sync.Once

	peakL, peakR atomic.Uint64 // math.Float64bits
	rmsL, rmsR   atomic.Uint64
}

// New constructs an Engine from cfg, pre-allocating every buffer
// ProcessBlock will ever touch.
func New(cfg Config) *Engine {
	e := &Engine{
		cfg:              cfg,
		commandQueue:     commandqueue.New(cfg.CommandQueueCapacity),
		telemetry:        &telemetry.Counters{},
		state:            enginestate.New(),
		sampleRate:       cfg.SampleRate,
		maxBufferFrames:  cfg.MaxBufferFrames,
		outputChannels:   cfg.OutputChannels,
		interpQuality:    cfg.InterpQuality,
		masterGain:       newSmoothedParamD(cfg.MasterGain, cfg.SmoothingCoeff),
		headroomLinear:   math.Pow(10, cfg.HeadroomDB/20.0),
		dcBlockerL:       newDCBlockerD(cfg.DCBlockerR),
		dcBlockerR:       newDCBlockerD(cfg.DCBlockerR),
		safetyProcessing: cfg.SafetyProcessingEnabled,
		fade:             newTransportFade(cfg.TransportFadeInFrames, cfg.TransportFadeOutFrames),
	}
	e.telemetry.SetFormat(cfg.SampleRate, cfg.MaxBufferFrames)

	e.trackBuffersD = make([][]float64, maxTracks)
	for i := range e.trackBuffersD {
		e.trackBuffersD[i] = make([]float64, cfg.MaxBufferFrames*2)
	}
	e.masterBufferD = make([]float64, cfg.MaxBufferFrames*2)
	return e
}

// CommandQueue exposes the queue UI-side goroutines push parameter changes
// into.
func (e *Engine) CommandQueue() *commandqueue.Queue { return e.commandQueue }

// Telemetry exposes the RT counters for export/monitoring.
func (e *Engine) Telemetry() *telemetry.Counters { return e.telemetry }

// EngineState exposes the double-buffered graph handoff for publishing new
// graphs from the UI side.
func (e *Engine) EngineState() *enginestate.State { return e.state }

// OutputChannels returns the configured output channel count. ProcessBlock
// only supports stereo (2) today; the field exists so a device backend can
// validate its own stream configuration against the engine's.
func (e *Engine) OutputChannels() int { return e.outputChannels }

// SetTransportPlaying is an off-RT convenience for tests and simple callers;
// production UIs should push a SetTransportState command instead so the
// change lands at a deterministic point in the command stream.
func (e *Engine) SetTransportPlaying(playing bool) {
	e.commandQueue.Push(commandqueue.Command{
		Type:      commandqueue.SetTransportState,
		Value1:    boolToFloat(playing),
		SamplePos: e.globalSamplePos,
	})
}

// GetGlobalSamplePos returns the current transport position in samples.
func (e *Engine) GetGlobalSamplePos() uint64 { return e.globalSamplePos }

// GetPositionSeconds returns the current transport position in seconds.
func (e *Engine) GetPositionSeconds() float64 {
	if e.sampleRate <= 0 {
		return 0
	}
	return float64(e.globalSamplePos) / float64(e.sampleRate)
}

// PeakL and PeakR return the most recent block's peak levels.
func (e *Engine) PeakL() float64 { return math.Float64frombits(e.peakL.Load()) }
func (e *Engine) PeakR() float64 { return math.Float64frombits(e.peakR.Load()) }

// RMSL and RMSR return the most recent block's RMS levels.
func (e *Engine) RMSL() float64 { return math.Float64frombits(e.rmsL.Load()) }
func (e *Engine) RMSR() float64 { return math.Float64frombits(e.rmsR.Load()) }

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// ProcessBlock is the real-time callback entry point. output and input are
// interleaved stereo float32 buffers of length numFrames*OutputChannels;
// input is currently unused (no live-input monitoring in this engine) but
// accepted for driver-callback parity. numFrames is clamped to
// MaxBufferFrames since no buffer here can grow inside the callback.
func (e *Engine) ProcessBlock(output, input []float32, numFrames int, streamTime float64) {
	_ = input
	_ = streamTime

	e.denormalOnce.Do(func() { rtutil.EnableDenormalProtection() })
	cycleStart := rtutil.ReadCycleCounter()

	if numFrames > e.maxBufferFrames {
		numFrames = e.maxBufferFrames
	}
	if numFrames <= 0 {
		return
	}

	e.commandQueue.Drain(e.applyCommand)

	graph := e.state.ActiveGraph()

	activeTracks := 0
	if graph != nil {
		activeTracks = len(graph.Tracks)
		if activeTracks > maxTracks {
			activeTracks = maxTracks
		}
	}
	for t := 0; t < activeTracks; t++ {
		buf := e.trackBuffersD[t][:numFrames*2]
		for i := range buf {
			buf[i] = 0
		}
	}
	master := e.masterBufferD[:numFrames*2]
	for i := range master {
		master[i] = 0
	}

	anySolo := false
	if graph != nil {
		for ti := range graph.Tracks {
			if ti >= maxTracks {
				break
			}
			ts := e.ensureTrackState(ti, &graph.Tracks[ti])
			if ts.solo {
				anySolo = true
			}
		}
	}

	if graph != nil {
		blockStart := e.globalSamplePos
		blockEnd := blockStart + uint64(numFrames)
		for ti := range graph.Tracks {
			if ti >= maxTracks {
				break
			}
			e.renderTrackClips(&graph.Tracks[ti], e.trackBuffersD[ti][:numFrames*2], blockStart, blockEnd)
		}

		for ti := range graph.Tracks {
			if ti >= maxTracks {
				break
			}
			e.mixTrackIntoMaster(ti, e.trackBuffersD[ti][:numFrames*2], master, anySolo)
		}
	}

	e.processMasterBus(output, master, numFrames)
	e.updateMeters(output, numFrames)

	if e.transportPlaying {
		e.globalSamplePos += uint64(numFrames)
	}

	cycleEnd := rtutil.ReadCycleCounter()
	elapsedNs := rtutil.CyclesToNanos(cycleEnd - cycleStart)
	budgetNs := uint64(float64(numFrames) / float64(e.sampleRate) * 1e9)
	e.telemetry.RecordBlock(elapsedNs, budgetNs)
}

func (e *Engine) applyCommand(cmd commandqueue.Command) {
	switch cmd.Type {
	case commandqueue.SetTrackVolume:
		if ts := e.trackStateAt(cmd.TrackIndex); ts != nil {
			ts.volume.setTarget(cmd.Value1)
		}
	case commandqueue.SetTrackPan:
		if ts := e.trackStateAt(cmd.TrackIndex); ts != nil {
			ts.pan.setTarget(cmd.Value1)
		}
	case commandqueue.SetTrackMute:
		if ts := e.trackStateAt(cmd.TrackIndex); ts != nil {
			ts.mute = cmd.Value1 != 0
		}
	case commandqueue.SetTrackSolo:
		if ts := e.trackStateAt(cmd.TrackIndex); ts != nil {
			ts.solo = cmd.Value1 != 0
		}
	case commandqueue.SetTransportState:
		playing := cmd.Value1 != 0
		if playing != e.transportPlaying {
			e.fade.onTransportChange(playing)
		}
		e.transportPlaying = playing
		e.globalSamplePos = cmd.SamplePos
	}
}

func (e *Engine) trackStateAt(trackIndex int) *trackRTState {
	if trackIndex < 0 || trackIndex >= maxTracks {
		return nil
	}
	return &e.trackState[trackIndex]
}

// ensureTrackState returns the RT state slot for a track, seeding it from
// the just-published graph's TrackRenderState the first time that track
// index is ever seen (so a track's initial volume/pan/mute/solo is honored
// even before any command arrives). Once seeded, live commands are the sole
// source of truth; later graph swaps never overwrite a seeded slot's values,
// only its presence in the mix.
func (e *Engine) ensureTrackState(trackIndex int, render *rendergraph.TrackRenderState) *trackRTState {
	ts := &e.trackState[trackIndex]
	if !ts.seeded {
		ts.volume = newSmoothedParamD(render.Volume, e.cfg.SmoothingCoeff)
		ts.pan = newSmoothedParamD(render.Pan, e.cfg.SmoothingCoeff)
		ts.mute = render.Mute
		ts.solo = render.Solo
		ts.seeded = true
	}
	return ts
}

// renderTrackClips accumulates every clip overlapping [blockStart, blockEnd)
// into buf (stereo interleaved, length numFrames*2), applying per-clip
// resampling, gain, constant-power pan, and edge fades.
func (e *Engine) renderTrackClips(track *rendergraph.TrackRenderState, buf []float64, blockStart, blockEnd uint64) {
	kernel := interpolate.ForQuality(e.interpQuality)
	engineRate := float64(e.sampleRate)

	for ci := range track.Clips {
		clip := &track.Clips[ci]
		if clip.EndSample <= blockStart || clip.StartSample >= blockEnd {
			continue
		}
		overlapStart := blockStart
		if clip.StartSample > overlapStart {
			overlapStart = clip.StartSample
		}
		overlapEnd := blockEnd
		if clip.EndSample < overlapEnd {
			overlapEnd = clip.EndSample
		}

		clipLength := clip.EndSample - clip.StartSample
		panL, panR := constantPowerPan(clip.Pan)
		rateRatio := float64(clip.SourceSampleRate) / engineRate

		for outFrame := overlapStart; outFrame < overlapEnd; outFrame++ {
			localIdx := outFrame - blockStart
			relFrame := outFrame - clip.StartSample
			srcPos := float64(clip.SampleOffset) + float64(relFrame)*rateRatio

			var l, r float64
			if clip.SourceChannels <= 1 {
				v := kernel(clip.AudioData, clip.TotalFrames, srcPos, 0, 1)
				l, r = v, v
			} else {
				l = kernel(clip.AudioData, clip.TotalFrames, srcPos, 0, clip.SourceChannels)
				r = kernel(clip.AudioData, clip.TotalFrames, srcPos, 1, clip.SourceChannels)
			}

			fade := edgeFadeGain(relFrame, clipLength, e.cfg.EdgeFadeFrames)
			gain := clip.Gain * fade

			buf[localIdx*2] += l * gain * panL
			buf[localIdx*2+1] += r * gain * panR
		}
	}
}

// mixTrackIntoMaster applies the track's smoothed volume/pan and mute/solo
// rules, then sums it into master. trackIndex is only used to read the RT
// mute/solo state (the live, command-driven truth).
func (e *Engine) mixTrackIntoMaster(trackIndex int, trackBuf []float64, master []float64, anySolo bool) {
	ts := &e.trackState[trackIndex]

	silenced := ts.mute
	if anySolo && !ts.solo {
		silenced = true
	}

	numFrames := len(trackBuf) / 2
	for i := 0; i < numFrames; i++ {
		vol := ts.volume.next()
		panL, panR := constantPowerPan(ts.pan.next())

		if silenced {
			continue
		}
		master[i*2] += trackBuf[i*2] * vol * panL
		master[i*2+1] += trackBuf[i*2+1] * vol * panR
	}
}

// processMasterBus applies master gain, headroom, optional DC blocking and
// soft clipping, then converts to float32 and writes to output.
func (e *Engine) processMasterBus(output []float32, master []float64, numFrames int) {
	for i := 0; i < numFrames; i++ {
		gain := e.masterGain.next() * e.headroomLinear * e.fade.nextGain()

		l := master[i*2] * gain
		r := master[i*2+1] * gain

		if e.safetyProcessing {
			l = softClipD(e.dcBlockerL.process(l))
			r = softClipD(e.dcBlockerR.process(r))
		}

		if i*2+1 < len(output) {
			output[i*2] = float32(l)
			output[i*2+1] = float32(r)
		}
	}
}

// updateMeters computes block peak and RMS for L/R from the just-written
// output and publishes them to the Engine's own atomics and telemetry.
func (e *Engine) updateMeters(output []float32, numFrames int) {
	var peakL, peakR, sumSqL, sumSqR float64
	for i := 0; i < numFrames; i++ {
		if i*2+1 >= len(output) {
			break
		}
		l := float64(output[i*2])
		r := float64(output[i*2+1])

		if al := math.Abs(l); al > peakL {
			peakL = al
		}
		if ar := math.Abs(r); ar > peakR {
			peakR = ar
		}
		sumSqL += l * l
		sumSqR += r * r
	}

	rmsL := math.Sqrt(sumSqL / float64(numFrames))
	rmsR := math.Sqrt(sumSqR / float64(numFrames))

	e.peakL.Store(math.Float64bits(peakL))
	e.peakR.Store(math.Float64bits(peakR))
	e.rmsL.Store(math.Float64bits(rmsL))
	e.rmsR.Store(math.Float64bits(rmsR))
	e.telemetry.UpdatePeakRMS(peakL, peakR, rmsL, rmsR)
}
