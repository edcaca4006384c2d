package engine

import "github.com/nomadaudio/engine/pkg/interpolate"

// maxTracks bounds the RT track-state array so ensureTrackState never
// allocates inside processBlock (NomadAudio/include/AudioEngine.h's
// kMaxTracks).
const maxTracks = 64

// Default pipeline constants: fixed operating values, not placeholders, so
// they live as Config defaults rather than inline magic numbers.
const (
	DefaultEdgeFadeFrames         = 128
	DefaultTransportFadeInFrames  = 256
	DefaultTransportFadeOutFrames = 1024
	DefaultDCBlockerR             = 0.9997
	DefaultSmoothingCoeff         = 0.001
)

// Config sizes and configures an Engine before its first processBlock call.
// Every field here is fixed for the lifetime of the Engine; changing sample
// rate or buffer size requires constructing a new Engine.
type Config struct {
	SampleRate      int
	MaxBufferFrames int
	OutputChannels  int

	InterpQuality           interpolate.Quality
	HeadroomDB              float64
	MasterGain              float64
	SafetyProcessingEnabled bool

	EdgeFadeFrames         uint32
	TransportFadeInFrames  uint32
	TransportFadeOutFrames uint32
	DCBlockerR             float64
	SmoothingCoeff         float64

	CommandQueueCapacity uint64
}

// DefaultConfig returns a Config matching the original's constructor
// defaults: 48kHz, 4096-frame max buffer, stereo, cubic interpolation,
// -6dB headroom, safety processing off.
func DefaultConfig() Config {
	return Config{
		SampleRate:              48000,
		MaxBufferFrames:         4096,
		OutputChannels:          2,
		InterpQuality:           interpolate.Cubic,
		HeadroomDB:              -6.0,
		MasterGain:              1.0,
		SafetyProcessingEnabled: false,
		EdgeFadeFrames:          DefaultEdgeFadeFrames,
		TransportFadeInFrames:   DefaultTransportFadeInFrames,
		TransportFadeOutFrames:  DefaultTransportFadeOutFrames,
		DCBlockerR:              DefaultDCBlockerR,
		SmoothingCoeff:          DefaultSmoothingCoeff,
		CommandQueueCapacity:    256,
	}
}
