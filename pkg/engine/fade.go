package engine

// fadeState mirrors AudioEngine.h's FadeState enum: None, FadingIn,
// FadingOut, Silent. Silent is the resting state after a transport stop
// fade completes; None is the resting state before any transport change
// (full volume, no fade in progress).
type fadeState int

const (
	fadeNone fadeState = iota
	fadeFadingIn
	fadeFadingOut
	fadeSilent
)

// transportFade is the master-bus fade state machine driven by transport
// play/stop transitions: a longer fade than a clip edge fade, run through
// an internal state machine rather than a single ramp.
type transportFade struct {
	state            fadeState
	samplesRemaining uint32
	fadeInFrames     uint32
	fadeOutFrames    uint32
}

func newTransportFade(fadeInFrames, fadeOutFrames uint32) transportFade {
	return transportFade{
		state:         fadeNone,
		fadeInFrames:  fadeInFrames,
		fadeOutFrames: fadeOutFrames,
	}
}

// onTransportChange is called once, from the command-drain step, whenever
// the playing flag actually changes value.
func (f *transportFade) onTransportChange(playing bool) {
	if playing {
		f.state = fadeFadingIn
		f.samplesRemaining = f.fadeInFrames
	} else {
		f.state = fadeFadingOut
		f.samplesRemaining = f.fadeOutFrames
	}
}

// nextGain returns the fade multiplier for the next sample and advances the
// machine's internal counter by one sample.
func (f *transportFade) nextGain() float64 {
	switch f.state {
	case fadeNone:
		return 1.0
	case fadeSilent:
		return 0.0
	case fadeFadingIn:
		total := f.fadeInFrames
		elapsed := total - f.samplesRemaining
		gain := float64(elapsed+1) / float64(total)
		f.samplesRemaining--
		if f.samplesRemaining == 0 {
			f.state = fadeNone
		}
		return gain
	case fadeFadingOut:
		total := f.fadeOutFrames
		f.samplesRemaining--
		gain := float64(f.samplesRemaining) / float64(total)
		if f.samplesRemaining == 0 {
			f.state = fadeSilent
		}
		return gain
	default:
		return 1.0
	}
}

// edgeFadeGain returns the linear head/tail fade multiplier for a clip
// sample at relFrame (frames since the clip's first output sample) within a
// clip spanning clipLengthFrames total frames. Clips shorter than
// 2*fadeFrames take the minimum of the two ramps so a very short clip still
// fades at both ends without a gain spike in the middle.
func edgeFadeGain(relFrame, clipLengthFrames uint64, fadeFrames uint32) float64 {
	if fadeFrames == 0 || clipLengthFrames == 0 {
		return 1.0
	}
	gain := 1.0

	if relFrame < uint64(fadeFrames) {
		g := float64(relFrame+1) / float64(fadeFrames)
		if g < gain {
			gain = g
		}
	}

	framesFromEnd := clipLengthFrames - relFrame - 1
	if framesFromEnd < uint64(fadeFrames) {
		g := float64(framesFromEnd+1) / float64(fadeFrames)
		if g < gain {
			gain = g
		}
	}

	return gain
}
