// Package offlineharness renders a published render graph through the RT
// engine into a WAV file and reports basic peak/RMS/clip-count and spectral
// sanity metrics. This stays a validation harness, not a bounce optimizer:
// it renders correctly and reports on the result, but does nothing to make
// the bounce itself faster (no parallel chunk rendering, no SIMD path); it
// calls engine.ProcessBlock exactly as the realtime device callback would.
package offlineharness

import (
	"fmt"
	"math"
	"os"

	"github.com/mjibson/go-dsp/fft"
	wav "github.com/youpy/go-wav"

	"github.com/nomadaudio/engine/pkg/engine"
	"github.com/nomadaudio/engine/pkg/rendergraph"
)

// clipThreshold marks a sample as "clipped" for reporting purposes once its
// magnitude reaches this fraction of full scale.
const clipThreshold = 0.999

// Report summarizes one offline render.
type Report struct {
	Frames       int
	PeakL, PeakR float64
	RMSL, RMSR   float64
	ClipCount    int

	// DominantFrequencyHz is the strongest FFT bin (by magnitude) of the
	// rendered left channel, a coarse spectral sanity check rather than a
	// precise analysis tool — bin resolution is SampleRate/Frames.
	DominantFrequencyHz float64
}

// Render drives cfg's engine over graph for durationSeconds of audio,
// writes the result to a 16-bit PCM stereo WAV at outPath, and returns a
// Report describing what came out.
func Render(cfg engine.Config, graph *rendergraph.AudioGraph, durationSeconds float64, outPath string) (Report, error) {
	e := engine.New(cfg)
	e.EngineState().SwapGraph(graph)
	e.SetTransportPlaying(true)

	totalFrames := int(durationSeconds * float64(cfg.SampleRate))
	if totalFrames <= 0 {
		return Report{}, fmt.Errorf("offlineharness: duration %f seconds produces zero frames at %d Hz", durationSeconds, cfg.SampleRate)
	}
	blockFrames := cfg.MaxBufferFrames
	if blockFrames <= 0 {
		blockFrames = 4096
	}

	out := make([]float32, 0, totalFrames*2)
	block := make([]float32, blockFrames*2)
	streamTime := 0.0

	for rendered := 0; rendered < totalFrames; rendered += blockFrames {
		n := blockFrames
		if rendered+n > totalFrames {
			n = totalFrames - rendered
		}
		for i := range block {
			block[i] = 0
		}
		e.ProcessBlock(block[:n*2], nil, n, streamTime)
		out = append(out, block[:n*2]...)
		streamTime += float64(n) / float64(cfg.SampleRate)
	}

	report := analyze(out, cfg.SampleRate)

	if err := writeWAV(outPath, out, cfg.SampleRate); err != nil {
		return report, fmt.Errorf("offlineharness: write %s: %w", outPath, err)
	}
	return report, nil
}

func analyze(interleaved []float32, sampleRate int) Report {
	frames := len(interleaved) / 2
	var sumSqL, sumSqR, peakL, peakR float64
	clipCount := 0
	mono := make([]float64, frames)

	for i := 0; i < frames; i++ {
		l := float64(interleaved[i*2])
		r := float64(interleaved[i*2+1])
		if math.Abs(l) > peakL {
			peakL = math.Abs(l)
		}
		if math.Abs(r) > peakR {
			peakR = math.Abs(r)
		}
		if math.Abs(l) >= clipThreshold || math.Abs(r) >= clipThreshold {
			clipCount++
		}
		sumSqL += l * l
		sumSqR += r * r
		mono[i] = l
	}

	report := Report{
		Frames:    frames,
		PeakL:     peakL,
		PeakR:     peakR,
		ClipCount: clipCount,
	}
	if frames > 0 {
		report.RMSL = math.Sqrt(sumSqL / float64(frames))
		report.RMSR = math.Sqrt(sumSqR / float64(frames))
		report.DominantFrequencyHz = dominantFrequency(mono, sampleRate)
	}
	return report
}

// dominantFrequency runs a real FFT over samples and returns the frequency
// of the strongest bin below Nyquist (bin 0, the DC term, is ignored).
func dominantFrequency(samples []float64, sampleRate int) float64 {
	if len(samples) == 0 {
		return 0
	}
	spectrum := fft.FFTReal(samples)
	n := len(spectrum)
	half := n / 2

	bestBin := 0
	bestMag := 0.0
	for i := 1; i < half; i++ {
		mag := math.Hypot(real(spectrum[i]), imag(spectrum[i]))
		if mag > bestMag {
			bestMag = mag
			bestBin = i
		}
	}
	return float64(bestBin) * float64(sampleRate) / float64(n)
}

func writeWAV(path string, interleaved []float32, sampleRate int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	frames := len(interleaved) / 2
	pcm := make([]byte, frames*2*2) // 16-bit stereo
	for i, s := range interleaved {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		sample := int16(v * 32767)
		pcm[i*2] = byte(sample)
		pcm[i*2+1] = byte(sample >> 8)
	}

	writer := wav.NewWriter(f, uint32(frames), 2, uint32(sampleRate), 16)
	_, err = writer.Write(pcm)
	return err
}
