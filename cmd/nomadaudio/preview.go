package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nomadaudio/engine/internal/config"
	"github.com/nomadaudio/engine/internal/filedevice"
	"github.com/nomadaudio/engine/pkg/device"
	"github.com/nomadaudio/engine/pkg/preview"
	"github.com/nomadaudio/engine/pkg/samplepool"
)

var previewCmd = &cobra.Command{
	Use:   "preview <audio_file>",
	Short: "Play a single file through the one-shot preview voice",
	Long: `preview drives pkg/preview's single-voice engine the same way a
browser click-to-audition would: fade in, play (optionally capped at
--max-seconds), fade out. Output goes to a WAV file through the same
device.Manager contract play uses, since no sound card backend ships here.`,
	Args: cobra.ExactArgs(1),
	Run:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().String("out", "preview_out.wav", "Output WAV file path (stand-in for a sound card)")
	previewCmd.Flags().Float64("gain-db", 0, "Gain in dB applied on top of the engine's global preview gain")
	previewCmd.Flags().Float64("max-seconds", 0, "Cap playback duration (0 = no cap on the voice; the output file still stops after 30 s plus --tail-seconds)")
	previewCmd.Flags().Float64("tail-seconds", 1, "Extra silence rendered after the file to capture the fade-out")
}

func runPreview(cmd *cobra.Command, args []string) {
	path := args[0]

	settings, err := config.Load(cmd)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := settings.EngineConfig()

	outPath, _ := cmd.Flags().GetString("out")
	gainDb, _ := cmd.Flags().GetFloat64("gain-db")
	maxSeconds, _ := cmd.Flags().GetFloat64("max-seconds")
	tailSeconds, _ := cmd.Flags().GetFloat64("tail-seconds")

	pool := samplepool.New()
	eng := preview.New(pool)
	eng.SetOutputSampleRate(float64(cfg.SampleRate))

	if err := eng.Play(path, gainDb, maxSeconds); err != nil {
		slog.Error("failed to start preview", "path", path, "error", err)
		os.Exit(1)
	}

	duration := maxSeconds
	if duration <= 0 {
		duration = 30 // a generous cap for files with no explicit limit
	}
	duration += tailSeconds

	stats := &device.Stats{}
	mgr := filedevice.New(outPath, time.Duration(duration*float64(time.Second)), stats)

	cb := func(output, input []float32, numFrames int, streamTime float64) int {
		eng.Process(output, numFrames)
		return 0
	}

	format := device.Format{SampleRate: cfg.SampleRate, BufferFrames: cfg.MaxBufferFrames}

	slog.Info("starting preview", "path", path, "out", outPath, "duration_s", duration)
	if err := mgr.Open(format, cb); err != nil {
		slog.Error("preview failed", "error", err)
		os.Exit(1)
	}
	slog.Info("preview complete", "underruns", stats.Underruns.Load())
}
