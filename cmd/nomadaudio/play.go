package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nomadaudio/engine/internal/config"
	"github.com/nomadaudio/engine/internal/filedevice"
	"github.com/nomadaudio/engine/pkg/device"
	"github.com/nomadaudio/engine/pkg/engine"
	"github.com/nomadaudio/engine/pkg/rendergraph"
	"github.com/nomadaudio/engine/pkg/samplepool"
)

var playCmd = &cobra.Command{
	Use:   "play <project.json>",
	Short: "Drive the engine through a device backend",
	Long: `play loads a project the same way render does, then drives the
engine's real-time callback through a device.Manager instead of a single
offline pass. No CGo-backed sound card backend ships with this engine
(DeviceManager is contract-only by design), so play streams to a
WAV file through the same device.Manager contract a real backend would
use, paced by a wall-clock ticker rather than a driver interrupt. No
AutoScaler is attached.`,
	Args: cobra.ExactArgs(1),
	Run:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().String("out", "play_out.wav", "Output WAV file path (stand-in for a sound card)")
	playCmd.Flags().Float64("duration", 10, "Playback duration in seconds")
}

func runPlay(cmd *cobra.Command, args []string) {
	projectPath := args[0]

	settings, err := config.Load(cmd)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := settings.EngineConfig()

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		slog.Error("failed to read out flag", "error", err)
		os.Exit(1)
	}
	duration, err := cmd.Flags().GetFloat64("duration")
	if err != nil {
		slog.Error("failed to read duration flag", "error", err)
		os.Exit(1)
	}

	proj, err := loadProjectFile(projectPath)
	if err != nil {
		slog.Error("failed to load project", "path", projectPath, "error", err)
		os.Exit(1)
	}

	pool := samplepool.New()
	lanes, err := buildLanes(pool, proj, cfg.SampleRate)
	if err != nil {
		slog.Error("failed to build lanes", "error", err)
		os.Exit(1)
	}
	graph := rendergraph.Builder{}.Build(lanes, cfg.SampleRate)

	eng := engine.New(cfg)
	eng.EngineState().SwapGraph(graph)
	eng.SetTransportPlaying(true)

	stats := &device.Stats{}
	mgr := filedevice.New(outPath, time.Duration(duration*float64(time.Second)), stats)

	cb := func(output, input []float32, numFrames int, streamTime float64) int {
		eng.ProcessBlock(output, input, numFrames, streamTime)
		return 0
	}

	format := device.Format{SampleRate: cfg.SampleRate, BufferFrames: cfg.MaxBufferFrames}

	slog.Info("starting playback", "project", projectPath, "out", outPath, "duration_s", duration)
	if err := mgr.Open(format, cb); err != nil {
		slog.Error("playback failed", "error", err)
		os.Exit(1)
	}
	slog.Info("playback complete",
		"sample_rate", stats.SampleRate.Load(),
		"buffer_frames", stats.BufferFrames.Load(),
		"underruns", stats.Underruns.Load(),
	)
}
