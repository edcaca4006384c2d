package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nomadaudio/engine/internal/config"
	"github.com/nomadaudio/engine/pkg/clipmodel"
	"github.com/nomadaudio/engine/pkg/decoders"
	"github.com/nomadaudio/engine/pkg/offlineharness"
	"github.com/nomadaudio/engine/pkg/rendergraph"
	"github.com/nomadaudio/engine/pkg/samplepool"
)

// projectFile is the on-disk description a render bounces: one entry per
// lane, each owning zero or more clips that reference a file on disk. It is
// deliberately small next to clipmodel's full editable data model: a
// project loaded this way is immediately converted into clipmodel.Lane
// values and never mutated again.
type projectFile struct {
	Lanes []projectLane `json:"lanes"`
}

type projectLane struct {
	Name   string        `json:"name"`
	Volume float64       `json:"volume"`
	Pan    float64       `json:"pan"`
	Mute   bool          `json:"mute"`
	Solo   bool          `json:"solo"`
	Clips  []projectClip `json:"clips"`
}

type projectClip struct {
	Path          string  `json:"path"`
	TimelineStart float64 `json:"timeline_start"`
	TrimStart     float64 `json:"trim_start"`
	TrimEnd       float64 `json:"trim_end"`
	Gain          float64 `json:"gain"`
	Pan           float64 `json:"pan"`
}

var renderCmd = &cobra.Command{
	Use:   "render <project.json>",
	Short: "Bounce a project description to a WAV file via the offline harness",
	Long: `render loads a small JSON project description, decodes every
referenced audio file through the sample pool, builds a render graph from
the resulting clips and lanes, and drives the engine exactly as the
real-time callback would to produce a WAV file on disk.

Example:
  nomadaudio render project.json --out bounce.wav --duration 30`,
	Args: cobra.ExactArgs(1),
	Run:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("out", "bounce.wav", "Output WAV file path")
	renderCmd.Flags().Float64("duration", 0, "Render duration in seconds (0 = derive from the project's timeline end)")
}

func runRender(cmd *cobra.Command, args []string) {
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

	if duration <= 0 {
		duration = float64(graph.TimelineEndSample) / float64(cfg.SampleRate)
	}
	if duration <= 0 {
		slog.Error("nothing to render: project has no clips and no --duration was given")
		os.Exit(1)
	}

	report, err := offlineharness.Render(cfg, graph, duration, outPath)
	if err != nil {
		slog.Error("render failed", "error", err)
		os.Exit(1)
	}

	slog.Info("render complete",
		"out", outPath,
		"frames", report.Frames,
		"peak_l", report.PeakL,
		"peak_r", report.PeakR,
		"rms_l", report.RMSL,
		"rms_r", report.RMSR,
		"clip_count", report.ClipCount,
		"dominant_hz", report.DominantFrequencyHz,
	)
}

func loadProjectFile(path string) (*projectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	var proj projectFile
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse project file: %w", err)
	}
	return &proj, nil
}

// buildLanes decodes every clip's source file through the sample pool and
// assembles the resulting clipmodel.Lane values, one per project lane, in
// the order they appear in the file (TrackIndex follows the same order).
func buildLanes(pool *samplepool.Pool, proj *projectFile, outputSampleRate int) ([]*clipmodel.Lane, error) {
	lanes := make([]*clipmodel.Lane, 0, len(proj.Lanes))

	for i, pl := range proj.Lanes {
		lane := clipmodel.NewLane(pl.Name, uint64(i+1), i)
		lane.Volume = pl.Volume
		if lane.Volume == 0 {
			lane.Volume = 1.0
		}
		lane.Pan = pl.Pan
		lane.Mute = pl.Mute
		lane.Solo = pl.Solo

		for _, pc := range pl.Clips {
			buf, err := pool.Acquire(pc.Path, decodeFileLoader(pc.Path))
			if err != nil {
				return nil, fmt.Errorf("lane %q: clip %q: %w", pl.Name, pc.Path, err)
			}

			clip := clipmodel.NewAudioClip(pc.Path, buf, buf.SampleRate, buf.Channels, pc.Path)
			clip.TimelineStart = pc.TimelineStart
			clip.TrimStart = pc.TrimStart
			clip.TrimEnd = pc.TrimEnd
			if pc.Gain > 0 {
				clip.Gain = pc.Gain
			}
			clip.Pan = pc.Pan

			if err := clip.Validate(); err != nil {
				return nil, fmt.Errorf("lane %q: clip %q: %w", pl.Name, pc.Path, err)
			}

			lane.AddClip(clip)
		}

		lanes = append(lanes, lane)
	}

	_ = outputSampleRate // clip trim math runs in the clip's own source rate; output rate is applied later by rendergraph.Builder

	return lanes, nil
}

// decodeFileLoader returns a samplepool.Loader that fully decodes path
// through the extension-dispatched decoder factory.
func decodeFileLoader(path string) samplepool.Loader {
	return func(buf *samplepool.AudioBuffer) error {
		dec, err := decoders.NewDecoder(path)
		if err != nil {
			return err
		}
		defer dec.Close()

		samples, channels, rate, err := decoders.DecodeAllFloat32(dec)
		if err != nil {
			return err
		}

		buf.Data = samples
		buf.Channels = channels
		buf.SampleRate = rate
		return nil
	}
}
