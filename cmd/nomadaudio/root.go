// Package main is the nomadaudio CLI: render/play/preview/meter subcommands
// over the engine, built on the same cobra-plus-slog idiom as
// drgolem-musictools' cmd/root.go and cmd/player.go.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "nomadaudio",
	Short: "Multi-track real-time audio engine CLI",
	Long: `nomadaudio drives the real-time mixing engine from the command line.

Commands:
  - render:  bounce a track/clip description to a WAV file via the offline harness
  - play:    drive the engine through a device backend
  - preview: play a single file through the one-shot preview voice
  - meter:   print a telemetry/Prometheus snapshot`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose (debug) logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
