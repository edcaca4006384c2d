package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nomadaudio/engine/internal/config"
	"github.com/nomadaudio/engine/pkg/telemetry"
)

var meterCmd = &cobra.Command{
	Use:   "meter",
	Short: "Print a telemetry snapshot, or serve it over Prometheus",
	Long: `meter prints a single JSON telemetry snapshot from a freshly
constructed, idle set of counters by default, useful for checking the
counter schema without a running engine. With --serve it instead starts a
Prometheus exporter endpoint on telemetry.prometheus_addr and blocks. The
telemetry.prometheus_enabled setting is not consulted; only --serve
selects serving.`,
	Run: runMeter,
}

func init() {
	rootCmd.AddCommand(meterCmd)

	meterCmd.Flags().Bool("serve", false, "Serve metrics over HTTP instead of printing one snapshot")
}

func runMeter(cmd *cobra.Command, args []string) {
	settings, err := config.Load(cmd)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	serve, _ := cmd.Flags().GetBool("serve")
	counters := &telemetry.Counters{}
	counters.SetFormat(settings.Audio.SampleRate, settings.Audio.BufferFrames)

	if !serve {
		printSnapshot(counters)
		return
	}

	addr := settings.Telemetry.PrometheusAddr
	if addr == "" {
		addr = ":9090"
	}

	exporter := telemetry.NewExporter(counters)
	registry := prometheus.NewRegistry()
	if err := registry.Register(exporter); err != nil {
		slog.Error("failed to register telemetry exporter", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	slog.Info("serving telemetry", "addr", addr)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("telemetry server exited", "error", err)
		os.Exit(1)
	}
}

func printSnapshot(counters *telemetry.Counters) {
	snap := counters.Snapshot()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
