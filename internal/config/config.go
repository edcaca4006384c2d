// Package config loads engine settings from a config file, environment
// variables, and CLI flags, in that order of increasing precedence.
// Grounded on tphakala-birdnet-go's internal/conf package: a package-level
// viper instance, a typed Settings struct it unmarshals into, and a
// default-config-path search rooted at the user's config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nomadaudio/engine/pkg/engine"
	"github.com/nomadaudio/engine/pkg/interpolate"
)

// Settings is the engine's full runtime configuration surface.
type Settings struct {
	Audio struct {
		SampleRate       int     `mapstructure:"sample_rate"`
		BufferFrames     int     `mapstructure:"buffer_frames"`
		OutputChannels   int     `mapstructure:"output_channels"`
		InterpQuality    string  `mapstructure:"interp_quality"`
		HeadroomDB       float64 `mapstructure:"headroom_db"`
		MasterGain       float64 `mapstructure:"master_gain"`
		SafetyProcessing bool    `mapstructure:"safety_processing"`
	}

	Device struct {
		Index int `mapstructure:"index"`
	}

	Telemetry struct {
		PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
		PrometheusAddr    string `mapstructure:"prometheus_addr"`
	}
}

// DefaultConfigPaths returns the directories searched for a config.yaml, in
// priority order: the current directory, then the user's config directory.
func DefaultConfigPaths() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: getwd: %w", err)
	}
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return []string{cwd}, nil
	}
	return []string{cwd, filepath.Join(userConfigDir, "nomadaudio")}, nil
}

// Load reads config.yaml from the default search paths (if present),
// overlays any NOMADAUDIO_-prefixed environment variables, overlays flags
// bound from cmd, and unmarshals the result into Settings. A missing config
// file is not an error; defaults and environment/flags still apply.
func Load(cmd *cobra.Command) (*Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	paths, err := DefaultConfigPaths()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("NOMADAUDIO")
	v.AutomaticEnv()

	setDefaultsOn(v)

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return settings, nil
}

func setDefaultsOn(v *viper.Viper) {
	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("audio.buffer_frames", 512)
	v.SetDefault("audio.output_channels", 2)
	v.SetDefault("audio.interp_quality", "cubic")
	v.SetDefault("audio.headroom_db", -6.0)
	v.SetDefault("audio.master_gain", 1.0)
	v.SetDefault("audio.safety_processing", false)
	v.SetDefault("device.index", 0)
	v.SetDefault("telemetry.prometheus_enabled", false)
	v.SetDefault("telemetry.prometheus_addr", ":9090")
}

// EngineConfig translates Settings into an engine.Config. A zero sample rate,
// buffer size or channel count falls back to engine.DefaultConfig's value and
// an unrecognized interpolation name falls back to cubic; headroom, master
// gain and safety processing are copied as they are, zero included.
func (s *Settings) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	if s.Audio.SampleRate > 0 {
		cfg.SampleRate = s.Audio.SampleRate
	}
	if s.Audio.BufferFrames > 0 {
		cfg.MaxBufferFrames = s.Audio.BufferFrames
	}
	if s.Audio.OutputChannels > 0 {
		cfg.OutputChannels = s.Audio.OutputChannels
	}
	cfg.InterpQuality = parseInterpQuality(s.Audio.InterpQuality)
	cfg.HeadroomDB = s.Audio.HeadroomDB
	cfg.MasterGain = s.Audio.MasterGain
	cfg.SafetyProcessingEnabled = s.Audio.SafetyProcessing
	return cfg
}

func parseInterpQuality(name string) interpolate.Quality {
	switch name {
	case "linear":
		return interpolate.Linear
	case "cubic":
		return interpolate.Cubic
	case "sinc8":
		return interpolate.Sinc8
	case "sinc16":
		return interpolate.Sinc16
	case "sinc32":
		return interpolate.Sinc32
	case "sinc64":
		return interpolate.Sinc64
	default:
		return interpolate.Cubic
	}
}
