// SPDX-License-Identifier: MIT
package config

import (
	"time"
)

// Boundaries and defaults for the spectrum pipeline.
const (
	DefaultInputDevice     = -1 // -1 selects the system default device
	DefaultInputChannels   = 1
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 512
	DefaultWindowSamples   = 1024 // power of two, ~23ms at 44.1kHz
	DefaultLowLatency      = false
	DefaultSpectrumMode    = "real"
	DefaultUpdateInterval  = 4 * time.Millisecond

	MinSampleRate = 8000   // Hz
	MaxSampleRate = 192000 // Hz
	MaxWindowSize = 65536  // samples
)

// Config is the application configuration, loaded from YAML and
// overridden by flags and environment variables.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Command   string          `yaml:"command,omitempty"` // one-off command (e.g. "list") instead of running the engine
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds capture and analysis settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index, -1 for default
	InputChannels   int     `yaml:"input_channels"`    // 1 mono, 2 stereo (first channel is analyzed)
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // callback chunk size, affects latency
	LowLatency      bool    `yaml:"low_latency"`       // request the device's low-latency setting
	WindowSamples   int     `yaml:"window_samples"`    // spectrum window length, power of two
	SpectrumMode    string  `yaml:"spectrum_mode"`     // "real" (N/2+1 bins) or "complex" (N bins)
}

// RecordingConfig holds raw-capture recording settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // empty for a timestamped name
	BitDepth   int    `yaml:"bit_depth"`   // 16 or 24
}

// TransportConfig holds spectrum publishing settings.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`
	WSPort           string        `yaml:"ws_port"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// NewConfig returns a Config populated with defaults, the base that
// file, environment, and flag overrides are applied on top of.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultInputDevice,
			InputChannels:   DefaultInputChannels,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			WindowSamples:   DefaultWindowSamples,
			SpectrumMode:    DefaultSpectrumMode,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
			BitDepth:   16,
		},
		Transport: TransportConfig{
			WSEnabled:        false,
			WSPort:           "8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  16 * time.Millisecond, // ~60Hz
		},
	}
}

// WindowDuration converts the configured window length in samples into
// the wall-clock duration the engine is constructed with. By deriving
// the duration from an exact sample count, the engine's rounded window
// size comes out as exactly WindowSamples.
func (c *Config) WindowDuration() time.Duration {
	return time.Duration(float64(c.Audio.WindowSamples) / c.Audio.SampleRate * float64(time.Second))
}
