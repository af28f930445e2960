// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"spectro/pkg/bitint"
)

// Load reads configuration from a YAML file. If path is empty, it
// looks for "config.yaml" in the working directory and silently falls
// back to defaults when no file exists. Environment overrides are
// applied after the file, and the result is validated.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	a := &c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample_rate %.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if !bitint.IsPowerOfTwo(a.WindowSamples) || a.WindowSamples > MaxWindowSize {
		return fmt.Errorf("window_samples %d must be a power of two no larger than %d", a.WindowSamples, MaxWindowSize)
	}
	if a.FramesPerBuffer <= 0 {
		return fmt.Errorf("frames_per_buffer %d must be positive", a.FramesPerBuffer)
	}
	if a.InputChannels < 1 || a.InputChannels > 2 {
		return fmt.Errorf("input_channels %d must be 1 or 2", a.InputChannels)
	}
	if a.SpectrumMode != "real" && a.SpectrumMode != "complex" {
		return fmt.Errorf("spectrum_mode %q must be \"real\" or \"complex\"", a.SpectrumMode)
	}
	if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		return fmt.Errorf("bit_depth %d must be 16 or 24", c.Recording.BitDepth)
	}
	if c.Transport.UDPEnabled && c.Transport.UDPSendInterval <= 0 {
		return fmt.Errorf("udp_send_interval must be positive when UDP is enabled")
	}
	return nil
}

// applyEnvOverrides applies SPECTRO_* environment variables on top of
// whatever the file provided.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRO_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("SPECTRO_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("SPECTRO_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WSEnabled = b
		}
	}
	if val, ok := os.LookupEnv("SPECTRO_WS_PORT"); ok {
		c.Transport.WSPort = val
	}
	if val, ok := os.LookupEnv("SPECTRO_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("SPECTRO_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("SPECTRO_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
		}
	}
}
