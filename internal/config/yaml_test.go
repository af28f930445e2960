// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing-but-explicit.yaml"))
	if err == nil {
		t.Fatal("explicit missing path should error")
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(\"\") = %v", err)
	}
	if cfg.Audio.WindowSamples != DefaultWindowSamples {
		t.Errorf("WindowSamples = %d, want default %d", cfg.Audio.WindowSamples, DefaultWindowSamples)
	}
	if cfg.Audio.SpectrumMode != "real" {
		t.Errorf("SpectrumMode = %q, want \"real\"", cfg.Audio.SpectrumMode)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 48000
  window_samples: 2048
  spectrum_mode: complex
transport:
  udp_enabled: true
  udp_target_address: "10.0.0.1:7000"
  udp_send_interval: 33ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %v, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.WindowSamples != 2048 {
		t.Errorf("WindowSamples = %d, want 2048", cfg.Audio.WindowSamples)
	}
	if cfg.Audio.SpectrumMode != "complex" {
		t.Errorf("SpectrumMode = %q, want \"complex\"", cfg.Audio.SpectrumMode)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.1:7000" {
		t.Errorf("transport not loaded: %+v", cfg.Transport)
	}
	if cfg.Transport.UDPSendInterval != 33*time.Millisecond {
		t.Errorf("UDPSendInterval = %v, want 33ms", cfg.Transport.UDPSendInterval)
	}
	// Untouched sections keep their defaults.
	if cfg.Audio.FramesPerBuffer != DefaultFramesPerBuffer {
		t.Errorf("FramesPerBuffer = %d, want default %d", cfg.Audio.FramesPerBuffer, DefaultFramesPerBuffer)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non power-of-two window", func(c *Config) { c.Audio.WindowSamples = 1000 }},
		{"oversized window", func(c *Config) { c.Audio.WindowSamples = 1 << 20 }},
		{"sample rate too low", func(c *Config) { c.Audio.SampleRate = 4000 }},
		{"sample rate too high", func(c *Config) { c.Audio.SampleRate = 500000 }},
		{"bad mode", func(c *Config) { c.Audio.SpectrumMode = "imaginary" }},
		{"bad channels", func(c *Config) { c.Audio.InputChannels = 5 }},
		{"bad bit depth", func(c *Config) { c.Recording.BitDepth = 12 }},
		{"udp without interval", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPSendInterval = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPECTRO_UDP_ENABLED", "true")
	t.Setenv("SPECTRO_UDP_TARGET_ADDRESS", "192.168.1.5:9999")
	t.Setenv("SPECTRO_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Transport.UDPEnabled {
		t.Error("UDPEnabled not overridden from env")
	}
	if cfg.Transport.UDPTargetAddress != "192.168.1.5:9999" {
		t.Errorf("UDPTargetAddress = %q", cfg.Transport.UDPTargetAddress)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestWindowDurationRoundTrips(t *testing.T) {
	cfg := NewConfig()
	for _, n := range []int{256, 512, 1024, 2048, 4096} {
		cfg.Audio.WindowSamples = n
		d := cfg.WindowDuration()
		// The engine recomputes the sample count from this duration;
		// the round trip must land on the same power of two.
		got := int(float64(cfg.Audio.SampleRate)*d.Seconds() + 0.5)
		if got != n {
			t.Errorf("window of %d samples round-tripped to %d", n, got)
		}
	}
}
