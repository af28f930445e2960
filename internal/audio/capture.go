// SPDX-License-Identifier: MIT
/*
Package audio binds the spectrum pipeline to PortAudio.

Capture implements source.SampleSource over a float32 input stream. The
stream callback runs on a real-time thread: it performs exactly one
push-and-record against the shared state plus, when recording is armed,
a best-effort WAV write. Everything else (device lookup, stream
lifecycle, recording control) happens on the cold path.
*/
package audio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"spectro/internal/config"
	applog "spectro/internal/log"
	"spectro/internal/source"
)

// Capture is a PortAudio-backed SampleSource.
type Capture struct {
	device          *portaudio.DeviceInfo
	channels        int
	sampleRate      uint32
	framesPerBuffer int
	latencyHint     time.Duration

	stream *portaudio.Stream
	state  *source.State
	mono   []float32 // callback-owned downmix buffer

	rec recorder
}

var _ source.SampleSource = (*Capture)(nil)

// NewCapture resolves the configured input device and prepares a
// capture source. The stream itself is not opened until Init.
func NewCapture(cfg *config.Config) (*Capture, error) {
	device, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		device:          device,
		channels:        cfg.Audio.InputChannels,
		sampleRate:      uint32(cfg.Audio.SampleRate),
		framesPerBuffer: cfg.Audio.FramesPerBuffer,
		mono:            make([]float32, cfg.Audio.FramesPerBuffer),
	}
	if cfg.Audio.LowLatency {
		c.latencyHint = device.DefaultLowInputLatency
	} else {
		c.latencyHint = device.DefaultHighInputLatency
	}
	return c, nil
}

// SampleRate reports the configured stream rate. Available before Init.
func (c *Capture) SampleRate() uint32 { return c.sampleRate }

// Init performs the one-time hardware binding: allocates the shared
// state with headroom for one callback chunk on top of minBufferSize,
// then opens and starts the input stream. The first callback fires
// before Init returns.
func (c *Capture) Init(minBufferSize int) error {
	if c.stream != nil {
		return fmt.Errorf("audio: capture already bound")
	}
	c.state = source.NewState(minBufferSize + c.framesPerBuffer)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   c.device,
			Channels: c.channels,
			Latency:  c.latencyHint,
		},
		FramesPerBuffer: c.framesPerBuffer,
		SampleRate:      float64(c.sampleRate),
	}

	stream, err := portaudio.OpenStream(params, c.processInput)
	if err != nil {
		return fmt.Errorf("audio: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("audio: start input stream: %w", err)
	}
	c.stream = stream

	applog.Infof("audio: capturing %q at %d Hz, %d frames/buffer",
		c.device.Name, c.sampleRate, c.framesPerBuffer)
	return nil
}

// Consumer returns the read-side handle to the shared state.
func (c *Capture) Consumer() *source.Consumer { return c.state.Consumer() }

// Latency returns the latency-estimate handle to the shared state.
func (c *Capture) Latency() *source.Latency { return c.state.Latency() }

// processInput is the real-time input callback.
// Performance critical: pre-allocated buffers only, no blocking beyond
// the shared state's single short lock hold.
func (c *Capture) processInput(in []float32) {
	samples := in
	if c.channels > 1 {
		frames := len(in) / c.channels
		if frames > len(c.mono) {
			frames = len(c.mono)
		}
		for i := 0; i < frames; i++ {
			c.mono[i] = in[i*c.channels]
		}
		samples = c.mono[:frames]
	}

	c.state.PushAndRecord(samples, time.Now())

	if atomic.LoadInt32(&c.rec.armed) == 1 {
		c.rec.write(samples)
	}
}

// Close stops recording if active and tears the stream down.
func (c *Capture) Close() error {
	if err := c.StopRecording(); err != nil {
		return err
	}
	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			return fmt.Errorf("audio: stop input stream: %w", err)
		}
		if err := c.stream.Close(); err != nil {
			return fmt.Errorf("audio: close input stream: %w", err)
		}
		c.stream = nil
	}
	return nil
}
