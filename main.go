// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spectro/cmd"
	"spectro/internal/analysis"
	"spectro/internal/audio"
	"spectro/internal/config"
	applog "spectro/internal/log"
	"spectro/internal/transport"
	"spectro/internal/transport/udp"
)

// main wires the whole pipeline together. The flow has three phases:
//
// 1. Startup (cold path): initialize PortAudio, parse configuration,
// run one-off commands, construct the capture source and engine.
//
// 2. Running (hot path): the PortAudio callback pushes samples into
// the shared state while the consumer loop recomputes the spectrum on
// a fixed cadence and hands frames to the transports.
//
// 3. Shutdown (cold path): on SIGINT/SIGTERM, stop transports, finish
// the recording, and close the stream.
func main() {
	if err := run(); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run() error {
	// ==================== STARTUP ====================

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		return err
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	if cfg.Command == "list" {
		return audio.ListDevices()
	}

	capture, err := audio.NewCapture(cfg)
	if err != nil {
		return err
	}

	mode := analysis.Real
	if cfg.Audio.SpectrumMode == "complex" {
		mode = analysis.Complex
	}

	engine, err := analysis.NewEngine(capture, cfg.WindowDuration(), mode)
	if err != nil {
		capture.Close()
		return err
	}
	applog.Infof("Engine: window %d samples (%s) at %d Hz, %d bins",
		engine.WindowSize(), cfg.WindowDuration().Round(time.Microsecond),
		engine.SampleRate(), engine.BinCount())

	if cfg.Recording.Enabled {
		if err := capture.StartRecording(cfg.Recording.OutputFile, cfg.Recording.BitDepth); err != nil {
			capture.Close()
			return err
		}
	}

	var transports []transport.Transport
	if cfg.Transport.WSEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WSPort))
	}

	var publisher *udp.Publisher
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			capture.Close()
			return err
		}
		publisher, err = udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, engine)
		if err != nil {
			sender.Close()
			capture.Close()
			return err
		}
	}

	// ==================== RUNNING ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	if publisher != nil {
		publisher.Start()
	}

	stopLoop := make(chan struct{})
	loopDone := make(chan struct{})
	go consumerLoop(engine, transports, stopLoop, loopDone)

	applog.Infof("Running. Press Ctrl+C to stop.")
	<-done

	// ==================== SHUTDOWN ====================

	close(stopLoop)
	<-loopDone

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			applog.Errorf("Error stopping UDP publisher: %v", err)
		}
	}
	for _, t := range transports {
		if err := t.Close(); err != nil {
			applog.Errorf("Error closing transport: %v", err)
		}
	}

	if cfg.Recording.Enabled {
		if err := capture.StopRecording(); err != nil {
			applog.Errorf("Error stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}

	return capture.Close()
}

// consumerLoop drives the engine on a fixed cadence and broadcasts the
// resulting magnitudes. The magnitude buffer is reused across ticks so
// the loop itself does not allocate.
func consumerLoop(engine *analysis.Engine, transports []transport.Transport, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(config.DefaultUpdateInterval)
	defer ticker.Stop()

	mags := make([]float64, engine.BinCount())
	for {
		select {
		case <-ticker.C:
			engine.Update()
			if len(transports) == 0 {
				continue
			}
			mags = engine.Magnitudes(mags)
			for _, t := range transports {
				if err := t.Send(mags); err != nil {
					applog.Debugf("Transport send error: %v", err)
				}
			}
		case <-stop:
			return
		}
	}
}
