// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"spectro/internal/config"
	"spectro/pkg/build"
)

// ParseArgs loads configuration (file, environment, then flags) and
// returns the effective Config. Flags are bound directly onto the
// loaded config so explicit flags win over file and environment values.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetInfo()

	var configPath string
	options := config.NewConfig()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Sliding-window spectrum analyzer for live audio input",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// Re-apply any flag the user set explicitly on top of the
			// file/env values.
			merged := loaded
			flagged := options
			if cmd.Flags().Changed("device") {
				merged.Audio.InputDevice = flagged.Audio.InputDevice
			}
			if cmd.Flags().Changed("channels") {
				merged.Audio.InputChannels = flagged.Audio.InputChannels
			}
			if cmd.Flags().Changed("sample-rate") {
				merged.Audio.SampleRate = flagged.Audio.SampleRate
			}
			if cmd.Flags().Changed("frames-per-buffer") {
				merged.Audio.FramesPerBuffer = flagged.Audio.FramesPerBuffer
			}
			if cmd.Flags().Changed("low-latency") {
				merged.Audio.LowLatency = flagged.Audio.LowLatency
			}
			if cmd.Flags().Changed("window") {
				merged.Audio.WindowSamples = flagged.Audio.WindowSamples
			}
			if cmd.Flags().Changed("mode") {
				merged.Audio.SpectrumMode = flagged.Audio.SpectrumMode
			}
			if cmd.Flags().Changed("record") {
				merged.Recording.Enabled = flagged.Recording.Enabled
			}
			if cmd.Flags().Changed("output") {
				merged.Recording.OutputFile = flagged.Recording.OutputFile
			}
			if cmd.Flags().Changed("ws-port") {
				merged.Transport.WSEnabled = true
				merged.Transport.WSPort = flagged.Transport.WSPort
			}
			if cmd.Flags().Changed("udp-target") {
				merged.Transport.UDPEnabled = true
				merged.Transport.UDPTargetAddress = flagged.Transport.UDPTargetAddress
			}
			if cmd.Flags().Changed("debug") {
				merged.Debug = flagged.Debug
			}
			*options = *merged
			return options.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML configuration file")

	// Audio capture
	rootCmd.PersistentFlags().IntVarP(&options.Audio.InputDevice, "device", "d", config.DefaultInputDevice,
		"Input device ID. Use the 'list' command to see available devices")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.InputChannels, "channels", "c", config.DefaultInputChannels,
		"Number of input channels (1=mono, 2=stereo; first channel is analyzed)")
	rootCmd.PersistentFlags().Float64VarP(&options.Audio.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.FramesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per capture buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&options.Audio.LowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Request the device's low-latency setting")

	// Spectrum analysis
	rootCmd.PersistentFlags().IntVarP(&options.Audio.WindowSamples, "window", "w", config.DefaultWindowSamples,
		"Spectrum window length in samples (power of two)")
	rootCmd.PersistentFlags().StringVarP(&options.Audio.SpectrumMode, "mode", "m", config.DefaultSpectrumMode,
		"Spectrum mode: 'real' (half spectrum) or 'complex' (full spectrum)")

	// Recording
	rootCmd.PersistentFlags().BoolVarP(&options.Recording.Enabled, "record", "r", false,
		"Record raw input to a WAV file while analyzing")
	rootCmd.PersistentFlags().StringVarP(&options.Recording.OutputFile, "output", "o", "",
		"Recording file name. Default is spectro-DD-MM-YYYY-HHMMSS.wav")

	// Transport
	rootCmd.PersistentFlags().StringVar(&options.Transport.WSPort, "ws-port", "8080",
		"Serve spectrum frames over WebSocket on this port")
	rootCmd.PersistentFlags().StringVar(&options.Transport.UDPTargetAddress, "udp-target", "127.0.0.1:9090",
		"Send spectrum packets to this UDP address")

	rootCmd.PersistentFlags().BoolVar(&options.Debug, "debug", false,
		"Show debug output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if options.Recording.Enabled && options.Recording.OutputFile == "" {
		options.Recording.OutputFile = "spectro-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	return options, nil
}
