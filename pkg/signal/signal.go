// SPDX-License-Identifier: MIT
//
// Package signal generates deterministic test waveforms and provides
// small helpers for inspecting spectra. It exists so analysis tests
// across packages share the same generators instead of each rolling
// slightly different ones.
package signal

import "math"

// Sine returns n samples of a unit sine at freq Hz sampled at rate.
// phase is expressed in samples, so consecutive chunks of the same tone
// line up: Sine(n, r, f, 0) followed by Sine(n, r, f, n) is one
// continuous waveform.
func Sine(n int, rate, freq float64, phase int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(phase+i) / rate))
	}
	return out
}

// Composite returns n samples of a 440Hz fundamental with two weaker
// harmonics, useful when a test needs energy in several bins at once.
func Composite(n int, rate float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / rate
		out[i] = float32(math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2)
	}
	return out
}

// PeakBin returns the index of the largest magnitude in
// magnitudes[startBin..endBin], clamping the range to the slice.
func PeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > magnitudes[peakBin] {
			peakBin = bin
		}
	}
	return peakBin
}
