// SPDX-License-Identifier: MIT
package signal

import (
	"math"
	"testing"
)

func TestSinePhaseContinuity(t *testing.T) {
	const (
		n    = 256
		rate = 1024.0
		freq = 64.0
	)
	whole := Sine(2*n, rate, freq, 0)
	first := Sine(n, rate, freq, 0)
	second := Sine(n, rate, freq, n)

	for i := 0; i < n; i++ {
		if whole[i] != first[i] {
			t.Fatalf("sample %d: chunk %v != whole %v", i, first[i], whole[i])
		}
		if whole[n+i] != second[i] {
			t.Fatalf("sample %d: continuation %v != whole %v", n+i, second[i], whole[n+i])
		}
	}
}

func TestSineAmplitude(t *testing.T) {
	samples := Sine(1024, 1024, 64, 0)
	var peak float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak < 0.99 || peak > 1.0 {
		t.Errorf("peak amplitude = %v, want ~1.0", peak)
	}
}

func TestCompositeBounded(t *testing.T) {
	for i, s := range Composite(4096, 44100) {
		if math.Abs(float64(s)) > 1.0 {
			t.Fatalf("sample %d = %v exceeds unit range", i, s)
		}
	}
}

func TestPeakBin(t *testing.T) {
	mags := []float64{0, 3, 1, 7, 2}

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"full range", 0, 4, 3},
		{"excludes peak", 0, 2, 1},
		{"clamps high end", 2, 100, 3},
		{"clamps low end", -5, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeakBin(mags, tt.start, tt.end); got != tt.want {
				t.Errorf("PeakBin(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}

	if got := PeakBin(nil, 0, 3); got != 0 {
		t.Errorf("PeakBin(nil) = %d, want 0", got)
	}
}
