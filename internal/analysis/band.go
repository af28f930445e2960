// SPDX-License-Identifier: MIT
package analysis

import "math"

// Band is a named frequency range folded out of the spectrum for the
// visualizer boundary.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands covers the usual visualizer split from sub bass up to
// treble. The treble ceiling is clamped to Nyquist at processing time.
var DefaultBands = []Band{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: math.MaxFloat64},
}

// BandProcessor folds the engine's current spectrum into per-band
// energy values in [0, 1]. All working memory is allocated at
// construction; Process itself is allocation-free.
type BandProcessor struct {
	engine   *Engine
	bands    []Band
	energies []float64
	counts   []int
	mags     []float64
}

// NewBandProcessor creates a processor over the given bands, falling
// back to DefaultBands when bands is nil.
func NewBandProcessor(engine *Engine, bands []Band) *BandProcessor {
	if bands == nil {
		bands = DefaultBands
	}
	return &BandProcessor{
		engine:   engine,
		bands:    bands,
		energies: make([]float64, len(bands)),
		counts:   make([]int, len(bands)),
		mags:     make([]float64, engine.BinCount()),
	}
}

// Bands returns the band definitions in processing order.
func (p *BandProcessor) Bands() []Band { return p.bands }

// Process recomputes the per-band energies from the engine's current
// spectrum and returns them. The returned slice is owned by the
// processor and rewritten on every call.
func (p *BandProcessor) Process() []float64 {
	p.mags = p.engine.Magnitudes(p.mags)
	nyquist := float64(p.engine.SampleRate()) / 2

	for i := range p.energies {
		p.energies[i] = 0
		p.counts[i] = 0
	}

	for k := range p.mags {
		freq := p.engine.BinFrequency(k)
		if freq > nyquist {
			break
		}
		for bi := range p.bands {
			if freq >= p.bands[bi].LowHz && freq < p.bands[bi].HighHz {
				p.energies[bi] += p.mags[k] * p.mags[k]
				p.counts[bi]++
				break
			}
		}
	}

	// RMS per band, scaled against the window length so a full-scale
	// tone lands near 1.0, then clamped.
	norm := 2 / float64(p.engine.WindowSize())
	for i := range p.energies {
		if p.counts[i] == 0 {
			continue
		}
		rms := math.Sqrt(p.energies[i]/float64(p.counts[i])) * norm
		p.energies[i] = math.Min(1.0, rms*10)
	}
	return p.energies
}
