// SPDX-License-Identifier: MIT
/*
Package analysis implements the sliding spectrum engine: it aligns
wall-clock "now" to a window of the logical sample stream, discards
samples the window has moved past, and recomputes the spectrum in place
whenever a full window is available.

Update tolerates arbitrary call cadence. Every branch short of a full
recompute is a benign no-op that leaves the previous spectrum
untouched, so repeated calls are themselves the retry mechanism for
transient conditions (no estimate yet, producer behind schedule, not
enough samples).
*/
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"
	"time"

	"spectro/internal/fft"
	"spectro/internal/latency"
	"spectro/internal/ring"
	"spectro/internal/source"
	"spectro/pkg/bitint"
)

// Mode selects the spectrum representation.
type Mode int

const (
	// Real produces N/2+1 half-spectrum bins via conjugate symmetry.
	Real Mode = iota
	// Complex produces all N bins of the complex transform.
	Complex
)

// Engine owns the output spectrum and drives recomputation against a
// bound SampleSource. The spectrum buffer is allocated once at
// construction and mutated in place; between successful recomputes it
// simply holds the previous result.
//
// Update and Spectrum belong to the consumer loop. Magnitudes takes a
// read lock against Update's spectrum rewrite, so publishers may call
// it from their own goroutines.
type Engine struct {
	consumer       *source.Consumer
	latency        *source.Latency
	mode           Mode
	sampleRate     uint32
	windowSize     int
	windowDuration time.Duration

	window      []float32 // window copied out of the ring under the lock
	cwindow     []complex128
	spectrumMu  sync.RWMutex // guards spectrum between Update and Magnitudes
	spectrum    []complex128 // owned output, mutated in place
	planner     *fft.Planner
	plan        *fft.Plan
	transformer *fft.Transformer

	now func() time.Time // swapped out by tests
}

// NewEngine derives the window size from windowDuration and the
// source's sample rate, allocates the spectrum once, and binds the
// source. The rounded window size must come out a power of two (Real
// mode additionally needs at least four samples); anything else is a
// construction error, since the transform cannot run on it.
func NewEngine(src source.SampleSource, windowDuration time.Duration, mode Mode) (*Engine, error) {
	rate := src.SampleRate()
	windowSize := int(math.Round(float64(rate) * windowDuration.Seconds()))
	if windowSize <= 1 {
		return nil, fmt.Errorf("analysis: window of %d samples (%v at %d Hz): %w",
			windowSize, windowDuration, rate, fft.ErrTooSmall)
	}
	if !bitint.IsPowerOfTwo(windowSize) {
		return nil, fmt.Errorf("analysis: window of %d samples (%v at %d Hz): %w",
			windowSize, windowDuration, rate, fft.ErrNotPowerOfTwo)
	}

	e := &Engine{
		mode:           mode,
		sampleRate:     rate,
		windowSize:     windowSize,
		windowDuration: windowDuration,
		window:         make([]float32, windowSize),
		now:            time.Now,
	}

	switch mode {
	case Real:
		e.planner = fft.NewPlanner()
		plan, err := e.planner.Plan(windowSize)
		if err != nil {
			return nil, fmt.Errorf("analysis: %w", err)
		}
		e.plan = plan
		e.spectrum = make([]complex128, plan.Bins())
	case Complex:
		e.transformer = fft.NewTransformer()
		e.cwindow = make([]complex128, windowSize)
		e.spectrum = make([]complex128, windowSize)
	default:
		return nil, fmt.Errorf("analysis: unknown mode %d", mode)
	}

	// The shared buffer must cover two windows plus the callback chunk;
	// the source adds the chunk on top of this reserve when it grows.
	if err := src.Init(2 * windowSize); err != nil {
		return nil, err
	}
	e.consumer = src.Consumer()
	e.latency = src.Latency()
	return e, nil
}

// Update recomputes the spectrum if a full window of samples sits
// behind the latency-compensated "now". Cheap when there is nothing to
// do; O(N log N) only on a full recompute.
func (e *Engine) Update() {
	est, ok := e.latency.Estimate()
	if !ok {
		return // no latency estimate yet
	}

	windowEnd := e.now().Add(-est.MaxLatency)
	// The producer is behind schedule; keep the previous spectrum and
	// let a later, better-informed call try again.
	if windowEnd.After(est.Instant) {
		return
	}
	windowStart := windowEnd.Add(-e.windowDuration)

	// Samples older than the window start, counted from the front of
	// the ring. The subtraction saturates: when the buffer holds less
	// history than the window reaches back, the whole history is used.
	behind := int(math.Round(est.Instant.Sub(windowStart).Seconds() * float64(e.sampleRate)))
	stale := est.Count - behind
	if stale < 0 {
		stale = 0
	}

	ready := false
	e.consumer.Exclusive(func(r *ring.Buffer, t *latency.Tracker) {
		r.Discard(stale)
		t.Rebase(stale)
		if r.Len() < e.windowSize {
			return
		}
		r.Access(func(head, tail []float32) {
			n := copy(e.window, head)
			copy(e.window[n:], tail)
		})
		ready = true
	})
	if !ready {
		return
	}

	// Transform outside the source lock, against the copied window.
	// Sizes were validated at construction, so an error here means a
	// broken invariant, not a runtime condition.
	e.spectrumMu.Lock()
	defer e.spectrumMu.Unlock()
	switch e.mode {
	case Real:
		if err := e.plan.Execute(e.spectrum, e.window); err != nil {
			panic("analysis: plan no longer matches window: " + err.Error())
		}
	case Complex:
		for i, s := range e.window {
			e.cwindow[i] = complex(float64(s), 0)
		}
		if err := e.transformer.TransformTo(e.spectrum, e.cwindow, fft.Forward); err != nil {
			panic("analysis: transform no longer matches window: " + err.Error())
		}
	}
}

// Spectrum returns the engine-owned output bins: windowSize values in
// Complex mode, windowSize/2+1 in Real mode. The slice stays valid for
// the engine's lifetime and is rewritten in place on each successful
// recompute; callers must treat it as read-only and must stay on the
// goroutine that calls Update. Other goroutines use Magnitudes.
func (e *Engine) Spectrum() []complex128 { return e.spectrum }

// WindowSize returns the window length in samples.
func (e *Engine) WindowSize() int { return e.windowSize }

// SampleRate returns the bound source's sample rate in Hz.
func (e *Engine) SampleRate() uint32 { return e.sampleRate }

// BinCount returns the number of spectrum bins.
func (e *Engine) BinCount() int { return len(e.spectrum) }

// BinFrequency returns the center frequency in Hz of bin k, which is
// k·sampleRate/windowSize.
func (e *Engine) BinFrequency(k int) float64 {
	return float64(k) * float64(e.sampleRate) / float64(e.windowSize)
}

// Magnitudes writes |bin| for every spectrum bin into dst, reusing its
// backing array when it is large enough, and returns the slice. It
// holds a read lock against Update's rewrite, so publishers may call
// it from their own goroutines.
func (e *Engine) Magnitudes(dst []float64) []float64 {
	if cap(dst) < len(e.spectrum) {
		dst = make([]float64, len(e.spectrum))
	}
	dst = dst[:len(e.spectrum)]

	e.spectrumMu.RLock()
	for i, b := range e.spectrum {
		dst[i] = cmplx.Abs(b)
	}
	e.spectrumMu.RUnlock()
	return dst
}
