// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"
	"testing"
	"time"

	"spectro/internal/fft"
	"spectro/internal/source"
	"spectro/pkg/signal"
)

// fakeSource is an in-memory SampleSource: tests drive the push side
// directly through the shared state.
type fakeSource struct {
	rate  uint32
	state *source.State
}

func (f *fakeSource) SampleRate() uint32 { return f.rate }

func (f *fakeSource) Init(minBufferSize int) error {
	f.state = source.NewState(minBufferSize)
	return nil
}

func (f *fakeSource) Consumer() *source.Consumer { return f.state.Consumer() }
func (f *fakeSource) Latency() *source.Latency   { return f.state.Latency() }

var _ source.SampleSource = (*fakeSource)(nil)

var sine = signal.Sine

// windowFor returns a duration that rounds to exactly n samples at the
// given rate.
func windowFor(n int, rate uint32) time.Duration {
	return time.Duration(float64(n) / float64(rate) * float64(time.Second))
}

func TestNewEngineRejectsNonPowerOfTwoWindow(t *testing.T) {
	src := &fakeSource{rate: 44100}

	// 10ms at 44100 Hz rounds to 441 samples.
	_, err := NewEngine(src, 10*time.Millisecond, Real)
	if !errors.Is(err, fft.ErrNotPowerOfTwo) {
		t.Errorf("NewEngine error = %v, want %v", err, fft.ErrNotPowerOfTwo)
	}

	_, err = NewEngine(src, time.Microsecond, Real)
	if !errors.Is(err, fft.ErrTooSmall) {
		t.Errorf("NewEngine tiny window error = %v, want %v", err, fft.ErrTooSmall)
	}
}

func TestNewEngineAllocatesSpectrumOnce(t *testing.T) {
	src := &fakeSource{rate: 1024}
	e, err := NewEngine(src, time.Second, Real)
	if err != nil {
		t.Fatal(err)
	}

	if e.WindowSize() != 1024 {
		t.Errorf("WindowSize() = %d, want 1024", e.WindowSize())
	}
	if e.BinCount() != 513 {
		t.Errorf("BinCount() = %d, want 513 in Real mode", e.BinCount())
	}

	first := e.Spectrum()
	e.Update()
	if &first[0] != &e.Spectrum()[0] {
		t.Error("Spectrum backing array must not change across updates")
	}
}

func TestStarvationIdempotence(t *testing.T) {
	src := &fakeSource{rate: 1024}
	e, err := NewEngine(src, time.Second, Real)
	if err != nil {
		t.Fatal(err)
	}

	// No samples ever delivered: every call must be a clean no-op.
	for i := 0; i < 10; i++ {
		e.Update()
	}
	for i, b := range e.Spectrum() {
		if b != 0 {
			t.Fatalf("bin %d = %v after starved updates, want 0", i, b)
		}
	}
}

func TestProducerBehindScheduleIsNoOp(t *testing.T) {
	src := &fakeSource{rate: 1024}
	e, err := NewEngine(src, time.Second, Real)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Now()
	src.state.PushAndRecord(sine(1024, 1024, 128, 0), base)
	src.state.PushAndRecord(sine(1024, 1024, 128, 1024), base.Add(time.Second))

	// "now" is so far past the last push that the compensated window
	// end lands after it: the producer is behind schedule.
	e.now = func() time.Time { return base.Add(10 * time.Second) }
	e.Update()

	for i, b := range e.Spectrum() {
		if b != 0 {
			t.Fatalf("bin %d = %v after behind-schedule update, want untouched 0", i, b)
		}
	}
	if got := src.state.Consumer().Len(); got != 2048 {
		t.Errorf("Len() = %d, want 2048: behind-schedule update must not discard", got)
	}
}

func TestWindowSelection(t *testing.T) {
	const rate = 1024

	tests := []struct {
		name        string
		pushes      []int // sample counts per push
		nowOffset   time.Duration
		wantDiscard int
		wantCompute bool
	}{
		{
			// Less history than one window: the saturating subtraction
			// clamps to zero and everything is kept.
			name:        "tracker count below window",
			pushes:      []int{500, 500},
			nowOffset:   0, // now = last instant + maxLatency
			wantDiscard: 0,
			wantCompute: false,
		},
		{
			// Two windows of history, window end aligned with the last
			// push: exactly one window's worth goes stale.
			name:        "full window behind now",
			pushes:      []int{1024, 1024},
			nowOffset:   0,
			wantDiscard: 1024,
			wantCompute: true,
		},
		{
			// Pulling "now" 25ms earlier reaches 26 samples further
			// back (25ms at 1024 Hz, rounded).
			name:        "window end before last push",
			pushes:      []int{1024, 1024},
			nowOffset:   -25 * time.Millisecond,
			wantDiscard: 1024 - 26,
			wantCompute: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{rate: rate}
			e, err := NewEngine(src, time.Second, Real)
			if err != nil {
				t.Fatal(err)
			}

			const d = 50 * time.Millisecond // inter-push gap
			base := time.Now()
			total := 0
			instant := base
			for i, n := range tt.pushes {
				instant = base.Add(time.Duration(i) * d)
				src.state.PushAndRecord(sine(n, rate, 128, total), instant)
				total += n
			}

			e.now = func() time.Time { return instant.Add(d).Add(tt.nowOffset) }
			e.Update()

			gotLen := src.state.Consumer().Len()
			if discarded := total - gotLen; discarded != tt.wantDiscard {
				t.Errorf("discarded %d samples, want %d", discarded, tt.wantDiscard)
			}

			computed := false
			for _, b := range e.Spectrum() {
				if b != 0 {
					computed = true
					break
				}
			}
			if computed != tt.wantCompute {
				t.Errorf("spectrum computed = %v, want %v", computed, tt.wantCompute)
			}
		})
	}
}

func TestToneScenario(t *testing.T) {
	const (
		rate = 44100
		n    = 1024
		f0   = float64(rate) / 8
	)
	src := &fakeSource{rate: rate}
	e, err := NewEngine(src, windowFor(n, rate), Real)
	if err != nil {
		t.Fatal(err)
	}

	gap := windowFor(n, rate)
	base := time.Now()
	src.state.PushAndRecord(sine(n, rate, f0, 0), base)
	src.state.PushAndRecord(sine(n, rate, f0, n), base.Add(gap))

	e.now = func() time.Time { return base.Add(2 * gap) }
	e.Update()

	mags := e.Magnitudes(nil)
	peak := signal.PeakBin(mags, 1, len(mags)-1)
	want := int(math.Round(f0 * n / rate)) // bin 128
	if peak < want-1 || peak > want+1 {
		t.Errorf("spectrum peak at bin %d, want %d±1", peak, want)
	}
}

func TestRepeatCallLeavesSpectrumBitIdentical(t *testing.T) {
	const (
		rate = 44100
		n    = 1024
	)
	src := &fakeSource{rate: rate}
	e, err := NewEngine(src, windowFor(n, rate), Real)
	if err != nil {
		t.Fatal(err)
	}

	gap := windowFor(n, rate)
	base := time.Now()
	src.state.PushAndRecord(sine(n, rate, 5512.5, 0), base)
	src.state.PushAndRecord(sine(n, rate, 5512.5, n), base.Add(gap))
	e.now = func() time.Time { return base.Add(2 * gap) }

	e.Update()
	snapshot := make([]complex128, len(e.Spectrum()))
	copy(snapshot, e.Spectrum())

	// Same clock, no intervening pushes: the recompute must reproduce
	// the exact same bits.
	e.Update()
	for i, b := range e.Spectrum() {
		if b != snapshot[i] {
			t.Fatalf("bin %d changed across repeat call: %v vs %v", i, b, snapshot[i])
		}
	}
}

// A spectrum/window size mismatch can only come from a bug inside the
// engine, so Update surfaces it loudly instead of dropping the
// transform error.
func TestUpdatePanicsOnBrokenSizeInvariant(t *testing.T) {
	const (
		rate = 1024
		n    = 1024
	)
	src := &fakeSource{rate: rate}
	e, err := NewEngine(src, windowFor(n, rate), Real)
	if err != nil {
		t.Fatal(err)
	}

	gap := windowFor(n, rate)
	base := time.Now()
	src.state.PushAndRecord(sine(n, rate, 128, 0), base)
	src.state.PushAndRecord(sine(n, rate, 128, n), base.Add(gap))
	e.now = func() time.Time { return base.Add(2 * gap) }

	e.spectrum = e.spectrum[:len(e.spectrum)-1]

	defer func() {
		if recover() == nil {
			t.Error("Update with a truncated spectrum did not panic")
		}
	}()
	e.Update()
}

// TestConcurrentMagnitudesDuringUpdate drives Update from the test
// goroutine while a publisher-style goroutine reads Magnitudes, the
// wiring main uses when the UDP publisher is enabled. Run with -race.
func TestConcurrentMagnitudesDuringUpdate(t *testing.T) {
	const (
		rate = 1024
		n    = 1024
	)
	src := &fakeSource{rate: rate}
	e, err := NewEngine(src, windowFor(n, rate), Real)
	if err != nil {
		t.Fatal(err)
	}

	gap := windowFor(n, rate)
	base := time.Now()
	src.state.PushAndRecord(sine(n, rate, 128, 0), base)
	src.state.PushAndRecord(sine(n, rate, 128, n), base.Add(gap))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		mags := make([]float64, e.BinCount())
		for {
			select {
			case <-stop:
				return
			default:
				mags = e.Magnitudes(mags)
				if len(mags) != e.BinCount() {
					t.Errorf("Magnitudes length = %d, want %d", len(mags), e.BinCount())
					return
				}
			}
		}
	}()

	total := 2 * n
	instant := base.Add(gap)
	for i := 0; i < 200; i++ {
		instant = instant.Add(gap)
		src.state.PushAndRecord(sine(n, rate, 128, total), instant)
		total += n
		e.now = func() time.Time { return instant.Add(gap) }
		e.Update()
	}

	close(stop)
	wg.Wait()
}

func TestComplexMode(t *testing.T) {
	const (
		rate = 44100
		n    = 1024
		f0   = float64(rate) / 8
	)
	src := &fakeSource{rate: rate}
	e, err := NewEngine(src, windowFor(n, rate), Complex)
	if err != nil {
		t.Fatal(err)
	}
	if e.BinCount() != n {
		t.Fatalf("BinCount() = %d, want %d in Complex mode", e.BinCount(), n)
	}

	gap := windowFor(n, rate)
	base := time.Now()
	src.state.PushAndRecord(sine(n, rate, f0, 0), base)
	src.state.PushAndRecord(sine(n, rate, f0, n), base.Add(gap))
	e.now = func() time.Time { return base.Add(2 * gap) }
	e.Update()

	spectrum := e.Spectrum()
	peak := signal.PeakBin(e.Magnitudes(nil), 1, n/2-1)
	if peak != n/8 {
		t.Errorf("peak at bin %d, want %d", peak, n/8)
	}
	// Real input: the mirrored bin carries the conjugate.
	mirror := cmplx.Conj(spectrum[n-peak])
	if cmplx.Abs(mirror-spectrum[peak]) > 1e-6*cmplx.Abs(spectrum[peak]) {
		t.Errorf("bin %d and bin %d are not conjugates", peak, n-peak)
	}
}

func TestBinFrequency(t *testing.T) {
	src := &fakeSource{rate: 44100}
	e, err := NewEngine(src, windowFor(1024, 44100), Real)
	if err != nil {
		t.Fatal(err)
	}

	if got := e.BinFrequency(0); got != 0 {
		t.Errorf("BinFrequency(0) = %v, want 0", got)
	}
	if got := e.BinFrequency(128); got != 5512.5 {
		t.Errorf("BinFrequency(128) = %v, want 5512.5", got)
	}
	if got := e.BinFrequency(512); got != 22050 {
		t.Errorf("BinFrequency(512) = %v, want 22050 (Nyquist)", got)
	}
}
