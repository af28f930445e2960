// SPDX-License-Identifier: MIT
package fft

import (
	"math"
	"math/cmplx"

	"spectro/pkg/bitint"
)

// Plan computes the half spectrum of real-valued windows of one fixed
// power-of-two length N. It exploits conjugate symmetry (bin k and bin
// N−k of the equivalent complex transform are conjugates): the N real
// samples are packed into N/2 complex values, transformed with a single
// N/2-point FFT, and untangled into N/2+1 output bins. All working
// memory is allocated once at planning time.
type Plan struct {
	n        int
	packed   []complex128 // interleaved even/odd input, length N/2
	half     []complex128 // transform of packed, length N/2
	twiddles []complex128 // exp(-2πik/N) for k = 0..N/2
	t        *Transformer
}

// Planner caches one Plan per distinct window size so repeated calls at
// a fixed size incur no reallocation or replanning. Plans share a
// single transformer and its scratch. Not safe for concurrent use.
type Planner struct {
	t     *Transformer
	plans map[int]*Plan
}

// NewPlanner returns an empty plan cache.
func NewPlanner() *Planner {
	return &Planner{t: NewTransformer(), plans: make(map[int]*Plan)}
}

// Plan returns the cached forward plan for real windows of length n,
// creating it on first use. n must be a power of two of at least four,
// so that the packed half-length transform stays above the FFT's
// minimum size.
func (p *Planner) Plan(n int) (*Plan, error) {
	if plan, ok := p.plans[n]; ok {
		return plan, nil
	}
	if n < 4 {
		return nil, ErrTooSmall
	}
	if !bitint.IsPowerOfTwo(n) {
		return nil, ErrNotPowerOfTwo
	}

	half := n / 2
	tw := make([]complex128, half+1)
	for k := range tw {
		tw[k] = cmplx.Rect(1, -2*math.Pi*float64(k)/float64(n))
	}

	plan := &Plan{
		n:        n,
		packed:   make([]complex128, half),
		half:     make([]complex128, half),
		twiddles: tw,
		t:        p.t,
	}
	p.plans[n] = plan
	return plan, nil
}

// Size returns the planned window length N.
func (pl *Plan) Size() int { return pl.n }

// Bins returns the number of output bins, N/2+1.
func (pl *Plan) Bins() int { return pl.n/2 + 1 }

// Execute transforms the real window into the first Bins() elements of
// dst. The window length must equal the planned size and dst must have
// room for Bins() values. Repeated calls are allocation-free.
func (pl *Plan) Execute(dst []complex128, window []float32) error {
	if len(window) != pl.n {
		return ErrSizeMismatch
	}
	if len(dst) < pl.Bins() {
		return ErrSizeMismatch
	}

	half := pl.n / 2
	for i := 0; i < half; i++ {
		pl.packed[i] = complex(float64(window[2*i]), float64(window[2*i+1]))
	}
	if err := pl.t.TransformTo(pl.half, pl.packed, Forward); err != nil {
		return err
	}

	// Untangle. With Z the transform of the packed sequence and
	// M = N/2, the even-sample and odd-sample sub-spectra are
	//   E[k] = (Z[k] + conj(Z[M-k])) / 2
	//   O[k] = -i (Z[k] - conj(Z[M-k])) / 2
	// and bin k of the real transform is E[k] + w^k·O[k], taking
	// Z[M] = Z[0].
	for k := 0; k <= half; k++ {
		zk := pl.half[k%half]
		zmk := cmplx.Conj(pl.half[(half-k)%half])
		sum := (zk + zmk) / 2
		diff := (zk - zmk) / 2
		dst[k] = sum - 1i*pl.twiddles[k]*diff
	}
	return nil
}
