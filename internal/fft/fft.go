// SPDX-License-Identifier: MIT
/*
Package fft implements a from-scratch, power-of-two, recursive complex
FFT with O(N/4) reusable scratch memory, plus cached real-input
half-spectrum plans built on top of it.

The combine stage of each recursion level runs in place over the output
buffer. That overwrites sub-transform values still needed by later
iterations of the same level, so those values are staged in a scratch
buffer under modular indexing; the scratch never needs to hold more
than N/4 complex values at once.
*/
package fft

import (
	"errors"
	"math"
	"math/cmplx"

	"spectro/pkg/bitint"
)

// Direction selects the sign of the twiddle exponent.
type Direction int

const (
	// Forward transforms with exp(-2πi/N).
	Forward Direction = iota
	// Backward transforms with exp(+2πi/N). The result is not
	// normalized; callers divide by N via Normalize.
	Backward
)

var (
	// ErrNotPowerOfTwo reports a transform length that is not a power of two.
	ErrNotPowerOfTwo = errors.New("fft: length must be a power of two")
	// ErrTooSmall reports a transform length of zero or one.
	ErrTooSmall = errors.New("fft: length must be greater than one")
	// ErrSizeMismatch reports buffers whose lengths disagree with the plan.
	ErrSizeMismatch = errors.New("fft: buffer length does not match transform size")
)

// Transformer performs forward and inverse FFTs. It owns a scratch
// buffer grown lazily to N/4 complex values and never shrunk, so
// repeated transforms at a fixed size stay allocation-free apart from
// the output slice. Not safe for concurrent use.
type Transformer struct {
	scratch []complex128
}

// NewTransformer returns a transformer with no scratch allocated yet.
func NewTransformer() *Transformer { return &Transformer{} }

// Transform computes the unnormalized DFT of xs in the given direction
// into a freshly allocated slice of the same length. The length must be
// a power of two greater than one; anything else is a contract
// violation, not a transient condition. Identical (input, direction)
// pairs always produce bit-identical output.
func (t *Transformer) Transform(xs []complex128, dir Direction) ([]complex128, error) {
	out := make([]complex128, len(xs))
	if err := t.TransformTo(out, xs, dir); err != nil {
		return nil, err
	}
	return out, nil
}

// TransformTo is Transform without the output allocation: it writes the
// transform of xs into dst. dst and xs must have the same power-of-two
// length and must not alias.
func (t *Transformer) TransformTo(dst, xs []complex128, dir Direction) error {
	n := len(xs)
	if n <= 1 {
		return ErrTooSmall
	}
	if !bitint.IsPowerOfTwo(n) {
		return ErrNotPowerOfTwo
	}
	if len(dst) != n {
		return ErrSizeMismatch
	}
	if len(t.scratch) < n/4 {
		t.scratch = make([]complex128, n/4)
	}

	angle := 2 * math.Pi / float64(n)
	if dir == Forward {
		angle = -angle
	}
	t.recurse(xs, dst, cmplx.Rect(1, angle), 0, 1, n)
	return nil
}

// recurse transforms the strided sub-sequence of xs starting at start,
// writing into the same positions of out. w is the twiddle factor for
// this level and is squared on the way down, since each half sees every
// second sample.
func (t *Transformer) recurse(xs, out []complex128, w complex128, start, step, n int) {
	at := func(i int) int { return start + step*i }

	if n == 2 {
		out[at(0)] = xs[at(0)] + xs[at(1)]
		out[at(1)] = xs[at(0)] - xs[at(1)]
		return
	}

	w2 := w * w
	t.recurse(xs, out, w2, start, 2*step, n/2)
	t.recurse(xs, out, w2, start+step, 2*step, n/2)

	// Combine: out[i] = E[i] + w^i·O[i], out[i+n/2] = E[i] - w^i·O[i].
	// E[i] sits at position 2i and O[i] at 2i+1, both of which earlier
	// iterations may already have overwritten; such values were staged
	// in the scratch ring when the write to i+n/2 clobbered them.
	quarter := n / 4
	wk := complex(1, 0)
	for i := 0; i < n/2; i++ {
		even := out[at(2*i)]
		if i >= quarter {
			even = t.scratch[(2*i)%quarter]
		}
		odd := out[at(2*i+1)]
		// The last odd term is read before this iteration's write
		// clobbers it, so it never goes through the scratch.
		if i >= quarter && i < n/2-1 {
			odd = t.scratch[(2*i+1)%quarter]
		}
		odd *= wk

		// Position i+n/2 still holds a sub-transform value needed when
		// the loop reaches (i+n/2)/2; stage it before overwriting.
		t.scratch[i%quarter] = out[at(i+n/2)]

		out[at(i)] = even + odd
		out[at(i+n/2)] = even - odd
		wk *= w
	}
}

// Normalize divides every element by the sequence length. The transform
// itself never normalizes; callers invoke this after a Backward
// transform to complete the inversion.
func Normalize(xs []complex128) {
	div := complex(float64(len(xs)), 0)
	for i := range xs {
		xs[i] /= div
	}
}
