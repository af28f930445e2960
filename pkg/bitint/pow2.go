/*
Package bitint provides the power-of-two helpers the FFT and buffer
sizing code lean on. Everything here is O(1), allocation-free, and safe
to call from the real-time path.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Powers of
// two map to themselves; zero and negatives map to 1. The size-1 in the
// bit-length is what keeps exact powers from doubling.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of
// two has exactly one bit set, so n & (n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
