// SPDX-License-Identifier: MIT
/*
Package ring implements a fixed-capacity circular sample queue split
between a producer and a consumer half.

The buffer is lossy on overflow: when a push does not fit, the oldest
unread samples are silently dropped so the producer never blocks. The
occupied region can be viewed as up to two contiguous slices without
copying, and the storage can be grown explicitly while preserving the
order of unread samples.

The buffer carries no lock of its own. The source package couples it
with the latency tracker under a single mutex so that occupancy and
push timestamps can never disagree.
*/
package ring

// Buffer is a circular queue of float32 samples.
type Buffer struct {
	data   []float32
	read   int // index of the oldest unread sample
	length int // number of unread samples
}

// New creates a buffer holding up to capacity samples.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer{data: make([]float32, capacity)}
}

// Len returns the number of unread samples.
func (b *Buffer) Len() int { return b.length }

// Cap returns the total capacity in samples.
func (b *Buffer) Cap() int { return len(b.data) }

// Push appends samples to the producer half, overwriting the oldest
// unread samples when free space runs out. The producer gets no
// backpressure signal; overflow is silent by contract. A slice larger
// than the whole buffer contributes only its newest Cap() samples.
func (b *Buffer) Push(samples []float32) {
	c := len(b.data)
	if len(samples) > c {
		samples = samples[len(samples)-c:]
	}
	if need := len(samples) - (c - b.length); need > 0 {
		b.Discard(need)
	}

	write := (b.read + b.length) % c
	n := copy(b.data[write:], samples)
	copy(b.data, samples[n:])
	b.length += len(samples)
}

// Discard advances the read cursor by n, permanently dropping the n
// oldest unread samples. n larger than Len() drops everything.
func (b *Buffer) Discard(n int) {
	if n > b.length {
		n = b.length
	}
	if n <= 0 {
		return
	}
	b.read = (b.read + n) % len(b.data)
	b.length -= n
}

// Access exposes the occupied region to f as up to two contiguous
// slices without copying. The second slice is non-empty only when the
// region wraps around the end of the storage. The slices alias the
// buffer's storage and are valid only for the duration of the call.
func (b *Buffer) Access(f func(head, tail []float32)) {
	end := b.read + b.length
	if end <= len(b.data) {
		f(b.data[b.read:end], nil)
		return
	}
	f(b.data[b.read:], b.data[:end-len(b.data)])
}

// Grow replaces the storage with a larger allocation, moving every
// unread sample and preserving order. Growing to the current capacity
// or less is a no-op. The caller must hold the same lock that guards
// Push; a push concurrent with the swap would be lost. An allocation
// failure here is a runtime panic and is treated as fatal.
func (b *Buffer) Grow(capacity int) {
	if capacity <= len(b.data) {
		return
	}

	fresh := make([]float32, capacity)
	n := 0
	b.Access(func(head, tail []float32) {
		n = copy(fresh, head)
		n += copy(fresh[n:], tail)
	})

	b.data = fresh
	b.read = 0
	b.length = n
}
