// SPDX-License-Identifier: MIT
/*
Package transport publishes magnitude frames to visualizer clients.

Implementations sit outside the spectrum core: they consume the
engine's output on the consumer loop's schedule and must never block
it. Slow or full transports drop frames instead of applying
backpressure.
*/
package transport

// Transport sends one frame of spectrum magnitudes to whoever is
// listening. Implementations must be safe for sequential calls from the
// consumer loop and must handle their own rate limiting.
type Transport interface {
	Send(magnitudes []float64) error
	Close() error
}

// SpectrumProvider is what a publisher needs from the analysis engine,
// kept as a local interface so the transport layer does not depend on
// the engine's concrete type.
type SpectrumProvider interface {
	// Magnitudes fills dst (reallocating if needed) with the current
	// bin magnitudes and returns the slice.
	Magnitudes(dst []float64) []float64
	// BinCount returns the number of spectrum bins.
	BinCount() int
}
