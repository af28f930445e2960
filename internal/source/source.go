// SPDX-License-Identifier: MIT
/*
Package source defines the boundary between a hardware sample producer
and the spectrum consumer.

The ring buffer and the latency tracker form one logical resource
guarded by a single mutex. Guarding them separately would allow the
occupancy count and the push timestamp to drift apart between loads,
which breaks the window alignment arithmetic in the analysis package.
The lock is held only for the duration of one push-and-record or one
discard-and-read, never while a transform runs.
*/
package source

import (
	"sync"
	"time"

	"spectro/internal/latency"
	"spectro/internal/ring"
)

// SampleSource is the capability interface an audio producer exposes to
// the spectrum engine. Implementations bind to their hardware exactly
// once via Init; the handles are valid from then on.
type SampleSource interface {
	// SampleRate reports the stream sample rate in Hz. It is stable
	// and must be queryable before Init.
	SampleRate() uint32
	// Init performs the one-time binding to the hardware, sizing the
	// shared buffer to hold at least minBufferSize samples.
	Init(minBufferSize int) error
	// Consumer returns the read-side handle. Valid after Init.
	Consumer() *Consumer
	// Latency returns the latency-estimate handle. Valid after Init.
	Latency() *Latency
}

// State couples the sample ring and the latency tracker under one
// mutex. The producer writes through PushAndRecord; the consumer reads
// through the Consumer and Latency handles.
type State struct {
	mu      sync.Mutex
	ring    *ring.Buffer
	tracker *latency.Tracker
	reserve int // headroom kept on top of the callback chunk when growing
}

// NewState allocates shared state with the given initial capacity. The
// capacity doubles as the headroom preserved above the largest callback
// chunk seen so far.
func NewState(capacity int) *State {
	return &State{
		ring:    ring.New(capacity),
		tracker: latency.NewTracker(),
		reserve: capacity,
	}
}

// PushAndRecord is the producer's sole operation: grow the ring if the
// chunk no longer fits alongside the reserved window headroom, push the
// chunk, then record the occupancy taken immediately after the push.
// The whole sequence runs under one lock hold and performs no I/O and
// no allocation beyond the occasional grow, so it is safe to call from
// a real-time callback.
func (s *State) PushAndRecord(data []float32, now time.Time) {
	s.mu.Lock()
	if len(data)+s.reserve > s.ring.Cap() {
		s.ring.Grow(len(data) + s.reserve)
	}
	s.ring.Push(data)
	s.tracker.Record(s.ring.Len(), now)
	s.mu.Unlock()
}

// Consumer returns the read-side handle backed by this state.
func (s *State) Consumer() *Consumer { return &Consumer{state: s} }

// Latency returns the latency-estimate handle backed by this state.
func (s *State) Latency() *Latency { return &Latency{state: s} }

// Consumer is the read-side handle to the shared sample state. All of
// its operations take the state's single mutex.
type Consumer struct {
	state *State
}

// Len reports the number of unread samples.
func (c *Consumer) Len() int {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.ring.Len()
}

// Discard permanently drops the n oldest unread samples.
func (c *Consumer) Discard(n int) {
	c.state.mu.Lock()
	c.state.ring.Discard(n)
	c.state.mu.Unlock()
}

// Access exposes the occupied region zero-copy, under the lock. The
// slices passed to f must not escape the call.
func (c *Consumer) Access(f func(head, tail []float32)) {
	c.state.mu.Lock()
	c.state.ring.Access(f)
	c.state.mu.Unlock()
}

// Exclusive runs one discard-and-read critical section against the
// ring and tracker together. The lock is held only for the duration of
// f; callers must copy the window out and run the transform after
// Exclusive returns, never inside it.
func (c *Consumer) Exclusive(f func(r *ring.Buffer, t *latency.Tracker)) {
	c.state.mu.Lock()
	f(c.state.ring, c.state.tracker)
	c.state.mu.Unlock()
}

// Latency is the estimate-side handle to the shared sample state.
type Latency struct {
	state *State
}

// Estimate returns the tracker's latest snapshot under the shared lock.
func (l *Latency) Estimate() (latency.Estimate, bool) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	return l.state.tracker.Estimate()
}
