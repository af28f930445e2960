// SPDX-License-Identifier: MIT
// Package latency tracks the cadence of sample pushes so the spectrum
// engine can align wall-clock time to sample indices.
package latency

import "time"

// Estimate is a snapshot of the most recent push.
type Estimate struct {
	Count      int           // buffer occupancy recorded at the push
	Instant    time.Time     // wall-clock instant of the push
	MaxLatency time.Duration // gap between the two most recent pushes
}

// Tracker records (occupancy, instant) pairs delivered by the producer
// and derives the inter-push latency, an approximation of the worst
// case callback period. It carries no lock of its own; the source
// package guards it with the same mutex as the ring buffer.
type Tracker struct {
	records    int
	count      int
	instant    time.Time
	maxLatency time.Duration
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker { return &Tracker{} }

// Record stores the latest (count, now) pair. Once two records exist
// the gap between them becomes the latency estimate.
func (t *Tracker) Record(count int, now time.Time) {
	if t.records > 0 {
		t.maxLatency = now.Sub(t.instant)
	}
	t.count = count
	t.instant = now
	if t.records < 2 {
		t.records++
	}
}

// Estimate returns the latest snapshot. ok is false until at least two
// pushes have been recorded, since the latency gap needs a pair.
func (t *Tracker) Estimate() (Estimate, bool) {
	if t.records < 2 {
		return Estimate{}, false
	}
	return Estimate{
		Count:      t.count,
		Instant:    t.instant,
		MaxLatency: t.maxLatency,
	}, true
}

// Rebase subtracts n from the tracked count after the consumer has
// discarded n samples, keeping the occupancy-based count in step with
// the ring. The count never goes below zero.
func (t *Tracker) Rebase(n int) {
	t.count -= n
	if t.count < 0 {
		t.count = 0
	}
}
