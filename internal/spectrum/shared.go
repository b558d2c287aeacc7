// SPDX-License-Identifier: MIT
/*
Package spectrum holds the single point of cross-thread truth between
the analysis goroutine and the renderer: the most recently completed
smoothed curve.

The analysis goroutine is the sole writer, the render thread the sole
intended reader, and the two never wait on each other. Publish swaps
one pointer; Read follows it. A reader always sees a complete curve
from exactly one generation — curves are immutable after publication,
and the curve and its generation number live behind the same pointer.
*/
package spectrum

import (
	"sync/atomic"

	"specviz/internal/analysis"
)

type snapshot struct {
	curve      *analysis.Curve
	generation uint64
}

// Shared is the published spectrum slot. The zero value is empty and
// ready for use.
type Shared struct {
	current atomic.Pointer[snapshot]
}

// NewShared returns an empty Shared.
func NewShared() *Shared {
	return &Shared{}
}

// Publish replaces the stored curve and increments the generation
// counter in one atomic step. The caller must not modify curve after
// publishing. Writer-side only.
func (s *Shared) Publish(curve *analysis.Curve) {
	var gen uint64 = 1
	if prev := s.current.Load(); prev != nil {
		gen = prev.generation + 1
	}
	s.current.Store(&snapshot{curve: curve, generation: gen})
}

// Read returns the latest published curve and its generation without
// blocking the writer. It returns (nil, 0) when nothing has been
// published since the last Clear.
func (s *Shared) Read() (*analysis.Curve, uint64) {
	snap := s.current.Load()
	if snap == nil {
		return nil, 0
	}
	return snap.curve, snap.generation
}

// Latest returns the last curve the writer published, for callers that
// do not track generations. May be nil.
func (s *Shared) Latest() *analysis.Curve {
	curve, _ := s.Read()
	return curve
}

// Clear removes the published curve. Called on teardown so no stale or
// partial state outlives a session; the generation restarts at 1 on the
// next Publish.
func (s *Shared) Clear() {
	s.current.Store(nil)
}
