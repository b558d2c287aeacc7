// SPDX-License-Identifier: MIT
/*
Package ring implements the handoff buffer between the audio-rate
producer and the analysis consumer.

The producer side runs inside the audio callback and must finish within
the stream's real-time deadline: Push is O(1), never blocks on the
consumer, and performs no heap allocation in steady state. When the
consumer stalls and the ring fills up, the oldest unconsumed chunk is
dropped — bounded staleness is preferred over backpressure on the audio
thread.

The implementation is a bounded single-producer/single-consumer ring of
fixed-size chunk slots with a per-slot sequence number. A slot with
seq == index is writable, seq == index+1 is readable. The consumer
claims a chunk by CAS on the read cursor; the producer uses the same
CAS to drop the oldest chunk when full, so a chunk is consumed or
dropped exactly once and never observed twice.
*/
package ring

import (
	"sync/atomic"

	"specviz/pkg/bitint"
)

// Sink receives drained samples in chronological order.
type Sink interface {
	Append(samples []float64)
}

type slot struct {
	seq atomic.Uint64
	buf []float64
	n   int
}

// Handoff is a bounded SPSC chunk ring. At most one goroutine may call
// Push and at most one may call DrainInto.
type Handoff struct {
	slots   []slot
	mask    uint64
	head    atomic.Uint64 // next write index, advanced only by the producer
	tail    atomic.Uint64 // next read index, CAS-advanced by consumer (read) or producer (drop)
	dropped atomic.Uint64

	scratch []float64 // consumer-side staging copy, len == chunk capacity
}

// NewHandoff creates a ring holding up to chunks chunk slots of
// chunkFrames samples each. The slot count is rounded up to a power of
// two so cursor arithmetic stays branch-free.
func NewHandoff(chunks, chunkFrames int) *Handoff {
	if chunks < 2 {
		chunks = 2
	}
	chunks = bitint.NextPowerOfTwo(chunks)
	if chunkFrames < 1 {
		chunkFrames = 1
	}

	h := &Handoff{
		slots:   make([]slot, chunks),
		mask:    uint64(chunks - 1),
		scratch: make([]float64, chunkFrames),
	}
	for i := range h.slots {
		h.slots[i].buf = make([]float64, chunkFrames)
		h.slots[i].seq.Store(uint64(i))
	}
	return h
}

// Push hands off samples from the producer context. Samples longer than
// one slot are split across consecutive slots. Push copies into
// pre-allocated slot buffers only and never waits for the consumer.
func (h *Handoff) Push(samples []float64) {
	chunkCap := len(h.scratch)
	for len(samples) > 0 {
		n := len(samples)
		if n > chunkCap {
			n = chunkCap
		}
		h.pushChunk(samples[:n])
		samples = samples[n:]
	}
}

func (h *Handoff) pushChunk(chunk []float64) {
	size := uint64(len(h.slots))
	for {
		head := h.head.Load()
		s := &h.slots[head&h.mask]
		if s.seq.Load() == head {
			s.n = copy(s.buf, chunk)
			s.seq.Store(head + 1) // release: chunk visible to consumer
			h.head.Store(head + 1)
			return
		}

		// Slot not writable: either the ring is full, or the consumer
		// released the oldest slot but has not stored its sequence yet.
		// In the full case, drop the oldest chunk ourselves. The CAS
		// loses to a concurrent consumer claim at most once per chunk,
		// so this loop terminates within a bounded number of steps.
		tail := h.tail.Load()
		if head >= tail+size {
			if h.tail.CompareAndSwap(tail, tail+1) {
				h.slots[tail&h.mask].seq.Store(tail + size)
				h.dropped.Add(1)
			}
		}
	}
}

// DrainInto appends every currently available chunk to sink, in order,
// and returns the number of samples consumed. Chunks the producer drops
// mid-read are discarded, never delivered torn.
func (h *Handoff) DrainInto(sink Sink) int {
	size := uint64(len(h.slots))
	total := 0
	for {
		tail := h.tail.Load()
		s := &h.slots[tail&h.mask]
		if s.seq.Load() != tail+1 {
			return total
		}

		// Stage the copy first, then claim. If the producer dropped
		// this chunk while we copied, the CAS fails and the (possibly
		// torn) staged data is thrown away.
		n := s.n
		if n > len(h.scratch) {
			n = len(h.scratch)
		}
		copy(h.scratch[:n], s.buf[:n])

		if h.tail.CompareAndSwap(tail, tail+1) {
			s.seq.Store(tail + size)
			sink.Append(h.scratch[:n])
			total += n
		}
	}
}

// Dropped returns the number of chunks discarded due to overflow.
func (h *Handoff) Dropped() uint64 {
	return h.dropped.Load()
}

// Capacity returns the maximum number of buffered samples.
func (h *Handoff) Capacity() int {
	return len(h.slots) * len(h.scratch)
}
