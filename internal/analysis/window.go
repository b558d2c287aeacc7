// SPDX-License-Identifier: MIT
/*
Package analysis turns the mono sample feed into a renderable spectrum
curve: a fixed-length window of recent samples is tapered, transformed
(FFT), folded into display bins and finally interpolated into a smooth
curve.

All of it runs on the analysis goroutine; none of the types here are
safe for concurrent use. Cross-thread publication is the job of the
spectrum package.
*/
package analysis

import (
	"fmt"

	"specviz/pkg/bitint"
)

// Window is a fixed-length ring of the most recent N samples,
// overwritten continuously as chunks arrive. Before the first N samples
// have been appended it reads as zero-padded silence.
type Window struct {
	buf     []float64
	pos     int
	written uint64
}

// NewWindow creates a window of size samples. Size must be a power of
// two so the FFT stage can consume snapshots directly.
func NewWindow(size int) (*Window, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("window size must be a power of two, got %d", size)
	}
	return &Window{buf: make([]float64, size)}, nil
}

// Append adds samples, overwriting the oldest content on wrap.
// Implements ring.Sink.
func (w *Window) Append(samples []float64) {
	for _, s := range samples {
		w.buf[w.pos] = s
		w.pos++
		if w.pos == len(w.buf) {
			w.pos = 0
		}
	}
	w.written += uint64(len(samples))
}

// Snapshot copies the window contents into dst in chronological order,
// oldest sample first. len(dst) must equal Size; anything else is a
// caller bug, not a runtime condition.
func (w *Window) Snapshot(dst []float64) {
	if len(dst) != len(w.buf) {
		panic(fmt.Sprintf("analysis: snapshot destination length %d does not match window size %d",
			len(dst), len(w.buf)))
	}
	n := copy(dst, w.buf[w.pos:])
	copy(dst[n:], w.buf[:w.pos])
}

// Size returns the window length N.
func (w *Window) Size() int {
	return len(w.buf)
}

// Written returns the total number of samples ever appended. The
// analysis loop uses it to pace cycles by hop size.
func (w *Window) Written() uint64 {
	return w.written
}
