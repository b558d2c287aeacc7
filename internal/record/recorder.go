// SPDX-License-Identifier: MIT
// Package record writes the mono analysis feed to a WAV file. The
// recorder sits behind the handoff on the analysis goroutine, so it
// never competes with the audio callback.
package record

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder encodes mono float64 samples into a WAV file as they are
// drained from the handoff.
type Recorder struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
	scale   float64
	active  atomic.Bool
}

// DefaultFilename returns a timestamped recording name.
func DefaultFilename() string {
	return "specviz-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
}

// NewRecorder creates the output file and WAV encoder. bitDepth must be
// 16 or 24.
func NewRecorder(path string, sampleRate float64, bitDepth int) (*Recorder, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if path == "" {
		path = DefaultFilename()
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		file:    file,
		encoder: wav.NewEncoder(file, int(sampleRate), bitDepth, 1, 1),
		scale:   float64(int(1)<<(bitDepth-1)) - 1,
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  int(sampleRate),
			},
			SourceBitDepth: bitDepth,
			Data:           make([]int, 0, 4096),
		},
	}
	r.active.Store(true)
	return r, nil
}

// Write appends samples to the file. Samples are expected in [-1, 1];
// out-of-range values are clipped. Safe to call after Close (no-op).
func (r *Recorder) Write(samples []float64) error {
	if !r.active.Load() {
		return nil
	}

	if cap(r.buf.Data) < len(samples) {
		r.buf.Data = make([]int, len(samples))
	}
	r.buf.Data = r.buf.Data[:len(samples)]
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		r.buf.Data[i] = int(s * r.scale)
	}
	return r.encoder.Write(r.buf)
}

// Close finalizes the WAV header and closes the file. Idempotent.
func (r *Recorder) Close() error {
	if !r.active.CompareAndSwap(true, false) {
		return nil
	}
	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
