// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// fileSource decodes an audio file and plays it through the active
// output device while a tap in the pipeline forwards the same samples
// to the sink — the visualization always matches what is audible.
//
// Pipeline: [decode] -> [tap -> sink] -> [ctrl] -> [speaker].
type fileSource struct {
	handle   Handle
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	done     chan error
	stopOnce sync.Once
}

func openFile(h Handle) (*fileSource, error) {
	f, err := os.Open(h.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, h.Path)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(h.Path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrFormatUnsupported, filepath.Ext(h.Path))
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: decode %s: %v", ErrFormatUnsupported, h.Path, err)
	}

	return &fileSource{
		handle:   h,
		file:     f,
		streamer: streamer,
		format:   format,
		done:     make(chan error, 1),
	}, nil
}

// Start initializes the speaker at the file's native rate and begins
// playback. From here on the speaker's own callback drives the tap,
// which is the producer context for this variant.
func (s *fileSource) Start(sink Sink) error {
	sr := s.format.SampleRate
	if err := speaker.Init(sr, sr.N(time.Second/30)); err != nil {
		return fmt.Errorf("%w: speaker init: %v", ErrDeviceUnavailable, err)
	}

	s.ctrl = &beep.Ctrl{Streamer: &tap{s: s.streamer, sink: sink}}
	speaker.Play(beep.Seq(s.ctrl, beep.Callback(func() {
		s.done <- nil // natural end of file
	})))
	return nil
}

// SetPaused suspends or resumes decoding. While paused the speaker
// emits silence and the tap pushes nothing, freezing the pipeline.
func (s *fileSource) SetPaused(paused bool) {
	speaker.Lock()
	if s.ctrl != nil {
		s.ctrl.Paused = paused
	}
	speaker.Unlock()
}

func (s *fileSource) SampleRate() float64 {
	return float64(s.format.SampleRate)
}

func (s *fileSource) Done() <-chan error {
	return s.done
}

// Stop halts playback and releases the decoder and file.
func (s *fileSource) Stop() error {
	s.stopOnce.Do(func() {
		speaker.Clear()
		s.streamer.Close()
		s.file.Close()
	})
	return nil
}

// tap forwards a mono fold of every streamed chunk to the sink while
// passing the audio through unchanged. It runs on the speaker's
// playback goroutine; the buffer is grown once and then reused.
type tap struct {
	s    beep.Streamer
	sink Sink
	mono []float64
}

func (t *tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	if len(t.mono) < len(samples) {
		t.mono = make([]float64, len(samples))
	}
	for i := 0; i < n; i++ {
		t.mono[i] = (samples[i][0] + samples[i][1]) / 2
	}
	if n > 0 {
		t.sink.Push(t.mono[:n])
	}
	return n, ok
}

func (t *tap) Err() error {
	return t.s.Err()
}
