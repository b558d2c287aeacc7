// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Backend is the OS loopback-capture transport behind the capture
// variant. It copies the rendered output of an audio session without
// muting or redirecting it; which sessions it can isolate is a platform
// concern and stays behind this interface.
type Backend interface {
	// Open attaches to the capture transport for the given process.
	Open(pid int32) error
	// Start begins delivering interleaved sample chunks on the
	// backend's own capture context until Stop.
	Start(onSamples func(interleaved []float32)) error
	Stop() error
	SampleRate() float64
	Channels() int
}

// captureSource adapts a Backend to the Source contract: interleaved
// float32 capture chunks are folded to mono float64 and pushed into the
// sink, and a watcher reports ErrTargetLost when the target process
// exits mid-session.
type captureSource struct {
	handle  Handle
	backend Backend

	paused atomic.Bool
	mono   []float64 // reused fold buffer, capture context only

	done      chan error
	watchQuit chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// targetPollInterval is how often the capture watcher checks that the
// target process is still alive.
const targetPollInterval = time.Second

func openCapture(h Handle, backend Backend) (*captureSource, error) {
	alive, err := process.PidExists(h.PID)
	if err == nil && !alive {
		return nil, fmt.Errorf("%w: %s", ErrProcessExited, h.String())
	}
	if err := backend.Open(h.PID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return &captureSource{
		handle:    h,
		backend:   backend,
		done:      make(chan error, 1),
		watchQuit: make(chan struct{}),
	}, nil
}

func (s *captureSource) Start(sink Sink) error {
	channels := s.backend.Channels()
	if channels < 1 {
		return fmt.Errorf("%w: backend reports %d channels", ErrDeviceUnavailable, channels)
	}

	err := s.backend.Start(func(interleaved []float32) {
		// Capture keeps running while paused — the session stays warm —
		// but nothing is forwarded, which halts consumption.
		if s.paused.Load() {
			return
		}
		frames := len(interleaved) / channels
		if frames == 0 {
			return
		}
		if len(s.mono) < frames {
			s.mono = make([]float64, frames)
		}
		for f := 0; f < frames; f++ {
			var sum float32
			for c := 0; c < channels; c++ {
				sum += interleaved[f*channels+c]
			}
			s.mono[f] = float64(sum) / float64(channels)
		}
		sink.Push(s.mono[:frames])
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.wg.Add(1)
	go s.watchTarget()
	return nil
}

// watchTarget polls the target process and reports ErrTargetLost when
// it goes away. Capture itself keeps running until the controller
// reacts; the backend has no data to deliver once the session is gone.
func (s *captureSource) watchTarget() {
	defer s.wg.Done()
	ticker := time.NewTicker(targetPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.watchQuit:
			return
		case <-ticker.C:
			alive, err := process.PidExists(s.handle.PID)
			if err == nil && !alive {
				s.done <- fmt.Errorf("%w: %s", ErrTargetLost, s.handle.String())
				return
			}
		}
	}
}

func (s *captureSource) SetPaused(paused bool) {
	s.paused.Store(paused)
}

func (s *captureSource) SampleRate() float64 {
	return s.backend.SampleRate()
}

func (s *captureSource) Done() <-chan error {
	return s.done
}

func (s *captureSource) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.watchQuit)
		s.wg.Wait()
		err = s.backend.Stop()
	})
	return err
}
