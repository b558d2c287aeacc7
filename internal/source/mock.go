// SPDX-License-Identifier: MIT
package source

import (
	"sync"
	"time"
)

// MockBackend is an in-memory Backend for tests and development: it
// replays scripted chunks on its own goroutine at a configurable pace,
// standing in for the OS capture transport.
type MockBackend struct {
	Rate     float64
	Ch       int
	Chunks   [][]float32
	Interval time.Duration // 0 replays everything immediately

	OpenErr  error
	StartErr error

	mu      sync.Mutex
	opened  bool
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

func (m *MockBackend) Open(pid int32) error {
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.mu.Lock()
	m.opened = true
	m.mu.Unlock()
	return nil
}

func (m *MockBackend) Start(onSamples func([]float32)) error {
	if m.StartErr != nil {
		return m.StartErr
	}
	m.quit = make(chan struct{})
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for _, chunk := range m.Chunks {
			select {
			case <-m.quit:
				return
			default:
			}
			onSamples(chunk)
			if m.Interval > 0 {
				time.Sleep(m.Interval)
			}
		}
	}()
	return nil
}

func (m *MockBackend) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil
	}
	m.stopped = true
	if m.quit != nil {
		close(m.quit)
	}
	m.wg.Wait()
	return nil
}

func (m *MockBackend) SampleRate() float64 {
	return m.Rate
}

func (m *MockBackend) Channels() int {
	return m.Ch
}

// Opened reports whether Open succeeded, for test assertions.
func (m *MockBackend) Opened() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// OpenCaptureWithBackend builds a capture source over a caller-supplied
// backend. Production code goes through Open; tests and embedders use
// this to avoid the PortAudio transport.
func OpenCaptureWithBackend(h Handle, backend Backend) (Source, error) {
	return openCapture(h, backend)
}
