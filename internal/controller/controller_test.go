// SPDX-License-Identifier: MIT
package controller

import (
	"errors"
	"os"
	"testing"
	"time"

	"specviz/internal/config"
	"specviz/internal/source"
	"specviz/internal/spectrum"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Analysis.WindowSize = 512
	cfg.Analysis.HopSize = 128
	cfg.Analysis.Bins = 16
	cfg.Analysis.CurveDensity = 2
	cfg.Source.ChunkFrames = 128
	return cfg
}

// mockChunks scripts n stereo chunks of frames frames each, loud enough
// to register above the dB floor.
func mockChunks(n, frames int) [][]float32 {
	chunks := make([][]float32, n)
	for i := range chunks {
		chunk := make([]float32, frames*2)
		for f := 0; f < frames; f++ {
			v := float32(0.5)
			if f%2 == 1 {
				v = -0.5
			}
			chunk[f*2] = v
			chunk[f*2+1] = v
		}
		chunks[i] = chunk
	}
	return chunks
}

// newTestController wires a controller to a capture source over the
// given mock backend instead of the PortAudio transport.
func newTestController(cfg *config.Config, backend *source.MockBackend) (*Controller, *spectrum.Shared) {
	shared := spectrum.NewShared()
	c := New(cfg, shared, nil)
	c.openSource = func(h source.Handle, _ *config.SourceConfig) (source.Source, error) {
		return source.OpenCaptureWithBackend(h, backend)
	}
	return c, shared
}

func waitForGeneration(t *testing.T, shared *spectrum.Shared, min uint64) uint64 {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, gen := shared.Read(); gen >= min {
			return gen
		}
		time.Sleep(time.Millisecond)
	}
	_, gen := shared.Read()
	t.Fatalf("timed out waiting for generation %d, at %d", min, gen)
	return 0
}

func selfHandle() source.Handle {
	return source.ProcessHandle(int32(os.Getpid()), "self")
}

func TestControllerLifecycle(t *testing.T) {
	backend := &source.MockBackend{
		Rate:     44100,
		Ch:       2,
		Chunks:   mockChunks(500, 128),
		Interval: 2 * time.Millisecond,
	}
	c, shared := newTestController(testConfig(), backend)

	if c.State() != Idle {
		t.Fatalf("initial state = %v, expected idle", c.State())
	}

	if err := c.Play(selfHandle()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if c.State() != Playing {
		t.Fatalf("state after Play = %v, expected playing", c.State())
	}

	gen := waitForGeneration(t, shared, 2)

	// Paused: the published curve freezes but stays readable.
	c.Pause()
	if c.State() != Paused {
		t.Fatalf("state after Pause = %v, expected paused", c.State())
	}
	_, frozen := shared.Read()
	time.Sleep(50 * time.Millisecond)
	if curve, now := shared.Read(); now != frozen || curve == nil {
		t.Errorf("generation moved from %d to %d while paused", frozen, now)
	}

	c.Resume()
	if c.State() != Playing {
		t.Fatalf("state after Resume = %v, expected playing", c.State())
	}
	waitForGeneration(t, shared, gen+1)

	// Stop clears the shared spectrum before returning.
	c.Stop()
	if c.State() != Idle {
		t.Errorf("state after Stop = %v, expected idle", c.State())
	}
	if curve, gen := shared.Read(); curve != nil || gen != 0 {
		t.Errorf("shared spectrum not cleared: (%v, %d)", curve, gen)
	}
}

func TestControllerPlayOpenFailure(t *testing.T) {
	c, _ := newTestController(testConfig(), nil)
	c.openSource = func(source.Handle, *config.SourceConfig) (source.Source, error) {
		return nil, source.ErrDeviceUnavailable
	}

	err := c.Play(selfHandle())
	if !errors.Is(err, source.ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
	if c.State() != Idle {
		t.Errorf("state after failed Play = %v, expected idle", c.State())
	}
}

func TestControllerPlayReplacesSession(t *testing.T) {
	backend := &source.MockBackend{
		Rate:     44100,
		Ch:       2,
		Chunks:   mockChunks(1000, 128),
		Interval: time.Millisecond,
	}
	c, shared := newTestController(testConfig(), backend)

	if err := c.Play(selfHandle()); err != nil {
		t.Fatalf("first Play: %v", err)
	}
	waitForGeneration(t, shared, 1)

	second := &source.MockBackend{
		Rate:     48000,
		Ch:       2,
		Chunks:   mockChunks(1000, 128),
		Interval: time.Millisecond,
	}
	c.openSource = func(h source.Handle, _ *config.SourceConfig) (source.Source, error) {
		return source.OpenCaptureWithBackend(h, second)
	}

	if err := c.Play(selfHandle()); err != nil {
		t.Fatalf("second Play: %v", err)
	}
	if c.State() != Playing {
		t.Fatalf("state = %v, expected playing", c.State())
	}

	// The swap cleared the old session's curves; generations restart.
	waitForGeneration(t, shared, 1)
	c.Stop()
}

func TestControllerStopWithoutSession(t *testing.T) {
	c, _ := newTestController(testConfig(), nil)
	c.Stop() // no-op
	if c.State() != Idle {
		t.Errorf("state = %v, expected idle", c.State())
	}
}

func TestControllerPauseResumeOutOfState(t *testing.T) {
	c, _ := newTestController(testConfig(), nil)
	c.Pause()
	c.Resume()
	if c.State() != Idle {
		t.Errorf("state = %v, expected idle after no-op transitions", c.State())
	}
}
