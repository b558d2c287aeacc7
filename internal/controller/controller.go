// SPDX-License-Identifier: MIT
/*
Package controller owns the transport state of the visualizer: which
source is active, whether it is playing or paused, and the lifecycle of
the analysis goroutine that bridges the source to the shared spectrum.

State machine: Idle → Loading → Playing ⇄ Paused → Stopped → Idle.
Switching source while playing stops the current session first; no two
sources are ever active at once.
*/
package controller

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"specviz/internal/analysis"
	"specviz/internal/config"
	applog "specviz/internal/log"
	"specviz/internal/record"
	"specviz/internal/ring"
	"specviz/internal/source"
	"specviz/internal/spectrum"
	"specviz/internal/transport"
)

// State is the controller's transport state.
type State int32

const (
	Idle State = iota
	Loading
	Playing
	Paused
	Stopped // transient, only visible during teardown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ringSlots bounds how much audio can queue between producer and
// consumer; beyond it the oldest chunks are dropped. 64 slots of the
// configured chunk size is well past one visual frame of staleness.
const ringSlots = 64

// Controller orchestrates one playback/capture session at a time.
type Controller struct {
	cfg       *config.Config
	shared    *spectrum.Shared
	transport transport.Transport // optional, may be nil

	mu    sync.Mutex // serializes transitions
	state atomic.Int32

	// openSource is source.Open, replaceable in tests.
	openSource func(source.Handle, *config.SourceConfig) (source.Source, error)

	// Per-session, valid while src != nil. Guarded by mu.
	src      source.Source
	recorder *record.Recorder
	quit     chan struct{}
	wg       sync.WaitGroup
}

// New creates a controller publishing into shared. t may be nil when no
// external renderer surface is configured.
func New(cfg *config.Config, shared *spectrum.Shared, t transport.Transport) *Controller {
	return &Controller{cfg: cfg, shared: shared, transport: t, openSource: source.Open}
}

// State returns the current transport state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Shared returns the publication point renderers read from.
func (c *Controller) Shared() *spectrum.Shared {
	return c.shared
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Play opens the handle and starts streaming plus analysis. An active
// session is stopped first; on open failure the controller returns to
// Idle with the error.
func (c *Controller) Play(h source.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.setState(Loading)

	src, err := c.openSource(h, &c.cfg.Source)
	if err != nil {
		c.setState(Idle)
		return fmt.Errorf("open %s: %w", h.String(), err)
	}

	win, analyzer, smoother, err := c.buildPipeline(src.SampleRate())
	if err != nil {
		src.Stop()
		c.setState(Idle)
		return fmt.Errorf("configure analysis for %s: %w", h.String(), err)
	}
	return c.startSession(h, src, win, analyzer, smoother)
}

// buildPipeline constructs the per-session analysis stages for the
// source's sample rate.
func (c *Controller) buildPipeline(sampleRate float64) (*analysis.Window, *analysis.Analyzer, *analysis.Smoother, error) {
	win, err := analysis.NewWindow(c.cfg.Analysis.WindowSize)
	if err != nil {
		return nil, nil, nil, err
	}
	analyzer, err := analysis.NewAnalyzer(&c.cfg.Analysis, sampleRate)
	if err != nil {
		return nil, nil, nil, err
	}
	smoother, err := analysis.NewSmoother(
		c.cfg.Analysis.Bins, c.cfg.Analysis.CurveDensity, c.cfg.Analysis.Smoothing)
	if err != nil {
		return nil, nil, nil, err
	}
	return win, analyzer, smoother, nil
}

// startSession wires the pipeline and launches the analysis goroutine.
// Called with mu held and state == Loading.
func (c *Controller) startSession(h source.Handle, src source.Source,
	win *analysis.Window, analyzer *analysis.Analyzer, smoother *analysis.Smoother) error {

	handoff := ring.NewHandoff(ringSlots, c.cfg.Source.ChunkFrames)

	var rec *record.Recorder
	if c.cfg.Recording.Enabled {
		var err error
		rec, err = record.NewRecorder(c.cfg.Recording.OutputFile, src.SampleRate(), c.cfg.Recording.BitDepth)
		if err != nil {
			applog.Warnf("Controller: recording disabled: %v", err)
		}
	}

	if err := src.Start(handoff); err != nil {
		if rec != nil {
			rec.Close()
		}
		src.Stop()
		c.setState(Idle)
		return fmt.Errorf("start %s: %w", h.String(), err)
	}

	c.src = src
	c.recorder = rec
	c.quit = make(chan struct{})

	c.wg.Add(1)
	go c.analysisLoop(src, handoff, win, analyzer, smoother, rec, c.quit)

	c.setState(Playing)
	applog.Infof("Controller: playing %s (%.0f Hz, window %d, hop %d, %d bins)",
		h.String(), src.SampleRate(), c.cfg.Analysis.WindowSize,
		c.cfg.Analysis.HopSize, c.cfg.Analysis.Bins)
	return nil
}

// Pause freezes consumption; the shared spectrum keeps its last curve.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != Playing || c.src == nil {
		return
	}
	c.src.SetPaused(true)
	c.setState(Paused)
}

// Resume continues a paused session.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != Paused || c.src == nil {
		return
	}
	c.src.SetPaused(false)
	c.setState(Playing)
}

// Stop tears down the active session: the analysis goroutine is
// signaled and joined before the source is stopped, and the shared
// spectrum is cleared before Stop returns. No-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// stopSession stops the session identified by quit, if it is still the
// active one. Used by the analysis goroutine on stream end so a Play
// that raced in between cannot be torn down by a stale signal.
func (c *Controller) stopSession(quit chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quit != quit {
		return
	}
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.src == nil {
		return
	}
	c.setState(Stopped)

	close(c.quit)
	c.wg.Wait() // analysis goroutine joined: no further publishes

	c.src.Stop()
	c.src = nil

	if c.recorder != nil {
		if err := c.recorder.Close(); err != nil {
			applog.Errorf("Controller: closing recording: %v", err)
		}
		c.recorder = nil
	}

	c.shared.Clear()
	c.setState(Idle)
}

// teeSink feeds drained samples to the analysis window and, when
// recording, to the WAV encoder.
type teeSink struct {
	win *analysis.Window
	rec *record.Recorder
}

func (t teeSink) Append(samples []float64) {
	t.win.Append(samples)
	if t.rec != nil {
		if err := t.rec.Write(samples); err != nil {
			applog.Errorf("Controller: recording write: %v", err)
		}
	}
}

// analysisLoop drains the handoff and runs an analysis cycle for every
// hop of new samples, publishing each smoothed curve. It exits when
// signaled via quit or when the source reports end-of-stream/failure.
func (c *Controller) analysisLoop(src source.Source, handoff *ring.Handoff,
	win *analysis.Window, analyzer *analysis.Analyzer, smoother *analysis.Smoother,
	rec *record.Recorder, quit chan struct{}) {

	defer c.wg.Done()

	hop := uint64(c.cfg.Analysis.HopSize)
	sink := teeSink{win: win, rec: rec}

	// Poll at roughly half the hop period so a cycle never waits a full
	// hop behind the producer.
	poll := time.Duration(float64(hop) / src.SampleRate() / 2 * float64(time.Second))
	if poll < time.Millisecond {
		poll = time.Millisecond
	} else if poll > 20*time.Millisecond {
		poll = 20 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var lastCycle uint64
	var prev *analysis.Curve

	for {
		select {
		case <-quit:
			return

		case err := <-src.Done():
			// Stream over. Teardown must not run on this goroutine
			// (Stop joins it), so hand off and exit.
			if err != nil {
				applog.Errorf("Controller: source failed: %v", err)
			} else {
				applog.Infof("Controller: source finished")
			}
			go c.stopSession(quit)
			return

		case <-ticker.C:
			if c.State() == Paused {
				continue
			}
			handoff.DrainInto(sink)

			if win.Written()-lastCycle < hop {
				continue
			}
			lastCycle = win.Written()

			curve := smoother.Smooth(analyzer.Analyze(win), prev)
			c.shared.Publish(curve)
			prev = curve

			if c.transport != nil {
				_, gen := c.shared.Read()
				if err := c.transport.Send(curve, gen); err != nil {
					applog.Warnf("Controller: transport send: %v", err)
				}
			}
		}
	}
}
