// SPDX-License-Identifier: MIT
/*
Package source provides the audio acquisition layer: a uniform Source
contract with two variants behind it, file-decoding playback and
process-loopback capture. Callers never branch on which variant is
active; Open dispatches on the handle kind.

Sources are push-driven. Once started, the variant's own audio-rate
context (the speaker callback for files, the capture stream callback
for loopback) pushes mono sample chunks into the supplied Sink at a
constant sample rate for the lifetime of the source.
*/
package source

import (
	"errors"
	"fmt"

	"specviz/internal/config"
)

// Acquisition failure taxonomy. All are non-retryable by the source
// itself; the controller may retry with a fresh handle.
var (
	ErrNotFound          = errors.New("source not found")
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrFormatUnsupported = errors.New("audio format unsupported")
	ErrProcessExited     = errors.New("target process exited")

	// ErrTargetLost is reported through Done when a capture target
	// disappears mid-session.
	ErrTargetLost = errors.New("capture target lost")
)

// Kind discriminates the two source variants a Handle can identify.
type Kind int

const (
	KindFile Kind = iota
	KindProcess
)

// Handle identifies either a file path or a target process. Created on
// user selection; torn down when playback stops.
type Handle struct {
	Kind Kind
	Path string // file variant
	PID  int32  // capture variant
	Name string // capture variant, display name
}

// FileHandle returns a handle for file-decoding playback.
func FileHandle(path string) Handle {
	return Handle{Kind: KindFile, Path: path}
}

// ProcessHandle returns a handle for process-loopback capture.
func ProcessHandle(pid int32, name string) Handle {
	return Handle{Kind: KindProcess, PID: pid, Name: name}
}

func (h Handle) String() string {
	if h.Kind == KindFile {
		return h.Path
	}
	return fmt.Sprintf("%s (pid %d)", h.Name, h.PID)
}

// Sink receives mono sample chunks from the source's audio-rate
// context. Implementations must not block; the ring handoff satisfies
// this.
type Sink interface {
	Push(samples []float64)
}

// Source is the uniform acquisition contract.
//
// Start begins pushing chunks into sink and returns immediately; the
// pushes happen on the variant's own audio-rate context. SampleRate is
// constant for the lifetime of the instance. Done reports stream end
// (nil for natural end-of-file) or a mid-session failure such as
// ErrTargetLost. Stop tears the source down and is idempotent.
type Source interface {
	Start(sink Sink) error
	SetPaused(paused bool)
	SampleRate() float64
	Done() <-chan error
	Stop() error
}

// Open creates the source variant matching the handle. The returned
// source is not streaming yet; call Start.
func Open(h Handle, cfg *config.SourceConfig) (Source, error) {
	switch h.Kind {
	case KindFile:
		return openFile(h)
	case KindProcess:
		return openCapture(h, newPortAudioBackend(cfg))
	default:
		return nil, fmt.Errorf("%w: unknown handle kind %d", ErrNotFound, h.Kind)
	}
}
