// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"specviz/cmd"
	"specviz/internal/config"
	"specviz/internal/controller"
	applog "specviz/internal/log"
	"specviz/internal/source"
	"specviz/internal/spectrum"
	"specviz/internal/transport"
)

// main is the entry point for the spectrum visualizer core.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Parse command line arguments
//   - Load and validate configuration
//   - Execute one-off commands if requested
//   - Initialize PortAudio for capture sources
//
// 2. Concurrent Phase (Hot Path):
//   - Start the playback controller and analysis pipeline
//   - Serve curves to renderers if a transport is configured
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the active session and close the transport
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the audio-rate callbacks (time-critical)
	// - One thread for analysis and I/O
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs()
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}
	opts.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		applog.Warnf("Main: unknown log level %q, using info", cfg.LogLevel)
	}
	applog.SetLevel(level)

	// Handle one-off commands that don't require a running pipeline.
	switch opts.Command {
	case "sessions":
		if err := source.PrintSessions(); err != nil {
			log.Fatal(err)
		}
		return
	case "devices":
		if err := source.Initialize(); err != nil {
			log.Fatal(err)
		}
		defer source.Terminate()
		if err := source.ListCaptureDevices(); err != nil {
			log.Fatal(err)
		}
		return
	}

	handle, err := selectHandle(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "run with --help for usage")
		os.Exit(1)
	}

	if handle.Kind == source.KindProcess {
		if err := source.Initialize(); err != nil {
			log.Fatal(err)
		}
		defer source.Terminate()
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	var t transport.Transport
	if cfg.Transport.WebSocketEnabled {
		t = transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr, 0)
	}

	shared := spectrum.NewShared()
	ctrl := controller.New(cfg, shared, t)

	// First push into the handoff happens once Play returns: the source's
	// audio-rate context is live from here on.
	if err := ctrl.Play(handle); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Visualizing %s — Ctrl-C to stop.\n", handle.String())
	<-done

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	ctrl.Stop()

	if t != nil {
		if err := t.Close(); err != nil {
			applog.Errorf("Main: closing transport: %v", err)
		}
	}

	if cfg.Recording.Enabled {
		name := cfg.Recording.OutputFile
		if name == "" {
			name = "(auto-named file)"
		}
		fmt.Printf("\nRecording saved to: %s\n", name)
	}
}

// selectHandle turns the source flags into a handle. Exactly one of
// --file and --pid must be given.
func selectHandle(opts *cmd.Options) (source.Handle, error) {
	switch {
	case opts.FilePath != "" && opts.PID != 0:
		return source.Handle{}, fmt.Errorf("--file and --pid are mutually exclusive")
	case opts.FilePath != "":
		return source.FileHandle(opts.FilePath), nil
	case opts.PID != 0:
		name := opts.ProcName
		if name == "" {
			name = fmt.Sprintf("pid-%d", opts.PID)
		}
		return source.ProcessHandle(opts.PID, name), nil
	default:
		return source.Handle{}, fmt.Errorf("no source selected: pass --file <path> or --pid <pid>")
	}
}
