// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"

	"specviz/internal/config"
	applog "specviz/internal/log"
)

// Initialize sets up the PortAudio subsystem. Must be called before any
// capture source is opened and paired with Terminate.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts the PortAudio subsystem down. Defer immediately after
// Initialize.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// portAudioBackend captures from the system's loopback/monitor input
// device via PortAudio. Per-process session isolation is the OS
// transport's concern; this backend attaches to the device the OS
// exposes for the target's session (or the configured monitor device)
// and copies whatever it renders.
type portAudioBackend struct {
	deviceHint string
	frames     int
	lowLatency bool

	device *portaudio.DeviceInfo
	stream *portaudio.Stream
	rate   float64
}

func newPortAudioBackend(cfg *config.SourceConfig) *portAudioBackend {
	return &portAudioBackend{
		deviceHint: cfg.CaptureDevice,
		frames:     cfg.ChunkFrames,
		lowLatency: cfg.LowLatency,
		rate:       cfg.SampleRate,
	}
}

func (b *portAudioBackend) Open(pid int32) error {
	device, err := findCaptureDevice(b.deviceHint)
	if err != nil {
		return err
	}
	b.device = device
	applog.Debugf("Capture: using device %q for pid %d", device.Name, pid)
	return nil
}

func (b *portAudioBackend) Start(onSamples func([]float32)) error {
	latency := b.device.DefaultHighInputLatency
	if b.lowLatency {
		latency = b.device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   b.device,
			Channels: b.Channels(),
			Latency:  latency,
		},
		SampleRate:      b.rate,
		FramesPerBuffer: b.frames,
	}

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		onSamples(in)
	})
	if err != nil {
		return err
	}
	b.stream = stream

	if err := b.stream.Start(); err != nil {
		b.stream.Close()
		b.stream = nil
		return err
	}
	return nil
}

func (b *portAudioBackend) Stop() error {
	if b.stream == nil {
		return nil
	}
	if err := b.stream.Stop(); err != nil {
		return err
	}
	err := b.stream.Close()
	b.stream = nil
	return err
}

func (b *portAudioBackend) SampleRate() float64 {
	return b.rate
}

func (b *portAudioBackend) Channels() int {
	if b.device != nil && b.device.MaxInputChannels < 2 {
		return b.device.MaxInputChannels
	}
	return 2
}

// findCaptureDevice picks the input device whose name contains hint
// (case-insensitive). With an empty hint it prefers a loopback/monitor
// device and falls back to the default input.
func findCaptureDevice(hint string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	if hint != "" {
		for _, d := range devices {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(hint)) {
				return d, nil
			}
		}
		return nil, fmt.Errorf("no input device matching %q", hint)
	}

	for _, d := range devices {
		name := strings.ToLower(d.Name)
		if d.MaxInputChannels > 0 &&
			(strings.Contains(name, "loopback") || strings.Contains(name, "monitor")) {
			return d, nil
		}
	}
	return portaudio.DefaultInputDevice()
}

// ListCaptureDevices prints every device usable for loopback capture,
// in the same format the analysis config expects for capture_device.
func ListCaptureDevices() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}

	fmt.Printf("\nAvailable capture devices\n\n")
	for i, device := range devices {
		if device.MaxInputChannels == 0 {
			continue
		}
		fmt.Printf("[%d] %s\n", i, device.Name)
		fmt.Printf("    Input channels: %d, default sample rate: %.0f Hz\n",
			device.MaxInputChannels, device.DefaultSampleRate)
		fmt.Printf("    Latency: low=%.2fms, high=%.2fms\n",
			device.DefaultLowInputLatency.Seconds()*1000,
			device.DefaultHighInputLatency.Seconds()*1000)
		fmt.Println()
	}
	return nil
}
