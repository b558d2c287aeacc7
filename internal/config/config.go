// SPDX-License-Identifier: MIT
package config

// Boundaries and defaults for the analysis pipeline. The window and hop
// defaults give 75% overlap, which keeps the rendered curve moving
// smoothly between cycles without re-analyzing mostly unchanged audio.
const (
	DefaultWindowSize = 2048  // FFT window length N (power of two)
	DefaultHopSize    = 512   // Samples between analysis cycles (N/4)
	DefaultBins       = 128   // Display bins per spectrum
	DefaultSampleRate = 44100 // Output/analysis rate in Hz

	// Display scaling. Magnitudes are converted to dBFS and mapped
	// linearly from [FloorDB, CeilingDB] onto [0, 1].
	DefaultFloorDB   = -90.0
	DefaultCeilingDB = 0.0

	// DefaultSmoothing is the temporal blend factor applied between
	// consecutive curves: y = smoothing*new + (1-smoothing)*previous.
	DefaultSmoothing = 0.35

	// DefaultCurveDensity is the number of interpolated curve points
	// generated per display bin.
	DefaultCurveDensity = 4

	// Audible range mapped onto display bins. FFT bins outside this
	// range carry no perceptual information for the visualization.
	MinFrequency = 20.0
	MaxFrequency = 20000.0

	// Hard limits.
	MinWindowSize = 2
	MaxWindowSize = 32768
	MinBins       = 8
	MaxBins       = 1024
	MinSampleRate = 8000
	MaxSampleRate = 192000
)

// FrequencyScale selects how FFT bins are aggregated into display bins.
type FrequencyScale string

const (
	ScaleLinear FrequencyScale = "linear"
	ScaleLog    FrequencyScale = "log"
	ScaleMel    FrequencyScale = "mel"
)
