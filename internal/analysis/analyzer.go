// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"specviz/internal/config"
)

// Spectrum is one analysis cycle's output: per display bin, the bin's
// center frequency and its magnitude normalized to [0, 1] between the
// configured floor and ceiling.
type Spectrum struct {
	Freqs []float64
	Mags  []float64
}

// Bins returns the number of display bins.
func (s *Spectrum) Bins() int {
	return len(s.Mags)
}

// Pre-allocated buffers for one analysis cycle.
type workspace struct {
	input     []float64    // windowed snapshot of the sample window
	coeffs    []complex128 // FFT complex output, N/2+1 bins
	magnitude []float64    // per-FFT-bin amplitude
	taper     []float64    // window function coefficients
}

// Analyzer performs the windowed FFT analysis cycle and folds the
// linear-frequency magnitudes into display bins. All buffers are
// allocated up front; Analyze is allocation-free.
//
// An Analyzer is owned by the analysis goroutine and is not safe for
// concurrent use.
type Analyzer struct {
	fftSize    int
	sampleRate float64
	floorDB    float64
	ceilingDB  float64

	fft       *fourier.FFT
	workspace workspace
	ampScale  float64 // 2/sum(taper): makes a full-scale sine read 0 dBFS

	// Display bin mapping, precomputed from the frequency scale.
	binLo    []int // first FFT bin of each display bin (inclusive)
	binHi    []int // last FFT bin of each display bin (exclusive)
	edges    []float64
	spectrum Spectrum
}

// NewAnalyzer builds an analyzer for the given settings. The FFT size
// must be a power of two and the sample rate positive; both are
// validated again here because the analyzer is also constructed
// directly in tests, bypassing config.Load.
func NewAnalyzer(cfg *config.AnalysisConfig, sampleRate float64) (*Analyzer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	taper, err := makeTaper(cfg.WindowFunc, cfg.WindowSize)
	if err != nil {
		return nil, err
	}

	fftSize := cfg.WindowSize
	outputSize := fftSize/2 + 1

	var taperSum float64
	for _, c := range taper {
		taperSum += c
	}

	a := &Analyzer{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		floorDB:    cfg.FloorDB,
		ceilingDB:  cfg.CeilingDB,
		fft:        fourier.NewFFT(fftSize),
		ampScale:   2 / taperSum,
		workspace: workspace{
			input:     make([]float64, fftSize),
			coeffs:    make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			taper:     taper,
		},
		spectrum: Spectrum{
			Freqs: make([]float64, cfg.Bins),
			Mags:  make([]float64, cfg.Bins),
		},
	}
	if err := a.mapBins(cfg.Bins, config.FrequencyScale(cfg.Scale)); err != nil {
		return nil, err
	}
	return a, nil
}

// mapBins precomputes, for each display bin, the FFT bin range it
// aggregates. Bin edges are spaced on the configured scale between
// MinFrequency and min(MaxFrequency, Nyquist); display bins narrower
// than one FFT bin fall back to their single nearest FFT bin.
func (a *Analyzer) mapBins(bins int, scale config.FrequencyScale) error {
	fMin := config.MinFrequency
	fMax := math.Min(config.MaxFrequency, a.sampleRate/2)
	if fMax <= fMin {
		return fmt.Errorf("sample rate %g Hz leaves no audible band to display", a.sampleRate)
	}

	a.edges = make([]float64, bins+1)
	for i := 0; i <= bins; i++ {
		frac := float64(i) / float64(bins)
		switch scale {
		case config.ScaleLinear:
			a.edges[i] = fMin + frac*(fMax-fMin)
		case config.ScaleMel:
			a.edges[i] = melToHz(hzToMel(fMin) + frac*(hzToMel(fMax)-hzToMel(fMin)))
		case config.ScaleLog:
			a.edges[i] = fMin * math.Pow(fMax/fMin, frac)
		default:
			return fmt.Errorf("unknown frequency scale %q", scale)
		}
	}

	df := a.sampleRate / float64(a.fftSize)
	maxBin := a.fftSize / 2

	a.binLo = make([]int, bins)
	a.binHi = make([]int, bins)
	for b := 0; b < bins; b++ {
		lo, hi := a.edges[b], a.edges[b+1]

		kLo := int(math.Ceil(lo / df))
		kHi := int(math.Ceil(hi / df))
		if kHi <= kLo {
			// Narrower than one FFT bin: take the nearest bin.
			kLo = int(math.Round((lo + hi) / 2 / df))
			kHi = kLo + 1
		}
		if kLo < 0 {
			kLo = 0
		}
		if kHi > maxBin+1 {
			kHi = maxBin + 1
		}
		if kLo > maxBin {
			kLo, kHi = maxBin, maxBin+1
		}
		a.binLo[b] = kLo
		a.binHi[b] = kHi

		if scale == config.ScaleLinear {
			a.spectrum.Freqs[b] = (lo + hi) / 2
		} else {
			a.spectrum.Freqs[b] = math.Sqrt(lo * hi)
		}
	}
	return nil
}

// Analyze runs one cycle over a snapshot of w and returns the resulting
// spectrum. The returned value is the analyzer's internal spectrum and
// stays valid until the next Analyze call.
func (a *Analyzer) Analyze(w *Window) *Spectrum {
	ws := &a.workspace

	// 1. Snapshot and taper.
	w.Snapshot(ws.input)
	for i := range ws.input {
		ws.input[i] *= ws.taper[i]
	}

	// 2. FFT and per-bin amplitude. Only the first N/2+1 bins carry
	// information for real input.
	a.fft.Coefficients(ws.coeffs, ws.input)
	for i, c := range ws.coeffs {
		ws.magnitude[i] = cmplx.Abs(c) * a.ampScale
	}

	// 3. Fold FFT bins into display bins and normalize to [0, 1] on a
	// dB scale so quiet and loud material use the same visual range.
	dbRange := a.ceilingDB - a.floorDB
	for b := range a.spectrum.Mags {
		var sum float64
		for k := a.binLo[b]; k < a.binHi[b]; k++ {
			sum += ws.magnitude[k]
		}
		avg := sum / float64(a.binHi[b]-a.binLo[b])

		db := 20 * math.Log10(avg+dbEpsilon)
		norm := (db - a.floorDB) / dbRange
		if norm < 0 {
			norm = 0
		} else if norm > 1 {
			norm = 1
		}
		a.spectrum.Mags[b] = norm
	}
	return &a.spectrum
}

// BinRange returns the frequency range [lo, hi) covered by display bin b.
func (a *Analyzer) BinRange(b int) (lo, hi float64) {
	return a.edges[b], a.edges[b+1]
}

// FFTSize returns the configured window length N.
func (a *Analyzer) FFTSize() int {
	return a.fftSize
}

// SampleRate returns the configured sample rate in Hz.
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}

// dbEpsilon keeps log10 finite on all-zero input; it sits far below any
// usable floor so silence always clamps to 0.
const dbEpsilon = 1e-12

// Mel conversions per O'Shaughnessy's formula.
func hzToMel(hz float64) float64 {
	return 1127 * math.Log(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Exp(mel/1127) - 1)
}
