// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func flatSpectrum(bins int, level float64) *Spectrum {
	s := &Spectrum{
		Freqs: make([]float64, bins),
		Mags:  make([]float64, bins),
	}
	for i := range s.Mags {
		s.Mags[i] = level
	}
	return s
}

func TestNewSmootherErrors(t *testing.T) {
	tests := []struct {
		name    string
		bins    int
		density int
		blend   float64
	}{
		{"too few bins", 1, 4, 0.35},
		{"zero density", 16, 0, 0.35},
		{"zero blend", 16, 4, 0},
		{"blend above one", 16, 4, 1.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSmoother(tt.bins, tt.density, tt.blend); err == nil {
				t.Errorf("NewSmoother(%d, %d, %g) should fail", tt.bins, tt.density, tt.blend)
			}
		})
	}
}

func TestSmoothPointCount(t *testing.T) {
	s, err := NewSmoother(16, 4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.PointCount() != 61 {
		t.Fatalf("PointCount() = %d, expected 61", s.PointCount())
	}

	curve := s.Smooth(flatSpectrum(16, 0.5), nil)
	if len(curve.Points) != 61 {
		t.Errorf("curve has %d points, expected 61", len(curve.Points))
	}
}

func TestSmoothIsDeterministic(t *testing.T) {
	s, _ := NewSmoother(32, 4, 0.35)

	spec := flatSpectrum(32, 0)
	for i := range spec.Mags {
		spec.Mags[i] = 0.5 + 0.4*math.Sin(float64(i)/3)
	}

	a := s.Smooth(spec, nil)
	b := s.Smooth(spec, nil)
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			t.Fatalf("point %d differs between identical runs: %+v vs %+v",
				i, a.Points[i], b.Points[i])
		}
	}
}

func TestSmoothFlatSpectrumStaysFlat(t *testing.T) {
	s, _ := NewSmoother(16, 4, 1)
	curve := s.Smooth(flatSpectrum(16, 0.5), nil)

	for i, p := range curve.Points {
		if math.Abs(p.Y-0.5) > 1e-9 {
			t.Fatalf("point %d y = %g, expected 0.5 on a flat spectrum", i, p.Y)
		}
	}
	if curve.Points[0].X != 0 || curve.Points[len(curve.Points)-1].X != 1 {
		t.Errorf("curve x range [%g, %g], expected [0, 1]",
			curve.Points[0].X, curve.Points[len(curve.Points)-1].X)
	}
}

func TestSmoothInterpolatesThroughBins(t *testing.T) {
	const bins, density = 16, 4
	s, _ := NewSmoother(bins, density, 1)

	spec := flatSpectrum(bins, 0)
	for i := range spec.Mags {
		spec.Mags[i] = float64(i) / float64(bins-1)
	}
	curve := s.Smooth(spec, nil)

	// Every bin magnitude appears verbatim at its knot position.
	for b := 0; b < bins; b++ {
		got := curve.Points[b*density].Y
		if math.Abs(got-spec.Mags[b]) > 1e-6 {
			t.Errorf("knot %d y = %g, expected %g", b, got, spec.Mags[b])
		}
	}
}

func TestSmoothEasesTowardPrevious(t *testing.T) {
	const blend = 0.25
	s, _ := NewSmoother(16, 4, blend)

	prev := s.Smooth(flatSpectrum(16, 0), nil)
	curve := s.Smooth(flatSpectrum(16, 1), prev)

	// y = blend*1 + (1-blend)*0 = blend on every point.
	for i, p := range curve.Points {
		if math.Abs(p.Y-blend) > 1e-9 {
			t.Fatalf("point %d y = %g, expected %g", i, p.Y, blend)
		}
	}

	// A prev of the wrong shape is ignored rather than blended.
	other, _ := NewSmoother(16, 2, blend)
	stale := other.Smooth(flatSpectrum(16, 0), nil)
	curve = s.Smooth(flatSpectrum(16, 1), stale)
	for i, p := range curve.Points {
		if math.Abs(p.Y-1) > 1e-9 {
			t.Fatalf("point %d y = %g, expected 1 with mismatched prev", i, p.Y)
		}
	}
}

func TestSmoothClampsToUnitRange(t *testing.T) {
	s, _ := NewSmoother(8, 8, 1)

	spec := flatSpectrum(8, 0)
	copy(spec.Mags, []float64{0, 1, 0, 1, 0, 1, 0, 1})

	curve := s.Smooth(spec, nil)
	for i, p := range curve.Points {
		if p.Y < 0 || p.Y > 1 {
			t.Fatalf("point %d y = %g outside [0, 1]", i, p.Y)
		}
	}
}

func TestSmoothBinMismatchPanics(t *testing.T) {
	s, _ := NewSmoother(16, 4, 1)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched bin count")
		}
	}()
	s.Smooth(flatSpectrum(8, 0.5), nil)
}

func BenchmarkSmooth(b *testing.B) {
	s, _ := NewSmoother(128, 4, 0.35)
	spec := flatSpectrum(128, 0)
	for i := range spec.Mags {
		spec.Mags[i] = 0.5 + 0.4*math.Sin(float64(i)/5)
	}

	var prev *Curve
	b.ReportAllocs()
	for b.Loop() {
		prev = s.Smooth(spec, prev)
	}
}
