// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Point is one interpolated curve point. Both coordinates are
// normalized to [0, 1]; the renderer maps them onto its surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is the smoothed, renderable form of one Spectrum: enough
// interpolated points for the renderer to draw bezier segments without
// visible corners at typical bin counts.
//
// A Curve is immutable once returned from Smooth; the smoother
// allocates a fresh one per cycle precisely so a published curve can be
// read at any time without coordination.
type Curve struct {
	Points []Point `json:"points"`
}

// Smoother fits a monotone cubic spline through a Spectrum's bin
// magnitudes and samples it at a higher density, optionally easing
// toward the previous curve so consecutive cycles do not jump.
//
// Smooth is deterministic: identical inputs produce bit-identical
// curves.
type Smoother struct {
	bins    int
	density int
	blend   float64

	xs     []float64 // spline knots: bin positions on [0, 1]
	ys     []float64
	spline interp.FritschButland
}

// NewSmoother creates a smoother producing (bins-1)*density+1 points
// per curve. blend is the temporal easing factor in (0, 1]: 1 disables
// easing, smaller values favor the previous curve.
func NewSmoother(bins, density int, blend float64) (*Smoother, error) {
	if bins < 2 {
		return nil, fmt.Errorf("smoother needs at least 2 bins, got %d", bins)
	}
	if density < 1 {
		return nil, fmt.Errorf("curve density must be at least 1, got %d", density)
	}
	if blend <= 0 || blend > 1 {
		return nil, fmt.Errorf("blend factor must be in (0, 1], got %g", blend)
	}

	xs := make([]float64, bins)
	for i := range xs {
		xs[i] = float64(i) / float64(bins-1)
	}
	return &Smoother{
		bins:    bins,
		density: density,
		blend:   blend,
		xs:      xs,
		ys:      make([]float64, bins),
	}, nil
}

// PointCount returns the number of points in each produced curve.
func (s *Smoother) PointCount() int {
	return (s.bins-1)*s.density + 1
}

// Smooth interpolates spec into a new Curve. If prev is a curve of the
// same point count, the result is eased toward it:
// y = blend*new + (1-blend)*prev. Passing nil prev (first cycle, or
// after a Clear) returns the un-eased curve.
func (s *Smoother) Smooth(spec *Spectrum, prev *Curve) *Curve {
	if spec.Bins() != s.bins {
		panic(fmt.Sprintf("analysis: spectrum has %d bins, smoother expects %d", spec.Bins(), s.bins))
	}

	copy(s.ys, spec.Mags)
	// Fit cannot fail: knots are fixed and strictly increasing.
	if err := s.spline.Fit(s.xs, s.ys); err != nil {
		panic(fmt.Sprintf("analysis: spline fit: %v", err))
	}

	n := s.PointCount()
	curve := &Curve{Points: make([]Point, n)}

	ease := prev != nil && len(prev.Points) == n
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		y := s.spline.Predict(x)

		// FritschButland is monotone between knots and cannot
		// overshoot, but clamp anyway to keep the contract explicit.
		if y < 0 {
			y = 0
		} else if y > 1 {
			y = 1
		}
		if ease {
			y = s.blend*y + (1-s.blend)*prev.Points[i].Y
		}
		curve.Points[i] = Point{X: x, Y: y}
	}
	return curve
}
