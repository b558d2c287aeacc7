// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// makeTaper returns the coefficients of the named window function.
// Names are case-insensitive; Hann is the conventional default for
// spectrum display and what the config defaults to.
func makeTaper(name string, size int) ([]float64, error) {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}

	switch strings.ToLower(name) {
	case "", "hann", "hanning":
		window.Hann(coeffs)
	case "hamming":
		window.Hamming(coeffs)
	case "blackman":
		window.Blackman(coeffs)
	case "blackmannuttall":
		window.BlackmanNuttall(coeffs)
	case "nuttall":
		window.Nuttall(coeffs)
	case "lanczos":
		window.Lanczos(coeffs)
	case "rectangular", "none":
		// Identity taper, useful for tests that need exact bin energy.
	default:
		return nil, fmt.Errorf("unknown window function %q", name)
	}
	return coeffs, nil
}
