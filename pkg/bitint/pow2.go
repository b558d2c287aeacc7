/*
Package bitint provides power-of-two helpers for FFT and buffer sizing.

All operations are O(1), allocation-free and safe to call from the
audio callback path.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Exact powers of two are preserved; non-positive input returns 1.
//
// The size-1 subtraction is what preserves exact powers of two: for 8,
// bits.Len64(7) = 3 and 1<<3 = 8, whereas bits.Len64(8) = 4 would
// incorrectly double the input.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so n & (n-1) clears it.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
