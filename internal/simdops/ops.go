// Package simdops wraps the SIMD kernels the synthesizer needs behind plain
// float64 helpers. The indirection keeps github.com/tphakala/simd out of the
// synth code proper and gives tests one place to cross-check against naive
// loops.
package simdops

import "github.com/tphakala/simd/f64"

// Scale multiplies each element by s: dst[i] = a[i] * s.
// dst and a must have equal length; dst may alias a.
func Scale(dst, a []float64, s float64) {
	f64.Scale(dst, a, s)
}

// Energy returns the sum of squares of a, the signal energy. Used for RMS
// metering of rendered bursts.
func Energy(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return f64.DotProductUnsafe(a, a)
}
