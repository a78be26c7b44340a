// Package similarity implements the Hamming-based comparison kernel
// (C5) used to compare two perceptual fingerprints.
package similarity

import "math/bits"

// Percentage compares the first min(len(a), len(b)) elements of two
// fingerprints and returns a similarity score in [0, 100].
//
// Shorter fingerprints (from shorter source audio) are handled by
// truncating the longer one rather than penalising the comparison.
// minElements is the configured reliability floor below which the
// comparison is considered too short to mean anything and 0 is
// returned.
func Percentage(a, b []uint32, minElements int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	l := len(a)
	if len(b) < l {
		l = len(b)
	}

	if l < minElements {
		return 0
	}

	var distance uint64
	for i := 0; i < l; i++ {
		distance += uint64(bits.OnesCount32(a[i] ^ b[i]))
	}

	maxDistance := float64(32 * l)
	return (1 - float64(distance)/maxDistance) * 100
}
