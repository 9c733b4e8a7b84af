package gesture

import (
	"math"

	"github.com/ayusman/signvision/internal/detector"
)

// DTWDistance calculates the Dynamic Time Warping distance between two frame
// sequences. Returns infinity if either sequence is empty.
// The distance is normalized by the longer sequence length.
func DTWDistance(seq1, seq2 []detector.FeatureVector) float64 {
	n := len(seq1)
	m := len(seq2)

	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// Two rolling rows of the (n+1) x (m+1) cost matrix.
	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cost := frameDistance(&seq1[i-1], &seq2[j-1])
			curr[j] = cost + min3(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}

	return prev[m] / float64(max(n, m))
}

// frameDistance sums the Euclidean distances between corresponding
// landmarks of two frames.
func frameDistance(a, b *detector.FeatureVector) float64 {
	var total float64
	for i := 0; i < detector.FeatureLen; i += 3 {
		dx := a[i] - b[i]
		dy := a[i+1] - b[i+1]
		dz := a[i+2] - b[i+2]
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
