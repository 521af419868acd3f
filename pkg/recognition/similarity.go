package recognition

import "math"

// Result is the outcome of comparing two face descriptors.
type Result struct {
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"` // percentage in [0,100]
	Match      bool    `json:"match"`
}

// EuclideanDistance calculates the Euclidean distance between two descriptors.
func EuclideanDistance(d1, d2 Descriptor) float64 {
	if len(d1) != len(d2) {
		return math.MaxFloat64
	}

	var sum float64
	for i := range d1 {
		diff := float64(d1[i] - d2[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Similarity maps a descriptor distance to a percentage,
// clamped to [0,100]. A distance of 0 is 100%, a distance
// of 1 or more is 0%.
func Similarity(distance float64) float64 {
	percent := (1 - distance) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// Score compares two descriptors against a threshold. The threshold
// itself is excluded: a distance exactly at the threshold is no match.
func Score(ref, probe Descriptor, threshold float64) Result {
	distance := EuclideanDistance(ref, probe)
	return Result{
		Distance:   distance,
		Similarity: Similarity(distance),
		Match:      distance < threshold,
	}
}
