package engine

import "math"

// Round rounds half up, so 22.5 becomes 23 and -2.5 becomes -2.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Impact is the score contribution of a rule at the given confidence.
func Impact(baseWeight, confidence int) int {
	return Round(float64(baseWeight) * float64(confidence) / 100)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
