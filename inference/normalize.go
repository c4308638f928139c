package inference

import "slices"

// DefaultEpsilon keeps the smallest normalized potential strictly positive.
const DefaultEpsilon = 1e-5

// Normalize returns a working copy of gradient shifted into (0, +inf) and the
// shift that was subtracted: working[i] = gradient[i] - shift with
// shift = min(gradient) - eps. A decoded score is restored by adding
// shift once per edge.
func Normalize(gradient []float64, eps float64) ([]float64, float64) {
	if len(gradient) == 0 {
		return nil, 0
	}
	shift := slices.Min(gradient) - eps
	working := make([]float64, len(gradient))
	for i, v := range gradient {
		working[i] = v - shift
	}
	return working, shift
}
