package errors

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxReported bounds the values kept in a NumericalInstabilityError.
const maxReported = 10

// CheckMatrix returns a NumericalInstabilityError when m holds NaN or Inf.
// The scan stops at the first row containing one.
func CheckMatrix(operation string, m mat.Matrix, iteration int) error {
	r, c := m.Dims()
	var bad []float64
	for i := 0; i < r && len(bad) == 0; i++ {
		for j := 0; j < c && len(bad) < maxReported; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				bad = append(bad, v)
			}
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(operation, bad, iteration)
	}
	return nil
}
