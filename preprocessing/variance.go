package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// VarianceThreshold drops features whose training variance is not greater
// than Threshold. The default threshold 0 removes constant features.
type VarianceThreshold struct {
	state     *model.StateManager
	Threshold float64

	Variances []float64
	keep      []int
}

// NewVarianceThreshold creates a VarianceThreshold stage.
func NewVarianceThreshold(threshold float64) *VarianceThreshold {
	return &VarianceThreshold{state: model.NewStateManager(), Threshold: threshold}
}

// Name implements model.Stage.
func (v *VarianceThreshold) Name() string { return "var_thresh" }

// Describe implements model.Describer.
func (v *VarianceThreshold) Describe() string {
	return fmt.Sprintf("var_thresh(threshold=%g)", v.Threshold)
}

// Fit implements model.Stage. It fails when no feature passes.
func (v *VarianceThreshold) Fit(X mat.Matrix, _ mat.Vector) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("VarianceThreshold.Fit", "empty data", errors.ErrEmptyData)
	}

	v.Variances = make([]float64, c)
	v.keep = v.keep[:0]
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		v.Variances[j] = stat.PopVariance(col, nil)
		if v.Variances[j] > v.Threshold {
			v.keep = append(v.keep, j)
		}
	}
	if len(v.keep) == 0 {
		return errors.NewValueError("VarianceThreshold.Fit",
			fmt.Sprintf("no feature in X meets the variance threshold %g", v.Threshold))
	}

	v.state.SetFitted(c, r)
	return nil
}

// Support returns the indices of the retained features.
func (v *VarianceThreshold) Support() []int {
	return append([]int(nil), v.keep...)
}

// Transform implements model.Stage.
func (v *VarianceThreshold) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := v.state.RequireFeatures("VarianceThreshold", "Transform", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, len(v.keep), nil)
	for i := 0; i < r; i++ {
		for k, j := range v.keep {
			out.Set(i, k, X.At(i, j))
		}
	}
	return out, nil
}

// CloneUnfitted implements model.Stage.
func (v *VarianceThreshold) CloneUnfitted() model.Stage {
	return NewVarianceThreshold(v.Threshold)
}
