package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// constantVar 以下の分散は 0 とみなし、その列のスケールは 1 にする
const constantVar = 1e-24

// StandardScaler は各列を (x - mean) / std に変換する。std は母標準偏差。
type StandardScaler struct {
	state *model.StateManager

	WithMean bool
	WithStd  bool

	// Fit 後に埋まる
	Mean  []float64
	Scale []float64
}

// NewStandardScaler creates a scaler; both flags true matches sklearn.
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{state: model.NewStateManager(), WithMean: withMean, WithStd: withStd}
}

// NewStandardScalerDefault centers and scales.
func NewStandardScalerDefault() *StandardScaler { return NewStandardScaler(true, true) }

// Name implements model.Stage.
func (s *StandardScaler) Name() string { return "standard_scaler" }

// Describe implements model.Describer.
func (s *StandardScaler) Describe() string {
	return fmt.Sprintf("standard_scaler(with_mean=%t,with_std=%t)", s.WithMean, s.WithStd)
}

// Fit records per-column statistics. y is ignored.
func (s *StandardScaler) Fit(X mat.Matrix, _ mat.Vector) error {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Mean, s.Scale = make([]float64, d), make([]float64, d)
	col := make([]float64, n)
	for j := range s.Mean {
		mat.Col(col, j, X)
		mu, v := stat.PopMeanVariance(col, nil)
		if s.WithMean {
			s.Mean[j] = mu
		}
		s.Scale[j] = 1
		if s.WithStd && v > constantVar {
			s.Scale[j] = math.Sqrt(v)
		}
	}
	s.state.SetFitted(d, n)
	return nil
}

func (s *StandardScaler) apply(method string, X mat.Matrix, f func(v float64, j int) float64) (*mat.Dense, error) {
	n, d := X.Dims()
	if err := s.state.RequireFeatures("StandardScaler", method, d); err != nil {
		return nil, err
	}
	out := mat.NewDense(n, d, nil)
	out.Apply(func(_, j int, v float64) float64 { return f(v, j) }, X)
	return out, nil
}

// Transform implements model.Stage.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	return s.apply("Transform", X, func(v float64, j int) float64 { return (v - s.Mean[j]) / s.Scale[j] })
}

// InverseTransform undoes Transform.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	return s.apply("InverseTransform", X, func(v float64, j int) float64 { return v*s.Scale[j] + s.Mean[j] })
}

// CloneUnfitted implements model.Stage.
func (s *StandardScaler) CloneUnfitted() model.Stage {
	return NewStandardScaler(s.WithMean, s.WithStd)
}
