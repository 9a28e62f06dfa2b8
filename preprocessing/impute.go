package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// Imputation strategies.
const (
	StrategyMean   = "mean"
	StrategyMedian = "median"
)

// SimpleImputer replaces NaN cells with a per-column statistic learned on
// the training rows. Columns with no observed value are dropped.
type SimpleImputer struct {
	state    *model.StateManager
	strategy string

	fill []float64
	keep []int
}

// NewSimpleImputer creates an imputer for "mean" or "median".
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{state: model.NewStateManager(), strategy: strategy}
}

// Name implements model.Stage.
func (s *SimpleImputer) Name() string { return "imputer" }

// Describe implements model.Describer.
func (s *SimpleImputer) Describe() string { return fmt.Sprintf("imputer(strategy=%s)", s.strategy) }

// Fit implements model.Stage.
func (s *SimpleImputer) Fit(X mat.Matrix, _ mat.Vector) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	if s.strategy != StrategyMean && s.strategy != StrategyMedian {
		return errors.NewValidationError("strategy", "must be mean or median", s.strategy)
	}

	s.fill = make([]float64, c)
	s.keep = s.keep[:0]
	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			continue
		}
		s.keep = append(s.keep, j)
		s.fill[j] = statistic(s.strategy, observed)
	}
	if len(s.keep) < c {
		errors.Warn(errors.NewDataConversionWarning("all-missing column", "dropped",
			fmt.Sprintf("%d of %d columns have no observed value", c-len(s.keep), c)))
	}

	s.state.SetFitted(c, r)
	return nil
}

func statistic(strategy string, values []float64) float64 {
	if strategy == StrategyMedian {
		sort.Float64s(values)
		n := len(values)
		if n%2 == 1 {
			return values[n/2]
		}
		return (values[n/2-1] + values[n/2]) / 2
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Transform implements model.Stage.
func (s *SimpleImputer) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := s.state.RequireFeatures("SimpleImputer", "Transform", c); err != nil {
		return nil, err
	}
	if len(s.keep) == 0 {
		return nil, errors.NewValueError("SimpleImputer.Transform", "every column is missing")
	}

	out := mat.NewDense(r, len(s.keep), nil)
	for i := 0; i < r; i++ {
		for k, j := range s.keep {
			v := X.At(i, j)
			if math.IsNaN(v) {
				v = s.fill[j]
			}
			out.Set(i, k, v)
		}
	}
	return out, nil
}

// CloneUnfitted implements model.Stage.
func (s *SimpleImputer) CloneUnfitted() model.Stage {
	return NewSimpleImputer(s.strategy)
}
