// Package naive_bayes provides the Gaussian naive Bayes classifier.
package naive_bayes

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// GaussianNB は特徴量ごとに独立した正規分布を仮定するナイーブベイズ分類器
type GaussianNB struct {
	state        *model.StateManager
	varSmoothing float64

	classes []int
	prior   []float64   // log P(c)
	theta   [][]float64 // 平均 (n_classes x n_features)
	sigma   [][]float64 // 分散 + epsilon
}

// NewGaussianNB creates a GaussianNB. varSmoothing is the fraction of the
// largest feature variance added to every variance (sklearn default 1e-9).
func NewGaussianNB(varSmoothing float64) *GaussianNB {
	return &GaussianNB{state: model.NewStateManager(), varSmoothing: varSmoothing}
}

// Name implements model.Classifier.
func (nb *GaussianNB) Name() string { return "gaussian_nb" }

// Describe implements model.Describer.
func (nb *GaussianNB) Describe() string {
	return fmt.Sprintf("gaussian_nb(var_smoothing=%g)", nb.varSmoothing)
}

// Classes returns the sorted class labels seen in Fit.
func (nb *GaussianNB) Classes() []int { return append([]int(nil), nb.classes...) }

// Fit estimates per-class means and variances.
func (nb *GaussianNB) Fit(X mat.Matrix, y mat.Vector) error {
	n, d := X.Dims()
	if n == 0 {
		return errors.NewModelError("GaussianNB.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("GaussianNB.Fit", n, y.Len(), 0)
	}
	if nb.varSmoothing < 0 {
		return errors.NewValidationError("var_smoothing", "must be non-negative", nb.varSmoothing)
	}

	// epsilon = var_smoothing * 全体での最大分散
	col := make([]float64, n)
	maxVar := 0.0
	for j := 0; j < d; j++ {
		mat.Col(col, j, X)
		maxVar = math.Max(maxVar, stat.PopVariance(col, nil))
	}
	epsilon := nb.varSmoothing * maxVar

	nb.classes = dataset.SortedClasses(y)
	index := make(map[int]int, len(nb.classes))
	for i, c := range nb.classes {
		index[c] = i
	}
	members := make([][]int, len(nb.classes))
	for i := 0; i < n; i++ {
		c := index[int(y.AtVec(i))]
		members[c] = append(members[c], i)
	}

	nb.prior = make([]float64, len(nb.classes))
	nb.theta = make([][]float64, len(nb.classes))
	nb.sigma = make([][]float64, len(nb.classes))
	for c, idx := range members {
		nb.prior[c] = math.Log(float64(len(idx)) / float64(n))
		nb.theta[c] = make([]float64, d)
		nb.sigma[c] = make([]float64, d)
		vals := make([]float64, len(idx))
		for j := 0; j < d; j++ {
			for k, r := range idx {
				vals[k] = X.At(r, j)
			}
			mean, variance := stat.PopMeanVariance(vals, nil)
			nb.theta[c][j] = mean
			nb.sigma[c][j] = variance + epsilon
		}
	}

	nb.state.SetFitted(d, n)
	return nil
}

// jointLogLikelihood returns log P(c) + sum_j log N(x_j | theta, sigma).
// Features with zero variance in a class contribute only when they match.
func (nb *GaussianNB) jointLogLikelihood(row []float64, c int) float64 {
	ll := nb.prior[c]
	for j, x := range row {
		v := nb.sigma[c][j]
		diff := x - nb.theta[c][j]
		if v == 0 {
			if diff != 0 {
				return math.Inf(-1)
			}
			continue
		}
		ll -= 0.5*math.Log(2*math.Pi*v) + diff*diff/(2*v)
	}
	return ll
}

// Predict implements model.Classifier.
func (nb *GaussianNB) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, c := X.Dims()
	if err := nb.state.RequireFeatures("GaussianNB", "Predict", c); err != nil {
		return nil, err
	}

	out := mat.NewVecDense(r, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		best, bestLL := 0, math.Inf(-1)
		for k := range nb.classes {
			if ll := nb.jointLogLikelihood(row, k); ll > bestLL {
				best, bestLL = k, ll
			}
		}
		out.SetVec(i, float64(nb.classes[best]))
	}
	return out, nil
}

// CloneUnfitted implements model.Classifier.
func (nb *GaussianNB) CloneUnfitted() model.Classifier {
	return NewGaussianNB(nb.varSmoothing)
}
