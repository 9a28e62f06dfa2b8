// Package feature_selection provides univariate feature scoring and the
// SelectKBest / SelectFdr selection stages.
package feature_selection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/cvbench/core/parallel"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// ScoreFunc scores every column of X against y. pvalues may be nil for
// statistics without a null distribution.
type ScoreFunc func(X mat.Matrix, y mat.Vector) (scores, pvalues []float64, err error)

// Scorer is a named ScoreFunc.
type Scorer struct {
	Name string
	Func ScoreFunc
}

// Built-in scorers.
var (
	FClassif = Scorer{Name: "f_classif", Func: fClassif}
	Chi2     = Scorer{Name: "chi2", Func: chi2}
	ReliefF  = Scorer{Name: "relief_f", Func: reliefF(10)}
	Variance = Scorer{Name: "variance", Func: varianceScore}
)

func checkXY(op string, X mat.Matrix, y mat.Vector) (int, int, error) {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return 0, 0, errors.NewValueError(op, "empty data")
	}
	if y.Len() != n {
		return 0, 0, errors.NewDimensionError(op, n, y.Len(), 0)
	}
	return n, d, nil
}

// groupByClass returns the row indices of each class, classes ascending.
func groupByClass(y mat.Vector) ([]int, [][]int) {
	byClass := make(map[int][]int)
	for i := 0; i < y.Len(); i++ {
		c := int(y.AtVec(i))
		byClass[c] = append(byClass[c], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	groups := make([][]int, len(classes))
	for i, c := range classes {
		groups[i] = byClass[c]
	}
	return classes, groups
}

// fClassif computes the one-way ANOVA F statistic per feature.
func fClassif(X mat.Matrix, y mat.Vector) ([]float64, []float64, error) {
	n, d, err := checkXY("f_classif", X, y)
	if err != nil {
		return nil, nil, err
	}
	_, groups := groupByClass(y)
	nClasses := len(groups)
	if nClasses < 2 || n <= nClasses {
		return nil, nil, errors.NewValueError("f_classif", "need at least two classes and more samples than classes")
	}

	dfBetween := float64(nClasses - 1)
	dfWithin := float64(n - nClasses)
	fdist := distuv.F{D1: dfBetween, D2: dfWithin}

	scores := make([]float64, d)
	pvalues := make([]float64, d)
	for j := 0; j < d; j++ {
		var total float64
		for i := 0; i < n; i++ {
			total += X.At(i, j)
		}
		grand := total / float64(n)

		var ssb, ssw float64
		for _, rows := range groups {
			var sum float64
			for _, i := range rows {
				sum += X.At(i, j)
			}
			mean := sum / float64(len(rows))
			ssb += float64(len(rows)) * (mean - grand) * (mean - grand)
			for _, i := range rows {
				diff := X.At(i, j) - mean
				ssw += diff * diff
			}
		}

		switch {
		case ssw == 0 && ssb == 0:
			scores[j], pvalues[j] = math.NaN(), math.NaN()
		case ssw == 0:
			scores[j], pvalues[j] = math.Inf(1), 0
		default:
			f := (ssb / dfBetween) / (ssw / dfWithin)
			scores[j] = f
			pvalues[j] = fdist.Survival(f)
		}
	}
	return scores, pvalues, nil
}

// chi2 computes the chi-squared statistic between each feature and the
// class. Columns with negative values are shifted so their minimum is 0.
func chi2(X mat.Matrix, y mat.Vector) ([]float64, []float64, error) {
	n, d, err := checkXY("chi2", X, y)
	if err != nil {
		return nil, nil, err
	}
	_, groups := groupByClass(y)
	if len(groups) < 2 {
		return nil, nil, errors.NewValueError("chi2", "need at least two classes")
	}
	dist := distuv.ChiSquared{K: float64(len(groups) - 1)}

	scores := make([]float64, d)
	pvalues := make([]float64, d)
	for j := 0; j < d; j++ {
		shift := 0.0
		for i := 0; i < n; i++ {
			if v := X.At(i, j); v < shift {
				shift = v
			}
		}

		observed := make([]float64, len(groups))
		var total float64
		for c, rows := range groups {
			for _, i := range rows {
				observed[c] += X.At(i, j) - shift
			}
			total += observed[c]
		}
		if total == 0 {
			scores[j], pvalues[j] = math.NaN(), math.NaN()
			continue
		}

		var chi float64
		for c, rows := range groups {
			expected := total * float64(len(rows)) / float64(n)
			diff := observed[c] - expected
			chi += diff * diff / expected
		}
		scores[j] = chi
		pvalues[j] = dist.Survival(chi)
	}
	return scores, pvalues, nil
}

// varianceScore ranks features by their population variance.
func varianceScore(X mat.Matrix, y mat.Vector) ([]float64, []float64, error) {
	n, d, err := checkXY("variance", X, y)
	if err != nil {
		return nil, nil, err
	}
	scores := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, X)
		scores[j] = stat.PopVariance(col, nil)
	}
	return scores, nil, nil
}

// reliefF returns the ReliefF weight estimator with k nearest hits and k
// nearest misses per other class, Manhattan distance on range-normalized
// features, and misses weighted by class prior.
func reliefF(k int) ScoreFunc {
	return func(X mat.Matrix, y mat.Vector) ([]float64, []float64, error) {
		n, d, err := checkXY("relief_f", X, y)
		if err != nil {
			return nil, nil, err
		}
		if k < 1 {
			return nil, nil, errors.NewValidationError("n_neighbors", "must be at least 1", k)
		}

		span := make([]float64, d)
		for j := 0; j < d; j++ {
			lo, hi := math.Inf(1), math.Inf(-1)
			for i := 0; i < n; i++ {
				v := X.At(i, j)
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
			span[j] = hi - lo
		}
		diff := func(j, a, b int) float64 {
			if span[j] == 0 {
				return 0
			}
			return math.Abs(X.At(a, j)-X.At(b, j)) / span[j]
		}

		classes, groups := groupByClass(y)
		labels := make([]int, n)
		prior := make(map[int]float64, len(classes))
		for c, rows := range groups {
			for _, i := range rows {
				labels[i] = classes[c]
			}
			prior[classes[c]] = float64(len(rows)) / float64(n)
		}

		// Each instance contributes one row; rows are summed afterwards.
		contrib := mat.NewDense(n, d, nil)
		parallel.Parallelize(n, 0, func(start, end int) {
			dist := make([]float64, n)
			for i := start; i < end; i++ {
				for o := 0; o < n; o++ {
					var s float64
					for j := 0; j < d; j++ {
						s += diff(j, i, o)
					}
					dist[o] = s
				}

				byClass := make(map[int][]int)
				for o := 0; o < n; o++ {
					if o != i {
						byClass[labels[o]] = append(byClass[labels[o]], o)
					}
				}

				row := contrib.RawRowView(i)
				for _, c := range classes {
					others := byClass[c]
					if len(others) == 0 {
						continue
					}
					sort.SliceStable(others, func(a, b int) bool { return dist[others[a]] < dist[others[b]] })
					m := k
					if m > len(others) {
						m = len(others)
					}
					weight := -1.0 / float64(m)
					if c != labels[i] {
						weight = prior[c] / (1 - prior[labels[i]]) / float64(m)
					}
					for _, o := range others[:m] {
						for j := 0; j < d; j++ {
							row[j] += weight * diff(j, i, o)
						}
					}
				}
			}
		})

		scores := make([]float64, d)
		for i := 0; i < n; i++ {
			for j, v := range contrib.RawRowView(i) {
				scores[j] += v / float64(n)
			}
		}
		return scores, nil, nil
	}
}
