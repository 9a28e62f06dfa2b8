package evaluation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// ResultSet maps each metric name to one value per fold, in fold order.
// It is read-only once Evaluate returns; accessors hand out copies.
type ResultSet struct {
	RunID    string
	Strategy string

	names  []string
	values [][]float64 // [metric][fold]
}

// NewResultSet builds a ResultSet from perFold[fold][metric] scores.
func NewResultSet(runID, strategy string, names []string, perFold [][]float64) *ResultSet {
	values := make([][]float64, len(names))
	for m := range names {
		values[m] = make([]float64, len(perFold))
		for f, scores := range perFold {
			values[m][f] = scores[m]
		}
	}
	return &ResultSet{RunID: runID, Strategy: strategy, names: append([]string(nil), names...), values: values}
}

// Names returns the metric names in registry order.
func (r *ResultSet) Names() []string { return append([]string(nil), r.names...) }

// Len returns the number of folds.
func (r *ResultSet) Len() int {
	if len(r.values) == 0 {
		return 0
	}
	return len(r.values[0])
}

func (r *ResultSet) index(name string) (int, error) {
	for i, n := range r.names {
		if n == name {
			return i, nil
		}
	}
	return -1, errors.NewConfigurationErrorf("ResultSet", "metric %q was not evaluated", name)
}

// Values returns a copy of the per-fold values of name.
func (r *ResultSet) Values(name string) ([]float64, error) {
	i, err := r.index(name)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), r.values[i]...), nil
}

// Mean returns the mean over folds of name.
func (r *ResultSet) Mean(name string) (float64, error) {
	i, err := r.index(name)
	if err != nil {
		return 0, err
	}
	return stat.Mean(r.values[i], nil), nil
}

// Std returns the population standard deviation over folds of name, the
// same estimator sklearn reports as std_test_score.
func (r *ResultSet) Std(name string) (float64, error) {
	i, err := r.index(name)
	if err != nil {
		return 0, err
	}
	_, variance := stat.PopMeanVariance(r.values[i], nil)
	return math.Sqrt(variance), nil
}

// Rows returns one row per fold with values in Names order.
func (r *ResultSet) Rows() [][]float64 {
	rows := make([][]float64, r.Len())
	for f := range rows {
		rows[f] = make([]float64, len(r.names))
		for m := range r.names {
			rows[f][m] = r.values[m][f]
		}
	}
	return rows
}
