package neighbors

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/core/parallel"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// KNeighborsClassifier predicts the majority label among the k nearest
// training samples. Vote ties go to the smallest label.
type KNeighborsClassifier struct {
	state *model.StateManager
	k     int

	X *mat.Dense
	y []int
}

// NewKNeighborsClassifier creates a classifier with k neighbors (sklearn
// default 5).
func NewKNeighborsClassifier(k int) *KNeighborsClassifier {
	return &KNeighborsClassifier{state: model.NewStateManager(), k: k}
}

// Name implements model.Classifier.
func (m *KNeighborsClassifier) Name() string { return "knn" }

// Describe implements model.Describer.
func (m *KNeighborsClassifier) Describe() string { return fmt.Sprintf("knn(n_neighbors=%d)", m.k) }

// Fit stores the training data. This is the "lazy" part of a KNN model.
func (m *KNeighborsClassifier) Fit(X mat.Matrix, y mat.Vector) error {
	n, d := X.Dims()
	if n == 0 {
		return errors.NewModelError("KNeighborsClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("KNeighborsClassifier.Fit", n, y.Len(), 0)
	}
	if m.k < 1 {
		return errors.NewValidationError("n_neighbors", "must be at least 1", m.k)
	}

	m.X = mat.DenseCopyOf(X)
	m.y = make([]int, n)
	for i := range m.y {
		m.y[i] = int(y.AtVec(i))
	}
	m.state.SetFitted(d, n)
	return nil
}

// Predict implements model.Classifier. Rows are predicted in parallel.
func (m *KNeighborsClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, c := X.Dims()
	if err := m.state.RequireFeatures("KNeighborsClassifier", "Predict", c); err != nil {
		return nil, err
	}

	k := m.k
	if n := len(m.y); k > n {
		k = n
	}
	out := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, 32, func(start, end int) {
		query := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(query, i, X)
			out.SetVec(i, float64(m.vote(KNearest(m.X, query, k))))
		}
	})
	return out, nil
}

func (m *KNeighborsClassifier) vote(nbrs []Neighbor) int {
	counts := make(map[int]int)
	for _, nb := range nbrs {
		counts[m.y[nb.Index]]++
	}
	labels := make([]int, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	best := labels[0]
	for _, l := range labels[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best
}

// CloneUnfitted implements model.Classifier.
func (m *KNeighborsClassifier) CloneUnfitted() model.Classifier {
	return NewKNeighborsClassifier(m.k)
}
