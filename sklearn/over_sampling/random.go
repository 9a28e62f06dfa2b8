// Package over_sampling balances class counts in training folds by
// duplicating or synthesizing minority samples.
package over_sampling

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// classPlan is the per-class work of a balancing pass. Classes needing no
// new samples are omitted.
type classPlan struct {
	label   int
	members []int
	need    int
}

// plan returns, in ascending label order, every class whose count is below
// the majority count together with the number of samples it lacks.
func plan(y mat.Vector) []classPlan {
	members := make(map[int][]int)
	for i := 0; i < y.Len(); i++ {
		l := int(y.AtVec(i))
		members[l] = append(members[l], i)
	}
	majority := 0
	for _, idx := range members {
		if len(idx) > majority {
			majority = len(idx)
		}
	}
	var out []classPlan
	for _, label := range dataset.SortedClasses(y) {
		if need := majority - len(members[label]); need > 0 {
			out = append(out, classPlan{label: label, members: members[label], need: need})
		}
	}
	return out
}

func validateInput(op string, X mat.Matrix, y mat.Vector) error {
	n, _ := X.Dims()
	if n == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError(op, n, y.Len(), 0)
	}
	return nil
}

// appendRows returns X and y with extra rows appended in order.
func appendRows(X mat.Matrix, y mat.Vector, extra [][]float64, labels []float64) (*mat.Dense, *mat.VecDense) {
	n, d := X.Dims()
	outX := mat.NewDense(n+len(extra), d, nil)
	outY := mat.NewVecDense(n+len(extra), nil)
	outX.Slice(0, n, 0, d).(*mat.Dense).Copy(X)
	for i := 0; i < n; i++ {
		outY.SetVec(i, y.AtVec(i))
	}
	for i, row := range extra {
		outX.SetRow(n+i, row)
		outY.SetVec(n+i, labels[i])
	}
	return outX, outY
}

// RandomOverSampler duplicates uniformly drawn minority samples until every
// class reaches the majority count.
type RandomOverSampler struct {
	seed uint64
	rng  *rand.Rand
}

// NewRandomOverSampler creates a sampler with a fixed seed.
func NewRandomOverSampler(seed uint64) *RandomOverSampler {
	return &RandomOverSampler{seed: seed, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Name implements model.Resampler.
func (r *RandomOverSampler) Name() string { return "random_over_sampler" }

// Describe implements model.Describer.
func (r *RandomOverSampler) Describe() string {
	return fmt.Sprintf("random_over_sampler(random_state=%d)", r.seed)
}

// FitResample implements model.Resampler. The original rows come first,
// followed by duplicates grouped by ascending class label.
func (r *RandomOverSampler) FitResample(X mat.Matrix, y mat.Vector) (*mat.Dense, *mat.VecDense, error) {
	if err := validateInput("RandomOverSampler.FitResample", X, y); err != nil {
		return nil, nil, err
	}
	var extra [][]float64
	var labels []float64
	for _, cp := range plan(y) {
		for s := 0; s < cp.need; s++ {
			src := cp.members[r.rng.IntN(len(cp.members))]
			extra = append(extra, mat.Row(nil, src, X))
			labels = append(labels, float64(cp.label))
		}
	}
	outX, outY := appendRows(X, y, extra, labels)
	return outX, outY, nil
}

// CloneUnfitted implements model.Resampler. The clone restarts the random
// stream from the same seed.
func (r *RandomOverSampler) CloneUnfitted() model.Resampler {
	return NewRandomOverSampler(r.seed)
}
