package over_sampling

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
	"github.com/YuminosukeSato/cvbench/sklearn/neighbors"
)

// SMOTE synthesizes minority samples on the segment between a sample and one
// of its k nearest same-class neighbors.
type SMOTE struct {
	k    int
	seed uint64
	rng  *rand.Rand
}

// NewSMOTE creates a SMOTE resampler with k neighbors (imblearn default 5).
func NewSMOTE(k int, seed uint64) *SMOTE {
	return &SMOTE{k: k, seed: seed, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Name implements model.Resampler.
func (s *SMOTE) Name() string { return "smote" }

// Describe implements model.Describer.
func (s *SMOTE) Describe() string {
	return fmt.Sprintf("smote(k_neighbors=%d,random_state=%d)", s.k, s.seed)
}

// FitResample implements model.Resampler. A class that needs new samples
// must have at least 2 members; k is reduced to count-1 for small classes.
func (s *SMOTE) FitResample(X mat.Matrix, y mat.Vector) (*mat.Dense, *mat.VecDense, error) {
	if err := validateInput("SMOTE.FitResample", X, y); err != nil {
		return nil, nil, err
	}
	if s.k < 1 {
		return nil, nil, errors.NewValidationError("k_neighbors", "must be at least 1", s.k)
	}

	var extra [][]float64
	var labels []float64
	for _, cp := range plan(y) {
		if len(cp.members) < 2 {
			return nil, nil, errors.NewValueError("SMOTE.FitResample",
				fmt.Sprintf("class %d has %d sample(s); at least 2 are needed", cp.label, len(cp.members)))
		}
		k := s.k
		if k > len(cp.members)-1 {
			log.GetLoggerWithName("over_sampling").Warn("SMOTE neighbors reduced",
				"class", cp.label, "requested", s.k, "used", len(cp.members)-1)
			k = len(cp.members) - 1
		}

		Xc := dataset.SelectRows(X, cp.members)
		nbrs := make([][]neighbors.Neighbor, len(cp.members))
		for i := range cp.members {
			nbrs[i] = neighbors.KNearest(Xc, Xc.RawRowView(i), k, i)
		}

		for n := 0; n < cp.need; n++ {
			i := s.rng.IntN(len(cp.members))
			nb := nbrs[i][s.rng.IntN(len(nbrs[i]))]
			gap := s.rng.Float64()

			base, other := Xc.RawRowView(i), Xc.RawRowView(nb.Index)
			row := make([]float64, len(base))
			for j := range row {
				row[j] = base[j] + gap*(other[j]-base[j])
			}
			extra = append(extra, row)
			labels = append(labels, float64(cp.label))
		}
	}
	outX, outY := appendRows(X, y, extra, labels)
	return outX, outY, nil
}

// CloneUnfitted implements model.Resampler.
func (s *SMOTE) CloneUnfitted() model.Resampler {
	return NewSMOTE(s.k, s.seed)
}
