package feature_selection

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
)

// selector holds the state shared by SelectKBest and SelectFdr.
type selector struct {
	state   *model.StateManager
	scorer  Scorer
	scores  []float64
	pvalues []float64
	support []int
}

func (s *selector) score(op string, X mat.Matrix, y mat.Vector) error {
	if s.scorer.Func == nil {
		return errors.NewValidationError("score_func", "must not be nil", s.scorer.Name)
	}
	scores, pvalues, err := s.scorer.Func(X, y)
	if err != nil {
		return errors.Wrapf(err, "%s: score features", op)
	}
	s.scores, s.pvalues = scores, pvalues
	return nil
}

func (s *selector) transform(op string, X mat.Matrix) (*mat.Dense, error) {
	_, c := X.Dims()
	if err := s.state.RequireFeatures(op, "Transform", c); err != nil {
		return nil, err
	}
	return dataset.SelectColumns(X, s.support), nil
}

// Support returns the selected column indices in ascending order.
func (s *selector) Support() []int { return append([]int(nil), s.support...) }

// Scores returns the per-feature scores of the last Fit.
func (s *selector) Scores() []float64 { return append([]float64(nil), s.scores...) }

// PValues returns the per-feature p-values of the last Fit, or nil.
func (s *selector) PValues() []float64 {
	if s.pvalues == nil {
		return nil
	}
	return append([]float64(nil), s.pvalues...)
}

// rankKey orders NaN scores below every finite score.
func rankKey(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// SelectKBest keeps the K highest-scoring features. K <= 0 keeps all.
type SelectKBest struct {
	selector
	K int
}

// NewSelectKBest creates a SelectKBest stage.
func NewSelectKBest(scorer Scorer, k int) *SelectKBest {
	return &SelectKBest{selector: selector{state: model.NewStateManager(), scorer: scorer}, K: k}
}

// Name implements model.Stage.
func (s *SelectKBest) Name() string { return "select_k_best" }

// Describe implements model.Describer.
func (s *SelectKBest) Describe() string {
	if s.K <= 0 {
		return fmt.Sprintf("select_k_best(score_func=%s,k=all)", s.scorer.Name)
	}
	return fmt.Sprintf("select_k_best(score_func=%s,k=%d)", s.scorer.Name, s.K)
}

// Fit implements model.Stage. When K exceeds the number of features every
// feature is kept and a warning is logged.
func (s *SelectKBest) Fit(X mat.Matrix, y mat.Vector) error {
	n, d := X.Dims()
	k := s.K
	if k <= 0 || k >= d {
		if k > d {
			log.GetLoggerWithName("feature_selection").Warn("k exceeds feature count, keeping all features",
				"k", k, log.FeaturesKey, d)
		}
		k = d
	}

	if k == d {
		s.scores, s.pvalues = nil, nil
		s.support = make([]int, d)
		for j := range s.support {
			s.support[j] = j
		}
		s.state.SetFitted(d, n)
		return nil
	}

	if err := s.score("SelectKBest.Fit", X, y); err != nil {
		return err
	}
	order := make([]int, d)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rankKey(s.scores[order[a]]) > rankKey(s.scores[order[b]])
	})
	s.support = append([]int(nil), order[:k]...)
	sort.Ints(s.support)

	s.state.SetFitted(d, n)
	return nil
}

// Transform implements model.Stage.
func (s *SelectKBest) Transform(X mat.Matrix) (*mat.Dense, error) {
	return s.transform("SelectKBest", X)
}

// CloneUnfitted implements model.Stage.
func (s *SelectKBest) CloneUnfitted() model.Stage {
	return NewSelectKBest(s.scorer, s.K)
}

// SelectFdr keeps features whose p-values pass the Benjamini-Hochberg
// procedure at false discovery rate Alpha. When nothing passes, the single
// feature with the smallest p-value is kept so later stages always receive
// at least one column.
type SelectFdr struct {
	selector
	Alpha float64
}

// NewSelectFdr creates a SelectFdr stage scoring with ANOVA F.
func NewSelectFdr(alpha float64) *SelectFdr {
	return NewSelectFdrWithScorer(FClassif, alpha)
}

// NewSelectFdrWithScorer creates a SelectFdr stage with a scorer that
// returns p-values.
func NewSelectFdrWithScorer(scorer Scorer, alpha float64) *SelectFdr {
	return &SelectFdr{selector: selector{state: model.NewStateManager(), scorer: scorer}, Alpha: alpha}
}

// Name implements model.Stage.
func (s *SelectFdr) Name() string { return "select_fdr" }

// Describe implements model.Describer.
func (s *SelectFdr) Describe() string {
	return fmt.Sprintf("select_fdr(score_func=%s,alpha=%g)", s.scorer.Name, s.Alpha)
}

// Fit implements model.Stage.
func (s *SelectFdr) Fit(X mat.Matrix, y mat.Vector) error {
	n, d := X.Dims()
	if s.Alpha <= 0 || s.Alpha > 1 {
		return errors.NewValidationError("alpha", "must be in (0, 1]", s.Alpha)
	}
	if err := s.score("SelectFdr.Fit", X, y); err != nil {
		return err
	}
	if s.pvalues == nil {
		return errors.NewValueError("SelectFdr.Fit", "score function "+s.scorer.Name+" returns no p-values")
	}

	s.support = BenjaminiHochberg(s.pvalues, s.Alpha)
	if len(s.support) == 0 {
		best := 0
		for j := 1; j < d; j++ {
			if pvalueKey(s.pvalues[j]) < pvalueKey(s.pvalues[best]) {
				best = j
			}
		}
		s.support = []int{best}
		log.GetLoggerWithName("feature_selection").Warn("no feature passes the FDR threshold, keeping the best one",
			"alpha", s.Alpha, "feature", best)
	}

	s.state.SetFitted(d, n)
	return nil
}

// Transform implements model.Stage.
func (s *SelectFdr) Transform(X mat.Matrix) (*mat.Dense, error) {
	return s.transform("SelectFdr", X)
}

// CloneUnfitted implements model.Stage.
func (s *SelectFdr) CloneUnfitted() model.Stage {
	return NewSelectFdrWithScorer(s.scorer, s.Alpha)
}

func pvalueKey(p float64) float64 {
	if math.IsNaN(p) {
		return math.Inf(1)
	}
	return p
}

// BenjaminiHochberg returns, in ascending order, the indices of pvalues
// rejected at false discovery rate alpha. NaN p-values are never rejected.
func BenjaminiHochberg(pvalues []float64, alpha float64) []int {
	m := len(pvalues)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pvalueKey(pvalues[order[a]]) < pvalueKey(pvalues[order[b]])
	})

	cutoff := -1
	for rank, idx := range order {
		if pvalueKey(pvalues[idx]) <= alpha*float64(rank+1)/float64(m) {
			cutoff = rank
		}
	}
	if cutoff < 0 {
		return nil
	}
	selected := append([]int(nil), order[:cutoff+1]...)
	sort.Ints(selected)
	return selected
}
