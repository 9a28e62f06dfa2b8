// Package ensemble provides the random forest classifier.
package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/core/parallel"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/sklearn/tree"
)

// RandomForestClassifier は bootstrap 標本ごとに決定木を学習し、
// 各木の PredictProba の平均が最大のクラスを予測する。
// 木ごとの乱数種は randomState から順に導出するので、並列数によらず
// 同じ森が得られる。
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators    int
	criterion      string
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    int // 0 は sqrt(n_features)
	bootstrap      bool
	randomState    uint64
	workers        int

	classes []int
	trees   []*tree.DecisionTreeClassifier
}

// RandomForestOption configures a RandomForestClassifier.
type RandomForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier returns a forest with sklearn's defaults
// (100 trees, gini, unlimited depth, sqrt(n_features) per split, bootstrap).
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:          model.NewStateManager(),
		nEstimators:    100,
		criterion:      tree.CriterionGini,
		minSamplesLeaf: 1,
		bootstrap:      true,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

func WithRFNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

func WithRFCriterion(c string) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.criterion = c }
}

func WithRFMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

func WithRFMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithRFMaxFeatures sets the features drawn per split. 0 means sqrt(n_features).
func WithRFMaxFeatures(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = n }
}

func WithRFBootstrap(bootstrap bool) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.bootstrap = bootstrap }
}

// WithRFRandomState seeds the bootstrap samples and feature draws.
func WithRFRandomState(seed uint64) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithRFWorkers bounds the trees grown concurrently. 0 means every CPU.
func WithRFWorkers(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.workers = n }
}

// Name implements model.Classifier.
func (rf *RandomForestClassifier) Name() string { return "random_forest" }

// Describe implements model.Describer. workers is left out: it does not
// change the fitted forest.
func (rf *RandomForestClassifier) Describe() string {
	return fmt.Sprintf("random_forest(n_estimators=%d,criterion=%s,max_depth=%d,min_samples_leaf=%d,max_features=%d,bootstrap=%t,random_state=%d)",
		rf.nEstimators, rf.criterion, rf.maxDepth, rf.minSamplesLeaf, rf.maxFeatures, rf.bootstrap, rf.randomState)
}

// Classes returns the sorted class labels seen in Fit.
func (rf *RandomForestClassifier) Classes() []int { return append([]int(nil), rf.classes...) }

// Trees returns the fitted trees in seed order.
func (rf *RandomForestClassifier) Trees() []*tree.DecisionTreeClassifier {
	return append([]*tree.DecisionTreeClassifier(nil), rf.trees...)
}

// Fit implements model.Classifier.
func (rf *RandomForestClassifier) Fit(X mat.Matrix, y mat.Vector) error {
	n, d := X.Dims()
	switch {
	case n == 0 || d == 0:
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	case y.Len() != n:
		return errors.NewDimensionError("RandomForestClassifier.Fit", n, y.Len(), 0)
	case rf.nEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	case rf.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be non-negative", rf.maxFeatures)
	}

	maxFeatures := rf.maxFeatures
	if maxFeatures == 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(d)))))
	}
	if maxFeatures > d {
		maxFeatures = d
	}

	rf.classes = dataset.SortedClasses(y)
	Xd := mat.DenseCopyOf(X)
	yv := mat.VecDenseCopyOf(y)

	seeds := make([]uint64, rf.nEstimators)
	r := rand.New(rand.NewPCG(rf.randomState, rf.randomState))
	for i := range seeds {
		seeds[i] = r.Uint64()
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.Parallelize(rf.nEstimators, rf.workers, func(start, end int) {
		for i := start; i < end; i++ {
			trees[i], errs[i] = rf.fitTree(Xd, yv, seeds[i], maxFeatures)
		}
	})
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "random_forest: tree %d", i)
		}
	}

	rf.trees = trees
	rf.state.SetFitted(d, n)
	return nil
}

func (rf *RandomForestClassifier) fitTree(X *mat.Dense, y *mat.VecDense, seed uint64, maxFeatures int) (*tree.DecisionTreeClassifier, error) {
	t := tree.NewDecisionTreeClassifier(
		tree.WithCriterion(rf.criterion),
		tree.WithMaxDepth(rf.maxDepth),
		tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
		tree.WithMaxFeatures(maxFeatures),
		tree.WithRandomState(seed),
	)
	if !rf.bootstrap {
		return t, t.Fit(X, y)
	}

	// 復元抽出した行を昇順に並べる
	n := y.Len()
	r := rand.New(rand.NewPCG(seed, ^seed))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = r.IntN(n)
	}
	sort.Ints(idx)
	return t, t.Fit(dataset.SelectRows(X, idx), dataset.SelectLabels(y, idx))
}

// PredictProba averages the class probabilities of every tree, columns in
// Classes order. A class missing from a tree's bootstrap sample counts as
// probability 0 for that tree.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := rf.state.RequireFeatures("RandomForestClassifier", "PredictProba", c); err != nil {
		return nil, err
	}
	col := make(map[int]int, len(rf.classes))
	for i, cl := range rf.classes {
		col[cl] = i
	}

	out := mat.NewDense(r, len(rf.classes), nil)
	for _, t := range rf.trees {
		p, err := t.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for j, cl := range t.Classes() {
			k := col[cl]
			for i := 0; i < r; i++ {
				out.Set(i, k, out.At(i, k)+p.At(i, j))
			}
		}
	}
	out.Scale(1/float64(len(rf.trees)), out)
	return out, nil
}

// Predict implements model.Classifier. Ties go to the smaller label.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, k := proba.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.SetVec(i, float64(rf.classes[best]))
	}
	return out, nil
}

// CloneUnfitted implements model.Classifier.
func (rf *RandomForestClassifier) CloneUnfitted() model.Classifier {
	return NewRandomForestClassifier(
		WithRFNEstimators(rf.nEstimators),
		WithRFCriterion(rf.criterion),
		WithRFMaxDepth(rf.maxDepth),
		WithRFMinSamplesLeaf(rf.minSamplesLeaf),
		WithRFMaxFeatures(rf.maxFeatures),
		WithRFBootstrap(rf.bootstrap),
		WithRFRandomState(rf.randomState),
		WithRFWorkers(rf.workers),
	)
}
