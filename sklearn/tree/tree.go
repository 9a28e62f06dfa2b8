// Package tree provides the CART decision tree classifier.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// Split criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// node は木の1ノード。葉では feature が -1
type node struct {
	feature     int
	threshold   float64
	left, right int
	counts      []float64 // クラスごとの訓練サンプル数
}

// DecisionTreeClassifier は不純度の減少が最大になる閾値で二分割を繰り返す
// CART 決定木。maxFeatures > 0 のときノードごとに特徴量をその数だけ
// 無作為に選び、その中から分割を探す。
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion       string
	maxDepth        int // 0 は無制限
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 は全特徴量
	randomState     uint64

	classes     []int
	nodes       []node
	importances []float64
	depth       int
}

// DecisionTreeOption configures a DecisionTreeClassifier.
type DecisionTreeOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier returns a tree with sklearn's defaults
// (criterion=gini, unlimited depth, min_samples_split=2, min_samples_leaf=1,
// every feature considered at each split).
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the impurity measure, gini or entropy.
func WithCriterion(c string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.criterion = c }
}

// WithMaxDepth limits the depth of the tree. 0 means unlimited.
func WithMaxDepth(depth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

func WithMinSamplesSplit(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

func WithMinSamplesLeaf(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are drawn at each split.
func WithMaxFeatures(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = n }
}

// WithRandomState seeds the per-split feature draw.
func WithRandomState(seed uint64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) { dt.randomState = seed }
}

// Name implements model.Classifier.
func (dt *DecisionTreeClassifier) Name() string { return "decision_tree" }

// Describe implements model.Describer.
func (dt *DecisionTreeClassifier) Describe() string {
	return fmt.Sprintf("decision_tree(criterion=%s,max_depth=%d,min_samples_split=%d,min_samples_leaf=%d,max_features=%d,random_state=%d)",
		dt.criterion, dt.maxDepth, dt.minSamplesSplit, dt.minSamplesLeaf, dt.maxFeatures, dt.randomState)
}

// Classes returns the sorted class labels seen in Fit, the column order of
// PredictProba.
func (dt *DecisionTreeClassifier) Classes() []int { return append([]int(nil), dt.classes...) }

// Depth returns the depth of the fitted tree; a single leaf has depth 0.
func (dt *DecisionTreeClassifier) Depth() int { return dt.depth }

// NLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) NLeaves() int {
	n := 0
	for _, nd := range dt.nodes {
		if nd.feature < 0 {
			n++
		}
	}
	return n
}

// FeatureImportances returns the normalized total impurity decrease per
// feature. All zeros when the tree is a single leaf.
func (dt *DecisionTreeClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), dt.importances...)
}

// Fit implements model.Classifier.
func (dt *DecisionTreeClassifier) Fit(X mat.Matrix, y mat.Vector) error {
	n, d := X.Dims()
	switch {
	case n == 0 || d == 0:
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	case y.Len() != n:
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", n, y.Len(), 0)
	case dt.criterion != CriterionGini && dt.criterion != CriterionEntropy:
		return errors.NewValidationError("criterion", "must be gini or entropy", dt.criterion)
	case dt.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be non-negative", dt.maxDepth)
	case dt.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	case dt.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	case dt.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be non-negative", dt.maxFeatures)
	}

	dt.classes = dataset.SortedClasses(y)
	index := make(map[int]int, len(dt.classes))
	for i, c := range dt.classes {
		index[c] = i
	}
	b := &builder{
		t:      dt,
		X:      mat.DenseCopyOf(X),
		labels: make([]int, n),
		nFeat:  d,
		rng:    rand.New(rand.NewPCG(dt.randomState, dt.randomState)),
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
		b.labels[i] = index[int(y.AtVec(i))]
	}

	dt.nodes = dt.nodes[:0]
	dt.importances = make([]float64, d)
	dt.depth = 0
	b.grow(rows, 0)

	total := 0.0
	for _, v := range dt.importances {
		total += v
	}
	if total > 0 {
		for j := range dt.importances {
			dt.importances[j] /= total
		}
	}

	dt.state.SetFitted(d, n)
	return nil
}

// leaf returns the leaf reached by row.
func (dt *DecisionTreeClassifier) leaf(row []float64) *node {
	nd := &dt.nodes[0]
	for nd.feature >= 0 {
		if row[nd.feature] <= nd.threshold {
			nd = &dt.nodes[nd.left]
		} else {
			nd = &dt.nodes[nd.right]
		}
	}
	return nd
}

// PredictProba returns the class frequencies of the leaf each row falls
// into, columns in Classes order.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := dt.state.RequireFeatures("DecisionTreeClassifier", "PredictProba", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, len(dt.classes), nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		counts := dt.leaf(row).counts
		total := 0.0
		for _, v := range counts {
			total += v
		}
		for k, v := range counts {
			out.Set(i, k, v/total)
		}
	}
	return out, nil
}

// Predict implements model.Classifier. Ties between leaf counts go to the
// smaller label.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, c := X.Dims()
	if err := dt.state.RequireFeatures("DecisionTreeClassifier", "Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(r, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.SetVec(i, float64(dt.classes[argmax(dt.leaf(row).counts)]))
	}
	return out, nil
}

// CloneUnfitted implements model.Classifier.
func (dt *DecisionTreeClassifier) CloneUnfitted() model.Classifier {
	return NewDecisionTreeClassifier(
		WithCriterion(dt.criterion),
		WithMaxDepth(dt.maxDepth),
		WithMinSamplesSplit(dt.minSamplesSplit),
		WithMinSamplesLeaf(dt.minSamplesLeaf),
		WithMaxFeatures(dt.maxFeatures),
		WithRandomState(dt.randomState),
	)
}

func argmax(v []float64) int {
	best := 0
	for k := 1; k < len(v); k++ {
		if v[k] > v[best] {
			best = k
		}
	}
	return best
}

// builder grows the nodes of t during one Fit.
type builder struct {
	t      *DecisionTreeClassifier
	X      *mat.Dense
	labels []int // index into t.classes
	nFeat  int
	rng    *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	gain      float64 // 親の重み付き不純度 - 子の重み付き不純度
}

func (b *builder) counts(rows []int) []float64 {
	counts := make([]float64, len(b.t.classes))
	for _, r := range rows {
		counts[b.labels[r]]++
	}
	return counts
}

func (b *builder) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	imp := 0.0
	switch b.t.criterion {
	case CriterionEntropy:
		for _, c := range counts {
			if c > 0 {
				p := c / n
				imp -= p * math.Log2(p)
			}
		}
	default:
		imp = 1
		for _, c := range counts {
			p := c / n
			imp -= p * p
		}
	}
	return imp
}

// grow appends the subtree over rows and returns its node id.
func (b *builder) grow(rows []int, depth int) int {
	counts := b.counts(rows)
	id := len(b.t.nodes)
	b.t.nodes = append(b.t.nodes, node{feature: -1, counts: counts})
	if depth > b.t.depth {
		b.t.depth = depth
	}

	n := len(rows)
	if (b.t.maxDepth > 0 && depth >= b.t.maxDepth) ||
		n < b.t.minSamplesSplit || n < 2*b.t.minSamplesLeaf ||
		b.impurity(counts, float64(n)) == 0 {
		return id
	}
	s, ok := b.bestSplit(rows, counts)
	if !ok {
		return id
	}

	var left, right []int
	for _, r := range rows {
		if b.X.At(r, s.feature) <= s.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	b.t.importances[s.feature] += s.gain
	l := b.grow(left, depth+1)
	rt := b.grow(right, depth+1)
	// 再帰中の append で nodes が再確保されるため添字で書き戻す
	b.t.nodes[id].feature = s.feature
	b.t.nodes[id].threshold = s.threshold
	b.t.nodes[id].left = l
	b.t.nodes[id].right = rt
	return id
}

// candidates returns the features searched at one split, ascending.
func (b *builder) candidates() []int {
	if b.t.maxFeatures == 0 || b.t.maxFeatures >= b.nFeat {
		all := make([]int, b.nFeat)
		for j := range all {
			all[j] = j
		}
		return all
	}
	feats := b.rng.Perm(b.nFeat)[:b.t.maxFeatures]
	sort.Ints(feats)
	return feats
}

// bestSplit scans every threshold between distinct values of each
// candidate feature. Ties keep the first split found.
func (b *builder) bestSplit(rows []int, counts []float64) (split, bool) {
	n := len(rows)
	parent := float64(n) * b.impurity(counts, float64(n))
	minLeaf := b.t.minSamplesLeaf

	var best split
	found := false
	sorted := make([]int, n)
	left := make([]float64, len(counts))
	right := make([]float64, len(counts))
	for _, f := range b.candidates() {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool { return b.X.At(sorted[i], f) < b.X.At(sorted[j], f) })
		for k := range left {
			left[k] = 0
		}
		copy(right, counts)

		for i := 0; i < n-1; i++ {
			lab := b.labels[sorted[i]]
			left[lab]++
			right[lab]--
			v, next := b.X.At(sorted[i], f), b.X.At(sorted[i+1], f)
			if v == next {
				continue
			}
			nl, nr := i+1, n-i-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			gain := parent - float64(nl)*b.impurity(left, float64(nl)) - float64(nr)*b.impurity(right, float64(nr))
			if !found || gain > best.gain+1e-12 {
				threshold := (v + next) / 2
				if threshold == next {
					threshold = v
				}
				best = split{feature: f, threshold: threshold, gain: gain}
				found = true
			}
		}
	}
	return best, found
}
