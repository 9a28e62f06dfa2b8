// Package model_selection partitions samples into cross-validation folds.
package model_selection

import (
	"math/rand/v2"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/dataset"
	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
)

// Fold is one train/test partition. Train and Test are disjoint and sorted.
type Fold struct {
	Index int
	Train []int
	Test  []int
}

// Splitter produces folds over the labels y.
type Splitter interface {
	Name() string
	Split(y mat.Vector) ([]Fold, error)
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, seed uint64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// Name implements Splitter.
func (kf *KFold) Name() string { return "kfold" }

// Split implements Splitter.
func (kf *KFold) Split(y mat.Vector) ([]Fold, error) {
	n := y.Len()
	if kf.NSplits < 2 {
		return nil, cverrors.NewConfigurationErrorf("KFold.Split", "n_splits must be at least 2, got %d", kf.NSplits)
	}
	if n < kf.NSplits {
		return nil, cverrors.NewConfigurationErrorf("KFold.Split", "cannot split %d samples into %d folds", n, kf.NSplits)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.Seed, kf.Seed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	tests := make([][]int, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits
	current := 0
	for i := 0; i < kf.NSplits; i++ {
		size := foldSize
		if i < remainder {
			size++
		}
		tests[i] = append([]int(nil), indices[current:current+size]...)
		current += size
	}
	return buildFolds(n, tests), nil
}

// StratifiedKFold implements stratified k-fold cross-validation. Each class
// is dealt into the folds in contiguous chunks; the fold receiving a class's
// remainder rotates so fold sizes stay within one sample of each other.
type StratifiedKFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, seed uint64) *StratifiedKFold {
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// Name implements Splitter.
func (skf *StratifiedKFold) Name() string { return "stratified_kfold" }

// Split implements Splitter. It fails with a ConfigurationError when n or
// any class count is smaller than the number of folds.
func (skf *StratifiedKFold) Split(y mat.Vector) ([]Fold, error) {
	n := y.Len()
	if skf.NSplits < 2 {
		return nil, cverrors.NewConfigurationErrorf("StratifiedKFold.Split", "n_splits must be at least 2, got %d", skf.NSplits)
	}
	if n < skf.NSplits {
		return nil, cverrors.NewConfigurationErrorf("StratifiedKFold.Split", "cannot split %d samples into %d folds", n, skf.NSplits)
	}

	// Group indices by class
	classIndices := make(map[int][]int)
	for i := 0; i < n; i++ {
		label := int(y.AtVec(i))
		classIndices[label] = append(classIndices[label], i)
	}
	classes := make([]int, 0, len(classIndices))
	for c, idx := range classIndices {
		if len(idx) < skf.NSplits {
			return nil, cverrors.NewConfigurationErrorf("StratifiedKFold.Split",
				"class %d has %d samples, fewer than n_splits=%d", c, len(idx), skf.NSplits)
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(skf.Seed, skf.Seed))
		for _, c := range classes {
			indices := classIndices[c]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	tests := make([][]int, skf.NSplits)
	offset := 0
	for _, c := range classes {
		indices := classIndices[c]
		foldSize := len(indices) / skf.NSplits
		remainder := len(indices) % skf.NSplits

		current := 0
		for i := 0; i < skf.NSplits; i++ {
			fold := (offset + i) % skf.NSplits
			size := foldSize
			if i < remainder {
				size++
			}
			tests[fold] = append(tests[fold], indices[current:current+size]...)
			current += size
		}
		offset = (offset + remainder) % skf.NSplits
	}
	return buildFolds(n, tests), nil
}

// LeaveOneOut holds out each sample once.
type LeaveOneOut struct{}

// Name implements Splitter.
func (LeaveOneOut) Name() string { return "leave_one_out" }

// Split implements Splitter.
func (LeaveOneOut) Split(y mat.Vector) ([]Fold, error) {
	n := y.Len()
	if n < 2 {
		return nil, cverrors.NewConfigurationErrorf("LeaveOneOut.Split", "need at least 2 samples, got %d", n)
	}
	tests := make([][]int, n)
	for i := range tests {
		tests[i] = []int{i}
	}
	return buildFolds(n, tests), nil
}

// buildFolds sorts each test set and fills Train with the complement.
func buildFolds(n int, tests [][]int) []Fold {
	folds := make([]Fold, len(tests))
	inTest := make([]int, n)
	for i, test := range tests {
		sort.Ints(test)
		for _, idx := range test {
			inTest[idx] = i + 1
		}
		train := make([]int, 0, n-len(test))
		for j := 0; j < n; j++ {
			if inTest[j] != i+1 {
				train = append(train, j)
			}
		}
		folds[i] = Fold{Index: i, Train: train, Test: test}
	}
	return folds
}

// Describe summarizes fold sizes for logs.
func Describe(folds []Fold) string {
	if len(folds) == 0 {
		return "0 folds"
	}
	minTest, maxTest := len(folds[0].Test), len(folds[0].Test)
	for _, f := range folds {
		if len(f.Test) < minTest {
			minTest = len(f.Test)
		}
		if len(f.Test) > maxTest {
			maxTest = len(f.Test)
		}
	}
	return strconv.Itoa(len(folds)) + " folds, test size " + strconv.Itoa(minTest) + "-" + strconv.Itoa(maxTest)
}

// ClassBalance reports the per-class counts of fold f's test set.
func ClassBalance(y mat.Vector, f Fold) map[int]int {
	return dataset.ClassCounts(dataset.SelectLabels(y, f.Test))
}
