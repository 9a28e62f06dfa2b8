// Package experiment wires datasets, preprocessing, the augmentation step,
// classifiers and the evaluation and search engines into the two runs the
// CLI exposes.
package experiment

import (
	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/sklearn/ensemble"
	"github.com/YuminosukeSato/cvbench/sklearn/feature_selection"
	"github.com/YuminosukeSato/cvbench/sklearn/linear_model"
	"github.com/YuminosukeSato/cvbench/sklearn/naive_bayes"
	"github.com/YuminosukeSato/cvbench/sklearn/neighbors"
	"github.com/YuminosukeSato/cvbench/sklearn/svm"
	"github.com/YuminosukeSato/cvbench/sklearn/tree"
)

// Ks are the accepted numbers of features to select in aug mode.
var Ks = []int{1, 2, 3, 4, 5, 10, 15, 20, 25, 30, 50, 100}

// SearchKs is the k axis of the default search grid.
var SearchKs = []int{10}

// FdrAlpha is the false discovery rate of the select_fdr selector.
const FdrAlpha = 0.1

// SelectFdrName names the FDR selector in registries and grids.
const SelectFdrName = "select_fdr"

// ScoreFuncs lists the univariate scorers in registry order.
var ScoreFuncs = []feature_selection.Scorer{
	feature_selection.FClassif,
	feature_selection.Chi2,
	feature_selection.ReliefF,
	feature_selection.Variance,
}

// ScoreFunc looks a scorer up by name.
func ScoreFunc(name string) (feature_selection.Scorer, error) {
	for _, s := range ScoreFuncs {
		if s.Name == name {
			return s, nil
		}
	}
	return feature_selection.Scorer{}, errors.NewConfigurationErrorf("experiment.ScoreFunc", "unknown score function %q", name)
}

// FeatureSelectorNames returns every score function name followed by
// select_fdr.
func FeatureSelectorNames() []string {
	names := make([]string, 0, len(ScoreFuncs)+1)
	for _, s := range ScoreFuncs {
		names = append(names, s.Name)
	}
	return append(names, SelectFdrName)
}

// NewFeatureSelector builds SelectKBest(name, k) for a score function name,
// or SelectFdr(FdrAlpha) for select_fdr (k is ignored).
func NewFeatureSelector(name string, k int) (model.Stage, error) {
	if name == SelectFdrName {
		return feature_selection.NewSelectFdr(FdrAlpha), nil
	}
	scorer, err := ScoreFunc(name)
	if err != nil {
		return nil, err
	}
	return feature_selection.NewSelectKBest(scorer, k), nil
}

// ValidK reports whether k is one of Ks.
func ValidK(k int) bool {
	for _, v := range Ks {
		if v == k {
			return true
		}
	}
	return false
}

type classifierFactory struct {
	name string
	make func(seed uint64) model.Classifier
}

// classifiers uses library defaults, as the original named_classifiers did.
var classifiers = []classifierFactory{
	{"knn", func(uint64) model.Classifier { return neighbors.NewKNeighborsClassifier(5) }},
	{"gaussian_nb", func(uint64) model.Classifier { return naive_bayes.NewGaussianNB(1e-9) }},
	{"logistic_regression", func(seed uint64) model.Classifier {
		return linear_model.NewLogisticRegression(linear_model.WithLRRandomState(seed))
	}},
	{"svc", func(uint64) model.Classifier { return svm.NewSVC() }},
	{"random_forest", func(seed uint64) model.Classifier {
		return ensemble.NewRandomForestClassifier(ensemble.WithRFRandomState(seed))
	}},
	{"passive_aggressive", func(seed uint64) model.Classifier {
		return linear_model.NewPassiveAggressiveClassifier(linear_model.WithPARandomState(seed))
	}},
	{"decision_tree", func(seed uint64) model.Classifier {
		return tree.NewDecisionTreeClassifier(tree.WithRandomState(seed))
	}},
}

// ClassifierNames returns the registered classifier names in order.
func ClassifierNames() []string {
	names := make([]string, len(classifiers))
	for i, c := range classifiers {
		names[i] = c.name
	}
	return names
}

// NewClassifier builds an unfitted classifier by name.
func NewClassifier(name string, seed uint64) (model.Classifier, error) {
	for _, c := range classifiers {
		if c.name == name {
			return c.make(seed), nil
		}
	}
	return nil, errors.NewConfigurationErrorf("experiment.NewClassifier", "unknown classifier %q", name)
}
