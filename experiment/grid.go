package experiment

import (
	"context"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pipeline"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
	"github.com/YuminosukeSato/cvbench/preprocessing"
	"github.com/YuminosukeSato/cvbench/search"
	"github.com/YuminosukeSato/cvbench/sklearn/feature_selection"
)

// filterK is the prefilter width of datasets with at least filterK rows.
// Smaller datasets keep every feature.
const filterK = 1000

// Grid axis names.
const (
	AxisFS        = "fs"
	AxisScoreFunc = "score_func"
	AxisK         = "k"
	AxisClf       = "clf"
)

// DefaultGrid is the two-part search space: SelectKBest over every score
// function and ks crossed with every classifier, then SelectFdr crossed
// with every classifier.
func DefaultGrid(ks []int) search.Grid {
	scorers := make([]string, len(ScoreFuncs))
	for i, s := range ScoreFuncs {
		scorers[i] = s.Name
	}
	clfs := search.NewAxis(AxisClf, ClassifierNames()...)
	return search.Grid{
		search.NewSpace(
			search.NewAxis(AxisFS, "select_k_best"),
			search.NewAxis(AxisScoreFunc, scorers...),
			search.NewAxis(AxisK, ks...),
			clfs,
		),
		search.NewSpace(
			search.NewAxis(AxisFS, SelectFdrName),
			clfs,
		),
	}
}

// Builder returns the search builder for a dataset of nSamples rows. Each
// configuration gets the per-fold pipeline imputer, var_thresh, transform,
// ff, fs, with the fs step and classifier taken from the configuration.
func Builder(nSamples int, seed uint64) search.Builder {
	ffK := 0
	if nSamples >= filterK {
		ffK = filterK
	}
	return func(c search.Configuration) (model.FoldTransformer, model.Classifier, error) {
		var fs model.Stage
		switch c.Label(AxisFS) {
		case SelectFdrName:
			fs = feature_selection.NewSelectFdr(FdrAlpha)
		case "select_k_best":
			scorer, err := ScoreFunc(c.Label(AxisScoreFunc))
			if err != nil {
				return nil, nil, err
			}
			k, _ := c.Get(AxisK)
			kv, ok := k.(int)
			if !ok {
				return nil, nil, errors.NewConfigurationErrorf("experiment.Builder", "configuration %d has no integer k", c.Index)
			}
			fs = feature_selection.NewSelectKBest(scorer, kv)
		default:
			return nil, nil, errors.NewConfigurationErrorf("experiment.Builder", "unknown feature selector %q", c.Label(AxisFS))
		}

		clf, err := NewClassifier(c.Label(AxisClf), seed)
		if err != nil {
			return nil, nil, err
		}
		p := pipeline.New(
			pipeline.Step{Name: "imputer", Stage: preprocessing.NewSimpleImputer(preprocessing.StrategyMean)},
			pipeline.Step{Name: "var_thresh", Stage: preprocessing.NewVarianceThreshold(0)},
			pipeline.Step{Name: "transform", Stage: preprocessing.NewStandardScalerDefault()},
			pipeline.Step{Name: "ff", Stage: feature_selection.NewSelectKBest(feature_selection.FClassif, ffK)},
			pipeline.Step{Name: "fs", Stage: fs},
		)
		return p, clf, nil
	}
}

// RunSearch evaluates the grid over ds and returns the full result.
func RunSearch(ctx context.Context, ds *dataset.Dataset, grid search.Enumerator, searcher *search.Searcher, seed uint64) (*search.Result, error) {
	n, d := ds.Dims()
	log.GetLoggerWithName("experiment").Info("search run prepared",
		log.DatasetKey, ds.Name, log.SamplesKey, n, log.FeaturesKey, d, log.RandomSeedKey, seed)
	return searcher.Search(ctx, ds, grid, Builder(n, seed))
}
