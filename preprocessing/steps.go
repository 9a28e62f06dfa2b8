package preprocessing

import (
	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
	"github.com/YuminosukeSato/cvbench/sklearn/feature_selection"
)

// MaxFeatures is the feature count above which an ANOVA SelectKBest trims
// the dataset before any fold is drawn.
const MaxFeatures = 1000

// Steps returns the dataset-level preprocessing chain: mean imputation,
// zero-variance removal, standardization and, for wide data, an ANOVA
// SelectKBest down to MaxFeatures. nSamples is accepted for parity with
// the fold policy and does not change the chain.
func Steps(nSamples, nFeatures int) []model.Stage {
	steps := []model.Stage{
		NewSimpleImputer(StrategyMean),
		NewVarianceThreshold(0),
		NewStandardScalerDefault(),
	}
	if nFeatures > MaxFeatures {
		steps = append(steps, feature_selection.NewSelectKBest(feature_selection.FClassif, MaxFeatures))
	}
	return steps
}

// Apply fits each step on the whole dataset and feeds its output to the next.
// The returned dataset keeps name, labels and class names; feature names are
// dropped once any step changes the column set.
func Apply(ds *dataset.Dataset, steps []model.Stage) (*dataset.Dataset, error) {
	logger := log.GetLoggerWithName("preprocessing")
	X := ds.X
	for _, st := range steps {
		stage := st
		out := X
		err := errors.SafeStage(stage.Name(), errors.PhaseFit, func() error {
			var ferr error
			out, ferr = model.FitTransform(stage, X, ds.Y)
			return ferr
		})
		if err != nil {
			return nil, err
		}
		_, before := X.Dims()
		_, after := out.Dims()
		logger.Debug("preprocessing step applied",
			log.StageKey, stage.Name(), log.FeaturesKey, after, "features.before", before)
		X = out
	}
	return ds.WithX(X)
}
