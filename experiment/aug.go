package experiment

import (
	"context"

	"github.com/YuminosukeSato/cvbench/augment"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/evaluation"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
	"github.com/YuminosukeSato/cvbench/preprocessing"
)

// AugParams selects the components of an augmentation run.
type AugParams struct {
	FeatureSelection string
	Classifier       string
	K                int
	Seed             uint64
}

// Prepare fits the preprocessing steps once on the whole dataset and keeps
// the first rows allowed by the engine's fold policy.
func Prepare(ds *dataset.Dataset, engine *evaluation.Engine) (*dataset.Dataset, error) {
	n, d := ds.Dims()
	out, err := preprocessing.Apply(ds, preprocessing.Steps(n, d))
	if err != nil {
		return nil, errors.Wrapf(err, "preprocess %s", ds.Name)
	}
	used := engine.Policy().RowCap(n)
	if used < n {
		out = out.Head(used)
	}
	return out, nil
}

// RunAug evaluates feature selection, kernel PCA augmentation and double
// oversampling followed by the classifier on ds.
func RunAug(ctx context.Context, ds *dataset.Dataset, p AugParams, engine *evaluation.Engine) (*evaluation.ResultSet, error) {
	if p.FeatureSelection != SelectFdrName && !ValidK(p.K) {
		return nil, errors.NewConfigurationErrorf("experiment.RunAug", "k must be one of %v, got %d", Ks, p.K)
	}
	fs, err := NewFeatureSelector(p.FeatureSelection, p.K)
	if err != nil {
		return nil, err
	}
	clf, err := NewClassifier(p.Classifier, p.Seed)
	if err != nil {
		return nil, err
	}

	prepared, err := Prepare(ds, engine)
	if err != nil {
		return nil, err
	}
	n, d := prepared.Dims()
	log.GetLoggerWithName("experiment").Info("aug run prepared",
		log.DatasetKey, ds.Name, log.SamplesKey, n, log.FeaturesKey, d,
		log.StageKey, p.FeatureSelection, log.ModelNameKey, p.Classifier, log.RandomSeedKey, p.Seed)

	return engine.Evaluate(ctx, prepared, augment.New(fs, p.Seed), clf)
}
