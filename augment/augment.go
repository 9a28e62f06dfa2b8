// Package augment implements the per-fold augmentation step: feature
// selection, kernel projections stacked next to the selected features, and
// oversampling of the training rows.
package augment

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
	"github.com/YuminosukeSato/cvbench/sklearn/decomposition"
	"github.com/YuminosukeSato/cvbench/sklearn/over_sampling"
)

// Augmenter is a model.FoldTransformer. Its output columns are always
// [selected features | projection 1 | projection 2 ...] in that order.
type Augmenter struct {
	state  *model.StateManager
	logger log.Logger

	selector    model.Stage
	projections []model.Stage
	resamplers  []model.Resampler

	trainX *mat.Dense
	trainY *mat.VecDense
}

// Option configures an Augmenter.
type Option func(*Augmenter)

// WithProjections replaces the default linear and rbf kernel PCA stages.
func WithProjections(stages ...model.Stage) Option {
	return func(a *Augmenter) { a.projections = stages }
}

// WithResamplers replaces the default random oversampler followed by SMOTE.
// Resamplers run in the given order on the training rows only.
func WithResamplers(rs ...model.Resampler) Option {
	return func(a *Augmenter) { a.resamplers = rs }
}

// New creates an Augmenter around selector. The default projections are
// kernel PCA with linear and rbf kernels; the default resamplers are a
// RandomOverSampler then SMOTE(k=5), both seeded with seed.
func New(selector model.Stage, seed uint64, opts ...Option) *Augmenter {
	a := &Augmenter{
		state:    model.NewStateManager(),
		logger:   log.GetLoggerWithName("augment"),
		selector: selector,
		projections: []model.Stage{
			decomposition.NewKernelPCA(decomposition.KernelLinear),
			decomposition.NewKernelPCA(decomposition.KernelRBF),
		},
		resamplers: []model.Resampler{
			over_sampling.NewRandomOverSampler(seed),
			over_sampling.NewSMOTE(5, seed),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements model.FoldTransformer.
func (a *Augmenter) Name() string { return "augment" }

// Describe implements model.Describer.
func (a *Augmenter) Describe() string {
	proj := make([]string, len(a.projections))
	for i, p := range a.projections {
		proj[i] = model.Describe(p)
	}
	res := make([]string, len(a.resamplers))
	for i, r := range a.resamplers {
		res[i] = model.Describe(r)
	}
	return fmt.Sprintf("augment(fs=%s,projections=[%s],resamplers=[%s])",
		model.Describe(a.selector), strings.Join(proj, ","), strings.Join(res, ","))
}

// Fit runs selection, projection and resampling on the training rows.
func (a *Augmenter) Fit(X mat.Matrix, y mat.Vector) error {
	n, d := X.Dims()
	if y.Len() != n {
		return errors.NewDataShapeError("Augmenter.Fit", "rows of X vs labels", n, y.Len())
	}

	var selected *mat.Dense
	err := errors.SafeStage(a.selector.Name(), errors.PhaseFit, func() error {
		var ferr error
		selected, ferr = model.FitTransform(a.selector, X, y)
		return ferr
	})
	if err != nil {
		return err
	}

	blocks := []mat.Matrix{selected}
	for _, p := range a.projections {
		proj := p
		var out *mat.Dense
		err := errors.SafeStage(proj.Name(), errors.PhaseFit, func() error {
			var ferr error
			out, ferr = model.FitTransform(proj, selected, y)
			return ferr
		})
		if err != nil {
			return err
		}
		blocks = append(blocks, out)
	}
	stacked, err := dataset.HStack(blocks...)
	if err != nil {
		return err
	}

	trainX, trainY := stacked, mat.VecDenseCopyOf(y)
	for _, r := range a.resamplers {
		rs := r
		err := errors.SafeStage(rs.Name(), errors.PhaseResample, func() error {
			var rerr error
			trainX, trainY, rerr = rs.FitResample(trainX, trainY)
			return rerr
		})
		if err != nil {
			return err
		}
	}

	_, sel := selected.Dims()
	rows, cols := trainX.Dims()
	a.logger.Debug("augmentation fitted",
		"features.selected", sel, log.FeaturesKey, cols, log.SamplesKey, rows, "samples.synthetic", rows-n)

	a.trainX, a.trainY = trainX, trainY
	a.state.SetFitted(d, n)
	return nil
}

// TransformTrain implements model.FoldTransformer. The result is balanced.
func (a *Augmenter) TransformTrain() (*mat.Dense, *mat.VecDense, error) {
	if err := a.state.RequireFitted("Augmenter", "TransformTrain"); err != nil {
		return nil, nil, err
	}
	return a.trainX, a.trainY, nil
}

// TransformTest applies selection and projections only. No rows are added.
func (a *Augmenter) TransformTest(X mat.Matrix) (*mat.Dense, error) {
	_, c := X.Dims()
	if err := a.state.RequireFeatures("Augmenter", "TransformTest", c); err != nil {
		return nil, err
	}

	var selected *mat.Dense
	err := errors.SafeStage(a.selector.Name(), errors.PhaseTransform, func() error {
		var terr error
		selected, terr = a.selector.Transform(X)
		return terr
	})
	if err != nil {
		return nil, err
	}

	blocks := []mat.Matrix{selected}
	for _, p := range a.projections {
		proj := p
		var out *mat.Dense
		err := errors.SafeStage(proj.Name(), errors.PhaseTransform, func() error {
			var terr error
			out, terr = proj.Transform(selected)
			return terr
		})
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, out)
	}
	return dataset.HStack(blocks...)
}

// CloneUnfitted implements model.FoldTransformer.
func (a *Augmenter) CloneUnfitted() model.FoldTransformer {
	projections := make([]model.Stage, len(a.projections))
	for i, p := range a.projections {
		projections[i] = p.CloneUnfitted()
	}
	resamplers := make([]model.Resampler, len(a.resamplers))
	for i, r := range a.resamplers {
		resamplers[i] = r.CloneUnfitted()
	}
	return &Augmenter{
		state:       model.NewStateManager(),
		logger:      a.logger,
		selector:    a.selector.CloneUnfitted(),
		projections: projections,
		resamplers:  resamplers,
	}
}
