// Package pipeline chains named stages into a per-fold transformer.
// This mirrors sklearn.pipeline.Pipeline without a final estimator: the
// classifier is driven separately by the evaluation engine.
package pipeline

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
)

// Step represents a single step in the pipeline.
type Step struct {
	Name  string      // Name of this step (for identification and Set)
	Stage model.Stage // Unfitted template
}

// Pipeline fits its stages in order on the training rows and applies the
// same fitted chain to held-out rows.
type Pipeline struct {
	state  *model.StateManager
	logger log.Logger

	steps []Step

	// Fitted state
	fitted []model.Stage
	trainX *mat.Dense
	trainY *mat.VecDense
}

// New creates a new Pipeline with the given steps.
// This is equivalent to sklearn.pipeline.Pipeline(steps)
func New(steps ...Step) *Pipeline {
	return &Pipeline{
		state:  model.NewStateManager(),
		logger: log.GetLoggerWithName("pipeline"),
		steps:  append([]Step(nil), steps...),
	}
}

// Make is a convenience function similar to sklearn.pipeline.make_pipeline.
// Steps are named after their stages.
func Make(stages ...model.Stage) *Pipeline {
	steps := make([]Step, len(stages))
	for i, st := range stages {
		steps[i] = Step{Name: st.Name(), Stage: st}
	}
	return New(steps...)
}

// Name implements model.FoldTransformer.
func (p *Pipeline) Name() string { return "pipeline" }

// Steps returns the configured steps.
func (p *Pipeline) Steps() []Step { return append([]Step(nil), p.steps...) }

// Get returns the stage registered under name.
func (p *Pipeline) Get(name string) (model.Stage, bool) {
	for _, s := range p.steps {
		if s.Name == name {
			return s.Stage, true
		}
	}
	return nil, false
}

// Set returns a copy of p whose step name uses stage instead. The receiver
// is left untouched so a shared template can be varied per configuration.
func (p *Pipeline) Set(name string, stage model.Stage) (*Pipeline, error) {
	steps := p.Steps()
	for i := range steps {
		if steps[i].Name == name {
			steps[i].Stage = stage
			return New(steps...), nil
		}
	}
	return nil, errors.NewConfigurationErrorf("Pipeline.Set", "no step named %q", name)
}

// Describe implements model.Describer. It lists every step in order.
func (p *Pipeline) Describe() string {
	parts := make([]string, len(p.steps))
	for i, s := range p.steps {
		parts[i] = s.Name + "=" + model.Describe(s.Stage)
	}
	return "pipeline(" + strings.Join(parts, ",") + ")"
}

// Fit fits every step on the output of the previous one. The step stages
// themselves are fitted, so callers fit a CloneUnfitted copy per fold.
func (p *Pipeline) Fit(X mat.Matrix, y mat.Vector) error {
	n, _ := X.Dims()
	if y.Len() != n {
		return errors.NewDataShapeError("Pipeline.Fit", "rows of X vs labels", n, y.Len())
	}
	if len(p.steps) == 0 {
		return errors.NewConfigurationError("Pipeline.Fit", "pipeline has no steps")
	}

	Xt := mat.DenseCopyOf(X)
	fitted := make([]model.Stage, len(p.steps))
	for i, s := range p.steps {
		stage := s.Stage
		err := errors.SafeStage(s.Name, errors.PhaseFit, func() error {
			out, ferr := model.FitTransform(stage, Xt, y)
			if ferr != nil {
				return ferr
			}
			Xt = out
			return nil
		})
		if err != nil {
			return err
		}
		fitted[i] = stage
		_, c := Xt.Dims()
		p.logger.Debug("pipeline step fitted", log.StageKey, s.Name, log.FeaturesKey, c)
	}

	p.fitted = fitted
	p.trainX = Xt
	p.trainY = mat.VecDenseCopyOf(y)
	_, d := X.Dims()
	p.state.SetFitted(d, n)
	return nil
}

// TransformTrain implements model.FoldTransformer. Pipelines never resample,
// so the labels are the ones passed to Fit.
func (p *Pipeline) TransformTrain() (*mat.Dense, *mat.VecDense, error) {
	if err := p.state.RequireFitted("Pipeline", "TransformTrain"); err != nil {
		return nil, nil, err
	}
	return p.trainX, p.trainY, nil
}

// TransformTest implements model.FoldTransformer.
func (p *Pipeline) TransformTest(X mat.Matrix) (*mat.Dense, error) {
	_, c := X.Dims()
	if err := p.state.RequireFeatures("Pipeline", "TransformTest", c); err != nil {
		return nil, err
	}
	var Xt mat.Matrix = X
	for i, stage := range p.fitted {
		var out *mat.Dense
		err := errors.SafeStage(p.steps[i].Name, errors.PhaseTransform, func() error {
			var terr error
			out, terr = stage.Transform(Xt)
			return terr
		})
		if err != nil {
			return nil, err
		}
		Xt = out
	}
	return mat.DenseCopyOf(Xt), nil
}

// CloneUnfitted implements model.FoldTransformer. Every step is cloned.
func (p *Pipeline) CloneUnfitted() model.FoldTransformer {
	steps := make([]Step, len(p.steps))
	for i, s := range p.steps {
		steps[i] = Step{Name: s.Name, Stage: s.Stage.CloneUnfitted()}
	}
	return New(steps...)
}

// String renders the step names.
func (p *Pipeline) String() string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return fmt.Sprintf("Pipeline(%s)", strings.Join(names, " -> "))
}
