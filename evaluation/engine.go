// Package evaluation runs a fold transformer and a classifier under
// cross-validation and collects per-fold metric values.
package evaluation

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/cache"
	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/metrics"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
	"github.com/YuminosukeSato/cvbench/sklearn/model_selection"
)

// SnapshotCache stores transformed fold matrices. *cache.Store implements it.
type SnapshotCache interface {
	Get(key []byte) (*model.FoldSnapshot, bool, error)
	Put(key []byte, snap *model.FoldSnapshot) error
}

// Engine evaluates one transformer/classifier pair over the folds of a
// dataset. An Engine holds no per-run state and may be shared.
type Engine struct {
	policy      model_selection.Policy
	metrics     *metrics.Registry
	workers     int
	foldTimeout time.Duration
	cache       SnapshotCache
	logger      log.Logger
	runID       string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the fold policy.
func WithPolicy(p model_selection.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithMetrics sets the metric registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithWorkers bounds concurrently running folds. 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithFoldTimeout bounds each fold. 0 disables the bound.
func WithFoldTimeout(d time.Duration) Option {
	return func(e *Engine) { e.foldTimeout = d }
}

// WithCache enables snapshot memoization for describable transformers.
func WithCache(c SnapshotCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLogger replaces the "evaluation" component logger.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRunID fixes the run id. By default every Evaluate gets a new UUID.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// NewEngine creates an Engine with the default policy and metric registry.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		policy:  model_selection.DefaultPolicy(),
		metrics: metrics.Default(),
		logger:  log.GetLoggerWithName("evaluation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e
}

// Metrics returns the registry the engine scores with.
func (e *Engine) Metrics() *metrics.Registry { return e.metrics }

// Policy returns the fold policy.
func (e *Engine) Policy() model_selection.Policy { return e.policy }

// Evaluate runs every fold and returns the per-fold metric values. Any fold
// failure aborts the run; the error carries the fold index and stage name.
func (e *Engine) Evaluate(ctx context.Context, ds *dataset.Dataset, tr model.FoldTransformer, clf model.Classifier) (*ResultSet, error) {
	if ds == nil || tr == nil || clf == nil {
		return nil, errors.NewConfigurationError("Engine.Evaluate", "dataset, transformer and classifier are required")
	}
	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := e.logger.With(log.RunIDKey, runID, log.DatasetKey, ds.Name)

	folds, strategy, err := e.policy.Split(ds.Y)
	if err != nil {
		return nil, err
	}
	logger.Info("evaluation started",
		log.StrategyKey, strategy, log.NFoldsKey, len(folds), log.FoldSizesKey, model_selection.Describe(folds),
		log.StageKey, tr.Name(), log.ModelNameKey, clf.Name(), log.WorkersKey, e.workers)

	var fingerprint, descriptor string
	if e.cache != nil {
		if d, ok := tr.(model.Describer); ok {
			fingerprint, descriptor = ds.Fingerprint(), d.Describe()
		}
	}

	perFold := make([][]float64, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, f := range folds {
		fold := f
		g.Go(func() error {
			start := time.Now()
			scores, err := e.runFoldWithTimeout(gctx, ds, fold, tr, clf, fingerprint, descriptor)
			foldDuration.Observe(time.Since(start).Seconds())
			foldsTotal.WithLabelValues(foldResult(err)).Inc()
			if err != nil {
				err = errors.AnnotateFold(err, fold.Index)
				logger.Error("fold failed", log.FoldKey, fold.Index, "error", err)
				return err
			}
			perFold[fold.Index] = scores
			logger.Debug("fold scored", log.FoldKey, fold.Index, log.DurationMsKey, time.Since(start).Milliseconds())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	evaluationsTotal.Inc()
	rs := NewResultSet(runID, strategy, e.metrics.Names(), perFold)
	for _, name := range rs.Names() {
		mean, _ := rs.Mean(name)
		logger.Info("metric summary", log.MetricKey, name, log.ScoreKey, mean)
	}
	return rs, nil
}

func foldResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.IsStageFitError(err):
		return "stage_error"
	case errors.IsDataShapeError(err):
		return "shape_error"
	default:
		return "other"
	}
}

type foldOutcome struct {
	scores []float64
	err    error
}

// runFoldWithTimeout runs one fold, giving up when ctx ends or the fold
// timeout expires. A fold that outlives its deadline keeps running in the
// background but its result is discarded.
func (e *Engine) runFoldWithTimeout(ctx context.Context, ds *dataset.Dataset, f model_selection.Fold,
	tr model.FoldTransformer, clf model.Classifier, fingerprint, descriptor string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.foldTimeout <= 0 {
		return e.runFold(ds, f, tr, clf, fingerprint, descriptor)
	}

	tctx, cancel := context.WithTimeout(ctx, e.foldTimeout)
	defer cancel()
	done := make(chan foldOutcome, 1)
	go func() {
		scores, err := e.runFold(ds, f, tr, clf, fingerprint, descriptor)
		done <- foldOutcome{scores: scores, err: err}
	}()

	select {
	case out := <-done:
		return out.scores, out.err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, errors.NewStageFitError(tr.Name(), errors.PhaseFit,
				errors.Wrapf(context.DeadlineExceeded, "fold exceeded %s", e.foldTimeout))
		}
		return nil, ctx.Err()
	}
}

// runFold is one unit of work: clone, fit on train, transform both sides,
// fit the classifier, predict the held-out rows and score them.
func (e *Engine) runFold(ds *dataset.Dataset, f model_selection.Fold, tr model.FoldTransformer,
	clf model.Classifier, fingerprint, descriptor string) ([]float64, error) {
	snap, err := e.transformFold(ds, f, tr, fingerprint, descriptor)
	if err != nil {
		return nil, err
	}

	trainRows, trainCols := snap.TrainX.Dims()
	if trainRows != snap.TrainY.Len() {
		return nil, errors.NewDataShapeError("Engine.Evaluate", "rows of transformed train vs labels", trainRows, snap.TrainY.Len())
	}
	testRows, testCols := snap.TestX.Dims()
	if testCols != trainCols {
		return nil, errors.NewDataShapeError("Engine.Evaluate", "columns of transformed test vs train", trainCols, testCols)
	}
	if testRows != len(f.Test) {
		return nil, errors.NewDataShapeError("Engine.Evaluate", "rows of transformed test vs held-out fold", len(f.Test), testRows)
	}

	c := clf.CloneUnfitted()
	if err := errors.SafeStage(c.Name(), errors.PhaseFit, func() error {
		return c.Fit(snap.TrainX, snap.TrainY)
	}); err != nil {
		return nil, err
	}
	var pred *mat.VecDense
	if err := errors.SafeStage(c.Name(), errors.PhasePredict, func() error {
		var perr error
		pred, perr = c.Predict(snap.TestX)
		return perr
	}); err != nil {
		return nil, err
	}

	return e.metrics.Score(dataset.SelectLabels(ds.Y, f.Test), pred)
}

// transformFold returns the transformed train and test matrices of f,
// consulting the cache when a descriptor is available.
func (e *Engine) transformFold(ds *dataset.Dataset, f model_selection.Fold, tr model.FoldTransformer,
	fingerprint, descriptor string) (*model.FoldSnapshot, error) {
	var key []byte
	if descriptor != "" {
		key = cache.Key(fingerprint, descriptor, f.Index, f.Train, f.Test)
		snap, ok, err := e.cache.Get(key)
		if err != nil {
			e.logger.Warn("cache lookup failed", log.FoldKey, f.Index, "error", err)
		}
		if ok {
			cacheLookups.WithLabelValues("hit").Inc()
			return snap, nil
		}
		cacheLookups.WithLabelValues("miss").Inc()
	}

	t := tr.CloneUnfitted()
	trainX := dataset.SelectRows(ds.X, f.Train)
	trainY := dataset.SelectLabels(ds.Y, f.Train)
	if err := errors.SafeStage(t.Name(), errors.PhaseFit, func() error {
		return t.Fit(trainX, trainY)
	}); err != nil {
		return nil, err
	}

	snap := &model.FoldSnapshot{}
	if err := errors.SafeStage(t.Name(), errors.PhaseTransform, func() error {
		var terr error
		snap.TrainX, snap.TrainY, terr = t.TransformTrain()
		if terr != nil {
			return terr
		}
		snap.TestX, terr = t.TransformTest(dataset.SelectRows(ds.X, f.Test))
		return terr
	}); err != nil {
		return nil, err
	}

	if key != nil {
		if err := e.cache.Put(key, snap); err != nil {
			e.logger.Warn("cache store failed", log.FoldKey, f.Index, "error", err)
		}
	}
	return snap, nil
}
