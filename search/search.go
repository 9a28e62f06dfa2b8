package search

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/evaluation"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
)

// Builder turns a configuration into fresh transformer and classifier
// templates. It is called once per configuration.
type Builder func(c Configuration) (model.FoldTransformer, model.Classifier, error)

// Row is the outcome of one configuration. Err is set only in lenient
// mode, in which case Results is nil.
type Row struct {
	Config  Configuration
	Results *evaluation.ResultSet
	Score   float64
	Err     error
}

// Valid reports whether the configuration was evaluated.
func (r Row) Valid() bool { return r.Err == nil && r.Results != nil }

// Result is the outcome of a search. Table is in enumeration order.
type Result struct {
	RunID   string
	Primary string
	Best    Configuration
	Score   float64
	Table   []Row
}

// BestRow returns the table row of Best.
func (r *Result) BestRow() Row { return r.Table[r.Best.Index] }

// Searcher evaluates every configuration of a space with one Engine.
type Searcher struct {
	engine  *evaluation.Engine
	primary string
	lenient bool
	workers int
	runID   string
	logger  log.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithPrimary sets the metric used to pick the best configuration.
// The default is AUC, the refit metric of the original grids.
func WithPrimary(metric string) Option {
	return func(s *Searcher) { s.primary = metric }
}

// WithLenient records failing configurations instead of aborting.
func WithLenient(lenient bool) Option {
	return func(s *Searcher) { s.lenient = lenient }
}

// WithWorkers bounds concurrently evaluated configurations.
func WithWorkers(n int) Option {
	return func(s *Searcher) { s.workers = n }
}

// WithRunID fixes the search run id.
func WithRunID(id string) Option {
	return func(s *Searcher) { s.runID = id }
}

// NewSearcher creates a Searcher on top of engine.
func NewSearcher(engine *evaluation.Engine, opts ...Option) *Searcher {
	s := &Searcher{
		engine:  engine,
		primary: "AUC",
		logger:  log.GetLoggerWithName("search"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Search evaluates every configuration of space and returns the one with
// the largest mean primary metric. Ties go to the lower index.
func (s *Searcher) Search(ctx context.Context, ds *dataset.Dataset, space Enumerator, build Builder) (*Result, error) {
	if s.engine == nil || build == nil || space == nil {
		return nil, errors.NewConfigurationError("Searcher.Search", "engine, space and builder are required")
	}
	configs := space.Enumerate()
	if len(configs) == 0 {
		return nil, errors.NewConfigurationError("Searcher.Search", "configuration space is empty")
	}
	primary, err := s.engine.Metrics().Canonical(s.primary)
	if err != nil {
		return nil, err
	}

	runID := s.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := s.logger.With(log.RunIDKey, runID, log.DatasetKey, ds.Name)
	logger.Info("search started", "search.n_configs", len(configs), log.MetricKey, primary, log.WorkersKey, s.workers)

	table := make([]Row, len(configs))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, c := range configs {
		g.Go(func() error {
			row, err := s.evaluate(gctx, ds, c, build, primary)
			if err != nil {
				err = errors.AnnotateConfig(err, c.Index)
				if !s.lenient || gctx.Err() != nil {
					return err
				}
				logger.Warn("configuration failed", log.ConfigKey, c.Index, log.ConfigLabelKey, c.String(), "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				row = Row{Config: c, Score: math.NaN(), Err: err}
			}
			table[c.Index] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failed == len(configs) {
		return nil, errors.NewConfigurationErrorf("Searcher.Search", "all %d configurations failed, first: %v", failed, table[0].Err)
	}

	best := -1
	for i, row := range table {
		if !row.Valid() || math.IsNaN(row.Score) {
			continue
		}
		if best < 0 || row.Score > table[best].Score {
			best = i
		}
	}
	if best < 0 {
		return nil, errors.NewConfigurationErrorf("Searcher.Search", "no configuration produced a finite %s", primary)
	}

	res := &Result{RunID: runID, Primary: primary, Best: table[best].Config, Score: table[best].Score, Table: table}
	logger.Info("search finished",
		log.ConfigKey, best, log.ConfigLabelKey, res.Best.String(), log.ScoreKey, res.Score, "search.failed", failed)
	return res, nil
}

func (s *Searcher) evaluate(ctx context.Context, ds *dataset.Dataset, c Configuration, build Builder, primary string) (Row, error) {
	tr, clf, err := build(c)
	if err != nil {
		return Row{}, err
	}
	rs, err := s.engine.Evaluate(ctx, ds, tr, clf)
	if err != nil {
		return Row{}, err
	}
	score, err := rs.Mean(primary)
	if err != nil {
		return Row{}, err
	}
	s.logger.Debug("configuration scored", log.ConfigKey, c.Index, log.ConfigLabelKey, c.String(), log.ScoreKey, score)
	return Row{Config: c, Results: rs, Score: score}, nil
}
