package experiment

import (
	"context"
	"path/filepath"

	"github.com/YuminosukeSato/cvbench/cache"
	"github.com/YuminosukeSato/cvbench/config"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/evaluation"
	"github.com/YuminosukeSato/cvbench/metrics"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
	"github.com/YuminosukeSato/cvbench/report"
	"github.com/YuminosukeSato/cvbench/search"
)

// Outcome lists the files a run wrote.
type Outcome struct {
	RunID string
	Files []string
}

// NewEngine builds the evaluation engine described by cfg. store may be nil.
func NewEngine(cfg config.Experiment, store evaluation.SnapshotCache) (*evaluation.Engine, error) {
	reg := metrics.Default()
	if len(cfg.Metrics) > 0 {
		sub, err := reg.Subset(cfg.Metrics)
		if err != nil {
			return nil, err
		}
		reg = sub
	}
	opts := []evaluation.Option{
		evaluation.WithPolicy(cfg.Policy),
		evaluation.WithMetrics(reg),
		evaluation.WithWorkers(cfg.Workers),
		evaluation.WithFoldTimeout(cfg.FoldTimeout),
	}
	if store != nil {
		opts = append(opts, evaluation.WithCache(store))
	}
	return evaluation.NewEngine(opts...), nil
}

// Run loads the dataset of cfg, runs the configured mode and writes its
// results under cfg.ResultsDir.
func Run(ctx context.Context, cfg config.Experiment) (out Outcome, err error) {
	if err := cfg.Validate(); err != nil {
		return Outcome{}, err
	}
	logger := log.GetLoggerWithName("experiment")

	ds, err := dataset.NewCatalog(cfg.DataDir).Load(cfg.Dataset)
	if err != nil {
		return Outcome{}, errors.Wrapf(err, "load dataset %s", cfg.Dataset)
	}

	var store *cache.Store
	if cfg.CacheDir != "" {
		store, err = cache.Open(filepath.Join(cfg.CacheDir, cfg.Dataset))
		if err != nil {
			return Outcome{}, err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "close cache")
			}
		}()
	}
	var snapshots evaluation.SnapshotCache
	if store != nil {
		snapshots = store
	}
	engine, err := NewEngine(cfg, snapshots)
	if err != nil {
		return Outcome{}, err
	}
	sink := report.FileSink{Root: cfg.ResultsDir, Plot: cfg.Plot}

	switch cfg.Mode {
	case config.ModeAug:
		rs, err := RunAug(ctx, ds, AugParams{
			FeatureSelection: cfg.FeatureSelection,
			Classifier:       cfg.Classifier,
			K:                cfg.K,
			Seed:             cfg.Seed,
		}, engine)
		if err != nil {
			return Outcome{}, err
		}
		path, err := sink.SaveAug(cfg.Dataset, rs)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{RunID: rs.RunID, Files: []string{path}}, nil

	case config.ModeSearch:
		searcher := search.NewSearcher(engine,
			search.WithPrimary(cfg.PrimaryMetric),
			search.WithLenient(cfg.Lenient),
			search.WithWorkers(cfg.SearchWorkers),
		)
		res, err := RunSearch(ctx, ds, DefaultGrid(SearchKs), searcher, cfg.Seed)
		if err != nil {
			return Outcome{}, err
		}
		bestPath, tablePath, err := sink.SaveSearch(cfg.Dataset, res)
		if err != nil {
			return Outcome{}, err
		}
		logger.Info("best configuration", log.ConfigKey, res.Best.Index, log.ConfigLabelKey, res.Best.String(), log.ScoreKey, res.Score)
		return Outcome{RunID: res.RunID, Files: []string{bestPath, tablePath}}, nil
	}
	return Outcome{}, errors.NewConfigurationErrorf("experiment.Run", "unknown mode %q", cfg.Mode)
}
