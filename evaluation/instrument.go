package evaluation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// foldsTotal counts evaluated folds by result.
	// Labels: "success", "stage_error", "shape_error", "timeout", "canceled", "other"
	foldsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cvbench_evaluation_folds_total",
		Help: "Total evaluated folds by result",
	}, []string{"result"})

	foldDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cvbench_evaluation_fold_duration_seconds",
		Help:    "Wall time of one fold, transform through scoring",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cvbench_evaluation_cache_lookups_total",
		Help: "Fold snapshot cache lookups by outcome",
	}, []string{"outcome"})

	evaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cvbench_evaluations_total",
		Help: "Completed evaluation runs",
	})
)
