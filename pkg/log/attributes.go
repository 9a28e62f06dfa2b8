package log

// 属性キーは "cv.fold" のような階層名にする。並列に走る fold や構成の
// ログを後から絞り込めるように、全コンポーネントで同じキーを使う。

// Run context.
const (
	ComponentKey = "component"
	RunIDKey     = "run.id"
	ModelNameKey = "model.name" // classifier name
	StageKey     = "stage.name"
)

// Cross-validation and search.
const (
	FoldKey        = "cv.fold"
	NFoldsKey      = "cv.n_folds"
	StrategyKey    = "cv.strategy" // "stratified_kfold", "kfold" or "leave_one_out"
	FoldSizesKey   = "cv.fold_sizes"
	ConfigKey      = "search.config"
	ConfigLabelKey = "search.config_label"
	MetricKey      = "metric.name"
	ScoreKey       = "metric.score"
)

// Data shape.
const (
	DatasetKey  = "data.name"
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
)

// Performance.
const (
	DurationMsKey = "perf.duration_ms"
	CacheHitKey   = "perf.cache_hit"
	WorkersKey    = "perf.workers"
)

const (
	// ErrorTypeKey names the harness error kind: ConfigurationError,
	// StageFitError or DataShapeError.
	ErrorTypeKey  = "error.type"
	RandomSeedKey = "config.random_seed"
)
