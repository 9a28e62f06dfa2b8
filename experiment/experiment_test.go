package experiment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/cvbench/config"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/metrics"
	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/sklearn/model_selection"
)

// writeDataset writes <dir>/<name>.csv with two informative and two noise
// features. The minority class has 12 of 36 rows.
func writeDataset(t *testing.T, dir, name string) {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 7))
	var b strings.Builder
	b.WriteString("f0,f1,f2,f3,class\n")
	for i := 0; i < 36; i++ {
		label, shift := "neg", 0.0
		if i%3 == 0 {
			label, shift = "pos", 4
		}
		fmt.Fprintf(&b, "%.4f,%.4f,%.4f,%.4f,%s\n",
			shift+rng.Float64(), shift+rng.Float64(), rng.Float64(), rng.Float64(), label)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".csv"), []byte(b.String()), 0o600))
}

func testConfig(t *testing.T, mode string) config.Experiment {
	t.Helper()
	dir := t.TempDir()
	writeDataset(t, dir, "synthetic")
	cfg := config.Default()
	cfg.Dataset = "synthetic"
	cfg.DataDir = dir
	cfg.ResultsDir = filepath.Join(dir, "results")
	cfg.Mode = mode
	cfg.FeatureSelection = "f_classif"
	cfg.Classifier = "gaussian_nb"
	cfg.K = 2
	cfg.Seed = 3
	cfg.Policy = model_selection.Policy{K: 3}
	return cfg
}

func TestRegistries(t *testing.T) {
	assert.Equal(t, []string{"f_classif", "chi2", "relief_f", "variance", "select_fdr"}, FeatureSelectorNames())
	assert.Equal(t, []string{"knn", "gaussian_nb", "logistic_regression", "svc", "random_forest", "passive_aggressive", "decision_tree"},
		ClassifierNames())

	for _, name := range FeatureSelectorNames() {
		fs, err := NewFeatureSelector(name, 10)
		require.NoError(t, err, name)
		assert.NotNil(t, fs)
	}
	for _, name := range ClassifierNames() {
		clf, err := NewClassifier(name, 1)
		require.NoError(t, err, name)
		assert.Equal(t, name, clf.Name())
	}

	_, err := NewFeatureSelector("mrmr", 10)
	assert.True(t, cverrors.IsConfigurationError(err))
	_, err = NewClassifier("mlp", 0)
	assert.True(t, cverrors.IsConfigurationError(err))
	assert.True(t, ValidK(10))
	assert.False(t, ValidK(7))
}

func TestDefaultGrid(t *testing.T) {
	configs := DefaultGrid(SearchKs).Enumerate()
	// 4 score functions x 1 k x 7 classifiers, then select_fdr x 7 classifiers.
	require.Len(t, configs, 35)
	assert.Equal(t, "fs=select_k_best score_func=f_classif k=10 clf=knn", configs[0].String())
	assert.Equal(t, "fs=select_k_best score_func=f_classif k=10 clf=svc", configs[3].String())
	assert.Equal(t, "fs=select_fdr clf=random_forest", configs[32].String())
	assert.Equal(t, "fs=select_fdr clf=decision_tree", configs[34].String())

	build := Builder(36, 0)
	for _, c := range []int{0, 3, 32, 34} {
		tr, clf, err := build(configs[c])
		require.NoError(t, err)
		assert.Equal(t, "pipeline", tr.Name())
		assert.NotNil(t, clf)
	}
}

func TestRunAug(t *testing.T) {
	cfg := testConfig(t, config.ModeAug)
	ds, err := dataset.NewCatalog(cfg.DataDir).Load(cfg.Dataset)
	require.NoError(t, err)
	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)

	rs, err := RunAug(context.Background(), ds, AugParams{FeatureSelection: "f_classif", Classifier: "gaussian_nb", K: 2, Seed: 3}, engine)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Len())
	acc, err := rs.Mean(metrics.NameAccuracy)
	require.NoError(t, err)
	assert.Greater(t, acc, 0.9)

	again, err := RunAug(context.Background(), ds, AugParams{FeatureSelection: "f_classif", Classifier: "gaussian_nb", K: 2, Seed: 3}, engine)
	require.NoError(t, err)
	assert.Equal(t, rs.Rows(), again.Rows())

	_, err = RunAug(context.Background(), ds, AugParams{FeatureSelection: "f_classif", Classifier: "knn", K: 7}, engine)
	assert.True(t, cverrors.IsConfigurationError(err))
}

func TestRunWritesAugResults(t *testing.T) {
	cfg := testConfig(t, config.ModeAug)
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")

	out, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, out.Files, 1)
	assert.Equal(t, filepath.Join(cfg.ResultsDir, "synthetic", "aug", "results.csv"), out.Files[0])

	data, err := os.ReadFile(out.Files[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "accuracy,AUC,balanced_accuracy,f1_macro,precision_macro,recall_macro", lines[0])
	assert.Len(t, lines, 4)

	// A second run is served from the cache and writes the same scores.
	_, err = Run(context.Background(), cfg)
	require.NoError(t, err)
	again, err := os.ReadFile(out.Files[0])
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestRunSearch(t *testing.T) {
	cfg := testConfig(t, config.ModeSearch)
	cfg.Metrics = []string{metrics.NameAccuracy, metrics.NameROCAUC}
	cfg.PrimaryMetric = metrics.NameROCAUC

	out, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, out.Files, 2)
	assert.Equal(t, filepath.Join(cfg.ResultsDir, "synthetic.json"), out.Files[0])
	assert.FileExists(t, out.Files[1])

	best, err := os.ReadFile(out.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(best), `"run_id": "`+out.RunID+`"`)
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t, config.ModeAug)
	cfg.Classifier = "mlp"
	_, err := Run(context.Background(), cfg)
	assert.True(t, cverrors.IsConfigurationError(err))

	cfg = testConfig(t, config.ModeAug)
	cfg.Dataset = "missing"
	_, err = Run(context.Background(), cfg)
	assert.Error(t, err)
}
