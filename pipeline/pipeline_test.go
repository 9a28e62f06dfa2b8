package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/preprocessing"
	"github.com/YuminosukeSato/cvbench/sklearn/feature_selection"
)

// panicStage panics on Fit to exercise recovery.
type panicStage struct{}

func (panicStage) Name() string { return "boom" }
func (panicStage) Fit(mat.Matrix, mat.Vector) error { panic("stage exploded") }
func (panicStage) Transform(mat.Matrix) (*mat.Dense, error) { return nil, nil }
func (panicStage) CloneUnfitted() model.Stage { return panicStage{} }

func trainData() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(6, 3, []float64{
		1, 7, 0.1,
		2, 7, 0.3,
		3, 7, 0.2,
		8, 7, 0.2,
		9, 7, 0.1,
		10, 7, 0.3,
	})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

func TestPipelineFitTransform(t *testing.T) {
	p := New(
		Step{Name: "var_thresh", Stage: preprocessing.NewVarianceThreshold(0)},
		Step{Name: "scaler", Stage: preprocessing.NewStandardScalerDefault()},
		Step{Name: "fs", Stage: feature_selection.NewSelectKBest(feature_selection.FClassif, 1)},
	)
	X, y := trainData()
	require.NoError(t, p.Fit(X, y))

	trainX, trainY, err := p.TransformTrain()
	require.NoError(t, err)
	r, c := trainX.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 1, c)
	assert.True(t, mat.Equal(y, trainY))

	test := mat.NewDense(2, 3, []float64{2, 7, 0.5, 9, 7, 0.5})
	out, err := p.TransformTest(test)
	require.NoError(t, err)
	assert.Less(t, out.At(0, 0), out.At(1, 0))

	// column count must match the training data
	_, err = p.TransformTest(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestPipelineCloneAndSet(t *testing.T) {
	p := Make(preprocessing.NewStandardScalerDefault(), feature_selection.NewSelectKBest(feature_selection.Chi2, 2))
	assert.Equal(t, "Pipeline(standard_scaler -> select_k_best)", p.String())

	X, y := trainData()
	require.NoError(t, p.Fit(X, y))

	clone := p.CloneUnfitted()
	_, _, err := clone.TransformTrain()
	assert.Error(t, err, "clone must be unfitted")
	assert.Equal(t, p.Describe(), clone.(*Pipeline).Describe())

	swapped, err := p.Set("select_k_best", feature_selection.NewSelectKBest(feature_selection.FClassif, 1))
	require.NoError(t, err)
	assert.NotEqual(t, p.Describe(), swapped.Describe())
	st, ok := p.Get("select_k_best")
	require.True(t, ok)
	assert.Contains(t, model.Describe(st), "chi2", "Set must not modify the receiver")

	_, err = p.Set("missing", preprocessing.NewStandardScalerDefault())
	assert.True(t, cverrors.IsConfigurationError(err))
}

func TestPipelineStageFailures(t *testing.T) {
	X, y := trainData()

	err := New(Step{Name: "boom", Stage: panicStage{}}).Fit(X, y)
	require.Error(t, err)
	assert.True(t, cverrors.IsStageFitError(err))

	var sfe *cverrors.StageFitError
	require.True(t, cverrors.As(err, &sfe))
	assert.Equal(t, "boom", sfe.Stage)
	assert.Equal(t, cverrors.PhaseFit, sfe.Phase)

	err = New().Fit(X, y)
	assert.True(t, cverrors.IsConfigurationError(err))

	err = Make(preprocessing.NewStandardScalerDefault()).Fit(X, mat.NewVecDense(2, nil))
	assert.True(t, cverrors.IsDataShapeError(err))
}
