package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/dataset"
	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/sklearn/decomposition"
	"github.com/YuminosukeSato/cvbench/sklearn/feature_selection"
)

func imbalanced() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(10, 3, []float64{
		0.1, 5, 1.0,
		0.3, 4, 1.1,
		0.2, 6, 0.9,
		0.4, 5, 1.2,
		0.5, 4, 0.8,
		0.2, 6, 1.0,
		0.6, 5, 1.1,
		3.1, 5, 0.9,
		3.4, 4, 1.0,
		2.9, 6, 1.2,
	})
	y := mat.NewVecDense(10, []float64{0, 0, 0, 0, 0, 0, 0, 1, 1, 1})
	return X, y
}

func TestAugmenterTrainIsBalanced(t *testing.T) {
	X, y := imbalanced()
	a := New(feature_selection.NewSelectKBest(feature_selection.FClassif, 2), 0)
	require.NoError(t, a.Fit(X, y))

	trainX, trainY, err := a.TransformTrain()
	require.NoError(t, err)

	counts := dataset.ClassCounts(trainY)
	assert.Equal(t, 7, counts[0])
	assert.Equal(t, 7, counts[1])

	rows, cols := trainX.Dims()
	assert.Equal(t, 14, rows)
	assert.Greater(t, cols, 2, "projections must be stacked after the selected features")
}

func TestAugmenterTestRowsMatchHeldOut(t *testing.T) {
	X, y := imbalanced()
	fs := feature_selection.NewSelectKBest(feature_selection.FClassif, 2)
	a := New(fs, 0)
	require.NoError(t, a.Fit(X, y))

	test := mat.NewDense(3, 3, []float64{
		0.3, 5, 1.0,
		3.0, 5, 1.0,
		1.5, 4, 1.1,
	})
	out, err := a.TransformTest(test)
	require.NoError(t, err)

	rows, cols := out.Dims()
	assert.Equal(t, 3, rows, "test rows must never be resampled")
	trainX, _, _ := a.TransformTrain()
	_, trainCols := trainX.Dims()
	assert.Equal(t, trainCols, cols)

	// first block is exactly the selected original features
	selected, err := a.selector.Transform(test)
	require.NoError(t, err)
	_, sel := selected.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < sel; j++ {
			assert.Equal(t, selected.At(i, j), out.At(i, j))
		}
	}
}

func TestAugmenterCloneIsIndependent(t *testing.T) {
	X, y := imbalanced()
	a := New(feature_selection.NewSelectKBest(feature_selection.FClassif, 2), 3)
	clone := a.CloneUnfitted()
	assert.Equal(t, a.Describe(), clone.(*Augmenter).Describe())

	require.NoError(t, a.Fit(X, y))
	_, _, err := clone.TransformTrain()
	assert.Error(t, err)

	require.NoError(t, clone.Fit(X, y))
	ax, _, _ := a.TransformTrain()
	cx, _, _ := clone.TransformTrain()
	assert.True(t, mat.EqualApprox(ax, cx, 1e-12), "same seed must reproduce the same training matrix")
}

func TestAugmenterProjectionFailure(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	a := New(feature_selection.NewSelectKBest(feature_selection.Variance, 0), 0,
		WithProjections(decomposition.NewKernelPCA(decomposition.KernelLinear)))
	err := a.Fit(X, y)
	require.Error(t, err)

	var sfe *cverrors.StageFitError
	require.True(t, cverrors.As(err, &sfe))
	assert.Equal(t, "kernel_pca_linear", sfe.Stage)
	assert.Equal(t, cverrors.PhaseFit, sfe.Phase)
}

func TestAugmenterRejectsShapeMismatch(t *testing.T) {
	X, _ := imbalanced()
	a := New(feature_selection.NewSelectKBest(feature_selection.FClassif, 2), 0)
	err := a.Fit(X, mat.NewVecDense(3, nil))
	assert.True(t, cverrors.IsDataShapeError(err))
}
