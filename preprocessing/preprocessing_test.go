package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/dataset"
	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})
	s := NewStandardScalerDefault()
	require.NoError(t, s.Fit(X, nil))

	out, err := s.Transform(X)
	require.NoError(t, err)
	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, out)
		assert.InDelta(t, 0, floats.Sum(col)/4, 1e-12)
		assert.InDelta(t, 1, floats.Dot(col, col)/4, 1e-12)
	}

	back, err := s.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))

	_, err = s.Transform(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
	_, err = s.CloneUnfitted().Transform(X)
	assert.Error(t, err)
}

func TestStandardScalerConstantColumn(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})
	s := NewStandardScalerDefault()
	require.NoError(t, s.Fit(X, nil))
	out, err := s.Transform(X)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, out.At(i, 0))
	}
}

func TestStandardScalerWithoutCentering(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{2, 6})
	s := NewStandardScaler(false, true)
	require.NoError(t, s.Fit(X, nil))
	out, err := s.Transform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, mat.Col(nil, 0, out))
	assert.Equal(t, "standard_scaler(with_mean=false,with_std=true)", s.Describe())
}

func TestSimpleImputer(t *testing.T) {
	nan := math.NaN()
	X := mat.NewDense(4, 3, []float64{
		1, nan, nan,
		nan, 2, nan,
		3, 4, nan,
		5, 9, nan,
	})

	var warnings []error
	cverrors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer cverrors.SetZerologWarnFunc(nil)

	tests := []struct {
		strategy string
		fill0    float64
		fill1    float64
	}{
		{StrategyMean, 3, 5},
		{StrategyMedian, 3, 4},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			imp := NewSimpleImputer(tt.strategy)
			require.NoError(t, imp.Fit(X, nil))
			out, err := imp.Transform(X)
			require.NoError(t, err)

			_, c := out.Dims()
			assert.Equal(t, 2, c, "all-missing column must be dropped")
			assert.Equal(t, tt.fill0, out.At(1, 0))
			assert.Equal(t, tt.fill1, out.At(0, 1))
			assert.Equal(t, 4.0, out.At(2, 1))
		})
	}
	assert.NotEmpty(t, warnings)

	assert.Error(t, NewSimpleImputer("most_frequent").Fit(X, nil))
}

func TestVarianceThreshold(t *testing.T) {
	X := mat.NewDense(3, 3, []float64{
		1, 7, 0,
		2, 7, 0,
		3, 7, 1,
	})
	v := NewVarianceThreshold(0)
	require.NoError(t, v.Fit(X, nil))
	assert.Equal(t, []int{0, 2}, v.Support())

	out, err := v.Transform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, mat.Row(nil, 0, out))

	constant := mat.NewDense(2, 1, []float64{4, 4})
	assert.Error(t, NewVarianceThreshold(0).Fit(constant, nil))
}

func TestStepsAndApply(t *testing.T) {
	assert.Len(t, Steps(10, 5), 3)
	wide := Steps(10, MaxFeatures+1)
	require.Len(t, wide, 4)
	assert.Equal(t, "select_k_best", wide[3].Name())

	nan := math.NaN()
	X := mat.NewDense(6, 3, []float64{
		1, 5, nan,
		2, 5, 1,
		3, 5, 2,
		4, 5, 3,
		5, 5, 4,
		6, 5, 5,
	})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})
	ds, err := dataset.New("demo", X, y)
	require.NoError(t, err)

	out, err := Apply(ds, Steps(6, 3))
	require.NoError(t, err)

	n, d := out.Dims()
	assert.Equal(t, 6, n)
	assert.Equal(t, 2, d, "constant column must be removed")
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, out.X)
		assert.InDelta(t, 0, floats.Sum(col), 1e-9)
		for _, v := range col {
			assert.False(t, math.IsNaN(v))
		}
	}
	assert.True(t, mat.Equal(y, out.Y))
}

func TestApplyReportsFailingStage(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{3, 3})
	ds, err := dataset.New("flat", X, mat.NewVecDense(2, []float64{0, 1}))
	require.NoError(t, err)

	_, err = Apply(ds, Steps(2, 1))
	require.Error(t, err)
	assert.True(t, cverrors.IsStageFitError(err))
}
