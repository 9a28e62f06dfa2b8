package feature_selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// informative returns 20 samples where column 1 separates the two classes,
// column 0 is noise and column 2 is constant.
func informative() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(20, 3, nil)
	y := mat.NewVecDense(20, nil)
	for i := 0; i < 20; i++ {
		c := float64(i % 2)
		y.SetVec(i, c)
		X.Set(i, 0, float64((i*7)%5))
		X.Set(i, 1, 10*c+float64(i%3))
		X.Set(i, 2, 4)
	}
	return X, y
}

func TestScorersRankInformativeFeature(t *testing.T) {
	X, y := informative()

	for _, scorer := range []Scorer{FClassif, Chi2, ReliefF} {
		t.Run(scorer.Name, func(t *testing.T) {
			scores, _, err := scorer.Func(X, y)
			require.NoError(t, err)
			require.Len(t, scores, 3)
			assert.Greater(t, scores[1], scores[0])
		})
	}
}

func TestFClassifPValues(t *testing.T) {
	X, y := informative()
	scores, pvalues, err := FClassif.Func(X, y)
	require.NoError(t, err)

	assert.Less(t, pvalues[1], 1e-6)
	assert.Greater(t, pvalues[0], pvalues[1])
	assert.True(t, math.IsNaN(scores[2]), "constant feature has undefined F")
}

func TestSelectKBest(t *testing.T) {
	X, y := informative()

	sel := NewSelectKBest(FClassif, 1)
	require.NoError(t, sel.Fit(X, y))
	assert.Equal(t, []int{1}, sel.Support())

	out, err := sel.Transform(X)
	require.NoError(t, err)
	r, c := out.Dims()
	assert.Equal(t, 20, r)
	assert.Equal(t, 1, c)
	assert.Equal(t, X.At(5, 1), out.At(5, 0))

	// k >= d keeps everything without scoring.
	all := NewSelectKBest(FClassif, 10)
	require.NoError(t, all.Fit(X, y))
	assert.Equal(t, []int{0, 1, 2}, all.Support())

	_, err = sel.Transform(mat.NewDense(2, 5, nil))
	assert.Error(t, err)

	clone := sel.CloneUnfitted()
	_, err = clone.Transform(X)
	assert.Error(t, err, "clone must be unfitted")
	assert.Equal(t, "select_k_best(score_func=f_classif,k=1)", sel.Describe())
}

func TestBenjaminiHochberg(t *testing.T) {
	tests := []struct {
		name    string
		pvalues []float64
		alpha   float64
		want    []int
	}{
		{"step up", []float64{0.01, 0.04, 0.03, 0.5}, 0.1, []int{0, 1, 2}},
		{"none", []float64{0.5, 0.9}, 0.05, nil},
		{"nan ignored", []float64{math.NaN(), 0.001}, 0.05, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BenjaminiHochberg(tt.pvalues, tt.alpha))
		})
	}
}

func TestSelectFdr(t *testing.T) {
	X, y := informative()

	sel := NewSelectFdr(0.1)
	require.NoError(t, sel.Fit(X, y))
	assert.Contains(t, sel.Support(), 1)
	assert.NotContains(t, sel.Support(), 2)

	// Pure noise keeps exactly one feature.
	noise := mat.NewDense(20, 2, nil)
	for i := 0; i < 20; i++ {
		noise.Set(i, 0, float64(i/2%2))
		noise.Set(i, 1, float64(i/4%2))
	}
	yNoise := mat.NewVecDense(20, nil)
	for i := 0; i < 20; i++ {
		yNoise.SetVec(i, float64(i%2))
	}
	fdr := NewSelectFdr(0.05)
	require.NoError(t, fdr.Fit(noise, yNoise))
	assert.Len(t, fdr.Support(), 1)

	assert.Error(t, NewSelectFdr(0).Fit(X, y))
	assert.Error(t, NewSelectFdrWithScorer(Variance, 0.1).Fit(X, y))
}
