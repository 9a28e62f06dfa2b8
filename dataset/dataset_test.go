package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
)

func TestNewRejectsRowMismatch(t *testing.T) {
	X := mat.NewDense(3, 2, nil)
	y := mat.NewVecDense(2, nil)

	_, err := New("bad", X, y)
	require.Error(t, err)
	assert.True(t, cverrors.IsDataShapeError(err))
}

func TestSubsetHeadAndFingerprint(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewVecDense(4, []float64{0, 1, 0, 1})
	ds, err := New("toy", X, y)
	require.NoError(t, err)

	sub := ds.Subset([]int{3, 0})
	assert.Equal(t, []float64{7, 8}, mat.Row(nil, 0, sub.X))
	assert.Equal(t, []int{1, 0}, sub.Labels())

	head := ds.Head(2)
	n, _ := head.Dims()
	assert.Equal(t, 2, n)
	assert.Same(t, ds, ds.Head(10))

	assert.Equal(t, ds.Fingerprint(), ds.Subset([]int{0, 1, 2, 3}).Fingerprint())
	assert.NotEqual(t, ds.Fingerprint(), sub.Fingerprint())
	assert.Equal(t, map[int]int{0: 2, 1: 2}, ds.ClassCounts())
	assert.Equal(t, 2, ds.NClasses())
}

func TestHStack(t *testing.T) {
	a := mat.NewDense(2, 1, []float64{1, 2})
	b := mat.NewDense(2, 2, []float64{3, 4, 5, 6})

	out, err := HStack(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 4}, mat.Row(nil, 0, out))
	assert.Equal(t, []float64{2, 5, 6}, mat.Row(nil, 1, out))

	_, err = HStack(a, mat.NewDense(3, 1, nil))
	assert.True(t, cverrors.IsDataShapeError(err))
}

func TestLabelEncoder(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		classes []string
		codes   []float64
	}{
		{"numeric order", []string{"10", "2", "2", "1"}, []string{"1", "2", "10"}, []float64{2, 1, 1, 0}},
		{"lexical order", []string{"pos", "neg", "pos"}, []string{"neg", "pos"}, []float64{1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewLabelEncoder()
			codes, err := enc.FitTransform(tt.labels)
			require.NoError(t, err)
			assert.Equal(t, tt.classes, enc.Classes())
			assert.Equal(t, tt.codes, codes)
		})
	}

	enc := NewLabelEncoder()
	require.NoError(t, enc.Fit([]string{"a", "b"}))
	_, err := enc.Transform([]string{"c"})
	assert.Error(t, err)
	label, err := enc.InverseTransform(1)
	require.NoError(t, err)
	assert.Equal(t, "b", label)
}

func TestReadCSV(t *testing.T) {
	input := "f1,f2,class\n1,2,yes\n3,?,no\n5,6,yes\n"

	var warnings []error
	cverrors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { cverrors.SetZerologWarnFunc(nil) })

	ds, err := ReadCSV(strings.NewReader(input), "demo", "class")
	require.NoError(t, err)

	n, d := ds.Dims()
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, d)
	assert.Equal(t, []string{"f1", "f2"}, ds.FeatureNames)
	assert.Equal(t, []string{"no", "yes"}, ds.Classes)
	assert.Equal(t, []int{1, 0, 1}, ds.Labels())
	assert.True(t, math.IsNaN(ds.X.At(1, 1)))
	assert.Len(t, warnings, 1)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"missing label column", "a,b\n1,2\n", cverrors.IsConfigurationError},
		{"ragged row", "a,class\n1,x\n2\n", func(err error) bool { return err != nil }},
		{"no rows", "a,class\n", func(err error) bool { return cverrors.Is(err, cverrors.ErrEmptyData) }},
		{"non numeric", "a,class\nfoo,x\n", func(err error) bool { return err != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), "bad", "class")
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "toy"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "toy", "SPECTF.train"), []byte("1,59,52\n1,72,62\n0,71,66\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "iris.csv"), []byte("x,class\n1,a\n2,b\n"), 0o644))

	cat := NewCatalog(dir)

	toy, err := cat.Load("toy")
	require.NoError(t, err)
	n, d := toy.Dims()
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, d)
	assert.Equal(t, []int{1, 0}, toy.Labels())

	iris, err := cat.Load("iris")
	require.NoError(t, err)
	assert.Equal(t, "iris", iris.Name)

	_, err = cat.Load("absent")
	assert.Error(t, err)
}
