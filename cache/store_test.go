package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
)

func snapshot() *model.FoldSnapshot {
	return &model.FoldSnapshot{
		TrainX: mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
		TrainY: mat.NewVecDense(2, []float64{0, 1}),
		TestX:  mat.NewDense(1, 2, []float64{5, 6}),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	key := Key("fp", "augment(...)", 0, []int{0, 1, 2}, []int{3, 4})
	_, ok, err := s.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(key, snapshot()))
	got, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mat.Equal(snapshot().TrainX, got.TrainX))
	assert.True(t, mat.Equal(snapshot().TrainY, got.TrainY))
	assert.True(t, mat.Equal(snapshot().TestX, got.TestX))

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStorePersists(t *testing.T) {
	dir := t.TempDir()
	key := Key("fp", "pipeline", 1, []int{1, 2}, []int{0})

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(key, snapshot()))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	_, ok, err := s.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeyDistinguishesInputs(t *testing.T) {
	base := Key("fp", "desc", 0, []int{0, 3}, []int{1, 2})
	assert.Equal(t, base, Key("fp", "desc", 0, []int{0, 3}, []int{1, 2}))
	for _, other := range [][]byte{
		Key("fp2", "desc", 0, []int{0, 3}, []int{1, 2}),
		Key("fp", "desc2", 0, []int{0, 3}, []int{1, 2}),
		Key("fp", "desc", 1, []int{0, 3}, []int{1, 2}),
		Key("fp", "desc", 0, []int{0, 3}, []int{1, 3}),
		Key("fp", "desc", 0, []int{0}, []int{1, 2}),
		Key("fp", "desc", 0, []int{0, 3, 1}, []int{2}),
	} {
		assert.NotEqual(t, base, other)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestPutRejectsIncompleteSnapshot(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()
	assert.Error(t, s.Put([]byte("fold/x"), &model.FoldSnapshot{}))
}
