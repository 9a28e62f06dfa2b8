// Package dataset holds labelled feature matrices and loads them from disk.
package dataset

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
)

// Dataset is a feature matrix with encoded class labels 0..C-1.
type Dataset struct {
	Name string
	X    *mat.Dense
	Y    *mat.VecDense

	// FeatureNames and Classes are optional. Classes[i] is the original
	// label encoded as i.
	FeatureNames []string
	Classes      []string
}

// New builds a Dataset and checks that X and y have the same number of rows.
func New(name string, X *mat.Dense, y *mat.VecDense) (*Dataset, error) {
	if X == nil || y == nil {
		return nil, cverrors.ErrEmptyData
	}
	n, _ := X.Dims()
	if n == 0 {
		return nil, cverrors.ErrEmptyData
	}
	if y.Len() != n {
		return nil, cverrors.NewDataShapeError("dataset.New", "rows of X vs labels", n, y.Len())
	}
	return &Dataset{Name: name, X: X, Y: y}, nil
}

// Dims returns the number of samples and features.
func (d *Dataset) Dims() (nSamples, nFeatures int) {
	return d.X.Dims()
}

// WithX returns a copy of d whose features are replaced by X, keeping labels
// and class names. Feature names are dropped when the column count changes.
func (d *Dataset) WithX(X *mat.Dense) (*Dataset, error) {
	out, err := New(d.Name, X, d.Y)
	if err != nil {
		return nil, err
	}
	out.Classes = d.Classes
	if _, c := X.Dims(); c == len(d.FeatureNames) {
		out.FeatureNames = d.FeatureNames
	}
	return out, nil
}

// Subset returns the rows at idx, in that order.
func (d *Dataset) Subset(idx []int) *Dataset {
	return &Dataset{
		Name:         d.Name,
		X:            SelectRows(d.X, idx),
		Y:            SelectLabels(d.Y, idx),
		FeatureNames: d.FeatureNames,
		Classes:      d.Classes,
	}
}

// Head returns the first n rows. It returns d itself when n >= rows.
func (d *Dataset) Head(n int) *Dataset {
	rows, _ := d.Dims()
	if n >= rows || n <= 0 {
		return d
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return d.Subset(idx)
}

// Labels returns the integer class labels.
func (d *Dataset) Labels() []int {
	return Labels(d.Y)
}

// ClassCounts returns the number of samples per encoded class.
func (d *Dataset) ClassCounts() map[int]int {
	return ClassCounts(d.Y)
}

// NClasses returns the number of distinct labels present.
func (d *Dataset) NClasses() int {
	return len(d.ClassCounts())
}

// Fingerprint is a stable hex digest of the name, shape and contents.
func (d *Dataset) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(d.Name))
	r, c := d.Dims()
	var buf [8]byte
	for _, v := range []int{r, c} {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(d.X.At(i, j)))
			h.Write(buf[:])
		}
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(d.Y.AtVec(i)))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SelectRows copies the rows of X at idx into a new matrix.
func SelectRows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	if len(idx) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// SelectLabels copies the entries of y at idx into a new vector.
func SelectLabels(y mat.Vector, idx []int) *mat.VecDense {
	if len(idx) == 0 {
		return &mat.VecDense{}
	}
	out := mat.NewVecDense(len(idx), nil)
	for i, r := range idx {
		out.SetVec(i, y.AtVec(r))
	}
	return out
}

// SelectColumns copies the columns of X at idx into a new matrix.
func SelectColumns(X mat.Matrix, idx []int) *mat.Dense {
	r, _ := X.Dims()
	out := mat.NewDense(r, len(idx), nil)
	for i := 0; i < r; i++ {
		for j, c := range idx {
			out.Set(i, j, X.At(i, c))
		}
	}
	return out
}

// HStack concatenates matrices with equal row counts left to right.
func HStack(ms ...mat.Matrix) (*mat.Dense, error) {
	if len(ms) == 0 {
		return nil, cverrors.ErrEmptyData
	}
	rows, _ := ms[0].Dims()
	total := 0
	for _, m := range ms {
		r, c := m.Dims()
		if r != rows {
			return nil, cverrors.NewDataShapeError("dataset.HStack", "rows of concatenated blocks", rows, r)
		}
		total += c
	}
	out := mat.NewDense(rows, total, nil)
	off := 0
	for _, m := range ms {
		_, c := m.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, off+j, m.At(i, j))
			}
		}
		off += c
	}
	return out, nil
}

// Labels converts an encoded label vector to ints.
func Labels(y mat.Vector) []int {
	out := make([]int, y.Len())
	for i := range out {
		out[i] = int(y.AtVec(i))
	}
	return out
}

// ClassCounts counts labels of y.
func ClassCounts(y mat.Vector) map[int]int {
	counts := make(map[int]int)
	for i := 0; i < y.Len(); i++ {
		counts[int(y.AtVec(i))]++
	}
	return counts
}

// SortedClasses returns the distinct labels of y in ascending order.
func SortedClasses(y mat.Vector) []int {
	counts := ClassCounts(y)
	classes := make([]int, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}
