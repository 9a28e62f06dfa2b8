// Package decomposition provides kernel principal component projections.
package decomposition

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/core/parallel"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// Kernel names.
const (
	KernelLinear = "linear"
	KernelRBF    = "rbf"
	KernelPoly   = "poly"
)

// eigenTolerance discards eigenvalues below this fraction of the largest.
const eigenTolerance = 1e-10

// KernelPCA projects samples onto the leading eigenvectors of the centered
// training kernel matrix.
type KernelPCA struct {
	state *model.StateManager

	kernel      string
	nComponents int
	gamma       float64
	degree      float64
	coef0       float64

	// fitted
	xFit      *mat.Dense
	alphas    *mat.Dense
	lambdas   []float64
	colMeans  []float64
	grandMean float64
}

// KernelPCAOption is a functional option for KernelPCA
type KernelPCAOption func(*KernelPCA)

// WithComponents caps the number of components. 0 keeps every component
// with a positive eigenvalue.
func WithComponents(n int) KernelPCAOption {
	return func(k *KernelPCA) { k.nComponents = n }
}

// WithGamma sets the rbf/poly kernel coefficient. 0 means 1/n_features.
func WithGamma(gamma float64) KernelPCAOption {
	return func(k *KernelPCA) { k.gamma = gamma }
}

// WithDegree sets the polynomial degree.
func WithDegree(degree float64) KernelPCAOption {
	return func(k *KernelPCA) { k.degree = degree }
}

// WithCoef0 sets the polynomial independent term.
func WithCoef0(coef0 float64) KernelPCAOption {
	return func(k *KernelPCA) { k.coef0 = coef0 }
}

// NewKernelPCA creates a KernelPCA stage for the given kernel.
func NewKernelPCA(kernel string, opts ...KernelPCAOption) *KernelPCA {
	k := &KernelPCA{
		state:  model.NewStateManager(),
		kernel: kernel,
		degree: 3,
		coef0:  1,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Name implements model.Stage.
func (k *KernelPCA) Name() string { return "kernel_pca_" + k.kernel }

// Describe implements model.Describer.
func (k *KernelPCA) Describe() string {
	return fmt.Sprintf("kernel_pca(kernel=%s,n_components=%d,gamma=%g,degree=%g,coef0=%g)",
		k.kernel, k.nComponents, k.gamma, k.degree, k.coef0)
}

// Kernel returns the kernel name.
func (k *KernelPCA) Kernel() string { return k.kernel }

// Eigenvalues returns the retained eigenvalues, largest first.
func (k *KernelPCA) Eigenvalues() []float64 { return append([]float64(nil), k.lambdas...) }

func (k *KernelPCA) kernelFunc(nFeatures int) (func(a, b []float64) float64, error) {
	gamma := k.gamma
	if gamma == 0 {
		gamma = 1 / float64(nFeatures)
	}
	switch k.kernel {
	case KernelLinear:
		return floats.Dot, nil
	case KernelRBF:
		return func(a, b []float64) float64 {
			d := floats.Distance(a, b, 2)
			return math.Exp(-gamma * d * d)
		}, nil
	case KernelPoly:
		degree, coef0 := k.degree, k.coef0
		return func(a, b []float64) float64 {
			return math.Pow(gamma*floats.Dot(a, b)+coef0, degree)
		}, nil
	default:
		return nil, errors.NewValidationError("kernel", "must be linear, rbf or poly", k.kernel)
	}
}

// gram computes K[i][j] = kernel(A_i, B_j) with rows of K in parallel.
func gram(A, B *mat.Dense, fn func(a, b []float64) float64) *mat.Dense {
	ra, _ := A.Dims()
	rb, _ := B.Dims()
	K := mat.NewDense(ra, rb, nil)
	parallel.ParallelizeWithThreshold(ra, 64, func(start, end int) {
		for i := start; i < end; i++ {
			a := A.RawRowView(i)
			row := K.RawRowView(i)
			for j := 0; j < rb; j++ {
				row[j] = fn(a, B.RawRowView(j))
			}
		}
	})
	return K
}

// Fit implements model.Stage. y is ignored.
func (k *KernelPCA) Fit(X mat.Matrix, _ mat.Vector) error {
	n, d := X.Dims()
	if n < 2 || d == 0 {
		return errors.NewValueError("KernelPCA.Fit", fmt.Sprintf("need at least 2 samples and 1 feature, got %dx%d", n, d))
	}
	fn, err := k.kernelFunc(d)
	if err != nil {
		return err
	}

	xFit := mat.DenseCopyOf(X)
	K := gram(xFit, xFit, fn)

	colMeans := make([]float64, n)
	var grand float64
	for j := 0; j < n; j++ {
		colMeans[j] = floats.Sum(mat.Col(nil, j, K)) / float64(n)
		grand += colMeans[j]
	}
	grand /= float64(n)

	// Kc = K - 1K - K1 + 1K1, with K symmetric so row means equal column means.
	Kc := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			Kc.SetSym(i, j, K.At(i, j)-colMeans[i]-colMeans[j]+grand)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(Kc, true); !ok {
		return errors.NewModelError("KernelPCA.Fit", "eigendecomposition", errors.ErrSingularMatrix)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	largest := values[order[0]]
	if largest <= 0 {
		return errors.NewValueError("KernelPCA.Fit", "centered kernel matrix has no positive eigenvalue")
	}
	keep := make([]int, 0, n)
	for _, idx := range order {
		if values[idx] > eigenTolerance*largest {
			keep = append(keep, idx)
		}
	}
	if k.nComponents > 0 && len(keep) > k.nComponents {
		keep = keep[:k.nComponents]
	}

	alphas := mat.NewDense(n, len(keep), nil)
	lambdas := make([]float64, len(keep))
	for c, idx := range keep {
		lambdas[c] = values[idx]
		col := mat.Col(nil, idx, &vectors)
		flipSign(col)
		alphas.SetCol(c, col)
	}

	k.xFit, k.alphas, k.lambdas = xFit, alphas, lambdas
	k.colMeans, k.grandMean = colMeans, grand
	k.state.SetFitted(d, n)
	return nil
}

// flipSign makes the entry with the largest magnitude positive so the
// projection does not depend on the solver's sign choice.
func flipSign(v []float64) {
	best := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[best]) {
			best = i
		}
	}
	if v[best] < 0 {
		floats.Scale(-1, v)
	}
}

// Transform implements model.Stage.
func (k *KernelPCA) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := k.state.RequireFeatures("KernelPCA", "Transform", c); err != nil {
		return nil, err
	}
	fn, err := k.kernelFunc(c)
	if err != nil {
		return nil, err
	}

	K := gram(mat.DenseCopyOf(X), k.xFit, fn)
	nFit := len(k.colMeans)
	for i := 0; i < r; i++ {
		row := K.RawRowView(i)
		rowMean := floats.Sum(row) / float64(nFit)
		for j := range row {
			row[j] = row[j] - k.colMeans[j] - rowMean + k.grandMean
		}
	}

	var out mat.Dense
	out.Mul(K, k.alphas)
	for j, l := range k.lambdas {
		s := 1 / math.Sqrt(l)
		for i := 0; i < r; i++ {
			out.Set(i, j, out.At(i, j)*s)
		}
	}

	if err := errors.CheckMatrix("KernelPCA.Transform", &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloneUnfitted implements model.Stage.
func (k *KernelPCA) CloneUnfitted() model.Stage {
	return NewKernelPCA(k.kernel,
		WithComponents(k.nComponents),
		WithGamma(k.gamma),
		WithDegree(k.degree),
		WithCoef0(k.coef0),
	)
}
