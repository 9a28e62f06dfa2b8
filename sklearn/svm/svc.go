// Package svm provides the C-support vector classifier.
package svm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// Kernels.
const (
	KernelRBF    = "rbf"
	KernelLinear = "linear"
)

// binaryModel は1組のクラス (pos, neg) を分ける決定関数
// f(x) = sum_i coef_i K(sv_i, x) - rho。f > 0 なら pos。
type binaryModel struct {
	pos, neg int   // classes の添字
	sv       []int // 訓練行の添字
	coef     []float64
	rho      float64
}

// SVC は SMO (最大違反ペア選択) で双対問題を解くソフトマージン SVM。
// 多クラスは sklearn と同じ one-vs-one の多数決。
type SVC struct {
	state *model.StateManager

	C       float64
	kernel  string
	gamma   float64 // 0 は "scale" = 1 / (n_features * X.var())
	tol     float64
	maxIter int // 0 は max(100000, 100 * 組の行数)

	classes []int
	X       *mat.Dense
	gammaV  float64
	models  []binaryModel
}

// SVCOption configures an SVC.
type SVCOption func(*SVC)

// NewSVC returns an SVC with sklearn's defaults (C=1, rbf kernel,
// gamma="scale", tol=1e-3).
func NewSVC(opts ...SVCOption) *SVC {
	s := &SVC{state: model.NewStateManager(), C: 1, kernel: KernelRBF, tol: 1e-3}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithSVCC sets the penalty of the error term.
func WithSVCC(c float64) SVCOption {
	return func(s *SVC) { s.C = c }
}

func WithSVCKernel(kernel string) SVCOption {
	return func(s *SVC) { s.kernel = kernel }
}

// WithSVCGamma fixes the rbf width. 0 selects "scale".
func WithSVCGamma(gamma float64) SVCOption {
	return func(s *SVC) { s.gamma = gamma }
}

// WithSVCTol sets the stopping tolerance on the KKT violation.
func WithSVCTol(tol float64) SVCOption {
	return func(s *SVC) { s.tol = tol }
}

// WithSVCMaxIter bounds SMO iterations per class pair. 0 selects
// max(100000, 100*rows of the pair).
func WithSVCMaxIter(n int) SVCOption {
	return func(s *SVC) { s.maxIter = n }
}

// Name implements model.Classifier.
func (s *SVC) Name() string { return "svc" }

// Describe implements model.Describer.
func (s *SVC) Describe() string {
	return fmt.Sprintf("svc(C=%g,kernel=%s,gamma=%g,tol=%g,max_iter=%d)", s.C, s.kernel, s.gamma, s.tol, s.maxIter)
}

// Classes returns the sorted class labels seen in Fit.
func (s *SVC) Classes() []int { return append([]int(nil), s.classes...) }

// NSupport returns the number of support vectors per class pair, in
// one-vs-one order (0 vs 1, 0 vs 2, ..., 1 vs 2, ...).
func (s *SVC) NSupport() []int {
	out := make([]int, len(s.models))
	for i, m := range s.models {
		out[i] = len(m.sv)
	}
	return out
}

func (s *SVC) kernelFunc() func(a, b []float64) float64 {
	if s.kernel == KernelLinear {
		return floats.Dot
	}
	gamma := s.gammaV
	return func(a, b []float64) float64 {
		d := floats.Distance(a, b, 2)
		return math.Exp(-gamma * d * d)
	}
}

// Fit implements model.Classifier.
func (s *SVC) Fit(X mat.Matrix, y mat.Vector) error {
	n, d := X.Dims()
	switch {
	case n == 0 || d == 0:
		return errors.NewModelError("SVC.Fit", "empty data", errors.ErrEmptyData)
	case y.Len() != n:
		return errors.NewDimensionError("SVC.Fit", n, y.Len(), 0)
	case s.kernel != KernelRBF && s.kernel != KernelLinear:
		return errors.NewValidationError("kernel", "must be rbf or linear", s.kernel)
	case s.C <= 0:
		return errors.NewValidationError("C", "must be positive", s.C)
	case s.gamma < 0:
		return errors.NewValidationError("gamma", "must be non-negative", s.gamma)
	case s.tol <= 0:
		return errors.NewValidationError("tol", "must be positive", s.tol)
	}

	s.classes = dataset.SortedClasses(y)
	if len(s.classes) < 2 {
		return errors.NewValueError("SVC.Fit",
			fmt.Sprintf("needs samples of at least 2 classes, got %d", len(s.classes)))
	}
	s.X = mat.DenseCopyOf(X)
	s.gammaV = s.gamma
	if s.gammaV == 0 {
		// 全要素の分散。定数行列なら sklearn と同じく 1
		if v := stat.PopVariance(s.X.RawMatrix().Data, nil); v > 0 {
			s.gammaV = 1 / (float64(d) * v)
		} else {
			s.gammaV = 1
		}
	}

	kf := s.kernelFunc()
	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			K.SetSym(i, j, kf(s.X.RawRowView(i), s.X.RawRowView(j)))
		}
	}

	index := make(map[int]int, len(s.classes))
	for i, c := range s.classes {
		index[c] = i
	}
	rowsOf := make([][]int, len(s.classes))
	for i := 0; i < n; i++ {
		c := index[int(y.AtVec(i))]
		rowsOf[c] = append(rowsOf[c], i)
	}

	s.models = s.models[:0]
	for a := 0; a < len(s.classes); a++ {
		for b := a + 1; b < len(s.classes); b++ {
			rows := append(append([]int(nil), rowsOf[a]...), rowsOf[b]...)
			signs := make([]float64, len(rows))
			for i := range rows {
				signs[i] = -1
				if i < len(rowsOf[a]) {
					signs[i] = 1
				}
			}
			s.models = append(s.models, s.solve(K, rows, signs, a, b))
		}
	}

	s.state.SetFitted(d, n)
	return nil
}

// solve runs SMO on the rows of one class pair. signs[i] is +1 for pos.
func (s *SVC) solve(K *mat.SymDense, rows []int, signs []float64, pos, neg int) binaryModel {
	n := len(rows)
	alpha := make([]float64, n)
	// G = Q alpha - e。alpha = 0 から始める
	G := make([]float64, n)
	for i := range G {
		G[i] = -1
	}
	k := func(i, j int) float64 { return K.At(rows[i], rows[j]) }
	C := s.C

	upper := func(t int) bool { return (signs[t] > 0 && alpha[t] < C) || (signs[t] < 0 && alpha[t] > 0) }
	lower := func(t int) bool { return (signs[t] < 0 && alpha[t] < C) || (signs[t] > 0 && alpha[t] > 0) }

	limit := s.maxIter
	if limit == 0 {
		limit = max(100000, 100*n)
	}
	iter := 0
	for ; iter < limit; iter++ {
		i, j := -1, -1
		gmax, gmin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -signs[t] * G[t]
			if upper(t) && v > gmax {
				i, gmax = t, v
			}
			if lower(t) && v < gmin {
				j, gmin = t, v
			}
		}
		if i < 0 || j < 0 || gmax-gmin < s.tol {
			break
		}

		// alpha_i += y_i δ, alpha_j -= y_j δ で y^T alpha を保つ
		quad := k(i, i) + k(j, j) - 2*k(i, j)
		if quad <= 0 {
			quad = 1e-12
		}
		delta := (gmax - gmin) / quad
		if signs[i] > 0 {
			delta = math.Min(delta, C-alpha[i])
		} else {
			delta = math.Min(delta, alpha[i])
		}
		if signs[j] > 0 {
			delta = math.Min(delta, alpha[j])
		} else {
			delta = math.Min(delta, C-alpha[j])
		}

		oldI, oldJ := alpha[i], alpha[j]
		alpha[i] = clip(oldI+signs[i]*delta, C)
		alpha[j] = clip(oldJ-signs[j]*delta, C)
		di, dj := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			G[t] += signs[t] * (signs[i]*k(t, i)*di + signs[j]*k(t, j)*dj)
		}
	}
	if iter >= limit {
		errors.Warn(errors.NewConvergenceWarning("SVC", iter,
			"SMO did not reach tol; increase max_iter or scale the data"))
	}

	m := binaryModel{pos: pos, neg: neg, rho: s.rho(alpha, G, signs)}
	for t := 0; t < n; t++ {
		if alpha[t] > 0 {
			m.sv = append(m.sv, rows[t])
			m.coef = append(m.coef, signs[t]*alpha[t])
		}
	}
	return m
}

// clip snaps v into [0, C] so bound checks see exact bounds.
func clip(v, C float64) float64 {
	eps := 1e-12 * C
	switch {
	case v <= eps:
		return 0
	case v >= C-eps:
		return C
	}
	return v
}

// rho averages y_t G_t over free support vectors; without any it takes the
// midpoint of the feasible interval, as libsvm does.
func (s *SVC) rho(alpha, G, signs []float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	sum, free := 0.0, 0
	for t := range alpha {
		yG := signs[t] * G[t]
		switch {
		case alpha[t] >= s.C:
			if signs[t] < 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case alpha[t] <= 0:
			if signs[t] > 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			sum += yG
			free++
		}
	}
	if free > 0 {
		return sum / float64(free)
	}
	return (ub + lb) / 2
}

// DecisionFunction returns one column per class pair, in NSupport order.
// Positive values favor the first class of the pair.
func (s *SVC) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := s.state.RequireFeatures("SVC", "DecisionFunction", c); err != nil {
		return nil, err
	}
	kf := s.kernelFunc()
	nTrain, _ := s.X.Dims()
	out := mat.NewDense(r, len(s.models), nil)
	row := make([]float64, c)
	kx := make([]float64, nTrain)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		for t := 0; t < nTrain; t++ {
			kx[t] = kf(s.X.RawRowView(t), row)
		}
		for p, m := range s.models {
			f := -m.rho
			for k, sv := range m.sv {
				f += m.coef[k] * kx[sv]
			}
			out.Set(i, p, f)
		}
	}
	return out, nil
}

// Predict implements model.Classifier. Each pair votes; ties go to the
// smaller label.
func (s *SVC) Predict(X mat.Matrix) (*mat.VecDense, error) {
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r, _ := dec.Dims()
	out := mat.NewVecDense(r, nil)
	votes := make([]int, len(s.classes))
	for i := 0; i < r; i++ {
		for k := range votes {
			votes[k] = 0
		}
		for p, m := range s.models {
			if dec.At(i, p) > 0 {
				votes[m.pos]++
			} else {
				votes[m.neg]++
			}
		}
		best := 0
		for k := 1; k < len(votes); k++ {
			if votes[k] > votes[best] {
				best = k
			}
		}
		out.SetVec(i, float64(s.classes[best]))
	}
	return out, nil
}

// CloneUnfitted implements model.Classifier.
func (s *SVC) CloneUnfitted() model.Classifier {
	return NewSVC(WithSVCC(s.C), WithSVCKernel(s.kernel), WithSVCGamma(s.gamma), WithSVCTol(s.tol), WithSVCMaxIter(s.maxIter))
}
