package linear_model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// LogisticRegression はバッチ勾配降下で学習するロジスティック回帰。
// 二値なら大きい方のラベルを正例とする1本、多クラスなら one-vs-rest で
// クラスごとに1本の重みを持つ。
type LogisticRegression struct {
	state *model.StateManager

	penalty      string // "l2" or "none"
	C            float64
	fitIntercept bool
	maxIter      int
	tol          float64
	randomState  uint64

	classes []int
	weights []*mat.VecDense
	bias    []float64
	nIter   []int
}

// LogisticRegressionOption configures a LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression returns a model with sklearn's defaults
// (penalty=l2, C=1, fit_intercept=true, max_iter=100, tol=1e-4).
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

func WithLRPenalty(p string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.penalty = p }
}

// WithLRC sets the inverse regularization strength.
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

func WithLRMaxIter(n int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.maxIter = n }
}

// WithLRTol sets the largest absolute gradient component accepted as converged.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithLRRandomState seeds the initial weights.
func WithLRRandomState(seed uint64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.randomState = seed }
}

// Name implements model.Classifier.
func (lr *LogisticRegression) Name() string { return "logistic_regression" }

// Describe implements model.Describer.
func (lr *LogisticRegression) Describe() string {
	return fmt.Sprintf("logistic_regression(penalty=%s,C=%g,fit_intercept=%t,max_iter=%d,tol=%g,random_state=%d)",
		lr.penalty, lr.C, lr.fitIntercept, lr.maxIter, lr.tol, lr.randomState)
}

// Fit implements model.Classifier.
func (lr *LogisticRegression) Fit(X mat.Matrix, y mat.Vector) error {
	n, d := X.Dims()
	switch {
	case n == 0 || d == 0:
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	case y.Len() != n:
		return errors.NewDimensionError("LogisticRegression.Fit", n, y.Len(), 0)
	case lr.penalty != "l2" && lr.penalty != "none":
		return errors.NewValidationError("penalty", "must be l2 or none", lr.penalty)
	case lr.C <= 0:
		return errors.NewValidationError("C", "must be positive", lr.C)
	}

	lr.classes = dataset.SortedClasses(y)
	if len(lr.classes) < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("needs samples of at least 2 classes, got %d", len(lr.classes)))
	}

	positives := lr.classes
	if len(positives) == 2 {
		positives = positives[1:]
	}
	rng := rand.New(rand.NewPCG(lr.randomState, 0))
	lr.weights = make([]*mat.VecDense, len(positives))
	lr.bias = make([]float64, len(positives))
	lr.nIter = make([]int, len(positives))

	Xd := mat.DenseCopyOf(X)
	for k, pos := range positives {
		w := make([]float64, d)
		for j := range w {
			w[j] = rng.NormFloat64() * 0.01
		}
		lr.weights[k] = mat.NewVecDense(d, w)
		lr.descend(Xd, targets(y, pos), k)
	}

	lr.state.SetFitted(d, n)
	return nil
}

func targets(y mat.Vector, positive int) *mat.VecDense {
	t := mat.NewVecDense(y.Len(), nil)
	for i := 0; i < y.Len(); i++ {
		if int(y.AtVec(i)) == positive {
			t.SetVec(i, 1)
		}
	}
	return t
}

// descend minimizes the mean log loss (+ L2 term of 1/(C n)) of weight set k
// against 0/1 targets with a decaying step of 1/(1+0.1 t).
func (lr *LogisticRegression) descend(X *mat.Dense, target *mat.VecDense, k int) {
	n, d := X.Dims()
	w := lr.weights[k]
	resid := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d, nil)
	lambda := 0.0
	if lr.penalty == "l2" {
		lambda = 1 / (lr.C * float64(n))
	}

	for iter := 0; iter < lr.maxIter; iter++ {
		resid.MulVec(X, w)
		for i := 0; i < n; i++ {
			resid.SetVec(i, sigmoid(resid.AtVec(i)+lr.bias[k])-target.AtVec(i))
		}
		grad.MulVec(X.T(), resid)
		grad.ScaleVec(1/float64(n), grad)
		grad.AddScaledVec(grad, lambda, w)
		gradBias := floats.Sum(resid.RawVector().Data) / float64(n)

		step := 1 / (1 + 0.1*float64(iter))
		w.AddScaledVec(w, -step, grad)
		largest := mat.Norm(grad, math.Inf(1))
		if lr.fitIntercept {
			lr.bias[k] -= step * gradBias
			largest = math.Max(largest, math.Abs(gradBias))
		}
		lr.nIter[k] = iter + 1
		if largest < lr.tol {
			return
		}
	}
	errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter,
		"gradient descent did not reach tol; increase max_iter or scale the data"))
}

func (lr *LogisticRegression) decision(row *mat.VecDense, k int) float64 {
	return mat.Dot(row, lr.weights[k]) + lr.bias[k]
}

// Predict implements model.Classifier.
func (lr *LogisticRegression) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := proba.Dims()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		// 同点は小さいラベル
		out.SetVec(i, float64(lr.classes[floats.MaxIdx(proba.RawRowView(i))]))
	}
	return out, nil
}

// PredictProba returns one column per class. Binary models use the sigmoid,
// one-vs-rest models a softmax over the per-class scores.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	n, d := X.Dims()
	if err := lr.state.RequireFeatures("LogisticRegression", "PredictProba", d); err != nil {
		return nil, err
	}

	proba := mat.NewDense(n, len(lr.classes), nil)
	buf := make([]float64, d)
	row := mat.NewVecDense(d, buf)
	for i := 0; i < n; i++ {
		mat.Row(buf, i, X)
		p := proba.RawRowView(i)
		if len(lr.weights) == 1 {
			p[1] = sigmoid(lr.decision(row, 0))
			p[0] = 1 - p[1]
			continue
		}
		for k := range p {
			p[k] = lr.decision(row, k)
		}
		top := floats.Max(p)
		for k := range p {
			p[k] = math.Exp(p[k] - top)
		}
		floats.Scale(1/floats.Sum(p), p)
	}
	return proba, nil
}

// Classes returns the sorted class labels seen in Fit.
func (lr *LogisticRegression) Classes() []int { return append([]int(nil), lr.classes...) }

// NIter returns the iterations run per weight set.
func (lr *LogisticRegression) NIter() []int { return append([]int(nil), lr.nIter...) }

// CloneUnfitted implements model.Classifier.
func (lr *LogisticRegression) CloneUnfitted() model.Classifier {
	return NewLogisticRegression(
		WithLRPenalty(lr.penalty),
		WithLRC(lr.C),
		WithLogisticFitIntercept(lr.fitIntercept),
		WithLRMaxIter(lr.maxIter),
		WithLRTol(lr.tol),
		WithLRRandomState(lr.randomState),
	)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
