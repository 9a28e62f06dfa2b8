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

// PassiveAggressiveClassifier は one-vs-rest の Passive-Aggressive 分類器。
// エポックごとに全サンプルを1回ずつ見て、マージン違反があれば
// PA-I (hinge) または PA-II (squared_hinge) の更新量で重みを動かす。
type PassiveAggressiveClassifier struct {
	state *model.StateManager

	C            float64
	fitIntercept bool
	maxIter      int
	tol          float64 // エポック平均損失の改善幅の下限
	shuffle      bool
	randomState  uint64
	loss         string // "hinge" or "squared_hinge"

	classes    []int
	coefs      [][]float64 // n_classes x n_features
	intercepts []float64
	epochs     int
}

// PassiveAggressiveOption configures a PassiveAggressiveClassifier.
type PassiveAggressiveOption func(*PassiveAggressiveClassifier)

// NewPassiveAggressiveClassifier uses sklearn's defaults
// (C=1, max_iter=1000, tol=1e-3, shuffle, hinge).
func NewPassiveAggressiveClassifier(opts ...PassiveAggressiveOption) *PassiveAggressiveClassifier {
	pa := &PassiveAggressiveClassifier{
		state:        model.NewStateManager(),
		C:            1,
		fitIntercept: true,
		maxIter:      1000,
		tol:          1e-3,
		shuffle:      true,
		loss:         "hinge",
	}
	for _, opt := range opts {
		opt(pa)
	}
	return pa
}

func WithPAC(c float64) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.C = c }
}

func WithPAMaxIter(n int) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.maxIter = n }
}

func WithPAFitIntercept(fit bool) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.fitIntercept = fit }
}

func WithPALoss(loss string) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.loss = loss }
}

func WithPATol(tol float64) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.tol = tol }
}

func WithPAShuffle(shuffle bool) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.shuffle = shuffle }
}

// WithPARandomState seeds the per-epoch shuffle.
func WithPARandomState(seed uint64) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.randomState = seed }
}

// Name implements model.Classifier.
func (pa *PassiveAggressiveClassifier) Name() string { return "passive_aggressive" }

// Describe implements model.Describer.
func (pa *PassiveAggressiveClassifier) Describe() string {
	return fmt.Sprintf("passive_aggressive(C=%g,loss=%s,fit_intercept=%t,max_iter=%d,tol=%g,shuffle=%t,random_state=%d)",
		pa.C, pa.loss, pa.fitIntercept, pa.maxIter, pa.tol, pa.shuffle, pa.randomState)
}

// NIterations returns the epochs run by the last Fit.
func (pa *PassiveAggressiveClassifier) NIterations() int { return pa.epochs }

// Fit implements model.Classifier. Training stops once the mean epoch
// loss improves by less than tol.
func (pa *PassiveAggressiveClassifier) Fit(X mat.Matrix, y mat.Vector) error {
	rows, cols := X.Dims()
	if rows == 0 {
		return errors.NewModelError("PassiveAggressiveClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != rows {
		return errors.NewDimensionError("PassiveAggressiveClassifier.Fit", rows, y.Len(), 0)
	}
	if pa.loss != "hinge" && pa.loss != "squared_hinge" {
		return errors.NewValidationError("loss", "must be hinge or squared_hinge", pa.loss)
	}
	if pa.C <= 0 {
		return errors.NewValidationError("C", "must be positive", pa.C)
	}

	pa.classes = dataset.SortedClasses(y)
	index := make(map[int]int, len(pa.classes))
	for i, c := range pa.classes {
		index[c] = i
	}
	pa.coefs = make([][]float64, len(pa.classes))
	pa.intercepts = make([]float64, len(pa.classes))
	for c := range pa.coefs {
		pa.coefs[c] = make([]float64, cols)
	}

	Xd := mat.DenseCopyOf(X)
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(pa.randomState, 0))

	prev := math.Inf(1)
	converged := false
	pa.epochs = 0
	for iter := 0; iter < pa.maxIter; iter++ {
		if pa.shuffle {
			rng.Shuffle(rows, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		total := 0.0
		for _, i := range order {
			total += pa.updateWeights(Xd.RawRowView(i), index[int(y.AtVec(i))])
		}
		pa.epochs++
		epochLoss := total / float64(rows)
		if math.Abs(prev-epochLoss) < pa.tol {
			converged = true
			break
		}
		prev = epochLoss
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("PassiveAggressiveClassifier", pa.epochs, "max_iter reached before the loss settled"))
	}

	pa.state.SetFitted(cols, rows)
	return nil
}

// updateWeights は単一サンプルで全クラスの重みを更新し、損失の合計を返す
func (pa *PassiveAggressiveClassifier) updateWeights(x []float64, classIdx int) float64 {
	norm := floats.Dot(x, x)
	if pa.fitIntercept {
		norm++
	}
	total := 0.0
	for c := range pa.coefs {
		score := pa.intercepts[c] + floats.Dot(pa.coefs[c], x)
		target := -1.0
		if c == classIdx {
			target = 1.0
		}

		margin := target * score
		if margin >= 1 {
			continue
		}
		diff := 1 - margin

		// PA-I (hinge) は上限C、PA-II (squared_hinge) は 1/(2C) を分母に加える
		var tau float64
		switch pa.loss {
		case "squared_hinge":
			total += diff * diff
			tau = diff / (norm + 1.0/(2.0*pa.C))
		default:
			total += diff
			tau = math.Min(pa.C, diff/math.Max(norm, 1e-12))
		}

		floats.AddScaled(pa.coefs[c], tau*target, x)
		if pa.fitIntercept {
			pa.intercepts[c] += tau * target
		}
	}
	return total
}

// Predict は入力データに対する予測を行う
func (pa *PassiveAggressiveClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if err := pa.state.RequireFeatures("PassiveAggressiveClassifier", "Predict", cols); err != nil {
		return nil, err
	}

	predictions := mat.NewVecDense(rows, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		best, maxScore := 0, math.Inf(-1)
		for c := range pa.coefs {
			if score := pa.intercepts[c] + floats.Dot(pa.coefs[c], row); score > maxScore {
				best, maxScore = c, score
			}
		}
		predictions.SetVec(i, float64(pa.classes[best]))
	}
	return predictions, nil
}

// CloneUnfitted implements model.Classifier.
func (pa *PassiveAggressiveClassifier) CloneUnfitted() model.Classifier {
	return NewPassiveAggressiveClassifier(
		WithPAC(pa.C),
		WithPALoss(pa.loss),
		WithPAFitIntercept(pa.fitIntercept),
		WithPAMaxIter(pa.maxIter),
		WithPATol(pa.tol),
		WithPAShuffle(pa.shuffle),
		WithPARandomState(pa.randomState),
	)
}
