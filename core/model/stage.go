// Package model defines the capability contracts that every pluggable
// component of an experiment satisfies.
//
// テンプレートとして保持されるコンポーネントは未学習のまま共有され、
// 各フォールドでは CloneUnfitted で得た新しいインスタンスだけが学習される。
package model

import "gonum.org/v1/gonum/mat"

// Stage は学習と変換を分離したデータ変換ステージのインターフェース
type Stage interface {
	// Name はログやエラーに使われるステージ名を返す
	Name() string

	// Fit は訓練データのみを使って変換パラメータを学習する
	Fit(X mat.Matrix, y mat.Vector) error

	// Transform は学習済みパラメータで X を変換する
	Transform(X mat.Matrix) (*mat.Dense, error)

	// CloneUnfitted は同じハイパーパラメータを持つ未学習のコピーを返す
	CloneUnfitted() Stage
}

// Classifier is a supervised model predicting encoded class labels.
type Classifier interface {
	Name() string
	Fit(X mat.Matrix, y mat.Vector) error
	Predict(X mat.Matrix) (*mat.VecDense, error)
	CloneUnfitted() Classifier
}

// Resampler rebalances a training set. It never sees evaluation data.
type Resampler interface {
	Name() string
	FitResample(X mat.Matrix, y mat.Vector) (*mat.Dense, *mat.VecDense, error)
	CloneUnfitted() Resampler
}

// FoldTransformer is what the evaluation engine runs once per fold: it is
// fit on the training rows, then produces the (possibly resampled) training
// matrix and transforms the held-out rows.
type FoldTransformer interface {
	Name() string
	Fit(X mat.Matrix, y mat.Vector) error

	// TransformTrain returns the transformed training data seen by Fit.
	// Row count and labels may differ from the input when resampling.
	TransformTrain() (*mat.Dense, *mat.VecDense, error)

	TransformTest(X mat.Matrix) (*mat.Dense, error)
	CloneUnfitted() FoldTransformer
}

// Describer is implemented by components whose hyperparameters must be part
// of a cache key. Describe must change whenever the output would.
type Describer interface {
	Describe() string
}

// Describe returns c.Describe() when c implements Describer, or its name.
func Describe(c interface{ Name() string }) string {
	if d, ok := c.(Describer); ok {
		return d.Describe()
	}
	return c.Name()
}

// FitTransform fits s on X and y and transforms X.
func FitTransform(s Stage, X mat.Matrix, y mat.Vector) (*mat.Dense, error) {
	if err := s.Fit(X, y); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
