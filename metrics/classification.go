package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// validatePair は分類指標の共通入力検証を行う
func validatePair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AUC は二値分類のROC曲線下面積を計算する
//
// yTrue は 0/1 のラベル、yPred はスコア（ハードな予測ラベルでもよい）。
// 同順位のスコアは 0.5 として数える（Mann-Whitney U 統計量）。
// 正例または負例しか存在しない場合は UndefinedMetricWarning を出して NaN を返す。
// leave-one-out の各 fold がこれに当たり、その fold の AUC は集計に使えない。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	positives := make([]float64, 0, n)
	negatives := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			positives = append(positives, yPred.AtVec(i))
		case 0:
			negatives = append(negatives, yPred.AtVec(i))
		default:
			return 0, errors.NewValueError("AUC", "yTrue must contain only binary labels (0 or 1)")
		}
	}

	if len(positives) == 0 || len(negatives) == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in yTrue", math.NaN()))
		return math.NaN(), nil
	}
	return mannWhitney(positives, negatives), nil
}

// mannWhitney は正例スコアが負例スコアを上回る確率を返す
func mannWhitney(positives, negatives []float64) float64 {
	sorted := append([]float64(nil), negatives...)
	sort.Float64s(sorted)

	var total float64
	for _, p := range positives {
		below := sort.SearchFloat64s(sorted, p)
		upper := sort.Search(len(sorted), func(i int) bool { return sorted[i] > p })
		total += float64(below) + 0.5*float64(upper-below)
	}
	return total / (float64(len(positives)) * float64(len(negatives)))
}

// MacroAUC は one-vs-rest による多クラスROC AUCのマクロ平均を計算する
//
// yPred はハードな予測ラベル。クラス c について (yTrue==c) を正例、
// (yPred==c) をスコアとして二値AUCを求め、yTrue に現れるクラスで平均する。
// yTrue と yPred のラベルがすべて 0/1 の場合は AUC と同じ値になる。
func MacroAUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("MacroAUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	labels := unionLabels(yTrue, yPred)
	if len(labels) <= 2 && isBinaryLabels(labels) {
		return AUC(yTrue, yPred)
	}

	present := classCounts(yTrue)
	if len(present) < 2 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in yTrue", math.NaN()))
		return math.NaN(), nil
	}

	var sum float64
	var count int
	for _, c := range labels {
		if present[c] == 0 {
			continue
		}
		var pos, neg []float64
		for i := 0; i < n; i++ {
			score := 0.0
			if yPred.AtVec(i) == c {
				score = 1
			}
			if yTrue.AtVec(i) == c {
				pos = append(pos, score)
			} else {
				neg = append(neg, score)
			}
		}
		sum += mannWhitney(pos, neg)
		count++
	}
	return sum / float64(count), nil
}

// perClass は各ラベルの混同行列由来の集計値
type perClass struct {
	label     float64
	truePos   int
	predicted int
	actual    int
}

// tabulate は yTrue と yPred の和集合ラベルごとに TP, 予測数, 実数を数える
func tabulate(yTrue, yPred *mat.VecDense) []perClass {
	labels := unionLabels(yTrue, yPred)
	index := make(map[float64]int, len(labels))
	stats := make([]perClass, len(labels))
	for i, l := range labels {
		index[l] = i
		stats[i].label = l
	}
	for i := 0; i < yTrue.Len(); i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		stats[index[t]].actual++
		stats[index[p]].predicted++
		if t == p {
			stats[index[t]].truePos++
		}
	}
	return stats
}

// BalancedAccuracy は yTrue に現れるクラスごとの再現率の平均を計算する
func BalancedAccuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := validatePair("BalancedAccuracy", yTrue, yPred); err != nil {
		return 0, err
	}

	var sum float64
	var count int
	for _, s := range tabulate(yTrue, yPred) {
		if s.actual == 0 {
			continue
		}
		sum += float64(s.truePos) / float64(s.actual)
		count++
	}
	return sum / float64(count), nil
}

// PrecisionMacro はクラスごとの適合率のマクロ平均を計算する
//
// 予測されなかったクラスの適合率は 0 とし、UndefinedMetricWarning を出す。
func PrecisionMacro(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := validatePair("PrecisionMacro", yTrue, yPred); err != nil {
		return 0, err
	}

	stats := tabulate(yTrue, yPred)
	var sum float64
	undefined := false
	for _, s := range stats {
		if s.predicted == 0 {
			undefined = true
			continue
		}
		sum += float64(s.truePos) / float64(s.predicted)
	}
	if undefined {
		errors.Warn(errors.NewUndefinedMetricWarning("precision_macro", "labels with no predicted samples", 0))
	}
	return sum / float64(len(stats)), nil
}

// RecallMacro はクラスごとの再現率のマクロ平均を計算する
//
// 真のサンプルが存在しないクラスの再現率は 0 とし、UndefinedMetricWarning を出す。
func RecallMacro(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := validatePair("RecallMacro", yTrue, yPred); err != nil {
		return 0, err
	}

	stats := tabulate(yTrue, yPred)
	var sum float64
	undefined := false
	for _, s := range stats {
		if s.actual == 0 {
			undefined = true
			continue
		}
		sum += float64(s.truePos) / float64(s.actual)
	}
	if undefined {
		errors.Warn(errors.NewUndefinedMetricWarning("recall_macro", "labels with no true samples", 0))
	}
	return sum / float64(len(stats)), nil
}

// F1Macro はクラスごとのF1スコアのマクロ平均を計算する
func F1Macro(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := validatePair("F1Macro", yTrue, yPred); err != nil {
		return 0, err
	}

	stats := tabulate(yTrue, yPred)
	var sum float64
	for _, s := range stats {
		// 2TP / (2TP + FP + FN) は P+R=0 のとき 0 になる
		denom := s.predicted + s.actual
		if denom == 0 {
			continue
		}
		sum += 2 * float64(s.truePos) / float64(denom)
	}
	return sum / float64(len(stats)), nil
}

func unionLabels(yTrue, yPred *mat.VecDense) []float64 {
	seen := make(map[float64]struct{})
	for i := 0; i < yTrue.Len(); i++ {
		seen[yTrue.AtVec(i)] = struct{}{}
		seen[yPred.AtVec(i)] = struct{}{}
	}
	labels := make([]float64, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	return labels
}

func isBinaryLabels(labels []float64) bool {
	for _, l := range labels {
		if l != 0 && l != 1 {
			return false
		}
	}
	return true
}

func classCounts(y *mat.VecDense) map[float64]int {
	counts := make(map[float64]int)
	for i := 0; i < y.Len(); i++ {
		counts[y.AtVec(i)]++
	}
	return counts
}
