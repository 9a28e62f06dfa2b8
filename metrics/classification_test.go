package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

func vec(v ...float64) *mat.VecDense {
	if len(v) == 0 {
		return nil
	}
	return mat.NewVecDense(len(v), v)
}

func TestBinaryScores(t *testing.T) {
	tests := []struct {
		name    string
		fn      ScoreFunc
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{"AUC separable scores", AUC, vec(0, 0, 0, 1, 1, 1), vec(0.1, 0.2, 0.3, 0.7, 0.8, 0.9), 1, false},
		{"AUC inverted scores", AUC, vec(0, 0, 0, 1, 1, 1), vec(0.9, 0.8, 0.7, 0.3, 0.2, 0.1), 0, false},
		{"AUC constant scores", AUC, vec(0, 1, 0, 1), vec(0.5, 0.5, 0.5, 0.5), 0.5, false},
		{"AUC one swapped pair", AUC, vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8), 0.75, false},
		// 片側のクラスしかないときは NaN
		{"AUC only positives", AUC, vec(1, 1, 1), vec(0.2, 0.6, 0.9), math.NaN(), false},
		{"AUC only negatives", AUC, vec(0, 0, 0), vec(0.2, 0.6, 0.9), math.NaN(), false},
		{"AUC single held-out sample", AUC, vec(1), vec(1), math.NaN(), false},
		{"macro AUC single class", MacroAUC, vec(2, 2), vec(2, 0), math.NaN(), false},
		{"AUC fractional label", AUC, vec(0, 0.5, 1), vec(0.1, 0.5, 0.9), 0, true},
		{"AUC length mismatch", AUC, vec(0, 1), vec(0.5), 0, true},
		{"AUC empty", AUC, nil, nil, 0, true},
		{"accuracy all hit", Accuracy, vec(2, 0, 1, 1), vec(2, 0, 1, 1), 1, false},
		{"accuracy three of four", Accuracy, vec(2, 0, 1, 1), vec(2, 0, 0, 1), 0.75, false},
		{"accuracy all miss", Accuracy, vec(1, 1), vec(0, 0), 0, false},
		{"accuracy empty", Accuracy, nil, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if math.IsNaN(tt.want) != math.IsNaN(got) || math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMacroMetrics(t *testing.T) {
	yTrue := vec(0, 0, 1, 1, 2, 2)
	yPred := vec(0, 1, 1, 1, 2, 0)

	tests := []struct {
		name string
		fn   ScoreFunc
		want float64
	}{
		{"accuracy", Accuracy, 4.0 / 6.0},
		{"balanced accuracy", BalancedAccuracy, 2.0 / 3.0},
		{"precision macro", PrecisionMacro, (0.5 + 2.0/3.0 + 1.0) / 3.0},
		{"recall macro", RecallMacro, 2.0 / 3.0},
		{"f1 macro", F1Macro, (0.5 + 0.8 + 2.0/3.0) / 3.0},
		{"one-vs-rest AUC", MacroAUC, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(yTrue, yPred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMacroAUCBinaryMatchesAUC(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	yPred := mat.NewVecDense(4, []float64{0, 1, 1, 1})

	macro, err := MacroAUC(yTrue, yPred)
	if err != nil {
		t.Fatalf("MacroAUC: %v", err)
	}
	binary, _ := AUC(yTrue, yPred)
	balanced, _ := BalancedAccuracy(yTrue, yPred)
	if macro != binary || math.Abs(macro-0.75) > 1e-9 || math.Abs(balanced-0.75) > 1e-9 {
		t.Errorf("hard-label AUC = %v (binary %v, balanced %v), want 0.75", macro, binary, balanced)
	}
}

func TestUndefinedMetricWarnings(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer errors.SetZerologWarnFunc(nil)

	yTrue := mat.NewVecDense(2, []float64{0, 1})
	yPred := mat.NewVecDense(2, []float64{0, 0})

	got, err := PrecisionMacro(yTrue, yPred)
	if err != nil {
		t.Fatalf("PrecisionMacro: %v", err)
	}
	if math.Abs(got-0.25) > 1e-9 {
		t.Errorf("PrecisionMacro = %v, want 0.25", got)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	var umw *errors.UndefinedMetricWarning
	if !errors.As(warnings[0], &umw) || umw.Metric != "precision_macro" {
		t.Errorf("unexpected warning %v", warnings[0])
	}
}

func TestRegistry(t *testing.T) {
	r := Default()
	want := []string{"accuracy", "AUC", "balanced_accuracy", "f1_macro", "precision_macro", "recall_macro"}
	if got := r.Names(); len(got) != len(want) {
		t.Fatalf("Default names = %v", got)
	} else {
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("name %d = %s, want %s", i, got[i], want[i])
			}
		}
	}

	sub, err := r.Subset([]string{"ROC_AUC", "accuracy"})
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	scores, err := sub.Score(mat.NewVecDense(4, []float64{0, 0, 1, 1}), mat.NewVecDense(4, []float64{0, 1, 1, 1}))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if sub.Names()[0] != "ROC_AUC" || math.Abs(scores[0]-0.75) > 1e-9 || math.Abs(scores[1]-0.75) > 1e-9 {
		t.Errorf("subset scores %v %v", sub.Names(), scores)
	}

	if name, err := r.Canonical("ROC_AUC"); err != nil || name != "AUC" {
		t.Errorf("Canonical(ROC_AUC) = %q, %v", name, err)
	}
	if name, _ := sub.Canonical("ROC_AUC"); name != "ROC_AUC" {
		t.Errorf("registered spelling should win, got %q", name)
	}
	if _, err := r.Canonical("log_loss"); !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}

	if _, err := r.Subset([]string{"log_loss"}); !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for unknown metric, got %v", err)
	}
	if err := r.Register("accuracy", Accuracy); !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for duplicate, got %v", err)
	}
}
