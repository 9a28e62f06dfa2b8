package linear_model

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestPassiveAggressiveClassifier_FitPredict は線形分離可能なデータでの学習をテスト
func TestPassiveAggressiveClassifier_FitPredict(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})

	for _, loss := range []string{"hinge", "squared_hinge"} {
		t.Run(loss, func(t *testing.T) {
			pa := NewPassiveAggressiveClassifier(WithPALoss(loss), WithPARandomState(1))
			if err := pa.Fit(X, y); err != nil {
				t.Fatalf("Fit failed: %v", err)
			}
			if pa.NIterations() == 0 {
				t.Error("no epochs recorded")
			}
			pred, err := pa.Predict(mat.NewDense(2, 2, []float64{0.5, 0.5, 3.5, 3.5}))
			if err != nil {
				t.Fatalf("Predict failed: %v", err)
			}
			if pred.AtVec(0) != 0 || pred.AtVec(1) != 1 {
				t.Errorf("unexpected predictions %v", mat.Formatted(pred.T()))
			}
		})
	}
}

// TestPassiveAggressiveClassifier_Reproducible は同じシードで同じ重みになることをテスト
func TestPassiveAggressiveClassifier_Reproducible(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{0, 0, 0, 1, 1, 0, 3, 3, 3, 4, 4, 3})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})

	a := NewPassiveAggressiveClassifier(WithPARandomState(7), WithPAMaxIter(20))
	b := a.CloneUnfitted().(*PassiveAggressiveClassifier)
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for c := range a.coefs {
		for j := range a.coefs[c] {
			if a.coefs[c][j] != b.coefs[c][j] {
				t.Fatalf("coef[%d][%d] differs: %v vs %v", c, j, a.coefs[c][j], b.coefs[c][j])
			}
		}
	}
}

func TestPassiveAggressiveClassifier_Errors(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})
	y := mat.NewVecDense(2, []float64{0, 1})

	if _, err := NewPassiveAggressiveClassifier().Predict(X); err == nil {
		t.Error("Predict before Fit should fail")
	}
	if err := NewPassiveAggressiveClassifier(WithPALoss("log")).Fit(X, y); err == nil {
		t.Error("unknown loss should fail")
	}
	if err := NewPassiveAggressiveClassifier(WithPAC(-1)).Fit(X, y); err == nil {
		t.Error("negative C should fail")
	}
}
