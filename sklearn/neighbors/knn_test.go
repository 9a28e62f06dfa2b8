package neighbors

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestKNearest(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{0, 10, 1, 3, 2})

	got := KNearest(X, []float64{0}, 3)
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d neighbors, got %d", len(want), len(got))
	}
	for i, nb := range got {
		if nb.Index != want[i] {
			t.Errorf("neighbor %d = %d, want %d", i, nb.Index, want[i])
		}
	}

	excluded := KNearest(X, []float64{0}, 2, 0)
	if excluded[0].Index != 2 || excluded[1].Index != 4 {
		t.Errorf("exclude ignored: %+v", excluded)
	}

	if all := KNearest(X, []float64{0}, 10); len(all) != 5 {
		t.Errorf("k larger than rows should return every row, got %d", len(all))
	}
}

// TestKNeighborsClassifier_FitPredict tests classification of two clusters
func TestKNeighborsClassifier_FitPredict(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})

	knn := NewKNeighborsClassifier(3)
	if err := knn.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.0, 1.0, // Should be class 0
		3.0, 3.0, // Should be class 1
	})
	pred, err := knn.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	if pred.AtVec(0) != 0 || pred.AtVec(1) != 1 {
		t.Errorf("unexpected predictions %v", mat.Formatted(pred.T()))
	}

	if _, err := knn.CloneUnfitted().Predict(XTest); err == nil {
		t.Error("clone must be unfitted")
	}
	if _, err := knn.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected dimension error")
	}
}

func TestKNeighborsClassifierTieGoesToSmallestLabel(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{-1, 1})
	y := mat.NewVecDense(2, []float64{2, 1})

	knn := NewKNeighborsClassifier(2)
	if err := knn.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	pred, _ := knn.Predict(mat.NewDense(1, 1, []float64{0}))
	if pred.AtVec(0) != 1 {
		t.Errorf("tie should go to label 1, got %v", pred.AtVec(0))
	}
}
