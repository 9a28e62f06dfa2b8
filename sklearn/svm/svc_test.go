package svm

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

var corners = mat.NewDense(8, 2, []float64{
	0, 0,
	0, 1,
	1, 0,
	1, 1,
	3, 3,
	3, 4,
	4, 3,
	4, 4,
})

var cornerLabels = mat.NewVecDense(8, []float64{0, 0, 0, 0, 1, 1, 1, 1})

func fitPredict(t *testing.T, s *SVC, X *mat.Dense, y *mat.VecDense, XTest mat.Matrix) *mat.VecDense {
	t.Helper()
	if err := s.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	pred, err := s.Predict(XTest)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	return pred
}

// TestSVCBinaryRBF tests the default rbf kernel on two separated groups
func TestSVCBinaryRBF(t *testing.T) {
	s := NewSVC()
	if got := fitPredict(t, s, corners, cornerLabels, corners); !mat.Equal(got, cornerLabels) {
		t.Errorf("training predictions %v", mat.Formatted(got.T()))
	}
	got := fitPredict(t, s, corners, cornerLabels, mat.NewDense(2, 2, []float64{0.5, 0.5, 3.5, 3.5}))
	if got.AtVec(0) != 0 || got.AtVec(1) != 1 {
		t.Errorf("unexpected predictions %v", mat.Formatted(got.T()))
	}

	dec, err := s.DecisionFunction(mat.NewDense(2, 2, []float64{0, 0, 4, 4}))
	if err != nil {
		t.Fatalf("DecisionFunction failed: %v", err)
	}
	if dec.At(0, 0) <= 0 || dec.At(1, 0) >= 0 {
		t.Errorf("decision values %v should favor class 0 then class 1", mat.Formatted(dec))
	}
}

// TestSVCLinearSupportVectors tests that only the facing corners support a linear margin
func TestSVCLinearSupportVectors(t *testing.T) {
	s := NewSVC(WithSVCKernel(KernelLinear), WithSVCC(10))
	if got := fitPredict(t, s, corners, cornerLabels, corners); !mat.Equal(got, cornerLabels) {
		t.Errorf("training predictions %v", mat.Formatted(got.T()))
	}
	if nsv := s.NSupport(); len(nsv) != 1 || nsv[0] != 2 {
		t.Errorf("NSupport = %v, want [2]", nsv)
	}
}

// TestSVCXOR tests a pattern the rbf kernel separates and no line does
func TestSVCXOR(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0.0, 0.0,
		0.0, 0.1,
		0.1, 1.0,
		0.0, 0.9,
		1.0, 0.0,
		0.9, 0.0,
		1.0, 1.0,
		0.9, 0.9,
	})
	y := mat.NewVecDense(8, []float64{0, 0, 1, 1, 1, 1, 0, 0})
	if got := fitPredict(t, NewSVC(WithSVCC(10)), X, y, X); !mat.Equal(got, y) {
		t.Errorf("training predictions %v", mat.Formatted(got.T()))
	}
}

// TestSVCMulticlass tests one-vs-one voting over three groups
func TestSVCMulticlass(t *testing.T) {
	X := mat.NewDense(30, 2, nil)
	y := mat.NewVecDense(30, nil)
	for c := 0; c < 3; c++ {
		for i := 0; i < 10; i++ {
			jitter := float64(i%5) * 0.2
			X.Set(c*10+i, 0, 4*float64(c)+jitter)
			X.Set(c*10+i, 1, 4*float64(c)-jitter)
			y.SetVec(c*10+i, float64(c))
		}
	}

	s := NewSVC()
	if got := fitPredict(t, s, X, y, X); !mat.Equal(got, y) {
		t.Errorf("training predictions %v", mat.Formatted(got.T()))
	}
	if len(s.NSupport()) != 3 {
		t.Errorf("expected 3 class pairs, got %v", s.NSupport())
	}
	if clone := s.CloneUnfitted().(*SVC); clone.Describe() != s.Describe() {
		t.Errorf("clone changed hyperparameters: %s vs %s", clone.Describe(), s.Describe())
	}
}

// TestSVCErrors tests validation and unfitted use
func TestSVCErrors(t *testing.T) {
	var nfe *errors.NotFittedError
	if _, err := NewSVC().Predict(corners); !errors.As(err, &nfe) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
	if err := NewSVC().Fit(corners, mat.NewVecDense(8, nil)); err == nil {
		t.Error("expected error for a single class")
	}
	if err := NewSVC(WithSVCKernel("sigmoid")).Fit(corners, cornerLabels); err == nil {
		t.Error("expected error for unsupported kernel")
	}
	if err := NewSVC(WithSVCC(0)).Fit(corners, cornerLabels); err == nil {
		t.Error("expected error for C=0")
	}

	s := NewSVC()
	if err := s.Fit(corners, cornerLabels); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if _, err := s.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected error for wrong feature count")
	}
}
