package model

import (
	"bytes"
	"testing"

	"gonum.org/v1/gonum/mat"

	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	if s.IsFitted() {
		t.Fatal("new state should not be fitted")
	}

	err := s.RequireFitted("scaler", "Transform")
	var nfe *cverrors.NotFittedError
	if !cverrors.As(err, &nfe) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}

	s.SetFitted(3, 10)
	if err := s.RequireFeatures("scaler", "Transform", 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	var de *cverrors.DimensionError
	if err := s.RequireFeatures("scaler", "Transform", 4); !cverrors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	s.Reset()
	if f, n := s.Dimensions(); s.IsFitted() || f != 0 || n != 0 {
		t.Errorf("reset did not clear state: fitted=%v dims=(%d,%d)", s.IsFitted(), f, n)
	}
}

type namedOnly struct{}

func (namedOnly) Name() string { return "plain" }

type described struct{ namedOnly }

func (described) Describe() string { return "plain(k=3)" }

func TestDescribe(t *testing.T) {
	if got := Describe(namedOnly{}); got != "plain" {
		t.Errorf("Describe without Describer = %q", got)
	}
	if got := Describe(described{}); got != "plain(k=3)" {
		t.Errorf("Describe with Describer = %q", got)
	}
}

func TestSnapshotEncoding(t *testing.T) {
	s := &FoldSnapshot{
		TrainX: mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}),
		TrainY: mat.NewVecDense(3, []float64{0, 1, 1}),
		TestX:  mat.NewDense(1, 2, []float64{7, 8}),
	}

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSnapshot(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !mat.Equal(got.TrainX, s.TrainX) || !mat.Equal(got.TrainY, s.TrainY) || !mat.Equal(got.TestX, s.TestX) {
		t.Error("decoded snapshot differs from original")
	}

	if _, err := MarshalSnapshot(&FoldSnapshot{TrainX: s.TrainX}); err == nil {
		t.Error("expected error for incomplete snapshot")
	}
	if _, err := UnmarshalSnapshot([]byte("garbage")); err == nil {
		t.Error("expected error decoding garbage")
	}
}
