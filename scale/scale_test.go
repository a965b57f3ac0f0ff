package scale

import (
	"math"
	"math/rand"
	"testing"
)

func TestFitTransformRange(t *testing.T) {
	X := [][]float64{
		{0, 10, 5},
		{50, 20, 5},
		{100, 15, 5},
	}
	s := NewMinMaxScaler()
	if err := s.Fit(X); err != nil {
		t.Fatalf("Fit error: %v", err)
	}

	Y, err := s.Transform(X)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	for i := range Y {
		for j := range Y[i] {
			if Y[i][j] < 0 || Y[i][j] > 1 {
				t.Errorf("normalized value out of [0,1] at %d,%d: %v", i, j, Y[i][j])
			}
		}
	}
	// Constant column maps to zero.
	for i := range Y {
		if Y[i][2] != 0 {
			t.Errorf("constant column should normalize to 0, got %v", Y[i][2])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const rows, cols = 40, 13
	X := make([][]float64, rows)
	for i := range X {
		X[i] = make([]float64, cols)
		for j := range X[i] {
			X[i][j] = rng.Float64()*200 - 50
		}
	}

	s := NewMinMaxScaler()
	if err := s.Fit(X); err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	Y, err := s.Transform(X)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	Z, err := s.InverseTransform(Y)
	if err != nil {
		t.Fatalf("InverseTransform error: %v", err)
	}
	for i := range X {
		for j := range X[i] {
			if math.Abs(Z[i][j]-X[i][j]) > 1e-9 {
				t.Fatalf("round trip mismatch at %d,%d: %v != %v", i, j, Z[i][j], X[i][j])
			}
		}
	}
}

func TestUnfittedAndShapeErrors(t *testing.T) {
	s := NewMinMaxScaler()
	if _, err := s.Transform([][]float64{{1, 2}}); err == nil {
		t.Error("expected error transforming with unfitted scaler")
	}
	if _, err := s.InverseTransform([][]float64{{1, 2}}); err == nil {
		t.Error("expected error inverting with unfitted scaler")
	}
	if err := s.Fit(nil); err == nil {
		t.Error("expected error fitting empty matrix")
	}

	if err := s.Fit([][]float64{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if _, err := s.Transform([][]float64{{1, 2, 3}}); err == nil {
		t.Error("expected width-mismatch error")
	}
	if err := s.Fit([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("expected ragged-matrix error")
	}
}
