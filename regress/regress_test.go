package regress

import (
	"math"
	"math/rand"
	"testing"
)

var (
	_ Regressor = (*Tree)(nil)
	_ Regressor = (*Forest)(nil)
	_ Regressor = (*Boost)(nil)
	_ Regressor = (*MLP)(nil)
)

// stepData is a piecewise-constant two-output function a single tree should
// recover exactly.
func stepData() (X, Y [][]float64) {
	for i := 0; i < 40; i++ {
		x := float64(i) / 40
		var y0, y1 float64
		if x < 0.5 {
			y0, y1 = 1, 10
		} else {
			y0, y1 = 2, 20
		}
		X = append(X, []float64{x, 0.5})
		Y = append(Y, []float64{y0, y1})
	}
	return X, Y
}

func mse(t *testing.T, r Regressor, X, Y [][]float64) float64 {
	t.Helper()
	pred, err := r.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	sum := 0.0
	n := 0
	for i := range Y {
		for j := range Y[i] {
			d := pred[i][j] - Y[i][j]
			sum += d * d
			n++
		}
	}
	return sum / float64(n)
}

func TestTreeRecoversStepFunction(t *testing.T) {
	X, Y := stepData()
	tr := NewTree()
	tr.Seed = 1
	if err := tr.Fit(X, Y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := mse(t, tr, X, Y); got > 1e-12 {
		t.Errorf("tree training MSE = %v, want ~0", got)
	}

	pred, err := tr.Predict([][]float64{{0.2, 0.5}, {0.9, 0.5}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.Abs(pred[0][1]-10) > 1e-9 || math.Abs(pred[1][1]-20) > 1e-9 {
		t.Errorf("tree step predictions = %v, want second outputs 10 and 20", pred)
	}
}

func TestTreeMinSamplesLeaf(t *testing.T) {
	X, Y := stepData()
	tr := NewTree()
	tr.Seed = 1
	tr.MinSamplesLeaf = len(X) // forces a single leaf
	if err := tr.Fit(X, Y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, err := tr.Predict(X[:1])
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// Single leaf predicts the global mean (1.5, 15).
	if math.Abs(pred[0][0]-1.5) > 1e-9 || math.Abs(pred[0][1]-15) > 1e-9 {
		t.Errorf("single-leaf prediction = %v, want [1.5 15]", pred[0])
	}
}

func TestForestIsDeterministicWithSeed(t *testing.T) {
	X, Y := stepData()
	build := func() [][]float64 {
		f := NewForest()
		f.NEstimators = 10
		f.MaxDepth = 4
		f.Seed = 99
		if err := f.Fit(X, Y); err != nil {
			t.Fatalf("Fit: %v", err)
		}
		pred, err := f.Predict(X)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		return pred
	}
	a := build()
	b := build()
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("forest predictions differ at (%d,%d) despite fixed seed", i, j)
			}
		}
	}
}

func TestForestBeatsConstantBaseline(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var X, Y [][]float64
	for i := 0; i < 120; i++ {
		a, b := rng.Float64(), rng.Float64()
		X = append(X, []float64{a, b})
		Y = append(Y, []float64{3*a - b, a * b})
	}

	f := NewForest()
	f.NEstimators = 30
	f.MaxDepth = 6
	f.Seed = 7
	if err := f.Fit(X, Y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	baseline := 0.0
	mean0, mean1 := 0.0, 0.0
	for i := range Y {
		mean0 += Y[i][0]
		mean1 += Y[i][1]
	}
	mean0 /= float64(len(Y))
	mean1 /= float64(len(Y))
	for i := range Y {
		baseline += (Y[i][0]-mean0)*(Y[i][0]-mean0) + (Y[i][1]-mean1)*(Y[i][1]-mean1)
	}
	baseline /= float64(2 * len(Y))

	if got := mse(t, f, X, Y); got > baseline/4 {
		t.Errorf("forest MSE = %v, want well below constant baseline %v", got, baseline)
	}
}

func TestBoostReducesResiduals(t *testing.T) {
	X, Y := stepData()
	b := NewBoost()
	b.Rounds = 50
	b.MaxDepth = 2
	b.Seed = 5
	if err := b.Fit(X, Y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := mse(t, b, X, Y); got > 0.05 {
		t.Errorf("boost training MSE = %v, want < 0.05", got)
	}
}

func TestMLPLearnsLinearMap(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	var X, Y [][]float64
	for i := 0; i < 100; i++ {
		a, b := rng.Float64(), rng.Float64()
		X = append(X, []float64{a, b})
		Y = append(Y, []float64{0.4*a + 0.3*b, 0.8 * a})
	}
	m := NewMLP()
	m.Hidden = []int{16}
	m.Epochs = 400
	m.LearningRate = 1e-2
	m.Seed = 2
	if err := m.Fit(X, Y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := mse(t, m, X, Y); got > 0.005 {
		t.Errorf("mlp training MSE = %v, want < 0.005", got)
	}
	if m.Network() == nil {
		t.Error("Network() returned nil after Fit")
	}
}

func TestFitValidation(t *testing.T) {
	models := []Regressor{NewTree(), NewForest(), NewBoost(), NewMLP()}
	for _, m := range models {
		if err := m.Fit(nil, nil); err == nil {
			t.Errorf("%T: expected error on empty training data", m)
		}
		if err := m.Fit([][]float64{{1, 2}}, [][]float64{{1}, {2}}); err == nil {
			t.Errorf("%T: expected error on row count mismatch", m)
		}
		if _, err := m.Predict([][]float64{{1, 2}}); err == nil {
			t.Errorf("%T: expected error predicting before fit", m)
		}
	}

	tr := NewTree()
	if err := tr.Fit([][]float64{{1, 2}, {3, 4}}, [][]float64{{1}, {2}}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := tr.Predict([][]float64{{1}}); err == nil {
		t.Error("expected feature-width error from Predict")
	}
}
