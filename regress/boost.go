package regress

import (
	"fmt"
	"math/rand"
	"time"
)

// Boost is a gradient-boosted ensemble of shallow regression trees fitting
// squared-error residuals round by round. The first prediction is the column
// mean of the training targets.
type Boost struct {
	Rounds         int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int
	SubSample      float64 // fraction of rows per round, 1 uses all
	Seed           int64

	base  []float64
	trees []*Tree
}

// NewBoost returns a boosted ensemble with the usual defaults.
func NewBoost() *Boost {
	return &Boost{
		Rounds:         100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 1,
		SubSample:      1,
		Seed:           time.Now().UnixNano(),
	}
}

// Fit implements Regressor.
func (b *Boost) Fit(X, Y [][]float64) error {
	_, targets, err := checkTraining(X, Y)
	if err != nil {
		return err
	}
	if b.Rounds <= 0 {
		return fmt.Errorf("regress: boost needs at least one round, got %d", b.Rounds)
	}
	if b.SubSample <= 0 || b.SubSample > 1 {
		return fmt.Errorf("regress: SubSample must be in (0, 1], got %v", b.SubSample)
	}

	n := len(X)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	b.base = meanRows(Y, idx, targets)

	// residual[i] tracks y_i minus the current ensemble prediction.
	residual := make([][]float64, n)
	for i := range residual {
		residual[i] = make([]float64, targets)
		for j := 0; j < targets; j++ {
			residual[i][j] = Y[i][j] - b.base[j]
		}
	}

	rng := rand.New(rand.NewSource(b.Seed))
	b.trees = make([]*Tree, 0, b.Rounds)
	for round := 0; round < b.Rounds; round++ {
		rows := idx
		if b.SubSample < 1 {
			m := int(b.SubSample * float64(n))
			if m < 1 {
				m = 1
			}
			rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
			rows = idx[:m]
		}
		bx := make([][]float64, len(rows))
		by := make([][]float64, len(rows))
		for i, ii := range rows {
			bx[i] = X[ii]
			by[i] = residual[ii]
		}

		tree := &Tree{
			MaxDepth:        b.MaxDepth,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  b.MinSamplesLeaf,
			Seed:            b.Seed + int64(round),
		}
		if err := tree.Fit(bx, by); err != nil {
			return fmt.Errorf("regress: boost round %d: %w", round, err)
		}
		b.trees = append(b.trees, tree)

		pred, err := tree.Predict(X)
		if err != nil {
			return err
		}
		for i := range residual {
			for j := 0; j < targets; j++ {
				residual[i][j] -= b.LearningRate * pred[i][j]
			}
		}
	}
	return nil
}

// Predict implements Regressor.
func (b *Boost) Predict(X [][]float64) ([][]float64, error) {
	if len(b.trees) == 0 {
		return nil, fmt.Errorf("regress: boost is not fitted")
	}
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = append([]float64(nil), b.base...)
	}
	for _, tree := range b.trees {
		pred, err := tree.Predict(X)
		if err != nil {
			return nil, err
		}
		for i, row := range pred {
			for j, v := range row {
				out[i][j] += b.LearningRate * v
			}
		}
	}
	return out, nil
}
