package regress

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Forest averages bootstrap-trained regression trees. Trees are grown in
// parallel, one goroutine each, seeded from Seed plus the tree index so a
// fixed Seed reproduces the same forest.
type Forest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Seed            int64

	trees []*Tree
}

// NewForest returns a forest with the usual defaults.
func NewForest() *Forest {
	return &Forest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            time.Now().UnixNano(),
	}
}

// Fit implements Regressor.
func (f *Forest) Fit(X, Y [][]float64) error {
	if _, _, err := checkTraining(X, Y); err != nil {
		return err
	}
	if f.NEstimators <= 0 {
		return fmt.Errorf("regress: forest needs at least one tree, got %d", f.NEstimators)
	}

	n := len(X)
	f.trees = make([]*Tree, f.NEstimators)
	errs := make([]error, f.NEstimators)
	var wg sync.WaitGroup
	for i := 0; i < f.NEstimators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(f.Seed + int64(i)))
			bx := make([][]float64, n)
			by := make([][]float64, n)
			for j := 0; j < n; j++ {
				k := rng.Intn(n)
				bx[j] = X[k]
				by[j] = Y[k]
			}
			tree := &Tree{
				MaxDepth:        f.MaxDepth,
				MinSamplesSplit: f.MinSamplesSplit,
				MinSamplesLeaf:  f.MinSamplesLeaf,
				MaxFeatures:     f.MaxFeatures,
				Seed:            f.Seed + int64(i),
			}
			errs[i] = tree.Fit(bx, by)
			f.trees[i] = tree
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("regress: fit forest: %w", err)
		}
	}
	return nil
}

// Predict implements Regressor by averaging all tree outputs.
func (f *Forest) Predict(X [][]float64) ([][]float64, error) {
	if len(f.trees) == 0 {
		return nil, fmt.Errorf("regress: forest is not fitted")
	}
	sum := make([][]float64, len(X))
	for _, tree := range f.trees {
		pred, err := tree.Predict(X)
		if err != nil {
			return nil, err
		}
		for i, row := range pred {
			if sum[i] == nil {
				sum[i] = make([]float64, len(row))
			}
			for j, v := range row {
				sum[i][j] += v
			}
		}
	}
	inv := 1.0 / float64(len(f.trees))
	for i := range sum {
		for j := range sum[i] {
			sum[i][j] *= inv
		}
	}
	return sum, nil
}
