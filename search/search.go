// Package search selects the best regression model by grouped cross
// validation. Folds are split on experiment id so rows from one experiment
// never appear on both sides of a fold, which would leak near-duplicate
// kinetics points into validation.
package search

import (
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/Noofbiz/synthKin/metrics"
	"github.com/Noofbiz/synthKin/regress"
)

// Candidate pairs a model label with a constructor. New must return a fresh
// unfitted model on every call so candidates can be evaluated in parallel.
type Candidate struct {
	Name string
	New  func() regress.Regressor
}

// Result is one candidate's cross-validated score.
type Result struct {
	Name  string
	SMAPE float64
}

// GroupKFold assigns every row to one of k folds such that all rows sharing a
// group id land in the same fold. Groups are shuffled before the round-robin
// assignment so fold contents depend on the seed.
func GroupKFold(groups []int, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("search: need at least 2 folds, got %d", k)
	}
	unique := make([]int, 0)
	seen := make(map[int]bool)
	for _, g := range groups {
		if !seen[g] {
			seen[g] = true
			unique = append(unique, g)
		}
	}
	if len(unique) < k {
		return nil, fmt.Errorf("search: %d unique groups cannot fill %d folds", len(unique), k)
	}
	sort.Ints(unique)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(unique), func(i, j int) { unique[i], unique[j] = unique[j], unique[i] })

	foldOf := make(map[int]int, len(unique))
	for i, g := range unique {
		foldOf[g] = i % k
	}
	folds := make([][]int, k)
	for i, g := range groups {
		f := foldOf[g]
		folds[f] = append(folds[f], i)
	}
	return folds, nil
}

// CrossValidate scores one candidate: for each fold, fit a fresh model on the
// remaining rows and compute SMAPE on the held-out fold. Returns the mean
// SMAPE across folds.
func CrossValidate(c Candidate, X, Y [][]float64, folds [][]int) (float64, error) {
	if len(X) != len(Y) {
		return 0, fmt.Errorf("search: X and Y row counts differ: %d vs %d", len(X), len(Y))
	}
	total := 0.0
	for fi, hold := range folds {
		if len(hold) == 0 {
			return 0, fmt.Errorf("search: fold %d is empty", fi)
		}
		holdSet := make(map[int]bool, len(hold))
		for _, i := range hold {
			holdSet[i] = true
		}
		var trainX, trainY, valX, valY [][]float64
		for i := range X {
			if holdSet[i] {
				valX = append(valX, X[i])
				valY = append(valY, Y[i])
			} else {
				trainX = append(trainX, X[i])
				trainY = append(trainY, Y[i])
			}
		}

		model := c.New()
		if err := model.Fit(trainX, trainY); err != nil {
			return 0, fmt.Errorf("search: fit %s on fold %d: %w", c.Name, fi, err)
		}
		pred, err := model.Predict(valX)
		if err != nil {
			return 0, fmt.Errorf("search: predict %s on fold %d: %w", c.Name, fi, err)
		}
		score, err := metrics.SMAPE(valY, pred)
		if err != nil {
			return 0, fmt.Errorf("search: score %s on fold %d: %w", c.Name, fi, err)
		}
		total += score
	}
	return total / float64(len(folds)), nil
}

// Select cross-validates every candidate, in parallel up to GOMAXPROCS
// workers, and returns the one with the lowest mean SMAPE along with all
// scores sorted best first.
func Select(candidates []Candidate, X, Y [][]float64, groups []int, k int, seed int64) (Candidate, []Result, error) {
	if len(candidates) == 0 {
		return Candidate{}, nil, fmt.Errorf("search: no candidates")
	}
	folds, err := GroupKFold(groups, k, seed)
	if err != nil {
		return Candidate{}, nil, err
	}

	results := make([]Result, len(candidates))
	errs := make([]error, len(candidates))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			score, err := CrossValidate(c, X, Y, folds)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = Result{Name: c.Name, SMAPE: score}
			log.Printf("[search] %s cv smape %.2f%%", c.Name, score)
		}(i, c)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return Candidate{}, nil, err
		}
	}

	bestIdx := 0
	for i := 1; i < len(results); i++ {
		if results[i].SMAPE < results[bestIdx].SMAPE {
			bestIdx = i
		}
	}
	sorted := append([]Result(nil), results...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].SMAPE < sorted[b].SMAPE })
	return candidates[bestIdx], sorted, nil
}

// Grid enumerates lo, lo+step, ... up to and including hi (within a small
// tolerance for float drift). Used to expand hyperparameter ranges into
// candidate lists.
func Grid(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return nil
	}
	var out []float64
	for v := lo; v <= hi+step/1e6; v += step {
		out = append(out, v)
	}
	return out
}

// IntGrid is Grid over integers.
func IntGrid(lo, hi, step int) []int {
	if step <= 0 || hi < lo {
		return nil
	}
	var out []int
	for v := lo; v <= hi; v += step {
		out = append(out, v)
	}
	return out
}

// DefaultCandidates builds the model lineup the evaluation stage compares:
// a single tree, random forests of a few depths, boosted trees and the dense
// network. seed keeps every model deterministic.
func DefaultCandidates(seed int64) []Candidate {
	var out []Candidate
	out = append(out, Candidate{
		Name: "tree",
		New: func() regress.Regressor {
			t := regress.NewTree()
			t.MaxDepth = 8
			t.MinSamplesLeaf = 2
			t.Seed = seed
			return t
		},
	})
	for _, depth := range IntGrid(4, 10, 3) {
		depth := depth
		out = append(out, Candidate{
			Name: fmt.Sprintf("forest-d%d", depth),
			New: func() regress.Regressor {
				f := regress.NewForest()
				f.NEstimators = 100
				f.MaxDepth = depth
				f.MinSamplesLeaf = 2
				f.Seed = seed
				return f
			},
		})
	}
	for _, lr := range Grid(0.05, 0.15, 0.05) {
		lr := lr
		out = append(out, Candidate{
			Name: fmt.Sprintf("boost-lr%.2f", lr),
			New: func() regress.Regressor {
				b := regress.NewBoost()
				b.Rounds = 150
				b.LearningRate = lr
				b.MaxDepth = 3
				b.Seed = seed
				return b
			},
		})
	}
	out = append(out, Candidate{
		Name: "mlp",
		New: func() regress.Regressor {
			m := regress.NewMLP()
			m.Seed = seed
			return m
		},
	})
	return out
}
