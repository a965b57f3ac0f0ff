package search

import (
	"math/rand"
	"testing"

	"github.com/Noofbiz/synthKin/regress"
)

func TestGroupKFoldKeepsGroupsTogether(t *testing.T) {
	groups := []int{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6}
	folds, err := GroupKFold(groups, 3, 42)
	if err != nil {
		t.Fatalf("GroupKFold: %v", err)
	}
	if len(folds) != 3 {
		t.Fatalf("got %d folds, want 3", len(folds))
	}

	foldOfGroup := map[int]int{}
	total := 0
	for f, rows := range folds {
		for _, i := range rows {
			g := groups[i]
			if prev, ok := foldOfGroup[g]; ok && prev != f {
				t.Errorf("group %d split across folds %d and %d", g, prev, f)
			}
			foldOfGroup[g] = f
			total++
		}
	}
	if total != len(groups) {
		t.Errorf("folds cover %d rows, want %d", total, len(groups))
	}
}

func TestGroupKFoldValidation(t *testing.T) {
	if _, err := GroupKFold([]int{1, 2, 3}, 1, 0); err == nil {
		t.Error("expected error for k < 2")
	}
	if _, err := GroupKFold([]int{1, 1, 2}, 3, 0); err == nil {
		t.Error("expected error when unique groups < k")
	}
}

func TestGrid(t *testing.T) {
	got := Grid(0.05, 0.15, 0.05)
	if len(got) != 3 {
		t.Fatalf("Grid(0.05, 0.15, 0.05) = %v, want 3 values", got)
	}
	if got[0] != 0.05 || got[2] > 0.1500001 || got[2] < 0.1499999 {
		t.Errorf("Grid endpoints wrong: %v", got)
	}
	if Grid(1, 0, 0.1) != nil {
		t.Error("expected nil for inverted range")
	}
	ints := IntGrid(4, 10, 3)
	if len(ints) != 3 || ints[0] != 4 || ints[2] != 10 {
		t.Errorf("IntGrid(4, 10, 3) = %v, want [4 7 10]", ints)
	}
}

func TestSelectPicksBetterModel(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	var X, Y [][]float64
	var groups []int
	for g := 0; g < 8; g++ {
		for r := 0; r < 10; r++ {
			x := rng.Float64()
			X = append(X, []float64{x})
			var y float64
			if x < 0.5 {
				y = 1
			} else {
				y = 5
			}
			Y = append(Y, []float64{y})
			groups = append(groups, g)
		}
	}

	// A deliberately crippled tree (single leaf) against a real one.
	candidates := []Candidate{
		{
			Name: "stump",
			New: func() regress.Regressor {
				tr := regress.NewTree()
				tr.MinSamplesLeaf = 1000
				tr.Seed = 1
				return tr
			},
		},
		{
			Name: "tree",
			New: func() regress.Regressor {
				tr := regress.NewTree()
				tr.MaxDepth = 4
				tr.Seed = 1
				return tr
			},
		},
	}

	best, results, err := Select(candidates, X, Y, groups, 4, 3)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if best.Name != "tree" {
		t.Errorf("Select picked %q, want tree", best.Name)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].SMAPE > results[1].SMAPE {
		t.Error("results not sorted best first")
	}
}

func TestDefaultCandidatesAreFresh(t *testing.T) {
	cands := DefaultCandidates(1)
	if len(cands) < 5 {
		t.Fatalf("got %d candidates, want at least 5", len(cands))
	}
	seen := map[string]bool{}
	for _, c := range cands {
		if seen[c.Name] {
			t.Errorf("duplicate candidate name %q", c.Name)
		}
		seen[c.Name] = true
		if c.New() == c.New() {
			t.Errorf("%s: New returned the same instance twice", c.Name)
		}
	}
}
