package augment

import (
	"math"
	"testing"

	"github.com/Noofbiz/synthKin/datasets"
	"github.com/Noofbiz/synthKin/regress"
	"github.com/Noofbiz/synthKin/scale"
)

// fakeGen emits copies of a fixed normalized row, or rows of a wrong width
// when bad is set.
type fakeGen struct {
	row []float64
	bad bool
}

func (f *fakeGen) Sample(n int) ([][]float64, error) {
	out := make([][]float64, n)
	for i := range out {
		row := append([]float64(nil), f.row...)
		if f.bad {
			row = row[:len(row)-1]
		}
		out[i] = row
	}
	return out, nil
}

// testTable builds a 100-row table with strictly increasing impurity means so
// the 20th percentile selects exactly 20 rows.
func testTable(t *testing.T) (*datasets.Table, *scale.MinMaxScaler) {
	t.Helper()
	tbl := datasets.NewTable()
	for i := 0; i < 100; i++ {
		feat := []float64{150 + float64(i), 0.1 * float64(i%10), 10, float64(i)}
		targ := make([]float64, len(datasets.TargetCols))
		for j := range targ {
			targ[j] = float64(i) + float64(j)*0.1
		}
		if err := tbl.AppendRow(feat, targ, i/4); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	sc := scale.NewMinMaxScaler()
	if err := sc.Fit(tbl.Joined()); err != nil {
		t.Fatalf("Fit scaler: %v", err)
	}
	return tbl, sc
}

func halfRow() []float64 {
	row := make([]float64, len(datasets.FeatureCols)+len(datasets.TargetCols))
	for i := range row {
		row[i] = 0.5
	}
	return row
}

func TestUniformDoublesTableWithSentinelIDs(t *testing.T) {
	tbl, sc := testTable(t)
	out, err := Uniform(&fakeGen{row: halfRow()}, tbl, sc)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}
	if out.Len() != 200 {
		t.Fatalf("got %d rows, want 200", out.Len())
	}
	if !out.SameSchema(tbl) {
		t.Error("augmented table schema differs from real table")
	}
	for i := 100; i < 200; i++ {
		if out.GroupIDs[i] != SentinelGroupID {
			t.Fatalf("synthetic row %d has group id %d, want %d", i, out.GroupIDs[i], SentinelGroupID)
		}
	}
	if tbl.Len() != 100 {
		t.Error("real table was mutated")
	}

	// Normalized 0.5 denormalizes to the column midpoint.
	wantTemp := 0.5*(sc.Max[0]-sc.Min[0]) + sc.Min[0]
	if math.Abs(out.Features[100][0]-wantTemp) > 1e-9 {
		t.Errorf("synthetic temperature = %v, want %v", out.Features[100][0], wantTemp)
	}
}

func TestSelectLowImpurity(t *testing.T) {
	tbl, _ := testTable(t)
	idx, threshold, err := SelectLowImpurity(tbl, datasets.ImpurityCols)
	if err != nil {
		t.Fatalf("SelectLowImpurity: %v", err)
	}
	if len(idx) == 0 || len(idx) > 20 {
		t.Fatalf("selected %d rows, want at most ceil(20%% of 100) = 20", len(idx))
	}
	means, err := datasets.MeanImpurity(tbl, datasets.ImpurityCols)
	if err != nil {
		t.Fatalf("MeanImpurity: %v", err)
	}
	for _, i := range idx {
		if means[i] > threshold {
			t.Errorf("row %d mean %v exceeds threshold %v", i, means[i], threshold)
		}
	}
}

func TestSelectLowImpurityTiedMeansStayBounded(t *testing.T) {
	// Zero-filled impurity measurements give many rows an identical zero
	// mean; the selection must still respect the ceil(20%) bound.
	tbl := datasets.NewTable()
	impurity := map[string]bool{}
	for _, name := range datasets.ImpurityCols {
		impurity[name] = true
	}
	for i := 0; i < 100; i++ {
		feat := []float64{150, 0.5, 10, float64(i)}
		targ := make([]float64, len(datasets.TargetCols))
		for j, name := range datasets.TargetCols {
			if !impurity[name] {
				targ[j] = float64(i)
			}
		}
		if err := tbl.AppendRow(feat, targ, i/4); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}

	idx, threshold, err := SelectLowImpurity(tbl, datasets.ImpurityCols)
	if err != nil {
		t.Fatalf("SelectLowImpurity: %v", err)
	}
	if threshold != 0 {
		t.Errorf("threshold = %v, want 0 for all-zero impurity means", threshold)
	}
	if len(idx) != 20 {
		t.Fatalf("selected %d rows, want exactly ceil(20%% of 100) = 20", len(idx))
	}
	// Ties break on row index, so the selection is the first 20 rows.
	for want, got := range idx {
		if got != want {
			t.Fatalf("selected rows %v, want indices 0..19", idx)
		}
	}
}

func TestSelectiveInheritsGroupAndFeatures(t *testing.T) {
	tbl, sc := testTable(t)
	const replicas = 3
	out, err := Selective(&fakeGen{row: halfRow()}, tbl, sc, datasets.ImpurityCols, replicas)
	if err != nil {
		t.Fatalf("Selective: %v", err)
	}
	idx, _, err := SelectLowImpurity(tbl, datasets.ImpurityCols)
	if err != nil {
		t.Fatalf("SelectLowImpurity: %v", err)
	}
	want := tbl.Len() + replicas*len(idx)
	if out.Len() != want {
		t.Fatalf("got %d rows, want %d", out.Len(), want)
	}

	row := tbl.Len()
	for _, ri := range idx {
		for r := 0; r < replicas; r++ {
			if out.GroupIDs[row] != tbl.GroupIDs[ri] {
				t.Fatalf("replica of row %d has group %d, want %d", ri, out.GroupIDs[row], tbl.GroupIDs[ri])
			}
			for j := range tbl.Features[ri] {
				if out.Features[row][j] != tbl.Features[ri][j] {
					t.Fatalf("replica of row %d changed feature %d", ri, j)
				}
			}
			row++
		}
	}
}

func TestTwoStageUsesFreshGroupIDs(t *testing.T) {
	tbl, sc := testTable(t)
	tree := regress.NewTree()
	tree.Seed = 1
	out, err := TwoStage(&fakeGen{row: halfRow()}, tbl, sc, tree, datasets.ImpurityCols, 10)
	if err != nil {
		t.Fatalf("TwoStage: %v", err)
	}
	if out.Len() != 110 {
		t.Fatalf("got %d rows, want 110", out.Len())
	}
	maxReal := tbl.MaxGroupID()
	seen := map[int]bool{}
	for i := 100; i < 110; i++ {
		id := out.GroupIDs[i]
		if id <= maxReal {
			t.Errorf("synthetic row %d group %d collides with real ids (max %d)", i, id, maxReal)
		}
		if seen[id] {
			t.Errorf("group id %d reused", id)
		}
		seen[id] = true
	}

	// Impurity targets come straight from the denormalized generator row.
	fi, err := tbl.TargetIndex("furfural")
	if err != nil {
		t.Fatalf("TargetIndex: %v", err)
	}
	col := len(datasets.FeatureCols) + fi
	want := 0.5*(sc.Max[col]-sc.Min[col]) + sc.Min[col]
	if math.Abs(out.Targets[100][fi]-want) > 1e-9 {
		t.Errorf("impurity target = %v, want generator value %v", out.Targets[100][fi], want)
	}
}

func TestShapeErrors(t *testing.T) {
	tbl, sc := testTable(t)
	if _, err := Uniform(&fakeGen{row: halfRow(), bad: true}, tbl, sc); err == nil {
		t.Error("expected width error from Uniform with malformed generator")
	}
	if _, err := Selective(&fakeGen{row: halfRow()}, tbl, sc, datasets.ImpurityCols, 0); err == nil {
		t.Error("expected error for non-positive replicas")
	}
	if _, err := TwoStage(&fakeGen{row: halfRow()}, tbl, sc, regress.NewTree(), datasets.TargetCols, 5); err == nil {
		t.Error("expected error when every target is an impurity column")
	}
}

func TestEmpiricalSampler(t *testing.T) {
	tbl, sc := testTable(t)
	emp, err := NewEmpirical(tbl, sc, 5, 0.01, 77)
	if err != nil {
		t.Fatalf("NewEmpirical: %v", err)
	}
	rows, err := emp.Sample(50)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	width := len(datasets.FeatureCols) + len(datasets.TargetCols)
	for i, row := range rows {
		if len(row) != width {
			t.Fatalf("row %d has width %d, want %d", i, len(row), width)
		}
		for j, v := range row {
			if v < 0 || v > 1 {
				t.Errorf("row %d col %d = %v, outside [0,1]", i, j, v)
			}
		}
	}

	// Same seed reproduces the same rows.
	emp2, err := NewEmpirical(tbl, sc, 5, 0.01, 77)
	if err != nil {
		t.Fatalf("NewEmpirical: %v", err)
	}
	rows2, err := emp2.Sample(50)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	for i := range rows {
		for j := range rows[i] {
			if rows[i][j] != rows2[i][j] {
				t.Fatalf("row %d differs between identically seeded samplers", i)
			}
		}
	}

	if _, err := NewEmpirical(tbl, sc, 0, 0.01, 1); err == nil {
		t.Error("expected error for k = 0")
	}
	if _, err := emp.Sample(0); err == nil {
		t.Error("expected error for zero sample count")
	}

	// The empirical sampler plugs in anywhere the GAN does.
	var _ Generator = emp
	if _, err := Uniform(emp, tbl, sc); err != nil {
		t.Errorf("Uniform with empirical sampler: %v", err)
	}
}

func TestMeanImpurityUnknownColumn(t *testing.T) {
	tbl, _ := testTable(t)
	if _, _, err := SelectLowImpurity(tbl, []string{"nope"}); err == nil {
		t.Error("expected error for unknown impurity column")
	}
}
