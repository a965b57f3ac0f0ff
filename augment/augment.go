// Package augment assembles augmented training tables from a trained
// generator and the real kinetics data. Each strategy is a pure function from
// (generator, real table) to a new table; the real table is never mutated.
package augment

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Noofbiz/synthKin/datasets"
	"github.com/Noofbiz/synthKin/regress"
	"github.com/Noofbiz/synthKin/scale"
)

// SentinelGroupID marks synthetic rows that do not belong to any real
// experiment.
const SentinelGroupID = -1

// SelectivePercentile is the quantile of mean impurity below which real rows
// qualify for selective augmentation.
const SelectivePercentile = 0.20

// Generator produces synthetic rows in normalized [0,1] space, features and
// targets concatenated in table column order. The trained GAN satisfies this;
// so does the empirical sampler.
type Generator interface {
	Sample(n int) ([][]float64, error)
}

// Uniform samples as many synthetic rows as the real table holds, denormalizes
// them and appends them with the sentinel group id.
func Uniform(g Generator, real *datasets.Table, sc *scale.MinMaxScaler) (*datasets.Table, error) {
	n := real.Len()
	if n == 0 {
		return nil, fmt.Errorf("augment: real table is empty")
	}
	rows, err := sampleDenormalized(g, sc, n)
	if err != nil {
		return nil, err
	}

	out := real.Clone()
	for i, row := range rows {
		feat, targ, err := real.SplitJoined(row)
		if err != nil {
			return nil, fmt.Errorf("augment: synthetic row %d: %w", i, err)
		}
		if err := out.AppendRow(feat, targ, SentinelGroupID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SelectLowImpurity returns the indices of rows whose mean impurity target is
// at or below the SelectivePercentile quantile, along with the threshold.
// At most ceil(SelectivePercentile * rows) rows are selected; when means tie
// at the threshold, lower row indices win. The returned indices are in
// ascending row order.
func SelectLowImpurity(t *datasets.Table, impurityCols []string) ([]int, float64, error) {
	means, err := datasets.MeanImpurity(t, impurityCols)
	if err != nil {
		return nil, 0, err
	}
	sorted := append([]float64(nil), means...)
	sort.Float64s(sorted)
	threshold := stat.Quantile(SelectivePercentile, stat.Empirical, sorted, nil)

	order := make([]int, len(means))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return means[order[a]] < means[order[b]] })

	limit := int(math.Ceil(SelectivePercentile * float64(len(means))))
	var idx []int
	for _, i := range order {
		if means[i] > threshold || len(idx) == limit {
			break
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx, threshold, nil
}

// Selective replicates the features of low-impurity real rows and pairs each
// replica with independently sampled synthetic targets. Replicas inherit the
// originating row's group id. The generator must produce exactly
// replicas * selected rows; anything else is a shape error.
func Selective(g Generator, real *datasets.Table, sc *scale.MinMaxScaler, impurityCols []string, replicas int) (*datasets.Table, error) {
	if replicas <= 0 {
		return nil, fmt.Errorf("augment: replicas must be positive, got %d", replicas)
	}
	selected, _, err := SelectLowImpurity(real, impurityCols)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("augment: no rows below impurity threshold")
	}

	need := replicas * len(selected)
	rows, err := sampleDenormalized(g, sc, need)
	if err != nil {
		return nil, err
	}
	if len(rows) != need {
		return nil, fmt.Errorf("augment: generator produced %d rows, selective strategy needs %d", len(rows), need)
	}

	out := real.Clone()
	next := 0
	for _, ri := range selected {
		for r := 0; r < replicas; r++ {
			_, targ, err := real.SplitJoined(rows[next])
			if err != nil {
				return nil, fmt.Errorf("augment: synthetic row %d: %w", next, err)
			}
			feat := append([]float64(nil), real.Features[ri]...)
			if err := out.AppendRow(feat, targ, real.GroupIDs[ri]); err != nil {
				return nil, err
			}
			next++
		}
	}
	return out, nil
}

// TwoStage composes synthetic rows from two sources: features come from the
// generator, major (non-impurity) targets from a regressor fitted to predict
// them from real features, and impurity targets directly from the generator.
// Rows receive fresh group ids disjoint from every real experiment.
func TwoStage(g Generator, real *datasets.Table, sc *scale.MinMaxScaler, major regress.Regressor, impurityCols []string, n int) (*datasets.Table, error) {
	if n <= 0 {
		return nil, fmt.Errorf("augment: synthetic row count must be positive, got %d", n)
	}

	impurity := make(map[int]bool, len(impurityCols))
	for _, name := range impurityCols {
		j, err := real.TargetIndex(name)
		if err != nil {
			return nil, err
		}
		impurity[j] = true
	}
	var majorIdx []int
	for j := range real.TargetCols {
		if !impurity[j] {
			majorIdx = append(majorIdx, j)
		}
	}
	if len(majorIdx) == 0 {
		return nil, fmt.Errorf("augment: every target is an impurity column, nothing for the regressor to predict")
	}

	majorY := make([][]float64, real.Len())
	for i := range majorY {
		row := make([]float64, len(majorIdx))
		for k, j := range majorIdx {
			row[k] = real.Targets[i][j]
		}
		majorY[i] = row
	}
	if err := major.Fit(real.Features, majorY); err != nil {
		return nil, fmt.Errorf("augment: fit major-target regressor: %w", err)
	}

	rows, err := sampleDenormalized(g, sc, n)
	if err != nil {
		return nil, err
	}

	feats := make([][]float64, n)
	genTargs := make([][]float64, n)
	for i, row := range rows {
		feat, targ, err := real.SplitJoined(row)
		if err != nil {
			return nil, fmt.Errorf("augment: synthetic row %d: %w", i, err)
		}
		feats[i] = feat
		genTargs[i] = targ
	}

	pred, err := major.Predict(feats)
	if err != nil {
		return nil, fmt.Errorf("augment: predict major targets: %w", err)
	}
	if len(pred) != n {
		return nil, fmt.Errorf("augment: regressor returned %d rows for %d synthetic features", len(pred), n)
	}

	out := real.Clone()
	base := real.MaxGroupID() + 1
	for i := 0; i < n; i++ {
		if len(pred[i]) != len(majorIdx) {
			return nil, fmt.Errorf("augment: regressor row %d has %d outputs, want %d", i, len(pred[i]), len(majorIdx))
		}
		targ := append([]float64(nil), genTargs[i]...)
		for k, j := range majorIdx {
			targ[j] = pred[i][k]
		}
		if err := out.AppendRow(feats[i], targ, base+i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// sampleDenormalized draws n normalized rows from g and maps them back to
// original units through the fitted scaler.
func sampleDenormalized(g Generator, sc *scale.MinMaxScaler, n int) ([][]float64, error) {
	rows, err := g.Sample(n)
	if err != nil {
		return nil, fmt.Errorf("augment: sample generator: %w", err)
	}
	out, err := sc.InverseTransform(rows)
	if err != nil {
		return nil, fmt.Errorf("augment: denormalize synthetic rows: %w", err)
	}
	return out, nil
}
