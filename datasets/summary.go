package datasets

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary holds per-column statistics over one table.
type ColumnSummary struct {
	Name string
	Min  float64
	Max  float64
	Mean float64
}

// Summary describes a table for the CLI report: per-column stats over the
// joined feature+target matrix plus replicate counts per experiment.
type Summary struct {
	Rows      int
	Columns   []ColumnSummary
	GroupRows map[int]int
}

// Summarize computes a Summary for the table.
func Summarize(t *Table) (*Summary, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("cannot summarize empty table")
	}
	names := append(append([]string(nil), t.FeatureCols...), t.TargetCols...)
	joined := t.Joined()

	cols := make([]ColumnSummary, len(names))
	buf := make([]float64, t.Len())
	for j, name := range names {
		for i := range joined {
			buf[i] = joined[i][j]
		}
		cols[j] = ColumnSummary{
			Name: name,
			Min:  floats.Min(buf),
			Max:  floats.Max(buf),
			Mean: stat.Mean(buf, nil),
		}
	}

	groups := make(map[int]int)
	for _, id := range t.GroupIDs {
		groups[id]++
	}

	return &Summary{Rows: t.Len(), Columns: cols, GroupRows: groups}, nil
}

// GroupList returns the experiment ids present, sorted ascending.
func (s *Summary) GroupList() []int {
	ids := make([]int, 0, len(s.GroupRows))
	for id := range s.GroupRows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MeanImpurity returns, per row, the mean over the named impurity target
// columns. The selective augmentation strategy ranks rows by this value.
func MeanImpurity(t *Table, impurityCols []string) ([]float64, error) {
	if len(impurityCols) == 0 {
		return nil, fmt.Errorf("no impurity columns given")
	}
	idxs := make([]int, len(impurityCols))
	for i, name := range impurityCols {
		idx, err := t.TargetIndex(name)
		if err != nil {
			return nil, err
		}
		idxs[i] = idx
	}
	out := make([]float64, t.Len())
	for i := range t.Targets {
		sum := 0.0
		for _, j := range idxs {
			sum += t.Targets[i][j]
		}
		out[i] = sum / float64(len(idxs))
	}
	return out, nil
}
