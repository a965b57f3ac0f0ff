package datasets

import "fmt"

// This package loads the chemical kinetics CSV exports into in-memory tables.
//
// The raw files use single-letter shorthand for the measured compounds
// (F, A, B, C, D, E, H, I, J); the loader renames those to canonical compound
// names so downstream code never sees the shorthand. Missing measurements are
// zero-filled, matching how the lab exports encode "below detection limit".
//
// Two tables matter:
//
//	training table — every replicate measurement, grouped by experiment id
//	blind table    — five rows held back from all training and augmentation,
//	                 used only for the final metric report
//
// Tables are small (hundreds of rows), so unlike a streaming dataset there is
// no lazy loading here: everything is read once into memory and treated as
// read-only afterwards.

// Feature column names, in the order they appear in Table.Features.
var FeatureCols = []string{"temperature", "acid_conc", "initial_conc", "reaction_time"}

// TargetCols lists the nine compound concentration columns, in the order they
// appear in Table.Targets.
var TargetCols = []string{
	"furfural",
	"acetic_acid",
	"formic_acid",
	"levulinic_acid",
	"glucose",
	"fructose",
	"hmf",
	"cellobiose",
	"xylose",
}

// compoundNames maps the export shorthand to canonical compound names.
var compoundNames = map[string]string{
	"f": "furfural",
	"a": "acetic_acid",
	"b": "formic_acid",
	"c": "levulinic_acid",
	"d": "glucose",
	"e": "fructose",
	"h": "hmf",
	"i": "cellobiose",
	"j": "xylose",
}

// ImpurityCols is the default set of trace-impurity targets: the low
// concentration degradation products, as opposed to the major sugar species.
var ImpurityCols = []string{"furfural", "acetic_acid", "formic_acid", "levulinic_acid", "hmf"}

// Table is an in-memory kinetics table. Features, Targets and GroupIDs are
// row-aligned. A Table is written once by its producer (loader or assembler)
// and read-only afterwards.
type Table struct {
	FeatureCols []string
	TargetCols  []string

	Features [][]float64 // [row][feature]
	Targets  [][]float64 // [row][target]

	// GroupIDs links replicate measurements of the same experiment. Synthetic
	// rows carry an id assigned by the assembler policy (see augment).
	GroupIDs []int
}

// NewTable allocates an empty table with the canonical column schema.
func NewTable() *Table {
	return &Table{
		FeatureCols: FeatureCols,
		TargetCols:  TargetCols,
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Features) }

// SameSchema reports whether o carries exactly the same feature and target
// columns, in the same order.
func (t *Table) SameSchema(o *Table) bool {
	if len(t.FeatureCols) != len(o.FeatureCols) || len(t.TargetCols) != len(o.TargetCols) {
		return false
	}
	for i := range t.FeatureCols {
		if t.FeatureCols[i] != o.FeatureCols[i] {
			return false
		}
	}
	for i := range t.TargetCols {
		if t.TargetCols[i] != o.TargetCols[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy. Assemblers clone the real table before appending
// synthetic rows so the original stays untouched.
func (t *Table) Clone() *Table {
	c := &Table{
		FeatureCols: t.FeatureCols,
		TargetCols:  t.TargetCols,
		Features:    make([][]float64, len(t.Features)),
		Targets:     make([][]float64, len(t.Targets)),
		GroupIDs:    append([]int(nil), t.GroupIDs...),
	}
	for i := range t.Features {
		c.Features[i] = append([]float64(nil), t.Features[i]...)
		c.Targets[i] = append([]float64(nil), t.Targets[i]...)
	}
	return c
}

// AppendRow adds one row. The slices are copied.
func (t *Table) AppendRow(features, targets []float64, groupID int) error {
	if len(features) != len(t.FeatureCols) {
		return fmt.Errorf("feature width mismatch: got %d want %d", len(features), len(t.FeatureCols))
	}
	if len(targets) != len(t.TargetCols) {
		return fmt.Errorf("target width mismatch: got %d want %d", len(targets), len(t.TargetCols))
	}
	t.Features = append(t.Features, append([]float64(nil), features...))
	t.Targets = append(t.Targets, append([]float64(nil), targets...))
	t.GroupIDs = append(t.GroupIDs, groupID)
	return nil
}

// Joined returns the row matrix with features and targets concatenated per
// row, the layout the scaler and the GAN train on.
func (t *Table) Joined() [][]float64 {
	out := make([][]float64, t.Len())
	for i := range out {
		row := make([]float64, 0, len(t.FeatureCols)+len(t.TargetCols))
		row = append(row, t.Features[i]...)
		row = append(row, t.Targets[i]...)
		out[i] = row
	}
	return out
}

// SplitJoined is the inverse of Joined for a single row: it splits a
// feature+target vector back into its two halves.
func (t *Table) SplitJoined(row []float64) (features, targets []float64, err error) {
	want := len(t.FeatureCols) + len(t.TargetCols)
	if len(row) != want {
		return nil, nil, fmt.Errorf("joined row width mismatch: got %d want %d", len(row), want)
	}
	features = append([]float64(nil), row[:len(t.FeatureCols)]...)
	targets = append([]float64(nil), row[len(t.FeatureCols):]...)
	return features, targets, nil
}

// TargetIndex returns the position of the named target column, or an error if
// the table does not carry it.
func (t *Table) TargetIndex(name string) (int, error) {
	for i, c := range t.TargetCols {
		if c == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("target column %q not found", name)
}

// MaxGroupID returns the largest experiment id present, or -1 for an empty
// table. Assemblers use it to allocate fresh disjoint id ranges.
func (t *Table) MaxGroupID() int {
	maxID := -1
	for _, id := range t.GroupIDs {
		if id > maxID {
			maxID = id
		}
	}
	return maxID
}
