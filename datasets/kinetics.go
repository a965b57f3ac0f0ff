package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadKinetics reads one kinetics CSV into a Table.
//
// Header handling:
//   - column names are lower-cased and trimmed
//   - shorthand compound letters are renamed to canonical compound names
//   - a few spelling variants of the feature columns are accepted
//
// Missing or non-numeric cells in feature/target columns are zero-filled.
// The initial_conc column is derived from the "c0" column when present,
// falling back to the glucose column otherwise.
func LoadKinetics(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open kinetics CSV %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		name := strings.TrimSpace(strings.ToLower(col))
		if canon, ok := compoundNames[name]; ok {
			name = canon
		}
		colIndex[name] = i
	}

	// Feature columns accept a couple of export spelling variants.
	tempIdx, ok := findColumn(colIndex, "temperature", "temp", "t_c")
	if !ok {
		return nil, fmt.Errorf("temperature column not found in %s", path)
	}
	acidIdx, ok := findColumn(colIndex, "acid_conc", "acid", "acid_concentration")
	if !ok {
		return nil, fmt.Errorf("acid concentration column not found in %s", path)
	}
	timeIdx, ok := findColumn(colIndex, "reaction_time", "time", "t_min")
	if !ok {
		return nil, fmt.Errorf("reaction time column not found in %s", path)
	}
	groupIdx, ok := findColumn(colIndex, "exp", "experiment", "exp_id")
	if !ok {
		return nil, fmt.Errorf("experiment id column not found in %s", path)
	}

	// initial_conc derivation: prefer the dedicated c0 column; otherwise fall
	// back to the glucose measurement for the row.
	initIdx, haveInit := findColumn(colIndex, "initial_conc", "c0", "conc_0")
	if !haveInit {
		initIdx, haveInit = colIndex["glucose"], true
	}

	targetIdx := make([]int, len(TargetCols))
	for i, name := range TargetCols {
		idx, ok := colIndex[name]
		if !ok {
			return nil, fmt.Errorf("compound column %q not found in %s", name, path)
		}
		targetIdx[i] = idx
	}

	table := NewTable()
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d of %s: %w", rowNum, path, err)
		}
		rowNum++

		features := []float64{
			parseCell(record, tempIdx),
			parseCell(record, acidIdx),
			parseCell(record, initIdx),
			parseCell(record, timeIdx),
		}
		targets := make([]float64, len(targetIdx))
		for i, idx := range targetIdx {
			targets[i] = parseCell(record, idx)
		}
		groupID := int(parseCell(record, groupIdx))

		if err := table.AppendRow(features, targets, groupID); err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", rowNum, path, err)
		}
	}

	if table.Len() == 0 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}
	return table, nil
}

// LoadSplit loads the training and blind tables from their two fixed CSV
// files and verifies they share a schema. The blind table is the evaluation
// holdout; callers must never feed it to training or augmentation.
func LoadSplit(trainPath, blindPath string) (train, blind *Table, err error) {
	train, err = LoadKinetics(trainPath)
	if err != nil {
		return nil, nil, fmt.Errorf("training table: %w", err)
	}
	blind, err = LoadKinetics(blindPath)
	if err != nil {
		return nil, nil, fmt.Errorf("blind table: %w", err)
	}
	if !train.SameSchema(blind) {
		return nil, nil, fmt.Errorf("training and blind tables have different schemas")
	}
	return train, blind, nil
}

// findColumn returns the index of the first candidate name present.
func findColumn(colIndex map[string]int, candidates ...string) (int, bool) {
	for _, name := range candidates {
		if idx, ok := colIndex[name]; ok {
			return idx, true
		}
	}
	return 0, false
}
