package datasets

import (
	"strconv"
	"strings"
)

// parseCell reads a numeric cell, zero-filling anything missing or
// unparseable. The lab exports use empty cells and "na" for values below the
// detection limit, which the pipeline treats as zero concentration.
func parseCell(record []string, idx int) float64 {
	if idx < 0 || idx >= len(record) {
		return 0
	}
	s := strings.TrimSpace(record[idx])
	if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan") {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
