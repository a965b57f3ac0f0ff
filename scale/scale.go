// Package scale provides the min-max normalization shared by GAN training
// and synthetic-row denormalization. One scaler is fitted once over the
// joined feature+target matrix of the real training table and treated as
// read-only afterwards; Transform and InverseTransform are exact inverses up
// to floating-point tolerance.
package scale

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// MinMaxScaler maps each column to [0,1] using the per-column min and max
// seen during Fit. Columns with zero range map to 0 and invert back to the
// fitted minimum.
type MinMaxScaler struct {
	Min []float64
	Max []float64

	fitted bool
}

// NewMinMaxScaler returns an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler { return &MinMaxScaler{} }

// Fit records per-column min/max over X. Refitting replaces the prior state.
func (s *MinMaxScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("scale: cannot fit on empty matrix")
	}
	cols := len(X[0])
	if cols == 0 {
		return fmt.Errorf("scale: cannot fit on zero-width matrix")
	}
	s.Min = make([]float64, cols)
	s.Max = make([]float64, cols)

	buf := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			if len(row) != cols {
				return fmt.Errorf("scale: ragged matrix: row %d has %d columns, want %d", i, len(row), cols)
			}
			buf[i] = row[j]
		}
		s.Min[j] = floats.Min(buf)
		s.Max[j] = floats.Max(buf)
	}
	s.fitted = true
	return nil
}

// Transform maps X into normalized space. X is not modified.
func (s *MinMaxScaler) Transform(X [][]float64) ([][]float64, error) {
	if err := s.check(X); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			span := s.Max[j] - s.Min[j]
			if span == 0 {
				r[j] = 0
				continue
			}
			r[j] = (v - s.Min[j]) / span
		}
		out[i] = r
	}
	return out, nil
}

// InverseTransform maps normalized rows back to original units.
func (s *MinMaxScaler) InverseTransform(X [][]float64) ([][]float64, error) {
	if err := s.check(X); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = v*(s.Max[j]-s.Min[j]) + s.Min[j]
		}
		out[i] = r
	}
	return out, nil
}

// Dim returns the number of columns the scaler was fitted on.
func (s *MinMaxScaler) Dim() int { return len(s.Min) }

func (s *MinMaxScaler) check(X [][]float64) error {
	if !s.fitted {
		return fmt.Errorf("scale: scaler not fitted")
	}
	for i, row := range X {
		if len(row) != len(s.Min) {
			return fmt.Errorf("scale: row %d has %d columns, scaler fitted on %d", i, len(row), len(s.Min))
		}
	}
	return nil
}
