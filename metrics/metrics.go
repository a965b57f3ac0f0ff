// Package metrics implements the three scores reported on the blind set.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Epsilon guards the SMAPE denominator when true and predicted values are
// both zero.
const Epsilon = 1e-8

// SMAPE returns the symmetric mean absolute percentage error, in percent,
// over all cells of the true/predicted matrices.
func SMAPE(yTrue, yPred [][]float64) (float64, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return 0, err
	}
	sum := 0.0
	n := 0
	for i := range yTrue {
		for j := range yTrue[i] {
			a := yTrue[i][j]
			b := yPred[i][j]
			sum += 2 * math.Abs(b-a) / (math.Abs(a) + math.Abs(b) + Epsilon)
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("metrics: empty matrices")
	}
	return 100 * sum / float64(n), nil
}

// NRMSE returns the root-mean-squared error normalized by the mean per-column
// range (max-min) of the true values.
func NRMSE(yTrue, yPred [][]float64) (float64, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return 0, err
	}
	cols := len(yTrue[0])
	sumSq := 0.0
	n := 0
	for i := range yTrue {
		for j := range yTrue[i] {
			d := yPred[i][j] - yTrue[i][j]
			sumSq += d * d
			n++
		}
	}
	rmse := math.Sqrt(sumSq / float64(n))

	buf := make([]float64, len(yTrue))
	rangeSum := 0.0
	for j := 0; j < cols; j++ {
		for i := range yTrue {
			buf[i] = yTrue[i][j]
		}
		rangeSum += floats.Max(buf) - floats.Min(buf)
	}
	meanRange := rangeSum / float64(cols)
	if meanRange == 0 {
		return 0, fmt.Errorf("metrics: zero target range, NRMSE undefined")
	}
	return rmse / meanRange, nil
}

// R2 returns the mean per-column coefficient of determination.
func R2(yTrue, yPred [][]float64) (float64, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return 0, err
	}
	cols := len(yTrue[0])
	sum := 0.0
	for j := 0; j < cols; j++ {
		truth := make([]float64, len(yTrue))
		for i := range yTrue {
			truth[i] = yTrue[i][j]
		}
		mean := stat.Mean(truth, nil)
		ssRes, ssTot := 0.0, 0.0
		for i := range yTrue {
			d := yTrue[i][j] - yPred[i][j]
			ssRes += d * d
			m := yTrue[i][j] - mean
			ssTot += m * m
		}
		if ssTot == 0 {
			// Constant column: perfect if residuals are zero, else worst case.
			if ssRes == 0 {
				sum += 1
			}
			continue
		}
		sum += 1 - ssRes/ssTot
	}
	return sum / float64(cols), nil
}

func checkShapes(yTrue, yPred [][]float64) error {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return fmt.Errorf("metrics: row count mismatch: %d vs %d", len(yTrue), len(yPred))
	}
	cols := len(yTrue[0])
	for i := range yTrue {
		if len(yTrue[i]) != cols || len(yPred[i]) != cols {
			return fmt.Errorf("metrics: column count mismatch at row %d", i)
		}
	}
	return nil
}
