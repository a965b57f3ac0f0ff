// Package regress provides the multi-output regression models the evaluation
// stage trains on augmented data: a CART tree, a random forest built from it,
// a residual-fitting boosted ensemble and a dense-network wrapper.
package regress

import "fmt"

// Regressor is a multi-output regression model. Fit consumes row-major
// feature and target matrices; Predict returns one target row per input row.
type Regressor interface {
	Fit(X, Y [][]float64) error
	Predict(X [][]float64) ([][]float64, error)
}

func checkTraining(X, Y [][]float64) (features, targets int, err error) {
	if len(X) == 0 || len(X) != len(Y) {
		return 0, 0, fmt.Errorf("regress: need matching non-empty X and Y, got %d and %d rows", len(X), len(Y))
	}
	features = len(X[0])
	targets = len(Y[0])
	if features == 0 || targets == 0 {
		return 0, 0, fmt.Errorf("regress: empty feature or target row")
	}
	for i := range X {
		if len(X[i]) != features {
			return 0, 0, fmt.Errorf("regress: ragged feature row %d", i)
		}
		if len(Y[i]) != targets {
			return 0, 0, fmt.Errorf("regress: ragged target row %d", i)
		}
	}
	return features, targets, nil
}

func checkPredict(X [][]float64, features int) error {
	if features == 0 {
		return fmt.Errorf("regress: model is not fitted")
	}
	for i := range X {
		if len(X[i]) != features {
			return fmt.Errorf("regress: row %d has %d features, model expects %d", i, len(X[i]), features)
		}
	}
	return nil
}
