package regress

import (
	"fmt"
	"time"

	"github.com/Noofbiz/synthKin/gan"
)

// MLP adapts the dense network from the gan package to the Regressor
// interface. Inputs and targets are expected in normalized [0,1] space, same
// as the GAN works in.
type MLP struct {
	Hidden       []int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64

	net      *gan.Network
	features int
}

// NewMLP returns an MLP regressor with the usual defaults.
func NewMLP() *MLP {
	return &MLP{
		Hidden:       []int{32, 32},
		Epochs:       300,
		BatchSize:    16,
		LearningRate: 1e-3,
		Seed:         time.Now().UnixNano(),
	}
}

// Fit implements Regressor.
func (m *MLP) Fit(X, Y [][]float64) error {
	features, targets, err := checkTraining(X, Y)
	if err != nil {
		return err
	}
	m.features = features

	sizes := append(append([]int{features}, m.Hidden...), targets)
	net, err := gan.NewNetwork(sizes, gan.ActLeakyReLU, gan.ActLinear, m.Seed)
	if err != nil {
		return fmt.Errorf("regress: build mlp: %w", err)
	}
	if err := gan.TrainMSE(net, X, Y, m.Epochs, m.BatchSize, m.LearningRate, m.Seed); err != nil {
		return fmt.Errorf("regress: train mlp: %w", err)
	}
	m.net = net
	return nil
}

// Predict implements Regressor.
func (m *MLP) Predict(X [][]float64) ([][]float64, error) {
	if m.net == nil {
		return nil, fmt.Errorf("regress: mlp is not fitted")
	}
	if err := checkPredict(X, m.features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		pred, err := m.net.Forward(row)
		if err != nil {
			return nil, err
		}
		out[i] = pred
	}
	return out, nil
}

// Network exposes the trained dense network, used by the auxiliary-loss GAN
// variant which needs to backpropagate through the frozen regressor.
func (m *MLP) Network() *gan.Network { return m.net }
