package gan

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// adam keeps per-parameter first and second moment estimates for one network.
// Critic and generator each own an independent instance; the training loop
// drives them strictly in sequence, so no locking is needed.
type adam struct {
	lr       float64
	beta1    float64
	beta2    float64
	epsilon  float64
	clipNorm float64

	step int
	mW   []*mat.Dense
	vW   []*mat.Dense
	mB   []*mat.VecDense
	vB   []*mat.VecDense
}

func newAdam(n *Network, lr, beta1, beta2, epsilon, clipNorm float64) *adam {
	a := &adam{
		lr:       lr,
		beta1:    beta1,
		beta2:    beta2,
		epsilon:  epsilon,
		clipNorm: clipNorm,
		mW:       make([]*mat.Dense, len(n.Weights)),
		vW:       make([]*mat.Dense, len(n.Weights)),
		mB:       make([]*mat.VecDense, len(n.Biases)),
		vB:       make([]*mat.VecDense, len(n.Biases)),
	}
	for l := range n.Weights {
		r, c := n.Weights[l].Dims()
		a.mW[l] = mat.NewDense(r, c, nil)
		a.vW[l] = mat.NewDense(r, c, nil)
		a.mB[l] = mat.NewVecDense(r, nil)
		a.vB[l] = mat.NewVecDense(r, nil)
	}
	return a
}

// Step applies one Adam update to the network from accumulated gradients.
// When clipNorm > 0 the full gradient is first rescaled so its global L2 norm
// does not exceed clipNorm.
func (a *adam) Step(n *Network, g *gradients) {
	if a.clipNorm > 0 {
		sumSq := 0.0
		for l := range g.W {
			for _, v := range g.W[l].RawMatrix().Data {
				sumSq += v * v
			}
			for _, v := range g.B[l].RawVector().Data {
				sumSq += v * v
			}
		}
		norm := math.Sqrt(sumSq)
		if norm > a.clipNorm {
			scale := a.clipNorm / norm
			for l := range g.W {
				scaleSlice(g.W[l].RawMatrix().Data, scale)
				scaleSlice(g.B[l].RawVector().Data, scale)
			}
		}
	}

	a.step++
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))

	for l := range n.Weights {
		a.update(n.Weights[l].RawMatrix().Data, g.W[l].RawMatrix().Data,
			a.mW[l].RawMatrix().Data, a.vW[l].RawMatrix().Data, c1, c2)
		a.update(n.Biases[l].RawVector().Data, g.B[l].RawVector().Data,
			a.mB[l].RawVector().Data, a.vB[l].RawVector().Data, c1, c2)
	}
}

func (a *adam) update(w, g, m, v []float64, c1, c2 float64) {
	for i := range w {
		m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
		v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
		mHat := m[i] / c1
		vHat := v[i] / c2
		w[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.epsilon)
	}
}

func scaleSlice(s []float64, scale float64) {
	for i := range s {
		s[i] *= scale
	}
}
