// Package gan trains the generator/critic pair used to synthesize kinetics
// rows. The networks are small fully connected stacks implemented directly on
// gonum matrices with hand-written backpropagation; there is no external
// deep-learning runtime involved.
package gan

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Activation selects the nonlinearity of a layer.
type Activation int

const (
	// ActLinear applies no nonlinearity (critic output).
	ActLinear Activation = iota
	// ActLeakyReLU is the hidden activation for both networks.
	ActLeakyReLU
	// ActSigmoid squashes into (0,1) (generator output, normalized rows).
	ActSigmoid
)

// leakySlope is the negative-side slope of the leaky ReLU.
const leakySlope = 0.2

// Network is a fully connected network. Weights[l] has shape out x in for
// layer l; hidden layers use Hidden, the last layer uses Output.
type Network struct {
	Sizes   []int
	Hidden  Activation
	Output  Activation
	Weights []*mat.Dense
	Biases  []*mat.VecDense
}

// NewNetwork builds a network with Xavier-uniform initial weights and zero
// biases. sizes lists input, hidden and output dimensions in order and must
// have at least two entries.
func NewNetwork(sizes []int, hidden, output Activation, seed int64) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("gan: network needs at least input and output sizes, got %v", sizes)
	}
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("gan: non-positive layer size in %v", sizes)
		}
	}
	rng := rand.New(rand.NewSource(seed))

	n := &Network{
		Sizes:  append([]int(nil), sizes...),
		Hidden: hidden,
		Output: output,
	}
	L := len(sizes) - 1
	n.Weights = make([]*mat.Dense, L)
	n.Biases = make([]*mat.VecDense, L)
	for l := 0; l < L; l++ {
		in, out := sizes[l], sizes[l+1]
		limit := math.Sqrt(6.0 / float64(in+out))
		data := make([]float64, in*out)
		for i := range data {
			data[i] = (rng.Float64()*2 - 1) * limit
		}
		n.Weights[l] = mat.NewDense(out, in, data)
		n.Biases[l] = mat.NewVecDense(out, nil)
	}
	return n, nil
}

// InputDim returns the expected input width.
func (n *Network) InputDim() int { return n.Sizes[0] }

// OutputDim returns the output width.
func (n *Network) OutputDim() int { return n.Sizes[len(n.Sizes)-1] }

// forwardState caches pre-activations and activations of one forward pass.
// acts[0] is the input; acts[L] is the network output.
type forwardState struct {
	pre  []*mat.VecDense
	acts []*mat.VecDense
}

func (st *forwardState) output() []float64 {
	out := st.acts[len(st.acts)-1]
	res := make([]float64, out.Len())
	copy(res, out.RawVector().Data)
	return res
}

func (n *Network) activate(l int) Activation {
	if l == len(n.Weights)-1 {
		return n.Output
	}
	return n.Hidden
}

func applyActivation(a Activation, z, out *mat.VecDense) {
	for i := 0; i < z.Len(); i++ {
		v := z.AtVec(i)
		switch a {
		case ActLeakyReLU:
			if v < 0 {
				v *= leakySlope
			}
		case ActSigmoid:
			v = 1.0 / (1.0 + math.Exp(-v))
		}
		out.SetVec(i, v)
	}
}

// activationDeriv returns dφ/dz at pre-activation z (with act the resulting
// activation value, which makes the sigmoid derivative cheap).
func activationDeriv(a Activation, z, act float64) float64 {
	switch a {
	case ActLeakyReLU:
		if z > 0 {
			return 1
		}
		return leakySlope
	case ActSigmoid:
		return act * (1 - act)
	default:
		return 1
	}
}

// forward runs one input through the network, caching all intermediates.
func (n *Network) forward(x []float64) (*forwardState, error) {
	if len(x) != n.InputDim() {
		return nil, fmt.Errorf("gan: input dim %d, network expects %d", len(x), n.InputDim())
	}
	L := len(n.Weights)
	st := &forwardState{
		pre:  make([]*mat.VecDense, L),
		acts: make([]*mat.VecDense, L+1),
	}
	st.acts[0] = mat.NewVecDense(len(x), append([]float64(nil), x...))
	for l := 0; l < L; l++ {
		out := n.Biases[l].Len()
		z := mat.NewVecDense(out, nil)
		z.MulVec(n.Weights[l], st.acts[l])
		z.AddVec(z, n.Biases[l])
		st.pre[l] = z
		a := mat.NewVecDense(out, nil)
		applyActivation(n.activate(l), z, a)
		st.acts[l+1] = a
	}
	return st, nil
}

// Forward returns the network output for a single input vector.
func (n *Network) Forward(x []float64) ([]float64, error) {
	st, err := n.forward(x)
	if err != nil {
		return nil, err
	}
	return st.output(), nil
}

// backward propagates dOut (the loss gradient at the network output) back
// through the cached forward pass. It returns the per-layer pre-activation
// gradients and the gradient with respect to the input. It does not touch any
// parameter gradients; use accumulate for that.
func (n *Network) backward(st *forwardState, dOut []float64) (deltas []*mat.VecDense, dInput []float64) {
	L := len(n.Weights)
	deltas = make([]*mat.VecDense, L)

	last := mat.NewVecDense(len(dOut), nil)
	for i := 0; i < len(dOut); i++ {
		d := activationDeriv(n.Output, st.pre[L-1].AtVec(i), st.acts[L].AtVec(i))
		last.SetVec(i, dOut[i]*d)
	}
	deltas[L-1] = last

	for l := L - 1; l > 0; l-- {
		prev := mat.NewVecDense(n.Biases[l-1].Len(), nil)
		prev.MulVec(n.Weights[l].T(), deltas[l])
		for i := 0; i < prev.Len(); i++ {
			d := activationDeriv(n.Hidden, st.pre[l-1].AtVec(i), st.acts[l].AtVec(i))
			prev.SetVec(i, prev.AtVec(i)*d)
		}
		deltas[l-1] = prev
	}

	din := mat.NewVecDense(n.InputDim(), nil)
	din.MulVec(n.Weights[0].T(), deltas[0])
	dInput = append([]float64(nil), din.RawVector().Data...)
	return deltas, dInput
}

// gradients mirrors the parameter shapes of a network.
type gradients struct {
	W []*mat.Dense
	B []*mat.VecDense
}

func (n *Network) newGradients() *gradients {
	g := &gradients{
		W: make([]*mat.Dense, len(n.Weights)),
		B: make([]*mat.VecDense, len(n.Biases)),
	}
	for l := range n.Weights {
		r, c := n.Weights[l].Dims()
		g.W[l] = mat.NewDense(r, c, nil)
		g.B[l] = mat.NewVecDense(r, nil)
	}
	return g
}

// accumulate adds the parameter gradients implied by deltas into g.
func (n *Network) accumulate(st *forwardState, deltas []*mat.VecDense, g *gradients) {
	for l := range n.Weights {
		g.W[l].RankOne(g.W[l], 1.0, deltas[l], st.acts[l])
		g.B[l].AddScaledVec(g.B[l], 1.0, deltas[l])
	}
}

// penaltyAccumulate adds c * d(u · ∇_x y)/dW into g, holding the activation
// masks of st fixed. For piecewise-linear activations this is the exact
// double-backprop rule almost everywhere, which is what the gradient penalty
// needs: the tangent vector u is pushed forward through the masked linear
// network while the cached deltas play the role of the backward factors. Bias
// gradients of this term are identically zero under fixed masks.
func (n *Network) penaltyAccumulate(st *forwardState, deltas []*mat.VecDense, u []float64, c float64, g *gradients) {
	p := mat.NewVecDense(len(u), append([]float64(nil), u...))
	L := len(n.Weights)
	for l := 0; l < L; l++ {
		g.W[l].RankOne(g.W[l], c, deltas[l], p)
		if l == L-1 {
			break
		}
		r := mat.NewVecDense(n.Biases[l].Len(), nil)
		r.MulVec(n.Weights[l], p)
		for i := 0; i < r.Len(); i++ {
			d := activationDeriv(n.Hidden, st.pre[l].AtVec(i), st.acts[l+1].AtVec(i))
			r.SetVec(i, r.AtVec(i)*d)
		}
		p = r
	}
}

// InputGradient returns ∇_x of the scalar network output at x. It is only
// valid for networks with a single output (the critic).
func (n *Network) InputGradient(x []float64) ([]float64, error) {
	if n.OutputDim() != 1 {
		return nil, fmt.Errorf("gan: InputGradient requires a scalar output, got %d", n.OutputDim())
	}
	st, err := n.forward(x)
	if err != nil {
		return nil, err
	}
	_, dIn := n.backward(st, []float64{1})
	return dIn, nil
}
