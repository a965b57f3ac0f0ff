package gan

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"
)

// Config holds the WGAN-GP hyperparameters. Zero values are replaced with
// defaults by NewTrainer, mirroring the usual conventions for this training
// scheme (5 critic updates per generator update, penalty weight 10).
type Config struct {
	// DataDim is the width of one normalized row (features + targets).
	DataDim int

	// FeatureDim is the number of leading feature columns inside a row.
	// Required when AuxWeight > 0; otherwise informational.
	FeatureDim int

	// NoiseDim is the generator input size.
	NoiseDim int

	GenHidden    []int
	CriticHidden []int

	Epochs      int
	BatchSize   int
	CriticIters int // critic updates per generator update

	// GPWeight is the gradient-penalty coefficient (λ).
	GPWeight float64

	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	ClipNorm     float64

	// AuxWeight enables the auxiliary-loss variant: when > 0, a frozen
	// regressor network (Trainer.Aux) adds a SMAPE penalty between the
	// targets it predicts from generated features and the targets the
	// generator emitted. 0 disables the term.
	AuxWeight float64

	Seed int64
}

// Dataset is the minimal interface the trainer needs. Rows must already be
// normalized to [0,1] by the shared scaler.
type Dataset interface {
	Len() int
	Batch(indices []int) ([][]float64, error)
}

// SliceDataset adapts an in-memory normalized matrix to the Dataset
// interface.
type SliceDataset struct {
	Rows [][]float64
}

// Len implements Dataset.
func (s *SliceDataset) Len() int { return len(s.Rows) }

// Batch implements Dataset.
func (s *SliceDataset) Batch(indices []int) ([][]float64, error) {
	out := make([][]float64, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(s.Rows) {
			return nil, fmt.Errorf("gan: batch index %d out of range [0, %d)", idx, len(s.Rows))
		}
		out[i] = s.Rows[idx]
	}
	return out, nil
}

// Trainer owns the generator/critic pair and their optimizer states. The
// outer loop drives the two strictly in sequence: K critic steps, then one
// generator step, per real batch.
//
// There is deliberately no convergence check and no NaN/Inf guard: the loop
// runs for the configured epoch count and reports whatever came out, same as
// the experiments this pipeline reproduces.
type Trainer struct {
	Config Config

	Gen    *Network
	Critic *Network

	// Aux is the frozen regressor used by the auxiliary-loss variant. Callers
	// set it (already trained) before Train when Config.AuxWeight > 0. Its
	// input width must be FeatureDim and its output width DataDim-FeatureDim.
	Aux *Network

	genOpt    *adam
	criticOpt *adam
	rng       *rand.Rand
}

// NewTrainer validates the configuration, applies defaults and initializes
// both networks.
func NewTrainer(cfg Config) (*Trainer, error) {
	if cfg.DataDim <= 0 {
		return nil, fmt.Errorf("gan: DataDim must be positive, got %d", cfg.DataDim)
	}
	if cfg.NoiseDim == 0 {
		cfg.NoiseDim = 16
	}
	if len(cfg.GenHidden) == 0 {
		cfg.GenHidden = []int{64, 64}
	}
	if len(cfg.CriticHidden) == 0 {
		cfg.CriticHidden = []int{64, 64}
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 100
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	if cfg.CriticIters == 0 {
		cfg.CriticIters = 5
	}
	if cfg.GPWeight == 0 {
		cfg.GPWeight = 10
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 1e-4
	}
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.5
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.9
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-8
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.AuxWeight > 0 && (cfg.FeatureDim <= 0 || cfg.FeatureDim >= cfg.DataDim) {
		return nil, fmt.Errorf("gan: AuxWeight set but FeatureDim=%d is not inside (0, %d)", cfg.FeatureDim, cfg.DataDim)
	}

	genSizes := append(append([]int{cfg.NoiseDim}, cfg.GenHidden...), cfg.DataDim)
	criticSizes := append(append([]int{cfg.DataDim}, cfg.CriticHidden...), 1)

	gen, err := NewNetwork(genSizes, ActLeakyReLU, ActSigmoid, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("gan: generator: %w", err)
	}
	critic, err := NewNetwork(criticSizes, ActLeakyReLU, ActLinear, cfg.Seed+1)
	if err != nil {
		return nil, fmt.Errorf("gan: critic: %w", err)
	}

	return &Trainer{
		Config:    cfg,
		Gen:       gen,
		Critic:    critic,
		genOpt:    newAdam(gen, cfg.LearningRate, cfg.Beta1, cfg.Beta2, cfg.Epsilon, cfg.ClipNorm),
		criticOpt: newAdam(critic, cfg.LearningRate, cfg.Beta1, cfg.Beta2, cfg.Epsilon, cfg.ClipNorm),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Train runs the full WGAN-GP loop over ds for the configured epoch count.
func (t *Trainer) Train(ds Dataset) error {
	if ds == nil || ds.Len() == 0 {
		return fmt.Errorf("gan: dataset is empty")
	}
	if t.Config.AuxWeight > 0 {
		if t.Aux == nil {
			return fmt.Errorf("gan: AuxWeight > 0 but no Aux network set")
		}
		targetDim := t.Config.DataDim - t.Config.FeatureDim
		if t.Aux.InputDim() != t.Config.FeatureDim || t.Aux.OutputDim() != targetDim {
			return fmt.Errorf("gan: Aux network is %dx%d, want %dx%d",
				t.Aux.InputDim(), t.Aux.OutputDim(), t.Config.FeatureDim, targetDim)
		}
	}

	n := ds.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	for epoch := 0; epoch < t.Config.Epochs; epoch++ {
		t.rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

		var criticLoss, genLoss float64
		batches := 0
		for start := 0; start < n; start += t.Config.BatchSize {
			end := start + t.Config.BatchSize
			if end > n {
				end = n
			}
			real, err := ds.Batch(indices[start:end])
			if err != nil {
				return fmt.Errorf("gan: read batch: %w", err)
			}
			if len(real) == 0 {
				continue
			}
			for i, row := range real {
				if len(row) != t.Config.DataDim {
					return fmt.Errorf("gan: row %d has width %d, want %d", i, len(row), t.Config.DataDim)
				}
			}

			var cl float64
			for k := 0; k < t.Config.CriticIters; k++ {
				cl, err = t.criticStep(real)
				if err != nil {
					return err
				}
			}
			gl, err := t.generatorStep(len(real))
			if err != nil {
				return err
			}
			criticLoss += cl
			genLoss += gl
			batches++
		}
		if batches > 0 && (epoch+1)%10 == 0 {
			log.Printf("[gan] epoch %d/%d critic=%.4f gen=%.4f",
				epoch+1, t.Config.Epochs, criticLoss/float64(batches), genLoss/float64(batches))
		}
	}
	return nil
}

// criticStep performs one critic update on a real batch: Wasserstein
// estimate plus the gradient penalty at random real/fake interpolates.
func (t *Trainer) criticStep(real [][]float64) (float64, error) {
	B := len(real)
	inv := 1.0 / float64(B)
	g := t.Critic.newGradients()
	loss := 0.0

	fakes := make([][]float64, B)
	for i := 0; i < B; i++ {
		fake, err := t.generate()
		if err != nil {
			return 0, err
		}
		fakes[i] = fake
	}

	for i := 0; i < B; i++ {
		// Real rows push the critic score up: loss term -D(x_r).
		st, err := t.Critic.forward(real[i])
		if err != nil {
			return 0, err
		}
		loss -= st.output()[0] * inv
		deltas, _ := t.Critic.backward(st, []float64{-inv})
		t.Critic.accumulate(st, deltas, g)

		// Fake rows push it down: loss term +D(x_f).
		st, err = t.Critic.forward(fakes[i])
		if err != nil {
			return 0, err
		}
		loss += st.output()[0] * inv
		deltas, _ = t.Critic.backward(st, []float64{inv})
		t.Critic.accumulate(st, deltas, g)

		// Gradient penalty at x̂ = ε·x_r + (1-ε)·x_f.
		eps := t.rng.Float64()
		xh := make([]float64, t.Config.DataDim)
		for j := range xh {
			xh[j] = eps*real[i][j] + (1-eps)*fakes[i][j]
		}
		st, err = t.Critic.forward(xh)
		if err != nil {
			return 0, err
		}
		deltas, dIn := t.Critic.backward(st, []float64{1})
		norm := l2norm(dIn)
		if norm > 0 {
			loss += t.Config.GPWeight * (norm - 1) * (norm - 1) * inv
			c := 2 * t.Config.GPWeight * (norm - 1) / (norm * float64(B))
			t.Critic.penaltyAccumulate(st, deltas, dIn, c, g)
		}
	}

	t.criticOpt.Step(t.Critic, g)
	return loss, nil
}

// generatorStep performs one generator update on B fresh noise draws.
func (t *Trainer) generatorStep(B int) (float64, error) {
	inv := 1.0 / float64(B)
	g := t.Gen.newGradients()
	loss := 0.0

	for i := 0; i < B; i++ {
		z := t.sampleNoise()
		gst, err := t.Gen.forward(z)
		if err != nil {
			return 0, err
		}
		fake := gst.output()

		cst, err := t.Critic.forward(fake)
		if err != nil {
			return 0, err
		}
		loss -= cst.output()[0] * inv
		// Only the input gradient of the critic matters here; its parameters
		// are frozen for this step.
		_, dFake := t.Critic.backward(cst, []float64{-inv})

		if t.Config.AuxWeight > 0 {
			p, dAux, err := t.auxPenalty(fake)
			if err != nil {
				return 0, err
			}
			loss += t.Config.AuxWeight * p * inv
			for j := range dFake {
				dFake[j] += t.Config.AuxWeight * dAux[j] * inv
			}
		}

		deltas, _ := t.Gen.backward(gst, dFake)
		t.Gen.accumulate(gst, deltas, g)
	}

	t.genOpt.Step(t.Gen, g)
	return loss, nil
}

// auxPenalty scores one generated row with the frozen regressor: SMAPE
// between the targets the regressor predicts from the generated features and
// the targets the generator emitted. Returns the penalty and its gradient
// with respect to the full generated row.
func (t *Trainer) auxPenalty(fake []float64) (float64, []float64, error) {
	fd := t.Config.FeatureDim
	feat := fake[:fd]
	targ := fake[fd:]

	ast, err := t.Aux.forward(feat)
	if err != nil {
		return 0, nil, err
	}
	pred := ast.output()

	const eps = 1e-8
	scale := 100.0 / float64(len(targ))
	penalty := 0.0
	dPred := make([]float64, len(pred))
	dTarg := make([]float64, len(targ))
	for j := range targ {
		a, b := pred[j], targ[j]
		num := 2 * math.Abs(b-a)
		den := math.Abs(a) + math.Abs(b) + eps
		penalty += scale * num / den
		dTarg[j] = scale * (2*sign(b-a)*den - num*sign(b)) / (den * den)
		dPred[j] = scale * (2*sign(a-b)*den - num*sign(a)) / (den * den)
	}

	_, dFeat := t.Aux.backward(ast, dPred)

	grad := make([]float64, len(fake))
	copy(grad[:fd], dFeat)
	copy(grad[fd:], dTarg)
	return penalty, grad, nil
}

// generate draws one noise vector and runs it through the generator.
func (t *Trainer) generate() ([]float64, error) {
	return t.Gen.Forward(t.sampleNoise())
}

// Sample draws n rows from the trained generator. Rows are in normalized
// [0,1] space; callers denormalize through the shared scaler.
func (t *Trainer) Sample(n int) ([][]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("gan: sample count must be positive, got %d", n)
	}
	out := make([][]float64, n)
	for i := range out {
		row, err := t.generate()
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}

func (t *Trainer) sampleNoise() []float64 {
	z := make([]float64, t.Config.NoiseDim)
	for i := range z {
		z[i] = t.rng.NormFloat64()
	}
	return z
}

// TrainMSE fits net to (X, Y) by minibatch Adam on the mean squared error.
// It is used for the auxiliary regressor and for the dense-network baseline;
// inputs are expected in the same normalized space the GAN works in.
func TrainMSE(net *Network, X, Y [][]float64, epochs, batchSize int, lr float64, seed int64) error {
	if len(X) == 0 || len(X) != len(Y) {
		return fmt.Errorf("gan: TrainMSE needs matching non-empty X and Y, got %d and %d rows", len(X), len(Y))
	}
	if epochs <= 0 {
		epochs = 200
	}
	if batchSize <= 0 {
		batchSize = 16
	}
	if lr <= 0 {
		lr = 1e-3
	}
	opt := newAdam(net, lr, 0.9, 0.999, 1e-8, 0)
	rng := rand.New(rand.NewSource(seed))

	n := len(X)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
		for start := 0; start < n; start += batchSize {
			end := start + batchSize
			if end > n {
				end = n
			}
			B := float64(end - start)
			g := net.newGradients()
			for _, idx := range indices[start:end] {
				st, err := net.forward(X[idx])
				if err != nil {
					return err
				}
				pred := st.output()
				if len(pred) != len(Y[idx]) {
					return fmt.Errorf("gan: TrainMSE target row %d has width %d, network outputs %d", idx, len(Y[idx]), len(pred))
				}
				dOut := make([]float64, len(pred))
				for j := range pred {
					dOut[j] = 2 * (pred[j] - Y[idx][j]) / (float64(len(pred)) * B)
				}
				deltas, _ := net.backward(st, dOut)
				net.accumulate(st, deltas, g)
			}
			opt.Step(net, g)
		}
	}
	return nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func l2norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
