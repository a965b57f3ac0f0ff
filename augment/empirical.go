package augment

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Noofbiz/synthKin/datasets"
	"github.com/Noofbiz/synthKin/scale"
)

// Empirical is a non-adversarial baseline generator: it draws a random real
// anchor row, finds its K nearest neighbors in normalized feature space,
// samples one neighbor with probability proportional to inverse distance,
// blends the anchor and neighbor and adds Gaussian jitter. Output rows live in
// the same normalized [0,1] space the GAN emits, so the two are
// interchangeable behind the Generator interface.
type Empirical struct {
	K      int
	Jitter float64
	Seed   int64

	rows     [][]float64 // normalized real rows
	features int
	rng      *rand.Rand
}

// NewEmpirical normalizes the real table through the fitted scaler and
// prepares the sampler. k must be at least 1 and smaller than the table.
func NewEmpirical(real *datasets.Table, sc *scale.MinMaxScaler, k int, jitter float64, seed int64) (*Empirical, error) {
	if real.Len() < 2 {
		return nil, fmt.Errorf("augment: empirical sampler needs at least 2 rows, got %d", real.Len())
	}
	if k < 1 || k >= real.Len() {
		return nil, fmt.Errorf("augment: k must be in [1, %d), got %d", real.Len(), k)
	}
	if jitter < 0 {
		return nil, fmt.Errorf("augment: jitter must be non-negative, got %v", jitter)
	}
	rows, err := sc.Transform(real.Joined())
	if err != nil {
		return nil, fmt.Errorf("augment: normalize real rows: %w", err)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Empirical{
		K:        k,
		Jitter:   jitter,
		Seed:     seed,
		rows:     rows,
		features: len(real.FeatureCols),
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Sample implements Generator. Rows are produced by a worker pool; seeds are
// drawn serially up front so a fixed Seed reproduces the same output.
func (e *Empirical) Sample(n int) ([][]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("augment: sample count must be positive, got %d", n)
	}

	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = e.rng.Int63()
	}

	out := make([][]float64, n)
	jobs := make(chan int, n)
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				rng := rand.New(rand.NewSource(seeds[i]))
				out[i] = e.sampleOne(rng)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out, nil
}

func (e *Empirical) sampleOne(rng *rand.Rand) []float64 {
	anchor := e.rows[rng.Intn(len(e.rows))]
	neighbors := e.nearest(anchor)

	// Inverse-distance weighted draw; closer neighbors are more likely.
	const eps = 1e-6
	total := 0.0
	weights := make([]float64, len(neighbors))
	for i, nb := range neighbors {
		w := 1.0 / (nb.distance + eps)
		weights[i] = w
		total += w
	}
	target := rng.Float64() * total
	acc := 0.0
	choice := 0
	for i, w := range weights {
		acc += w
		if target <= acc {
			choice = i
			break
		}
	}
	chosen := e.rows[neighbors[choice].idx]

	// Blend anchor and neighbor, then jitter and clamp into [0,1].
	mix := rng.Float64()
	row := make([]float64, len(anchor))
	for j := range row {
		v := mix*anchor[j] + (1-mix)*chosen[j] + rng.NormFloat64()*e.Jitter
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		row[j] = v
	}
	return row
}

type neighborRef struct {
	idx      int
	distance float64
}

// nearest returns the K closest rows to anchor by Euclidean distance over the
// feature columns, excluding exact self-matches at distance zero when
// possible.
func (e *Empirical) nearest(anchor []float64) []neighborRef {
	cands := make([]neighborRef, 0, len(e.rows))
	for i, row := range e.rows {
		sum := 0.0
		for j := 0; j < e.features; j++ {
			d := row[j] - anchor[j]
			sum += d * d
		}
		cands = append(cands, neighborRef{idx: i, distance: math.Sqrt(sum)})
	}
	sort.Slice(cands, func(a, b int) bool { return cands[a].distance < cands[b].distance })
	if cands[0].distance == 0 && len(cands) > e.K {
		cands = cands[1:]
	}
	return cands[:e.K]
}
