package regress

import (
	"math/rand"
	"sort"
	"time"
)

// Tree is a CART-style regression tree with vector-valued leaves: every leaf
// stores the mean target row of the samples that reached it, so one tree
// predicts all compound concentrations at once.
type Tree struct {
	MaxDepth        int // 0 means no depth limit
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 means consider all features at each split
	Seed            int64

	root     *treeNode
	features int
	targets  int
}

type treeNode struct {
	isLeaf    bool
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	mean      []float64
	n         int
}

// NewTree returns a tree with the usual defaults.
func NewTree() *Tree {
	return &Tree{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            time.Now().UnixNano(),
	}
}

// Fit implements Regressor.
func (t *Tree) Fit(X, Y [][]float64) error {
	features, targets, err := checkTraining(X, Y)
	if err != nil {
		return err
	}
	t.features = features
	t.targets = targets

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(t.Seed))
	t.root = t.build(X, Y, idx, 0, rng)
	return nil
}

// Predict implements Regressor.
func (t *Tree) Predict(X [][]float64) ([][]float64, error) {
	if t.root == nil {
		return nil, checkPredict(X, 0)
	}
	if err := checkPredict(X, t.features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		node := t.root
		for !node.isLeaf {
			if row[node.feature] <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		out[i] = append([]float64(nil), node.mean...)
	}
	return out, nil
}

func (t *Tree) build(X, Y [][]float64, idx []int, depth int, rng *rand.Rand) *treeNode {
	node := &treeNode{n: len(idx), mean: meanRows(Y, idx, t.targets)}

	if len(idx) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		node.isLeaf = true
		return node
	}

	parentSSE := sseAround(Y, idx, node.mean)
	if parentSSE == 0 {
		node.isLeaf = true
		return node
	}

	feats := make([]int, t.features)
	for j := range feats {
		feats[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < t.features {
		rng.Shuffle(len(feats), func(i, j int) { feats[i], feats[j] = feats[j], feats[i] })
		feats = feats[:t.MaxFeatures]
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	var bestLeft, bestRight []int

	for _, f := range feats {
		order := append([]int(nil), idx...)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		// Prefix sums per target column let every threshold be scored in
		// O(targets) instead of re-summing the partitions.
		n := len(order)
		sum := make([]float64, t.targets)
		sumSq := make([]float64, t.targets)
		prefSum := make([][]float64, n+1)
		prefSumSq := make([][]float64, n+1)
		prefSum[0] = make([]float64, t.targets)
		prefSumSq[0] = make([]float64, t.targets)
		for i, ii := range order {
			for j := 0; j < t.targets; j++ {
				sum[j] += Y[ii][j]
				sumSq[j] += Y[ii][j] * Y[ii][j]
			}
			prefSum[i+1] = append([]float64(nil), sum...)
			prefSumSq[i+1] = append([]float64(nil), sumSq...)
		}

		for s := 1; s < n; s++ {
			if X[order[s]][f] == X[order[s-1]][f] {
				continue
			}
			if s < t.MinSamplesLeaf || n-s < t.MinSamplesLeaf {
				continue
			}
			left := sseFromSums(prefSum[s], prefSumSq[s], s)
			rightSum := make([]float64, t.targets)
			rightSq := make([]float64, t.targets)
			for j := 0; j < t.targets; j++ {
				rightSum[j] = prefSum[n][j] - prefSum[s][j]
				rightSq[j] = prefSumSq[n][j] - prefSumSq[s][j]
			}
			right := sseFromSums(rightSum, rightSq, n-s)
			gain := parentSSE - left - right
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (X[order[s-1]][f] + X[order[s]][f]) / 2
				bestLeft = append([]int(nil), order[:s]...)
				bestRight = append([]int(nil), order[s:]...)
			}
		}
	}

	if bestFeature == -1 {
		node.isLeaf = true
		return node
	}

	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = t.build(X, Y, bestLeft, depth+1, rng)
	node.right = t.build(X, Y, bestRight, depth+1, rng)
	return node
}

func meanRows(Y [][]float64, idx []int, targets int) []float64 {
	mean := make([]float64, targets)
	for _, ii := range idx {
		for j := 0; j < targets; j++ {
			mean[j] += Y[ii][j]
		}
	}
	for j := range mean {
		mean[j] /= float64(len(idx))
	}
	return mean
}

// sseAround sums squared deviations from mean over all target columns.
func sseAround(Y [][]float64, idx []int, mean []float64) float64 {
	sse := 0.0
	for _, ii := range idx {
		for j := range mean {
			d := Y[ii][j] - mean[j]
			sse += d * d
		}
	}
	return sse
}

// sseFromSums computes Σ_j (sumSq_j - sum_j²/n) for a partition of size n.
func sseFromSums(sum, sumSq []float64, n int) float64 {
	sse := 0.0
	fn := float64(n)
	for j := range sum {
		sse += sumSq[j] - sum[j]*sum[j]/fn
	}
	return sse
}
