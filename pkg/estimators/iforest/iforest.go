// Package iforest implements the Isolation Forest algorithm as a one-class
// boundary estimator.
package iforest

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/anomgrid/fraudeval/pkg/estimators"
)

// Forest isolates anomalies with an ensemble of randomized trees: points
// that isolate in few splits score high. The decision boundary is placed so
// that roughly the contamination fraction of the training data scores
// outside it.
type Forest struct {
	nTrees        int
	sampleSize    int
	contamination float64
	maxDepth      int
	workers       int
	seed          int64

	trees     []*tree
	threshold float64
	avgPath   float64
	nFeatures int
	trained   bool
}

type tree struct {
	root *node
}

type node struct {
	splitFeature int
	splitValue   float64
	left         *node
	right        *node
	size         int
}

// Option configures a Forest.
type Option func(*Forest)

// WithTrees sets the ensemble size.
func WithTrees(n int) Option {
	return func(f *Forest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size each tree is grown from.
func WithSampleSize(n int) Option {
	return func(f *Forest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected anomaly fraction in training data.
func WithContamination(c float64) Option {
	return func(f *Forest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *Forest) {
		f.seed = seed
	}
}

// WithWorkers sets how many goroutines grow trees concurrently.
func WithWorkers(n int) Option {
	return func(f *Forest) {
		f.workers = n
	}
}

// New creates a Forest with 100 trees, 256-row subsamples and 10%
// contamination.
func New(opts ...Option) *Forest {
	f := &Forest{
		nTrees:        100,
		sampleSize:    256,
		contamination: 0.1,
		workers:       1,
		seed:          42,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))
	return f
}

// SetWorkers implements estimators.Parallel.
func (f *Forest) SetWorkers(n int) {
	if n > 0 {
		f.workers = n
	}
}

// Fit grows the ensemble. Trees are grown concurrently, each from its own
// seeded source, so the fitted model is identical for a given seed
// regardless of worker count.
func (f *Forest) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("empty training data")
	}
	f.nFeatures = len(data[0])
	for _, row := range data {
		if len(row) != f.nFeatures {
			return errors.New("ragged feature matrix")
		}
	}

	sampleSize := f.sampleSize
	if sampleSize > len(data) {
		sampleSize = len(data)
	}

	// Per-tree seeds are drawn up front from the root seed; the parallel
	// build must not share one rand.Rand.
	seeder := rand.New(rand.NewSource(f.seed))
	seeds := make([]int64, f.nTrees)
	for i := range seeds {
		seeds[i] = seeder.Int63()
	}

	f.trees = make([]*tree, f.nTrees)
	var g errgroup.Group
	g.SetLimit(f.workers)
	for i := 0; i < f.nTrees; i++ {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[i]))
			sample := make([][]float64, sampleSize)
			for j, idx := range rng.Perm(len(data))[:sampleSize] {
				sample[j] = data[idx]
			}
			f.trees[i] = &tree{root: f.grow(sample, rng, 0)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.avgPath = averagePathLength(float64(sampleSize))
	f.trained = true

	scores := f.scores(data)
	f.threshold = percentile(scores, 100*(1-f.contamination))
	return nil
}

func (f *Forest) grow(data [][]float64, rng *rand.Rand, depth int) *node {
	n := len(data)
	if depth >= f.maxDepth || n <= 1 {
		return &node{size: n}
	}

	feature := rng.Intn(f.nFeatures)
	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}
	if minVal == maxVal {
		return &node{size: n}
	}

	splitValue := minVal + rng.Float64()*(maxVal-minVal)
	var left, right [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &node{
		splitFeature: feature,
		splitValue:   splitValue,
		left:         f.grow(left, rng, depth+1),
		right:        f.grow(right, rng, depth+1),
	}
}

// Scores returns the raw anomaly score in [0, 1] for each row; higher means
// more anomalous.
func (f *Forest) Scores(data [][]float64) ([]float64, error) {
	if !f.trained {
		return nil, errors.New("model not trained")
	}
	return f.scores(data), nil
}

func (f *Forest) scores(data [][]float64) []float64 {
	out := make([]float64, len(data))
	for i, row := range data {
		var total float64
		for _, t := range f.trees {
			total += pathLength(row, t.root, 0)
		}
		avg := total / float64(len(f.trees))
		out[i] = math.Pow(2, -avg/f.avgPath)
	}
	return out
}

// Predict returns estimators.Inlier or estimators.Outlier per row, using
// the contamination-derived threshold.
func (f *Forest) Predict(data [][]float64) ([]int, error) {
	scores, err := f.Scores(data)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(scores))
	for i, s := range scores {
		if s > f.threshold {
			out[i] = estimators.Outlier
		} else {
			out[i] = estimators.Inlier
		}
	}
	return out, nil
}

// Threshold returns the fitted anomaly-score threshold.
func (f *Forest) Threshold() float64 {
	return f.threshold
}

func pathLength(sample []float64, n *node, depth int) float64 {
	if n.left == nil && n.right == nil {
		return float64(depth) + averagePathLength(float64(n.size))
	}
	if sample[n.splitFeature] < n.splitValue {
		return pathLength(sample, n.left, depth+1)
	}
	return pathLength(sample, n.right, depth+1)
}

// averagePathLength is c(n), the mean path length of unsuccessful BST
// search, used to normalize isolation depth.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}

func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return sorted[int(float64(len(sorted)-1)*p/100)]
}
