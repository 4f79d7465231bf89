// Package dbscan implements density-based clustering with an optional
// minimum-cluster-size pass.
package dbscan

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/anomgrid/fraudeval/pkg/estimators"
)

// Clusterer groups rows into dense regions. A row with at least minSamples
// neighbors within eps (itself included) is a core point; clusters grow
// from core points, and rows reachable from none are labeled
// estimators.Noise. Clusters that end up smaller than minClusterSize are
// dissolved back into noise.
type Clusterer struct {
	eps            float64
	minSamples     int
	minClusterSize int
	workers        int
}

// Option configures a Clusterer.
type Option func(*Clusterer)

// WithEpsilon sets the neighborhood radius.
func WithEpsilon(eps float64) Option {
	return func(c *Clusterer) {
		c.eps = eps
	}
}

// WithMinSamples sets the core-point density threshold.
func WithMinSamples(n int) Option {
	return func(c *Clusterer) {
		c.minSamples = n
	}
}

// WithMinClusterSize dissolves clusters smaller than n into noise. Zero
// disables the pass.
func WithMinClusterSize(n int) Option {
	return func(c *Clusterer) {
		c.minClusterSize = n
	}
}

// WithWorkers sets how many goroutines run neighborhood queries.
func WithWorkers(n int) Option {
	return func(c *Clusterer) {
		c.workers = n
	}
}

// New creates a Clusterer.
func New(opts ...Option) (*Clusterer, error) {
	c := &Clusterer{
		eps:        0.5,
		minSamples: 5,
		workers:    1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.eps <= 0 {
		return nil, fmt.Errorf("epsilon must be positive, got %g", c.eps)
	}
	if c.minSamples < 1 {
		return nil, fmt.Errorf("min samples must be at least 1, got %d", c.minSamples)
	}
	if c.minClusterSize < 0 {
		return nil, fmt.Errorf("negative min cluster size %d", c.minClusterSize)
	}
	return c, nil
}

// SetWorkers implements estimators.Parallel.
func (c *Clusterer) SetWorkers(n int) {
	if n > 0 {
		c.workers = n
	}
}

// FitPredict clusters data and returns one label per row in input order;
// estimators.Noise marks unassigned rows. Cluster ids are assigned in
// discovery order starting at 0, so output is deterministic for a given
// input regardless of worker count.
func (c *Clusterer) FitPredict(data [][]float64) ([]int, error) {
	if len(data) == 0 {
		return nil, errors.New("empty data")
	}
	width := len(data[0])
	for i, row := range data {
		if len(row) != width {
			return nil, fmt.Errorf("ragged row %d: got %d features, want %d", i, len(row), width)
		}
	}

	neighbors, err := c.neighborhoods(data)
	if err != nil {
		return nil, err
	}

	const unvisited = -2
	labels := make([]int, len(data))
	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := range data {
		if labels[i] != unvisited {
			continue
		}
		if len(neighbors[i]) < c.minSamples {
			labels[i] = estimators.Noise
			continue
		}

		cluster := next
		next++
		labels[i] = cluster

		// Seed expansion over density-reachable rows.
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if labels[j] == estimators.Noise {
				labels[j] = cluster // border point
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			if len(neighbors[j]) >= c.minSamples {
				queue = append(queue, neighbors[j]...)
			}
		}
	}

	if c.minClusterSize > 0 {
		dissolveSmall(labels, c.minClusterSize)
	}
	return labels, nil
}

// neighborhoods computes, for each row, the indices within eps. Queries are
// independent and fan out over the worker pool.
func (c *Clusterer) neighborhoods(data [][]float64) ([][]int, error) {
	out := make([][]int, len(data))
	epsSq := c.eps * c.eps

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := range data {
		i := i
		g.Go(func() error {
			var hood []int
			for j := range data {
				var sq float64
				for k := range data[i] {
					d := data[i][k] - data[j][k]
					sq += d * d
				}
				if sq <= epsSq {
					hood = append(hood, j)
				}
			}
			out[i] = hood
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func dissolveSmall(labels []int, minSize int) {
	sizes := map[int]int{}
	for _, l := range labels {
		if l != estimators.Noise {
			sizes[l]++
		}
	}
	for i, l := range labels {
		if l != estimators.Noise && sizes[l] < minSize {
			labels[i] = estimators.Noise
		}
	}
}
