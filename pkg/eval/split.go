package eval

import (
	"math/rand"
)

// Partitioner produces the semi-supervised split one-class learning needs:
// training data contains only the normal class, while the test set mixes a
// held-out sample of normal rows with every anomalous row.
type Partitioner struct {
	holdout float64
	seed    int64
}

// PartitionerOption configures a Partitioner.
type PartitionerOption func(*Partitioner)

// WithHoldout sets the fraction of normal rows withheld from training and
// moved to the test set.
func WithHoldout(fraction float64) PartitionerOption {
	return func(p *Partitioner) {
		p.holdout = fraction
	}
}

// WithSeed sets the seed for the holdout sample. The same seed always
// yields the same partition, so every grid cell in a run sees identical
// data.
func WithSeed(seed int64) PartitionerOption {
	return func(p *Partitioner) {
		p.seed = seed
	}
}

// NewPartitioner creates a Partitioner with a 20% holdout and a fixed seed.
func NewPartitioner(opts ...PartitionerOption) *Partitioner {
	p := &Partitioner{
		holdout: 0.2,
		seed:    42,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Split partitions X and y. Rows labeled normalLabel form the training
// candidate pool; a seeded random holdout of that pool is withheld and
// appended to the test set together with all non-normal rows. Test order is
// held-out normals first, then anomalies, each group in original row order.
// Rows are shared, not copied: callers must treat the views as read-only.
func (p *Partitioner) Split(X [][]float64, y []int, normalLabel int) (XTrain, XTest [][]float64, yTrain, yTest []int, err error) {
	if len(X) != len(y) {
		return nil, nil, nil, nil, configErrorf("feature matrix has %d rows, label vector has %d", len(X), len(y))
	}
	if p.holdout < 0 || p.holdout > 1 {
		return nil, nil, nil, nil, configErrorf("holdout fraction %g outside [0, 1]", p.holdout)
	}

	distinct := map[int]struct{}{}
	for _, label := range y {
		distinct[label] = struct{}{}
	}
	if len(distinct) < 2 {
		return nil, nil, nil, nil, configErrorf("labels contain %d distinct class(es), want 2", len(distinct))
	}
	if len(distinct) > 2 {
		return nil, nil, nil, nil, configErrorf("labels contain %d distinct classes, want 2", len(distinct))
	}
	if _, ok := distinct[normalLabel]; !ok {
		return nil, nil, nil, nil, configErrorf("normal label %d does not occur in the label vector", normalLabel)
	}

	var pool, anomalies []int
	for i, label := range y {
		if label == normalLabel {
			pool = append(pool, i)
		} else {
			anomalies = append(anomalies, i)
		}
	}
	if len(pool) == 0 {
		return nil, nil, nil, nil, configErrorf("no rows carry the normal label %d", normalLabel)
	}

	rng := rand.New(rand.NewSource(p.seed))
	nHeld := int(float64(len(pool)) * p.holdout)
	held := map[int]struct{}{}
	for _, idx := range rng.Perm(len(pool))[:nHeld] {
		held[pool[idx]] = struct{}{}
	}

	for _, i := range pool {
		if _, ok := held[i]; ok {
			XTest = append(XTest, X[i])
			yTest = append(yTest, y[i])
		} else {
			XTrain = append(XTrain, X[i])
			yTrain = append(yTrain, y[i])
		}
	}
	for _, i := range anomalies {
		XTest = append(XTest, X[i])
		yTest = append(yTest, y[i])
	}

	return XTrain, XTest, yTrain, yTest, nil
}
