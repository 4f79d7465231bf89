// Package estimators defines the capabilities the evaluation harness
// consumes from concrete anomaly estimators.
package estimators

// Native decision conventions. Boundary estimators follow the one-class
// convention of +1 for inliers and -1 for outliers; clusterers mark rows
// that belong to no dense cluster with the Noise sentinel.
const (
	Inlier  = 1
	Outlier = -1

	Noise = -1
)

// Boundary is a one-class estimator: it is fitted on a single class and
// emits a binary inlier/outlier decision for new rows.
type Boundary interface {
	// Fit trains the estimator. data is a 2D slice where each row is a
	// sample and each column is a feature.
	Fit(data [][]float64) error

	// Predict returns one decision per row, Inlier or Outlier.
	Predict(data [][]float64) ([]int, error)
}

// Clusterer assigns every input row to a cluster id, or to Noise when the
// row is not part of any dense region. Clustering is unsupervised and
// single-shot: there is no separate predict phase.
type Clusterer interface {
	FitPredict(data [][]float64) ([]int, error)
}

// Parallel is implemented by estimators whose fit can fan out over worker
// goroutines.
type Parallel interface {
	SetWorkers(n int)
}
