package eval

import (
	"runtime"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/anomgrid/fraudeval/pkg/estimators"
	"github.com/anomgrid/fraudeval/pkg/preprocess"
)

// BoundaryProvider binds a configuration to a fresh boundary estimator.
// Construction failures mean the estimator rejected the configuration.
type BoundaryProvider func(cfg Configuration) (estimators.Boundary, error)

// ClusterProvider binds a configuration to a fresh clusterer.
type ClusterProvider func(cfg Configuration) (estimators.Clusterer, error)

// Adapter normalizes estimator output for the analyzer: boundary decisions
// are converted from the native +1/-1 convention to {0=inlier, 1=outlier},
// cluster assignments pass through with the -1 noise sentinel. Every call
// constructs and fits a fresh model; nothing is reused across grid cells.
type Adapter struct {
	clock clock.Clock
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithAdapterClock injects the clock used to time fit/predict cycles.
func WithAdapterClock(c clock.Clock) AdapterOption {
	return func(a *Adapter) {
		a.clock = c
	}
}

// NewAdapter creates an Adapter with the real clock.
func NewAdapter(opts ...AdapterOption) *Adapter {
	a := &Adapter{clock: clock.New()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FitScoreBoundary fits a boundary estimator on the training rows only and
// scores the test rows, returning canonical {0, 1} decisions and the
// elapsed time from estimator construction to prediction.
//
// Features are standardized with parameters fit on the training partition
// and reused on the test partition. Refitting the scaler on test data would
// leak its distribution into the decision; that must never happen.
func (a *Adapter) FitScoreBoundary(xTrain, xTest [][]float64, cfg Configuration, provide BoundaryProvider) ([]int, time.Duration, error) {
	start := a.clock.Now()

	est, err := provide(cfg)
	if err != nil {
		return nil, a.clock.Since(start), &ModelFitError{Config: cfg, Err: err}
	}

	scaler := preprocess.NewStandardScaler()
	scaledTrain, err := scaler.FitTransform(xTrain)
	if err != nil {
		return nil, a.clock.Since(start), &ModelFitError{Config: cfg, Err: errors.Wrap(err, "scaling training data")}
	}
	scaledTest, err := scaler.Transform(xTest)
	if err != nil {
		return nil, a.clock.Since(start), &ModelFitError{Config: cfg, Err: errors.Wrap(err, "scaling test data")}
	}

	if err := est.Fit(scaledTrain); err != nil {
		return nil, a.clock.Since(start), &ModelFitError{Config: cfg, Err: err}
	}
	native, err := est.Predict(scaledTest)
	if err != nil {
		return nil, a.clock.Since(start), &ModelFitError{Config: cfg, Err: err}
	}
	elapsed := a.clock.Since(start)

	out := make([]int, len(native))
	for i, d := range native {
		if d == estimators.Outlier {
			out[i] = LabelAnomaly
		} else {
			out[i] = LabelNormal
		}
	}
	return out, elapsed, nil
}

// FitScoreCluster fits a clusterer on the full row set, both classes
// included, and returns assignments aligned to input order. Clusterers that
// support it always run with full parallelism; this is an internal
// override, not a tunable.
func (a *Adapter) FitScoreCluster(x [][]float64, cfg Configuration, provide ClusterProvider) ([]int, time.Duration, error) {
	start := a.clock.Now()

	est, err := provide(cfg)
	if err != nil {
		return nil, a.clock.Since(start), &ModelFitError{Config: cfg, Err: err}
	}
	if p, ok := est.(estimators.Parallel); ok {
		p.SetWorkers(runtime.NumCPU())
	}

	assignments, err := est.FitPredict(x)
	if err != nil {
		return nil, a.clock.Since(start), &ModelFitError{Config: cfg, Err: err}
	}
	return assignments, a.clock.Since(start), nil
}
