// Package oneclass implements a kernel one-class boundary estimator.
//
// The decision rule is kernel mean similarity: a point's score is its mean
// kernel value against the training set, and the boundary is the
// nu-quantile of the training set's own scores. With nu = 0.1 roughly 10%
// of training rows fall outside their own boundary, matching the usual
// one-class reading of nu as an upper bound on the training outlier
// fraction.
package oneclass

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/anomgrid/fraudeval/pkg/estimators"
)

// Kernel selects the similarity function.
type Kernel string

const (
	KernelLinear  Kernel = "linear"
	KernelPoly    Kernel = "poly"
	KernelRBF     Kernel = "rbf"
	KernelSigmoid Kernel = "sigmoid"
	// KernelPrecomputed is part of the recognized vocabulary but needs a
	// caller-supplied Gram matrix this estimator has no channel for; fitting
	// with it fails.
	KernelPrecomputed Kernel = "precomputed"
)

// Gamma is the kernel coefficient: either a fixed value or a rule resolved
// against the training data at fit time.
type Gamma struct {
	mode  string
	value float64
}

// FixedGamma uses v directly.
func FixedGamma(v float64) Gamma {
	return Gamma{mode: "fixed", value: v}
}

// ScaleGamma resolves to 1 / (n_features * variance of the training data).
func ScaleGamma() Gamma {
	return Gamma{mode: "scale"}
}

// AutoGamma resolves to 1 / n_features.
func AutoGamma() Gamma {
	return Gamma{mode: "auto"}
}

// Estimator is a one-class boundary model over the kernel mean score.
type Estimator struct {
	kernel Kernel
	gamma  Gamma
	degree int
	coef0  float64
	nu     float64

	train     [][]float64
	gammaVal  float64
	threshold float64
	trained   bool
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithKernel sets the kernel function.
func WithKernel(k Kernel) Option {
	return func(e *Estimator) {
		e.kernel = k
	}
}

// WithGamma sets the kernel coefficient.
func WithGamma(g Gamma) Option {
	return func(e *Estimator) {
		e.gamma = g
	}
}

// WithDegree sets the polynomial degree.
func WithDegree(d int) Option {
	return func(e *Estimator) {
		e.degree = d
	}
}

// WithCoef0 sets the independent term for poly and sigmoid kernels.
func WithCoef0(c float64) Option {
	return func(e *Estimator) {
		e.coef0 = c
	}
}

// WithNu sets the expected training outlier fraction, in [0, 1].
func WithNu(nu float64) Option {
	return func(e *Estimator) {
		e.nu = nu
	}
}

// New creates an Estimator with an RBF kernel, scale gamma and nu = 0.1.
func New(opts ...Option) (*Estimator, error) {
	e := &Estimator{
		kernel: KernelRBF,
		gamma:  ScaleGamma(),
		degree: 3,
		nu:     0.1,
	}
	for _, opt := range opts {
		opt(e)
	}

	switch e.kernel {
	case KernelLinear, KernelPoly, KernelRBF, KernelSigmoid, KernelPrecomputed:
	default:
		return nil, fmt.Errorf("unknown kernel %q", e.kernel)
	}
	if e.nu < 0 || e.nu > 1 {
		return nil, fmt.Errorf("nu %g outside [0, 1]", e.nu)
	}
	if e.degree < 0 {
		return nil, fmt.Errorf("negative degree %d", e.degree)
	}
	return e, nil
}

// Fit stores the training rows, resolves gamma, and places the boundary at
// the nu-quantile of the training rows' own scores.
func (e *Estimator) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("empty training data")
	}
	if e.kernel == KernelPrecomputed {
		return errors.New("precomputed kernel requires a caller-supplied Gram matrix")
	}
	width := len(data[0])
	for i, row := range data {
		if len(row) != width {
			return fmt.Errorf("ragged row %d: got %d features, want %d", i, len(row), width)
		}
	}

	e.train = make([][]float64, len(data))
	for i, row := range data {
		e.train[i] = append([]float64(nil), row...)
	}
	e.gammaVal = e.resolveGamma()

	scores := make([]float64, len(e.train))
	for i, row := range e.train {
		scores[i] = e.score(row)
	}
	e.threshold = quantile(scores, e.nu)
	e.trained = true
	return nil
}

// Predict returns estimators.Inlier or estimators.Outlier per row.
func (e *Estimator) Predict(data [][]float64) ([]int, error) {
	if !e.trained {
		return nil, errors.New("model not trained")
	}
	out := make([]int, len(data))
	for i, row := range data {
		if len(row) != len(e.train[0]) {
			return nil, fmt.Errorf("row %d has %d features, model fitted on %d", i, len(row), len(e.train[0]))
		}
		if e.score(row) < e.threshold {
			out[i] = estimators.Outlier
		} else {
			out[i] = estimators.Inlier
		}
	}
	return out, nil
}

// Threshold returns the fitted decision boundary.
func (e *Estimator) Threshold() float64 {
	return e.threshold
}

func (e *Estimator) resolveGamma() float64 {
	switch e.gamma.mode {
	case "fixed":
		return e.gamma.value
	case "auto":
		return 1 / float64(len(e.train[0]))
	default: // scale
		flat := make([]float64, 0, len(e.train)*len(e.train[0]))
		for _, row := range e.train {
			flat = append(flat, row...)
		}
		v := stat.Variance(flat, nil)
		if v <= 0 {
			return 1 / float64(len(e.train[0]))
		}
		return 1 / (float64(len(e.train[0])) * v)
	}
}

// score is the mean kernel value of x against the training set.
func (e *Estimator) score(x []float64) float64 {
	var sum float64
	for _, row := range e.train {
		sum += e.kernelValue(x, row)
	}
	return sum / float64(len(e.train))
}

func (e *Estimator) kernelValue(a, b []float64) float64 {
	switch e.kernel {
	case KernelLinear:
		return floats.Dot(a, b)
	case KernelPoly:
		return math.Pow(e.gammaVal*floats.Dot(a, b)+e.coef0, float64(e.degree))
	case KernelSigmoid:
		return math.Tanh(e.gammaVal*floats.Dot(a, b) + e.coef0)
	default: // rbf
		var sq float64
		for i := range a {
			d := a[i] - b[i]
			sq += d * d
		}
		return math.Exp(-e.gammaVal * sq)
	}
}

// quantile returns the q-quantile of data by sorted-index lookup, so with
// q = nu the fraction of training scores strictly below the result stays at
// or under nu.
func quantile(data []float64, q float64) float64 {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)-1) * q)
	return sorted[idx]
}
