package oneclass

import (
	"fmt"

	"github.com/anomgrid/fraudeval/pkg/estimators"
	"github.com/anomgrid/fraudeval/pkg/eval"
)

// Keys is the recognized hyperparameter vocabulary of this family.
func Keys() eval.KeySet {
	return eval.KeySet{
		"kernel": eval.Enum(
			string(KernelLinear), string(KernelPoly), string(KernelRBF),
			string(KernelSigmoid), string(KernelPrecomputed),
		),
		"degree": eval.NonNegativeInt(),
		"gamma":  eval.FloatOrEnum("scale", "auto"),
		"nu":     eval.FloatBetween(0, 1),
		"coef0":  eval.AnyFloat(),
	}
}

// FromConfig builds a fresh estimator from one grid cell's configuration.
// Unknown keys and bad values are rejected by the estimator itself, which
// surfaces them as per-cell fit failures rather than aborting the run.
func FromConfig(cfg eval.Configuration) (estimators.Boundary, error) {
	var opts []Option
	for key := range cfg {
		switch key {
		case "kernel", "degree", "gamma", "nu", "coef0":
		default:
			return nil, fmt.Errorf("unknown parameter %q", key)
		}
	}

	if _, present := cfg["kernel"]; present {
		s, ok := cfg.String("kernel")
		if !ok {
			return nil, fmt.Errorf("kernel must be a string, got %v", cfg["kernel"])
		}
		opts = append(opts, WithKernel(Kernel(s)))
	}
	if _, present := cfg["degree"]; present {
		n, ok := cfg.Int("degree")
		if !ok {
			return nil, fmt.Errorf("degree must be an integer, got %v", cfg["degree"])
		}
		opts = append(opts, WithDegree(n))
	}
	if _, present := cfg["gamma"]; present {
		switch s, _ := cfg.String("gamma"); s {
		case "scale":
			opts = append(opts, WithGamma(ScaleGamma()))
		case "auto":
			opts = append(opts, WithGamma(AutoGamma()))
		default:
			f, ok := cfg.Float("gamma")
			if !ok {
				return nil, fmt.Errorf("gamma must be a number, %q or %q, got %v", "scale", "auto", cfg["gamma"])
			}
			opts = append(opts, WithGamma(FixedGamma(f)))
		}
	}
	if _, present := cfg["nu"]; present {
		f, ok := cfg.Float("nu")
		if !ok {
			return nil, fmt.Errorf("nu must be a number, got %v", cfg["nu"])
		}
		opts = append(opts, WithNu(f))
	}
	if _, present := cfg["coef0"]; present {
		f, ok := cfg.Float("coef0")
		if !ok {
			return nil, fmt.Errorf("coef0 must be a number, got %v", cfg["coef0"])
		}
		opts = append(opts, WithCoef0(f))
	}
	return New(opts...)
}
