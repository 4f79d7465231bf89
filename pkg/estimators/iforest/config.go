package iforest

import (
	"fmt"

	"github.com/anomgrid/fraudeval/pkg/estimators"
	"github.com/anomgrid/fraudeval/pkg/eval"
)

// Keys is the recognized hyperparameter vocabulary of this family.
// Contamination plays the role nu plays for the kernel family: the expected
// training outlier fraction.
func Keys() eval.KeySet {
	return eval.KeySet{
		"n_trees":       eval.NonNegativeInt(),
		"sample_size":   eval.NonNegativeInt(),
		"contamination": eval.FloatBetween(0, 1),
		"seed":          eval.NonNegativeInt(),
	}
}

// FromConfig builds a fresh forest from one grid cell's configuration.
func FromConfig(cfg eval.Configuration) (estimators.Boundary, error) {
	var opts []Option
	for key := range cfg {
		switch key {
		case "n_trees", "sample_size", "contamination", "seed":
		default:
			return nil, fmt.Errorf("unknown parameter %q", key)
		}
	}

	if _, present := cfg["n_trees"]; present {
		n, ok := cfg.Int("n_trees")
		if !ok || n < 1 {
			return nil, fmt.Errorf("n_trees must be a positive integer, got %v", cfg["n_trees"])
		}
		opts = append(opts, WithTrees(n))
	}
	if _, present := cfg["sample_size"]; present {
		n, ok := cfg.Int("sample_size")
		if !ok || n < 1 {
			return nil, fmt.Errorf("sample_size must be a positive integer, got %v", cfg["sample_size"])
		}
		opts = append(opts, WithSampleSize(n))
	}
	if _, present := cfg["contamination"]; present {
		f, ok := cfg.Float("contamination")
		if !ok || f < 0 || f > 1 {
			return nil, fmt.Errorf("contamination must be in [0, 1], got %v", cfg["contamination"])
		}
		opts = append(opts, WithContamination(f))
	}
	if _, present := cfg["seed"]; present {
		n, ok := cfg.Int("seed")
		if !ok {
			return nil, fmt.Errorf("seed must be an integer, got %v", cfg["seed"])
		}
		opts = append(opts, WithSeed(int64(n)))
	}
	return New(opts...), nil
}
