package dbscan

import (
	"fmt"

	"github.com/anomgrid/fraudeval/pkg/estimators"
	"github.com/anomgrid/fraudeval/pkg/eval"
)

// Keys is the recognized hyperparameter vocabulary of this family.
func Keys() eval.KeySet {
	return eval.KeySet{
		"min_cluster_size":          eval.NonNegativeInt(),
		"min_samples":               eval.NonNegativeInt(),
		"cluster_selection_epsilon": eval.AnyFloat(),
	}
}

// FromConfig builds a fresh clusterer from one grid cell's configuration.
func FromConfig(cfg eval.Configuration) (estimators.Clusterer, error) {
	var opts []Option
	for key := range cfg {
		switch key {
		case "min_cluster_size", "min_samples", "cluster_selection_epsilon":
		default:
			return nil, fmt.Errorf("unknown parameter %q", key)
		}
	}

	if _, present := cfg["min_cluster_size"]; present {
		n, ok := cfg.Int("min_cluster_size")
		if !ok {
			return nil, fmt.Errorf("min_cluster_size must be an integer, got %v", cfg["min_cluster_size"])
		}
		opts = append(opts, WithMinClusterSize(n))
	}
	if _, present := cfg["min_samples"]; present {
		n, ok := cfg.Int("min_samples")
		if !ok {
			return nil, fmt.Errorf("min_samples must be an integer, got %v", cfg["min_samples"])
		}
		opts = append(opts, WithMinSamples(n))
	}
	if _, present := cfg["cluster_selection_epsilon"]; present {
		f, ok := cfg.Float("cluster_selection_epsilon")
		if !ok {
			return nil, fmt.Errorf("cluster_selection_epsilon must be a number, got %v", cfg["cluster_selection_epsilon"])
		}
		opts = append(opts, WithEpsilon(f))
	}
	return New(opts...)
}
