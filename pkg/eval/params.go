// Package eval is the core of the harness: one-class data partitioning,
// hyperparameter grid orchestration, and correlation of unsupervised model
// output with ground-truth labels.
package eval

import (
	"fmt"
	"sort"
	"strings"
)

// Configuration is one concrete hyperparameter combination: a mapping from
// parameter name to scalar or categorical value. It is created by grid
// expansion and treated as immutable from then on.
type Configuration map[string]any

// Clone returns an independent copy.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Float returns the value for key coerced to float64. Integer values are
// accepted; config files routinely carry "0" where 0.0 is meant.
func (c Configuration) Float(key string) (float64, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

// Int returns the value for key as an int, rejecting fractional floats.
func (c Configuration) Int(key string) (int, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	return asInt(v)
}

// String returns the value for key if it is a string.
func (c Configuration) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// describe renders the configuration with keys in sorted order, for stable
// log lines.
func (c Configuration) describe() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, c[k])
	}
	return strings.Join(parts, " ")
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
	}
	return 0, false
}

// Validator checks a single hyperparameter value.
type Validator func(v any) error

// KeySet is the recognized hyperparameter vocabulary of one model family.
// Validation rejects unknown keys outright: a typoed parameter name must
// fail the run, not silently tune nothing.
type KeySet map[string]Validator

// Validate checks every entry of cfg against the key set, returning a
// ConfigurationError on the first unknown key or invalid value.
func (ks KeySet) Validate(cfg Configuration) error {
	// Deterministic check order, so the same bad config fails the same way.
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		validate, ok := ks[k]
		if !ok {
			return configErrorf("unknown parameter %q", k)
		}
		if err := validate(cfg[k]); err != nil {
			return configErrorf("parameter %q: %v", k, err)
		}
	}
	return nil
}

// ValidateGrid checks every axis name and every swept value of g against
// the key set. This runs before a grid run starts: a typoed axis fails the
// whole run upfront instead of failing every cell.
func (ks KeySet) ValidateGrid(g Grid) error {
	for _, p := range g {
		validate, ok := ks[p.Name]
		if !ok {
			return configErrorf("unknown parameter %q", p.Name)
		}
		if len(p.Values) == 0 {
			return configErrorf("parameter %q has no values", p.Name)
		}
		for _, v := range p.Values {
			if err := validate(v); err != nil {
				return configErrorf("parameter %q: %v", p.Name, err)
			}
		}
	}
	return nil
}

// Enum accepts one of the given string values.
func Enum(allowed ...string) Validator {
	return func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want one of %v, got %v (%T)", allowed, v, v)
		}
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return fmt.Errorf("want one of %v, got %q", allowed, s)
	}
}

// FloatBetween accepts a numeric value in [lo, hi].
func FloatBetween(lo, hi float64) Validator {
	return func(v any) error {
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("want a number, got %v (%T)", v, v)
		}
		if f < lo || f > hi {
			return fmt.Errorf("want a value in [%g, %g], got %g", lo, hi, f)
		}
		return nil
	}
}

// AnyFloat accepts any numeric value.
func AnyFloat() Validator {
	return func(v any) error {
		if _, ok := asFloat(v); !ok {
			return fmt.Errorf("want a number, got %v (%T)", v, v)
		}
		return nil
	}
}

// NonNegativeInt accepts integers >= 0.
func NonNegativeInt() Validator {
	return func(v any) error {
		n, ok := asInt(v)
		if !ok {
			return fmt.Errorf("want an integer, got %v (%T)", v, v)
		}
		if n < 0 {
			return fmt.Errorf("want a non-negative integer, got %d", n)
		}
		return nil
	}
}

// FloatOrEnum accepts a numeric value or one of the given strings. Used for
// gamma, which is either an explicit coefficient or "scale"/"auto".
func FloatOrEnum(allowed ...string) Validator {
	enum := Enum(allowed...)
	return func(v any) error {
		if _, ok := asFloat(v); ok {
			return nil
		}
		if err := enum(v); err != nil {
			return fmt.Errorf("want a number or one of %v, got %v (%T)", allowed, v, v)
		}
		return nil
	}
}
