package eval

import (
	"errors"
	"fmt"
)

// ConfigurationError reports malformed harness input: bad partition
// arguments, unknown hyperparameter keys, out-of-range values. It is fatal
// to the current run and never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ModelFitError reports that the underlying estimator rejected a grid
// cell's configuration or failed during fit/predict. The offending
// configuration travels with the error so the cell's record can carry it.
type ModelFitError struct {
	Config Configuration
	Err    error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("model fit failed for %v: %v", map[string]any(e.Config), e.Err)
}

func (e *ModelFitError) Unwrap() error { return e.Err }

// IsModelFitError reports whether err is (or wraps) a ModelFitError.
func IsModelFitError(err error) bool {
	var fe *ModelFitError
	return errors.As(err, &fe)
}
