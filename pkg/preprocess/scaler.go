// Package preprocess provides feature scaling for the evaluation harness.
package preprocess

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each column to zero mean and scales it to unit
// variance. Parameters are learned by Fit and reused by every subsequent
// Transform: test data must be scaled with training statistics, never its
// own.
type StandardScaler struct {
	means  []float64
	stds   []float64
	fitted bool
}

// NewStandardScaler returns an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit learns per-column mean and standard deviation from data.
func (s *StandardScaler) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("empty data")
	}
	width := len(data[0])
	col := make([]float64, len(data))
	s.means = make([]float64, width)
	s.stds = make([]float64, width)

	for j := 0; j < width; j++ {
		for i, row := range data {
			if len(row) != width {
				return fmt.Errorf("ragged row %d: got %d features, want %d", i, len(row), width)
			}
			col[i] = row[j]
		}
		s.means[j], s.stds[j] = stat.MeanStdDev(col, nil)
	}
	s.fitted = true
	return nil
}

// Transform scales data with the fitted parameters. Columns with zero
// variance are centered but not divided.
func (s *StandardScaler) Transform(data [][]float64) ([][]float64, error) {
	if !s.fitted {
		return nil, errors.New("scaler not fitted")
	}
	out := make([][]float64, len(data))
	for i, row := range data {
		if len(row) != len(s.means) {
			return nil, fmt.Errorf("row %d has %d features, scaler fitted on %d", i, len(row), len(s.means))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = v - s.means[j]
			if s.stds[j] > 0 {
				scaled[j] /= s.stds[j]
			}
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform fits the scaler on data and returns the scaled result.
func (s *StandardScaler) FitTransform(data [][]float64) ([][]float64, error) {
	if err := s.Fit(data); err != nil {
		return nil, err
	}
	return s.Transform(data)
}
