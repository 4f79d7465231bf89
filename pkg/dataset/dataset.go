// Package dataset loads labeled tabular data for the evaluation harness.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Dataset is a feature matrix with an aligned binary label vector:
// 1 = anomalous/fraud, 0 = normal. Column order is significant and stays
// fixed through partitioning and scaling.
type Dataset struct {
	Features [][]float64
	Labels   []int
	Columns  []string
}

// Len returns the row count.
func (d *Dataset) Len() int {
	return len(d.Features)
}

// Loader reads a labeled CSV file.
type Loader struct {
	hasHeader   bool
	labelColumn int
	labelName   string
}

// Option configures a Loader.
type Option func(*Loader)

// WithHeader indicates whether the CSV has a header row.
func WithHeader(has bool) Option {
	return func(l *Loader) {
		l.hasHeader = has
	}
}

// WithLabelColumn sets the label column by index. Default is the last
// column.
func WithLabelColumn(idx int) Option {
	return func(l *Loader) {
		l.labelColumn = idx
		l.labelName = ""
	}
}

// WithLabelName sets the label column by header name. Requires a header.
func WithLabelName(name string) Option {
	return func(l *Loader) {
		l.labelName = name
	}
}

// NewLoader creates a Loader expecting a header row and the label in the
// last column.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		hasHeader:   true,
		labelColumn: -1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the whole file into a Dataset. Ragged or non-numeric rows are
// rejected, not skipped: a silently dropped row would skew every metric
// computed downstream.
func (l *Loader) Load(filename string) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return l.read(file)
}

func (l *Loader) read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)

	var headers []string
	if l.hasHeader {
		row, err := cr.Read()
		if err != nil {
			return nil, errors.Wrap(err, "reading header")
		}
		headers = row
	}

	labelIdx := l.labelColumn
	if l.labelName != "" {
		labelIdx = -1
		for i, h := range headers {
			if h == l.labelName {
				labelIdx = i
				break
			}
		}
		if labelIdx < 0 {
			return nil, errors.Errorf("label column %q not found in header %v", l.labelName, headers)
		}
	}

	ds := &Dataset{}
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line+1)
		}
		line++

		idx := labelIdx
		if idx < 0 {
			idx = len(record) - 1
		}
		if idx >= len(record) {
			return nil, errors.Errorf("line %d: label column %d out of range for %d fields", line, idx, len(record))
		}

		features := make([]float64, 0, len(record)-1)
		var label int
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %d", line, i)
			}
			if i == idx {
				label = int(v)
				if label != 0 && label != 1 {
					return nil, errors.Errorf("line %d: label must be 0 or 1, got %v", line, field)
				}
				continue
			}
			features = append(features, v)
		}
		if len(ds.Features) > 0 && len(features) != len(ds.Features[0]) {
			return nil, errors.Errorf("line %d: got %d features, want %d", line, len(features), len(ds.Features[0]))
		}
		ds.Features = append(ds.Features, features)
		ds.Labels = append(ds.Labels, label)
	}

	if headers != nil {
		idx := labelIdx
		if idx < 0 {
			idx = len(headers) - 1
		}
		for i, h := range headers {
			if i != idx {
				ds.Columns = append(ds.Columns, h)
			}
		}
	}
	return ds, nil
}

// FromSlices wraps pre-built features and labels, validating shape.
func FromSlices(features [][]float64, labels []int) (*Dataset, error) {
	if len(features) != len(labels) {
		return nil, errors.Errorf("feature matrix has %d rows, label vector has %d", len(features), len(labels))
	}
	for i, row := range features {
		if len(features) > 0 && len(row) != len(features[0]) {
			return nil, errors.Errorf("ragged row %d: got %d features, want %d", i, len(row), len(features[0]))
		}
	}
	return &Dataset{Features: features, Labels: labels}, nil
}
