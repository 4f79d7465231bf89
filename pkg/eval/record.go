package eval

import (
	"fmt"
	"io"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EvaluationRecord is the immutable outcome of one grid cell: the
// configuration evaluated, how long training took, and either the metrics
// or the failure that replaced them.
type EvaluationRecord struct {
	RunID  string        `json:"run_id"`
	Index  int           `json:"index"`
	Config Configuration `json:"configuration"`

	// Elapsed is the raw training duration; TrainingTime is the same value
	// formatted as mm:ss with integer truncation.
	Elapsed      time.Duration `json:"elapsed_ns"`
	TrainingTime string        `json:"elapsed_training_time"`

	Boundary *BoundaryMetrics `json:"boundary_metrics,omitempty"`
	Cluster  *ClusterMetrics  `json:"cluster_metrics,omitempty"`

	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Failed reports whether the cell produced an error instead of metrics.
func (r *EvaluationRecord) Failed() bool {
	return r.Error != ""
}

func (r *EvaluationRecord) setMetrics(m MetricSet) {
	switch v := m.(type) {
	case *BoundaryMetrics:
		r.Boundary = v
	case *ClusterMetrics:
		r.Cluster = v
	}
}

func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ResultLog is the append-only sink receiving one record per evaluated
// configuration, in enumeration order. Records are never mutated or deleted
// after emission.
type ResultLog interface {
	Append(rec EvaluationRecord) error
}

// MemorySink collects records in memory.
type MemorySink struct {
	mu      sync.Mutex
	records []EvaluationRecord
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores a copy of rec.
func (s *MemorySink) Append(rec EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns the appended records in order.
func (s *MemorySink) Records() []EvaluationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EvaluationRecord, len(s.records))
	copy(out, s.records)
	return out
}

// JSONLSink writes one JSON object per line to an io.Writer.
type JSONLSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONLSink creates a sink writing to w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

// Append marshals rec and writes it followed by a newline.
func (s *JSONLSink) Append(rec EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = s.w.Write(b)
	return err
}

// BestF1 tracks the best boundary configuration seen so far in a grid run.
// A candidate replaces the incumbent only with a strictly greater F1, so
// exact ties keep the first-encountered configuration in enumeration order.
// Failed cells and undefined F1 never win.
type BestF1 struct {
	best EvaluationRecord
	set  bool
}

// Consider offers rec to the tracker.
func (b *BestF1) Consider(rec EvaluationRecord) {
	if rec.Failed() || rec.Boundary == nil || !rec.Boundary.F1.Defined {
		return
	}
	if !b.set || rec.Boundary.F1.Value > b.best.Boundary.F1.Value {
		b.best = rec
		b.set = true
	}
}

// Best returns the winning record, if any defined F1 was seen.
func (b *BestF1) Best() (EvaluationRecord, bool) {
	return b.best, b.set
}
