package eval

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Param is one grid axis: a hyperparameter name and the values to sweep.
type Param struct {
	Name   string
	Values []any
}

// Grid is an ordered list of axes. Expansion order follows the order axes
// were supplied, with the last axis varying fastest; two runs over the same
// grid enumerate identical configuration sequences, which the best-F1
// tie-break relies on.
type Grid []Param

// Size returns the number of configurations the grid expands to.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, p := range g {
		n *= len(p.Values)
	}
	return n
}

// Expand enumerates the full Cartesian product.
func (g Grid) Expand() []Configuration {
	if g.Size() == 0 {
		return nil
	}
	out := make([]Configuration, 0, g.Size())
	current := make(Configuration, len(g))

	var walk func(axis int)
	walk = func(axis int) {
		if axis == len(g) {
			out = append(out, current.Clone())
			return
		}
		for _, v := range g[axis].Values {
			current[g[axis].Name] = v
			walk(axis + 1)
		}
	}
	walk(0)
	return out
}

// EvalFunc evaluates one configuration end to end: fit, score, analyze.
// It returns the cell's metrics and the elapsed training time.
type EvalFunc func(cfg Configuration) (MetricSet, time.Duration, error)

// MetricSet is the mode-specific metrics half of an evaluation record.
type MetricSet interface {
	metricSet()
}

func (*BoundaryMetrics) metricSet() {}
func (*ClusterMetrics) metricSet()  {}

// Orchestrator drives a grid run: it expands the grid, invokes the eval
// function once per cell in enumeration order, and appends one record per
// cell to the result log. Iteration is strictly sequential; any parallelism
// lives inside an individual fit.
type Orchestrator struct {
	sink  ResultLog
	clock clock.Clock
	halt  bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClock injects the clock used for run timestamps. Elapsed cell time is
// measured by the eval function; tests inject a mock here and in the
// adapter.
func WithClock(c clock.Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithHaltOnFailure aborts the run on the first failed cell instead of
// recording the failure and continuing.
func WithHaltOnFailure(halt bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.halt = halt
	}
}

// NewOrchestrator creates an Orchestrator appending records to sink.
func NewOrchestrator(sink ResultLog, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		sink:  sink,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run evaluates every configuration in the grid. A failed cell produces a
// record with its error in place of metrics and does not stop the
// enumeration, except for ConfigurationError, which is fatal: the inputs
// are broken and every remaining cell would fail the same way.
func (o *Orchestrator) Run(grid Grid, evalFn EvalFunc) ([]EvaluationRecord, error) {
	runID := uuid.NewString()
	configs := grid.Expand()
	if len(configs) == 0 {
		return nil, configErrorf("empty parameter grid")
	}
	log.Infof("grid run %s: %d configurations", runID, len(configs))

	records := make([]EvaluationRecord, 0, len(configs))
	for i, cfg := range configs {
		log.Debugf("cell %d/%d: %s", i+1, len(configs), cfg.describe())

		metrics, elapsed, err := evalFn(cfg)
		rec := EvaluationRecord{
			RunID:        runID,
			Index:        i,
			Config:       cfg,
			Elapsed:      elapsed,
			TrainingTime: formatElapsed(elapsed),
			CreatedAt:    o.clock.Now(),
		}
		switch {
		case err != nil:
			rec.Error = err.Error()
			log.Errorf("cell %d/%d failed: %v", i+1, len(configs), err)
		default:
			rec.setMetrics(metrics)
		}

		if sinkErr := o.sink.Append(rec); sinkErr != nil {
			return records, sinkErr
		}
		records = append(records, rec)

		if err != nil && (o.halt || IsConfigurationError(err)) {
			return records, err
		}
	}

	log.Infof("grid run %s: finished %d configurations", runID, len(records))
	return records, nil
}
