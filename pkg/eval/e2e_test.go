package eval_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomgrid/fraudeval/pkg/estimators/dbscan"
	"github.com/anomgrid/fraudeval/pkg/estimators/oneclass"
	"github.com/anomgrid/fraudeval/pkg/eval"
)

// mixedSample builds a labeled dataset: a tight normal cloud and a handful
// of far-out anomalies.
func mixedSample(nNormal, nFraud int) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(5))
	X := make([][]float64, 0, nNormal+nFraud)
	y := make([]int, 0, nNormal+nFraud)
	for i := 0; i < nNormal; i++ {
		X = append(X, []float64{rng.NormFloat64(), rng.NormFloat64()})
		y = append(y, eval.LabelNormal)
	}
	for i := 0; i < nFraud; i++ {
		X = append(X, []float64{20 + rng.NormFloat64(), 20 + rng.NormFloat64()})
		y = append(y, eval.LabelAnomaly)
	}
	return X, y
}

func TestBoundaryGridEndToEnd(t *testing.T) {
	X, y := mixedSample(300, 15)

	part := eval.NewPartitioner(eval.WithHoldout(0.2), eval.WithSeed(11))
	xTrain, xTest, _, yTest, err := part.Split(X, y, eval.LabelNormal)
	require.NoError(t, err)

	grid := eval.Grid{
		{Name: "nu", Values: []any{0.1, 0.5}},
		{Name: "gamma", Values: []any{"scale"}},
	}
	require.NoError(t, oneclass.Keys().ValidateGrid(grid))

	adapter := eval.NewAdapter()
	sink := eval.NewMemorySink()
	orch := eval.NewOrchestrator(sink)

	records, err := orch.Run(grid, func(cfg eval.Configuration) (eval.MetricSet, time.Duration, error) {
		predicted, elapsed, err := adapter.FitScoreBoundary(xTrain, xTest, cfg, oneclass.FromConfig)
		if err != nil {
			return nil, elapsed, err
		}
		m, err := eval.AnalyzeBoundary(yTest, predicted)
		return m, elapsed, err
	})
	require.NoError(t, err)

	require.Len(t, records, 2, "one record per grid combination")
	assert.Equal(t, eval.Configuration{"nu": 0.1, "gamma": "scale"}, records[0].Config)
	assert.Equal(t, eval.Configuration{"nu": 0.5, "gamma": "scale"}, records[1].Config)

	for _, rec := range records {
		require.False(t, rec.Failed())
		require.NotNil(t, rec.Boundary)
		require.True(t, rec.Boundary.Recall.Defined)
		assert.Equal(t, 1.0, rec.Boundary.Recall.Value, "far-out anomalies should all be caught")
	}

	var best eval.BestF1
	for _, rec := range records {
		best.Consider(rec)
	}
	winner, ok := best.Best()
	require.True(t, ok)
	// nu = 0.5 rejects half the normal holdout, so nu = 0.1 wins on precision.
	assert.Equal(t, 0.1, winner.Config["nu"])
}

func TestClusterGridEndToEnd(t *testing.T) {
	X, y := mixedSample(100, 5)

	grid := eval.Grid{
		{Name: "cluster_selection_epsilon", Values: []any{1.0}},
		{Name: "min_samples", Values: []any{4}},
	}
	require.NoError(t, dbscan.Keys().ValidateGrid(grid))

	adapter := eval.NewAdapter()
	orch := eval.NewOrchestrator(eval.NewMemorySink())

	records, err := orch.Run(grid, func(cfg eval.Configuration) (eval.MetricSet, time.Duration, error) {
		assignments, elapsed, err := adapter.FitScoreCluster(X, cfg, dbscan.FromConfig)
		if err != nil {
			return nil, elapsed, err
		}
		m, err := eval.AnalyzeCluster(y, assignments)
		return m, elapsed, err
	})
	require.NoError(t, err)

	require.Len(t, records, 1)
	rec := records[0]
	require.False(t, rec.Failed())
	require.NotNil(t, rec.Cluster)
	assert.Equal(t, 5, rec.Cluster.TotalFraud)
	assert.GreaterOrEqual(t, rec.Cluster.ClusterCount, 1, "the normal cloud is dense enough to cluster")
}

func TestGridRunRecordsRejectedConfigurations(t *testing.T) {
	X, y := mixedSample(60, 4)

	part := eval.NewPartitioner(eval.WithSeed(3))
	xTrain, xTest, _, yTest, err := part.Split(X, y, eval.LabelNormal)
	require.NoError(t, err)

	// The precomputed kernel is recognized vocabulary but unusable here, so
	// its cell fails while the rbf cell still completes.
	grid := eval.Grid{
		{Name: "kernel", Values: []any{"precomputed", "rbf"}},
	}
	require.NoError(t, oneclass.Keys().ValidateGrid(grid))

	adapter := eval.NewAdapter()
	orch := eval.NewOrchestrator(eval.NewMemorySink())
	records, err := orch.Run(grid, func(cfg eval.Configuration) (eval.MetricSet, time.Duration, error) {
		predicted, elapsed, err := adapter.FitScoreBoundary(xTrain, xTest, cfg, oneclass.FromConfig)
		if err != nil {
			return nil, elapsed, err
		}
		m, err := eval.AnalyzeBoundary(yTest, predicted)
		return m, elapsed, err
	})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.True(t, records[0].Failed())
	assert.Contains(t, records[0].Error, "Gram matrix")
	assert.False(t, records[1].Failed())
}
