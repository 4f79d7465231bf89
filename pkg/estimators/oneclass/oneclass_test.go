package oneclass

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomgrid/fraudeval/pkg/estimators"
	"github.com/anomgrid/fraudeval/pkg/eval"
)

func generateTestData(n, features int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, n)
	for i := 0; i < n; i++ {
		data[i] = make([]float64, features)
		for j := 0; j < features; j++ {
			data[i][j] = rng.NormFloat64()
		}
	}
	return data
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{
			name: "defaults",
			opts: nil,
		},
		{
			name: "all options",
			opts: []Option{WithKernel(KernelPoly), WithDegree(2), WithGamma(FixedGamma(0.5)), WithNu(0.2), WithCoef0(1)},
		},
		{
			name:    "unknown kernel",
			opts:    []Option{WithKernel(Kernel("cubic"))},
			wantErr: true,
		},
		{
			name:    "nu out of range",
			opts:    []Option{WithNu(1.5)},
			wantErr: true,
		},
		{
			name:    "negative degree",
			opts:    []Option{WithDegree(-1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFitPredict(t *testing.T) {
	train := generateTestData(200, 3, 42)
	e, err := New(WithKernel(KernelRBF), WithGamma(FixedGamma(0.5)), WithNu(0.1))
	require.NoError(t, err)
	require.NoError(t, e.Fit(train))

	t.Run("far point is an outlier", func(t *testing.T) {
		out, err := e.Predict([][]float64{{10, 10, 10}})
		require.NoError(t, err)
		assert.Equal(t, []int{estimators.Outlier}, out)
	})

	t.Run("central point is an inlier", func(t *testing.T) {
		out, err := e.Predict([][]float64{{0, 0, 0}})
		require.NoError(t, err)
		assert.Equal(t, []int{estimators.Inlier}, out)
	})

	t.Run("predict before fit", func(t *testing.T) {
		fresh, err := New()
		require.NoError(t, err)
		_, err = fresh.Predict(train)
		assert.Error(t, err)
	})

	t.Run("feature width mismatch", func(t *testing.T) {
		_, err := e.Predict([][]float64{{1, 2}})
		assert.Error(t, err)
	})
}

func TestNuControlsTrainingOutlierFraction(t *testing.T) {
	train := generateTestData(200, 2, 7)
	e, err := New(WithKernel(KernelRBF), WithGamma(FixedGamma(0.5)), WithNu(0.2))
	require.NoError(t, err)
	require.NoError(t, e.Fit(train))

	out, err := e.Predict(train)
	require.NoError(t, err)

	flagged := 0
	for _, d := range out {
		if d == estimators.Outlier {
			flagged++
		}
	}
	frac := float64(flagged) / float64(len(train))
	assert.Greater(t, frac, 0.1)
	assert.LessOrEqual(t, frac, 0.2, "nu bounds the training outlier fraction")
}

func TestKernels(t *testing.T) {
	train := generateTestData(100, 4, 3)
	test := generateTestData(20, 4, 4)

	for _, k := range []Kernel{KernelLinear, KernelPoly, KernelRBF, KernelSigmoid} {
		t.Run(string(k), func(t *testing.T) {
			e, err := New(WithKernel(k), WithNu(0.1))
			require.NoError(t, err)
			require.NoError(t, e.Fit(train))

			out, err := e.Predict(test)
			require.NoError(t, err)
			assert.Len(t, out, len(test))
			for _, d := range out {
				assert.Contains(t, []int{estimators.Inlier, estimators.Outlier}, d)
			}
		})
	}
}

func TestFitErrors(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		e, err := New()
		require.NoError(t, err)
		assert.Error(t, e.Fit(nil))
	})

	t.Run("ragged data", func(t *testing.T) {
		e, err := New()
		require.NoError(t, err)
		assert.Error(t, e.Fit([][]float64{{1, 2}, {3}}))
	})

	t.Run("precomputed kernel unsupported", func(t *testing.T) {
		e, err := New(WithKernel(KernelPrecomputed))
		require.NoError(t, err, "precomputed is a recognized kernel")
		assert.Error(t, e.Fit([][]float64{{1}, {2}}))
	})
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     eval.Configuration
		wantErr bool
	}{
		{
			name: "full config",
			cfg:  eval.Configuration{"kernel": "rbf", "gamma": "scale", "nu": 0.1, "degree": 3},
		},
		{
			name: "gamma as float",
			cfg:  eval.Configuration{"gamma": 0.5},
		},
		{
			name: "gamma auto",
			cfg:  eval.Configuration{"gamma": "auto"},
		},
		{
			name:    "unknown parameter",
			cfg:     eval.Configuration{"minkowski": 2},
			wantErr: true,
		},
		{
			name:    "bad gamma string",
			cfg:     eval.Configuration{"gamma": "automatic"},
			wantErr: true,
		},
		{
			name:    "bad nu type",
			cfg:     eval.Configuration{"nu": "small"},
			wantErr: true,
		},
		{
			name:    "nu out of range surfaces from the estimator",
			cfg:     eval.Configuration{"nu": 2.0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := FromConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, est)
		})
	}
}

func TestKeysValidateGrid(t *testing.T) {
	grid := eval.Grid{
		{Name: "nu", Values: []any{0.1, 0.5}},
		{Name: "gamma", Values: []any{"scale"}},
	}
	assert.NoError(t, Keys().ValidateGrid(grid))

	bad := eval.Grid{{Name: "contamination", Values: []any{0.1}}}
	assert.Error(t, Keys().ValidateGrid(bad))
}

func BenchmarkFitPredict(b *testing.B) {
	train := generateTestData(500, 8, 1)
	test := generateTestData(100, 8, 2)
	e, _ := New(WithKernel(KernelRBF), WithNu(0.1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Fit(train)
		_, _ = e.Predict(test)
	}
}
