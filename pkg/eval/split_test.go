package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labeledRows builds a dataset whose first feature is a unique row id, so
// partition membership can be checked exactly.
func labeledRows(nNormal, nFraud int) ([][]float64, []int) {
	X := make([][]float64, 0, nNormal+nFraud)
	y := make([]int, 0, nNormal+nFraud)
	for i := 0; i < nNormal+nFraud; i++ {
		X = append(X, []float64{float64(i), 1.0})
		if i < nNormal {
			y = append(y, LabelNormal)
		} else {
			y = append(y, LabelAnomaly)
		}
	}
	return X, y
}

func TestSplit(t *testing.T) {
	X, y := labeledRows(100, 10)
	p := NewPartitioner(WithHoldout(0.2), WithSeed(7))

	xTrain, xTest, yTrain, yTest, err := p.Split(X, y, LabelNormal)
	require.NoError(t, err)

	t.Run("train is anomaly free", func(t *testing.T) {
		for _, label := range yTrain {
			assert.Equal(t, LabelNormal, label)
		}
		assert.Len(t, xTrain, 80)
	})

	t.Run("all anomalies land in test", func(t *testing.T) {
		fraud := 0
		for _, label := range yTest {
			if label == LabelAnomaly {
				fraud++
			}
		}
		assert.Equal(t, 10, fraud)
	})

	t.Run("every row accounted for exactly once", func(t *testing.T) {
		seen := map[float64]int{}
		for _, row := range xTrain {
			seen[row[0]]++
		}
		for _, row := range xTest {
			seen[row[0]]++
		}
		assert.Len(t, seen, 110)
		for id, count := range seen {
			assert.Equal(t, 1, count, "row %v", id)
		}
	})

	t.Run("test order is held-out normals then anomalies", func(t *testing.T) {
		require.Len(t, xTest, 30)
		for i, label := range yTest {
			if i < 20 {
				assert.Equal(t, LabelNormal, label)
			} else {
				assert.Equal(t, LabelAnomaly, label)
			}
		}
	})
}

func TestSplitIdempotence(t *testing.T) {
	X, y := labeledRows(100, 10)

	p1 := NewPartitioner(WithHoldout(0.2), WithSeed(123))
	aTrain, aTest, _, _, err := p1.Split(X, y, LabelNormal)
	require.NoError(t, err)

	p2 := NewPartitioner(WithHoldout(0.2), WithSeed(123))
	bTrain, bTest, _, _, err := p2.Split(X, y, LabelNormal)
	require.NoError(t, err)

	assert.Equal(t, aTrain, bTrain)
	assert.Equal(t, aTest, bTest)

	p3 := NewPartitioner(WithHoldout(0.2), WithSeed(124))
	cTrain, _, _, _, err := p3.Split(X, y, LabelNormal)
	require.NoError(t, err)
	assert.NotEqual(t, aTrain, cTrain, "different seeds should hold out different rows")
}

func TestSplitErrors(t *testing.T) {
	tests := []struct {
		name        string
		X           [][]float64
		y           []int
		normalLabel int
		holdout     float64
	}{
		{
			name:        "length mismatch",
			X:           [][]float64{{1}, {2}},
			y:           []int{0},
			normalLabel: 0,
			holdout:     0.2,
		},
		{
			name:        "single class",
			X:           [][]float64{{1}, {2}},
			y:           []int{0, 0},
			normalLabel: 0,
			holdout:     0.2,
		},
		{
			name:        "three classes",
			X:           [][]float64{{1}, {2}, {3}},
			y:           []int{0, 1, 2},
			normalLabel: 0,
			holdout:     0.2,
		},
		{
			name:        "normal label absent",
			X:           [][]float64{{1}, {2}},
			y:           []int{1, 2},
			normalLabel: 0,
			holdout:     0.2,
		},
		{
			name:        "holdout out of range",
			X:           [][]float64{{1}, {2}},
			y:           []int{0, 1},
			normalLabel: 0,
			holdout:     1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPartitioner(WithHoldout(tt.holdout), WithSeed(1))
			_, _, _, _, err := p.Split(tt.X, tt.y, tt.normalLabel)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
		})
	}
}
