package eval

import (
	"fmt"
	"math"

	"github.com/anomgrid/fraudeval/pkg/estimators"
)

// Labels used throughout the harness: ground truth marks anomalies with 1,
// boundary output marks predicted outliers with 1.
const (
	LabelNormal  = 0
	LabelAnomaly = 1
)

// Ratio is a metric value that may be undefined. A confusion-matrix rate
// with a zero denominator is not zero; it carries no information, and
// downstream selection must be able to tell the two apart.
type Ratio struct {
	Value   float64
	Defined bool
}

// DefinedRatio wraps v as a defined Ratio.
func DefinedRatio(v float64) Ratio {
	return Ratio{Value: v, Defined: true}
}

// ratioOf divides num by den, undefined when den is zero.
func ratioOf(num, den int) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return DefinedRatio(float64(num) / float64(den))
}

func (r Ratio) String() string {
	if !r.Defined {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", r.Value)
}

// MarshalJSON renders undefined ratios as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%g", r.Value)), nil
}

// UnmarshalJSON accepts null or a number.
func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = Ratio{}
		return nil
	}
	var v float64
	if _, err := fmt.Sscanf(string(b), "%g", &v); err != nil {
		return err
	}
	*r = DefinedRatio(v)
	return nil
}

// BoundaryMetrics correlates a boundary model's inlier/outlier decisions
// with ground truth. Positive = anomalous. Rates are percentages.
type BoundaryMetrics struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`

	TruePositiveRate  Ratio `json:"true_positive_rate"`
	FalsePositiveRate Ratio `json:"false_positive_rate"`
	TrueNegativeRate  Ratio `json:"true_negative_rate"`
	FalseNegativeRate Ratio `json:"false_negative_rate"`

	Precision Ratio `json:"precision"`
	Recall    Ratio `json:"recall"`
	F1        Ratio `json:"f1"`
}

// AnalyzeBoundary computes confusion counts and derived rates from ground
// truth and canonical {0=inlier, 1=outlier} predictions.
func AnalyzeBoundary(yTest, predicted []int) (*BoundaryMetrics, error) {
	if len(yTest) != len(predicted) {
		return nil, configErrorf("ground truth has %d rows, predictions have %d", len(yTest), len(predicted))
	}

	m := &BoundaryMetrics{}
	for i, truth := range yTest {
		switch {
		case truth == LabelAnomaly && predicted[i] == LabelAnomaly:
			m.TruePositives++
		case truth == LabelAnomaly && predicted[i] == LabelNormal:
			m.FalseNegatives++
		case truth == LabelNormal && predicted[i] == LabelAnomaly:
			m.FalsePositives++
		case truth == LabelNormal && predicted[i] == LabelNormal:
			m.TrueNegatives++
		default:
			return nil, configErrorf("row %d: labels must be 0 or 1, got truth=%d predicted=%d", i, truth, predicted[i])
		}
	}

	m.TruePositiveRate = percent(ratioOf(m.TruePositives, m.TruePositives+m.FalseNegatives))
	m.FalsePositiveRate = percent(ratioOf(m.FalsePositives, m.FalsePositives+m.TrueNegatives))
	m.TrueNegativeRate = percent(ratioOf(m.TrueNegatives, m.TrueNegatives+m.FalsePositives))
	m.FalseNegativeRate = percent(ratioOf(m.FalseNegatives, m.FalseNegatives+m.TruePositives))

	m.Precision = ratioOf(m.TruePositives, m.TruePositives+m.FalsePositives)
	m.Recall = ratioOf(m.TruePositives, m.TruePositives+m.FalseNegatives)
	if m.Precision.Defined && m.Recall.Defined && m.Precision.Value+m.Recall.Value > 0 {
		m.F1 = DefinedRatio(2 * m.Precision.Value * m.Recall.Value / (m.Precision.Value + m.Recall.Value))
	}

	return m, nil
}

func percent(r Ratio) Ratio {
	if !r.Defined {
		return r
	}
	return DefinedRatio(r.Value * 100)
}

// ClusterMetrics correlates cluster assignments with ground truth via a
// cluster-by-label cross-tabulation.
type ClusterMetrics struct {
	// CrossTab maps cluster id -> class label -> row count. The noise
	// sentinel appears as a cluster id when any row was left unassigned.
	CrossTab map[int]map[int]int `json:"cross_tab"`

	// ClusterCount excludes the noise sentinel.
	ClusterCount    int     `json:"cluster_count"`
	NoiseCount      int     `json:"noise_count"`
	NoisePercentage float64 `json:"noise_percentage"`

	TotalFraud      int `json:"total_fraud"`
	FraudInNoise    int `json:"fraud_in_noise"`
	FraudInClusters int `json:"fraud_in_clusters"`

	// FraudConcentration is the fraction of each non-noise cluster's rows
	// carrying the anomalous label.
	FraudConcentration map[int]float64 `json:"fraud_concentration"`
}

// AnalyzeCluster cross-tabulates cluster assignments against ground truth.
// A sentinel id that never occurs yields zero noise counts; absence of
// noise is a valid outcome, not a lookup failure.
func AnalyzeCluster(y, assignments []int) (*ClusterMetrics, error) {
	if len(y) != len(assignments) {
		return nil, configErrorf("ground truth has %d rows, assignments have %d", len(y), len(assignments))
	}
	if len(y) == 0 {
		return nil, configErrorf("empty input")
	}

	m := &ClusterMetrics{
		CrossTab:           map[int]map[int]int{},
		FraudConcentration: map[int]float64{},
	}
	for i, cluster := range assignments {
		row := m.CrossTab[cluster]
		if row == nil {
			row = map[int]int{}
			m.CrossTab[cluster] = row
		}
		row[y[i]]++
		if y[i] == LabelAnomaly {
			m.TotalFraud++
		}
	}

	for cluster, counts := range m.CrossTab {
		if cluster == estimators.Noise {
			continue
		}
		m.ClusterCount++
		total := counts[LabelNormal] + counts[LabelAnomaly]
		m.FraudConcentration[cluster] = float64(counts[LabelAnomaly]) / float64(total)
	}

	// Zero-default lookups: a run with no noise rows has no sentinel entry.
	m.NoiseCount = m.CrossTab[estimators.Noise][LabelNormal] + m.CrossTab[estimators.Noise][LabelAnomaly]
	m.FraudInNoise = m.CrossTab[estimators.Noise][LabelAnomaly]
	m.FraudInClusters = m.TotalFraud - m.FraudInNoise
	m.NoisePercentage = round2(float64(m.NoiseCount) / float64(len(y)) * 100)

	return m, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
