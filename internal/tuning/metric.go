package tuning

import (
	"errors"
	"fmt"
	"sort"

	"VolTune/internal/domain/models"
)

// MetricKind names a scoring metric.
type MetricKind string

const (
	MetricAUC      MetricKind = "auc"
	MetricAccuracy MetricKind = "accuracy"
)

// ErrDegenerate reports a slice with a single label class, for which ranking
// metrics are undefined. Treated as a recoverable per-pair failure.
var ErrDegenerate = errors.New("tuning: single label class in slice")

// ParseMetric validates a metric name.
func ParseMetric(s string) (MetricKind, error) {
	switch MetricKind(s) {
	case MetricAUC, MetricAccuracy:
		return MetricKind(s), nil
	default:
		return "", fmt.Errorf("tuning: unknown metric %q", s)
	}
}

// Score computes the metric over per-row scores against binary labels.
func Score(kind MetricKind, labels, scores []float64) (float64, error) {
	if len(labels) != len(scores) {
		return 0, fmt.Errorf("tuning: %d labels vs %d scores", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return 0, fmt.Errorf("tuning: empty slice to score")
	}
	switch kind {
	case MetricAUC:
		return AUC(labels, scores)
	case MetricAccuracy:
		return Accuracy(labels, scores), nil
	default:
		return 0, fmt.Errorf("tuning: unknown metric %q", kind)
	}
}

// AUC computes the area under the ROC curve by the rank-sum (Mann-Whitney)
// identity, with average ranks for tied scores. Returns ErrDegenerate when the
// slice contains a single class.
func AUC(labels, scores []float64) (float64, error) {
	n := len(scores)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		// average rank across the tie group, 1-based
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var pos, rankSum float64
	for i, y := range labels {
		if y > 0.5 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(n) - pos
	if pos == 0 || neg == 0 {
		return 0, ErrDegenerate
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg), nil
}

// Accuracy computes the share of correct predictions at the 0.5 threshold.
func Accuracy(labels, scores []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	correct := 0
	for i, y := range labels {
		pred := 0.0
		if scores[i] >= 0.5 {
			pred = 1
		}
		if (y > 0.5) == (pred > 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

// ConfusionMatrix tallies predictions at the 0.5 threshold.
func ConfusionMatrix(labels, scores []float64) models.Confusion {
	var c models.Confusion
	for i, y := range labels {
		pred := scores[i] >= 0.5
		actual := y > 0.5
		switch {
		case pred && actual:
			c.TP++
		case pred && !actual:
			c.FP++
		case !pred && actual:
			c.FN++
		default:
			c.TN++
		}
	}
	return c
}
