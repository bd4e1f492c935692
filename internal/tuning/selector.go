package tuning

import (
	"fmt"
	"sort"

	"VolTune/internal/domain/models"
)

// Select aggregates the mean metric per candidate across folds, excluding
// failure-marked records, and returns the candidate with the highest mean.
// Ties break toward the candidate generated earliest (lowest ID). A candidate
// with zero successful records is excluded; if every candidate is excluded the
// selection fails fatally. Pure function of its input.
func Select(records []models.MetricRecord, cands []models.Candidate, kind MetricKind) (*models.SelectionResult, error) {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range records {
		if r.Failed || r.Metric != string(kind) {
			continue
		}
		sums[r.CandidateID] += r.Value
		counts[r.CandidateID]++
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: %d records over %d candidates", ErrSelectionExhausted, len(records), len(cands))
	}

	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	bestID := -1
	bestMean := 0.0
	for _, id := range ids {
		mean := sums[id] / float64(counts[id])
		if bestID < 0 || mean > bestMean {
			bestID = id
			bestMean = mean
		}
	}

	var params map[string]float64
	for _, c := range cands {
		if c.ID == bestID {
			params = c.Params
			break
		}
	}

	return &models.SelectionResult{
		CandidateID: bestID,
		Params:      params,
		MeanScore:   bestMean,
		Metric:      string(kind),
		Records:     records,
	}, nil
}
