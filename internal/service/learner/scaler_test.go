package learner

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"VolTune/internal/domain/models"
	drepo "VolTune/internal/domain/repository"
)

// captureLearner records the datasets it was fit and scored with.
type captureLearner struct {
	fitData     *models.Dataset
	predictData *models.Dataset
}

type captureModel struct{}

func (c *captureLearner) Fit(_ context.Context, train *models.Dataset, _ models.Candidate) (drepo.FittedModel, error) {
	c.fitData = train
	return captureModel{}, nil
}

func (c *captureLearner) Predict(_ context.Context, _ drepo.FittedModel, data *models.Dataset) ([]float64, error) {
	c.predictData = data
	return make([]float64, data.Len()), nil
}

func panel(n int, offset float64, seed int64) *models.Dataset {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.Observation, n)
	for i := range rows {
		rows[i] = models.Observation{
			Entity:   "firm-1",
			Ts:       base.AddDate(0, i, 0),
			Features: []float64{offset + rng.NormFloat64(), 10 * rng.NormFloat64()},
			Label:    float64(i % 2),
		}
	}
	return &models.Dataset{FeatureNames: []string{"a", "b"}, Rows: rows}
}

func TestScalingFitOnTrainOnly(t *testing.T) {
	train := panel(200, 5, 1)
	// validation slice drawn from a shifted distribution
	val := panel(50, 50, 2)

	inner := &captureLearner{}
	scaled := WithScaling(inner)

	model, err := scaled.Fit(context.Background(), train, models.Candidate{ID: 0})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	// the train slice the inner learner saw must be standardized
	var sum float64
	for _, r := range inner.fitData.Rows {
		sum += r.Features[0]
	}
	if mean := sum / float64(inner.fitData.Len()); math.Abs(mean) > 1e-9 {
		t.Fatalf("standardized train mean %v, want ~0", mean)
	}

	if _, err := scaled.Predict(context.Background(), model, val); err != nil {
		t.Fatalf("predict: %v", err)
	}

	// the validation slice is transformed with TRAIN statistics, so its shifted
	// mean must survive: (50 - ~5) / ~1 is far from zero. Refitting on the
	// validation slice would have centered it.
	sum = 0
	for _, r := range inner.predictData.Rows {
		sum += r.Features[0]
	}
	if mean := sum / float64(inner.predictData.Len()); mean < 10 {
		t.Fatalf("validation transformed with refit statistics (mean %v)", mean)
	}
}

func TestScalingDoesNotMutateSource(t *testing.T) {
	train := panel(100, 3, 3)
	orig := train.Rows[0].Features[0]

	if _, err := WithScaling(&captureLearner{}).Fit(context.Background(), train, models.Candidate{}); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if train.Rows[0].Features[0] != orig {
		t.Fatal("scaling mutated the read-only source dataset")
	}
}

func TestSubsetHelpers(t *testing.T) {
	rng := rand.New(rand.NewSource(9))

	rows := rowSubset(rng, 100, 0.5)
	if len(rows) != 50 {
		t.Fatalf("got %d rows, want 50", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i] <= rows[i-1] {
			t.Fatal("row subset must preserve ascending time order")
		}
	}
	if rowSubset(rng, 100, 1.0) != nil {
		t.Fatal("full fraction must select all rows")
	}

	cols := colSubset(rng, 20, 5)
	if len(cols) != 5 {
		t.Fatalf("got %d cols, want 5", len(cols))
	}
	cols = colSubset(rng, 4, 99)
	if len(cols) != 4 {
		t.Fatalf("oversized k must clamp to all columns, got %d", len(cols))
	}
	if len(colSubset(rng, 6, 0)) != 1 {
		t.Fatal("k below one must clamp to a single column")
	}
}
