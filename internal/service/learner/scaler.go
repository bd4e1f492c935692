package learner

import (
	"context"
	"fmt"
	"math"

	"VolTune/internal/domain/models"
	drepo "VolTune/internal/domain/repository"
)

// Scaled wraps a learner with per-feature standardization. The scaling
// statistics are fit on the training slice only and reapplied, never refit,
// to whatever slice is scored later. This keeps the leakage invariant for
// preprocessing: no transform ever sees data from the future relative to the
// slice it trains on.
type Scaled struct {
	inner drepo.Learner
}

// WithScaling wraps inner with train-fitted standardization.
func WithScaling(inner drepo.Learner) *Scaled {
	return &Scaled{inner: inner}
}

type scaledModel struct {
	inner drepo.FittedModel
	mean  []float64
	std   []float64
}

func (s *Scaled) Fit(ctx context.Context, train *models.Dataset, cand models.Candidate) (drepo.FittedModel, error) {
	if train.Len() == 0 {
		return nil, fmt.Errorf("learner: empty training slice")
	}
	mean, std := fitStats(train)
	model, err := s.inner.Fit(ctx, transform(train, mean, std), cand)
	if err != nil {
		return nil, err
	}
	return &scaledModel{inner: model, mean: mean, std: std}, nil
}

func (s *Scaled) Predict(ctx context.Context, m drepo.FittedModel, data *models.Dataset) ([]float64, error) {
	sm, ok := m.(*scaledModel)
	if !ok {
		return nil, fmt.Errorf("learner: foreign model %T", m)
	}
	return s.inner.Predict(ctx, sm.inner, transform(data, sm.mean, sm.std))
}

func fitStats(ds *models.Dataset) (mean, std []float64) {
	nf := len(ds.FeatureNames)
	mean = make([]float64, nf)
	std = make([]float64, nf)
	n := float64(ds.Len())
	for _, r := range ds.Rows {
		for j, v := range r.Features {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, r := range ds.Rows {
		for j, v := range r.Features {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return mean, std
}

// transform returns a copy of ds with standardized features; source rows stay
// untouched.
func transform(ds *models.Dataset, mean, std []float64) *models.Dataset {
	rows := make([]models.Observation, len(ds.Rows))
	for i, r := range ds.Rows {
		feats := make([]float64, len(r.Features))
		for j, v := range r.Features {
			feats[j] = (v - mean[j]) / std[j]
		}
		rows[i] = models.Observation{Entity: r.Entity, Ts: r.Ts, Features: feats, Label: r.Label}
	}
	return &models.Dataset{FeatureNames: ds.FeatureNames, Rows: rows}
}
