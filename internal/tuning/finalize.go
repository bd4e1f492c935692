package tuning

import (
	"context"
	"fmt"
	"time"

	"VolTune/internal/domain/models"
	drepo "VolTune/internal/domain/repository"
)

// Finalize refits the learner with the selected candidate on the entire
// training set and scores once on the untouched test set. Runs exactly once
// per tuning run; the result is terminal and never feeds back into selection.
// Any failure here is fatal to the run.
func Finalize(ctx context.Context, learner drepo.Learner, cand models.Candidate, train, test *models.Dataset, kind MetricKind) (drepo.FittedModel, *models.FinalReport, error) {
	model, err := learner.Fit(ctx, train, cand)
	if err != nil {
		return nil, nil, fmt.Errorf("final fit candidate %d: %w", cand.ID, err)
	}
	scores, err := learner.Predict(ctx, model, test)
	if err != nil {
		return nil, nil, fmt.Errorf("final predict candidate %d: %w", cand.ID, err)
	}

	labels := test.Labels()
	value, err := Score(kind, labels, scores)
	if err != nil {
		return nil, nil, fmt.Errorf("final score candidate %d: %w", cand.ID, err)
	}

	report := &models.FinalReport{
		CandidateID: cand.ID,
		Params:      cand.Params,
		Metric:      string(kind),
		Score:       value,
		Accuracy:    Accuracy(labels, scores),
		Confusion:   ConfusionMatrix(labels, scores),
		TrainRows:   train.Len(),
		TestRows:    test.Len(),
		FinishedAt:  time.Now().UTC(),
	}
	return model, report, nil
}
