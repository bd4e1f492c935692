package tuning

import (
	"fmt"

	"VolTune/internal/domain/models"
)

// Window holds rolling-window sizes in rows: Lookback is the train span,
// Assess the validation span, Step the advance between consecutive folds.
type Window struct {
	Lookback int
	Assess   int
	Step     int
}

// Split produces strictly time-ordered rolling folds over a dataset of n sorted
// rows. Fold k trains on [k*step, k*step+lookback) and validates on the assess
// rows immediately after, so no validation row can precede a train row within a
// fold. Trailing rows that cannot fill a complete train+assess window are
// dropped. A dataset shorter than lookback+assess yields an empty slice, not an
// error; callers must treat zero folds as fatal for tuning.
func Split(n int, w Window) ([]models.Fold, error) {
	if w.Lookback <= 0 || w.Assess <= 0 || w.Step <= 0 {
		return nil, fmt.Errorf("%w: lookback=%d assess=%d step=%d", ErrBadWindow, w.Lookback, w.Assess, w.Step)
	}

	var folds []models.Fold
	for start := 0; start+w.Lookback+w.Assess <= n; start += w.Step {
		folds = append(folds, models.Fold{
			ID:         len(folds),
			TrainStart: start,
			TrainEnd:   start + w.Lookback,
			ValStart:   start + w.Lookback,
			ValEnd:     start + w.Lookback + w.Assess,
		})
	}
	return folds, nil
}

// SplitDataset validates ordering and splits over the dataset length.
func SplitDataset(ds *models.Dataset, w Window) ([]models.Fold, error) {
	if !ds.Sorted() {
		return nil, ErrUnsorted
	}
	return Split(ds.Len(), w)
}

// HoldoutSplit cuts the sorted dataset time-ordered into a training portion and
// a trailing test portion of testFraction rows. The test portion is touched
// exactly once, by the final evaluator.
func HoldoutSplit(ds *models.Dataset, testFraction float64) (train, test *models.Dataset, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("tuning: test fraction %v outside (0,1)", testFraction)
	}
	if !ds.Sorted() {
		return nil, nil, ErrUnsorted
	}
	n := ds.Len()
	cut := n - int(float64(n)*testFraction)
	if cut <= 0 || cut >= n {
		return nil, nil, fmt.Errorf("tuning: holdout split degenerate for %d rows", n)
	}
	return ds.Slice(0, cut), ds.Slice(cut, n), nil
}
