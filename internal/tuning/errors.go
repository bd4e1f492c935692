package tuning

import "errors"

// Fatal error taxonomy for a tuning run. Evaluation-pair failures are never
// errors; they are failure-marked records.
var (
	// ErrBadWindow reports non-positive lookback, assess, or step.
	ErrBadWindow = errors.New("tuning: lookback, assess and step must be positive")

	// ErrUnsorted reports a dataset that is not ascending by timestamp.
	ErrUnsorted = errors.New("tuning: dataset is not sorted by timestamp")

	// ErrNoFolds reports a dataset too short to produce a single fold.
	ErrNoFolds = errors.New("tuning: dataset shorter than lookback+assess, no folds")

	// ErrEmptySpace reports a sampler call that would produce zero candidates.
	ErrEmptySpace = errors.New("tuning: sample size must be positive")

	// ErrUnresolvedParam reports sampling before data-dependent resolution.
	ErrUnresolvedParam = errors.New("tuning: parameter space has unresolved data-dependent ranges")

	// ErrSelectionExhausted reports that every candidate failed on every fold.
	ErrSelectionExhausted = errors.New("tuning: no candidate has a successful record")
)
