package models

import "time"

// Observation is one firm-month row of the panel: entity key, month timestamp,
// numeric feature vector, and a binary label (1 = high relative volatility).
type Observation struct {
	Entity   string
	Ts       time.Time
	Features []float64
	Label    float64
}

// Dataset is a chronologically ordered panel of observations. Rows must be
// sorted ascending by Ts before any windowing is applied.
type Dataset struct {
	FeatureNames []string
	Rows         []Observation
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Slice returns a borrowing view of rows [lo, hi). The view shares backing
// storage with the parent; callers must treat rows as read-only.
func (d *Dataset) Slice(lo, hi int) *Dataset {
	return &Dataset{FeatureNames: d.FeatureNames, Rows: d.Rows[lo:hi]}
}

// Labels returns the label column.
func (d *Dataset) Labels() []float64 {
	out := make([]float64, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Label
	}
	return out
}

// Sorted reports whether rows are ascending by timestamp.
func (d *Dataset) Sorted() bool {
	for i := 1; i < len(d.Rows); i++ {
		if d.Rows[i].Ts.Before(d.Rows[i-1].Ts) {
			return false
		}
	}
	return true
}
