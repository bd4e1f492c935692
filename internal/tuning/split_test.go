package tuning

import (
	"errors"
	"testing"
	"time"

	"VolTune/internal/domain/models"
)

func TestSplitFoldCount(t *testing.T) {
	cases := []struct {
		n, lookback, assess, step int
		want                      int
	}{
		{19000, 10000, 4000, 5000, 2},
		{100, 60, 20, 20, 2},
		{100, 60, 20, 10, 3},
		{80, 60, 20, 10, 1},
		{79, 60, 20, 10, 0},
		{0, 10, 5, 5, 0},
	}
	for _, c := range cases {
		folds, err := Split(c.n, Window{Lookback: c.lookback, Assess: c.assess, Step: c.step})
		if err != nil {
			t.Fatalf("split n=%d: %v", c.n, err)
		}
		if len(folds) != c.want {
			t.Fatalf("n=%d L=%d A=%d S=%d: got %d folds, want %d", c.n, c.lookback, c.assess, c.step, len(folds), c.want)
		}
	}
}

func TestSplitScenario(t *testing.T) {
	folds, err := Split(19000, Window{Lookback: 10000, Assess: 4000, Step: 5000})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(folds) != 2 {
		t.Fatalf("got %d folds, want 2", len(folds))
	}
	want := []models.Fold{
		{ID: 0, TrainStart: 0, TrainEnd: 10000, ValStart: 10000, ValEnd: 14000},
		{ID: 1, TrainStart: 5000, TrainEnd: 15000, ValStart: 15000, ValEnd: 19000},
	}
	for i, f := range folds {
		if f != want[i] {
			t.Fatalf("fold %d = %+v, want %+v", i, f, want[i])
		}
	}
}

func TestSplitNoLeakage(t *testing.T) {
	for _, step := range []int{3, 10, 25} {
		folds, err := Split(200, Window{Lookback: 50, Assess: 20, Step: step})
		if err != nil {
			t.Fatalf("split step=%d: %v", step, err)
		}
		for _, f := range folds {
			if f.ValStart < f.TrainEnd {
				t.Fatalf("step=%d fold %d: validation [%d,%d) overlaps train [%d,%d)",
					step, f.ID, f.ValStart, f.ValEnd, f.TrainStart, f.TrainEnd)
			}
		}
		for i := 1; i < len(folds); i++ {
			if folds[i].TrainStart != folds[i-1].TrainStart+step {
				t.Fatalf("fold %d train start %d, want %d", i, folds[i].TrainStart, folds[i-1].TrainStart+step)
			}
		}
	}
}

func TestSplitBadWindow(t *testing.T) {
	for _, w := range []Window{{0, 5, 5}, {5, 0, 5}, {5, 5, 0}, {-1, 5, 5}} {
		if _, err := Split(100, w); !errors.Is(err, ErrBadWindow) {
			t.Fatalf("window %+v: got %v, want ErrBadWindow", w, err)
		}
	}
}

func TestSplitDatasetUnsorted(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ds := &models.Dataset{Rows: []models.Observation{
		{Ts: base.AddDate(0, 1, 0)},
		{Ts: base},
	}}
	if _, err := SplitDataset(ds, Window{Lookback: 1, Assess: 1, Step: 1}); !errors.Is(err, ErrUnsorted) {
		t.Fatalf("got %v, want ErrUnsorted", err)
	}
}

func TestHoldoutSplit(t *testing.T) {
	ds := syntheticPanel(100, 3, 7)
	train, test, err := HoldoutSplit(ds, 0.2)
	if err != nil {
		t.Fatalf("holdout: %v", err)
	}
	if train.Len() != 80 || test.Len() != 20 {
		t.Fatalf("got %d/%d, want 80/20", train.Len(), test.Len())
	}
	// test portion must be strictly later than the training portion
	if !test.Rows[0].Ts.After(train.Rows[train.Len()-1].Ts) {
		t.Fatalf("test starts at %v, not after train end %v", test.Rows[0].Ts, train.Rows[train.Len()-1].Ts)
	}

	if _, _, err := HoldoutSplit(ds, 0); err == nil {
		t.Fatal("expected error for zero test fraction")
	}
	if _, _, err := HoldoutSplit(ds, 1.5); err == nil {
		t.Fatal("expected error for fraction above one")
	}
}
