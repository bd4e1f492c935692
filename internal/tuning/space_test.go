package tuning

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func sixRanges() []ParamRange {
	return []ParamRange{
		{Name: "max_depth", Kind: Integer, Min: 2, Max: 12},
		{Name: "min_leaf", Kind: Integer, Min: 5, Max: 200},
		{Name: "learning_rate", Kind: Continuous, Min: 0.01, Max: 0.3},
		{Name: "subsample", Kind: Continuous, Min: 0.5, Max: 1.0},
		{Name: "feature_count", Kind: Integer, Min: 1, DataDriven: true},
		{Name: "lambda", Kind: Choice, Choices: []float64{0, 0.1, 1, 10}},
	}
}

func TestSampleDeterminism(t *testing.T) {
	build := func() []map[string]float64 {
		s, err := NewSpace(sixRanges())
		if err != nil {
			t.Fatalf("space: %v", err)
		}
		if err := s.Resolve(24); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		cands, err := s.Sample(20, 234)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		out := make([]map[string]float64, len(cands))
		for i, c := range cands {
			out[i] = c.Params
		}
		return out
	}

	a, b := build(), build()
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same (ranges, size, seed) produced different samples")
	}

	s, _ := NewSpace(sixRanges())
	_ = s.Resolve(24)
	other, err := s.Sample(20, 235)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	same := true
	for i := range other {
		if !reflect.DeepEqual(other[i].Params, a[i]) {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical samples")
	}
}

func TestSampleScenarioSize(t *testing.T) {
	s, err := NewSpace(sixRanges())
	if err != nil {
		t.Fatalf("space: %v", err)
	}
	if err := s.Resolve(24); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	cands, err := s.Sample(20, 234)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(cands) != 20 {
		t.Fatalf("got %d candidates, want 20", len(cands))
	}
	for i, c := range cands {
		if c.ID != i {
			t.Fatalf("candidate %d has ID %d", i, c.ID)
		}
		if len(c.Params) != 6 {
			t.Fatalf("candidate %d has %d params, want 6", i, len(c.Params))
		}
	}
}

func TestSampleMarginalCoverage(t *testing.T) {
	// LHS guarantee: with size bins, each bin of a continuous marginal is hit
	// exactly once.
	s, err := NewSpace([]ParamRange{{Name: "x", Kind: Continuous, Min: 0, Max: 1}})
	if err != nil {
		t.Fatalf("space: %v", err)
	}
	const size = 50
	cands, err := s.Sample(size, 7)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	hits := make([]int, size)
	for _, c := range cands {
		bin := int(c.Params["x"] * size)
		if bin == size {
			bin--
		}
		hits[bin]++
	}
	for b, h := range hits {
		if h != 1 {
			t.Fatalf("bin %d hit %d times, want exactly 1", b, h)
		}
	}
}

func TestSampleBounds(t *testing.T) {
	s, err := NewSpace(sixRanges())
	if err != nil {
		t.Fatalf("space: %v", err)
	}
	if err := s.Resolve(10); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	cands, err := s.Sample(100, 42)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	choices := map[float64]bool{0: true, 0.1: true, 1: true, 10: true}
	for _, c := range cands {
		if v := c.Params["max_depth"]; v < 2 || v > 12 || v != math.Trunc(v) {
			t.Fatalf("max_depth out of range or non-integer: %v", v)
		}
		if v := c.Params["feature_count"]; v < 1 || v > 10 {
			t.Fatalf("feature_count %v outside resolved [1,10]", v)
		}
		if v := c.Params["learning_rate"]; v < 0.01 || v > 0.3 {
			t.Fatalf("learning_rate out of range: %v", v)
		}
		if !choices[c.Params["lambda"]] {
			t.Fatalf("lambda %v not in choice set", c.Params["lambda"])
		}
	}
}

func TestSampleUnresolved(t *testing.T) {
	s, err := NewSpace(sixRanges())
	if err != nil {
		t.Fatalf("space: %v", err)
	}
	if _, err := s.Sample(10, 1); !errors.Is(err, ErrUnresolvedParam) {
		t.Fatalf("got %v, want ErrUnresolvedParam", err)
	}
}

func TestResolveFailure(t *testing.T) {
	s, err := NewSpace(sixRanges())
	if err != nil {
		t.Fatalf("space: %v", err)
	}
	if err := s.Resolve(0); err == nil {
		t.Fatal("resolving against zero features must fail")
	}
}

func TestSpaceValidation(t *testing.T) {
	if _, err := NewSpace(nil); err == nil {
		t.Fatal("empty space must fail")
	}
	if _, err := NewSpace([]ParamRange{{Name: "x", Kind: Continuous, Min: 2, Max: 1}}); err == nil {
		t.Fatal("inverted range must fail")
	}
	if _, err := NewSpace([]ParamRange{{Name: "x", Kind: Choice}}); err == nil {
		t.Fatal("empty choice set must fail")
	}
	if _, err := NewSpace([]ParamRange{
		{Name: "x", Kind: Continuous, Min: 0, Max: 1},
		{Name: "x", Kind: Continuous, Min: 0, Max: 1},
	}); err == nil {
		t.Fatal("duplicate name must fail")
	}

	s, err := NewSpace([]ParamRange{{Name: "x", Kind: Continuous, Min: 0, Max: 1}})
	if err != nil {
		t.Fatalf("space: %v", err)
	}
	if _, err := s.Sample(0, 1); !errors.Is(err, ErrEmptySpace) {
		t.Fatalf("got %v, want ErrEmptySpace", err)
	}
}
