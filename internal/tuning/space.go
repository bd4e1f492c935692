package tuning

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"VolTune/internal/domain/models"
)

// ParamKind classifies a tunable parameter's range.
type ParamKind int

const (
	// Continuous samples a float uniformly within [Min, Max].
	Continuous ParamKind = iota
	// Integer samples a whole number within [Min, Max].
	Integer
	// Choice samples one of the declared numeric levels.
	Choice
)

// ParamRange declares one tunable dimension. A range with DataDriven set has
// its upper bound finalized against the training set's feature count during
// Resolve; sampling such a range before resolution is a configuration error.
type ParamRange struct {
	Name       string
	Kind       ParamKind
	Min        float64
	Max        float64
	Choices    []float64
	DataDriven bool
}

// Space is a two-phase hyperparameter space: declare ranges, resolve
// data-dependent bounds against the actual training set, then sample.
type Space struct {
	params   []ParamRange
	resolved bool
}

// NewSpace validates the declared ranges. Ranges are kept in a deterministic
// order (sorted by name) so sampling depends only on (ranges, size, seed).
func NewSpace(ranges []ParamRange) (*Space, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("tuning: parameter space has no ranges")
	}
	params := make([]ParamRange, len(ranges))
	copy(params, ranges)
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })

	seen := make(map[string]struct{}, len(params))
	needResolve := false
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("tuning: parameter range without name")
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("tuning: duplicate parameter range %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		switch p.Kind {
		case Choice:
			if len(p.Choices) == 0 {
				return nil, fmt.Errorf("tuning: parameter %q has empty choice set", p.Name)
			}
		case Continuous, Integer:
			if p.DataDriven {
				needResolve = true
				continue
			}
			if p.Min > p.Max {
				return nil, fmt.Errorf("tuning: parameter %q has min %v > max %v", p.Name, p.Min, p.Max)
			}
		default:
			return nil, fmt.Errorf("tuning: parameter %q has unknown kind %d", p.Name, p.Kind)
		}
	}
	return &Space{params: params, resolved: !needResolve}, nil
}

// Resolve finalizes data-driven ranges against the training set's feature
// count. Must be called after the training set is fixed and before Sample.
// A feature count below one is a fatal configuration error.
func (s *Space) Resolve(featureCount int) error {
	if featureCount < 1 {
		return fmt.Errorf("tuning: cannot resolve parameter space with %d usable features", featureCount)
	}
	for i := range s.params {
		p := &s.params[i]
		if !p.DataDriven {
			continue
		}
		p.Max = float64(featureCount)
		if p.Min < 1 {
			p.Min = 1
		}
		if p.Min > p.Max {
			return fmt.Errorf("tuning: parameter %q min %v exceeds feature count %d", p.Name, p.Min, featureCount)
		}
	}
	s.resolved = true
	return nil
}

// Sample draws size candidates with a Latin-hypercube-style design: each
// parameter's range is stratified into size equal-probability bins, the bin
// order is permuted independently per parameter, and one point is drawn
// uniformly inside each bin. Marginal coverage is uniform even though the
// joint sample is not a grid. Deterministic given (ranges, size, seed);
// duplicate candidates are permitted and merely cost an extra evaluation.
func (s *Space) Sample(size, seed int) ([]models.Candidate, error) {
	if size <= 0 {
		return nil, ErrEmptySpace
	}
	if !s.resolved {
		return nil, ErrUnresolvedParam
	}

	rng := rand.New(rand.NewSource(int64(seed)))
	cands := make([]models.Candidate, size)
	for i := range cands {
		cands[i] = models.Candidate{ID: i, Params: make(map[string]float64, len(s.params))}
	}

	for _, p := range s.params {
		perm := rng.Perm(size)
		for i := 0; i < size; i++ {
			u := (float64(perm[i]) + rng.Float64()) / float64(size)
			cands[i].Params[p.Name] = p.value(u)
		}
	}
	return cands, nil
}

// Names returns the parameter names in sampling order.
func (s *Space) Names() []string {
	out := make([]string, len(s.params))
	for i, p := range s.params {
		out[i] = p.Name
	}
	return out
}

func (p ParamRange) value(u float64) float64 {
	switch p.Kind {
	case Choice:
		idx := int(u * float64(len(p.Choices)))
		if idx >= len(p.Choices) {
			idx = len(p.Choices) - 1
		}
		return p.Choices[idx]
	case Integer:
		v := math.Round(p.Min + u*(p.Max-p.Min))
		return math.Min(math.Max(v, p.Min), p.Max)
	default:
		return p.Min + u*(p.Max-p.Min)
	}
}
