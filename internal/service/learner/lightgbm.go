package learner

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"VolTune/internal/domain/models"
	drepo "VolTune/internal/domain/repository"

	"github.com/YuminosukeSato/scigo/sklearn/lightgbm"
	"gonum.org/v1/gonum/mat"
)

// Parameter names understood by the adapter. These are the tunable dimensions
// declared in the configured space; anything else in a candidate is ignored.
const (
	ParamMaxDepth     = "max_depth"
	ParamMinLeaf      = "min_leaf"
	ParamLearningRate = "learning_rate"
	ParamSubsample    = "subsample"
	ParamFeatureCount = "feature_count"
	ParamLambda       = "lambda"
)

// LightGBM adapts the scigo gradient-boosted-tree trainer to the Learner
// boundary. Row subsampling and feature-column sampling are applied here, on
// the design matrix, so the trainer itself stays a black box: the fitted model
// remembers its column subset and reapplies it at prediction time.
type LightGBM struct {
	iterations int
}

// NewLightGBM creates the adapter. iterations <= 0 selects 100 boosting rounds.
func NewLightGBM(iterations int) *LightGBM {
	if iterations <= 0 {
		iterations = 100
	}
	return &LightGBM{iterations: iterations}
}

type boostedModel struct {
	predictor *lightgbm.Predictor
	cols      []int
}

// Fit trains one boosted model on the train slice with the candidate's
// hyperparameters. Blocking; checks ctx once up front since a fit-then-score
// unit of work never suspends mid-flight.
func (l *LightGBM) Fit(ctx context.Context, train *models.Dataset, cand models.Candidate) (drepo.FittedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if train.Len() == 0 {
		return nil, fmt.Errorf("learner: empty training slice")
	}
	nFeatures := len(train.FeatureNames)
	if nFeatures == 0 {
		return nil, fmt.Errorf("learner: no features")
	}

	p := cand.Params
	params := lightgbm.TrainingParams{
		NumIterations: l.iterations,
		LearningRate:  paramOr(p, ParamLearningRate, 0.1),
		NumLeaves:     31,
		MaxDepth:      int(paramOr(p, ParamMaxDepth, -1)),
		MinDataInLeaf: int(paramOr(p, ParamMinLeaf, 20)),
		Lambda:        paramOr(p, ParamLambda, 0),
		Objective:     "binary",
		Metric:        "auc",
		Seed:          cand.ID,
		Verbosity:     0,
	}

	// deterministic per candidate so repeated fits agree
	rng := rand.New(rand.NewSource(int64(cand.ID)*1103515245 + 12345))
	rows := rowSubset(rng, train.Len(), paramOr(p, ParamSubsample, 1))
	cols := colSubset(rng, nFeatures, int(paramOr(p, ParamFeatureCount, float64(nFeatures))))

	X, y := designMatrix(train, rows, cols)
	trainer := lightgbm.NewTrainer(params)
	if err := trainer.Fit(X, y); err != nil {
		return nil, fmt.Errorf("learner: fit candidate %d: %w", cand.ID, err)
	}

	return &boostedModel{
		predictor: lightgbm.NewPredictor(trainer.GetModel()),
		cols:      cols,
	}, nil
}

// Predict scores every row of data in [0,1] using the model's column subset.
func (l *LightGBM) Predict(ctx context.Context, m drepo.FittedModel, data *models.Dataset) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bm, ok := m.(*boostedModel)
	if !ok {
		return nil, fmt.Errorf("learner: foreign model %T", m)
	}
	if data.Len() == 0 {
		return nil, fmt.Errorf("learner: empty prediction slice")
	}

	X, _ := designMatrix(data, nil, bm.cols)
	pred, err := bm.predictor.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("learner: predict: %w", err)
	}

	out := make([]float64, data.Len())
	raw := false
	for i := range out {
		out[i] = pred.At(i, 0)
		if out[i] < 0 || out[i] > 1 {
			raw = true
		}
	}
	if raw {
		// raw margin output, squash to a probability scale
		for i := range out {
			out[i] = 1 / (1 + math.Exp(-out[i]))
		}
	}
	return out, nil
}

// designMatrix builds the gonum design matrix over the given row and column
// subsets. nil rows selects every row; cols must be non-empty.
func designMatrix(ds *models.Dataset, rows, cols []int) (*mat.Dense, *mat.Dense) {
	if rows == nil {
		rows = make([]int, ds.Len())
		for i := range rows {
			rows[i] = i
		}
	}
	X := mat.NewDense(len(rows), len(cols), nil)
	y := mat.NewDense(len(rows), 1, nil)
	for i, r := range rows {
		obs := ds.Rows[r]
		for j, c := range cols {
			X.Set(i, j, obs.Features[c])
		}
		y.Set(i, 0, obs.Label)
	}
	return X, y
}

// rowSubset samples frac*n rows without replacement, preserving time order.
func rowSubset(rng *rand.Rand, n int, frac float64) []int {
	if frac >= 1 || frac <= 0 {
		return nil
	}
	k := int(math.Round(frac * float64(n)))
	if k < 1 {
		k = 1
	}
	if k >= n {
		return nil
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

// colSubset samples k feature columns without replacement, in ascending order.
func colSubset(rng *rand.Rand, n, k int) []int {
	if k < 1 {
		k = 1
	}
	if k >= n {
		cols := make([]int, n)
		for i := range cols {
			cols[i] = i
		}
		return cols
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

func paramOr(p map[string]float64, name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}
