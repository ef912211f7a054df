// Package trainer implements the pluggable trainer capability (C9): a
// narrow predict_proba contract plus a concrete logistic-regression
// implementation fit by gradient descent over a standardized feature
// matrix. Grounded on original_source's ml/trainer.py for the contract
// (MIN_SAMPLES gate, normal/lightweight parameter profiles, precision@K
// evaluation) and on TheManhattanProject-driver_pricing's
// logistic()/clamp()/meanStd() helpers plus gonum/stat standardization
// for the concrete numerics, since the corpus carries no LightGBM
// binding and gonum is the ecosystem's ML-adjacent numeric library.
package trainer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinSamples is the minimum labeled row count required to train
// (ml/trainer.py Trainer.MIN_SAMPLES).
const MinSamples = 100

// ErrInsufficientSamples is returned by Fit when called with fewer than
// MinSamples labeled rows.
var ErrInsufficientSamples = errors.New("trainer: fewer than minimum required samples")

// Predictor is the narrow contract the prediction service and backtest
// engine depend on: given a feature vector, return P(finish in top 3).
// A Predictor with no fitted model must return (0, nil) rather than
// erroring (spec §4.9 "MLProbability... 0 when no model is active").
type Predictor interface {
	PredictProba(features []float64) (float64, error)
}

// Profile selects a hyperparameter set. Lightweight trades accuracy for
// speed across the many retrains a walk-forward backtest performs.
type Profile struct {
	Iterations   int
	LearningRate float64
	L2           float64
}

// NormalProfile is the full-accuracy profile used for live predictions
// (ml/trainer.py _NORMAL_PARAMS: num_leaves=31, learning_rate=0.05,
// n_estimators=100 — reexpressed here as gradient-descent iterations,
// step size and L2 strength of comparable weight).
var NormalProfile = Profile{Iterations: 300, LearningRate: 0.05, L2: 1e-3}

// LightweightProfile is the backtest-speed profile (ml/trainer.py
// _LIGHTWEIGHT_PARAMS: num_leaves=15, learning_rate=0.1, n_estimators=50).
var LightweightProfile = Profile{Iterations: 150, LearningRate: 0.1, L2: 1e-3}

// LogisticTrainer is a standardized-feature logistic regression model
// trained by batch gradient descent, implementing Predictor.
type LogisticTrainer struct {
	profile Profile

	weights []float64
	bias    float64
	mu      []float64
	sigma   []float64
	fitted  bool
}

// New builds a trainer for the given profile.
func New(profile Profile) *LogisticTrainer {
	return &LogisticTrainer{profile: profile}
}

// NewNormal builds a trainer with NormalProfile.
func NewNormal() *LogisticTrainer { return New(NormalProfile) }

// NewLightweight builds a trainer with LightweightProfile.
func NewLightweight() *LogisticTrainer { return New(LightweightProfile) }

// Fit trains the model on rows X (n_samples x n_features) against binary
// labels y (1: finished top 3, 0: otherwise). Returns ErrInsufficientSamples
// if len(X) < MinSamples, matching the original's MIN_SAMPLES warning
// threshold but enforced as a hard precondition here (spec §4.9 "must not
// train below the minimum").
func (t *LogisticTrainer) Fit(X [][]float64, y []float64) error {
	if len(X) < MinSamples {
		return fmt.Errorf("%w: got %d, need %d", ErrInsufficientSamples, len(X), MinSamples)
	}
	if len(X) != len(y) {
		return fmt.Errorf("trainer: X has %d rows but y has %d labels", len(X), len(y))
	}

	nFeatures := len(X[0])
	mu := make([]float64, nFeatures)
	sigma := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		col := make([]float64, 0, len(X))
		for _, row := range X {
			if !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		if len(col) == 0 {
			mu[j], sigma[j] = 0, 1
			continue
		}
		m, s := stat.MeanStdDev(col, nil)
		if s == 0 {
			s = 1
		}
		mu[j], sigma[j] = m, s
	}

	standardized := mat.NewDense(len(X), nFeatures, nil)
	for i, row := range X {
		for j, v := range row {
			if math.IsNaN(v) {
				standardized.Set(i, j, 0)
				continue
			}
			standardized.Set(i, j, (v-mu[j])/sigma[j])
		}
	}

	weights := make([]float64, nFeatures)
	var bias float64

	n := float64(len(X))
	for iter := 0; iter < t.profile.Iterations; iter++ {
		gradW := make([]float64, nFeatures)
		var gradB float64

		for i := 0; i < len(X); i++ {
			row := standardized.RawRowView(i)
			z := bias
			for j, w := range weights {
				z += w * row[j]
			}
			pred := logistic(z)
			err := pred - y[i]

			for j := range gradW {
				gradW[j] += err * row[j]
			}
			gradB += err
		}

		for j := range weights {
			grad := gradW[j]/n + t.profile.L2*weights[j]
			weights[j] -= t.profile.LearningRate * grad
		}
		bias -= t.profile.LearningRate * gradB / n
	}

	t.weights = weights
	t.bias = bias
	t.mu = mu
	t.sigma = sigma
	t.fitted = true
	return nil
}

// PredictProba implements Predictor. An untrained model returns (0, nil).
func (t *LogisticTrainer) PredictProba(features []float64) (float64, error) {
	if !t.fitted {
		return 0, nil
	}
	if len(features) != len(t.weights) {
		return 0, fmt.Errorf("trainer: expected %d features, got %d", len(t.weights), len(features))
	}

	z := t.bias
	for j, w := range t.weights {
		v := features[j]
		if math.IsNaN(v) {
			continue
		}
		z += w * (v - t.mu[j]) / t.sigma[j]
	}
	return logistic(z), nil
}

// Evaluation holds held-out validation metrics from Evaluate (spec
// SPEC_FULL.md §4 "precision@K reporting"; optional, not required by
// predict_proba callers).
type Evaluation struct {
	PrecisionAt1 float64
	PrecisionAt3 float64
}

// Evaluate reports precision@1 and precision@3 of the already-fitted
// model on a held-out (valX, valY) fold, and returns an error if Fit has
// not succeeded (ml/trainer.py's
// train_with_cv precision@K metrics, simplified to a single fold since
// the walk-forward backtest already provides chronological splits).
func (t *LogisticTrainer) Evaluate(valX [][]float64, valY []float64) (Evaluation, error) {
	if !t.fitted {
		return Evaluation{}, errors.New("trainer: model must be fit before evaluation")
	}

	rows := make([]scoredRow, len(valX))
	for i, row := range valX {
		p, err := t.PredictProba(row)
		if err != nil {
			return Evaluation{}, err
		}
		rows[i] = scoredRow{proba: p, label: valY[i]}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].proba > rows[j].proba })

	return Evaluation{
		PrecisionAt1: precisionAtK(rows, 1),
		PrecisionAt3: precisionAtK(rows, 3),
	}, nil
}

type scoredRow struct {
	proba float64
	label float64
}

func precisionAtK(rows []scoredRow, k int) float64 {
	if k > len(rows) {
		k = len(rows)
	}
	if k == 0 {
		return 0
	}
	var hits float64
	for i := 0; i < k; i++ {
		hits += rows[i].label
	}
	return hits / float64(k)
}

func logistic(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
