package ports

import (
	"math/rand"

	"leakcheck/domain/core"
)

// ModelFamily identifies an estimator family with fixed hyperparameters.
// A family is constructed once and fit per split; fitted models are discarded
// after scoring except for retained coefficients.
type ModelFamily interface {
	// Key names the family for score/coefficient bookkeeping.
	Key() core.ModelKey

	// Fit trains on the given rows only. X is (n,k); y is length n.
	Fit(X [][]float64, y []float64) (FittedModel, error)

	// HasCoefficients declares up front whether fitted models expose linear
	// coefficients, replacing speculative attribute probing with an explicit
	// capability query.
	HasCoefficients() bool
}

// FittedModel is the per-split product of a ModelFamily.
type FittedModel interface {
	// Predict scores each row of X.
	Predict(X [][]float64) []float64

	// Coefficients returns the length-k weight vector when the family
	// exposes one; ok is false otherwise.
	Coefficients() ([]float64, bool)
}

// SearchableFamily is implemented by families supporting hyperparameter
// search. The search must be restricted to the provided training rows; it
// must never see held-out data under any selection mode.
type SearchableFamily interface {
	ModelFamily

	// FitWithSearch optimizes hyperparameters within the training rows using
	// rng for any internal shuffling, then refits on all training rows.
	// Returns the fitted model and the chosen parameter value.
	FitWithSearch(X [][]float64, y []float64, rng *rand.Rand) (FittedModel, float64, error)
}
