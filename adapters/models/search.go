package models

import (
	"math/rand"

	"leakcheck/domain/core"
	"leakcheck/domain/eval"
	"leakcheck/ports"
)

// Hyperparameter search: an inner holdout carved from the training rows
// only. The held-out evaluation partition of the outer split is never
// visible here, under any selection mode.

const innerHoldoutFraction = 0.25

// FitWithSearch implements ports.SearchableFamily for RidgeClassifier.
func (f *RidgeClassifier) FitWithSearch(X [][]float64, y []float64, rng *rand.Rand) (ports.FittedModel, float64, error) {
	lambda, err := searchLambda(f.Grid, f.Lambda, X, y, rng, func(l float64) ports.ModelFamily {
		return &RidgeClassifier{key: f.key, Lambda: l}
	}, eval.OutcomeCategorical)
	if err != nil {
		return nil, 0, err
	}
	fitted, err := (&RidgeClassifier{key: f.key, Lambda: lambda}).Fit(X, y)
	return fitted, lambda, err
}

// FitWithSearch implements ports.SearchableFamily for RidgeRegressor.
func (f *RidgeRegressor) FitWithSearch(X [][]float64, y []float64, rng *rand.Rand) (ports.FittedModel, float64, error) {
	lambda, err := searchLambda(f.Grid, f.Lambda, X, y, rng, func(l float64) ports.ModelFamily {
		return &RidgeRegressor{key: f.key, Lambda: l}
	}, eval.OutcomeContinuous)
	if err != nil {
		return nil, 0, err
	}
	fitted, err := (&RidgeRegressor{key: f.key, Lambda: lambda}).Fit(X, y)
	return fitted, lambda, err
}

// searchLambda evaluates each grid value on a shuffled inner holdout and
// returns the best. An empty grid or an inner partition too degenerate to
// score falls back to the configured default.
func searchLambda(grid []float64, fallback float64, X [][]float64, y []float64,
	rng *rand.Rand, build func(float64) ports.ModelFamily, kind eval.OutcomeKind) (float64, error) {

	if len(grid) == 0 {
		return fallback, nil
	}
	n := len(X)
	nVal := int(float64(n) * innerHoldoutFraction)
	if nVal < 1 || n-nVal < 2 {
		return fallback, nil
	}

	perm := rng.Perm(n)
	valIdx, trainIdx := perm[:nVal], perm[nVal:]

	gather := func(idx []int) ([][]float64, []float64) {
		xs := make([][]float64, len(idx))
		ys := make([]float64, len(idx))
		for i, r := range idx {
			xs[i] = X[r]
			ys[i] = y[r]
		}
		return xs, ys
	}
	xTrain, yTrain := gather(trainIdx)
	xVal, yVal := gather(valIdx)

	if kind == eval.OutcomeCategorical {
		if eval.NewCategoricalOutcome(yTrain).IsDegenerate() || eval.NewCategoricalOutcome(yVal).IsDegenerate() {
			return fallback, nil
		}
	}

	best := grid[0]
	bestScore := 0.0
	scored := false
	for _, lambda := range grid {
		fitted, err := build(lambda).Fit(xTrain, yTrain)
		if err != nil {
			if core.IsConfigurationError(err) {
				continue
			}
			return 0, err
		}
		score, err := eval.Score(kind, yVal, fitted.Predict(xVal))
		if err != nil {
			return 0, err
		}
		if !scored || score > bestScore {
			best, bestScore, scored = lambda, score, true
		}
	}
	if !scored {
		return fallback, nil
	}
	return best, nil
}
