package eval

import (
	"math"

	"leakcheck/domain/core"
)

// BalancedAccuracy is classification accuracy averaged per class, correcting
// for class imbalance. Predictions are matched to true labels exactly, so
// callers must emit predictions drawn from the label alphabet.
func BalancedAccuracy(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, core.NewDimensionMismatchError("predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, core.NewConfigurationError("predictions", "must be non-empty")
	}

	total := make(map[float64]int)
	correct := make(map[float64]int)
	for i, y := range yTrue {
		total[y]++
		if yPred[i] == y {
			correct[y]++
		}
	}

	sum := 0.0
	for class, n := range total {
		sum += float64(correct[class]) / float64(n)
	}
	return sum / float64(len(total)), nil
}

// RSquared is the coefficient of determination. Chance level for a
// label-independent predictor is 0; worse-than-mean predictions go negative.
func RSquared(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, core.NewDimensionMismatchError("predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, core.NewConfigurationError("predictions", "must be non-empty")
	}

	mean := 0.0
	for _, y := range yTrue {
		mean += y
	}
	mean /= float64(len(yTrue))

	var ssRes, ssTot float64
	for i, y := range yTrue {
		ssRes += (y - yPred[i]) * (y - yPred[i])
		ssTot += (y - mean) * (y - mean)
	}
	if ssTot == 0 {
		// Constant target: perfect prediction scores 1, anything else 0.
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// Score dispatches to the metric appropriate for the outcome kind.
func Score(kind OutcomeKind, yTrue, yPred []float64) (float64, error) {
	if kind == OutcomeCategorical {
		return BalancedAccuracy(yTrue, yPred)
	}
	return RSquared(yTrue, yPred)
}

// ZScore standardizes a value against a reference mean and spread. Zero
// spread maps to 0 rather than an undefined value.
func ZScore(value, mean, std float64) float64 {
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (value - mean) / std
}
