package synth

import (
	"math"

	"leakcheck/domain/core"
	"leakcheck/domain/eval"
)

// Inject adds a deterministic signal term to a noise batch:
//
//	out[i][j] = batch[i][j] + region[j] * term(outcome[i]) * effectSize
//
// Outcome term policy (fixed, documented): categorical outcomes contribute a
// {0,1} indicator of the maximum class value; continuous outcomes are
// z-scored (mean 0, unit variance over the batch) before multiplication, so
// effectSize carries the same signal-to-noise meaning for both outcome
// kinds. Pure function: neither batch nor outcome is mutated.
func Inject(batch *eval.Batch, outcome eval.Outcome, region eval.RegionIndicator, effectSize float64) (*eval.Batch, error) {
	if outcome.Len() != batch.Rows() {
		return nil, core.NewDimensionMismatchError("outcome", batch.Rows(), outcome.Len())
	}
	if len(region) != batch.Cols() {
		return nil, core.NewDimensionMismatchError("region indicator", batch.Cols(), len(region))
	}

	terms := outcomeTerms(outcome)
	out := batch.Clone()
	for i, row := range out.Data {
		t := terms[i] * effectSize
		if t == 0 {
			continue
		}
		for j := range row {
			if region[j] != 0 {
				row[j] += region[j] * t
			}
		}
	}
	return out, nil
}

// outcomeTerms maps outcome values to the per-sample signal multiplier.
func outcomeTerms(outcome eval.Outcome) []float64 {
	terms := make([]float64, outcome.Len())

	if outcome.Kind == eval.OutcomeCategorical {
		positive := math.Inf(-1)
		for _, v := range outcome.Values {
			if v > positive {
				positive = v
			}
		}
		for i, v := range outcome.Values {
			if v == positive {
				terms[i] = 1
			}
		}
		return terms
	}

	// Continuous: z-score so the effective amplitude is effectSize per unit
	// of standardized outcome.
	mean := 0.0
	for _, v := range outcome.Values {
		mean += v
	}
	n := float64(outcome.Len())
	if n == 0 {
		return terms
	}
	mean /= n

	variance := 0.0
	for _, v := range outcome.Values {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / n)
	if std == 0 {
		return terms
	}
	for i, v := range outcome.Values {
		terms[i] = (v - mean) / std
	}
	return terms
}
