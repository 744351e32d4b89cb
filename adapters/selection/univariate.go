// Package selection provides the feature-selection step whose placement
// relative to the resampling loop is the central educative mechanism of this
// system: fit it on the whole dataset and scores inflate, fit it per split
// and they do not.
package selection

import (
	"math"
	"sort"

	"leakcheck/domain/core"
)

// TopKCorrelation ranks features by the absolute Pearson correlation of each
// column with the outcome and keeps the k strongest. For a binary outcome
// this is the point-biserial correlation, equivalent in ranking to a
// univariate t-score.
type TopKCorrelation struct{}

// NewTopKCorrelation creates the selector.
func NewTopKCorrelation() *TopKCorrelation {
	return &TopKCorrelation{}
}

// Select returns the indices of the k top-ranked features in ascending
// order. Zero-variance columns score zero. k is clamped to P.
func (s *TopKCorrelation) Select(X [][]float64, y []float64, k int) ([]int, error) {
	if len(X) == 0 {
		return nil, core.NewConfigurationError("features", "must be non-empty")
	}
	if len(X) != len(y) {
		return nil, core.NewDimensionMismatchError("outcome", len(X), len(y))
	}
	if k <= 0 {
		return nil, core.NewConfigurationError("k_features", "must be > 0")
	}

	p := len(X[0])
	if k > p {
		k = p
	}

	n := float64(len(y))
	meanY := 0.0
	for _, v := range y {
		meanY += v
	}
	meanY /= n

	varY := 0.0
	for _, v := range y {
		varY += (v - meanY) * (v - meanY)
	}

	type ranked struct {
		index int
		score float64
	}
	scores := make([]ranked, p)

	for j := 0; j < p; j++ {
		meanX := 0.0
		for i := range X {
			meanX += X[i][j]
		}
		meanX /= n

		var cov, varX float64
		for i := range X {
			dx := X[i][j] - meanX
			cov += dx * (y[i] - meanY)
			varX += dx * dx
		}

		score := 0.0
		if varX > 0 && varY > 0 {
			score = math.Abs(cov / math.Sqrt(varX*varY))
		}
		scores[j] = ranked{index: j, score: score}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	selected := make([]int, k)
	for i := 0; i < k; i++ {
		selected[i] = scores[i].index
	}
	sort.Ints(selected)
	return selected, nil
}
