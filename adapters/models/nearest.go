package models

import (
	"sort"

	"leakcheck/domain/core"
	"leakcheck/ports"
)

// NearestCentroid classifies by the closest per-class mean vector. Supports
// any number of classes and exposes no linear coefficients, exercising the
// evaluator's capability query instead of a speculative attribute probe.
type NearestCentroid struct {
	key core.ModelKey
}

// NewNearestCentroid creates the family.
func NewNearestCentroid() *NearestCentroid {
	return &NearestCentroid{key: core.ModelKey("nearest_centroid")}
}

// Key implements ports.ModelFamily.
func (f *NearestCentroid) Key() core.ModelKey { return f.key }

// HasCoefficients implements ports.ModelFamily.
func (f *NearestCentroid) HasCoefficients() bool { return false }

// Fit computes per-class centroids over the training rows.
func (f *NearestCentroid) Fit(X [][]float64, y []float64) (ports.FittedModel, error) {
	if len(X) == 0 {
		return nil, core.NewConfigurationError("training rows", "must be non-empty")
	}
	if len(X) != len(y) {
		return nil, core.NewDimensionMismatchError("training outcome", len(X), len(y))
	}

	p := len(X[0])
	sums := make(map[float64][]float64)
	counts := make(map[float64]int)
	for i, row := range X {
		label := y[i]
		if sums[label] == nil {
			sums[label] = make([]float64, p)
		}
		for j, v := range row {
			sums[label][j] += v
		}
		counts[label]++
	}
	if len(sums) < 2 {
		return nil, core.NewConfigurationError("labels", "nearest centroid requires at least 2 classes")
	}

	// Stable label order keeps tie-breaking deterministic across runs.
	labels := make([]float64, 0, len(sums))
	for label := range sums {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	centroids := make([][]float64, len(labels))
	for c, label := range labels {
		centroid := make([]float64, p)
		for j, s := range sums[label] {
			centroid[j] = s / float64(counts[label])
		}
		centroids[c] = centroid
	}
	return &centroidFitted{labels: labels, centroids: centroids}, nil
}

type centroidFitted struct {
	labels    []float64
	centroids [][]float64
}

// Predict assigns each row the label of its nearest centroid.
func (m *centroidFitted) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		best := 0
		bestDist := squaredDistance(row, m.centroids[0])
		for c := 1; c < len(m.centroids); c++ {
			if d := squaredDistance(row, m.centroids[c]); d < bestDist {
				best, bestDist = c, d
			}
		}
		out[i] = m.labels[best]
	}
	return out
}

// Coefficients implements ports.FittedModel; centroids carry no linear
// weight vector.
func (m *centroidFitted) Coefficients() ([]float64, bool) {
	return nil, false
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for j := range a {
		d := a[j] - b[j]
		sum += d * d
	}
	return sum
}
