package selection

import (
	"math/rand"
	"testing"

	"leakcheck/domain/core"
)

// TestTopKCorrelation_FindsSignalColumns verifies columns carrying a real
// association with the outcome outrank pure-noise columns.
func TestTopKCorrelation_FindsSignalColumns(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n, p := 200, 20

	y := make([]float64, n)
	X := make([][]float64, n)
	for i := range X {
		if i >= n/2 {
			y[i] = 1
		}
		X[i] = make([]float64, p)
		for j := range X[i] {
			X[i][j] = rng.NormFloat64()
		}
		// Columns 3 and 17 carry the outcome.
		X[i][3] += 3 * y[i]
		X[i][17] -= 3 * y[i]
	}

	selector := NewTopKCorrelation()
	selected, err := selector.Select(X, y, 2)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(selected) != 2 || selected[0] != 3 || selected[1] != 17 {
		t.Fatalf("selected %v, want [3 17]", selected)
	}
}

// TestTopKCorrelation_AscendingOrder verifies selected indices come back
// sorted regardless of score ranking.
func TestTopKCorrelation_AscendingOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	n, p := 100, 10

	y := make([]float64, n)
	X := make([][]float64, n)
	for i := range X {
		if i%2 == 0 {
			y[i] = 1
		}
		X[i] = make([]float64, p)
		for j := range X[i] {
			X[i][j] = rng.NormFloat64()
		}
		// Strongest signal in the last column, weaker in the first.
		X[i][9] += 4 * y[i]
		X[i][0] += 2 * y[i]
	}

	selected, err := NewTopKCorrelation().Select(X, y, 2)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if selected[0] != 0 || selected[1] != 9 {
		t.Fatalf("selected %v, want [0 9] in ascending order", selected)
	}
}

// TestTopKCorrelation_KClamp verifies k larger than P returns all features.
func TestTopKCorrelation_KClamp(t *testing.T) {
	X := [][]float64{{1, 2}, {2, 1}, {3, 3}}
	y := []float64{0, 1, 1}

	selected, err := NewTopKCorrelation().Select(X, y, 10)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(selected) != 2 {
		t.Fatalf("selected %d features, want 2", len(selected))
	}
}

// TestTopKCorrelation_Validation covers empty input and bad k.
func TestTopKCorrelation_Validation(t *testing.T) {
	selector := NewTopKCorrelation()

	if _, err := selector.Select(nil, nil, 1); !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for empty X, got %v", err)
	}
	if _, err := selector.Select([][]float64{{1}}, []float64{1, 2}, 1); !core.IsShapeError(err) {
		t.Fatalf("expected dimension error for mismatched y, got %v", err)
	}
	if _, err := selector.Select([][]float64{{1}}, []float64{1}, 0); !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for k=0, got %v", err)
	}
}

// TestTopKCorrelation_ZeroVariance verifies constant columns never outrank
// informative ones.
func TestTopKCorrelation_ZeroVariance(t *testing.T) {
	X := [][]float64{
		{5, 0},
		{5, 1},
		{5, 0},
		{5, 1},
	}
	y := []float64{0, 1, 0, 1}

	selected, err := NewTopKCorrelation().Select(X, y, 1)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if selected[0] != 1 {
		t.Fatalf("selected %v, want [1]", selected)
	}
}
