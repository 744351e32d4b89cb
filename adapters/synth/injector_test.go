package synth

import (
	"math"
	"testing"

	"leakcheck/domain/core"
	"leakcheck/domain/eval"
)

func constantBatch(n, p int, v float64) *eval.Batch {
	b := eval.NewBatch(n, p)
	for i := range b.Data {
		for j := range b.Data[i] {
			b.Data[i][j] = v
		}
	}
	return b
}

// TestInject_CategoricalIndicator verifies the additive rule: positive-class
// samples shift by region*effect, the rest stay untouched.
func TestInject_CategoricalIndicator(t *testing.T) {
	batch := constantBatch(4, 3, 1.0)
	outcome := eval.NewCategoricalOutcome([]float64{0, 0, 1, 1})
	region := eval.RegionIndicator{1, 0, 1}

	out, err := Inject(batch, outcome, region, 2.0)
	if err != nil {
		t.Fatalf("Inject failed: %v", err)
	}

	want := [][]float64{
		{1, 1, 1},
		{1, 1, 1},
		{3, 1, 3},
		{3, 1, 3},
	}
	for i := range want {
		for j := range want[i] {
			if out.Data[i][j] != want[i][j] {
				t.Fatalf("cell (%d,%d) = %v, want %v", i, j, out.Data[i][j], want[i][j])
			}
		}
	}
}

// TestInject_Purity verifies the inputs are never mutated.
func TestInject_Purity(t *testing.T) {
	batch := constantBatch(4, 2, 0.5)
	outcome := eval.NewCategoricalOutcome([]float64{0, 1, 0, 1})
	region := eval.RegionIndicator{1, 1}

	if _, err := Inject(batch, outcome, region, 5.0); err != nil {
		t.Fatalf("Inject failed: %v", err)
	}

	for i := range batch.Data {
		for j := range batch.Data[i] {
			if batch.Data[i][j] != 0.5 {
				t.Fatalf("input batch mutated at (%d,%d): %v", i, j, batch.Data[i][j])
			}
		}
	}
}

// TestInject_DimensionMismatch verifies mismatched inputs fail cleanly and
// leave the batch unmodified.
func TestInject_DimensionMismatch(t *testing.T) {
	batch := constantBatch(3, 2, 1.0)

	shortOutcome := eval.NewCategoricalOutcome([]float64{0, 1})
	if _, err := Inject(batch, shortOutcome, eval.RegionIndicator{1, 1}, 1.0); !core.IsShapeError(err) {
		t.Fatalf("expected dimension error for outcome, got %v", err)
	}

	outcome := eval.NewCategoricalOutcome([]float64{0, 1, 0})
	if _, err := Inject(batch, outcome, eval.RegionIndicator{1}, 1.0); !core.IsShapeError(err) {
		t.Fatalf("expected dimension error for region, got %v", err)
	}

	for i := range batch.Data {
		for j := range batch.Data[i] {
			if batch.Data[i][j] != 1.0 {
				t.Fatalf("batch modified by failed call at (%d,%d)", i, j)
			}
		}
	}
}

// TestInject_ContinuousZScored verifies continuous outcomes are standardized
// before multiplication.
func TestInject_ContinuousZScored(t *testing.T) {
	batch := constantBatch(2, 1, 0.0)
	outcome := eval.NewContinuousOutcome([]float64{10, 20})
	region := eval.RegionIndicator{1}

	out, err := Inject(batch, outcome, region, 1.0)
	if err != nil {
		t.Fatalf("Inject failed: %v", err)
	}

	// z-scores of {10,20} are {-1,+1}.
	if math.Abs(out.Data[0][0]+1) > 1e-12 || math.Abs(out.Data[1][0]-1) > 1e-12 {
		t.Fatalf("got [%v %v], want [-1 +1]", out.Data[0][0], out.Data[1][0])
	}
}

// TestInject_MonotoneSeparability verifies the mean gap between classes in
// the target region grows monotonically with effect size.
func TestInject_MonotoneSeparability(t *testing.T) {
	n, p := 40, 6
	batch := constantBatch(n, p, 0.0)
	outcome := eval.NewCategoricalOutcome(halfAndHalf(n))
	region := eval.RegionIndicator{1, 1, 1, 0, 0, 0}

	prev := -1.0
	for _, effect := range []float64{0, 0.5, 1.0, 2.0, 4.0} {
		out, err := Inject(batch, outcome, region, effect)
		if err != nil {
			t.Fatalf("Inject(effect=%v) failed: %v", effect, err)
		}
		gap := classGap(out, outcome, 0)
		if gap <= prev && effect > 0 {
			t.Fatalf("gap %v at effect %v not greater than previous %v", gap, effect, prev)
		}
		prev = gap
	}
}

func halfAndHalf(n int) []float64 {
	labels := make([]float64, n)
	for i := n / 2; i < n; i++ {
		labels[i] = 1
	}
	return labels
}

func classGap(batch *eval.Batch, outcome eval.Outcome, col int) float64 {
	var mean0, mean1 float64
	var n0, n1 int
	for i, row := range batch.Data {
		if outcome.Values[i] == 0 {
			mean0 += row[col]
			n0++
		} else {
			mean1 += row[col]
			n1++
		}
	}
	return math.Abs(mean1/float64(n1) - mean0/float64(n0))
}
