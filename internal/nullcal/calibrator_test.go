package nullcal

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"leakcheck/adapters/models"
	"leakcheck/domain/core"
	"leakcheck/domain/eval"
	"leakcheck/internal/resampling"
	"leakcheck/ports"
)

func noiseBatch(n, p int, seed int64) *eval.Batch {
	rng := rand.New(rand.NewSource(seed))
	batch := eval.NewBatch(n, p)
	for i := range batch.Data {
		for j := range batch.Data[i] {
			batch.Data[i][j] = rng.NormFloat64()
		}
	}
	return batch
}

func balancedLabels(n int) eval.Outcome {
	labels := make([]float64, n)
	for i := n / 2; i < n; i++ {
		labels[i] = 1
	}
	return eval.NewCategoricalOutcome(labels)
}

// TestCalibrator_NullMeanAtChance is the calibration property: over 50
// permutation repetitions the null mean must sit within 0.025 of the chance
// level for a binary outcome.
func TestCalibrator_NullMeanAtChance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping permutation calibration in short mode")
	}

	n, p := 60, 12
	batch := noiseBatch(n, p, 404)
	outcome := balancedLabels(n)
	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}

	evaluator := resampling.NewEvaluator(nil, nil)
	calibrator := NewCalibrator(evaluator, resampling.NewStreams(), 4)

	cfg := resampling.Config{
		NSplits:      20,
		TestFraction: 0.25,
		Mode:         eval.SelectionNone,
		Seed:         55,
		Parallelism:  2,
	}

	dist, err := calibrator.Calibrate(context.Background(), batch, outcome, families, cfg, 50)
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}

	series := dist.Families[families[0].Key()]
	if len(series.Scores) != 50 {
		t.Fatalf("%d null scores, want 50", len(series.Scores))
	}
	chance := outcome.ChanceLevel()
	if math.Abs(series.Mean-chance) > 0.025 {
		t.Fatalf("null mean %.4f deviates from chance %.2f by more than 0.025", series.Mean, chance)
	}
}

// TestCalibrator_Deterministic verifies two calibrations with identical
// inputs produce identical null series.
func TestCalibrator_Deterministic(t *testing.T) {
	n := 40
	batch := noiseBatch(n, 8, 77)
	outcome := balancedLabels(n)
	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}

	evaluator := resampling.NewEvaluator(nil, nil)
	cfg := resampling.Config{NSplits: 10, TestFraction: 0.25, Mode: eval.SelectionNone, Seed: 13, Parallelism: 2}

	run := func() []float64 {
		calibrator := NewCalibrator(evaluator, resampling.NewStreams(), 4)
		dist, err := calibrator.Calibrate(context.Background(), batch, outcome, families, cfg, 12)
		if err != nil {
			t.Fatalf("Calibrate failed: %v", err)
		}
		return dist.Families[families[0].Key()].Scores
	}

	a, b := run(), run()
	for r := range a {
		if a[r] != b[r] {
			t.Fatalf("repetition %d differs: %v vs %v", r, a[r], b[r])
		}
	}
}

// TestCalibrator_Validation covers bad repetition counts and propagated
// config errors.
func TestCalibrator_Validation(t *testing.T) {
	evaluator := resampling.NewEvaluator(nil, nil)
	calibrator := NewCalibrator(evaluator, resampling.NewStreams(), 1)
	batch := noiseBatch(10, 3, 1)
	outcome := balancedLabels(10)
	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}

	cfg := resampling.Config{NSplits: 4, TestFraction: 0.25, Mode: eval.SelectionNone, Seed: 1}
	if _, err := calibrator.Calibrate(context.Background(), batch, outcome, families, cfg, 0); !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for 0 repetitions, got %v", err)
	}

	bad := cfg
	bad.TestFraction = 2
	if _, err := calibrator.Calibrate(context.Background(), batch, outcome, families, bad, 5); !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for bad config, got %v", err)
	}
}

// TestCompare_StandardizesAgainstNull exercises the z and tail probability.
func TestCompare_StandardizesAgainstNull(t *testing.T) {
	series := &eval.NullSeries{Mean: 0.5, Std: 0.05}

	cmp := Compare(series, 0.6)
	if math.Abs(cmp.Z-2.0) > 1e-12 {
		t.Fatalf("z = %v, want 2.0", cmp.Z)
	}
	if cmp.PValue <= 0 || cmp.PValue >= 0.05 {
		t.Fatalf("p = %v, want two-sided tail of |z|=2 (~0.0455) in (0,0.05)", cmp.PValue)
	}

	flat := &eval.NullSeries{Mean: 0.5, Std: 0}
	cmp = Compare(flat, 0.9)
	if cmp.Z != 0 || cmp.PValue != 1 {
		t.Fatalf("degenerate null: z=%v p=%v, want 0 and 1", cmp.Z, cmp.PValue)
	}
}
