package resampling

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"leakcheck/adapters/models"
	"leakcheck/adapters/selection"
	"leakcheck/domain/core"
	"leakcheck/domain/eval"
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

// TestEvaluator_LeakageReproduction is the central property: selecting the
// top 50 of 1000 pure-noise features on the full dataset inflates held-out
// balanced accuracy well above chance, while the identical pipeline with
// selection refit inside each split stays at chance.
func TestEvaluator_LeakageReproduction(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-size leakage scenario in short mode")
	}

	n, p := 100, 1000
	batch := noiseBatch(n, p, 12345)
	outcome := balancedLabels(n)
	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}
	evaluator := NewEvaluator(selection.NewTopKCorrelation(), nil)

	cfg := Config{
		NSplits:      50,
		TestFraction: 0.25,
		Mode:         eval.SelectionGlobal,
		KFeatures:    50,
		Seed:         777,
		Parallelism:  4,
	}

	leaky, err := evaluator.Evaluate(context.Background(), batch, outcome, families, cfg)
	if err != nil {
		t.Fatalf("leaky evaluation failed: %v", err)
	}
	leakyMean := leaky.Families[families[0].Key()].MeanScore
	if leakyMean <= 0.6 {
		t.Fatalf("global selection on noise scored %.3f, expected > 0.6 (leakage not reproduced)", leakyMean)
	}

	cfg.Mode = eval.SelectionPerSplit
	clean, err := evaluator.Evaluate(context.Background(), batch, outcome, families, cfg)
	if err != nil {
		t.Fatalf("clean evaluation failed: %v", err)
	}
	cleanMean := clean.Families[families[0].Key()].MeanScore
	if math.Abs(cleanMean-0.5) > 0.05 {
		t.Fatalf("per-split selection on noise scored %.3f, expected 0.5 +/- 0.05", cleanMean)
	}

	if leakyMean-cleanMean < 0.1 {
		t.Fatalf("leak/clean contrast %.3f too small (leaky %.3f, clean %.3f)",
			leakyMean-cleanMean, leakyMean, cleanMean)
	}
}

// TestEvaluator_Deterministic verifies identical inputs and seed reproduce
// identical partitions and scores, including under parallelism.
func TestEvaluator_Deterministic(t *testing.T) {
	batch := noiseBatch(60, 40, 5)
	outcome := balancedLabels(60)
	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}
	evaluator := NewEvaluator(selection.NewTopKCorrelation(), nil)

	cfg := Config{
		NSplits:      20,
		TestFraction: 0.25,
		Mode:         eval.SelectionPerSplit,
		KFeatures:    10,
		Seed:         31,
		Parallelism:  1,
	}

	a, err := evaluator.Evaluate(context.Background(), batch, outcome, families, cfg)
	if err != nil {
		t.Fatalf("first evaluation failed: %v", err)
	}

	cfg.Parallelism = 8
	b, err := evaluator.Evaluate(context.Background(), batch, outcome, families, cfg)
	if err != nil {
		t.Fatalf("second evaluation failed: %v", err)
	}

	for s := range a.Partitions {
		if len(a.Partitions[s].Test) != len(b.Partitions[s].Test) {
			t.Fatalf("split %d test size differs", s)
		}
		for i := range a.Partitions[s].Test {
			if a.Partitions[s].Test[i] != b.Partitions[s].Test[i] {
				t.Fatalf("split %d test assignment differs at %d", s, i)
			}
		}
	}

	key := families[0].Key()
	sa, sb := a.Families[key].Scores, b.Families[key].Scores
	if len(sa) != len(sb) {
		t.Fatalf("score counts differ: %d vs %d", len(sa), len(sb))
	}
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("score %d differs: %v vs %v", i, sa[i], sb[i])
		}
	}
}

// TestEvaluator_ConfigValidation walks the rejected configurations.
func TestEvaluator_ConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero splits", Config{NSplits: 0, TestFraction: 0.25, Mode: eval.SelectionNone}},
		{"test fraction 0", Config{NSplits: 5, TestFraction: 0, Mode: eval.SelectionNone}},
		{"test fraction 1", Config{NSplits: 5, TestFraction: 1, Mode: eval.SelectionNone}},
		{"bad mode", Config{NSplits: 5, TestFraction: 0.25, Mode: "chaotic"}},
		{"selection without k", Config{NSplits: 5, TestFraction: 0.25, Mode: eval.SelectionGlobal, KFeatures: 0}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); !core.IsConfigurationError(err) {
			t.Fatalf("%s: expected configuration error, got %v", tc.name, err)
		}
	}

	good := Config{NSplits: 5, TestFraction: 0.25, Mode: eval.SelectionPerSplit, KFeatures: 3}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

// TestEvaluator_DimensionValidation verifies outcome length must match batch
// rows before any work happens.
func TestEvaluator_DimensionValidation(t *testing.T) {
	batch := noiseBatch(10, 4, 1)
	short := balancedLabels(8)
	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}
	evaluator := NewEvaluator(nil, nil)

	cfg := Config{NSplits: 3, TestFraction: 0.3, Mode: eval.SelectionNone, Seed: 1}
	if _, err := evaluator.Evaluate(context.Background(), batch, short, families, cfg); !core.IsShapeError(err) {
		t.Fatalf("expected dimension error, got %v", err)
	}
}

// TestEvaluator_DegenerateSplitsSkipped builds an outcome so imbalanced that
// some training partitions lose a class, and checks those splits are counted
// as skipped while the run still succeeds.
func TestEvaluator_DegenerateSplitsSkipped(t *testing.T) {
	n := 12
	batch := noiseBatch(n, 5, 3)
	labels := make([]float64, n)
	labels[0] = 1 // single positive sample
	outcome := eval.NewCategoricalOutcome(labels)

	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}
	evaluator := NewEvaluator(nil, nil)

	cfg := Config{NSplits: 40, TestFraction: 0.25, Mode: eval.SelectionNone, Seed: 9}
	res, err := evaluator.Evaluate(context.Background(), batch, outcome, families, cfg)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}

	// With one positive among 12 samples and 3 test slots, roughly a quarter
	// of splits put the positive in the test partition, degenerating training.
	if res.Skipped == 0 {
		t.Fatal("expected some degenerate splits to be skipped")
	}
	if res.Successful == 0 {
		t.Fatal("expected some successful splits")
	}
	if res.Skipped+res.Successful != cfg.NSplits {
		t.Fatalf("skipped %d + successful %d != %d splits", res.Skipped, res.Successful, cfg.NSplits)
	}
	if len(res.SkipDiagnostics) != res.Skipped {
		t.Fatalf("%d diagnostics for %d skips", len(res.SkipDiagnostics), res.Skipped)
	}
}

// TestEvaluator_AllSplitsDegenerate verifies zero successful splits surfaces
// the configuration-class sentinel.
func TestEvaluator_AllSplitsDegenerate(t *testing.T) {
	batch := noiseBatch(8, 3, 2)
	constant := eval.NewCategoricalOutcome(make([]float64, 8))
	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}
	evaluator := NewEvaluator(nil, nil)

	cfg := Config{NSplits: 5, TestFraction: 0.25, Mode: eval.SelectionNone, Seed: 4}
	_, err := evaluator.Evaluate(context.Background(), batch, constant, families, cfg)
	if !core.IsConfigurationError(err) {
		t.Fatalf("expected ErrNoSuccessfulSplits (configuration class), got %v", err)
	}
}

// TestEvaluator_CoefficientExpansion verifies coefficients come back in full
// feature-space length with zeros at unselected positions.
func TestEvaluator_CoefficientExpansion(t *testing.T) {
	n, p, k := 40, 30, 5
	batch := noiseBatch(n, p, 14)
	outcome := balancedLabels(n)
	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}
	evaluator := NewEvaluator(selection.NewTopKCorrelation(), nil)

	cfg := Config{NSplits: 8, TestFraction: 0.25, Mode: eval.SelectionPerSplit, KFeatures: k, Seed: 2}
	res, err := evaluator.Evaluate(context.Background(), batch, outcome, families, cfg)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}

	fr := res.Families[families[0].Key()]
	if !fr.HasCoefficients() {
		t.Fatal("ridge family must yield coefficient records")
	}
	for s, coeffs := range fr.Coefficients {
		if len(coeffs) != p {
			t.Fatalf("split %d coefficients length %d, want %d", s, len(coeffs), p)
		}
		nonZero := 0
		for _, w := range coeffs {
			if w != 0 {
				nonZero++
			}
		}
		if nonZero > k {
			t.Fatalf("split %d has %d non-zero coefficients, at most %d selected", s, nonZero, k)
		}
	}
}

// TestEvaluator_NoCoefficientFamilies verifies families without coefficients
// produce scores but no coefficient records.
func TestEvaluator_NoCoefficientFamilies(t *testing.T) {
	n := 40
	batch := noiseBatch(n, 10, 20)
	outcome := balancedLabels(n)
	families := []ports.ModelFamily{models.NewNearestCentroid()}
	evaluator := NewEvaluator(nil, nil)

	cfg := Config{NSplits: 10, TestFraction: 0.25, Mode: eval.SelectionNone, Seed: 6}
	res, err := evaluator.Evaluate(context.Background(), batch, outcome, families, cfg)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}

	fr := res.Families[families[0].Key()]
	if len(fr.Scores) != res.Successful {
		t.Fatalf("%d scores for %d successful splits", len(fr.Scores), res.Successful)
	}
	if fr.HasCoefficients() {
		t.Fatal("nearest centroid must not produce coefficient records")
	}
}

// TestEvaluator_ProgressCallback verifies the callback fires once per split,
// reaches the total, and is never invoked concurrently even with parallel
// workers.
func TestEvaluator_ProgressCallback(t *testing.T) {
	n := 30
	batch := noiseBatch(n, 6, 8)
	outcome := balancedLabels(n)
	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}

	var calls, depth int32
	var overlapped, sawTotal atomic.Bool
	progress := ports.ProgressFunc(func(completed, total int) {
		if atomic.AddInt32(&depth, 1) > 1 {
			overlapped.Store(true)
		}
		atomic.AddInt32(&calls, 1)
		if completed == total {
			sawTotal.Store(true)
		}
		atomic.AddInt32(&depth, -1)
	})
	evaluator := NewEvaluator(nil, progress)

	cfg := Config{NSplits: 12, TestFraction: 0.25, Mode: eval.SelectionNone, Seed: 10, Parallelism: 3}
	if _, err := evaluator.Evaluate(context.Background(), batch, outcome, families, cfg); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != int32(cfg.NSplits) {
		t.Fatalf("progress fired %d times, want %d", got, cfg.NSplits)
	}
	if !sawTotal.Load() {
		t.Fatal("progress never reported completion")
	}
	if overlapped.Load() {
		t.Fatal("progress callbacks overlapped; calls must be serialized")
	}
}

// TestStreams_Independence verifies derived streams differ across
// repetitions and stages but replay identically for the same coordinates.
func TestStreams_Independence(t *testing.T) {
	s := NewStreams()

	a := s.Stream("run", "permutation", 0, 42).Int63()
	b := s.Stream("run", "permutation", 0, 42).Int63()
	if a != b {
		t.Fatal("identical coordinates must replay identically")
	}

	c := s.Stream("run", "permutation", 1, 42).Int63()
	d := s.Stream("run", "shuffle", 0, 42).Int63()
	if a == c || a == d {
		t.Fatal("distinct repetitions/stages should not collide on first draw")
	}
}
