// Package resampling implements the model-evaluation harness: repeated
// randomized train/test splits with per-split model fitting, configurable
// feature-selection placement, and score/coefficient accumulation. The
// global-vs-per-split selection toggle deliberately keeps the
// leakage-inducing configuration available as a reproducible negative
// example.
package resampling

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"

	"leakcheck/domain/core"
	"leakcheck/domain/eval"
	"leakcheck/ports"
)

// Config parametrizes one evaluation run.
type Config struct {
	NSplits      int
	TestFraction float64
	Mode         eval.SelectionMode
	KFeatures    int
	Seed         int64

	// ShuffleOutcome permutes the outcome once before any split is drawn,
	// simulating the null hypothesis while holding the resampling scheme
	// fixed.
	ShuffleOutcome bool

	// SearchEnabled turns on per-split hyperparameter search for families
	// implementing ports.SearchableFamily.
	SearchEnabled bool

	// Parallelism bounds concurrent split workers; <= 1 runs serially.
	Parallelism int
}

// Validate checks configuration invariants.
func (c Config) Validate() error {
	if c.NSplits <= 0 {
		return core.NewConfigurationError("n_splits", "must be > 0")
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return core.NewConfigurationError("test_fraction", "must be in (0,1)")
	}
	if !c.Mode.Valid() {
		return core.NewConfigurationError("feature_selection_mode", fmt.Sprintf("unsupported value %q", c.Mode))
	}
	if c.Mode != eval.SelectionNone && c.KFeatures <= 0 {
		return core.NewConfigurationError("k_features", "must be > 0 when feature selection is enabled")
	}
	return nil
}

// Evaluator orchestrates repeated train/test evaluation.
type Evaluator struct {
	selector ports.FeatureSelector
	progress ports.ProgressPort
}

// NewEvaluator creates an evaluator. The selector may be nil when only
// SelectionNone runs are performed; progress may always be nil.
func NewEvaluator(selector ports.FeatureSelector, progress ports.ProgressPort) *Evaluator {
	return &Evaluator{selector: selector, progress: progress}
}

// splitOutput is one split's contribution, written by exactly one worker.
type splitOutput struct {
	skipped  bool
	diag     string
	families []familyOutput
}

type familyOutput struct {
	score        float64
	coefficients []float64 // full P-length, nil when unavailable
	param        float64
	hasParam     bool
}

// Evaluate runs the full resampling loop. Identical (batch, outcome,
// families, cfg) inputs reproduce identical split assignments and, for
// deterministic model fits, identical scores.
func (e *Evaluator) Evaluate(ctx context.Context, batch *eval.Batch, outcome eval.Outcome, families []ports.ModelFamily, cfg Config) (*eval.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if batch.Rows() == 0 || batch.Cols() == 0 {
		return nil, core.NewConfigurationError("features", "batch must be non-empty")
	}
	if outcome.Len() != batch.Rows() {
		return nil, core.NewDimensionMismatchError("outcome", batch.Rows(), outcome.Len())
	}
	if len(families) == 0 {
		return nil, core.NewConfigurationError("model families", "at least one required")
	}
	if cfg.Mode != eval.SelectionNone && e.selector == nil {
		return nil, core.NewConfigurationError("feature_selection_mode", "requires a selector")
	}

	// Single shared pseudorandom sequence: the shuffle (when requested), all
	// partitions and the per-split seeds are drawn up front, so parallel
	// workers inherit determinism without sharing a generator.
	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.ShuffleOutcome {
		outcome = outcome.Permute(rng)
	}

	n := batch.Rows()
	nTest := int(math.Round(cfg.TestFraction * float64(n)))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		return nil, core.NewConfigurationError("test_fraction", fmt.Sprintf("leaves no training rows for n=%d", n))
	}

	partitions := make([]eval.Partition, cfg.NSplits)
	splitSeeds := make([]int64, cfg.NSplits)
	for s := 0; s < cfg.NSplits; s++ {
		perm := rng.Perm(n)
		test := append([]int(nil), perm[:nTest]...)
		train := append([]int(nil), perm[nTest:]...)
		sort.Ints(test)
		sort.Ints(train)
		partitions[s] = eval.Partition{Train: train, Test: test}
		splitSeeds[s] = rng.Int63()
	}

	// Global selection happens once on the entire dataset, before any split
	// is drawn: the leakage-inducing placement, kept on purpose.
	var globalSelected []int
	if cfg.Mode == eval.SelectionGlobal {
		selected, err := e.selector.Select(batch.Data, outcome.Values, cfg.KFeatures)
		if err != nil {
			return nil, fmt.Errorf("global feature selection failed: %w", err)
		}
		globalSelected = selected
	}

	outputs := make([]splitOutput, cfg.NSplits)
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	sem := semaphore.NewWeighted(int64(parallelism))
	var wg sync.WaitGroup
	var progressMu sync.Mutex
	completed := 0

	for s := 0; s < cfg.NSplits; s++ {
		// Cancellation is honored at repetition boundaries only; in-flight
		// repetitions run to completion and are discarded with the run.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}

		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			defer sem.Release(1)

			outputs[s] = e.runSplit(batch, outcome, families, cfg, partitions[s], globalSelected, splitSeeds[s])

			// The callback runs under the counter mutex so implementations
			// never see overlapping invocations.
			progressMu.Lock()
			completed++
			if e.progress != nil {
				e.progress.OnRepetition(completed, cfg.NSplits)
			}
			progressMu.Unlock()
		}(s)
	}
	wg.Wait()

	return e.collect(outcome, families, cfg, partitions, outputs)
}

// runSplit executes one repetition. Per-split numerical failures are
// recorded as a skipped repetition with a diagnostic; they never abort the
// remaining splits.
func (e *Evaluator) runSplit(batch *eval.Batch, outcome eval.Outcome, families []ports.ModelFamily, cfg Config,
	part eval.Partition, globalSelected []int, splitSeed int64) splitOutput {

	trainY := outcome.Subset(part.Train)
	testY := outcome.Subset(part.Test)

	if outcome.Kind == eval.OutcomeCategorical && trainY.IsDegenerate() {
		return splitOutput{skipped: true, diag: "degenerate training partition: fewer than 2 classes"}
	}

	trainRows := batch.SelectRows(part.Train)
	testRows := batch.SelectRows(part.Test)

	selected := globalSelected
	if cfg.Mode == eval.SelectionPerSplit {
		// Selector refit on this split's training rows only, then applied
		// unchanged to the held-out rows.
		var err error
		selected, err = e.selector.Select(trainRows.Data, trainY.Values, cfg.KFeatures)
		if err != nil {
			return splitOutput{skipped: true, diag: fmt.Sprintf("feature selection failed: %v", err)}
		}
	}

	trainX, testX := trainRows, testRows
	if cfg.Mode != eval.SelectionNone {
		trainX = trainRows.SelectColumns(selected)
		testX = testRows.SelectColumns(selected)
	}

	out := splitOutput{families: make([]familyOutput, len(families))}
	for fi, family := range families {
		var fitted ports.FittedModel
		var err error
		var param float64
		hasParam := false

		if searchable, ok := family.(ports.SearchableFamily); ok && cfg.SearchEnabled {
			fitted, param, err = searchable.FitWithSearch(trainX.Data, trainY.Values, rand.New(rand.NewSource(splitSeed)))
			hasParam = err == nil
		} else {
			fitted, err = family.Fit(trainX.Data, trainY.Values)
		}
		if err != nil {
			return splitOutput{skipped: true, diag: fmt.Sprintf("%s fit failed: %v", family.Key(), err)}
		}

		score, err := eval.Score(outcome.Kind, testY.Values, fitted.Predict(testX.Data))
		if err != nil {
			return splitOutput{skipped: true, diag: fmt.Sprintf("%s scoring failed: %v", family.Key(), err)}
		}

		fo := familyOutput{score: score, param: param, hasParam: hasParam}
		if family.HasCoefficients() {
			if w, ok := fitted.Coefficients(); ok {
				fo.coefficients = expandCoefficients(w, selected, batch.Cols(), cfg.Mode)
			}
		}
		out.families[fi] = fo
	}
	return out
}

// expandCoefficients maps selected-space weights back to the full P-length
// feature space, with unselected positions recorded as zero.
func expandCoefficients(w []float64, selected []int, p int, mode eval.SelectionMode) []float64 {
	if mode == eval.SelectionNone {
		out := make([]float64, len(w))
		copy(out, w)
		return out
	}
	out := make([]float64, p)
	for i, j := range selected {
		out[j] = w[i]
	}
	return out
}

// collect assembles ordered per-family sequences from split outputs.
func (e *Evaluator) collect(outcome eval.Outcome, families []ports.ModelFamily, cfg Config,
	partitions []eval.Partition, outputs []splitOutput) (*eval.Result, error) {

	result := &eval.Result{
		Seed:       cfg.Seed,
		Partitions: partitions,
		Families:   make(map[core.ModelKey]*eval.FamilyResult, len(families)),
	}
	for _, family := range families {
		result.Families[family.Key()] = &eval.FamilyResult{Key: family.Key()}
	}

	for _, out := range outputs {
		if out.skipped {
			result.Skipped++
			result.SkipDiagnostics = append(result.SkipDiagnostics, out.diag)
			continue
		}
		result.Successful++
		for fi, family := range families {
			fr := result.Families[family.Key()]
			fo := out.families[fi]
			fr.Scores = append(fr.Scores, fo.score)
			if fo.coefficients != nil {
				fr.Coefficients = append(fr.Coefficients, fo.coefficients)
			}
			if fo.hasParam {
				fr.ChosenParams = append(fr.ChosenParams, fo.param)
			}
		}
	}

	if result.Successful == 0 {
		return nil, fmt.Errorf("%w (%d skipped, first: %s)", core.ErrNoSuccessfulSplits, result.Skipped, firstOrNone(result.SkipDiagnostics))
	}
	if result.Skipped > 0 {
		log.Printf("[ResamplingEvaluator] %d/%d repetitions skipped", result.Skipped, cfg.NSplits)
	}

	for _, fr := range result.Families {
		mean, _ := stats.Mean(fr.Scores)
		std, _ := stats.StandardDeviation(fr.Scores)
		fr.MeanScore = mean
		fr.StdScore = std
	}
	return result, nil
}

func firstOrNone(diags []string) string {
	if len(diags) == 0 {
		return "none"
	}
	return diags[0]
}
