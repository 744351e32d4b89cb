// Package nullcal estimates chance-level performance empirically: it re-runs
// the resampling evaluator under independently permuted outcomes and
// collects the null distribution of summary scores. Under a leakage-free
// procedure the null mean is statistically indistinguishable from chance;
// a procedure that inflates it is biased regardless of its true-label score.
package nullcal

import (
	"context"
	"math"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"leakcheck/domain/core"
	"leakcheck/domain/eval"
	"leakcheck/internal/resampling"
	"leakcheck/ports"
)

// Calibrator wraps the evaluator with outcome permutation.
type Calibrator struct {
	evaluator   *resampling.Evaluator
	rng         ports.RNGPort
	parallelism int
}

// NewCalibrator creates a calibrator. parallelism bounds concurrent
// repetitions; <= 1 runs serially.
func NewCalibrator(evaluator *resampling.Evaluator, rng ports.RNGPort, parallelism int) *Calibrator {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Calibrator{evaluator: evaluator, rng: rng, parallelism: parallelism}
}

// Calibrate runs nRepetitions evaluations, each with a freshly permuted
// outcome from an independently derived stream, and collects the mean score
// per repetition per family. The evaluator seed is held fixed across
// repetitions so only the permutation varies, never the resampling scheme.
func (c *Calibrator) Calibrate(ctx context.Context, batch *eval.Batch, outcome eval.Outcome,
	families []ports.ModelFamily, evalCfg resampling.Config, nRepetitions int) (*eval.NullDistribution, error) {

	if nRepetitions <= 0 {
		return nil, core.NewConfigurationError("n_repetitions", "must be > 0")
	}
	if err := evalCfg.Validate(); err != nil {
		return nil, err
	}
	// The calibrator owns permutation; the evaluator must not shuffle again.
	evalCfg.ShuffleOutcome = false

	type repScores map[core.ModelKey]float64
	perRep := make([]repScores, nRepetitions)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for r := 0; r < nRepetitions; r++ {
		g.Go(func() error {
			permuted := outcome.Permute(c.rng.Stream("", "null_permutation", r, evalCfg.Seed))
			res, err := c.evaluator.Evaluate(gctx, batch, permuted, families, evalCfg)
			if err != nil {
				return err
			}
			scores := make(repScores, len(res.Families))
			for key, fr := range res.Families {
				scores[key] = fr.MeanScore
			}
			perRep[r] = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dist := &eval.NullDistribution{
		Repetitions: nRepetitions,
		Families:    make(map[core.ModelKey]*eval.NullSeries, len(families)),
	}
	for _, family := range families {
		key := family.Key()
		series := &eval.NullSeries{Key: key, Scores: make([]float64, nRepetitions)}
		for r := 0; r < nRepetitions; r++ {
			series.Scores[r] = perRep[r][key]
		}
		mean, _ := stats.Mean(series.Scores)
		std, _ := stats.StandardDeviation(series.Scores)
		series.Mean = mean
		series.Std = std
		dist.Families[key] = series
	}
	return dist, nil
}

// Comparison relates an observed true-label score to a null series.
type Comparison struct {
	Observed float64 `json:"observed"`
	NullMean float64 `json:"null_mean"`
	NullStd  float64 `json:"null_std"`
	Z        float64 `json:"z"`
	PValue   float64 `json:"p_value"`
}

// Compare standardizes the observed score against the null and attaches a
// two-sided normal tail probability. A zero-spread null maps to Z=0, p=1.
func Compare(series *eval.NullSeries, observed float64) Comparison {
	z := eval.ZScore(observed, series.Mean, series.Std)
	p := 1.0
	if z != 0 {
		normal := distuv.Normal{Mu: 0, Sigma: 1}
		p = 2 * normal.Survival(math.Abs(z))
	}
	return Comparison{
		Observed: observed,
		NullMean: series.Mean,
		NullStd:  series.Std,
		Z:        z,
		PValue:   p,
	}
}
