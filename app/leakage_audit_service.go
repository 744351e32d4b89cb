// Package app wires the adapters and engines into end-to-end audit
// scenarios.
package app

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"leakcheck/adapters/space"
	"leakcheck/adapters/synth"
	"leakcheck/domain/core"
	"leakcheck/domain/eval"
	"leakcheck/domain/volume"
	"leakcheck/internal/nullcal"
	"leakcheck/internal/resampling"
	"leakcheck/internal/stability"
	"leakcheck/ports"
)

// LeakageAuditService runs the full validation scenario: build a synthetic
// cohort with known ground truth, evaluate the leakage-inducing and the
// clean selection placements side by side on identical data, calibrate the
// clean score against a permutation null, and aggregate coefficient
// stability maps. The output manifest carries seed, config hash and a
// fingerprint so any run can be replayed and verified.
type LeakageAuditService struct {
	generator  *synth.FieldGenerator
	selector   ports.FeatureSelector
	atlasPort  ports.AtlasPort
	ledgerPort ports.LedgerPort
	rngPort    ports.RNGPort
	progress   ports.ProgressPort
}

// AuditRequest defines the inputs for one deterministic leakage audit.
type AuditRequest struct {
	Mask           volume.Mask
	AtlasID        core.AtlasID
	AtlasComponent int

	Samples         int
	KFeatures       int
	NSplits         int
	NullRepetitions int
	TestFraction    float64
	EffectSize      float64
	SmoothingFWHM   float64

	Seed         int64
	Parallelism  int
	SearchLambda bool

	RunID core.RunID // optional, generated if empty
}

// AuditResult contains the complete output of a leakage audit.
type AuditResult struct {
	RunID       core.RunID             `json:"run_id"`
	Manifest    eval.RunManifest       `json:"manifest"`
	Leaky       *eval.Result           `json:"leaky"`
	Clean       *eval.Result           `json:"clean"`
	Null        *eval.NullDistribution `json:"null"`
	Comparison  nullcal.Comparison     `json:"comparison"`
	Stability   *stability.Map         `json:"stability"`
	ChanceLevel float64                `json:"chance_level"`
	RuntimeMs   int64                  `json:"runtime_ms"`
}

// NewLeakageAuditService creates an audit service. The ledger may be nil
// when persistence is not wanted; all other dependencies are required.
func NewLeakageAuditService(generator *synth.FieldGenerator, selector ports.FeatureSelector,
	atlasPort ports.AtlasPort, ledgerPort ports.LedgerPort, rngPort ports.RNGPort, progress ports.ProgressPort) *LeakageAuditService {
	return &LeakageAuditService{
		generator:  generator,
		selector:   selector,
		atlasPort:  atlasPort,
		ledgerPort: ledgerPort,
		rngPort:    rngPort,
		progress:   progress,
	}
}

// RunAudit executes the full scenario with complete audit trail.
func (s *LeakageAuditService) RunAudit(ctx context.Context, req AuditRequest, families []ports.ModelFamily) (*AuditResult, error) {
	startTime := time.Now()

	runID := req.RunID
	if runID == "" {
		runID = core.RunID(core.NewID())
	}
	if len(families) == 0 {
		return nil, core.NewConfigurationError("model families", "at least one required")
	}

	adapter := space.NewMaskedSpaceAdapter()
	if err := adapter.Fit(req.Mask); err != nil {
		return nil, fmt.Errorf("mask fit failed: %w", err)
	}
	if req.Samples <= 0 {
		return nil, core.NewConfigurationError("samples", "must be > 0")
	}

	log.Printf("[LeakageAudit] run %s: N=%d P=%d k=%d splits=%d effect=%.3f seed=%d",
		runID, req.Samples, adapter.P(), req.KFeatures, req.NSplits, req.EffectSize, req.Seed)

	// The generation stream is derived from the request seed alone. Run IDs
	// may be freshly generated and must never feed any output-determining
	// stream, or identical requests would stop reproducing identical data.
	genRNG := s.rngPort.SeededStream("generate", req.Seed)
	batch, err := s.generator.Generate(adapter, req.Samples, genRNG, req.SmoothingFWHM)
	if err != nil {
		return nil, fmt.Errorf("field generation failed: %w", err)
	}

	outcome := balancedBinaryOutcome(req.Samples)

	if req.EffectSize != 0 {
		region, err := s.regionIndicator(ctx, req, adapter)
		if err != nil {
			return nil, err
		}
		batch, err = synth.Inject(batch, outcome, region, req.EffectSize)
		if err != nil {
			return nil, fmt.Errorf("signal injection failed: %w", err)
		}
	}

	evaluator := resampling.NewEvaluator(s.selector, s.progress)
	baseCfg := resampling.Config{
		NSplits:       req.NSplits,
		TestFraction:  req.TestFraction,
		KFeatures:     req.KFeatures,
		Seed:          req.Seed,
		SearchEnabled: req.SearchLambda,
		Parallelism:   req.Parallelism,
	}

	leakyCfg := baseCfg
	leakyCfg.Mode = eval.SelectionGlobal
	leaky, err := evaluator.Evaluate(ctx, batch, outcome, families, leakyCfg)
	if err != nil {
		return nil, fmt.Errorf("leaky evaluation failed: %w", err)
	}

	cleanCfg := baseCfg
	cleanCfg.Mode = eval.SelectionPerSplit
	clean, err := evaluator.Evaluate(ctx, batch, outcome, families, cleanCfg)
	if err != nil {
		return nil, fmt.Errorf("clean evaluation failed: %w", err)
	}

	primary := families[0].Key()
	leakyFam := leaky.Families[primary]
	cleanFam := clean.Families[primary]

	result := &AuditResult{
		RunID:       runID,
		Leaky:       leaky,
		Clean:       clean,
		ChanceLevel: outcome.ChanceLevel(),
	}

	if req.NullRepetitions > 0 {
		calibrator := nullcal.NewCalibrator(evaluator, s.rngPort, req.Parallelism)
		null, err := calibrator.Calibrate(ctx, batch, outcome, families, cleanCfg, req.NullRepetitions)
		if err != nil {
			return nil, fmt.Errorf("null calibration failed: %w", err)
		}
		result.Null = null
		result.Comparison = nullcal.Compare(null.Families[primary], cleanFam.MeanScore)
	}

	stab, err := stability.Aggregate(cleanFam.Coefficients)
	if err != nil {
		return nil, fmt.Errorf("stability aggregation failed: %w", err)
	}
	result.Stability = stab

	manifest := s.buildManifest(runID, req, adapter.P(), leakyFam, cleanFam, result)
	result.Manifest = manifest
	result.RuntimeMs = time.Since(startTime).Milliseconds()

	if s.ledgerPort != nil {
		if err := s.ledgerPort.StoreRun(ctx, manifest); err != nil {
			return nil, fmt.Errorf("manifest persistence failed: %w", err)
		}
	}

	log.Printf("[LeakageAudit] run %s complete in %dms: leaky=%.3f clean=%.3f chance=%.3f",
		runID, result.RuntimeMs, leakyFam.MeanScore, cleanFam.MeanScore, result.ChanceLevel)
	return result, nil
}

// VerifyRun replays a stored manifest's scenario and checks the replay
// reproduces the recorded hashes: seed disagreement fails before any work,
// a configuration drift surfaces as a hash mismatch, and a fingerprint
// disagreement under matching inputs means the run is not deterministic.
// The replay never touches the ledger.
func (s *LeakageAuditService) VerifyRun(ctx context.Context, req AuditRequest, manifest eval.RunManifest, families []ports.ModelFamily) error {
	if req.Seed != manifest.Seed {
		return fmt.Errorf("%w: request seed %d, manifest seed %d", core.ErrSeedMismatch, req.Seed, manifest.Seed)
	}

	replica := *s
	replica.ledgerPort = nil
	replayReq := req
	replayReq.RunID = core.RunID(manifest.RunID.String() + ".replay")
	result, err := replica.RunAudit(ctx, replayReq, families)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	if !result.Manifest.ConfigHash.Equals(manifest.ConfigHash) {
		return fmt.Errorf("%w: replay config hash %s, manifest %s", core.ErrHashMismatch, result.Manifest.ConfigHash, manifest.ConfigHash)
	}
	if !result.Manifest.Fingerprint.Equals(manifest.Fingerprint) {
		return fmt.Errorf("%w: replay fingerprint %s, manifest %s", core.ErrNonDeterministic, result.Manifest.Fingerprint, manifest.Fingerprint)
	}
	return nil
}

// regionIndicator resolves the target region through the atlas and projects
// it onto the masked feature space.
func (s *LeakageAuditService) regionIndicator(ctx context.Context, req AuditRequest, adapter *space.MaskedSpaceAdapter) (eval.RegionIndicator, error) {
	vol, err := s.atlasPort.LookupRegion(ctx, req.AtlasID, req.AtlasComponent, adapter.Grid())
	if err != nil {
		return nil, fmt.Errorf("atlas lookup failed: %w", err)
	}
	weights, err := adapter.TransformOne(vol)
	if err != nil {
		return nil, fmt.Errorf("region projection failed: %w", err)
	}
	return eval.RegionIndicator(weights), nil
}

func (s *LeakageAuditService) buildManifest(runID core.RunID, req AuditRequest, p int,
	leaky, clean *eval.FamilyResult, result *AuditResult) eval.RunManifest {

	configHash := core.ComputeConfigHash(
		"samples", strconv.Itoa(req.Samples),
		"features", strconv.Itoa(p),
		"k_features", strconv.Itoa(req.KFeatures),
		"n_splits", strconv.Itoa(req.NSplits),
		"null_reps", strconv.Itoa(req.NullRepetitions),
		"test_fraction", strconv.FormatFloat(req.TestFraction, 'g', -1, 64),
		"effect_size", strconv.FormatFloat(req.EffectSize, 'g', -1, 64),
		"smoothing_fwhm", strconv.FormatFloat(req.SmoothingFWHM, 'g', -1, 64),
		"search_lambda", strconv.FormatBool(req.SearchLambda),
	)

	nullMean := 0.0
	if result.Null != nil {
		nullMean = result.Comparison.NullMean
	}

	manifest := eval.RunManifest{
		RunID:         runID,
		Seed:          req.Seed,
		ConfigHash:    configHash,
		Samples:       req.Samples,
		Features:      p,
		EffectSize:    req.EffectSize,
		LeakyMean:     leaky.MeanScore,
		CleanMean:     clean.MeanScore,
		NullMean:      nullMean,
		ChanceLevel:   result.ChanceLevel,
		SkippedSplits: result.Leaky.Skipped + result.Clean.Skipped,
		CreatedAt:     core.Now(),
	}
	manifest.Fingerprint = core.ComputeRunFingerprint(configHash, req.Seed, scoreDigest(leaky.Scores, clean.Scores))
	return manifest
}

// scoreDigest serializes score sequences in split order so equal fingerprints
// imply identical score series.
func scoreDigest(series ...[]float64) string {
	var b strings.Builder
	for _, scores := range series {
		for _, v := range scores {
			b.WriteString(strconv.FormatFloat(v, 'g', 17, 64))
			b.WriteString(",")
		}
		b.WriteString(";")
	}
	return b.String()
}

// balancedBinaryOutcome assigns the first half of samples class 0 and the
// rest class 1, the ground-truth grouping of the synthetic cohort.
func balancedBinaryOutcome(n int) eval.Outcome {
	labels := make([]float64, n)
	for i := n / 2; i < n; i++ {
		labels[i] = 1
	}
	return eval.NewCategoricalOutcome(labels)
}
