package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"leakcheck/adapters/excel"
	"leakcheck/adapters/models"
	"leakcheck/adapters/postgres"
	"leakcheck/adapters/selection"
	"leakcheck/adapters/synth"
	"leakcheck/app"
	"leakcheck/domain/core"
	"leakcheck/internal/config"
	"leakcheck/internal/resampling"
	"leakcheck/internal/testkit"
	"leakcheck/ports"
	"leakcheck/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()
	ledger, err := buildLedger(ctx, cfg)
	if err != nil {
		log.Fatalf("Ledger initialization failed: %v", err)
	}

	service := app.NewLeakageAuditService(
		synth.NewFieldGenerator(synth.NewGaussianSmoother()),
		selection.NewTopKCorrelation(),
		testkit.NewTestKit().AtlasAdapter(),
		ledger,
		resampling.NewStreams(),
		ports.ProgressFunc(func(completed, total int) {
			if completed%10 == 0 || completed == total {
				log.Printf("[Progress] %d/%d repetitions", completed, total)
			}
		}),
	)

	req := app.AuditRequest{
		Mask:            testkit.LineMask(cfg.Audit.Features),
		AtlasID:         core.AtlasID("synthetic_box"),
		AtlasComponent:  0,
		Samples:         cfg.Audit.Samples,
		KFeatures:       cfg.Audit.KFeatures,
		NSplits:         cfg.Audit.NSplits,
		NullRepetitions: cfg.Audit.NNullReps,
		TestFraction:    cfg.Audit.TestFraction,
		EffectSize:      cfg.Audit.EffectSize,
		Seed:            cfg.Audit.Seed,
		Parallelism:     cfg.Audit.Parallelism,
		SearchLambda:    cfg.Audit.SearchLambda,
	}

	families := []ports.ModelFamily{models.NewRidgeClassifier(1.0)}
	result, err := service.RunAudit(ctx, req, families)
	if err != nil {
		log.Fatalf("Audit failed: %v", err)
	}

	primary := families[0].Key()
	log.Printf("Leaky (global selection) mean score:    %.3f", result.Leaky.Families[primary].MeanScore)
	log.Printf("Clean (per-split selection) mean score: %.3f", result.Clean.Families[primary].MeanScore)
	if result.Null != nil {
		log.Printf("Permutation null mean score:            %.3f (chance %.3f)", result.Comparison.NullMean, result.ChanceLevel)
	}
	log.Printf("Run fingerprint: %s", result.Manifest.Fingerprint)

	if cfg.Paths.ExcelFile != "" {
		if err := excel.NewReportExporter().Export(result, cfg.Paths.ExcelFile); err != nil {
			log.Fatalf("Report export failed: %v", err)
		}
	}

	if cfg.Server.Enabled {
		server := ui.NewServer(ledger)
		if err := server.Start("localhost:" + cfg.Server.Port); err != nil {
			log.Fatalf("Report server failed: %v", err)
		}
	}
}

// buildLedger chooses Postgres persistence when configured, otherwise the
// in-memory ledger.
func buildLedger(ctx context.Context, cfg *config.Config) (ports.LedgerPort, error) {
	if !cfg.Database.Enabled {
		return testkit.NewInMemoryLedgerAdapter(), nil
	}

	db, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	log.Printf("Using Postgres run ledger")
	return postgres.NewRunRepository(db), nil
}
