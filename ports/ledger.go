package ports

import (
	"context"

	"leakcheck/domain/core"
	"leakcheck/domain/eval"
)

// LedgerPort persists run manifests for audit and replay. Persistence is an
// out-of-core convenience: the computation path never touches it.
type LedgerPort interface {
	StoreRun(ctx context.Context, manifest eval.RunManifest) error
	GetRun(ctx context.Context, runID core.RunID) (*eval.RunManifest, error)
	ListRuns(ctx context.Context, limit int) ([]eval.RunManifest, error)
}
