// Package testkit provides fixtures and fake adapters shared by tests and
// the demo entrypoint: mask builders, a box-region fake atlas, balanced
// outcome generators and an in-memory run ledger.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"leakcheck/adapters/space"
	"leakcheck/domain/core"
	"leakcheck/domain/eval"
	"leakcheck/domain/volume"
	"leakcheck/ports"
)

// TestKit bundles shared fixtures. The ledger instance is shared so a
// pipeline under test and its assertions see the same storage.
type TestKit struct {
	ledger *InMemoryLedgerAdapter
}

// NewTestKit creates a new test kit instance.
func NewTestKit() *TestKit {
	return &TestKit{ledger: NewInMemoryLedgerAdapter()}
}

// LedgerAdapter returns the shared in-memory ledger.
func (t *TestKit) LedgerAdapter() ports.LedgerPort {
	return t.ledger
}

// AtlasAdapter returns a fake atlas serving axis-aligned box regions.
func (t *TestKit) AtlasAdapter() ports.AtlasPort {
	return &FakeAtlasAdapter{}
}

// CubeMask builds a full mask over a side^3 grid, giving P = side^3
// features.
func CubeMask(side int) volume.Mask {
	return volume.FullMask(volume.Grid{X: side, Y: side, Z: side})
}

// LineMask builds a full mask over a (p,1,1) grid, giving exactly P features
// without spatial structure. The cheapest way to get a fitted adapter of a
// chosen width.
func LineMask(p int) volume.Mask {
	return volume.FullMask(volume.Grid{X: p, Y: 1, Z: 1})
}

// FittedAdapter fits a masked-space adapter over the given mask. Panics on a
// malformed fixture mask; fixtures are programmer-controlled.
func FittedAdapter(mask volume.Mask) *space.MaskedSpaceAdapter {
	adapter := space.NewMaskedSpaceAdapter()
	if err := adapter.Fit(mask); err != nil {
		panic(fmt.Sprintf("testkit: fixture mask invalid: %v", err))
	}
	return adapter
}

// BalancedBinaryOutcome builds a categorical outcome with the first half 0
// and the second half 1.
func BalancedBinaryOutcome(n int) eval.Outcome {
	labels := make([]float64, n)
	for i := n / 2; i < n; i++ {
		labels[i] = 1
	}
	return eval.NewCategoricalOutcome(labels)
}

// PrefixRegion marks the first k features as signal carriers with weight 1.
func PrefixRegion(p, k int) eval.RegionIndicator {
	region := make(eval.RegionIndicator, p)
	for j := 0; j < k && j < p; j++ {
		region[j] = 1
	}
	return region
}

// FakeAtlasAdapter implements AtlasPort with deterministic box regions. The
// component index selects which octant-sized box lights up, so distinct
// components give disjoint regions on any grid of side >= 2.
type FakeAtlasAdapter struct{}

// LookupRegion returns a weight volume with 1.0 inside an axis-aligned box
// and 0.0 elsewhere.
func (a *FakeAtlasAdapter) LookupRegion(ctx context.Context, atlasID core.AtlasID, component int, grid volume.Grid) (volume.Volume, error) {
	if grid.Size() == 0 {
		return volume.Volume{}, core.NewConfigurationError("grid", "must be non-empty")
	}
	if component < 0 {
		return volume.Volume{}, core.NewConfigurationError("component", "must be >= 0")
	}

	halfX, halfY, halfZ := (grid.X+1)/2, (grid.Y+1)/2, (grid.Z+1)/2
	offX := (component & 1) * halfX
	offY := ((component >> 1) & 1) * halfY
	offZ := ((component >> 2) & 1) * halfZ

	v := volume.NewVolume(grid)
	for z := offZ; z < offZ+halfZ && z < grid.Z; z++ {
		for y := offY; y < offY+halfY && y < grid.Y; y++ {
			for x := offX; x < offX+halfX && x < grid.X; x++ {
				v.Set(x, y, z, 1)
			}
		}
	}
	return v, nil
}

// InMemoryLedgerAdapter implements LedgerPort with in-memory storage.
type InMemoryLedgerAdapter struct {
	runs  map[core.RunID]eval.RunManifest
	order []core.RunID
	mu    sync.RWMutex
}

// NewInMemoryLedgerAdapter creates an empty ledger.
func NewInMemoryLedgerAdapter() *InMemoryLedgerAdapter {
	return &InMemoryLedgerAdapter{runs: make(map[core.RunID]eval.RunManifest)}
}

// StoreRun records a manifest, replacing any prior entry for the same run.
func (s *InMemoryLedgerAdapter) StoreRun(ctx context.Context, manifest eval.RunManifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[manifest.RunID]; !exists {
		s.order = append(s.order, manifest.RunID)
	}
	s.runs[manifest.RunID] = manifest
	return nil
}

// GetRun retrieves a stored manifest.
func (s *InMemoryLedgerAdapter) GetRun(ctx context.Context, runID core.RunID) (*eval.RunManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	manifest, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return &manifest, nil
}

// ListRuns returns the most recent manifests, newest first.
func (s *InMemoryLedgerAdapter) ListRuns(ctx context.Context, limit int) ([]eval.RunManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]eval.RunManifest, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.order[i]])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
