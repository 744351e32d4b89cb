package ports

import (
	"context"

	"leakcheck/domain/core"
	"leakcheck/domain/volume"
)

// AtlasPort resolves a named atlas component to a weight volume on the
// working grid. Implementations are expected to resample to the requested
// grid before returning.
type AtlasPort interface {
	LookupRegion(ctx context.Context, atlasID core.AtlasID, component int, grid volume.Grid) (volume.Volume, error)
}
