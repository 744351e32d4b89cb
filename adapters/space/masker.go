// Package space implements the bidirectional mapping between full-resolution
// spatial volumes and the reduced feature vectors restricted to masked-in
// positions. Every other component consumes feature matrices produced here.
package space

import (
	"leakcheck/domain/core"
	"leakcheck/domain/eval"
	"leakcheck/domain/volume"
)

// MaskedSpaceAdapter owns the mask-to-index mapping. Fit establishes the
// ordered index set; after that the adapter is read-only and safe for
// concurrent Transform/InverseTransform calls.
type MaskedSpaceAdapter struct {
	grid   volume.Grid
	index  []int // flat positions of masked-in voxels, ascending
	fitted bool
}

// NewMaskedSpaceAdapter creates an unfitted adapter.
func NewMaskedSpaceAdapter() *MaskedSpaceAdapter {
	return &MaskedSpaceAdapter{}
}

// Fit establishes the ordered feature index set from a boolean spatial mask.
// Re-fitting replaces the index set; there is no incremental update.
func (a *MaskedSpaceAdapter) Fit(mask volume.Mask) error {
	if err := mask.Validate(); err != nil {
		return err
	}

	index := make([]int, 0, mask.Count())
	for i, in := range mask.In {
		if in {
			index = append(index, i)
		}
	}

	a.grid = mask.Grid
	a.index = index
	a.fitted = true
	return nil
}

// Fitted reports whether Fit has been called.
func (a *MaskedSpaceAdapter) Fitted() bool {
	return a.fitted
}

// P returns the feature count established by Fit.
func (a *MaskedSpaceAdapter) P() int {
	return len(a.index)
}

// Grid returns the fitted grid.
func (a *MaskedSpaceAdapter) Grid() volume.Grid {
	return a.grid
}

// TransformOne maps a single volume to a length-P feature vector by selecting
// masked-in positions in the fixed fitted order.
func (a *MaskedSpaceAdapter) TransformOne(v volume.Volume) ([]float64, error) {
	if !a.fitted {
		return nil, core.ErrNotFitted
	}
	if !v.Grid.Equals(a.grid) {
		return nil, core.NewShapeMismatchError(a.grid.Dims(), v.Grid.Dims())
	}

	out := make([]float64, len(a.index))
	for j, pos := range a.index {
		out[j] = v.Data[pos]
	}
	return out, nil
}

// Transform maps a batch of volumes to an (N,P) matrix.
func (a *MaskedSpaceAdapter) Transform(vols []volume.Volume) (*eval.Batch, error) {
	if !a.fitted {
		return nil, core.ErrNotFitted
	}

	batch := &eval.Batch{Data: make([][]float64, len(vols))}
	for i, v := range vols {
		row, err := a.TransformOne(v)
		if err != nil {
			return nil, err
		}
		batch.Data[i] = row
	}
	return batch, nil
}

// InverseTransformVector maps a length-P vector back to a full volume,
// filling non-masked positions with zero. Left-inverse of TransformOne
// restricted to masked positions.
func (a *MaskedSpaceAdapter) InverseTransformVector(w []float64) (volume.Volume, error) {
	if !a.fitted {
		return volume.Volume{}, core.ErrNotFitted
	}
	if len(w) != len(a.index) {
		return volume.Volume{}, core.NewDimensionMismatchError("feature vector", len(a.index), len(w))
	}

	v := volume.NewVolume(a.grid)
	for j, pos := range a.index {
		v.Data[pos] = w[j]
	}
	return v, nil
}

// InverseTransform maps an (N,P) matrix back to N full volumes.
func (a *MaskedSpaceAdapter) InverseTransform(batch *eval.Batch) ([]volume.Volume, error) {
	if !a.fitted {
		return nil, core.ErrNotFitted
	}

	vols := make([]volume.Volume, batch.Rows())
	for i, row := range batch.Data {
		v, err := a.InverseTransformVector(row)
		if err != nil {
			return nil, err
		}
		vols[i] = v
	}
	return vols, nil
}
