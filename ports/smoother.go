package ports

import (
	"leakcheck/domain/volume"
)

// Smoother applies spatial smoothing to a full-resolution volume. Output
// shape must equal input shape.
type Smoother interface {
	Smooth(v volume.Volume, fwhm float64) (volume.Volume, error)
}
