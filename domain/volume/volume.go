// Package volume holds the spatial primitives shared by the masker, the
// synthetic generators and the atlas port: a 3D grid, dense scalar volumes
// over that grid, and boolean masks selecting valid positions.
package volume

import (
	"leakcheck/domain/core"
)

// Grid describes the dimensions of a 3D spatial array.
type Grid struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Size returns the total number of positions in the grid.
func (g Grid) Size() int {
	return g.X * g.Y * g.Z
}

// Dims returns the grid dimensions as a fixed-size array for error reporting.
func (g Grid) Dims() [3]int {
	return [3]int{g.X, g.Y, g.Z}
}

// Equals checks grid equality.
func (g Grid) Equals(other Grid) bool {
	return g == other
}

// Index converts (x,y,z) coordinates to a flat position, x-fastest.
func (g Grid) Index(x, y, z int) int {
	return x + g.X*(y+g.Y*z)
}

// Volume is a dense scalar field over a grid, stored flat in Index order.
type Volume struct {
	Grid Grid      `json:"grid"`
	Data []float64 `json:"data"`
}

// NewVolume allocates a zero-filled volume over the grid.
func NewVolume(g Grid) Volume {
	return Volume{Grid: g, Data: make([]float64, g.Size())}
}

// At returns the value at (x,y,z).
func (v Volume) At(x, y, z int) float64 {
	return v.Data[v.Grid.Index(x, y, z)]
}

// Set assigns the value at (x,y,z).
func (v Volume) Set(x, y, z int, val float64) {
	v.Data[v.Grid.Index(x, y, z)] = val
}

// Clone returns a deep copy.
func (v Volume) Clone() Volume {
	out := Volume{Grid: v.Grid, Data: make([]float64, len(v.Data))}
	copy(out.Data, v.Data)
	return out
}

// Validate checks that the data length matches the grid.
func (v Volume) Validate() error {
	if len(v.Data) != v.Grid.Size() {
		return core.NewDimensionMismatchError("volume data", v.Grid.Size(), len(v.Data))
	}
	return nil
}

// Mask is a boolean selector over a grid defining the valid feature set.
type Mask struct {
	Grid Grid   `json:"grid"`
	In   []bool `json:"in"`
}

// NewMask allocates an all-out mask over the grid.
func NewMask(g Grid) Mask {
	return Mask{Grid: g, In: make([]bool, g.Size())}
}

// FullMask returns a mask with every position selected.
func FullMask(g Grid) Mask {
	m := NewMask(g)
	for i := range m.In {
		m.In[i] = true
	}
	return m
}

// Count returns the number of masked-in positions.
func (m Mask) Count() int {
	n := 0
	for _, in := range m.In {
		if in {
			n++
		}
	}
	return n
}

// Validate checks that the selector length matches the grid.
func (m Mask) Validate() error {
	if len(m.In) != m.Grid.Size() {
		return core.NewDimensionMismatchError("mask selector", m.Grid.Size(), len(m.In))
	}
	return nil
}
