// Package vis handles visibility selection: choosing a contiguous subset of
// an observation's timesteps and coarse channels, allocating arrays for it,
// and reading correlator data into those arrays.
package vis

import "fmt"

// Cube is a dense 3-dimensional array indexed [timestep][channel][baseline].
// Data is contiguous in row-major order, so all baselines of a channel are
// adjacent and all channels of a timestep are adjacent.
type Cube[T any] struct {
	data       []T
	nt, nc, nb int
}

// NewCube allocates a zeroed cube with the given dimensions.
func NewCube[T any](nt, nc, nb int) *Cube[T] {
	return &Cube[T]{data: make([]T, nt*nc*nb), nt: nt, nc: nc, nb: nb}
}

// Dims returns the (timestep, channel, baseline) dimensions.
func (c *Cube[T]) Dims() (int, int, int) {
	return c.nt, c.nc, c.nb
}

func (c *Cube[T]) index(t, ch, bl int) int {
	return (t*c.nc+ch)*c.nb + bl
}

// At returns the element at (t, ch, bl).
func (c *Cube[T]) At(t, ch, bl int) T {
	return c.data[c.index(t, ch, bl)]
}

// Set stores v at (t, ch, bl).
func (c *Cube[T]) Set(t, ch, bl int, v T) {
	c.data[c.index(t, ch, bl)] = v
}

// Fill sets every element to v.
func (c *Cube[T]) Fill(v T) {
	for i := range c.data {
		c.data[i] = v
	}
}

// FillChans sets every element of the channel range [ch0, ch1) to v, across
// all baselines of the given timestep.
func (c *Cube[T]) FillChans(t, ch0, ch1 int, v T) {
	for ch := ch0; ch < ch1; ch++ {
		row := c.data[c.index(t, ch, 0) : c.index(t, ch, 0)+c.nb]
		for i := range row {
			row[i] = v
		}
	}
}

// Data returns the backing slice in [timestep][channel][baseline] order.
func (c *Cube[T]) Data() []T {
	return c.data
}

// DimString renders the dimensions the way shape errors report them.
func (c *Cube[T]) DimString() string {
	return fmt.Sprintf("(%d, %d, %d)", c.nt, c.nc, c.nb)
}
