// Package chunkgrid maps between an array's logical index space and its
// regular chunk grid: which chunk owns an element, how a rectangular region
// decomposes into per-chunk selections, and how chunk coordinates encode
// into store keys.
package chunkgrid

import (
	"errors"
	"fmt"
)

// ErrBounds reports a selection outside the array's declared shape.
// It is a caller contract violation, distinct from store failures.
var ErrBounds = errors.New("selection out of array bounds")

// Region is the rectangular selection [Start, Start+Shape) of an index space.
type Region struct {
	Start []int
	Shape []int
}

// Grid is a regular chunk grid: every chunk has the same shape, and chunks
// at the upper grid boundary may extend past the array's declared shape.
type Grid struct {
	shape      []int
	chunkShape []int
}

// New validates the array and chunk shapes and returns a grid.
func New(shape, chunkShape []int) (*Grid, error) {
	if len(shape) != len(chunkShape) {
		return nil, fmt.Errorf("chunk shape rank %d does not match array rank %d",
			len(chunkShape), len(shape))
	}
	for d, n := range shape {
		if n < 0 {
			return nil, fmt.Errorf("dimension %d has negative size %d", d, n)
		}
	}
	for d, n := range chunkShape {
		if n < 1 {
			return nil, fmt.Errorf("chunk dimension %d has size %d, want >= 1", d, n)
		}
	}
	g := &Grid{
		shape:      make([]int, len(shape)),
		chunkShape: make([]int, len(chunkShape)),
	}
	copy(g.shape, shape)
	copy(g.chunkShape, chunkShape)
	return g, nil
}

// Rank returns the number of dimensions.
func (g *Grid) Rank() int { return len(g.shape) }

// Shape returns a copy of the array shape.
func (g *Grid) Shape() []int {
	s := make([]int, len(g.shape))
	copy(s, g.shape)
	return s
}

// ChunkShape returns a copy of the chunk shape.
func (g *Grid) ChunkShape() []int {
	s := make([]int, len(g.chunkShape))
	copy(s, g.chunkShape)
	return s
}

// ChunkCount returns the number of chunks along each dimension.
func (g *Grid) ChunkCount() []int {
	counts := make([]int, len(g.shape))
	for d := range g.shape {
		counts[d] = (g.shape[d] + g.chunkShape[d] - 1) / g.chunkShape[d]
	}
	return counts
}

// ChunkOf returns the coordinate of the chunk owning the given element index.
func (g *Grid) ChunkOf(index []int) ([]int, error) {
	if len(index) != len(g.shape) {
		return nil, fmt.Errorf("%w: index rank %d, array rank %d", ErrBounds, len(index), len(g.shape))
	}
	coord := make([]int, len(index))
	for d, i := range index {
		if i < 0 || i >= g.shape[d] {
			return nil, fmt.Errorf("%w: index %d outside dimension %d of size %d", ErrBounds, i, d, g.shape[d])
		}
		coord[d] = i / g.chunkShape[d]
	}
	return coord, nil
}

// ChunkStart returns the logical index of a chunk's first element.
func (g *Grid) ChunkStart(coord []int) []int {
	start := make([]int, len(coord))
	for d, c := range coord {
		start[d] = c * g.chunkShape[d]
	}
	return start
}

// ValidShape returns the extent of the chunk at coord that lies inside the
// declared array shape. Boundary chunks are clamped; interior chunks return
// the full chunk shape.
func (g *Grid) ValidShape(coord []int) []int {
	valid := make([]int, len(coord))
	for d, c := range coord {
		remaining := g.shape[d] - c*g.chunkShape[d]
		if remaining > g.chunkShape[d] {
			remaining = g.chunkShape[d]
		}
		if remaining < 0 {
			remaining = 0
		}
		valid[d] = remaining
	}
	return valid
}

// CheckRegion validates that a region lies within the array's shape.
func (g *Grid) CheckRegion(r Region) error {
	if len(r.Start) != len(g.shape) || len(r.Shape) != len(g.shape) {
		return fmt.Errorf("%w: region rank %d, array rank %d", ErrBounds, len(r.Start), len(g.shape))
	}
	for d := range g.shape {
		if r.Start[d] < 0 || r.Shape[d] < 0 || r.Start[d]+r.Shape[d] > g.shape[d] {
			return fmt.Errorf("%w: region [%d, %d) outside dimension %d of size %d",
				ErrBounds, r.Start[d], r.Start[d]+r.Shape[d], d, g.shape[d])
		}
	}
	return nil
}

// Projection maps one chunk's share of a region request: the chunk
// coordinate, the selection within that chunk, and the matching selection
// within the request's output buffer. ChunkSel and OutSel always have the
// same shape.
type Projection struct {
	Chunk    []int
	ChunkSel Region
	OutSel   Region
}

// Project decomposes a region into per-chunk projections. The projections
// partition the region exactly: no overlap, no gap. An empty region yields
// no projections.
func (g *Grid) Project(r Region) ([]Projection, error) {
	if err := g.CheckRegion(r); err != nil {
		return nil, err
	}
	rank := len(g.shape)
	for _, n := range r.Shape {
		if n == 0 {
			return nil, nil
		}
	}

	first := make([]int, rank)
	last := make([]int, rank)
	for d := 0; d < rank; d++ {
		first[d] = r.Start[d] / g.chunkShape[d]
		last[d] = (r.Start[d] + r.Shape[d] - 1) / g.chunkShape[d]
	}

	var projs []Projection
	coord := make([]int, rank)
	copy(coord, first)
	for {
		p := Projection{
			Chunk:    make([]int, rank),
			ChunkSel: Region{Start: make([]int, rank), Shape: make([]int, rank)},
			OutSel:   Region{Start: make([]int, rank), Shape: make([]int, rank)},
		}
		copy(p.Chunk, coord)
		for d := 0; d < rank; d++ {
			chunkStart := coord[d] * g.chunkShape[d]
			s0 := max(r.Start[d], chunkStart)
			s1 := min(r.Start[d]+r.Shape[d], chunkStart+g.chunkShape[d])
			p.ChunkSel.Start[d] = s0 - chunkStart
			p.ChunkSel.Shape[d] = s1 - s0
			p.OutSel.Start[d] = s0 - r.Start[d]
			p.OutSel.Shape[d] = s1 - s0
		}
		projs = append(projs, p)

		d := rank - 1
		for ; d >= 0; d-- {
			coord[d]++
			if coord[d] <= last[d] {
				break
			}
			coord[d] = first[d]
		}
		if d < 0 {
			break
		}
	}
	return projs, nil
}
