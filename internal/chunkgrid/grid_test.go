package chunkgrid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New([]int{4, 4}, []int{2})
	require.Error(t, err)

	_, err = New([]int{4}, []int{0})
	require.Error(t, err)

	_, err = New([]int{-1}, []int{1})
	require.Error(t, err)

	g, err := New([]int{10, 10}, []int{3, 4})
	require.NoError(t, err)
	require.Equal(t, []int{4, 3}, g.ChunkCount())
}

func TestChunkOf(t *testing.T) {
	g, err := New([]int{10, 10}, []int{3, 4})
	require.NoError(t, err)

	coord, err := g.ChunkOf([]int{9, 7})
	require.NoError(t, err)
	require.Equal(t, []int{3, 1}, coord)

	_, err = g.ChunkOf([]int{10, 0})
	require.ErrorIs(t, err, ErrBounds)

	_, err = g.ChunkOf([]int{-1, 0})
	require.ErrorIs(t, err, ErrBounds)
}

func TestValidShape(t *testing.T) {
	g, err := New([]int{10, 10}, []int{3, 4})
	require.NoError(t, err)

	// Interior chunk covers its full extent.
	require.Equal(t, []int{3, 4}, g.ValidShape([]int{0, 0}))
	// Boundary chunks are clamped to the declared shape.
	require.Equal(t, []int{1, 4}, g.ValidShape([]int{3, 0}))
	require.Equal(t, []int{3, 2}, g.ValidShape([]int{0, 2}))
	require.Equal(t, []int{1, 2}, g.ValidShape([]int{3, 2}))
}

// TestProjectPartition verifies that the per-chunk projections of a region
// cover it exactly: every output element is written by exactly one chunk.
func TestProjectPartition(t *testing.T) {
	g, err := New([]int{10, 9}, []int{3, 4})
	require.NoError(t, err)

	r := Region{Start: []int{1, 2}, Shape: []int{8, 6}}
	projs, err := g.Project(r)
	require.NoError(t, err)

	covered := make([][]int, r.Shape[0])
	for i := range covered {
		covered[i] = make([]int, r.Shape[1])
	}
	for _, p := range projs {
		require.Equal(t, p.ChunkSel.Shape, p.OutSel.Shape)
		for i := 0; i < p.OutSel.Shape[0]; i++ {
			for j := 0; j < p.OutSel.Shape[1]; j++ {
				covered[p.OutSel.Start[0]+i][p.OutSel.Start[1]+j]++
			}
		}
		// The chunk selection must lie within the chunk's valid extent.
		valid := g.ValidShape(p.Chunk)
		for d := range valid {
			require.LessOrEqual(t, p.ChunkSel.Start[d]+p.ChunkSel.Shape[d], valid[d])
		}
	}
	for i := range covered {
		for j := range covered[i] {
			require.Equal(t, 1, covered[i][j], "element (%d,%d)", i, j)
		}
	}
}

func TestProjectSingleChunk(t *testing.T) {
	g, err := New([]int{4, 4}, []int{2, 2})
	require.NoError(t, err)

	projs, err := g.Project(Region{Start: []int{2, 2}, Shape: []int{2, 2}})
	require.NoError(t, err)
	require.Len(t, projs, 1)
	require.Equal(t, []int{1, 1}, projs[0].Chunk)
	require.Equal(t, []int{0, 0}, projs[0].ChunkSel.Start)
	require.Equal(t, []int{2, 2}, projs[0].ChunkSel.Shape)
	require.Equal(t, []int{0, 0}, projs[0].OutSel.Start)
}

func TestProjectEmptyAndBounds(t *testing.T) {
	g, err := New([]int{4, 4}, []int{2, 2})
	require.NoError(t, err)

	projs, err := g.Project(Region{Start: []int{0, 0}, Shape: []int{0, 4}})
	require.NoError(t, err)
	require.Empty(t, projs)

	_, err = g.Project(Region{Start: []int{3, 0}, Shape: []int{2, 2}})
	require.True(t, errors.Is(err, ErrBounds))
}

func TestChunkKeyEncodings(t *testing.T) {
	enc, err := ParseEncoding("default", "/")
	require.NoError(t, err)
	require.Equal(t, "c/1/4", enc.ChunkKey([]int{1, 4}))
	require.Equal(t, "c", enc.ChunkKey(nil))

	enc, err = ParseEncoding("default", ".")
	require.NoError(t, err)
	require.Equal(t, "c.1.4", enc.ChunkKey([]int{1, 4}))

	enc, err = ParseEncoding("v2", ".")
	require.NoError(t, err)
	require.Equal(t, "1.4", enc.ChunkKey([]int{1, 4}))
	require.Equal(t, "0", enc.ChunkKey(nil))

	_, err = ParseEncoding("morton", "/")
	require.Error(t, err)
	_, err = ParseEncoding("default", "-")
	require.Error(t, err)
}

// TestChunkKeyInjective checks that distinct coordinates never collide.
func TestChunkKeyInjective(t *testing.T) {
	for _, name := range []string{"default", "v2"} {
		enc, err := ParseEncoding(name, "/")
		require.NoError(t, err)
		seen := map[string][]int{}
		for i := 0; i < 12; i++ {
			for j := 0; j < 12; j++ {
				key := enc.ChunkKey([]int{i, j})
				prev, dup := seen[key]
				require.False(t, dup, "%s: %v and %v collide on %q", name, prev, []int{i, j}, key)
				seen[key] = []int{i, j}
			}
		}
	}
}
