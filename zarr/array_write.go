package zarr

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-zarr/internal/chunkgrid"
	"github.com/robert-malhotra/go-zarr/internal/codec"
	"github.com/robert-malhotra/go-zarr/internal/ndbuffer"
	"github.com/robert-malhotra/go-zarr/store"
)

// Set writes buf into the rectangular region starting at start. Chunks
// fully covered by the region are encoded directly; partially covered
// chunks are read, overlaid, and re-encoded. Chunks whose resulting
// content is entirely fill value are deleted instead of stored, unless the
// array was opened with WithWriteEmptyChunks.
//
// The first failing chunk cancels the remaining work and Set returns its
// error. Chunks already stored by then are not rolled back.
func (a *Array) Set(ctx context.Context, start []int, buf *Buffer) error {
	if buf.ElemSize() != a.meta.DataType.Size() {
		return fmt.Errorf("%w: buffer element size %d, array needs %d",
			ErrDtypeMismatch, buf.ElemSize(), a.meta.DataType.Size())
	}
	if buf.Rank() != a.grid.Rank() {
		return fmt.Errorf("%w: buffer rank %d, array rank %d",
			ErrShapeMismatch, buf.Rank(), a.grid.Rank())
	}

	region := chunkgrid.Region{Start: start, Shape: buf.Shape()}
	projs, err := a.grid.Project(region)
	if err != nil {
		return err
	}

	a.log.Debug("writing region",
		zap.String("path", a.path),
		zap.Ints("start", start),
		zap.Ints("shape", buf.Shape()),
		zap.Int("chunks", len(projs)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for _, p := range projs {
		p := p
		g.Go(func() error {
			return a.writeChunk(gctx, p, buf)
		})
	}
	return g.Wait()
}

// writeChunk stores one chunk's new content, reading and overlaying the
// existing content first when the projection covers the chunk only partly.
// Chunks at the array boundary never count as fully covered: their content
// extends to the full chunk shape, padded with fill value.
func (a *Array) writeChunk(ctx context.Context, p chunkgrid.Projection, src *Buffer) error {
	key := a.chunkKey(p.Chunk)
	cctx := a.chunkContext()
	chunkShape := a.grid.ChunkShape()

	var chunk *ndbuffer.Buffer
	if fullCover(p.ChunkSel, chunkShape) {
		var err error
		chunk, err = src.Region(p.OutSel.Start, p.OutSel.Shape)
		if err != nil {
			return err
		}
	} else {
		var err error
		chunk, err = a.loadChunk(ctx, key, cctx, chunkShape)
		if err != nil {
			return err
		}
		if err := ndbuffer.CopyRegion(chunk, p.ChunkSel.Start, src, p.OutSel.Start, p.ChunkSel.Shape); err != nil {
			return err
		}
	}

	if a.shard != nil {
		defer a.shard.InvalidateIndex(key)
	}

	if !a.writeEmpty && chunk.AllEqual(a.meta.Fill) {
		a.log.Debug("deleting all-fill chunk", zap.String("key", key))
		return a.store.Delete(ctx, key)
	}

	data, err := a.chain.Encode(cctx, chunk)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}

// loadChunk decodes the stored chunk, or synthesizes a fill-value chunk
// when the key is absent.
func (a *Array) loadChunk(ctx context.Context, key string, cctx codec.Context, chunkShape []int) (*ndbuffer.Buffer, error) {
	data, err := a.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return ndbuffer.NewFilled(chunkShape, a.meta.Fill), nil
	}
	if err != nil {
		return nil, err
	}
	return a.chain.Decode(cctx, data)
}

// fullCover reports whether the intra-chunk selection spans the whole
// chunk shape.
func fullCover(sel chunkgrid.Region, chunkShape []int) bool {
	for d := range chunkShape {
		if sel.Start[d] != 0 || sel.Shape[d] != chunkShape[d] {
			return false
		}
	}
	return true
}
