package zarr

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-zarr/internal/chunkgrid"
	"github.com/robert-malhotra/go-zarr/internal/ndbuffer"
	"github.com/robert-malhotra/go-zarr/store"
)

// Get reads the rectangular region [start, start+shape) into a fresh
// buffer. Elements whose chunk was never written come back as the fill
// value. Chunks are fetched and decoded concurrently; the first failure
// cancels the rest and Get returns it.
func (a *Array) Get(ctx context.Context, start, shape []int) (*Buffer, error) {
	region := chunkgrid.Region{Start: start, Shape: shape}
	projs, err := a.grid.Project(region)
	if err != nil {
		return nil, err
	}

	a.log.Debug("reading region",
		zap.String("path", a.path),
		zap.Ints("start", start),
		zap.Ints("shape", shape),
		zap.Int("chunks", len(projs)))

	out := ndbuffer.NewFilled(shape, a.meta.Fill)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for _, p := range projs {
		p := p
		g.Go(func() error {
			return a.readChunk(gctx, p, out)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// readChunk copies one chunk's selected elements into out. Projections of
// a region are disjoint in the output, so concurrent calls never write the
// same byte.
func (a *Array) readChunk(ctx context.Context, p chunkgrid.Projection, out *ndbuffer.Buffer) error {
	key := a.chunkKey(p.Chunk)
	cctx := a.chunkContext()

	// A sharded chunk whose stored bytes are the shard layout verbatim can
	// be decoded partially: only the index and the selected sub-chunks'
	// ranges are fetched.
	if a.shard != nil && a.chain.Bare() {
		err := a.shard.DecodePartial(ctx, key, newStoreRanger(a.store, key), cctx,
			chunkgrid.Region{Start: p.ChunkSel.Start, Shape: p.ChunkSel.Shape}, out, p.OutSel.Start)
		if errors.Is(err, store.ErrNotFound) {
			a.log.Debug("shard absent", zap.String("key", key))
			return nil
		}
		return err
	}

	data, err := a.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		a.log.Debug("chunk absent", zap.String("key", key))
		return nil
	}
	if err != nil {
		return err
	}
	buf, err := a.chain.Decode(cctx, data)
	if err != nil {
		return err
	}
	return ndbuffer.CopyRegion(out, p.OutSel.Start, buf, p.ChunkSel.Start, p.ChunkSel.Shape)
}

// storeRanger adapts one store key to the sharding codec's range reader.
// When the store cannot serve ranges it falls back to fetching the value
// once and slicing.
type storeRanger struct {
	st   store.Store
	key  string
	data []byte
	full bool
}

func newStoreRanger(st store.Store, key string) *storeRanger {
	return &storeRanger{st: st, key: key}
}

func (r *storeRanger) load(ctx context.Context) error {
	if r.full {
		return nil
	}
	data, err := r.st.Get(ctx, r.key)
	if err != nil {
		return err
	}
	r.data = data
	r.full = true
	return nil
}

func (r *storeRanger) Size(ctx context.Context) (int64, error) {
	if r.st.SupportsRange() {
		return r.st.Size(ctx, r.key)
	}
	if err := r.load(ctx); err != nil {
		return 0, err
	}
	return int64(len(r.data)), nil
}

func (r *storeRanger) ReadRange(ctx context.Context, off, length int64) ([]byte, error) {
	if r.st.SupportsRange() {
		return r.st.GetRange(ctx, r.key, off, length)
	}
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	if off < 0 || length < 0 || off+length > int64(len(r.data)) {
		return nil, &store.RangeError{Key: r.key, Size: int64(len(r.data)), Off: off, Length: length}
	}
	return r.data[off : off+length], nil
}
