package zarr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-zarr/internal/chunkgrid"
	"github.com/robert-malhotra/go-zarr/internal/codec"
	"github.com/robert-malhotra/go-zarr/internal/dtype"
	"github.com/robert-malhotra/go-zarr/internal/sharding"
	"github.com/robert-malhotra/go-zarr/store"
)

// Array is an open N-dimensional array. It is safe for concurrent reads;
// concurrent writers touching the same chunk must serialize themselves.
type Array struct {
	store store.Store
	path  string
	meta  *ArrayMetadata

	grid  *chunkgrid.Grid
	keys  chunkgrid.KeyEncoding
	chain *codec.Chain
	// shard is non-nil when the chain's array-to-bytes stage is the
	// sharding codec.
	shard *sharding.Codec

	log        *zap.Logger
	limit      int
	writeEmpty bool
}

// nodeKey joins a node path and a key relative to it.
func nodeKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}

// CreateArray writes a new array's metadata under path and returns the
// open array. An existing array at the same path is replaced; its chunks
// are not removed.
func CreateArray(ctx context.Context, st store.Store, path string, shape []int, dt DataType, opts ...Option) (*Array, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	fill := dt.Zero()
	if o.hasFill {
		raw, err := json.Marshal(o.fill)
		if err != nil {
			return nil, fmt.Errorf("%w: fill value: %v", ErrInvalidMetadata, err)
		}
		fill, err = dtype.ParseFill(dt, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: fill value: %v", ErrInvalidMetadata, err)
		}
	}

	chunkShape := o.chunkShape
	if len(chunkShape) == 0 {
		chunkShape = make([]int, len(shape))
		for d, n := range shape {
			if n < 1 {
				n = 1
			}
			chunkShape[d] = n
		}
	}

	meta := &ArrayMetadata{
		Shape:          shape,
		DataType:       dt,
		ChunkShape:     chunkShape,
		KeyEncoding:    o.keyEncoding,
		Separator:      o.separator,
		Fill:           fill,
		Codecs:         o.codecs,
		Attributes:     o.attributes,
		DimensionNames: o.dimensionNames,
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}

	a, err := newArray(st, path, meta, o)
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if err := a.store.Set(ctx, nodeKey(path, MetadataKey), doc); err != nil {
		return nil, fmt.Errorf("writing array metadata: %w", err)
	}
	a.log.Debug("created array",
		zap.String("path", path),
		zap.Ints("shape", shape),
		zap.String("data_type", string(dt)))
	return a, nil
}

// OpenArray reads the metadata document at path and returns the open array.
func OpenArray(ctx context.Context, st store.Store, path string, opts ...Option) (*Array, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	doc, err := st.Get(ctx, nodeKey(path, MetadataKey))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading array metadata: %w", err)
	}

	meta := &ArrayMetadata{}
	if err := json.Unmarshal(doc, meta); err != nil {
		return nil, err
	}
	return newArray(st, path, meta, o)
}

// newArray validates the codec chain against the metadata and assembles
// the orchestration state.
func newArray(st store.Store, path string, meta *ArrayMetadata, o *options) (*Array, error) {
	grid, err := chunkgrid.New(meta.Shape, meta.ChunkShape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	keys, err := chunkgrid.ParseEncoding(meta.KeyEncoding, meta.Separator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	chain, err := codec.NewChain(meta.Codecs)
	if err != nil {
		return nil, err
	}

	var shard *sharding.Codec
	if sc, ok := chain.ArrayBytes().(*sharding.Codec); ok {
		shard = sc
		sub := sc.ChunkShape()
		if len(sub) != len(meta.ChunkShape) {
			return nil, fmt.Errorf("%w: sharding sub-chunk rank %d for chunk rank %d",
				ErrInvalidMetadata, len(sub), len(meta.ChunkShape))
		}
		for d := range sub {
			if meta.ChunkShape[d]%sub[d] != 0 {
				return nil, fmt.Errorf("%w: chunk dimension %d of size %d is not divisible by sub-chunk size %d",
					ErrInvalidMetadata, d, meta.ChunkShape[d], sub[d])
			}
		}
		if o.shardIndexCache >= 0 {
			sc.SetIndexCacheSize(o.shardIndexCache)
		}
	}

	if o.retry != nil {
		st = store.WithRetry(st, *o.retry)
	}

	return &Array{
		store:      st,
		path:       path,
		meta:       meta,
		grid:       grid,
		keys:       keys,
		chain:      chain,
		shard:      shard,
		log:        o.logger,
		limit:      o.concurrency,
		writeEmpty: o.writeEmpty,
	}, nil
}

// Path returns the array's node path within the store.
func (a *Array) Path() string { return a.path }

// Shape returns the array's logical shape.
func (a *Array) Shape() []int { return a.grid.Shape() }

// ChunkShape returns the chunk shape.
func (a *Array) ChunkShape() []int { return a.grid.ChunkShape() }

// DataType returns the element type.
func (a *Array) DataType() DataType { return a.meta.DataType }

// FillValue returns the fill value's element bytes.
func (a *Array) FillValue() []byte {
	out := make([]byte, len(a.meta.Fill))
	copy(out, a.meta.Fill)
	return out
}

// Attributes returns the array's user attributes.
func (a *Array) Attributes() map[string]any { return a.meta.Attributes }

// Metadata returns the array's metadata.
func (a *Array) Metadata() *ArrayMetadata { return a.meta }

// chunkKey returns the store key of one chunk.
func (a *Array) chunkKey(coord []int) string {
	return nodeKey(a.path, a.keys.ChunkKey(coord))
}

// chunkContext is the codec context for any chunk of this array.
func (a *Array) chunkContext() codec.Context {
	return codec.Context{
		Shape:    a.grid.ChunkShape(),
		ElemSize: a.meta.DataType.Size(),
		Fill:     a.meta.Fill,
	}
}
