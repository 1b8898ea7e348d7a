// Package sharding implements the sharding codec: it packs many
// independently encoded sub-chunks plus a fixed-layout index into a single
// stored object, amortizing per-object store overhead while keeping
// sub-chunk reads cheap.
//
// A shard's payload holds the present sub-chunks' encoded bytes
// contiguously in z-curve (morton) order; the index records each slot's
// (offset, length) or an absent marker and sits at a fixed end of the
// object, so its extent is computable from the total length alone. Decode
// therefore reads the index first and then fetches only the wanted
// sub-chunks' byte ranges.
//
// Writing one sub-chunk of an existing shard is never cheaper than a whole
// shard read-modify-write: every other present sub-chunk is decoded via the
// index, combined with the new data, and the entire shard is re-encoded as
// one new object. Shards are not mutated in place.
package sharding

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/robert-malhotra/go-zarr/internal/chunkgrid"
	"github.com/robert-malhotra/go-zarr/internal/codec"
	"github.com/robert-malhotra/go-zarr/internal/ndbuffer"
)

// Name is the codec's metadata name.
const Name = "sharding_indexed"

// Index placement within the shard object.
const (
	IndexLocationEnd   = "end"
	IndexLocationStart = "start"
)

// defaultIndexCacheSize bounds the per-array cache of parsed shard indexes.
const defaultIndexCacheSize = 128

func init() {
	codec.Register(Name, func(cfg json.RawMessage) (codec.Codec, error) {
		return New(cfg)
	})
}

// RangeReader reads byte ranges of one stored object. It is how the codec
// reaches the store's range-read capability without depending on the store
// package; an adapter that cannot read ranges may fetch the whole object
// once and serve slices.
type RangeReader interface {
	// Size returns the object's total byte length.
	Size(ctx context.Context) (int64, error)
	// ReadRange returns length bytes starting at off.
	ReadRange(ctx context.Context, off, length int64) ([]byte, error)
}

// Codec packs sub-chunks into shards. It registers as the chain's
// array-to-bytes stage and nests a full inner codec chain per sub-chunk.
type Codec struct {
	chunkShape    []int
	inner         *codec.Chain
	index         *codec.Chain
	indexLocation string
	cache         *lru.Cache[string, *Index]
}

type shardingConfig struct {
	ChunkShape    []int        `json:"chunk_shape"`
	Codecs        []codec.Spec `json:"codecs,omitempty"`
	IndexCodecs   []codec.Spec `json:"index_codecs,omitempty"`
	IndexLocation string       `json:"index_location,omitempty"`
}

// New builds a sharding codec from its configuration document.
func New(cfg json.RawMessage) (*Codec, error) {
	var conf shardingConfig
	if err := json.Unmarshal(cfg, &conf); err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrInvalidConfig, err)
	}
	if len(conf.ChunkShape) == 0 {
		return nil, fmt.Errorf("%w: sharding requires a chunk_shape", codec.ErrInvalidConfig)
	}
	for d, n := range conf.ChunkShape {
		if n < 1 {
			return nil, fmt.Errorf("%w: sharding chunk_shape dimension %d is %d, want >= 1",
				codec.ErrInvalidConfig, d, n)
		}
	}

	inner, err := codec.NewChain(conf.Codecs)
	if err != nil {
		return nil, fmt.Errorf("sharding inner chain: %w", err)
	}

	indexSpecs := conf.IndexCodecs
	if len(indexSpecs) == 0 {
		indexSpecs = []codec.Spec{codec.NewBytes(codec.LittleEndian).Spec(), codec.NewCrc32c().Spec()}
	}
	index, err := codec.NewChain(indexSpecs)
	if err != nil {
		return nil, fmt.Errorf("sharding index chain: %w", err)
	}
	if _, ok := index.FixedEncodedSize(entrySize); !ok {
		return nil, fmt.Errorf("%w: sharding index codecs must have a fixed encoded size",
			codec.ErrInvalidConfig)
	}

	loc := conf.IndexLocation
	switch loc {
	case "":
		loc = IndexLocationEnd
	case IndexLocationEnd, IndexLocationStart:
	default:
		return nil, fmt.Errorf("%w: sharding index_location %q", codec.ErrInvalidConfig, loc)
	}

	cache, err := lru.New[string, *Index](defaultIndexCacheSize)
	if err != nil {
		return nil, err
	}

	return &Codec{
		chunkShape:    conf.ChunkShape,
		inner:         inner,
		index:         index,
		indexLocation: loc,
		cache:         cache,
	}, nil
}

func (c *Codec) Name() string { return Name }

// Spec returns the codec's metadata document entry.
func (c *Codec) Spec() codec.Spec {
	conf := shardingConfig{
		ChunkShape:    c.chunkShape,
		Codecs:        c.inner.Specs(),
		IndexCodecs:   c.index.Specs(),
		IndexLocation: c.indexLocation,
	}
	raw, err := json.Marshal(conf)
	if err != nil {
		panic(err)
	}
	return codec.Spec{Name: Name, Configuration: raw}
}

// ChunkShape returns the sub-chunk shape.
func (c *Codec) ChunkShape() []int {
	s := make([]int, len(c.chunkShape))
	copy(s, c.chunkShape)
	return s
}

// SetIndexCacheSize resizes the parsed-index cache; n <= 0 disables it.
func (c *Codec) SetIndexCacheSize(n int) {
	if n <= 0 {
		c.cache = nil
		return
	}
	cache, err := lru.New[string, *Index](n)
	if err != nil {
		return
	}
	c.cache = cache
}

// InvalidateIndex drops the cached index for a shard key. Must be called
// whenever the shard object is rewritten or deleted.
func (c *Codec) InvalidateIndex(key string) {
	if c.cache != nil {
		c.cache.Remove(key)
	}
}

// counts returns the sub-chunk grid dimensions for an outer chunk shape.
func (c *Codec) counts(outerShape []int) ([]int, error) {
	if len(outerShape) != len(c.chunkShape) {
		return nil, fmt.Errorf("%w: shard rank %d, sub-chunk rank %d",
			codec.ErrInvalidConfig, len(outerShape), len(c.chunkShape))
	}
	counts := make([]int, len(outerShape))
	for d := range outerShape {
		if outerShape[d]%c.chunkShape[d] != 0 {
			return nil, fmt.Errorf("%w: shard dimension %d of size %d is not divisible by sub-chunk size %d",
				codec.ErrInvalidConfig, d, outerShape[d], c.chunkShape[d])
		}
		counts[d] = outerShape[d] / c.chunkShape[d]
	}
	return counts, nil
}

func (c *Codec) innerContext(cctx codec.Context) codec.Context {
	return codec.Context{Shape: c.ChunkShape(), ElemSize: cctx.ElemSize, Fill: cctx.Fill}
}

// EncodeBytes lays out all present sub-chunks in morton order followed (or
// preceded, per index_location) by the index. Sub-chunks equal to the fill
// value everywhere are recorded as absent.
func (c *Codec) EncodeBytes(cctx codec.Context, buf *ndbuffer.Buffer) ([]byte, error) {
	counts, err := c.counts(cctx.Shape)
	if err != nil {
		return nil, err
	}

	ix := newIndex(counts)
	isz := c.indexSize(counts)
	base := 0
	if c.indexLocation == IndexLocationStart {
		base = isz
	}

	innerCtx := c.innerContext(cctx)
	var payload []byte
	for _, coord := range mortonOrder(counts) {
		start := make([]int, len(coord))
		for d, cc := range coord {
			start[d] = cc * c.chunkShape[d]
		}
		sub, err := buf.Region(start, c.chunkShape)
		if err != nil {
			return nil, err
		}
		if len(cctx.Fill) > 0 && sub.AllEqual(cctx.Fill) {
			continue
		}
		enc, err := c.inner.Encode(innerCtx, sub)
		if err != nil {
			return nil, fmt.Errorf("encoding sub-chunk %v: %w", coord, err)
		}
		ix.set(coord, Entry{Offset: uint64(base + len(payload)), Length: uint64(len(enc))})
		payload = append(payload, enc...)
	}

	ixBytes, err := c.encodeIndex(ix)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(payload)+len(ixBytes))
	if c.indexLocation == IndexLocationStart {
		out = append(out, ixBytes...)
		out = append(out, payload...)
	} else {
		out = append(out, payload...)
		out = append(out, ixBytes...)
	}
	return out, nil
}

// DecodeBytes reconstructs the whole shard: absent sub-chunks become fill
// value, present ones run the inner chain in reverse.
func (c *Codec) DecodeBytes(cctx codec.Context, data []byte) (*ndbuffer.Buffer, error) {
	counts, err := c.counts(cctx.Shape)
	if err != nil {
		return nil, err
	}
	ix, err := c.parseIndexBytes(data, counts)
	if err != nil {
		return nil, err
	}

	out := ndbuffer.NewFilled(cctx.Shape, cctx.Fill)
	innerCtx := c.innerContext(cctx)
	for _, coord := range mortonOrder(counts) {
		e := ix.At(coord)
		if !e.Present() {
			continue
		}
		if e.Offset+e.Length > uint64(len(data)) {
			return nil, fmt.Errorf("%w: shard index entry %v outside shard of %d bytes",
				codec.ErrCorrupt, coord, len(data))
		}
		sub, err := c.inner.Decode(innerCtx, data[e.Offset:e.Offset+e.Length])
		if err != nil {
			return nil, fmt.Errorf("decoding sub-chunk %v: %w", coord, err)
		}
		start := make([]int, len(coord))
		for d, cc := range coord {
			start[d] = cc * c.chunkShape[d]
		}
		if err := ndbuffer.CopyRegion(out, start, sub, make([]int, len(coord)), c.chunkShape); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Codec) parseIndexBytes(data []byte, counts []int) (*Index, error) {
	isz := c.indexSize(counts)
	if len(data) < isz {
		return nil, fmt.Errorf("%w: shard of %d bytes is smaller than its %d-byte index",
			codec.ErrCorrupt, len(data), isz)
	}
	if c.indexLocation == IndexLocationStart {
		return c.decodeIndex(data[:isz], counts)
	}
	return c.decodeIndex(data[len(data)-isz:], counts)
}

// ReadIndex fetches and parses the shard index through a range reader,
// consulting the per-key cache first. Only the index's byte range is
// transferred.
func (c *Codec) ReadIndex(ctx context.Context, key string, r RangeReader, outerShape []int) (*Index, error) {
	if c.cache != nil {
		if ix, ok := c.cache.Get(key); ok {
			return ix, nil
		}
	}

	counts, err := c.counts(outerShape)
	if err != nil {
		return nil, err
	}
	isz := c.indexSize(counts)

	var off int64
	if c.indexLocation == IndexLocationEnd {
		size, err := r.Size(ctx)
		if err != nil {
			return nil, err
		}
		if size < int64(isz) {
			return nil, fmt.Errorf("%w: shard of %d bytes is smaller than its %d-byte index",
				codec.ErrCorrupt, size, isz)
		}
		off = size - int64(isz)
	}

	data, err := r.ReadRange(ctx, off, int64(isz))
	if err != nil {
		return nil, err
	}
	ix, err := c.decodeIndex(data, counts)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Add(key, ix)
	}
	return ix, nil
}

// DecodePartial decodes only the sub-chunks intersecting sel, fetching
// their byte ranges through r, and copies the selected elements into out at
// outStart. Elements of absent sub-chunks are left untouched; the caller
// pre-fills the destination with the fill value.
func (c *Codec) DecodePartial(ctx context.Context, key string, r RangeReader, cctx codec.Context,
	sel chunkgrid.Region, out *ndbuffer.Buffer, outStart []int) error {

	ix, err := c.ReadIndex(ctx, key, r, cctx.Shape)
	if err != nil {
		return err
	}

	grid, err := chunkgrid.New(cctx.Shape, c.chunkShape)
	if err != nil {
		return err
	}
	projs, err := grid.Project(sel)
	if err != nil {
		return err
	}

	innerCtx := c.innerContext(cctx)
	for _, p := range projs {
		e := ix.At(p.Chunk)
		if !e.Present() {
			continue
		}
		data, err := r.ReadRange(ctx, int64(e.Offset), int64(e.Length))
		if err != nil {
			return err
		}
		sub, err := c.inner.Decode(innerCtx, data)
		if err != nil {
			return fmt.Errorf("decoding sub-chunk %v: %w", p.Chunk, err)
		}
		dst := make([]int, len(outStart))
		for d := range dst {
			dst[d] = outStart[d] + p.OutSel.Start[d]
		}
		if err := ndbuffer.CopyRegion(out, dst, sub, p.ChunkSel.Start, p.ChunkSel.Shape); err != nil {
			return err
		}
	}
	return nil
}
