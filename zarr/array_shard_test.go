package zarr

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-zarr/store"
)

// countingStore records how each value was fetched, so tests can prove a
// sharded read transferred only the index and the wanted sub-chunks.
type countingStore struct {
	store.Store
	mu         sync.Mutex
	gets       int
	rangeCalls [][2]int64
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Store.Get(ctx, key)
}

func (c *countingStore) GetRange(ctx context.Context, key string, off, length int64) ([]byte, error) {
	c.mu.Lock()
	c.rangeCalls = append(c.rangeCalls, [2]int64{off, length})
	c.mu.Unlock()
	return c.Store.GetRange(ctx, key, off, length)
}

func uint8Buf(t *testing.T, shape []int, vals ...byte) *Buffer {
	t.Helper()
	buf, err := BufferFromBytes(shape, Uint8, vals)
	require.NoError(t, err)
	return buf
}

func newShardedArray(t *testing.T, st store.Store) *Array {
	t.Helper()
	arr, err := CreateArray(context.Background(), st, "s", []int{4, 4}, Uint8,
		WithChunkShape(4, 4),
		WithCodecs(ShardingCodec([]int{2, 2})))
	require.NoError(t, err)
	return arr
}

func TestShardedArrayRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr := newShardedArray(t, st)

	// Populate two of the four sub-chunk slots.
	require.NoError(t, arr.Set(ctx, []int{0, 0}, uint8Buf(t, []int{2, 2}, 1, 2, 3, 4)))
	require.NoError(t, arr.Set(ctx, []int{2, 2}, uint8Buf(t, []int{2, 2}, 5, 6, 7, 8)))

	got, err := arr.Get(ctx, []int{0, 0}, []int{4, 4})
	require.NoError(t, err)
	require.Equal(t, []byte{
		1, 2, 0, 0,
		3, 4, 0, 0,
		0, 0, 5, 6,
		0, 0, 7, 8,
	}, got.Bytes())
}

func TestShardedArrayRangeReads(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr := newShardedArray(t, st)
	require.NoError(t, arr.Set(ctx, []int{0, 0}, uint8Buf(t, []int{2, 2}, 1, 2, 3, 4)))
	require.NoError(t, arr.Set(ctx, []int{2, 2}, uint8Buf(t, []int{2, 2}, 5, 6, 7, 8)))

	// Reopen over a counting wrapper so the shard index cache starts cold.
	cs := &countingStore{Store: st}
	reopened, err := OpenArray(ctx, cs, "s")
	require.NoError(t, err)
	cs.gets = 0 // opening fetched zarr.json

	got, err := reopened.Get(ctx, []int{0, 0}, []int{2, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got.Bytes())

	// The shard holds two 4-byte sub-chunks and a 68-byte trailing index.
	// Only the index and the selected sub-chunk were transferred; the whole
	// shard was never fetched.
	require.Equal(t, 0, cs.gets)
	require.Equal(t, [][2]int64{{8, 68}, {0, 4}}, cs.rangeCalls)

	// A second read over the selected sub-chunk reuses the cached index.
	cs.rangeCalls = nil
	got, err = reopened.Get(ctx, []int{2, 2}, []int{2, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{5, 6, 7, 8}, got.Bytes())
	require.Equal(t, [][2]int64{{4, 4}}, cs.rangeCalls)
}

func TestShardedArrayAbsentSubChunksSkipPayload(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr := newShardedArray(t, st)
	require.NoError(t, arr.Set(ctx, []int{0, 0}, uint8Buf(t, []int{2, 2}, 1, 2, 3, 4)))
	require.NoError(t, arr.Set(ctx, []int{2, 2}, uint8Buf(t, []int{2, 2}, 5, 6, 7, 8)))

	cs := &countingStore{Store: st}
	reopened, err := OpenArray(ctx, cs, "s")
	require.NoError(t, err)
	cs.gets = 0

	// Read the two absent sub-chunk slots: both come back as fill and no
	// payload bytes of the present sub-chunks are transferred, only the
	// index (once; the second read hits the cache).
	for _, start := range [][]int{{0, 2}, {2, 0}} {
		got, err := reopened.Get(ctx, start, []int{2, 2})
		require.NoError(t, err)
		require.Equal(t, []byte{0, 0, 0, 0}, got.Bytes())
	}
	require.Equal(t, 0, cs.gets)
	require.Equal(t, [][2]int64{{8, 68}}, cs.rangeCalls)
}

func TestShardedArrayAbsentSubChunksAreFill(t *testing.T) {
	ctx := context.Background()
	arr := newShardedArray(t, store.NewMemStore())
	require.NoError(t, arr.Set(ctx, []int{0, 0}, uint8Buf(t, []int{2, 2}, 1, 2, 3, 4)))

	got, err := arr.Get(ctx, []int{2, 0}, []int{2, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, got.Bytes())
}

func TestShardedArrayAbsentShardIsFill(t *testing.T) {
	ctx := context.Background()
	arr := newShardedArray(t, store.NewMemStore())

	got, err := arr.Get(ctx, []int{0, 0}, []int{4, 4})
	require.NoError(t, err)
	require.Equal(t, make([]byte, 16), got.Bytes())
}

func TestShardedArrayWriteInvalidatesIndexCache(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr := newShardedArray(t, st)

	require.NoError(t, arr.Set(ctx, []int{0, 0}, uint8Buf(t, []int{2, 2}, 1, 2, 3, 4)))

	// Prime the index cache with a read, then rewrite the shard.
	_, err := arr.Get(ctx, []int{0, 0}, []int{2, 2})
	require.NoError(t, err)
	require.NoError(t, arr.Set(ctx, []int{2, 2}, uint8Buf(t, []int{2, 2}, 5, 6, 7, 8)))

	// A stale index would miss the new sub-chunk.
	got, err := arr.Get(ctx, []int{2, 2}, []int{2, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{5, 6, 7, 8}, got.Bytes())
}

func TestShardedArrayInnerCodecs(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr, err := CreateArray(ctx, st, "s", []int{8, 8}, Int32,
		WithChunkShape(8, 8),
		WithCodecs(ShardingCodec([]int{4, 4}, BytesCodec("little"), ZstdCodec(3, false))))
	require.NoError(t, err)

	vals := make([]int32, 64)
	for i := range vals {
		vals[i] = int32(i)
	}
	require.NoError(t, arr.Set(ctx, []int{0, 0}, int32Buf(t, []int{8, 8}, vals...)))

	reopened, err := OpenArray(ctx, st, "s")
	require.NoError(t, err)
	got, err := reopened.Get(ctx, []int{0, 0}, []int{8, 8})
	require.NoError(t, err)
	require.Equal(t, vals, int32Vals(t, got))
}

func TestShardedArrayOnNonRangeStore(t *testing.T) {
	ctx := context.Background()
	// Badger-style store: ranged reads fall back to whole-value fetch.
	st := &noRangeStore{Store: store.NewMemStore()}
	arr := newShardedArray(t, st)

	require.NoError(t, arr.Set(ctx, []int{0, 0}, uint8Buf(t, []int{2, 2}, 1, 2, 3, 4)))
	got, err := arr.Get(ctx, []int{0, 0}, []int{2, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got.Bytes())
}

type noRangeStore struct {
	store.Store
}

func (s *noRangeStore) SupportsRange() bool { return false }

func TestShardedArrayRejectsIndivisibleSubChunks(t *testing.T) {
	ctx := context.Background()
	_, err := CreateArray(ctx, store.NewMemStore(), "s", []int{4, 4}, Uint8,
		WithChunkShape(4, 4),
		WithCodecs(ShardingCodec([]int{3, 3})))
	require.ErrorIs(t, err, ErrInvalidMetadata)
}
