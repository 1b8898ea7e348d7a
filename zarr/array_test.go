package zarr

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-zarr/store"
)

func int32Buf(t *testing.T, shape []int, vals ...int32) *Buffer {
	t.Helper()
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[4*i:], uint32(v))
	}
	buf, err := BufferFromBytes(shape, Int32, data)
	require.NoError(t, err)
	return buf
}

func int32Vals(t *testing.T, buf *Buffer) []int32 {
	t.Helper()
	data := buf.Bytes()
	out := make([]int32, len(data)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return out
}

func TestArraySingleElementWrite(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	arr, err := CreateArray(ctx, st, "arr", []int{4, 4}, Int32, WithChunkShape(2, 2))
	require.NoError(t, err)

	require.NoError(t, arr.Set(ctx, []int{0, 0}, int32Buf(t, []int{1, 1}, 7)))

	// The touched chunk exists; untouched chunks were never created.
	_, err = st.Get(ctx, "arr/c/0/0")
	require.NoError(t, err)
	_, err = st.Get(ctx, "arr/c/1/1")
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := arr.Get(ctx, []int{0, 0}, []int{2, 2})
	require.NoError(t, err)
	require.Equal(t, []int32{7, 0, 0, 0}, int32Vals(t, got))

	got, err = arr.Get(ctx, []int{2, 2}, []int{2, 2})
	require.NoError(t, err)
	require.Equal(t, []int32{0, 0, 0, 0}, int32Vals(t, got))
}

func TestArrayFillValueBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	arr, err := CreateArray(ctx, store.NewMemStore(), "a", []int{3, 3}, Int32,
		WithChunkShape(2, 2), WithFillValue(42))
	require.NoError(t, err)

	got, err := arr.Get(ctx, []int{0, 0}, []int{3, 3})
	require.NoError(t, err)
	for _, v := range int32Vals(t, got) {
		require.Equal(t, int32(42), v)
	}
}

func TestArrayWriteAcrossChunkBoundaries(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr, err := CreateArray(ctx, st, "a", []int{4, 4}, Int32, WithChunkShape(2, 2))
	require.NoError(t, err)

	// The center 2x2 region touches all four chunks.
	require.NoError(t, arr.Set(ctx, []int{1, 1}, int32Buf(t, []int{2, 2}, 1, 2, 3, 4)))

	got, err := arr.Get(ctx, []int{0, 0}, []int{4, 4})
	require.NoError(t, err)
	require.Equal(t, []int32{
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
		0, 0, 0, 0,
	}, int32Vals(t, got))
}

func TestArrayPartialWritePreservesExisting(t *testing.T) {
	ctx := context.Background()
	arr, err := CreateArray(ctx, store.NewMemStore(), "a", []int{4}, Int32, WithChunkShape(4))
	require.NoError(t, err)

	require.NoError(t, arr.Set(ctx, []int{0}, int32Buf(t, []int{4}, 1, 2, 3, 4)))
	require.NoError(t, arr.Set(ctx, []int{1}, int32Buf(t, []int{2}, 20, 30)))

	got, err := arr.Get(ctx, []int{0}, []int{4})
	require.NoError(t, err)
	require.Equal(t, []int32{1, 20, 30, 4}, int32Vals(t, got))
}

func TestArrayBoundaryChunksClamped(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	// 5 elements in chunks of 4: the last chunk is only 1 element valid.
	arr, err := CreateArray(ctx, st, "a", []int{5}, Int32, WithChunkShape(4))
	require.NoError(t, err)

	require.NoError(t, arr.Set(ctx, []int{0}, int32Buf(t, []int{5}, 1, 2, 3, 4, 5)))

	got, err := arr.Get(ctx, []int{3}, []int{2})
	require.NoError(t, err)
	require.Equal(t, []int32{4, 5}, int32Vals(t, got))

	// Reads beyond the shape are a contract violation, not padding.
	_, err = arr.Get(ctx, []int{4}, []int{2})
	require.ErrorIs(t, err, ErrBounds)
}

func TestArrayAllFillChunksDeleted(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr, err := CreateArray(ctx, st, "a", []int{2, 2}, Int32, WithChunkShape(2, 2))
	require.NoError(t, err)

	require.NoError(t, arr.Set(ctx, []int{0, 0}, int32Buf(t, []int{2, 2}, 1, 2, 3, 4)))
	_, err = st.Get(ctx, "a/c/0/0")
	require.NoError(t, err)

	// Overwriting with fill value removes the chunk object.
	require.NoError(t, arr.Set(ctx, []int{0, 0}, int32Buf(t, []int{2, 2}, 0, 0, 0, 0)))
	_, err = st.Get(ctx, "a/c/0/0")
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := arr.Get(ctx, []int{0, 0}, []int{2, 2})
	require.NoError(t, err)
	require.Equal(t, []int32{0, 0, 0, 0}, int32Vals(t, got))
}

func TestArrayWriteEmptyChunksOption(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr, err := CreateArray(ctx, st, "a", []int{2}, Int32,
		WithChunkShape(2), WithWriteEmptyChunks())
	require.NoError(t, err)

	require.NoError(t, arr.Set(ctx, []int{0}, int32Buf(t, []int{2}, 0, 0)))
	_, err = st.Get(ctx, "a/c/0")
	require.NoError(t, err)
}

func TestArrayCodecChainSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	arr, err := CreateArray(ctx, st, "a", []int{6, 6}, Int32,
		WithChunkShape(3, 3),
		WithCodecs(ShuffleCodec(4), ZstdCodec(3, true)))
	require.NoError(t, err)

	vals := make([]int32, 36)
	for i := range vals {
		vals[i] = int32(i * 11)
	}
	require.NoError(t, arr.Set(ctx, []int{0, 0}, int32Buf(t, []int{6, 6}, vals...)))

	reopened, err := OpenArray(ctx, st, "a")
	require.NoError(t, err)
	require.Equal(t, []int{6, 6}, reopened.Shape())
	require.Equal(t, Int32, reopened.DataType())

	got, err := reopened.Get(ctx, []int{0, 0}, []int{6, 6})
	require.NoError(t, err)
	require.Equal(t, vals, int32Vals(t, got))
}

func TestArrayCorruptChunkSurfaces(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr, err := CreateArray(ctx, st, "a", []int{2, 2}, Int32,
		WithChunkShape(2, 2),
		WithCodecs(BytesCodec("little"), GzipCodec(5), Crc32cCodec()))
	require.NoError(t, err)

	require.NoError(t, arr.Set(ctx, []int{0, 0}, int32Buf(t, []int{2, 2}, 1, 2, 3, 4)))

	data, err := st.Get(ctx, "a/c/0/0")
	require.NoError(t, err)
	data[0] ^= 0xff
	require.NoError(t, st.Set(ctx, "a/c/0/0", data))

	_, err = arr.Get(ctx, []int{0, 0}, []int{2, 2})
	require.ErrorIs(t, err, ErrCorruptData)
}

func TestArrayV2KeyEncoding(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr, err := CreateArray(ctx, st, "a", []int{4}, Int32,
		WithChunkShape(2), WithChunkKeyEncoding("v2", "."))
	require.NoError(t, err)

	require.NoError(t, arr.Set(ctx, []int{2}, int32Buf(t, []int{2}, 5, 6)))
	_, err = st.Get(ctx, "a/1")
	require.NoError(t, err)

	got, err := arr.Get(ctx, []int{2}, []int{2})
	require.NoError(t, err)
	require.Equal(t, []int32{5, 6}, int32Vals(t, got))
}

func TestArraySetValidatesInput(t *testing.T) {
	ctx := context.Background()
	arr, err := CreateArray(ctx, store.NewMemStore(), "a", []int{4, 4}, Int32, WithChunkShape(2, 2))
	require.NoError(t, err)

	// Wrong element size.
	wrong := NewBuffer([]int{2, 2}, Int16)
	require.ErrorIs(t, arr.Set(ctx, []int{0, 0}, wrong), ErrDtypeMismatch)

	// Wrong rank.
	require.ErrorIs(t, arr.Set(ctx, []int{0, 0}, NewBuffer([]int{4}, Int32)), ErrShapeMismatch)

	// Out of bounds.
	require.ErrorIs(t, arr.Set(ctx, []int{3, 3}, int32Buf(t, []int{2, 2}, 1, 2, 3, 4)), ErrBounds)
}

func TestArrayOpenErrors(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	_, err := OpenArray(ctx, st, "nope")
	require.ErrorIs(t, err, ErrNodeNotFound)

	_, err = CreateGroup(ctx, st, "grp")
	require.NoError(t, err)
	_, err = OpenArray(ctx, st, "grp")
	require.ErrorIs(t, err, ErrNotArray)
}

func TestArrayCreateRejectsBadCodecChain(t *testing.T) {
	ctx := context.Background()
	_, err := CreateArray(ctx, store.NewMemStore(), "a", []int{2}, Int32,
		WithChunkShape(2),
		WithCodecs(BytesCodec("little"), BytesCodec("big")))
	require.ErrorIs(t, err, ErrInvalidCodec)
}

func TestArrayRootPath(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	arr, err := CreateArray(ctx, st, "", []int{2}, Int32, WithChunkShape(2))
	require.NoError(t, err)

	_, err = st.Get(ctx, "zarr.json")
	require.NoError(t, err)

	require.NoError(t, arr.Set(ctx, []int{0}, int32Buf(t, []int{2}, 1, 2)))
	_, err = st.Get(ctx, "c/0")
	require.NoError(t, err)
}

func TestArrayFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	arr, err := CreateArray(ctx, fs, "measurements", []int{4, 4}, Int32,
		WithChunkShape(2, 2), WithCodecs(BytesCodec("little"), GzipCodec(4)))
	require.NoError(t, err)

	vals := []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	require.NoError(t, arr.Set(ctx, []int{0, 0}, int32Buf(t, []int{4, 4}, vals...)))

	reopened, err := OpenArray(ctx, fs, "measurements")
	require.NoError(t, err)
	got, err := reopened.Get(ctx, []int{0, 0}, []int{4, 4})
	require.NoError(t, err)
	require.Equal(t, vals, int32Vals(t, got))
}
