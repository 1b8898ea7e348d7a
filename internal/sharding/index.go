package sharding

import (
	"encoding/binary"
	"fmt"

	"github.com/robert-malhotra/go-zarr/internal/codec"
	"github.com/robert-malhotra/go-zarr/internal/ndbuffer"
)

// absentMarker fills both fields of an index entry whose sub-chunk was
// never written.
const absentMarker = ^uint64(0)

// entrySize is the byte size of one index entry: two little-endian uint64s.
const entrySize = 16

// Entry locates one sub-chunk's encoded bytes within the shard object.
type Entry struct {
	Offset uint64
	Length uint64
}

// Present reports whether the entry's sub-chunk exists in the shard.
func (e Entry) Present() bool {
	return e.Offset != absentMarker
}

// Index is the shard's fixed-layout sub-chunk table, one entry per grid
// slot in row-major order. It is rebuilt in full on every shard write.
type Index struct {
	counts  []int
	entries []Entry
}

func newIndex(counts []int) *Index {
	n := 1
	for _, c := range counts {
		n *= c
	}
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Offset: absentMarker, Length: absentMarker}
	}
	return &Index{counts: counts, entries: entries}
}

func (ix *Index) flat(coord []int) int {
	i := 0
	for d, c := range coord {
		i = i*ix.counts[d] + c
	}
	return i
}

// At returns the entry for a sub-chunk coordinate.
func (ix *Index) At(coord []int) Entry {
	return ix.entries[ix.flat(coord)]
}

func (ix *Index) set(coord []int, e Entry) {
	ix.entries[ix.flat(coord)] = e
}

// encodeIndex serializes the index through the index codec chain. The raw
// form is a uint64 array of shape counts x 2, little-endian.
func (c *Codec) encodeIndex(ix *Index) ([]byte, error) {
	raw := make([]byte, len(ix.entries)*entrySize)
	for i, e := range ix.entries {
		binary.LittleEndian.PutUint64(raw[i*entrySize:], e.Offset)
		binary.LittleEndian.PutUint64(raw[i*entrySize+8:], e.Length)
	}
	buf, err := ndbuffer.FromBytes(indexShape(ix.counts), 8, raw)
	if err != nil {
		return nil, err
	}
	data, err := c.index.Encode(c.indexContext(ix.counts), buf)
	if err != nil {
		return nil, fmt.Errorf("encoding shard index: %w", err)
	}
	return data, nil
}

// decodeIndex parses an encoded index for a shard with the given sub-chunk
// counts. Checksum failures and size mismatches surface as corrupt data.
func (c *Codec) decodeIndex(data []byte, counts []int) (*Index, error) {
	buf, err := c.index.Decode(c.indexContext(counts), data)
	if err != nil {
		return nil, fmt.Errorf("decoding shard index: %w", err)
	}

	ix := newIndex(counts)
	raw := buf.Bytes()
	if len(raw) != len(ix.entries)*entrySize {
		return nil, fmt.Errorf("%w: shard index has %d bytes, want %d",
			codec.ErrCorrupt, len(raw), len(ix.entries)*entrySize)
	}
	for i := range ix.entries {
		ix.entries[i] = Entry{
			Offset: binary.LittleEndian.Uint64(raw[i*entrySize:]),
			Length: binary.LittleEndian.Uint64(raw[i*entrySize+8:]),
		}
	}
	return ix, nil
}

// indexSize returns the encoded byte size of the index for the given
// sub-chunk counts. The index chain is restricted to fixed-size stages, so
// this is computable without reading anything.
func (c *Codec) indexSize(counts []int) int {
	n := entrySize
	for _, cnt := range counts {
		n *= cnt
	}
	size, _ := c.index.FixedEncodedSize(n)
	return size
}

func (c *Codec) indexContext(counts []int) codec.Context {
	return codec.Context{Shape: indexShape(counts), ElemSize: 8, Fill: make([]byte, 8)}
}

func indexShape(counts []int) []int {
	shape := make([]int, len(counts)+1)
	copy(shape, counts)
	shape[len(counts)] = 2
	return shape
}
