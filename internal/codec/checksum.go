package codec

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"

	"fmt"

	"github.com/zeebo/xxh3"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Crc32c appends a little-endian CRC-32C (Castagnoli) checksum on encode
// and verifies and strips it on decode. A mismatch fails with ErrCorrupt.
type Crc32c struct{}

// NewCrc32c returns a crc32c checksum codec.
func NewCrc32c() *Crc32c { return &Crc32c{} }

func newCrc32cFromConfig(cfg json.RawMessage) (Codec, error) {
	return NewCrc32c(), nil
}

func (c *Crc32c) Name() string { return "crc32c" }

func (c *Crc32c) Spec() Spec { return Spec{Name: c.Name()} }

// EncodedSize implements FixedSizer.
func (c *Crc32c) EncodedSize(n int) int { return n + 4 }

func (c *Crc32c) EncodeRaw(data []byte) ([]byte, error) {
	out := make([]byte, len(data)+4)
	copy(out, data)
	binary.LittleEndian.PutUint32(out[len(data):], crc32.Checksum(data, castagnoli))
	return out, nil
}

func (c *Crc32c) DecodeRaw(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes is too short for a crc32c checksum", ErrCorrupt, len(data))
	}
	payload := data[:len(data)-4]
	stored := binary.LittleEndian.Uint32(data[len(data)-4:])
	computed := crc32.Checksum(payload, castagnoli)
	if stored != computed {
		return nil, fmt.Errorf("%w: crc32c mismatch (stored=0x%08x, computed=0x%08x)",
			ErrCorrupt, stored, computed)
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// XXH3 appends a little-endian 64-bit xxh3 digest on encode and verifies
// and strips it on decode. Faster than crc32c on large chunks; not part of
// the interoperable codec set.
type XXH3 struct{}

// NewXXH3 returns an xxh3 checksum codec.
func NewXXH3() *XXH3 { return &XXH3{} }

func newXXH3FromConfig(cfg json.RawMessage) (Codec, error) {
	return NewXXH3(), nil
}

func (x *XXH3) Name() string { return "xxh3" }

func (x *XXH3) Spec() Spec { return Spec{Name: x.Name()} }

// EncodedSize implements FixedSizer.
func (x *XXH3) EncodedSize(n int) int { return n + 8 }

func (x *XXH3) EncodeRaw(data []byte) ([]byte, error) {
	out := make([]byte, len(data)+8)
	copy(out, data)
	binary.LittleEndian.PutUint64(out[len(data):], xxh3.Hash(data))
	return out, nil
}

func (x *XXH3) DecodeRaw(data []byte) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes is too short for an xxh3 digest", ErrCorrupt, len(data))
	}
	payload := data[:len(data)-8]
	stored := binary.LittleEndian.Uint64(data[len(data)-8:])
	computed := xxh3.Hash(payload)
	if stored != computed {
		return nil, fmt.Errorf("%w: xxh3 mismatch (stored=0x%016x, computed=0x%016x)",
			ErrCorrupt, stored, computed)
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
