package codec

import (
	"encoding/json"
	"fmt"

	"github.com/robert-malhotra/go-zarr/internal/ndbuffer"
)

// Byte order names accepted by the bytes codec.
const (
	LittleEndian = "little"
	BigEndian    = "big"
)

// Bytes is the array-to-bytes boundary stage: it packs a chunk's elements
// into a flat byte sequence with the configured byte order. Buffers hold
// element bytes little-endian in memory, so the little order is a plain
// copy and the big order swaps each element.
type Bytes struct {
	endian string
}

type bytesConfig struct {
	Endian string `json:"endian"`
}

// NewBytes returns a bytes codec with the given byte order.
func NewBytes(endian string) *Bytes {
	return &Bytes{endian: endian}
}

func newBytesFromConfig(cfg json.RawMessage) (Codec, error) {
	c := bytesConfig{Endian: LittleEndian}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.Endian != LittleEndian && c.Endian != BigEndian {
		return nil, fmt.Errorf("%w: endian must be %q or %q, got %q",
			ErrInvalidConfig, LittleEndian, BigEndian, c.Endian)
	}
	return NewBytes(c.Endian), nil
}

func (b *Bytes) Name() string { return "bytes" }

func (b *Bytes) Spec() Spec {
	return Spec{Name: b.Name(), Configuration: mustRaw(bytesConfig{Endian: b.endian})}
}

// EncodedSize implements FixedSizer; packing never changes the byte count.
func (b *Bytes) EncodedSize(n int) int { return n }

func (b *Bytes) EncodeBytes(cctx Context, buf *ndbuffer.Buffer) ([]byte, error) {
	src := buf.Bytes()
	out := make([]byte, len(src))
	if b.endian == BigEndian {
		swapElements(out, src, buf.ElemSize())
	} else {
		copy(out, src)
	}
	return out, nil
}

func (b *Bytes) DecodeBytes(cctx Context, data []byte) (*ndbuffer.Buffer, error) {
	want := cctx.NumBytes()
	if len(data) != want {
		return nil, fmt.Errorf("%w: chunk has %d bytes, want %d", ErrCorrupt, len(data), want)
	}
	out := make([]byte, len(data))
	if b.endian == BigEndian {
		swapElements(out, data, cctx.ElemSize)
	} else {
		copy(out, data)
	}
	return ndbuffer.FromBytes(cctx.Shape, cctx.ElemSize, out)
}

func swapElements(dst, src []byte, elemSize int) {
	if elemSize <= 1 {
		copy(dst, src)
		return
	}
	for i := 0; i+elemSize <= len(src); i += elemSize {
		for j := 0; j < elemSize; j++ {
			dst[i+j] = src[i+elemSize-1-j]
		}
	}
}
