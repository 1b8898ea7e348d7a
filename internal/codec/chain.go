package codec

import (
	"fmt"

	"github.com/robert-malhotra/go-zarr/internal/ndbuffer"
)

// Chain is an ordered codec composition: zero or more array transforms,
// exactly one array-to-bytes stage, then zero or more byte transforms.
// Encode runs the stages in that order; decode runs the exact reverse.
type Chain struct {
	specs      []Spec
	arrayArray []ArrayArrayCodec
	arrayBytes ArrayBytesCodec
	bytesBytes []BytesBytesCodec
}

// NewChain builds and validates a chain from its metadata specs. Kind
// compatibility is checked here, once, not per chunk: array stages must
// precede the array-to-bytes boundary, byte stages must follow it, and at
// most one boundary stage may appear. A chain with no boundary stage gets
// an implicit little-endian "bytes" stage.
func NewChain(specs []Spec) (*Chain, error) {
	ch := &Chain{specs: specs}
	for i, spec := range specs {
		c, err := Build(spec)
		if err != nil {
			return nil, err
		}
		switch c := c.(type) {
		case ArrayArrayCodec:
			if ch.arrayBytes != nil || len(ch.bytesBytes) > 0 {
				return nil, fmt.Errorf("%w: array codec %q at position %d after the array-to-bytes boundary",
					ErrInvalidChain, spec.Name, i)
			}
			ch.arrayArray = append(ch.arrayArray, c)
		case ArrayBytesCodec:
			if ch.arrayBytes != nil {
				return nil, fmt.Errorf("%w: second array-to-bytes codec %q at position %d",
					ErrInvalidChain, spec.Name, i)
			}
			if len(ch.bytesBytes) > 0 {
				return nil, fmt.Errorf("%w: array-to-bytes codec %q at position %d after byte codecs",
					ErrInvalidChain, spec.Name, i)
			}
			ch.arrayBytes = c
		case BytesBytesCodec:
			if ch.arrayBytes == nil {
				ch.arrayBytes = NewBytes(LittleEndian)
			}
			ch.bytesBytes = append(ch.bytesBytes, c)
		default:
			return nil, fmt.Errorf("%w: codec %q implements no stage kind", ErrInvalidChain, spec.Name)
		}
	}
	if ch.arrayBytes == nil {
		ch.arrayBytes = NewBytes(LittleEndian)
	}
	return ch, nil
}

// Specs returns the chain's metadata document entries as declared.
func (ch *Chain) Specs() []Spec { return ch.specs }

// ArrayBytes returns the chain's array-to-bytes boundary stage.
func (ch *Chain) ArrayBytes() ArrayBytesCodec { return ch.arrayBytes }

// Bare reports whether the boundary stage's output is the stored byte form
// unchanged: no array transforms before it, no byte transforms after it.
// Only then do byte offsets inside the boundary stage's output, such as a
// shard index, correspond to offsets in the stored object.
func (ch *Chain) Bare() bool {
	return len(ch.arrayArray) == 0 && len(ch.bytesBytes) == 0
}

// contexts returns the per-array-stage input contexts followed by the
// boundary stage's context.
func (ch *Chain) contexts(cctx Context) ([]Context, error) {
	ctxs := make([]Context, 0, len(ch.arrayArray)+1)
	cur := cctx
	for _, aa := range ch.arrayArray {
		ctxs = append(ctxs, cur)
		shape, err := aa.EncodedShape(cur.Shape)
		if err != nil {
			return nil, fmt.Errorf("codec %q: %w", aa.Name(), err)
		}
		cur = Context{Shape: shape, ElemSize: cur.ElemSize, Fill: cur.Fill}
	}
	ctxs = append(ctxs, cur)
	return ctxs, nil
}

// Encode transforms a chunk's array form into its stored byte form.
func (ch *Chain) Encode(cctx Context, buf *ndbuffer.Buffer) ([]byte, error) {
	ctxs, err := ch.contexts(cctx)
	if err != nil {
		return nil, err
	}

	cur := buf
	for i, aa := range ch.arrayArray {
		cur, err = aa.EncodeArray(ctxs[i], cur)
		if err != nil {
			return nil, fmt.Errorf("codec %q encode: %w", aa.Name(), err)
		}
	}

	data, err := ch.arrayBytes.EncodeBytes(ctxs[len(ctxs)-1], cur)
	if err != nil {
		return nil, fmt.Errorf("codec %q encode: %w", ch.arrayBytes.Name(), err)
	}

	for _, bb := range ch.bytesBytes {
		data, err = bb.EncodeRaw(data)
		if err != nil {
			return nil, fmt.Errorf("codec %q encode: %w", bb.Name(), err)
		}
	}
	return data, nil
}

// Decode transforms a chunk's stored byte form back into its array form.
func (ch *Chain) Decode(cctx Context, data []byte) (*ndbuffer.Buffer, error) {
	ctxs, err := ch.contexts(cctx)
	if err != nil {
		return nil, err
	}

	for i := len(ch.bytesBytes) - 1; i >= 0; i-- {
		bb := ch.bytesBytes[i]
		data, err = bb.DecodeRaw(data)
		if err != nil {
			return nil, fmt.Errorf("codec %q decode: %w", bb.Name(), err)
		}
	}

	buf, err := ch.arrayBytes.DecodeBytes(ctxs[len(ctxs)-1], data)
	if err != nil {
		return nil, fmt.Errorf("codec %q decode: %w", ch.arrayBytes.Name(), err)
	}

	for i := len(ch.arrayArray) - 1; i >= 0; i-- {
		aa := ch.arrayArray[i]
		buf, err = aa.DecodeArray(ctxs[i], buf)
		if err != nil {
			return nil, fmt.Errorf("codec %q decode: %w", aa.Name(), err)
		}
	}
	return buf, nil
}

// FixedEncodedSize returns the encoded byte size for an n-byte array form,
// when every byte-stage output size is a pure function of its input size.
// The second return is false when the chain contains a variable-size stage
// such as a compressor.
func (ch *Chain) FixedEncodedSize(n int) (int, bool) {
	fs, ok := ch.arrayBytes.(FixedSizer)
	if !ok {
		return 0, false
	}
	size := fs.EncodedSize(n)
	for _, bb := range ch.bytesBytes {
		fs, ok := bb.(FixedSizer)
		if !ok {
			return 0, false
		}
		size = fs.EncodedSize(size)
	}
	return size, true
}
