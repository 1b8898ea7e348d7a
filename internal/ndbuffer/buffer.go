// Package ndbuffer implements the in-memory form of a decoded chunk: an
// N-dimensional, fixed element-size buffer stored contiguously in row-major
// (C) order. It supports rectangular sub-region copies, fill-value
// initialization, and axis permutation; all element bytes are opaque to it.
package ndbuffer

import (
	"bytes"
	"fmt"
)

// Buffer is a contiguous row-major N-dimensional byte buffer.
// A rank-0 buffer holds exactly one element.
type Buffer struct {
	shape    []int
	elemSize int
	data     []byte
}

// New returns a zero-initialized buffer.
func New(shape []int, elemSize int) *Buffer {
	if elemSize <= 0 {
		panic("ndbuffer: element size must be positive")
	}
	for _, d := range shape {
		if d < 0 {
			panic("ndbuffer: negative dimension")
		}
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Buffer{
		shape:    s,
		elemSize: elemSize,
		data:     make([]byte, numElements(shape)*elemSize),
	}
}

// NewFilled returns a buffer with every element set to elem.
func NewFilled(shape []int, elem []byte) *Buffer {
	b := New(shape, len(elem))
	b.Fill(elem)
	return b
}

// FromBytes wraps data as a buffer of the given shape without copying.
func FromBytes(shape []int, elemSize int, data []byte) (*Buffer, error) {
	want := numElements(shape) * elemSize
	if len(data) != want {
		return nil, fmt.Errorf("buffer size mismatch: got %d bytes, want %d", len(data), want)
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Buffer{shape: s, elemSize: elemSize, data: data}, nil
}

// Shape returns a copy of the buffer's dimensions.
func (b *Buffer) Shape() []int {
	s := make([]int, len(b.shape))
	copy(s, b.shape)
	return s
}

// Rank returns the number of dimensions.
func (b *Buffer) Rank() int { return len(b.shape) }

// ElemSize returns the number of bytes per element.
func (b *Buffer) ElemSize() int { return b.elemSize }

// NumElements returns the total element count.
func (b *Buffer) NumElements() int { return numElements(b.shape) }

// Bytes returns the underlying storage. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	c := New(b.shape, b.elemSize)
	copy(c.data, b.data)
	return c
}

// Fill sets every element to elem.
func (b *Buffer) Fill(elem []byte) {
	if len(elem) != b.elemSize {
		panic("ndbuffer: fill element size mismatch")
	}
	for i := 0; i < len(b.data); i += b.elemSize {
		copy(b.data[i:], elem)
	}
}

// AllEqual reports whether every element equals elem.
func (b *Buffer) AllEqual(elem []byte) bool {
	if len(elem) != b.elemSize {
		return false
	}
	for i := 0; i < len(b.data); i += b.elemSize {
		if !bytes.Equal(b.data[i:i+b.elemSize], elem) {
			return false
		}
	}
	return true
}

// Equal reports whether two buffers have identical shape and contents.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.elemSize != o.elemSize || len(b.shape) != len(o.shape) {
		return false
	}
	for i := range b.shape {
		if b.shape[i] != o.shape[i] {
			return false
		}
	}
	return bytes.Equal(b.data, o.data)
}

// Elem returns the bytes of one element. The slice aliases the buffer.
func (b *Buffer) Elem(index []int) []byte {
	off := b.offsetOf(index)
	return b.data[off : off+b.elemSize]
}

// SetElem overwrites one element.
func (b *Buffer) SetElem(index []int, elem []byte) {
	if len(elem) != b.elemSize {
		panic("ndbuffer: element size mismatch")
	}
	copy(b.Elem(index), elem)
}

// Region returns a copy of the rectangular sub-region [start, start+shape).
func (b *Buffer) Region(start, shape []int) (*Buffer, error) {
	out := New(shape, b.elemSize)
	if err := CopyRegion(out, zeros(len(shape)), b, start, shape); err != nil {
		return nil, err
	}
	return out, nil
}

// Transpose returns a new buffer with axes permuted: output axis i is input
// axis perm[i], with element data physically reordered to match.
func (b *Buffer) Transpose(perm []int) (*Buffer, error) {
	if len(perm) != len(b.shape) {
		return nil, fmt.Errorf("transpose order has %d axes, buffer has %d", len(perm), len(b.shape))
	}
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("invalid transpose order %v", perm)
		}
		seen[p] = true
	}

	outShape := make([]int, len(perm))
	for i, p := range perm {
		outShape[i] = b.shape[p]
	}
	out := New(outShape, b.elemSize)
	if out.NumElements() == 0 {
		return out, nil
	}

	es := b.elemSize
	inStrides := byteStrides(b.shape, es)
	idx := make([]int, len(outShape))
	for off := 0; ; off += es {
		inOff := 0
		for i, p := range perm {
			inOff += idx[i] * inStrides[p]
		}
		copy(out.data[off:off+es], b.data[inOff:inOff+es])

		d := len(idx) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < outShape[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			break
		}
	}
	return out, nil
}

// CopyRegion copies the rectangular region of the given shape from src at
// srcStart into dst at dstStart. Source and destination may not alias.
func CopyRegion(dst *Buffer, dstStart []int, src *Buffer, srcStart []int, shape []int) error {
	if dst.elemSize != src.elemSize {
		return fmt.Errorf("element size mismatch: %d vs %d", dst.elemSize, src.elemSize)
	}
	if len(dstStart) != len(dst.shape) || len(srcStart) != len(src.shape) ||
		len(shape) != len(dst.shape) || len(shape) != len(src.shape) {
		return fmt.Errorf("rank mismatch copying region of rank %d", len(shape))
	}
	if err := checkBounds(dst.shape, dstStart, shape); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if err := checkBounds(src.shape, srcStart, shape); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if numElements(shape) == 0 {
		return nil
	}

	es := dst.elemSize
	if len(shape) == 0 {
		copy(dst.data[:es], src.data[:es])
		return nil
	}

	dstStrides := byteStrides(dst.shape, es)
	srcStrides := byteStrides(src.shape, es)
	last := len(shape) - 1
	run := shape[last] * es

	idx := make([]int, last)
	for {
		dstOff := dstStart[last] * dstStrides[last]
		srcOff := srcStart[last] * srcStrides[last]
		for d := 0; d < last; d++ {
			dstOff += (dstStart[d] + idx[d]) * dstStrides[d]
			srcOff += (srcStart[d] + idx[d]) * srcStrides[d]
		}
		copy(dst.data[dstOff:dstOff+run], src.data[srcOff:srcOff+run])

		d := last - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			break
		}
	}
	return nil
}

func (b *Buffer) offsetOf(index []int) int {
	if len(index) != len(b.shape) {
		panic("ndbuffer: index rank mismatch")
	}
	strides := byteStrides(b.shape, b.elemSize)
	off := 0
	for d, i := range index {
		if i < 0 || i >= b.shape[d] {
			panic("ndbuffer: index out of range")
		}
		off += i * strides[d]
	}
	return off
}

func checkBounds(shape, start, extent []int) error {
	for d := range extent {
		if start[d] < 0 || extent[d] < 0 || start[d]+extent[d] > shape[d] {
			return fmt.Errorf("region [%d, %d) outside dimension %d of size %d",
				start[d], start[d]+extent[d], d, shape[d])
		}
	}
	return nil
}

// byteStrides returns per-dimension byte strides for a row-major layout.
func byteStrides(shape []int, elemSize int) []int {
	strides := make([]int, len(shape))
	acc := elemSize
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = acc
		acc *= shape[d]
	}
	return strides
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func zeros(n int) []int { return make([]int, n) }
