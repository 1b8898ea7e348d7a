package zarr

import "github.com/robert-malhotra/go-zarr/internal/ndbuffer"

// Buffer is an N-dimensional element buffer in row-major order with
// little-endian element bytes. It is the value type Get returns and Set
// consumes.
type Buffer = ndbuffer.Buffer

// NewBuffer allocates a zeroed buffer for the given shape and data type.
func NewBuffer(shape []int, dt DataType) *Buffer {
	return ndbuffer.New(shape, dt.Size())
}

// BufferFromBytes wraps existing element bytes without copying. The data
// length must equal the product of shape times the element size.
func BufferFromBytes(shape []int, dt DataType, data []byte) (*Buffer, error) {
	return ndbuffer.FromBytes(shape, dt.Size(), data)
}
