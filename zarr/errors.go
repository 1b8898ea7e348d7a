// Package zarr reads and writes chunked, compressed N-dimensional arrays
// in the Zarr v3 layout on any flat key-value store.
package zarr

import (
	"errors"

	"github.com/robert-malhotra/go-zarr/internal/chunkgrid"
	"github.com/robert-malhotra/go-zarr/internal/codec"
)

// Common errors
var (
	ErrNodeNotFound    = errors.New("node does not exist")
	ErrNotArray        = errors.New("node is not an array")
	ErrNotGroup        = errors.New("node is not a group")
	ErrInvalidMetadata = errors.New("invalid metadata")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrDtypeMismatch   = errors.New("data type mismatch")

	// ErrBounds reports a selection outside the array's shape.
	ErrBounds = chunkgrid.ErrBounds
	// ErrCorruptData reports stored bytes that fail checksum verification
	// or cannot be decoded.
	ErrCorruptData = codec.ErrCorrupt
	// ErrInvalidCodec reports a codec chain that fails validation.
	ErrInvalidCodec = codec.ErrInvalidChain
)
