package zarr

import "github.com/robert-malhotra/go-zarr/internal/dtype"

// DataType names an element type. See the Bool..Float64 constants; raw
// bit-container types are spelled "r<bits>".
type DataType = dtype.DataType

// Element data types.
const (
	Bool    = dtype.Bool
	Int8    = dtype.Int8
	Int16   = dtype.Int16
	Int32   = dtype.Int32
	Int64   = dtype.Int64
	Uint8   = dtype.Uint8
	Uint16  = dtype.Uint16
	Uint32  = dtype.Uint32
	Uint64  = dtype.Uint64
	Float32 = dtype.Float32
	Float64 = dtype.Float64
)

// ParseDataType validates a data type name.
func ParseDataType(s string) (DataType, error) {
	return dtype.Parse(s)
}
