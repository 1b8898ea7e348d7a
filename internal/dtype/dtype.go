// Package dtype provides the element data types an array can hold and the
// conversions between their JSON metadata spellings and their fixed-width
// little-endian byte encodings.
//
// Supported types are bool, signed and unsigned integers of 1-8 bytes,
// IEEE floats of 4 and 8 bytes, and opaque raw types "r<bits>" where bits
// is a positive multiple of 8. Element bytes are always held little-endian
// in memory; byte-order transforms happen in the codec pipeline.
package dtype

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType identifies an element type by its metadata name.
type DataType string

const (
	Bool    DataType = "bool"
	Int8    DataType = "int8"
	Int16   DataType = "int16"
	Int32   DataType = "int32"
	Int64   DataType = "int64"
	Uint8   DataType = "uint8"
	Uint16  DataType = "uint16"
	Uint32  DataType = "uint32"
	Uint64  DataType = "uint64"
	Float32 DataType = "float32"
	Float64 DataType = "float64"
)

var sizes = map[DataType]int{
	Bool:    1,
	Int8:    1,
	Int16:   2,
	Int32:   4,
	Int64:   8,
	Uint8:   1,
	Uint16:  2,
	Uint32:  4,
	Uint64:  8,
	Float32: 4,
	Float64: 8,
}

// Parse validates a data type name and returns it as a DataType.
// Raw types are spelled "r<bits>", e.g. "r16" for two opaque bytes.
func Parse(s string) (DataType, error) {
	dt := DataType(s)
	if _, ok := sizes[dt]; ok {
		return dt, nil
	}
	if bits, ok := rawBits(dt); ok && bits > 0 && bits%8 == 0 {
		return dt, nil
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

func rawBits(dt DataType) (int, bool) {
	s := string(dt)
	if !strings.HasPrefix(s, "r") {
		return 0, false
	}
	bits, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, false
	}
	return bits, true
}

// Valid reports whether dt names a supported data type.
func (dt DataType) Valid() bool {
	_, err := Parse(string(dt))
	return err == nil
}

// Size returns the number of bytes per element.
func (dt DataType) Size() int {
	if n, ok := sizes[dt]; ok {
		return n
	}
	if bits, ok := rawBits(dt); ok {
		return bits / 8
	}
	return 0
}

// IsRaw reports whether dt is an opaque raw type.
func (dt DataType) IsRaw() bool {
	_, ok := rawBits(dt)
	return ok
}

// IsFloat reports whether dt is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float64
}

// IsSigned reports whether dt is a signed integer type.
func (dt DataType) IsSigned() bool {
	switch dt {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// IsUnsigned reports whether dt is an unsigned integer type.
func (dt DataType) IsUnsigned() bool {
	switch dt {
	case Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

func (dt DataType) String() string {
	return string(dt)
}

// Zero returns the all-zero element encoding for dt.
func (dt DataType) Zero() []byte {
	return make([]byte, dt.Size())
}
