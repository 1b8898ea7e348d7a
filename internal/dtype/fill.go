package dtype

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Float fill values may be spelled as strings in metadata documents.
const (
	fillNaN    = "NaN"
	fillPosInf = "Infinity"
	fillNegInf = "-Infinity"
)

// ParseFill decodes a JSON fill value document into the little-endian byte
// encoding of one element. A null (or empty) document yields the zero element.
// Raw types take a base64 string of exactly Size bytes.
func ParseFill(dt DataType, raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return dt.Zero(), nil
	}

	switch {
	case dt == Bool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("bool fill value: %w", err)
		}
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case dt.IsSigned():
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%s fill value: %w", dt, err)
		}
		v, err := strconv.ParseInt(n.String(), 10, 8*dt.Size())
		if err != nil {
			return nil, fmt.Errorf("%s fill value: %w", dt, err)
		}
		return encodeUint(uint64(v), dt.Size()), nil

	case dt.IsUnsigned():
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%s fill value: %w", dt, err)
		}
		v, err := strconv.ParseUint(n.String(), 10, 8*dt.Size())
		if err != nil {
			return nil, fmt.Errorf("%s fill value: %w", dt, err)
		}
		return encodeUint(v, dt.Size()), nil

	case dt.IsFloat():
		v, err := parseFloatFill(raw)
		if err != nil {
			return nil, fmt.Errorf("%s fill value: %w", dt, err)
		}
		if dt == Float32 {
			return encodeUint(uint64(math.Float32bits(float32(v))), 4), nil
		}
		return encodeUint(math.Float64bits(v), 8), nil

	case dt.IsRaw():
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s fill value: %w", dt, err)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%s fill value: %w", dt, err)
		}
		if len(b) != dt.Size() {
			return nil, fmt.Errorf("%s fill value: got %d bytes, want %d", dt, len(b), dt.Size())
		}
		return b, nil
	}

	return nil, fmt.Errorf("unknown data type %q", dt)
}

func parseFloatFill(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case fillNaN:
			return math.NaN(), nil
		case fillPosInf:
			return math.Inf(1), nil
		case fillNegInf:
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("invalid float spelling %q", s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(n.String(), 64)
}

// FormatFill re-encodes element bytes as a canonical JSON fill value document.
func FormatFill(dt DataType, elem []byte) (json.RawMessage, error) {
	if len(elem) != dt.Size() {
		return nil, fmt.Errorf("%s fill value: got %d bytes, want %d", dt, len(elem), dt.Size())
	}

	switch {
	case dt == Bool:
		if elem[0] != 0 {
			return json.RawMessage("true"), nil
		}
		return json.RawMessage("false"), nil

	case dt.IsSigned():
		return json.RawMessage(strconv.FormatInt(decodeInt(elem), 10)), nil

	case dt.IsUnsigned():
		return json.RawMessage(strconv.FormatUint(decodeUint(elem), 10)), nil

	case dt.IsFloat():
		v := decodeFloat(dt, elem)
		switch {
		case math.IsNaN(v):
			return json.Marshal(fillNaN)
		case math.IsInf(v, 1):
			return json.Marshal(fillPosInf)
		case math.IsInf(v, -1):
			return json.Marshal(fillNegInf)
		}
		bits := 64
		if dt == Float32 {
			bits = 32
		}
		return json.RawMessage(strconv.FormatFloat(v, 'g', -1, bits)), nil

	case dt.IsRaw():
		return json.Marshal(base64.StdEncoding.EncodeToString(elem))
	}

	return nil, fmt.Errorf("unknown data type %q", dt)
}

// ParseElem parses a single element from its string spelling, as used on a
// command line. Raw elements are base64.
func ParseElem(dt DataType, s string) ([]byte, error) {
	switch {
	case dt == Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("bool element %q: %w", s, err)
		}
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case dt.IsSigned():
		v, err := strconv.ParseInt(s, 10, 8*dt.Size())
		if err != nil {
			return nil, fmt.Errorf("%s element %q: %w", dt, s, err)
		}
		return encodeUint(uint64(v), dt.Size()), nil

	case dt.IsUnsigned():
		v, err := strconv.ParseUint(s, 10, 8*dt.Size())
		if err != nil {
			return nil, fmt.Errorf("%s element %q: %w", dt, s, err)
		}
		return encodeUint(v, dt.Size()), nil

	case dt.IsFloat():
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s element %q: %w", dt, s, err)
		}
		if dt == Float32 {
			return encodeUint(uint64(math.Float32bits(float32(v))), 4), nil
		}
		return encodeUint(math.Float64bits(v), 8), nil

	case dt.IsRaw():
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%s element %q: %w", dt, s, err)
		}
		if len(b) != dt.Size() {
			return nil, fmt.Errorf("%s element: got %d bytes, want %d", dt, len(b), dt.Size())
		}
		return b, nil
	}

	return nil, fmt.Errorf("unknown data type %q", dt)
}

// FormatElem renders a single element for display.
func FormatElem(dt DataType, elem []byte) string {
	if len(elem) != dt.Size() {
		return "?"
	}
	switch {
	case dt == Bool:
		return strconv.FormatBool(elem[0] != 0)
	case dt.IsSigned():
		return strconv.FormatInt(decodeInt(elem), 10)
	case dt.IsUnsigned():
		return strconv.FormatUint(decodeUint(elem), 10)
	case dt.IsFloat():
		bits := 64
		if dt == Float32 {
			bits = 32
		}
		return strconv.FormatFloat(decodeFloat(dt, elem), 'g', -1, bits)
	default:
		return base64.StdEncoding.EncodeToString(elem)
	}
}

func encodeUint(v uint64, size int) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	out := make([]byte, size)
	copy(out, tmp[:size])
	return out
}

func decodeUint(elem []byte) uint64 {
	var tmp [8]byte
	copy(tmp[:], elem)
	return binary.LittleEndian.Uint64(tmp[:])
}

func decodeInt(elem []byte) int64 {
	u := decodeUint(elem)
	shift := 64 - 8*len(elem)
	return int64(u<<shift) >> shift
}

func decodeFloat(dt DataType, elem []byte) float64 {
	if dt == Float32 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(elem)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(elem))
}
