package codec

import (
	"encoding/json"
	"fmt"

	"github.com/robert-malhotra/go-zarr/internal/ndbuffer"
)

// Transpose reorders a chunk's axes before serialization. The order is
// either "C" (identity), "F" (reversed axes, column-major layout after the
// bytes stage), or an explicit permutation.
type Transpose struct {
	orderC bool
	orderF bool
	perm   []int
}

// NewTranspose returns a transpose codec with an explicit axis permutation.
func NewTranspose(perm []int) *Transpose {
	p := make([]int, len(perm))
	copy(p, perm)
	return &Transpose{perm: p}
}

// NewTransposeOrder returns a transpose codec for order "C" or "F".
func NewTransposeOrder(order string) (*Transpose, error) {
	switch order {
	case "C":
		return &Transpose{orderC: true}, nil
	case "F":
		return &Transpose{orderF: true}, nil
	}
	return nil, fmt.Errorf("%w: transpose order must be \"C\", \"F\" or a permutation, got %q",
		ErrInvalidConfig, order)
}

func newTransposeFromConfig(cfg json.RawMessage) (Codec, error) {
	var c struct {
		Order json.RawMessage `json:"order"`
	}
	if err := json.Unmarshal(cfg, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var s string
	if err := json.Unmarshal(c.Order, &s); err == nil {
		return NewTransposeOrder(s)
	}
	var perm []int
	if err := json.Unmarshal(c.Order, &perm); err != nil {
		return nil, fmt.Errorf("%w: transpose order: %v", ErrInvalidConfig, err)
	}
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("%w: %v is not a permutation", ErrInvalidConfig, perm)
		}
		seen[p] = true
	}
	return NewTranspose(perm), nil
}

func (t *Transpose) Name() string { return "transpose" }

func (t *Transpose) Spec() Spec {
	var order any
	switch {
	case t.orderC:
		order = "C"
	case t.orderF:
		order = "F"
	default:
		order = t.perm
	}
	return Spec{Name: t.Name(), Configuration: mustRaw(map[string]any{"order": order})}
}

// permFor resolves the encode-direction permutation for a given rank.
func (t *Transpose) permFor(rank int) ([]int, error) {
	switch {
	case t.orderC:
		perm := make([]int, rank)
		for i := range perm {
			perm[i] = i
		}
		return perm, nil
	case t.orderF:
		perm := make([]int, rank)
		for i := range perm {
			perm[i] = rank - 1 - i
		}
		return perm, nil
	default:
		if len(t.perm) != rank {
			return nil, fmt.Errorf("transpose order has %d axes, chunk has %d", len(t.perm), rank)
		}
		return t.perm, nil
	}
}

func (t *Transpose) EncodedShape(shape []int) ([]int, error) {
	perm, err := t.permFor(len(shape))
	if err != nil {
		return nil, err
	}
	out := make([]int, len(shape))
	for i, p := range perm {
		out[i] = shape[p]
	}
	return out, nil
}

func (t *Transpose) EncodeArray(cctx Context, buf *ndbuffer.Buffer) (*ndbuffer.Buffer, error) {
	perm, err := t.permFor(buf.Rank())
	if err != nil {
		return nil, err
	}
	return buf.Transpose(perm)
}

func (t *Transpose) DecodeArray(cctx Context, buf *ndbuffer.Buffer) (*ndbuffer.Buffer, error) {
	perm, err := t.permFor(buf.Rank())
	if err != nil {
		return nil, err
	}
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return buf.Transpose(inv)
}
