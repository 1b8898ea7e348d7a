package codec

import (
	"encoding/json"
	"fmt"
)

// Shuffle is a byte-transposition transform: it groups the i-th byte of
// every element together so that similar byte positions sit adjacently,
// which improves downstream compression. Trailing bytes that do not form a
// whole element pass through unshuffled.
type Shuffle struct {
	elemSize int
}

type shuffleConfig struct {
	ElementSize int `json:"elementsize"`
}

// NewShuffle returns a shuffle codec for the given element size. Sizes of
// one or less make the transform a plain copy.
func NewShuffle(elemSize int) *Shuffle {
	return &Shuffle{elemSize: elemSize}
}

func newShuffleFromConfig(cfg json.RawMessage) (Codec, error) {
	c := shuffleConfig{ElementSize: 1}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.ElementSize < 1 {
		return nil, fmt.Errorf("%w: shuffle elementsize must be >= 1, got %d", ErrInvalidConfig, c.ElementSize)
	}
	return NewShuffle(c.ElementSize), nil
}

func (s *Shuffle) Name() string { return "shuffle" }

func (s *Shuffle) Spec() Spec {
	return Spec{Name: s.Name(), Configuration: mustRaw(shuffleConfig{ElementSize: s.elemSize})}
}

// EncodedSize implements FixedSizer; shuffling never changes the byte count.
func (s *Shuffle) EncodedSize(n int) int { return n }

func (s *Shuffle) EncodeRaw(data []byte) ([]byte, error) {
	if s.elemSize <= 1 {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	numElems := len(data) / s.elemSize
	out := make([]byte, len(data))
	for i := 0; i < numElems; i++ {
		for j := 0; j < s.elemSize; j++ {
			out[j*numElems+i] = data[i*s.elemSize+j]
		}
	}
	copy(out[numElems*s.elemSize:], data[numElems*s.elemSize:])
	return out, nil
}

func (s *Shuffle) DecodeRaw(data []byte) ([]byte, error) {
	if s.elemSize <= 1 {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	numElems := len(data) / s.elemSize
	out := make([]byte, len(data))
	for i := 0; i < numElems; i++ {
		for j := 0; j < s.elemSize; j++ {
			out[i*s.elemSize+j] = data[j*numElems+i]
		}
	}
	copy(out[numElems*s.elemSize:], data[numElems*s.elemSize:])
	return out, nil
}
