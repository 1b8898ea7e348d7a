package codec

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Zstd compresses chunk bytes with the zstandard format. The encoder and
// decoder are created once per codec instance and reused across chunks;
// EncodeAll/DecodeAll are safe for concurrent use.
type Zstd struct {
	level    int
	checksum bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

type zstdConfig struct {
	Level    int  `json:"level"`
	Checksum bool `json:"checksum"`
}

// NewZstd returns a zstd codec with the given zstandard level. When
// checksum is set, frames carry a content checksum verified on decode.
func NewZstd(level int, checksum bool) (*Zstd, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderCRC(checksum))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Zstd{level: level, checksum: checksum, enc: enc, dec: dec}, nil
}

func newZstdFromConfig(cfg json.RawMessage) (Codec, error) {
	c := zstdConfig{Level: 3}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.Level < 1 || c.Level > 22 {
		return nil, fmt.Errorf("%w: zstd level %d out of range", ErrInvalidConfig, c.Level)
	}
	return NewZstd(c.Level, c.Checksum)
}

func (z *Zstd) Name() string { return "zstd" }

func (z *Zstd) Spec() Spec {
	return Spec{Name: z.Name(), Configuration: mustRaw(zstdConfig{Level: z.level, Checksum: z.checksum})}
}

func (z *Zstd) EncodeRaw(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, nil), nil
}

func (z *Zstd) DecodeRaw(data []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd frame: %v", ErrCorrupt, err)
	}
	return out, nil
}
