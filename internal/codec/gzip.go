package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip compresses chunk bytes with the gzip format.
type Gzip struct {
	level int
}

type gzipConfig struct {
	Level int `json:"level"`
}

// NewGzip returns a gzip codec with the given compression level (1-9).
func NewGzip(level int) *Gzip {
	return &Gzip{level: level}
}

func newGzipFromConfig(cfg json.RawMessage) (Codec, error) {
	c := gzipConfig{Level: gzip.DefaultCompression}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.Level < gzip.HuffmanOnly || c.Level > gzip.BestCompression {
		return nil, fmt.Errorf("%w: gzip level %d out of range", ErrInvalidConfig, c.Level)
	}
	return NewGzip(c.Level), nil
}

func (g *Gzip) Name() string { return "gzip" }

func (g *Gzip) Spec() Spec {
	return Spec{Name: g.Name(), Configuration: mustRaw(gzipConfig{Level: g.level})}
}

func (g *Gzip) EncodeRaw(data []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := gzip.NewWriterLevel(&out, g.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip flush: %w", err)
	}
	return out.Bytes(), nil
}

func (g *Gzip) DecodeRaw(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip header: %v", ErrCorrupt, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip stream: %v", ErrCorrupt, err)
	}
	return out, nil
}
