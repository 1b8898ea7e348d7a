package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/robert-malhotra/go-zarr/internal/ndbuffer"
)

// Common errors
var (
	// ErrCorrupt reports that stored bytes cannot be decoded: a checksum
	// mismatch, truncated data, or a malformed compressed stream.
	ErrCorrupt = errors.New("corrupt data")
	// ErrInvalidChain reports a codec chain whose stages do not compose.
	ErrInvalidChain = errors.New("invalid codec chain")
	// ErrInvalidConfig reports a malformed codec configuration document.
	ErrInvalidConfig = errors.New("invalid codec configuration")
)

// Spec is one codec stage as it appears in a metadata document.
type Spec struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

// Context describes the chunk geometry a stage operates on: the shape and
// element size of the stage's array-form input and the encoded fill element.
type Context struct {
	Shape    []int
	ElemSize int
	Fill     []byte
}

// NumBytes returns the byte length of the context's array form.
func (c Context) NumBytes() int {
	n := c.ElemSize
	for _, d := range c.Shape {
		n *= d
	}
	return n
}

// Codec is the common interface of all stages.
type Codec interface {
	Name() string
	// Spec returns the stage's metadata document entry.
	Spec() Spec
}

// ArrayArrayCodec transforms a chunk between two array forms, possibly
// changing its shape (e.g. transpose). Encode and decode must round-trip.
type ArrayArrayCodec interface {
	Codec
	// EncodedShape returns the shape the stage's output has for a given
	// input shape.
	EncodedShape(shape []int) ([]int, error)
	EncodeArray(cctx Context, buf *ndbuffer.Buffer) (*ndbuffer.Buffer, error)
	DecodeArray(cctx Context, buf *ndbuffer.Buffer) (*ndbuffer.Buffer, error)
}

// ArrayBytesCodec serializes a chunk's array form to a flat byte sequence.
// Exactly one such stage appears in every chain.
type ArrayBytesCodec interface {
	Codec
	EncodeBytes(cctx Context, buf *ndbuffer.Buffer) ([]byte, error)
	DecodeBytes(cctx Context, data []byte) (*ndbuffer.Buffer, error)
}

// BytesBytesCodec is a reversible byte-level transform such as compression
// or a checksum append. Checksum stages must fail decode with ErrCorrupt
// when the bytes were altered.
type BytesBytesCodec interface {
	Codec
	EncodeRaw(data []byte) ([]byte, error)
	DecodeRaw(data []byte) ([]byte, error)
}

// FixedSizer is implemented by stages whose encoded size is a pure function
// of the input size. The sharding codec requires this of its index chain so
// the index's extent is computable without scanning the payload.
type FixedSizer interface {
	EncodedSize(n int) int
}

// Constructor builds a codec stage from its configuration document.
type Constructor func(cfg json.RawMessage) (Codec, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register makes a codec constructor available under a metadata name.
// Registering a duplicate name panics.
func Register(name string, fn Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("codec: duplicate registration of %q", name))
	}
	registry[name] = fn
}

// Build constructs the codec stage named by a spec.
func Build(spec Spec) (Codec, error) {
	registryMu.RLock()
	fn, ok := registry[spec.Name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, spec.Name)
	}
	c, err := fn(spec.Configuration)
	if err != nil {
		return nil, fmt.Errorf("codec %q: %w", spec.Name, err)
	}
	return c, nil
}

// Names returns the registered codec names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("bytes", newBytesFromConfig)
	Register("transpose", newTransposeFromConfig)
	Register("shuffle", newShuffleFromConfig)
	Register("gzip", newGzipFromConfig)
	Register("zstd", newZstdFromConfig)
	Register("crc32c", newCrc32cFromConfig)
	Register("xxh3", newXXH3FromConfig)
}

// mustRaw marshals a configuration struct; configs are plain structs so
// marshaling cannot fail.
func mustRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
