package zarr

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-zarr/store"
)

// Option configures array and group creation and opening.
type Option func(*options)

type options struct {
	logger          *zap.Logger
	concurrency     int
	writeEmpty      bool
	retry           *store.RetryConfig
	shardIndexCache int

	// creation-only settings
	chunkShape     []int
	fill           any
	hasFill        bool
	codecs         []CodecSpec
	keyEncoding    string
	separator      string
	attributes     map[string]any
	dimensionNames []string
}

func defaultOptions() *options {
	return &options{
		logger:          zap.NewNop(),
		concurrency:     2 * runtime.GOMAXPROCS(0),
		shardIndexCache: -1,
	}
}

// WithLogger routes debug traces (per-region and per-chunk) to the given
// logger. The default discards them.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConcurrency bounds the number of chunks processed in parallel per
// Get or Set. The default scales with GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithWriteEmptyChunks stores chunks even when every element equals the
// fill value. By default such chunks are deleted instead.
func WithWriteEmptyChunks() Option {
	return func(o *options) {
		o.writeEmpty = true
	}
}

// WithStoreRetry wraps the store so transient failures are retried with
// exponential backoff. Pass the zero config for the defaults.
func WithStoreRetry(cfg store.RetryConfig) Option {
	return func(o *options) {
		o.retry = &cfg
	}
}

// WithShardIndexCache sets how many parsed shard indexes are kept per
// array; n <= 0 disables caching.
func WithShardIndexCache(n int) Option {
	return func(o *options) {
		o.shardIndexCache = n
	}
}

// WithChunkShape sets a new array's chunk shape. The default is a single
// chunk covering the whole array.
func WithChunkShape(shape ...int) Option {
	return func(o *options) {
		o.chunkShape = shape
	}
}

// WithFillValue sets the fill value for a new array. The value must be
// JSON-encodable for the data type: a number for numeric types, a bool for
// bool, "NaN"/"Infinity"/"-Infinity" for float specials, a base64 string
// for raw types. The default is the type's zero value.
func WithFillValue(v any) Option {
	return func(o *options) {
		o.fill = v
		o.hasFill = true
	}
}

// WithCodecs sets a new array's codec chain in encode order. The default
// is the little-endian bytes codec alone.
func WithCodecs(specs ...CodecSpec) Option {
	return func(o *options) {
		o.codecs = specs
	}
}

// WithChunkKeyEncoding selects a new array's chunk key encoding, "default"
// or "v2", with separator "/" or "." (empty for the conventional one).
func WithChunkKeyEncoding(name, separator string) Option {
	return func(o *options) {
		o.keyEncoding = name
		o.separator = separator
	}
}

// WithAttributes attaches user attributes to a new node's metadata.
func WithAttributes(attrs map[string]any) Option {
	return func(o *options) {
		o.attributes = attrs
	}
}

// WithDimensionNames labels a new array's dimensions. The count must match
// the array rank.
func WithDimensionNames(names ...string) Option {
	return func(o *options) {
		o.dimensionNames = names
	}
}
