package zarr

import (
	"encoding/json"

	"github.com/robert-malhotra/go-zarr/internal/codec"
	"github.com/robert-malhotra/go-zarr/internal/sharding"
)

// Spec constructors for the built-in codecs. They only build the metadata
// entry; configuration errors surface when the chain is validated.

// BytesCodec packs elements with the given byte order, "little" or "big".
func BytesCodec(endian string) CodecSpec {
	return mustSpec("bytes", map[string]any{"endian": endian})
}

// TransposeCodec permutes axes before packing; order is "C", "F", or an
// explicit permutation via TransposeCodecPerm.
func TransposeCodec(order string) CodecSpec {
	return mustSpec("transpose", map[string]any{"order": order})
}

// TransposeCodecPerm permutes axes by an explicit permutation.
func TransposeCodecPerm(perm []int) CodecSpec {
	return mustSpec("transpose", map[string]any{"order": perm})
}

// ShuffleCodec groups encoded bytes by position within each element, which
// usually helps the compressor that follows it.
func ShuffleCodec(elemSize int) CodecSpec {
	return mustSpec("shuffle", map[string]any{"elementsize": elemSize})
}

// GzipCodec compresses chunk bytes at the given level (1..9).
func GzipCodec(level int) CodecSpec {
	return mustSpec("gzip", map[string]any{"level": level})
}

// ZstdCodec compresses chunk bytes at the given level (1..22).
func ZstdCodec(level int, checksum bool) CodecSpec {
	return mustSpec("zstd", map[string]any{"level": level, "checksum": checksum})
}

// Crc32cCodec appends a CRC-32C checksum verified on read.
func Crc32cCodec() CodecSpec { return CodecSpec{Name: "crc32c"} }

// XXH3Codec appends an XXH3-64 checksum verified on read.
func XXH3Codec() CodecSpec { return CodecSpec{Name: "xxh3"} }

// ShardingCodec packs sub-chunks of the given shape into each stored chunk,
// encoding every sub-chunk through codecs. The sub-chunk shape must divide
// the array's chunk shape elementwise. Pass nil codecs for the implicit
// little-endian bytes codec.
func ShardingCodec(subChunkShape []int, codecs ...CodecSpec) CodecSpec {
	cfg := map[string]any{"chunk_shape": subChunkShape}
	if len(codecs) > 0 {
		cfg["codecs"] = codecs
	}
	return mustSpec(sharding.Name, cfg)
}

func mustSpec(name string, cfg map[string]any) CodecSpec {
	raw, err := json.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	return codec.Spec{Name: name, Configuration: raw}
}
