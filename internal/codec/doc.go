// Package codec implements the chunk codec pipeline: the ordered,
// reversible transforms a chunk passes through between its in-memory array
// form and its stored byte form.
//
// # Stage kinds
//
// Every stage has one of three capability roles:
//
//   - array to array ([ArrayArrayCodec]): keeps the chunk in array form but
//     may reorder it, e.g. [Transpose].
//   - array to bytes ([ArrayBytesCodec]): serializes the array form to a
//     flat byte sequence. Exactly one per chain, e.g. [Bytes]. The sharding
//     codec registers as this kind and nests a full sub-chain.
//   - bytes to bytes ([BytesBytesCodec]): reversible byte transforms, e.g.
//     [Gzip], [Zstd], [Shuffle], and the checksum stages [Crc32c] and
//     [XXH3].
//
// Encode runs array stages in declared order, then the boundary stage, then
// byte stages in declared order; decode runs the exact reverse. For every
// stage, decode(encode(x)) == x; checksum stages additionally guarantee
// that decode fails with [ErrCorrupt] when the bytes were altered.
//
// # Chains
//
// [NewChain] builds a chain from metadata specs and validates stage-kind
// compatibility once, at parse time. A chain with no explicit boundary
// stage receives an implicit little-endian bytes stage.
//
// # Registry
//
// Stages are constructed by name through a registry so that metadata
// documents can be parsed without knowing the concrete set in advance.
// The sharding codec registers itself from its own package.
//
// Partial-region decode is deliberately not part of this layer's contract:
// a chain decodes whole chunks. Avoiding unwanted bytes is the sharding
// codec's and the orchestrator's job.
package codec
