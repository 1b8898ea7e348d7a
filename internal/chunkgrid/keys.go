package chunkgrid

import (
	"fmt"
	"strconv"
	"strings"
)

// Key encoding names as they appear in metadata documents.
const (
	DefaultEncodingName = "default"
	V2EncodingName      = "v2"
)

// KeyEncoding derives a chunk's store key suffix from its coordinate.
// Encodings are injective: distinct coordinates never produce the same key.
type KeyEncoding interface {
	Name() string
	Separator() string
	ChunkKey(coord []int) string
}

// ParseEncoding returns the key encoding for a metadata name/separator pair.
// An empty name selects the default encoding; an empty separator selects
// that encoding's conventional separator.
func ParseEncoding(name, sep string) (KeyEncoding, error) {
	switch name {
	case DefaultEncodingName, "":
		if sep == "" {
			sep = "/"
		}
		if sep != "/" && sep != "." {
			return nil, fmt.Errorf("invalid chunk key separator %q", sep)
		}
		return defaultEncoding{sep: sep}, nil
	case V2EncodingName:
		if sep == "" {
			sep = "."
		}
		if sep != "/" && sep != "." {
			return nil, fmt.Errorf("invalid chunk key separator %q", sep)
		}
		return v2Encoding{sep: sep}, nil
	}
	return nil, fmt.Errorf("unknown chunk key encoding %q", name)
}

// defaultEncoding produces "c" separator-joined with the coordinate
// components, e.g. "c/0/5". A rank-0 coordinate encodes as "c".
type defaultEncoding struct {
	sep string
}

func (e defaultEncoding) Name() string      { return DefaultEncodingName }
func (e defaultEncoding) Separator() string { return e.sep }

func (e defaultEncoding) ChunkKey(coord []int) string {
	parts := make([]string, 0, len(coord)+1)
	parts = append(parts, "c")
	for _, c := range coord {
		parts = append(parts, strconv.Itoa(c))
	}
	return strings.Join(parts, e.sep)
}

// v2Encoding joins coordinate components with the separator, e.g. "0.5".
// A rank-0 coordinate encodes as "0".
type v2Encoding struct {
	sep string
}

func (e v2Encoding) Name() string      { return V2EncodingName }
func (e v2Encoding) Separator() string { return e.sep }

func (e v2Encoding) ChunkKey(coord []int) string {
	if len(coord) == 0 {
		return "0"
	}
	parts := make([]string, len(coord))
	for i, c := range coord {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, e.sep)
}
