package zarr

import (
	"encoding/json"
	"fmt"

	"github.com/robert-malhotra/go-zarr/internal/chunkgrid"
	"github.com/robert-malhotra/go-zarr/internal/codec"
	"github.com/robert-malhotra/go-zarr/internal/dtype"
)

// MetadataKey is the store key of a node's metadata document, relative to
// the node's path.
const MetadataKey = "zarr.json"

// zarrFormat is the only metadata format version this package speaks.
const zarrFormat = 3

// CodecSpec is one entry of an array's codec chain: a registered codec
// name plus its JSON configuration.
type CodecSpec = codec.Spec

// ArrayMetadata describes one array: its logical shape, element type,
// chunking, fill value, and codec chain. It marshals to and from the
// array's zarr.json document.
type ArrayMetadata struct {
	Shape      []int
	DataType   DataType
	ChunkShape []int

	// KeyEncoding is "default" or "v2"; Separator is "/" or ".". Zero
	// values mean the default encoding with its conventional separator.
	KeyEncoding string
	Separator   string

	// Fill holds the fill value as element bytes, little-endian.
	Fill []byte

	// Codecs is the chain applied to each chunk, in encode order. Empty
	// means the implicit little-endian bytes codec.
	Codecs []CodecSpec

	Attributes     map[string]any
	DimensionNames []string
}

// GroupMetadata describes one group node.
type GroupMetadata struct {
	Attributes map[string]any
}

type nameConfig struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

type arrayMetaJSON struct {
	ZarrFormat       int             `json:"zarr_format"`
	NodeType         string          `json:"node_type"`
	Shape            []int           `json:"shape"`
	DataType         string          `json:"data_type"`
	ChunkGrid        nameConfig      `json:"chunk_grid"`
	ChunkKeyEncoding *nameConfig     `json:"chunk_key_encoding,omitempty"`
	FillValue        json.RawMessage `json:"fill_value"`
	Codecs           []CodecSpec     `json:"codecs,omitempty"`
	Attributes       map[string]any  `json:"attributes,omitempty"`
	DimensionNames   []string        `json:"dimension_names,omitempty"`
}

type groupMetaJSON struct {
	ZarrFormat int            `json:"zarr_format"`
	NodeType   string         `json:"node_type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// nodeTypeOf peeks at a metadata document's node_type without a full parse.
func nodeTypeOf(doc []byte) (string, error) {
	var probe struct {
		ZarrFormat int    `json:"zarr_format"`
		NodeType   string `json:"node_type"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if probe.ZarrFormat != zarrFormat {
		return "", fmt.Errorf("%w: zarr_format %d, want %d", ErrInvalidMetadata, probe.ZarrFormat, zarrFormat)
	}
	return probe.NodeType, nil
}

type regularGridConfig struct {
	ChunkShape []int `json:"chunk_shape"`
}

type keyEncodingConfig struct {
	Separator string `json:"separator,omitempty"`
}

// MarshalJSON writes the canonical zarr.json document.
func (m *ArrayMetadata) MarshalJSON() ([]byte, error) {
	gridCfg, err := json.Marshal(regularGridConfig{ChunkShape: m.ChunkShape})
	if err != nil {
		return nil, err
	}
	fill, err := dtype.FormatFill(m.DataType, m.Fill)
	if err != nil {
		return nil, err
	}

	doc := arrayMetaJSON{
		ZarrFormat:     zarrFormat,
		NodeType:       "array",
		Shape:          m.Shape,
		DataType:       string(m.DataType),
		ChunkGrid:      nameConfig{Name: "regular", Configuration: gridCfg},
		FillValue:      fill,
		Codecs:         m.Codecs,
		Attributes:     m.Attributes,
		DimensionNames: m.DimensionNames,
	}
	if m.KeyEncoding != "" || m.Separator != "" {
		keyCfg, err := json.Marshal(keyEncodingConfig{Separator: m.Separator})
		if err != nil {
			return nil, err
		}
		name := m.KeyEncoding
		if name == "" {
			name = chunkgrid.DefaultEncodingName
		}
		doc.ChunkKeyEncoding = &nameConfig{Name: name, Configuration: keyCfg}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON parses a zarr.json array document, validating structure but
// not the codec chain; chain validation happens when the array is opened.
func (m *ArrayMetadata) UnmarshalJSON(data []byte) error {
	var doc arrayMetaJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if doc.ZarrFormat != zarrFormat {
		return fmt.Errorf("%w: zarr_format %d, want %d", ErrInvalidMetadata, doc.ZarrFormat, zarrFormat)
	}
	if doc.NodeType != "array" {
		return fmt.Errorf("%w: node_type %q", ErrNotArray, doc.NodeType)
	}

	dt, err := dtype.Parse(doc.DataType)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if doc.ChunkGrid.Name != "regular" {
		return fmt.Errorf("%w: unsupported chunk grid %q", ErrInvalidMetadata, doc.ChunkGrid.Name)
	}
	var gridCfg regularGridConfig
	if err := json.Unmarshal(doc.ChunkGrid.Configuration, &gridCfg); err != nil {
		return fmt.Errorf("%w: chunk grid configuration: %v", ErrInvalidMetadata, err)
	}
	fill, err := dtype.ParseFill(dt, doc.FillValue)
	if err != nil {
		return fmt.Errorf("%w: fill_value: %v", ErrInvalidMetadata, err)
	}

	m.Shape = doc.Shape
	m.DataType = dt
	m.ChunkShape = gridCfg.ChunkShape
	m.Fill = fill
	m.Codecs = doc.Codecs
	m.Attributes = doc.Attributes
	m.DimensionNames = doc.DimensionNames
	m.KeyEncoding = ""
	m.Separator = ""
	if doc.ChunkKeyEncoding != nil {
		m.KeyEncoding = doc.ChunkKeyEncoding.Name
		if len(doc.ChunkKeyEncoding.Configuration) > 0 {
			var keyCfg keyEncodingConfig
			if err := json.Unmarshal(doc.ChunkKeyEncoding.Configuration, &keyCfg); err != nil {
				return fmt.Errorf("%w: chunk_key_encoding configuration: %v", ErrInvalidMetadata, err)
			}
			m.Separator = keyCfg.Separator
		}
	}
	return m.validate()
}

// validate checks the structural invariants that do not need the codec
// registry.
func (m *ArrayMetadata) validate() error {
	if !m.DataType.Valid() {
		return fmt.Errorf("%w: data type %q", ErrInvalidMetadata, m.DataType)
	}
	if len(m.ChunkShape) != len(m.Shape) {
		return fmt.Errorf("%w: chunk rank %d does not match array rank %d",
			ErrInvalidMetadata, len(m.ChunkShape), len(m.Shape))
	}
	for d, n := range m.Shape {
		if n < 0 {
			return fmt.Errorf("%w: dimension %d has negative size %d", ErrInvalidMetadata, d, n)
		}
	}
	for d, n := range m.ChunkShape {
		if n < 1 {
			return fmt.Errorf("%w: chunk dimension %d has size %d, want >= 1", ErrInvalidMetadata, d, n)
		}
	}
	if len(m.Fill) != m.DataType.Size() {
		return fmt.Errorf("%w: fill value has %d bytes, data type needs %d",
			ErrInvalidMetadata, len(m.Fill), m.DataType.Size())
	}
	if len(m.DimensionNames) != 0 && len(m.DimensionNames) != len(m.Shape) {
		return fmt.Errorf("%w: %d dimension names for rank %d",
			ErrInvalidMetadata, len(m.DimensionNames), len(m.Shape))
	}
	if _, err := chunkgrid.ParseEncoding(m.KeyEncoding, m.Separator); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return nil
}

// MarshalJSON writes the canonical group zarr.json document.
func (m *GroupMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(groupMetaJSON{
		ZarrFormat: zarrFormat,
		NodeType:   "group",
		Attributes: m.Attributes,
	})
}

// UnmarshalJSON parses a zarr.json group document.
func (m *GroupMetadata) UnmarshalJSON(data []byte) error {
	var doc groupMetaJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if doc.ZarrFormat != zarrFormat {
		return fmt.Errorf("%w: zarr_format %d, want %d", ErrInvalidMetadata, doc.ZarrFormat, zarrFormat)
	}
	if doc.NodeType != "group" {
		return fmt.Errorf("%w: node_type %q", ErrNotGroup, doc.NodeType)
	}
	m.Attributes = doc.Attributes
	return nil
}
