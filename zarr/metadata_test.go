package zarr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArrayMetadataRoundTrip(t *testing.T) {
	m := &ArrayMetadata{
		Shape:      []int{100, 200},
		DataType:   Float64,
		ChunkShape: []int{10, 20},
		Fill:       mustFill(t, Float64, `"NaN"`),
		Codecs: []CodecSpec{
			BytesCodec("little"),
			GzipCodec(5),
			Crc32cCodec(),
		},
		Attributes:     map[string]any{"units": "kelvin"},
		DimensionNames: []string{"y", "x"},
	}

	doc, err := json.Marshal(m)
	require.NoError(t, err)

	// The document carries the standard envelope.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(doc, &raw))
	require.Equal(t, float64(3), raw["zarr_format"])
	require.Equal(t, "array", raw["node_type"])
	require.Equal(t, "NaN", raw["fill_value"])

	back := &ArrayMetadata{}
	require.NoError(t, json.Unmarshal(doc, back))
	require.Equal(t, m.Shape, back.Shape)
	require.Equal(t, m.DataType, back.DataType)
	require.Equal(t, m.ChunkShape, back.ChunkShape)
	require.Equal(t, m.Fill, back.Fill)
	require.Equal(t, m.Attributes, back.Attributes)
	require.Equal(t, m.DimensionNames, back.DimensionNames)
	require.Len(t, back.Codecs, 3)
	require.Equal(t, "gzip", back.Codecs[1].Name)
}

func mustFill(t *testing.T, dt DataType, rawJSON string) []byte {
	t.Helper()
	m := &ArrayMetadata{
		Shape:      []int{1},
		DataType:   dt,
		ChunkShape: []int{1},
	}
	doc := map[string]any{
		"zarr_format": 3,
		"node_type":   "array",
		"shape":       m.Shape,
		"data_type":   string(dt),
		"chunk_grid": map[string]any{
			"name":          "regular",
			"configuration": map[string]any{"chunk_shape": m.ChunkShape},
		},
		"fill_value": json.RawMessage(rawJSON),
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, m))
	return m.Fill
}

func TestArrayMetadataKeyEncoding(t *testing.T) {
	m := &ArrayMetadata{
		Shape:       []int{4},
		DataType:    Uint8,
		ChunkShape:  []int{2},
		KeyEncoding: "v2",
		Separator:   ".",
		Fill:        []byte{0},
	}
	doc, err := json.Marshal(m)
	require.NoError(t, err)

	back := &ArrayMetadata{}
	require.NoError(t, json.Unmarshal(doc, back))
	require.Equal(t, "v2", back.KeyEncoding)
	require.Equal(t, ".", back.Separator)
}

func TestArrayMetadataValidation(t *testing.T) {
	base := func() *ArrayMetadata {
		return &ArrayMetadata{
			Shape:      []int{4, 4},
			DataType:   Int32,
			ChunkShape: []int{2, 2},
			Fill:       make([]byte, 4),
		}
	}

	require.NoError(t, base().validate())

	m := base()
	m.ChunkShape = []int{2}
	require.ErrorIs(t, m.validate(), ErrInvalidMetadata)

	m = base()
	m.ChunkShape = []int{0, 2}
	require.ErrorIs(t, m.validate(), ErrInvalidMetadata)

	m = base()
	m.Fill = []byte{0}
	require.ErrorIs(t, m.validate(), ErrInvalidMetadata)

	m = base()
	m.DimensionNames = []string{"only-one"}
	require.ErrorIs(t, m.validate(), ErrInvalidMetadata)

	m = base()
	m.KeyEncoding = "base32"
	require.ErrorIs(t, m.validate(), ErrInvalidMetadata)
}

func TestArrayMetadataRejectsWrongEnvelope(t *testing.T) {
	m := &ArrayMetadata{}
	err := json.Unmarshal([]byte(`{"zarr_format": 2, "node_type": "array"}`), m)
	require.ErrorIs(t, err, ErrInvalidMetadata)

	groupDoc := []byte(`{"zarr_format": 3, "node_type": "group"}`)
	err = json.Unmarshal(groupDoc, m)
	require.ErrorIs(t, err, ErrNotArray)

	g := &GroupMetadata{}
	require.NoError(t, json.Unmarshal(groupDoc, g))
	arrDoc := []byte(`{"zarr_format": 3, "node_type": "array"}`)
	require.ErrorIs(t, json.Unmarshal(arrDoc, g), ErrNotGroup)
}

func TestGroupMetadataRoundTrip(t *testing.T) {
	m := &GroupMetadata{Attributes: map[string]any{"created_by": "pipeline-7"}}
	doc, err := json.Marshal(m)
	require.NoError(t, err)

	back := &GroupMetadata{}
	require.NoError(t, json.Unmarshal(doc, back))
	require.Equal(t, m.Attributes, back.Attributes)

	nt, err := nodeTypeOf(doc)
	require.NoError(t, err)
	require.Equal(t, "group", nt)
}
