package zarr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-zarr/store"
)

func TestGroupHierarchy(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	root, err := CreateGroup(ctx, st, "", WithAttributes(map[string]any{"project": "climate"}))
	require.NoError(t, err)

	sub, err := root.CreateGroup(ctx, "daily")
	require.NoError(t, err)
	_, err = sub.CreateArray(ctx, "temperature", []int{10}, Float32, WithChunkShape(5))
	require.NoError(t, err)
	_, err = root.CreateArray(ctx, "elevation", []int{10}, Float64, WithChunkShape(5))
	require.NoError(t, err)

	children, err := root.Children(ctx)
	require.NoError(t, err)
	require.Equal(t, []Child{
		{Name: "daily", NodeType: "group"},
		{Name: "elevation", NodeType: "array"},
	}, children)

	children, err = sub.Children(ctx)
	require.NoError(t, err)
	require.Equal(t, []Child{{Name: "temperature", NodeType: "array"}}, children)

	// Navigate back down after reopening from the store alone.
	reopened, err := OpenGroup(ctx, st, "")
	require.NoError(t, err)
	require.Equal(t, "climate", reopened.Attributes()["project"])

	daily, err := reopened.Group(ctx, "daily")
	require.NoError(t, err)
	temp, err := daily.Array(ctx, "temperature")
	require.NoError(t, err)
	require.Equal(t, []int{10}, temp.Shape())
	require.Equal(t, Float32, temp.DataType())
}

func TestGroupChildrenIgnoresChunkKeys(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	g, err := CreateGroup(ctx, st, "g")
	require.NoError(t, err)
	arr, err := g.CreateArray(ctx, "a", []int{4}, Uint8, WithChunkShape(2))
	require.NoError(t, err)
	require.NoError(t, arr.Set(ctx, []int{0}, uint8Buf(t, []int{4}, 1, 2, 3, 4)))

	children, err := g.Children(ctx)
	require.NoError(t, err)
	require.Equal(t, []Child{{Name: "a", NodeType: "array"}}, children)
}

func TestGroupOpenErrors(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	_, err := OpenGroup(ctx, st, "missing")
	require.ErrorIs(t, err, ErrNodeNotFound)

	_, err = CreateArray(ctx, st, "arr", []int{2}, Uint8, WithChunkShape(2))
	require.NoError(t, err)
	_, err = OpenGroup(ctx, st, "arr")
	require.ErrorIs(t, err, ErrNotGroup)
}
