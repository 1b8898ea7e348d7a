package zarr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-zarr/store"
)

// Group is a container node. Its children are whatever nodes exist under
// its key prefix; there is no central child registry to keep coherent.
type Group struct {
	store store.Store
	path  string
	meta  *GroupMetadata
	log   *zap.Logger
}

// CreateGroup writes a new group's metadata under path and returns the
// open group.
func CreateGroup(ctx context.Context, st store.Store, path string, opts ...Option) (*Group, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.retry != nil {
		st = store.WithRetry(st, *o.retry)
	}

	meta := &GroupMetadata{Attributes: o.attributes}
	doc, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if err := st.Set(ctx, nodeKey(path, MetadataKey), doc); err != nil {
		return nil, fmt.Errorf("writing group metadata: %w", err)
	}
	o.logger.Debug("created group", zap.String("path", path))
	return &Group{store: st, path: path, meta: meta, log: o.logger}, nil
}

// OpenGroup reads the metadata document at path and returns the open group.
func OpenGroup(ctx context.Context, st store.Store, path string, opts ...Option) (*Group, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.retry != nil {
		st = store.WithRetry(st, *o.retry)
	}

	doc, err := st.Get(ctx, nodeKey(path, MetadataKey))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading group metadata: %w", err)
	}

	meta := &GroupMetadata{}
	if err := json.Unmarshal(doc, meta); err != nil {
		return nil, err
	}
	return &Group{store: st, path: path, meta: meta, log: o.logger}, nil
}

// Path returns the group's node path within the store.
func (g *Group) Path() string { return g.path }

// Attributes returns the group's user attributes.
func (g *Group) Attributes() map[string]any { return g.meta.Attributes }

// Array opens the child array with the given name.
func (g *Group) Array(ctx context.Context, name string, opts ...Option) (*Array, error) {
	return OpenArray(ctx, g.store, nodeKey(g.path, name), opts...)
}

// Group opens the child group with the given name.
func (g *Group) Group(ctx context.Context, name string, opts ...Option) (*Group, error) {
	return OpenGroup(ctx, g.store, nodeKey(g.path, name), opts...)
}

// CreateArray creates a child array with the given name.
func (g *Group) CreateArray(ctx context.Context, name string, shape []int, dt DataType, opts ...Option) (*Array, error) {
	return CreateArray(ctx, g.store, nodeKey(g.path, name), shape, dt, opts...)
}

// CreateGroup creates a child group with the given name.
func (g *Group) CreateGroup(ctx context.Context, name string, opts ...Option) (*Group, error) {
	return CreateGroup(ctx, g.store, nodeKey(g.path, name), opts...)
}

// Child names one direct child node and its kind, "array" or "group".
type Child struct {
	Name     string
	NodeType string
}

// Children discovers the group's direct children by listing the store
// under the group's prefix, sorted by name.
func (g *Group) Children(ctx context.Context) ([]Child, error) {
	prefix := ""
	if g.path != "" {
		prefix = g.path + "/"
	}
	keys, err := g.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}

	var children []Child
	seen := map[string]bool{}
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		name, rest, ok := strings.Cut(rel, "/")
		if !ok || rest != MetadataKey || seen[name] {
			continue
		}
		seen[name] = true

		doc, err := g.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading child %s: %w", name, err)
		}
		nt, err := nodeTypeOf(doc)
		if err != nil {
			return nil, fmt.Errorf("child %s: %w", name, err)
		}
		children = append(children, Child{Name: name, NodeType: nt})
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}
