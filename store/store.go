// Package store defines the flat key-value abstraction arrays persist
// through, plus in-memory and filesystem implementations. Keys are
// slash-separated paths; values are opaque byte blobs written whole.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound reports a key with no value. Callers distinguish it from
// transport failures: a missing chunk means fill value, a failed read does
// not.
var ErrNotFound = errors.New("store: key not found")

// Store is a flat byte-blob keyspace. Implementations must be safe for
// concurrent use; Set replaces the whole value atomically and Delete of an
// absent key is a no-op.
type Store interface {
	// Get returns the full value, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetRange returns length bytes starting at off. Implementations whose
	// backend cannot serve ranges read the whole value and slice it.
	GetRange(ctx context.Context, key string, off, length int64) ([]byte, error)

	// Size returns the value's byte length, or ErrNotFound.
	Size(ctx context.Context, key string) (int64, error)

	// Set writes the whole value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix, in unspecified order.
	List(ctx context.Context, prefix string) ([]string, error)

	// SupportsRange reports whether GetRange avoids transferring the whole
	// value. When false, callers may prefer a single Get.
	SupportsRange() bool
}

// transientError marks a failure worth retrying: the operation may succeed
// if repeated, as opposed to a caller mistake or corrupt data.
type transientError struct {
	err error
}

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable by a store
// implementation.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// rangeCheck validates a range request against the value size.
func rangeCheck(key string, size, off, length int64) error {
	if off < 0 || length < 0 || off+length > size {
		return &RangeError{Key: key, Size: size, Off: off, Length: length}
	}
	return nil
}

// RangeError reports a GetRange request outside the value's extent.
type RangeError struct {
	Key    string
	Size   int64
	Off    int64
	Length int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("store: range [%d, %d) outside value of %d bytes for key %s",
		e.Off, e.Off+e.Length, e.Size, e.Key)
}
