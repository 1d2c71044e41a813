package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound: the key does not exist in the bucket.
	ErrNotFound = errors.New("not found")
	// ErrDeserialize: the object exists but is not a valid document.
	ErrDeserialize = errors.New("deserialization failed")
)

// Object is one listed blob.
type Object struct {
	Key          string
	LastModified time.Time
}

// Bucket is the blob store the RecordStore is laid out on.
type Bucket interface {
	// List returns every object whose key starts with prefix. Prefixes are
	// directory-like and end with "/".
	List(ctx context.Context, prefix string) ([]Object, error)
	// Get fails with ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
