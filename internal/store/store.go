// Package store is the object-store collaborator the orchestrator writes to.
package store

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("store: object not found")

// Store is a flat key/value object store. Keys use '/' separators.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	// DeletePrefix removes every object under prefix and returns how many went.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Location renders key the way operators see it (path or s3:// URI).
	Location(key string) string
}

func cleanKey(key string) string {
	return strings.TrimLeft(key, "/")
}

// errEmptyPrefix guards DeletePrefix against wiping a whole store.
var errEmptyPrefix = errors.New("store: refusing to delete with an empty prefix")
