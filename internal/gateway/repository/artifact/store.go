// Package artifact stores generated file bundles outside the record store.
package artifact

import (
	"context"
	"errors"
)

// Store keeps file contents grouped under a prefix.
type Store interface {
	Put(ctx context.Context, prefix, path string, content []byte) error
	Get(ctx context.Context, prefix, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Remove(ctx context.Context, prefix string) error
}

var ErrNotFound = errors.New("artifact not found")
