package settings

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("setting not found")

// Repo is a key-value settings store keyed by (namespace, key).
type Repo interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Put(ctx context.Context, namespace, key, value string) error
}
