package kvstore

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the backing key-value service could not be
// reached or returned a transport-level error. Read paths treat it as
// "no data"; write paths surface it to the caller.
var ErrUnavailable = errors.New("kv store unavailable")

// Store is a minimal get/set key-value client. Values are opaque serialized
// text; a missing key is reported via the found flag, not an error.
type Store interface {
	// Get returns the raw value for key and whether the key exists.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set overwrites the full value for key. No partial updates.
	Set(ctx context.Context, key, value string) error
	// Ping checks connectivity to the backing service.
	Ping(ctx context.Context) error
	// Name identifies the backend for logs and health output.
	Name() string
	Close() error
}
