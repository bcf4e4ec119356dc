// Package kvstore holds the durable key-value backends the inventory store
// serializes its collections into. Every backend writes a batch of keys
// atomically: a reader never sees half of a SaveAll.
package kvstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type Backend interface {
	// Load returns the value stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// SaveAll overwrites every key in entries as one unit.
	SaveAll(ctx context.Context, entries map[string][]byte) error
	Close() error
}
