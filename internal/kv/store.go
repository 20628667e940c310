package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by every operation on a closed Store.
var ErrClosed = errors.New("kv: store closed")

// Store is the key space used by the document layer.
type Store interface {
	// Get returns the value stored under key. found is false when the key
	// does not exist.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every key starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Apply executes ops as a single all-or-nothing batch.
	Apply(ctx context.Context, ops []Op) error

	Close() error
}

// Op is one write inside an Apply batch.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Put returns an Op storing value under key.
func Put(key string, value []byte) Op {
	return Op{Key: key, Value: value}
}

// Delete returns an Op removing key.
func Delete(key string) Op {
	return Op{Key: key, Delete: true}
}
