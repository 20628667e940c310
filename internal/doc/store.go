package doc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/chartkeep/internal/kv"
)

var (
	// ErrEncode wraps a value that could not be serialized to JSON.
	ErrEncode = errors.New("doc: value is not JSON-serializable")

	// ErrDecode wraps a stored value that does not decode into the
	// requested type.
	ErrDecode = errors.New("doc: stored value does not decode")
)

// Store reads and writes JSON documents.
type Store struct {
	kv kv.Store
}

// New wraps a key space.
func New(s kv.Store) *Store {
	return &Store{kv: s}
}

// Get decodes the value under key into dst. found is false, and dst is left
// as is, when key does not exist.
func (s *Store) Get(ctx context.Context, key string, dst any) (found bool, err error) {
	return s.get(ctx, key, dst, false)
}

// GetExact is Get, except numbers decoded into interface values arrive as
// json.Number instead of float64, so integers beyond 2^53 keep every digit.
func (s *Store) GetExact(ctx context.Context, key string, dst any) (found bool, err error) {
	return s.get(ctx, key, dst, true)
}

func (s *Store) get(ctx context.Context, key string, dst any, exact bool) (bool, error) {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if exact {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		err = dec.Decode(dst)
	} else {
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
	}
	return true, nil
}

// Put serializes v and stores it under key.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	op, err := s.Encode(key, v)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, op.Key, op.Value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.kv.Remove(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix in ascending order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.kv.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s*: %w", prefix, err)
	}
	return keys, nil
}

// Encode serializes v into a put Op for use with Commit.
func (s *Store) Encode(key string, v any) (kv.Op, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return kv.Op{}, fmt.Errorf("%w: %s: %w", ErrEncode, key, err)
	}
	return kv.Put(key, raw), nil
}

// Commit applies ops as one all-or-nothing batch.
func (s *Store) Commit(ctx context.Context, ops ...kv.Op) error {
	if err := s.kv.Apply(ctx, ops); err != nil {
		return fmt.Errorf("commit %d writes: %w", len(ops), err)
	}
	return nil
}

// Close closes the underlying key space.
func (s *Store) Close() error {
	return s.kv.Close()
}
