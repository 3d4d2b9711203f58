// Package kv defines the durable key-value table abstraction the ledger is
// persisted through, and the record codec used by byte-oriented backends.
package kv

import "context"

// Table is a durable map from string keys to records, iterated in key order.
type Table[V any] interface {
	// Get returns the record stored under key. The boolean is false when the
	// key is absent.
	Get(ctx context.Context, key string) (V, bool, error)

	// Put inserts or replaces the record stored under key.
	Put(ctx context.Context, key string, value V) error

	// Iterate calls fn for every record in key order until fn returns false.
	Iterate(ctx context.Context, fn func(key string, value V) bool) error

	// Len returns the number of records in the table.
	Len(ctx context.Context) (int, error)
}

// Collect returns every record of t for which keep returns true.
func Collect[V any](ctx context.Context, t Table[V], keep func(V) bool) ([]V, error) {
	var out []V
	err := t.Iterate(ctx, func(_ string, v V) bool {
		if keep(v) {
			out = append(out, v)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Any reports whether some record of t satisfies match. Iteration stops at
// the first hit.
func Any[V any](ctx context.Context, t Table[V], match func(V) bool) (bool, error) {
	found := false
	err := t.Iterate(ctx, func(_ string, v V) bool {
		if match(v) {
			found = true
			return false
		}
		return true
	})
	return found, err
}
