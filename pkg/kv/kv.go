// Package kv provides a transactional key-value store interface with
// hierarchical path-based keys. Keys are represented as string slices
// (e.g., ["vg", "n", "0190..."]) and encoded internally using a configurable
// separator (default ':').
//
// All access goes through transactions: View for read-only work and Update
// for read-write work. Every write made inside an Update callback becomes
// visible atomically when the callback returns nil, and is discarded when it
// returns an error.
//
// The package includes a BadgerDB-backed implementation for production use and
// an in-memory implementation for testing.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("kv: not found")

	// ErrConflict is returned by Update when the transaction read a key that
	// a concurrently committed transaction modified. The caller may retry
	// the whole transaction.
	ErrConflict = errors.New("kv: transaction conflict")

	// ErrReadOnly is returned when a write is attempted inside View.
	ErrReadOnly = errors.New("kv: read-only transaction")
)

// Key is a hierarchical path represented as a slice of string segments.
// For example, Key{"vg", "n", "abc"} encodes to "vg:n:abc" using the default
// separator ':'.
//
// Segments must not contain the configured separator character.
type Key []string

// String returns the key as a human-readable string using ':' as separator.
// This is for display/debug only; use Options.encode for storage encoding.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// Append returns a new key with segs appended. k itself is never modified.
func (k Key) Append(segs ...string) Key {
	out := make(Key, len(k), len(k)+len(segs))
	copy(out, k)
	return append(out, segs...)
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Txn is a view of the store inside a single transaction. A Txn must not be
// used after the callback that received it has returned.
//
// Reads observe the transaction's own pending writes.
type Txn interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(key Key) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value.
	Set(key Key, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(key Key) error

	// List iterates over all entries whose key starts with the given prefix.
	// The iteration order is lexicographic by encoded key. Only one List
	// iteration may be in progress per transaction.
	List(prefix Key) iter.Seq2[Entry, error]
}

// Store is the interface for a transactional key-value store with path-based
// keys.
type Store interface {
	// View runs fn inside a read-only transaction.
	View(ctx context.Context, fn func(tx Txn) error) error

	// Update runs fn inside a read-write transaction. Writes are committed
	// atomically if fn returns nil and discarded otherwise.
	Update(ctx context.Context, fn func(tx Txn) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Get is a convenience wrapper that reads a single key in its own
// read-only transaction.
func Get(ctx context.Context, s Store, key Key) ([]byte, error) {
	var val []byte
	err := s.View(ctx, func(tx Txn) error {
		v, err := tx.Get(key)
		val = v
		return err
	})
	return val, err
}

// Set is a convenience wrapper that writes a single key in its own
// read-write transaction.
func Set(ctx context.Context, s Store, key Key, value []byte) error {
	return s.Update(ctx, func(tx Txn) error {
		return tx.Set(key, value)
	})
}

// DefaultSeparator is the default separator byte used to encode key segments.
const DefaultSeparator byte = ':'

// Options configures store behavior.
type Options struct {
	// Separator is the byte used to join key segments when encoding to storage.
	// Default is ':' if zero.
	Separator byte
}

// Sep returns the effective separator.
func (o *Options) Sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

// encode converts a Key to its byte representation using the separator.
func (o *Options) encode(k Key) []byte {
	s := o.Sep()
	n := 0
	for i, seg := range k {
		if i > 0 {
			n++
		}
		n += len(seg)
	}
	buf := make([]byte, n)
	pos := 0
	for i, seg := range k {
		if i > 0 {
			buf[pos] = s
			pos++
		}
		pos += copy(buf[pos:], seg)
	}
	return buf
}

// scanPrefix returns the encoded prefix used for List. A separator is
// appended so "a:b" does not match "a:bc"; an empty prefix scans everything.
func (o *Options) scanPrefix(prefix Key) []byte {
	p := o.encode(prefix)
	if len(p) == 0 {
		return nil
	}
	return append(p, o.Sep())
}

// decode converts a byte representation back to a Key using the separator.
func (o *Options) decode(b []byte) Key {
	s := o.Sep()
	k := make(Key, 0, 8)
	start := 0
	for i, c := range b {
		if c == s {
			k = append(k, string(b[start:i]))
			start = i + 1
		}
	}
	return append(k, string(b[start:]))
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
