package kv

import (
	"bytes"
	"context"
	"iter"
	"sort"
	"sync"
)

// Memory is an in-memory Store implementation backed by a map.
// It is safe for concurrent use and intended primarily for testing.
//
// Update transactions hold an exclusive lock for their whole duration, so
// read-write transactions are fully serialized and never conflict.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	opts *Options
}

// NewMemory creates a new in-memory Store.
// Pass nil for default options.
func NewMemory(opts *Options) *Memory {
	return &Memory{
		data: make(map[string][]byte),
		opts: opts,
	}
}

func (m *Memory) View(ctx context.Context, fn func(tx Txn) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTxn{m: m})
}

func (m *Memory) Update(ctx context.Context, fn func(tx Txn) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTxn{m: m, writable: true, pending: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.pending {
		if v == nil {
			delete(m.data, k)
			continue
		}
		m.data[k] = v
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// memTxn stages writes in pending; a nil value marks a deletion.
type memTxn struct {
	m        *Memory
	writable bool
	pending  map[string][]byte
}

func (tx *memTxn) lookup(k string) ([]byte, bool) {
	if v, ok := tx.pending[k]; ok {
		return v, v != nil
	}
	v, ok := tx.m.data[k]
	return v, ok
}

func (tx *memTxn) Get(key Key) ([]byte, error) {
	v, ok := tx.lookup(string(tx.m.opts.encode(key)))
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (tx *memTxn) Set(key Key, value []byte) error {
	if !tx.writable {
		return ErrReadOnly
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	tx.pending[string(tx.m.opts.encode(key))] = cp
	return nil
}

func (tx *memTxn) Delete(key Key) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.pending[string(tx.m.opts.encode(key))] = nil
	return nil
}

func (tx *memTxn) List(prefix Key) iter.Seq2[Entry, error] {
	p := tx.m.opts.scanPrefix(prefix)

	// Snapshot matching keys; the transaction already holds the lock.
	seen := make(map[string]struct{})
	var keys []string
	collect := func(k string) {
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		if len(p) == 0 || bytes.HasPrefix([]byte(k), p) {
			keys = append(keys, k)
		}
	}
	for k := range tx.pending {
		collect(k)
	}
	for k := range tx.m.data {
		collect(k)
	}
	sort.Strings(keys)

	return func(yield func(Entry, error) bool) {
		for _, k := range keys {
			v, ok := tx.lookup(k)
			if !ok {
				continue
			}
			entry := Entry{
				Key:   tx.m.opts.decode([]byte(k)),
				Value: bytes.Clone(v),
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}
