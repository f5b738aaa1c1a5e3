package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// Badger is a Store implementation backed by BadgerDB v4.
//
// Update maps onto a Badger read-write transaction, which provides
// serializable snapshot isolation: if another transaction commits a write to
// any key this transaction read, the commit fails with ErrConflict.
type Badger struct {
	db   *badger.DB
	opts *Options
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Options is the common kv options (separator, etc.).
	Options *Options

	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk persistence).
	// Useful for testing with a real badger engine.
	InMemory bool

	// Logger sets the badger logger. If nil, badger warnings and errors are
	// forwarded to slog.Default().
	Logger badger.Logger
}

// NewBadger creates a new BadgerDB-backed Store.
func NewBadger(bopts BadgerOptions) (*Badger, error) {
	if !bopts.InMemory && bopts.Dir == "" {
		return nil, errors.New("kv: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(bopts.Dir)
	if bopts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	if bopts.Logger != nil {
		dbOpts = dbOpts.WithLogger(bopts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(slogLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("kv: open badger: %w", err)
	}
	return &Badger{db: db, opts: bopts.Options}, nil
}

func (b *Badger) View(ctx context.Context, fn func(tx Txn) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	return b.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn, opts: b.opts})
	})
}

func (b *Badger) Update(ctx context.Context, fn func(tx Txn) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn, opts: b.opts, writable: true})
	})
	if errors.Is(err, badger.ErrConflict) {
		return ErrConflict
	}
	return err
}

func (b *Badger) Close() error {
	return b.db.Close()
}

type badgerTxn struct {
	txn      *badger.Txn
	opts     *Options
	writable bool
}

func (tx *badgerTxn) Get(key Key) ([]byte, error) {
	item, err := tx.txn.Get(tx.opts.encode(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (tx *badgerTxn) Set(key Key, value []byte) error {
	if !tx.writable {
		return ErrReadOnly
	}
	return tx.txn.Set(tx.opts.encode(key), value)
}

func (tx *badgerTxn) Delete(key Key) error {
	if !tx.writable {
		return ErrReadOnly
	}
	return tx.txn.Delete(tx.opts.encode(key))
}

func (tx *badgerTxn) List(prefix Key) iter.Seq2[Entry, error] {
	p := tx.opts.scanPrefix(prefix)

	return func(yield func(Entry, error) bool) {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = p
		it := tx.txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				if !yield(Entry{}, err) {
					return
				}
				continue
			}
			entry := Entry{
				Key:   tx.opts.decode(item.KeyCopy(nil)),
				Value: val,
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// slogLogger forwards badger warnings and errors to slog, suppressing debug
// and info level messages.
type slogLogger struct{}

func (slogLogger) Errorf(f string, v ...any) {
	slog.Error("badger: " + fmt.Sprintf(f, v...))
}

func (slogLogger) Warningf(f string, v ...any) {
	slog.Warn("badger: " + fmt.Sprintf(f, v...))
}

func (slogLogger) Infof(string, ...any)  {}
func (slogLogger) Debugf(string, ...any) {}

// SilentLogger discards all badger log output.
type SilentLogger struct{}

func (SilentLogger) Errorf(string, ...any)   {}
func (SilentLogger) Warningf(string, ...any) {}
func (SilentLogger) Infof(string, ...any)    {}
func (SilentLogger) Debugf(string, ...any)   {}
