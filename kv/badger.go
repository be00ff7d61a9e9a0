package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

type badgerEngine struct {
	db *badger.DB
}

// OpenBadger opens a BadgerDB-backed engine. Without a path (or with
// InMemory set) the database lives in memory only.
func OpenBadger(opts Options) (Engine, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(slogBadgerLogger{opts.Logger})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &badgerEngine{db: db}, nil
}

func (e *badgerEngine) Update(fn func(Txn) error) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return fn(badgerTxn{txn})
	})
}

func (e *badgerEngine) View(fn func(Reader) error) error {
	return e.db.View(func(txn *badger.Txn) error {
		return fn(badgerTxn{txn})
	})
}

func (e *badgerEngine) Close() error {
	return e.db.Close()
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t badgerTxn) Set(key, value []byte) error {
	return t.txn.Set(bytes.Clone(key), bytes.Clone(value))
}

func (t badgerTxn) Delete(key []byte) error {
	return t.txn.Delete(bytes.Clone(key))
}

func (t badgerTxn) Range(r Range, fn func(key, value []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = r.Reverse
	opts.PrefetchValues = false

	it := t.txn.NewIterator(opts)
	defer it.Close()

	switch {
	case !r.Reverse && r.Lower != nil:
		it.Seek(r.Lower)
	case r.Reverse && r.Upper != nil:
		// Reverse seek lands on the largest key <= Upper; Upper itself is excluded below.
		it.Seek(r.Upper)
	default:
		it.Rewind()
	}

	for ; it.Valid(); it.Next() {
		item := it.Item()
		key := item.Key()
		if !r.contains(key) {
			if r.Reverse && r.Upper != nil && bytes.Compare(key, r.Upper) >= 0 {
				continue
			}
			return nil
		}
		var cont bool
		err := item.Value(func(val []byte) error {
			var err error
			cont, err = fn(key, val)
			return err
		})
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// slogBadgerLogger routes badger's printf-style logging into slog.
type slogBadgerLogger struct {
	l *slog.Logger
}

func (b slogBadgerLogger) logf(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !b.l.Enabled(ctx, level) {
		return
	}
	b.l.Log(ctx, level, fmt.Sprintf(format, args...), "component", "badger")
}

func (b slogBadgerLogger) Errorf(format string, args ...interface{}) {
	b.logf(slog.LevelError, format, args...)
}

func (b slogBadgerLogger) Warningf(format string, args ...interface{}) {
	b.logf(slog.LevelWarn, format, args...)
}

func (b slogBadgerLogger) Infof(format string, args ...interface{}) {
	b.logf(slog.LevelInfo, format, args...)
}

func (b slogBadgerLogger) Debugf(format string, args ...interface{}) {
	b.logf(slog.LevelDebug, format, args...)
}
