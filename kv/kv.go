// Package kv provides the ordered, transactional byte-key stores that
// ddbstore lays tables and indexes out in.
package kv

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
)

// ErrKeyNotFound is returned by Reader.Get when the key does not exist.
var ErrKeyNotFound = errors.New("kv: key not found")

// Engine is an ordered key-value store (Badger, Bolt, in-memory, ...).
type Engine interface {
	// Update runs fn in a read-write transaction. Writes become visible
	// together when fn returns nil and are discarded when it returns an error.
	Update(fn func(Txn) error) error
	// View runs fn against a point-in-time snapshot. Views never block writers.
	View(fn func(Reader) error) error
	Close() error
}

// Reader reads a snapshot.
type Reader interface {
	// Get returns a copy of the value stored under key.
	Get(key []byte) ([]byte, error)
	// Range calls fn for every key in r, in key order (descending when
	// r.Reverse), until fn returns false or an error. Key and value are
	// only valid during the call.
	Range(r Range, fn func(key, value []byte) (bool, error)) error
}

// Txn is a read-write transaction.
type Txn interface {
	Reader
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Range selects the keys in [Lower, Upper). A nil bound is open.
type Range struct {
	Lower   []byte
	Upper   []byte
	Reverse bool
}

func (r Range) contains(key []byte) bool {
	if r.Lower != nil && bytes.Compare(key, r.Lower) < 0 {
		return false
	}
	return r.Upper == nil || bytes.Compare(key, r.Upper) < 0
}

// Options selects and configures an engine.
type Options struct {
	// Engine is one of "badger" (default), "bolt" or "memory".
	Engine string
	// Path is the database directory (badger) or file (bolt).
	// An empty path keeps badger in memory; bolt requires one.
	Path string
	// InMemory forces badger into in-memory mode even if Path is set.
	InMemory bool
	// Logger receives engine diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Open opens the engine named in opts.
func Open(opts Options) (Engine, error) {
	switch opts.Engine {
	case "", "badger":
		return OpenBadger(opts)
	case "bolt", "bbolt":
		return OpenBolt(opts)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown engine %q", opts.Engine)
}

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, or nil if there is none.
func PrefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
