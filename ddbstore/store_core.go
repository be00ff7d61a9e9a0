// Package ddbstore stores records of declared tables in an ordered
// key-value engine, maintains their secondary indexes and answers range
// queries over either.
package ddbstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/kv"
	"github.com/ddblite/ddblite/table"
)

var (
	ErrTableAlreadyExists = errors.New("table already exists")
	ErrTableNotFound      = errors.New("table not found")
	ErrIndexNotFound      = errors.New("index not found")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrInvalidKey         = errors.New("invalid key")
)

// DB is an embedded store holding any number of tables.
// It provides atomic single-record writes and snapshot reads.
type DB struct {
	engine kv.Engine
	logger *slog.Logger
	stats  stats
	hooks  hooks

	mu     sync.RWMutex // guards tables; held exclusively to create or delete one
	tables map[string]*tableState
}

type tableState struct {
	schema table.TableSchema

	writeMu sync.Mutex // serializes Put and Delete
	dropped bool       // set under writeMu by DeleteTable
}

// hooks lets tests inject faults into the write path.
type hooks struct {
	afterIndexWrite func(index string) error
}

// Options configures the store.
type Options struct {
	// Engine selects the storage engine: "badger" (default), "bolt" or "memory".
	Engine string
	// Path to the database directory (badger) or file (bolt). If empty, badger uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for the store and its engine. If nil, logging is disabled.
	Logger *slog.Logger
}

// Open opens the store and loads the schemas of existing tables.
func Open(opts Options) (*DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	engine, err := kv.Open(kv.Options{
		Engine:   opts.Engine,
		Path:     opts.Path,
		InMemory: opts.InMemory,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	db := &DB{
		engine: engine,
		logger: logger,
		tables: make(map[string]*tableState),
	}
	if err := db.loadCatalog(); err != nil {
		engine.Close()
		return nil, err
	}
	logger.Debug("opened store", "engine", opts.Engine, "path", opts.Path, "tables", len(db.tables))
	return db, nil
}

// Close closes the underlying engine.
func (db *DB) Close() error {
	return db.engine.Close()
}

// catalogEntry is the persisted description of a table.
type catalogEntry struct {
	Version int               `msgpack:"v"`
	Schema  table.TableSchema `msgpack:"s"`
}

const catalogVersion = 1

func encodeCatalogEntry(s table.TableSchema) ([]byte, error) {
	b, err := msgpack.Marshal(catalogEntry{Version: catalogVersion, Schema: s})
	if err != nil {
		return nil, fmt.Errorf("encode schema of %s: %w", s.Name, err)
	}
	return b, nil
}

func decodeCatalogEntry(b []byte) (table.TableSchema, error) {
	var entry catalogEntry
	if err := msgpack.Unmarshal(b, &entry); err != nil {
		return table.TableSchema{}, fmt.Errorf("decode schema: %w", err)
	}
	if entry.Version != catalogVersion {
		return table.TableSchema{}, fmt.Errorf("unsupported catalog version %d", entry.Version)
	}
	s := entry.Schema
	// Defaults come back from msgpack in its own representation.
	for i, f := range s.Fields {
		if f.Default == nil {
			continue
		}
		v, err := codec.Normalize(f, f.Default)
		if err != nil {
			return table.TableSchema{}, fmt.Errorf("default of %s.%s: %w", s.Name, f.Name, err)
		}
		s.Fields[i].Default = v
	}
	return s, nil
}

func (db *DB) loadCatalog() error {
	prefix := []byte(catalogPrefix)
	return db.engine.View(func(r kv.Reader) error {
		return r.Range(kv.Range{Lower: prefix, Upper: kv.PrefixEnd(prefix)}, func(k, v []byte) (bool, error) {
			s, err := decodeCatalogEntry(v)
			if err != nil {
				return false, fmt.Errorf("catalog entry %q: %w", k, err)
			}
			db.tables[s.Name] = &tableState{schema: s}
			return true, nil
		})
	})
}

// Stats returns a snapshot of the store's counters.
func (db *DB) Stats() Stats {
	return db.stats.snapshot()
}
