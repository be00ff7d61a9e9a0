package ddbstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/ddblite/ddblite/kv"
	"github.com/ddblite/ddblite/table"
)

// Table is a handle to one table of a DB. Handles stay valid until the
// table is deleted.
type Table struct {
	db    *DB
	state *tableState
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.state.schema.Name
}

// Schema returns the schema the table was created with.
func (t *Table) Schema() table.TableSchema {
	return t.state.schema
}

// live returns the table's state if the handle still refers to an existing table.
func (t *Table) live() (*tableState, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	if t.db.tables[t.state.schema.Name] != t.state {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, t.state.schema.Name)
	}
	return t.state, nil
}

// CreateTable validates s and creates an empty table with its indexes.
func (db *DB) CreateTable(ctx context.Context, s table.TableSchema) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	entry, err := encodeCatalogEntry(s)
	if err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tables[s.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTableAlreadyExists, s.Name)
	}
	// Clear keys a previously interrupted DeleteTable may have left behind.
	if removed, err := db.purge(tableKeyPrefixes(s)); err != nil {
		return nil, fmt.Errorf("create table %s: %w", s.Name, err)
	} else if removed > 0 {
		db.logger.Warn("removed leftover keys", "table", s.Name, "keys", removed)
	}
	// Index entries live in their own key ranges, which exist as soon as the
	// schema naming them is stored.
	err = db.engine.Update(func(txn kv.Txn) error {
		return txn.Set(catalogKey(s.Name), entry)
	})
	if err != nil {
		return nil, fmt.Errorf("create table %s: %w", s.Name, err)
	}

	state := &tableState{schema: s}
	db.tables[s.Name] = state
	db.logger.Info("created table", "table", s.Name, "indexes", len(s.Indexes))
	return &Table{db: db, state: state}, nil
}

// TableExists reports whether a table with the given name exists.
func (db *DB) TableExists(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.tables[name]
	return ok
}

// Table returns a handle to an existing table.
func (db *DB) Table(name string) (*Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	state, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return &Table{db: db, state: state}, nil
}

// ListTables returns the names of all tables in sorted order.
func (db *DB) ListTables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DeleteTable removes a table with all its records and index entries.
func (db *DB) DeleteTable(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	state, ok := db.tables[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	state.writeMu.Lock()
	defer state.writeMu.Unlock()

	// The catalog entry goes first so an interrupted purge leaves only
	// unreachable keys, which CreateTable clears before reusing the name.
	err := db.engine.Update(func(txn kv.Txn) error {
		return txn.Delete(catalogKey(name))
	})
	if err != nil {
		return fmt.Errorf("delete table %s: %w", name, err)
	}
	state.dropped = true
	delete(db.tables, name)

	removed, err := db.purge(tableKeyPrefixes(state.schema))
	if err != nil {
		return fmt.Errorf("delete table %s: %w", name, err)
	}
	db.logger.Info("deleted table", "table", name, "keys", removed)
	return nil
}

// deleteBatchSize bounds the number of keys removed per engine transaction,
// keeping large tables below badger's transaction size limit.
var deleteBatchSize = 10_000

func tableKeyPrefixes(s table.TableSchema) [][]byte {
	prefixes := [][]byte{tablePrefix(s.Name)}
	for _, idx := range s.Indexes {
		prefixes = append(prefixes, indexPrefix(s.Name, idx.Name))
	}
	return prefixes
}

// purge deletes every key under prefixes, deleteBatchSize keys per transaction.
func (db *DB) purge(prefixes [][]byte) (int, error) {
	var removed int
	for _, prefix := range prefixes {
		for {
			var n int
			err := db.engine.Update(func(txn kv.Txn) error {
				// Collect first; not every engine allows deleting under an open iterator.
				var keys [][]byte
				err := txn.Range(kv.Range{Lower: prefix, Upper: kv.PrefixEnd(prefix)}, func(k, _ []byte) (bool, error) {
					keys = append(keys, slices.Clone(k))
					return len(keys) < deleteBatchSize, nil
				})
				if err != nil {
					return err
				}
				for _, k := range keys {
					if err := txn.Delete(k); err != nil {
						return err
					}
				}
				n = len(keys)
				return nil
			})
			if err != nil {
				return removed, err
			}
			removed += n
			if n < deleteBatchSize {
				break
			}
		}
	}
	return removed, nil
}
