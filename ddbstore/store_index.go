package ddbstore

import (
	"fmt"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/kv"
)

// index writes the entries of row into every index of the table. Rows with
// a null index key field get no entry in that index.
func (t *Table) index(txn kv.Txn, state *tableState, row codec.StorageRow) error {
	s := state.schema
	for _, idx := range s.Indexes {
		key, ok, err := encodeIndexKey(s, idx, row)
		if err != nil {
			return fmt.Errorf("update index %s: %w", idx.Name, err)
		}
		if !ok {
			continue
		}
		value, err := serializeRow(projectRow(row, s.ProjectedFields(idx)))
		if err != nil {
			return fmt.Errorf("update index %s: %w", idx.Name, err)
		}
		if err := txn.Set(key, value); err != nil {
			return fmt.Errorf("update index %s: %w", idx.Name, err)
		}
		if hook := t.db.hooks.afterIndexWrite; hook != nil {
			if err := hook(idx.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// unindex removes the entries of row from every index of the table. Entries
// that were never written are ignored.
func (t *Table) unindex(txn kv.Txn, state *tableState, row codec.StorageRow) error {
	s := state.schema
	for _, idx := range s.Indexes {
		key, ok, err := encodeIndexKey(s, idx, row)
		if err != nil {
			return fmt.Errorf("clean index %s: %w", idx.Name, err)
		}
		if !ok {
			continue
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("clean index %s: %w", idx.Name, err)
		}
	}
	return nil
}
