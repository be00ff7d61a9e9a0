package ddbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/kv"
)

// Put creates or replaces a record and returns the record it replaced, or
// nil if there was none. The row and all of its index entries are written
// in one transaction.
func (t *Table) Put(ctx context.Context, rec codec.Record) (codec.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := t.live()
	if err != nil {
		return nil, err
	}
	s := state.schema

	row, err := codec.Encode(rec, s)
	if err != nil {
		return nil, err
	}
	key, err := encodePrimaryKey(s, row)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	itemBytes, err := serializeRow(row)
	if err != nil {
		return nil, fmt.Errorf("serialize item: %w", err)
	}

	state.writeMu.Lock()
	defer state.writeMu.Unlock()
	if state.dropped {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, s.Name)
	}

	var prev codec.Record
	err = t.db.engine.Update(func(txn kv.Txn) error {
		oldRow, err := readRow(txn, key)
		if err != nil {
			return err
		}
		if oldRow != nil {
			if prev, err = codec.Decode(oldRow, s); err != nil {
				return fmt.Errorf("decode previous item: %w", err)
			}
			if err := t.unindex(txn, state, oldRow); err != nil {
				return err
			}
		}

		// Write the new item to main table
		if err := txn.Set(key, itemBytes); err != nil {
			return err
		}
		return t.index(txn, state, row)
	})
	if err != nil {
		t.db.logger.Debug("put failed", "table", s.Name, "error", err)
		return nil, err
	}

	t.db.stats.puts.Add(1)
	return prev, nil
}

// readRow returns the row stored under key, or nil if there is none.
func readRow(r kv.Reader, key []byte) (codec.StorageRow, error) {
	raw, err := r.Get(key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return deserializeRow(raw)
}
