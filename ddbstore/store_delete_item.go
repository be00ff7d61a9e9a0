package ddbstore

import (
	"context"
	"fmt"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/kv"
	"github.com/ddblite/ddblite/table"
)

// Delete removes the record with the given primary key together with its
// index entries, and returns it. Deleting a missing record returns nil.
func (t *Table) Delete(ctx context.Context, key table.Key) (codec.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := t.live()
	if err != nil {
		return nil, err
	}
	s := state.schema
	k, err := encodeKey(s, key)
	if err != nil {
		return nil, err
	}

	state.writeMu.Lock()
	defer state.writeMu.Unlock()
	if state.dropped {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, s.Name)
	}

	var prev codec.Record
	err = t.db.engine.Update(func(txn kv.Txn) error {
		oldRow, err := readRow(txn, k)
		if err != nil || oldRow == nil {
			return err
		}
		if prev, err = codec.Decode(oldRow, s); err != nil {
			return fmt.Errorf("decode deleted item: %w", err)
		}
		if err := t.unindex(txn, state, oldRow); err != nil {
			return err
		}
		return txn.Delete(k)
	})
	if err != nil {
		t.db.logger.Debug("delete failed", "table", s.Name, "key", key, "error", err)
		return nil, err
	}

	if prev != nil {
		t.db.stats.deletes.Add(1)
	}
	return prev, nil
}
