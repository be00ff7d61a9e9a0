package ddbstore

import (
	"context"
	"fmt"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/kv"
	"github.com/ddblite/ddblite/table"
)

// Get returns the record with the given primary key, or nil if there is none.
func (t *Table) Get(ctx context.Context, key table.Key) (codec.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := t.live()
	if err != nil {
		return nil, err
	}
	k, err := encodeKey(state.schema, key)
	if err != nil {
		return nil, err
	}

	var row codec.StorageRow
	err = t.db.engine.View(func(r kv.Reader) error {
		row, err = readRow(r, k)
		return err
	})
	if err != nil || row == nil {
		return nil, err
	}
	return codec.Decode(row, state.schema)
}

// encodeKey converts a primary key given in record form to its engine key.
func encodeKey(s table.TableSchema, key table.Key) ([]byte, error) {
	if key.Hash == nil {
		return nil, fmt.Errorf("%w: missing value for %s", ErrInvalidKey, s.HashKey)
	}
	switch {
	case s.RangeKey != "" && key.Range == nil:
		return nil, fmt.Errorf("%w: missing value for %s", ErrInvalidKey, s.RangeKey)
	case s.RangeKey == "" && key.Range != nil:
		return nil, fmt.Errorf("%w: table %s has no range key", ErrInvalidKey, s.Name)
	}

	row := make(codec.StorageRow, 2)
	values := []any{key.Hash, key.Range}
	for i, name := range s.KeyFields() {
		f, _ := s.Field(name)
		av, err := codec.EncodeValue(f, values[i])
		if err != nil {
			return nil, err
		}
		row[name] = av
	}
	k, err := encodePrimaryKey(s, row)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	return k, nil
}
