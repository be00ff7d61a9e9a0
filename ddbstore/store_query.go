package ddbstore

import (
	"context"
	"fmt"
	"iter"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/kv"
	"github.com/ddblite/ddblite/table"
)

// Query selects records of one hash partition of the table or of one of
// its secondary indexes.
type Query struct {
	// Index names the secondary index to query. Empty queries the table itself.
	Index string
	// Hash is the value the hash key must equal.
	Hash any
	// Range restricts the range key. The zero value matches all.
	Range RangeCondition
	// Filter drops records it returns false for. Nil keeps all.
	Filter func(codec.Record) bool
	// Descending reverses the range key order.
	Descending bool
	// Limit caps the number of records yielded. Zero means no limit.
	Limit int
}

// Query returns a lazy sequence of the records matching q, in range key
// order. Errors in q are reported before anything is read. Every
// iteration reads the current state of the table and resolves only the
// entries the consumer asks for.
func (t *Table) Query(ctx context.Context, q Query) (iter.Seq2[codec.Record, error], error) {
	state, err := t.live()
	if err != nil {
		return nil, err
	}
	s := state.schema

	var idx *table.IndexSchema
	hashKey, rangeKey := s.HashKey, s.RangeKey
	prefix := tablePrefix(s.Name)
	if q.Index != "" {
		ix, ok := s.Index(q.Index)
		if !ok {
			return nil, fmt.Errorf("%w: %s on table %s", ErrIndexNotFound, q.Index, s.Name)
		}
		idx = &ix
		hashKey, rangeKey = ix.HashKey, ix.RangeKey
		prefix = indexPrefix(s.Name, ix.Name)
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}

	if q.Hash == nil {
		return nil, fmt.Errorf("%w: missing value for hash key %s", ErrInvalidQuery, hashKey)
	}
	hashField, _ := s.Field(hashKey)
	hashValue, err := encodeCondValue(hashField, q.Hash)
	if err != nil {
		return nil, err
	}
	partition := concat(prefix, hashValue, []byte{keySeparator})

	var rangeField table.FieldDef
	if rangeKey != "" {
		rangeField, _ = s.Field(rangeKey)
	}
	bounds, err := q.Range.bounds(partition, rangeField)
	if err != nil {
		return nil, err
	}
	bounds.Reverse = q.Descending

	t.db.stats.queries.Add(1)
	t.db.logger.Debug("query", "table", s.Name, "index", q.Index, "hash", q.Hash, "range", q.Range)
	return t.iterate(ctx, state, idx, bounds, q.Filter, q.Limit), nil
}

// iterate walks bounds in one snapshot, resolving and decoding each entry
// only when the consumer asks for the next record.
func (t *Table) iterate(ctx context.Context, state *tableState, idx *table.IndexSchema, bounds kv.Range, filter func(codec.Record) bool, limit int) iter.Seq2[codec.Record, error] {
	return func(yield func(codec.Record, error) bool) {
		var yielded int
		stopped := false
		err := t.db.engine.View(func(r kv.Reader) error {
			return r.Range(bounds, func(_, v []byte) (bool, error) {
				if err := ctx.Err(); err != nil {
					return false, err
				}
				rec, err := t.resolve(r, state.schema, idx, v)
				if err != nil {
					return false, err
				}
				if filter != nil && !filter(rec) {
					return true, nil
				}
				yielded++
				if !yield(rec, nil) {
					stopped = true
					return false, nil
				}
				return limit == 0 || yielded < limit, nil
			})
		})
		if err != nil && !stopped {
			t.db.logger.Debug("query failed", "table", state.schema.Name, "error", err)
			yield(nil, err)
		}
	}
}

// resolve turns an entry value into the full record it stands for. Entries
// of indexes that do not project every attribute are looked up in the
// table, inside the same snapshot.
func (t *Table) resolve(r kv.Reader, s table.TableSchema, idx *table.IndexSchema, v []byte) (codec.Record, error) {
	row, err := deserializeRow(v)
	if err != nil {
		return nil, err
	}
	if idx != nil && !idx.Projection.IsComplete() {
		key, err := encodePrimaryKey(s, row)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", idx.Name, err)
		}
		t.db.stats.primaryLookups.Add(1)
		if row, err = readRow(r, key); err != nil {
			return nil, err
		}
		if row == nil {
			return nil, fmt.Errorf("index %s: entry refers to missing item %q", idx.Name, key)
		}
	}
	t.db.stats.resolved.Add(1)
	return codec.Decode(row, s)
}
