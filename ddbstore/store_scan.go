package ddbstore

import (
	"context"
	"iter"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/kv"
)

// Scan returns every record of the table in primary key order, skipping
// those filter returns false for. A nil filter keeps all.
func (t *Table) Scan(ctx context.Context, filter func(codec.Record) bool) iter.Seq2[codec.Record, error] {
	state, err := t.live()
	if err != nil {
		return func(yield func(codec.Record, error) bool) {
			yield(nil, err)
		}
	}
	prefix := tablePrefix(state.schema.Name)
	bounds := kv.Range{Lower: prefix, Upper: kv.PrefixEnd(prefix)}
	return t.iterate(ctx, state, nil, bounds, filter, 0)
}
