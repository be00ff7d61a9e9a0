// Package table describes the shape of stored records: the primary key,
// the declared fields and the secondary indexes maintained on them.
// Schemas are plain values built once and handed to ddbstore.CreateTable.
package table

import (
	"fmt"
	"slices"
)

// TableSchema declares a table. The primary key is HashKey, optionally
// combined with RangeKey. It is immutable once the table is created.
type TableSchema struct {
	Name     string
	HashKey  string
	RangeKey string // empty when the primary key is the hash key alone
	Fields   []FieldDef
	Indexes  []IndexSchema
}

// FieldDef declares one attribute of a record.
type FieldDef struct {
	Name     string
	Kind     Kind
	Nullable bool
	// Default is applied when the field is absent. Must already be in the
	// canonical decoded form for Kind (float64, string, bool, time.Time).
	Default any
	// Enum maps the record-side value to the stored token. Only used with KindEnum.
	Enum map[string]string
}

// Required reports whether a record must carry a value for the field.
func (f FieldDef) Required() bool {
	return !f.Nullable && f.Default == nil
}

// IndexSchema declares a secondary index over two record fields.
type IndexSchema struct {
	Name       string
	HashKey    string
	RangeKey   string // optional
	Projection Projection
}

// ProjectionType selects which fields an index entry carries.
type ProjectionType string

const (
	ProjectAll      ProjectionType = "ALL"
	ProjectKeysOnly ProjectionType = "KEYS_ONLY"
	ProjectInclude  ProjectionType = "INCLUDE"
)

// Projection controls which attributes are copied into index entries.
// The zero value projects everything.
type Projection struct {
	Type    ProjectionType
	Include []string // only for ProjectInclude
}

// IsComplete reports whether entries carry the whole record, so queries
// can skip the lookup in the primary table.
func (p Projection) IsComplete() bool {
	return p.Type == "" || p.Type == ProjectAll
}

// Field returns the definition of the named field.
func (t TableSchema) Field(name string) (FieldDef, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Index returns the definition of the named secondary index.
func (t TableSchema) Index(name string) (IndexSchema, bool) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexSchema{}, false
}

// KeyFields returns the names of the primary key fields in key order.
func (t TableSchema) KeyFields() []string {
	if t.RangeKey == "" {
		return []string{t.HashKey}
	}
	return []string{t.HashKey, t.RangeKey}
}

// ProjectedFields returns the attributes stored in entries of idx: the
// table's key fields, the index key fields and any included fields.
// A nil result means the whole record is projected.
func (t TableSchema) ProjectedFields(idx IndexSchema) []string {
	if idx.Projection.IsComplete() {
		return nil
	}
	fields := t.KeyFields()
	add := func(name string) {
		if name != "" && !slices.Contains(fields, name) {
			fields = append(fields, name)
		}
	}
	add(idx.HashKey)
	add(idx.RangeKey)
	if idx.Projection.Type == ProjectInclude {
		for _, name := range idx.Projection.Include {
			add(name)
		}
	}
	return fields
}

// Key identifies a record by its primary key values, given in record form
// (e.g. a float64 or int for number keys, a time.Time for timestamp keys).
type Key struct {
	Hash  any
	Range any
}

func (k Key) String() string {
	if k.Range == nil {
		return fmt.Sprintf("%v", k.Hash)
	}
	return fmt.Sprintf("%v/%v", k.Hash, k.Range)
}
