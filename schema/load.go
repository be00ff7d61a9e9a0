package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/table"
)

// Load reads every schema file matching the glob pattern and returns the
// validated table schemas sorted by name.
func Load(pattern string) ([]table.TableSchema, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob pattern error: %w", err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no schema files found matching: %s", pattern)
	}

	var schemas []table.TableSchema
	seen := make(map[string]string)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		s, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("table %s declared in both %s and %s", s.Name, prev, path)
		}
		seen[s.Name] = path
		schemas = append(schemas, s)
	}

	slices.SortFunc(schemas, func(a, b table.TableSchema) int {
		return strings.Compare(a.Name, b.Name)
	})
	return schemas, nil
}

// Parse decodes and validates a single schema file.
func Parse(data []byte) (table.TableSchema, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return table.TableSchema{}, err
	}
	if f.Table.Name == "" {
		return table.TableSchema{}, fmt.Errorf("table name is required")
	}

	s, err := f.Table.TableSchema()
	if err != nil {
		return table.TableSchema{}, err
	}
	if err := s.Validate(); err != nil {
		return table.TableSchema{}, err
	}
	return s, nil
}

// Marshal encodes s as a schema file.
func Marshal(s table.TableSchema) ([]byte, error) {
	return yaml.Marshal(File{Table: FromTableSchema(s)})
}

// TableSchema converts the file representation to a runtime schema.
func (t Table) TableSchema() (table.TableSchema, error) {
	s := table.TableSchema{
		Name:     t.Name,
		HashKey:  t.HashKey,
		RangeKey: t.RangeKey,
	}

	for _, f := range t.Fields {
		kind, err := table.ParseKind(f.Kind)
		if err != nil {
			return table.TableSchema{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		def := table.FieldDef{
			Name:     f.Name,
			Kind:     kind,
			Nullable: f.Nullable,
			Enum:     f.Enum,
		}
		if f.Default != nil {
			if def.Default, err = defaultValue(def, f.Default); err != nil {
				return table.TableSchema{}, fmt.Errorf("default of field %s: %w", f.Name, err)
			}
		}
		s.Fields = append(s.Fields, def)
	}

	for _, idx := range t.Indexes {
		def := table.IndexSchema{
			Name:     idx.Name,
			HashKey:  idx.HashKey,
			RangeKey: idx.RangeKey,
			Projection: table.Projection{
				Type:    table.ProjectionType(strings.ToUpper(idx.Projection)),
				Include: idx.Include,
			},
		}
		s.Indexes = append(s.Indexes, def)
	}

	return s, nil
}

// defaultValue converts a YAML scalar to the canonical value of the field.
func defaultValue(f table.FieldDef, v any) (any, error) {
	if f.Kind == table.KindTimestamp {
		switch t := v.(type) {
		case time.Time:
			return codec.NormalizeTime(t), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, err
			}
			return codec.NormalizeTime(parsed), nil
		}
		return nil, fmt.Errorf("expected an RFC 3339 timestamp, got %T", v)
	}
	// Enum defaults name the record-side value.
	return codec.Normalize(f, v)
}

// FromTableSchema converts a runtime schema to its file representation.
func FromTableSchema(s table.TableSchema) Table {
	t := Table{
		Name:     s.Name,
		HashKey:  s.HashKey,
		RangeKey: s.RangeKey,
	}
	for _, f := range s.Fields {
		field := Field{
			Name:     f.Name,
			Kind:     string(f.Kind),
			Nullable: f.Nullable,
			Default:  f.Default,
			Enum:     f.Enum,
		}
		if ts, ok := f.Default.(time.Time); ok {
			field.Default = ts.UTC().Format(time.RFC3339Nano)
		}
		t.Fields = append(t.Fields, field)
	}
	for _, idx := range s.Indexes {
		t.Indexes = append(t.Indexes, Index{
			Name:       idx.Name,
			HashKey:    idx.HashKey,
			RangeKey:   idx.RangeKey,
			Projection: string(idx.Projection.Type),
			Include:    idx.Projection.Include,
		})
	}
	return t
}
