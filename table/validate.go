package table

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrInvalidSchema is wrapped by every error returned from Validate.
var ErrInvalidSchema = errors.New("invalid schema")

var nameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,255}$`)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSchema, fmt.Sprintf(format, args...))
}

// Validate checks the schema for consistency. Tables are only created from
// schemas that pass.
func (t TableSchema) Validate() error {
	if !nameRegex.MatchString(t.Name) {
		return invalidf("table name %q must be 3-255 characters of [A-Za-z0-9_.-]", t.Name)
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			return invalidf("table %s: field with empty name", t.Name)
		}
		if seen[f.Name] {
			return invalidf("table %s: duplicate field %q", t.Name, f.Name)
		}
		seen[f.Name] = true
		if err := f.validate(); err != nil {
			return invalidf("table %s: field %q: %v", t.Name, f.Name, err)
		}
	}

	if t.HashKey == "" {
		return invalidf("table %s: hash key is required", t.Name)
	}
	for _, name := range t.KeyFields() {
		f, ok := t.Field(name)
		if !ok {
			return invalidf("table %s: key field %q is not declared", t.Name, name)
		}
		if f.Nullable || f.Default != nil {
			return invalidf("table %s: key field %q must be required", t.Name, name)
		}
		if _, err := f.Kind.KeyKind(); err != nil {
			return invalidf("table %s: key field %q: %v", t.Name, name, err)
		}
	}
	if t.RangeKey == t.HashKey {
		return invalidf("table %s: range key must differ from hash key", t.Name)
	}

	indexNames := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		if !nameRegex.MatchString(idx.Name) {
			return invalidf("table %s: index name %q must be 3-255 characters of [A-Za-z0-9_.-]", t.Name, idx.Name)
		}
		if indexNames[idx.Name] {
			return invalidf("table %s: duplicate index %q", t.Name, idx.Name)
		}
		indexNames[idx.Name] = true
		if err := t.validateIndex(idx); err != nil {
			return invalidf("table %s: index %s: %v", t.Name, idx.Name, err)
		}
	}
	return nil
}

func (t TableSchema) validateIndex(idx IndexSchema) error {
	if idx.HashKey == "" {
		return fmt.Errorf("hash key is required")
	}
	for _, name := range []string{idx.HashKey, idx.RangeKey} {
		if name == "" {
			continue
		}
		f, ok := t.Field(name)
		if !ok {
			return fmt.Errorf("key field %q is not declared on the table", name)
		}
		if _, err := f.Kind.KeyKind(); err != nil {
			return fmt.Errorf("key field %q: %w", name, err)
		}
	}
	if idx.RangeKey == idx.HashKey {
		return fmt.Errorf("range key must differ from hash key")
	}
	switch idx.Projection.Type {
	case "", ProjectAll, ProjectKeysOnly:
		if len(idx.Projection.Include) > 0 {
			return fmt.Errorf("include list requires projection %s", ProjectInclude)
		}
	case ProjectInclude:
		for _, name := range idx.Projection.Include {
			if _, ok := t.Field(name); !ok {
				return fmt.Errorf("projected field %q is not declared on the table", name)
			}
		}
	default:
		return fmt.Errorf("unknown projection %q", idx.Projection.Type)
	}
	return nil
}

func (f FieldDef) validate() error {
	if !f.Kind.valid() {
		return fmt.Errorf("unknown kind %q", f.Kind)
	}
	if f.Kind == KindEnum {
		if len(f.Enum) == 0 {
			return fmt.Errorf("enum field needs a value mapping")
		}
		tokens := make(map[string]string, len(f.Enum))
		for value, token := range f.Enum {
			if other, dup := tokens[token]; dup {
				return fmt.Errorf("values %q and %q share token %q", other, value, token)
			}
			tokens[token] = value
		}
	} else if len(f.Enum) > 0 {
		return fmt.Errorf("value mapping is only allowed on enum fields")
	}
	if f.Default == nil {
		return nil
	}
	ok := false
	switch f.Kind {
	case KindNumber:
		_, ok = f.Default.(float64)
	case KindText:
		_, ok = f.Default.(string)
	case KindBool:
		_, ok = f.Default.(bool)
	case KindTimestamp:
		_, ok = f.Default.(time.Time)
	case KindEnum:
		var s string
		if s, ok = f.Default.(string); ok {
			_, ok = f.Enum[s]
		}
	}
	if !ok {
		return fmt.Errorf("default %v (%T) does not fit kind %s", f.Default, f.Default, f.Kind)
	}
	return nil
}
