// Package codec converts records to and from their storage representation.
//
// A Record holds plain Go values. Decoded records always use the canonical
// types below, so that Decode(Encode(r)) == r for canonical input:
//
//	number     float64
//	text       string
//	bool       bool
//	timestamp  time.Time, UTC, microsecond precision
//	enum       string (the record-side value, not the stored token)
//
// Encode is more lenient and accepts any Go integer or float kind for
// numbers and any string kind for text and enums. Absent fields and nil
// values are null; null fields are omitted from the storage row.
package codec

import (
	"math"
	"reflect"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/constraints"

	"github.com/ddblite/ddblite/table"
)

// Record maps field names to values.
type Record map[string]any

// StorageRow is the canonical stored form of a record.
type StorageRow map[string]types.AttributeValue

// TimestampLayout is the fixed UTC layout timestamps are stored in. It sorts
// chronologically as a string. Only UTC years 0 through 9999 fit the four
// digit year, so timestamps outside MinTimestampYear..MaxTimestampYear are
// rejected on encode.
const TimestampLayout = "2006-01-02T15:04:05.000000-0700"

const (
	MinTimestampYear = 0
	MaxTimestampYear = 9999
)

// Numeric is satisfied by every Go type accepted for number fields.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// Number converts v to the decoded representation of a number field.
func Number[T Numeric](v T) float64 {
	return float64(v)
}

// NormalizeTime returns t in the representation the codec stores and decodes.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Encode validates rec against s and converts it to a StorageRow, applying
// declared defaults to absent fields.
func Encode(rec Record, s table.TableSchema) (StorageRow, error) {
	for name := range rec {
		if _, ok := s.Field(name); !ok {
			return nil, fieldErrf(name, ErrUnknownField, "not declared on table %s", s.Name)
		}
	}
	row := make(StorageRow, len(s.Fields))
	for _, f := range s.Fields {
		v := rec[f.Name]
		if v == nil {
			switch {
			case f.Default != nil:
				v = f.Default
			case f.Nullable:
				continue
			default:
				return nil, &FieldError{Field: f.Name, Err: ErrMissingRequiredField}
			}
		}
		av, err := EncodeValue(f, v)
		if err != nil {
			return nil, err
		}
		row[f.Name] = av
	}
	return row, nil
}

// Decode converts a stored row back to a Record.
// Stored attributes the schema no longer declares are ignored.
func Decode(row StorageRow, s table.TableSchema) (Record, error) {
	rec := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		av, ok := row[f.Name]
		if _, null := av.(*types.AttributeValueMemberNULL); !ok || null {
			switch {
			case f.Default != nil:
				rec[f.Name] = f.Default
			case f.Nullable:
			default:
				return nil, &FieldError{Field: f.Name, Err: ErrMissingRequiredField}
			}
			continue
		}
		v, err := DecodeValue(f, av)
		if err != nil {
			return nil, err
		}
		rec[f.Name] = v
	}
	return rec, nil
}

// EncodeValue converts a single non-nil value of field f.
func EncodeValue(f table.FieldDef, v any) (types.AttributeValue, error) {
	switch f.Kind {
	case table.KindNumber:
		if !isNumber(v) {
			return nil, mismatch(f, v)
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fieldErrf(f.Name, ErrTypeMismatch, "%v", err)
		}
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return nil, mismatch(f, v)
		}
		return n, nil
	case table.KindText:
		s, ok := stringValue(v)
		if !ok {
			return nil, mismatch(f, v)
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	case table.KindBool:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Bool {
			return nil, mismatch(f, v)
		}
		return &types.AttributeValueMemberBOOL{Value: rv.Bool()}, nil
	case table.KindTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return nil, mismatch(f, v)
		}
		t = NormalizeTime(t)
		if y := t.Year(); y < MinTimestampYear || y > MaxTimestampYear {
			return nil, fieldErrf(f.Name, ErrTypeMismatch, "year %d outside %d-%d", y, MinTimestampYear, MaxTimestampYear)
		}
		return &types.AttributeValueMemberS{Value: t.Format(TimestampLayout)}, nil
	case table.KindEnum:
		s, ok := stringValue(v)
		if !ok {
			return nil, mismatch(f, v)
		}
		token, ok := f.Enum[s]
		if !ok {
			return nil, fieldErrf(f.Name, ErrTypeMismatch, "%q is not a value of the enum", s)
		}
		return &types.AttributeValueMemberS{Value: token}, nil
	}
	return nil, fieldErrf(f.Name, ErrTypeMismatch, "unsupported kind %q", f.Kind)
}

// DecodeValue converts a single stored attribute of field f.
func DecodeValue(f table.FieldDef, av types.AttributeValue) (any, error) {
	switch f.Kind {
	case table.KindNumber:
		if _, ok := av.(*types.AttributeValueMemberN); !ok {
			return nil, storedMismatch(f, av)
		}
		var n float64
		if err := attributevalue.Unmarshal(av, &n); err != nil {
			return nil, fieldErrf(f.Name, ErrTypeMismatch, "%v", err)
		}
		return n, nil
	case table.KindText:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, storedMismatch(f, av)
		}
		return s.Value, nil
	case table.KindBool:
		b, ok := av.(*types.AttributeValueMemberBOOL)
		if !ok {
			return nil, storedMismatch(f, av)
		}
		return b.Value, nil
	case table.KindTimestamp:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, storedMismatch(f, av)
		}
		t, err := time.Parse(TimestampLayout, s.Value)
		if err != nil {
			return nil, fieldErrf(f.Name, ErrTypeMismatch, "stored timestamp %q: %v", s.Value, err)
		}
		return NormalizeTime(t), nil
	case table.KindEnum:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, storedMismatch(f, av)
		}
		for value, token := range f.Enum {
			if token == s.Value {
				return value, nil
			}
		}
		return nil, fieldErrf(f.Name, ErrUnknownEnumToken, "%q", s.Value)
	}
	return nil, fieldErrf(f.Name, ErrTypeMismatch, "unsupported kind %q", f.Kind)
}

// Normalize returns v in the canonical decoded form of field f.
func Normalize(f table.FieldDef, v any) (any, error) {
	av, err := EncodeValue(f, v)
	if err != nil {
		return nil, err
	}
	return DecodeValue(f, av)
}

func isNumber(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return false
}

func stringValue(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

func mismatch(f table.FieldDef, v any) error {
	return fieldErrf(f.Name, ErrTypeMismatch, "%T does not fit kind %s", v, f.Kind)
}

func storedMismatch(f table.FieldDef, av types.AttributeValue) error {
	return fieldErrf(f.Name, ErrTypeMismatch, "stored %T does not fit kind %s", av, f.Kind)
}
