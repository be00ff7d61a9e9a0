package ddbstore

import (
	"bytes"
	"fmt"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/kv"
	"github.com/ddblite/ddblite/table"
)

type rangeOp int

const (
	opAny rangeOp = iota
	opEqual
	opLess
	opLessOrEqual
	opGreater
	opGreaterOrEqual
	opBetween
	opBeginsWith
)

var rangeOpNames = map[rangeOp]string{
	opAny:            "any",
	opEqual:          "=",
	opLess:           "<",
	opLessOrEqual:    "<=",
	opGreater:        ">",
	opGreaterOrEqual: ">=",
	opBetween:        "between",
	opBeginsWith:     "begins_with",
}

// RangeCondition restricts the range key of a query. The zero value
// matches every range key in the partition.
type RangeCondition struct {
	op     rangeOp
	value  any
	value2 any
}

// Equal matches range keys equal to v.
func Equal(v any) RangeCondition { return RangeCondition{op: opEqual, value: v} }

// LessThan matches range keys below v.
func LessThan(v any) RangeCondition { return RangeCondition{op: opLess, value: v} }

// LessOrEqual matches range keys at or below v.
func LessOrEqual(v any) RangeCondition { return RangeCondition{op: opLessOrEqual, value: v} }

// GreaterThan matches range keys above v.
func GreaterThan(v any) RangeCondition { return RangeCondition{op: opGreater, value: v} }

// GreaterOrEqual matches range keys at or above v.
func GreaterOrEqual(v any) RangeCondition { return RangeCondition{op: opGreaterOrEqual, value: v} }

// Between matches range keys in [lo, hi].
func Between(lo, hi any) RangeCondition {
	return RangeCondition{op: opBetween, value: lo, value2: hi}
}

// BeginsWith matches text range keys starting with prefix. For timestamp
// range keys the prefix applies to the stored form, e.g. "2020-01".
func BeginsWith(prefix string) RangeCondition {
	return RangeCondition{op: opBeginsWith, value: prefix}
}

// IsZero reports whether the condition matches everything.
func (c RangeCondition) IsZero() bool {
	return c.op == opAny
}

func (c RangeCondition) String() string {
	switch c.op {
	case opAny:
		return "any"
	case opBetween:
		return fmt.Sprintf("between %v and %v", c.value, c.value2)
	case opBeginsWith:
		return fmt.Sprintf("begins_with %q", c.value)
	}
	return fmt.Sprintf("%s %v", rangeOpNames[c.op], c.value)
}

// bounds converts the condition into the key range it selects within the
// partition whose keys all start with partition. f is the range key field;
// a zero FieldDef means there is no range key.
//
// Range components are terminated by keySeparator, so for an encoded value
// E the entries equal to it are exactly those in [E+0x00, E+0x01).
func (c RangeCondition) bounds(partition []byte, f table.FieldDef) (kv.Range, error) {
	r := kv.Range{Lower: partition, Upper: kv.PrefixEnd(partition)}
	if c.op == opAny {
		return r, nil
	}
	if f.Name == "" {
		return kv.Range{}, fmt.Errorf("%w: range condition %s without a range key", ErrInvalidQuery, c)
	}

	if c.op == opBeginsWith {
		prefix, err := c.prefix(f)
		if err != nil {
			return kv.Range{}, err
		}
		r.Lower = concat(partition, prefix)
		r.Upper = kv.PrefixEnd(r.Lower)
		return r, nil
	}

	e, err := encodeCondValue(f, c.value)
	if err != nil {
		return kv.Range{}, err
	}
	switch c.op {
	case opEqual:
		r.Lower = concat(partition, e, []byte{0x00})
		r.Upper = concat(partition, e, []byte{0x01})
	case opLess:
		r.Upper = concat(partition, e, []byte{0x00})
	case opLessOrEqual:
		r.Upper = concat(partition, e, []byte{0x01})
	case opGreater:
		r.Lower = concat(partition, e, []byte{0x01})
	case opGreaterOrEqual:
		r.Lower = concat(partition, e, []byte{0x00})
	case opBetween:
		e2, err := encodeCondValue(f, c.value2)
		if err != nil {
			return kv.Range{}, err
		}
		if bytes.Compare(e, e2) > 0 {
			return kv.Range{}, fmt.Errorf("%w: between lower bound %v is above upper bound %v", ErrInvalidQuery, c.value, c.value2)
		}
		r.Lower = concat(partition, e, []byte{0x00})
		r.Upper = concat(partition, e2, []byte{0x01})
	default:
		return kv.Range{}, fmt.Errorf("%w: unknown range operator %d", ErrInvalidQuery, c.op)
	}
	return r, nil
}

func (c RangeCondition) prefix(f table.FieldDef) ([]byte, error) {
	p, ok := c.value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: begins_with needs a string, got %T", ErrInvalidQuery, c.value)
	}
	switch f.Kind {
	case table.KindText, table.KindTimestamp:
	default:
		return nil, fmt.Errorf("%w: begins_with is not supported on %s field %s", ErrInvalidQuery, f.Kind, f.Name)
	}
	return append([]byte{keyTypeString}, escapeBytes([]byte(p))...), nil
}

func encodeCondValue(f table.FieldDef, v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: missing value for %s", ErrInvalidQuery, f.Name)
	}
	av, err := codec.EncodeValue(f, v)
	if err != nil {
		return nil, err
	}
	return encodeKeyValue(av)
}

func concat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
