// Package filter builds the predicates queries apply to resolved records.
package filter

import (
	"reflect"
	"time"

	"github.com/ddblite/ddblite/codec"
)

// Func reports whether a record should be kept.
type Func func(codec.Record) bool

// Equal keeps records whose field equals v. Numbers compare by value
// regardless of Go type, timestamps by instant.
func Equal(field string, v any) Func {
	return func(rec codec.Record) bool {
		got, ok := rec[field]
		return ok && got != nil && equalValues(got, v)
	}
}

// NotEqual keeps records whose field is null or differs from v.
func NotEqual(field string, v any) Func {
	return Not(Equal(field, v))
}

// Exists keeps records with a non-null value for field.
func Exists(field string) Func {
	return func(rec codec.Record) bool {
		return rec[field] != nil
	}
}

// NotExists keeps records where field is null.
func NotExists(field string) Func {
	return Not(Exists(field))
}

// And keeps records every f keeps. With no arguments it keeps everything.
func And(fs ...Func) Func {
	return func(rec codec.Record) bool {
		for _, f := range fs {
			if !f(rec) {
				return false
			}
		}
		return true
	}
}

// Or keeps records any f keeps. With no arguments it keeps nothing.
func Or(fs ...Func) Func {
	return func(rec codec.Record) bool {
		for _, f := range fs {
			if f(rec) {
				return true
			}
		}
		return false
	}
}

// Not keeps the records f rejects.
func Not(f Func) Func {
	return func(rec codec.Record) bool {
		return !f(rec)
	}
}

func equalValues(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.String && vb.Kind() == reflect.String {
		return va.String() == vb.String()
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
