package ddbstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/table"
)

// Key encoding that supports lexicographic ordering in the engine.
//
// Primary rows: [table][sep][hash][sep][range][sep]
// Index entries: [table][$idx:][index][sep][hash][sep][range][sep][primary hash][sep][primary range][sep]
// Catalog:      [$catalog:][table]
//
// Every key component is terminated by the separator byte (0x00), which
// sorts below any byte an encoded component can start a difference with,
// so a partition is exactly the keys sharing its prefix and range bounds
// can be expressed as plain byte bounds. Absent range components are
// omitted. Table and index names cannot contain '$' or 0x00.

const (
	keySeparator  byte = 0x00
	indexMarker        = "$idx:"
	catalogPrefix      = "$catalog:"
)

// Key type markers for encoding
const (
	keyTypeString byte = 'S'
	keyTypeNumber byte = 'N'
)

func tablePrefix(tableName string) []byte {
	b := make([]byte, 0, len(tableName)+1)
	b = append(b, tableName...)
	return append(b, keySeparator)
}

func indexPrefix(tableName, indexName string) []byte {
	b := make([]byte, 0, len(tableName)+len(indexMarker)+len(indexName)+1)
	b = append(b, tableName...)
	b = append(b, indexMarker...)
	b = append(b, indexName...)
	return append(b, keySeparator)
}

func catalogKey(tableName string) []byte {
	return []byte(catalogPrefix + tableName)
}

// encodePrimaryKey returns the engine key of the row with the given key attributes.
func encodePrimaryKey(s table.TableSchema, row codec.StorageRow) ([]byte, error) {
	suffix, err := primaryKeySuffix(s, row)
	if err != nil {
		return nil, err
	}
	return append(tablePrefix(s.Name), suffix...), nil
}

func primaryKeySuffix(s table.TableSchema, row codec.StorageRow) ([]byte, error) {
	var buf bytes.Buffer
	for _, name := range s.KeyFields() {
		av, ok := row[name]
		if !ok {
			return nil, fmt.Errorf("key attribute %q not found", name)
		}
		if err := writeKeyComponent(&buf, av); err != nil {
			return nil, fmt.Errorf("encode key attribute %q: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// encodeIndexKey returns the key of row's entry in idx. ok is false when the
// row has no value for one of the index key fields and is therefore not
// part of the index.
func encodeIndexKey(s table.TableSchema, idx table.IndexSchema, row codec.StorageRow) (key []byte, ok bool, err error) {
	buf := bytes.NewBuffer(indexPrefix(s.Name, idx.Name))
	for _, name := range []string{idx.HashKey, idx.RangeKey} {
		if name == "" {
			continue
		}
		av, present := row[name]
		if !present {
			return nil, false, nil
		}
		if _, null := av.(*types.AttributeValueMemberNULL); null {
			return nil, false, nil
		}
		if err := writeKeyComponent(buf, av); err != nil {
			return nil, false, fmt.Errorf("encode index attribute %q: %w", name, err)
		}
	}
	// The primary key breaks ties between records sharing hash and range.
	suffix, err := primaryKeySuffix(s, row)
	if err != nil {
		return nil, false, err
	}
	buf.Write(suffix)
	return buf.Bytes(), true, nil
}

func writeKeyComponent(buf *bytes.Buffer, av types.AttributeValue) error {
	b, err := encodeKeyValue(av)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(keySeparator)
	return nil
}

// encodeKeyValue encodes a key value with proper ordering based on its type.
func encodeKeyValue(av types.AttributeValue) ([]byte, error) {
	var buf bytes.Buffer

	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		buf.WriteByte(keyTypeString)
		// Escape null bytes in strings to preserve separator integrity
		buf.Write(escapeBytes([]byte(v.Value)))
	case *types.AttributeValueMemberN:
		buf.WriteByte(keyTypeNumber)
		encoded, err := encodeNumber(v.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	default:
		return nil, fmt.Errorf("unsupported key attribute type %T", av)
	}

	return buf.Bytes(), nil
}

// encodeNumber encodes a number string for lexicographic ordering.
// Uses a scheme that preserves numeric ordering when compared as bytes.
// Format: [sign byte][magnitude bytes]
// Positive numbers: 0x80 + big-endian float64 bits with the sign bit flipped
// Negative numbers: 0x7F + inverted big-endian float64 bits (reverse order)
func encodeNumber(numStr string) ([]byte, error) {
	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", numStr, err)
	}
	if f == 0 {
		f = 0 // -0 and +0 are the same key
	}

	bits := math.Float64bits(f)
	buf := make([]byte, 9)

	if f >= 0 {
		buf[0] = 0x80
		bits ^= (1 << 63)
	} else {
		buf[0] = 0x7F
		bits = ^bits
	}

	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf, nil
}

// escapeBytes escapes null bytes (0x00) in the input to preserve separator integrity.
// Uses 0x01 0x01 for literal 0x00, and 0x01 0x02 for literal 0x01.
func escapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}

// Item serialization for engine values

// storedAttr is a msgpack-friendly form of an AttributeValue.
type storedAttr struct {
	Type string                `msgpack:"t"`
	S    string                `msgpack:"s,omitempty"`
	B    []byte                `msgpack:"b,omitempty"`
	Bool bool                  `msgpack:"o,omitempty"`
	SS   []string              `msgpack:"ss,omitempty"`
	BS   [][]byte              `msgpack:"bs,omitempty"`
	L    []storedAttr          `msgpack:"l,omitempty"`
	M    map[string]storedAttr `msgpack:"m,omitempty"`
}

// serializeRow serializes a storage row to bytes.
func serializeRow(row codec.StorageRow) ([]byte, error) {
	stored := make(map[string]storedAttr, len(row))
	for k, v := range row {
		sa, err := toStored(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		stored[k] = sa
	}
	b, err := msgpack.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	return b, nil
}

// deserializeRow reverses serializeRow.
func deserializeRow(data []byte) (codec.StorageRow, error) {
	var stored map[string]storedAttr
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	row := make(codec.StorageRow, len(stored))
	for k, v := range stored {
		av, err := fromStored(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		row[k] = av
	}
	return row, nil
}

func toStored(av types.AttributeValue) (storedAttr, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return storedAttr{Type: "S", S: v.Value}, nil
	case *types.AttributeValueMemberN:
		return storedAttr{Type: "N", S: v.Value}, nil
	case *types.AttributeValueMemberB:
		return storedAttr{Type: "B", B: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return storedAttr{Type: "BOOL", Bool: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return storedAttr{Type: "NULL", Bool: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return storedAttr{Type: "SS", SS: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return storedAttr{Type: "NS", SS: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return storedAttr{Type: "BS", BS: v.Value}, nil
	case *types.AttributeValueMemberL:
		l := make([]storedAttr, len(v.Value))
		for i, val := range v.Value {
			sa, err := toStored(val)
			if err != nil {
				return storedAttr{}, err
			}
			l[i] = sa
		}
		return storedAttr{Type: "L", L: l}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]storedAttr, len(v.Value))
		for k, val := range v.Value {
			sa, err := toStored(val)
			if err != nil {
				return storedAttr{}, err
			}
			m[k] = sa
		}
		return storedAttr{Type: "M", M: m}, nil
	}
	return storedAttr{}, fmt.Errorf("unsupported attribute value type %T", av)
}

func fromStored(sa storedAttr) (types.AttributeValue, error) {
	switch sa.Type {
	case "S":
		return &types.AttributeValueMemberS{Value: sa.S}, nil
	case "N":
		return &types.AttributeValueMemberN{Value: sa.S}, nil
	case "B":
		return &types.AttributeValueMemberB{Value: sa.B}, nil
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: sa.Bool}, nil
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: sa.Bool}, nil
	case "SS":
		return &types.AttributeValueMemberSS{Value: sa.SS}, nil
	case "NS":
		return &types.AttributeValueMemberNS{Value: sa.SS}, nil
	case "BS":
		return &types.AttributeValueMemberBS{Value: sa.BS}, nil
	case "L":
		l := make([]types.AttributeValue, len(sa.L))
		for i, v := range sa.L {
			av, err := fromStored(v)
			if err != nil {
				return nil, err
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	case "M":
		m := make(map[string]types.AttributeValue, len(sa.M))
		for k, v := range sa.M {
			av, err := fromStored(v)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported stored type %q", sa.Type)
}

// projectRow keeps only the named attributes. A nil list keeps the whole row.
func projectRow(row codec.StorageRow, fields []string) codec.StorageRow {
	if fields == nil {
		return row
	}
	out := make(codec.StorageRow, len(fields))
	for _, name := range fields {
		if av, ok := row[name]; ok {
			out[name] = av
		}
	}
	return out
}
