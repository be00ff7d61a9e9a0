package codec

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddblite/ddblite/table"
)

var employees = table.TableSchema{
	Name:    "employees",
	HashKey: "employee_no",
	Fields: []table.FieldDef{
		{Name: "employee_no", Kind: table.KindNumber},
		{Name: "name", Kind: table.KindText},
		{Name: "joined_on", Kind: table.KindTimestamp, Nullable: true},
		{Name: "is_byod", Kind: table.KindBool, Default: false},
		{Name: "role", Kind: table.KindEnum, Nullable: true, Enum: map[string]string{"MEMBER": "1", "MANAGER": "2"}},
	},
}

type role string

func TestEncode(t *testing.T) {
	t.Run("all kinds", func(t *testing.T) {
		row, err := Encode(Record{
			"employee_no": 19079,
			"name":        "t3yamoto",
			"joined_on":   time.Date(2020, 1, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600)),
			"is_byod":     true,
			"role":        "MEMBER",
		}, employees)
		require.NoError(t, err)
		assert.Equal(t, StorageRow{
			"employee_no": &types.AttributeValueMemberN{Value: "19079"},
			"name":        &types.AttributeValueMemberS{Value: "t3yamoto"},
			"joined_on":   &types.AttributeValueMemberS{Value: "2020-01-01T00:00:00.000000+0000"},
			"is_byod":     &types.AttributeValueMemberBOOL{Value: true},
			"role":        &types.AttributeValueMemberS{Value: "1"},
		}, row)
	})

	t.Run("defaults and nulls", func(t *testing.T) {
		row, err := Encode(Record{"employee_no": 1, "name": "taro", "joined_on": nil}, employees)
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberBOOL{Value: false}, row["is_byod"])
		assert.NotContains(t, row, "joined_on")
		assert.NotContains(t, row, "role")
	})

	t.Run("lenient input types", func(t *testing.T) {
		row, err := Encode(Record{"employee_no": uint16(7), "name": "jiro", "role": role("MANAGER")}, employees)
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, row["employee_no"])
		assert.Equal(t, &types.AttributeValueMemberS{Value: "2"}, row["role"])
	})

	errorCases := []struct {
		name  string
		rec   Record
		want  error
		field string
	}{
		{"bool for timestamp", Record{"employee_no": 1, "name": "a", "joined_on": true}, ErrTypeMismatch, "joined_on"},
		{"string for number", Record{"employee_no": "1", "name": "a"}, ErrTypeMismatch, "employee_no"},
		{"nan number", Record{"employee_no": nanValue(), "name": "a"}, ErrTypeMismatch, "employee_no"},
		{"number for bool", Record{"employee_no": 1, "name": "a", "is_byod": 1}, ErrTypeMismatch, "is_byod"},
		{"year after 9999", Record{"employee_no": 1, "name": "a", "joined_on": time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)}, ErrTypeMismatch, "joined_on"},
		{"negative year", Record{"employee_no": 1, "name": "a", "joined_on": time.Date(-1, 12, 31, 0, 0, 0, 0, time.UTC)}, ErrTypeMismatch, "joined_on"},
		{"year after 9999 in UTC", Record{"employee_no": 1, "name": "a", "joined_on": time.Date(9999, 12, 31, 23, 0, 0, 0, time.FixedZone("W", -2*3600))}, ErrTypeMismatch, "joined_on"},
		{"enum value without mapping", Record{"employee_no": 1, "name": "a", "role": "CEO"}, ErrTypeMismatch, "role"},
		{"missing required", Record{"employee_no": 1}, ErrMissingRequiredField, "name"},
		{"undeclared field", Record{"employee_no": 1, "name": "a", "department": "AS"}, ErrUnknownField, "department"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Encode(tc.rec, employees)
			require.ErrorIs(t, err, tc.want)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		records := []Record{
			{
				"employee_no": 19079.0,
				"name":        "t3yamoto",
				"joined_on":   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				"is_byod":     true,
				"role":        "MEMBER",
			},
			{"employee_no": -2.5, "name": "", "is_byod": false},
			{"employee_no": 4.0, "name": "shiro", "is_byod": false, "joined_on": time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC)},
			{"employee_no": 5.0, "name": "goro", "is_byod": false, "joined_on": time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)},
			{"employee_no": 3.0, "name": "saburo", "is_byod": false, "joined_on": time.Date(1999, 12, 31, 23, 59, 59, 123456000, time.UTC)},
		}
		for _, rec := range records {
			row, err := Encode(rec, employees)
			require.NoError(t, err)
			got, err := Decode(row, employees)
			require.NoError(t, err)
			assert.Equal(t, rec, got)
		}
	})

	t.Run("timestamps come back in UTC", func(t *testing.T) {
		jst := time.FixedZone("JST", 9*3600)
		row, err := Encode(Record{"employee_no": 1, "name": "a", "joined_on": time.Date(2020, 1, 2, 0, 0, 0, 999, jst)}, employees)
		require.NoError(t, err)
		rec, err := Decode(row, employees)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2020, 1, 1, 15, 0, 0, 0, time.UTC), rec["joined_on"])
	})

	t.Run("unknown enum token", func(t *testing.T) {
		row := StorageRow{
			"employee_no": &types.AttributeValueMemberN{Value: "1"},
			"name":        &types.AttributeValueMemberS{Value: "a"},
			"role":        &types.AttributeValueMemberS{Value: "3"},
		}
		_, err := Decode(row, employees)
		assert.ErrorIs(t, err, ErrUnknownEnumToken)
	})

	t.Run("stored type mismatch", func(t *testing.T) {
		row := StorageRow{
			"employee_no": &types.AttributeValueMemberS{Value: "1"},
			"name":        &types.AttributeValueMemberS{Value: "a"},
		}
		_, err := Decode(row, employees)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("default fills rows written before the field existed", func(t *testing.T) {
		row := StorageRow{
			"employee_no": &types.AttributeValueMemberN{Value: "1"},
			"name":        &types.AttributeValueMemberS{Value: "a"},
		}
		rec, err := Decode(row, employees)
		require.NoError(t, err)
		assert.Equal(t, Record{"employee_no": 1.0, "name": "a", "is_byod": false}, rec)
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := Decode(StorageRow{"employee_no": &types.AttributeValueMemberN{Value: "1"}}, employees)
		assert.ErrorIs(t, err, ErrMissingRequiredField)
	})
}

func TestNormalize(t *testing.T) {
	f, _ := employees.Field("employee_no")
	v, err := Normalize(f, int64(42))
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	assert.Equal(t, 42.0, Number(int8(42)))
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
