package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/table"
)

var employees = table.TableSchema{
	Name:    "employees2",
	HashKey: "employee_no",
	Fields: []table.FieldDef{
		{Name: "employee_no", Kind: table.KindNumber},
		{Name: "name", Kind: table.KindText},
		{Name: "joined_on", Kind: table.KindTimestamp},
		{Name: "is_byod", Kind: table.KindBool, Default: false},
		{Name: "department", Kind: table.KindText, Nullable: true},
		{Name: "role", Kind: table.KindEnum, Nullable: true, Enum: map[string]string{"MEMBER": "1", "MANAGER": "2"}},
		{Name: "cost-center", Kind: table.KindText, Nullable: true},
	},
}

func record() codec.Record {
	return codec.Record{
		"employee_no": 4.0,
		"name":        "Ada",
		"joined_on":   time.Date(2020, time.January, 4, 0, 0, 0, 0, time.UTC),
		"is_byod":     true,
		"department":  "AS",
		"role":        "MANAGER",
		"cost-center": "cc-7",
	}
}

func TestCombinators(t *testing.T) {
	rec := record()
	tests := []struct {
		name string
		f    Func
		want bool
	}{
		{"equal number across types", Equal("employee_no", 4), true},
		{"equal text", Equal("department", "AS"), true},
		{"equal named string type", Equal("department", table.Kind("AS")), true},
		{"equal time in other zone", Equal("joined_on", time.Date(2020, time.January, 4, 1, 0, 0, 0, time.FixedZone("CET", 3600))), true},
		{"equal mismatch", Equal("department", "CI"), false},
		{"equal missing", Equal("missing", nil), false},
		{"not equal", NotEqual("department", "CI"), true},
		{"not equal on null", NotEqual("missing", "x"), true},
		{"exists", Exists("role"), true},
		{"not exists", NotExists("missing"), true},
		{"and", And(Equal("is_byod", true), Equal("department", "AS")), true},
		{"and short", And(Equal("is_byod", false), Equal("department", "AS")), false},
		{"empty and", And(), true},
		{"or", Or(Equal("department", "CI"), Equal("role", "MANAGER")), true},
		{"empty or", Or(), false},
		{"not", Not(Exists("role")), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.f(rec))
		})
	}
}

func TestCEL(t *testing.T) {
	rec := record()
	tests := []struct {
		expr string
		want bool
	}{
		{`is_byod`, true},
		{`is_byod && department == "AS"`, true},
		{`employee_no > 2`, true},
		{`employee_no >= 4.0 && employee_no < 5.0`, true},
		{`joined_on >= timestamp("2020-01-02T00:00:00Z")`, true},
		{`joined_on < timestamp("2020-01-02T00:00:00Z")`, false},
		{`role == "MANAGER"`, true},
		{`name.startsWith("A")`, true},
		{`record["cost-center"] == "cc-7"`, true},
		{`has(record.department)`, true},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			f, err := CEL(employees, tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, f(rec))
		})
	}

	t.Run("null field evaluates to false", func(t *testing.T) {
		f, err := CEL(employees, `department == "AS"`)
		require.NoError(t, err)
		rec := record()
		delete(rec, "department")
		assert.False(t, f(rec))
		rec["department"] = nil
		assert.False(t, f(rec))
	})

	t.Run("compile errors", func(t *testing.T) {
		for _, expr := range []string{``, `department +`, `unknown_field == 1`, `employee_no + 1`} {
			_, err := CEL(employees, expr)
			assert.Error(t, err, expr)
		}
	})
}
