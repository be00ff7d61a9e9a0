package schema

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddblite/ddblite/table"
)

const employeesYAML = `
table:
  name: employees2
  hashKey: employee_no
  fields:
    - {name: employee_no, kind: number}
    - {name: name, kind: text}
    - {name: joined_on, kind: utcdatetime}
    - {name: is_byod, kind: bool, default: false}
    - {name: department, kind: text, nullable: true}
    - name: role
      kind: enum
      default: MEMBER
      enum: {MEMBER: "1", MANAGER: "2"}
    - {name: review_on, kind: timestamp, default: "2020-01-31T12:00:00+01:00"}
    - {name: level, kind: number, default: 1}
  indexes:
    - {name: sample-gsi, hashKey: department, rangeKey: joined_on}
    - name: by-role
      hashKey: role
      projection: include
      include: [name]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(employeesYAML))
	require.NoError(t, err)

	assert.Equal(t, "employees2", s.Name)
	assert.Equal(t, "employee_no", s.HashKey)
	assert.Empty(t, s.RangeKey)
	require.Len(t, s.Fields, 8)

	joined, _ := s.Field("joined_on")
	assert.Equal(t, table.KindTimestamp, joined.Kind)

	byod, _ := s.Field("is_byod")
	assert.Equal(t, false, byod.Default)

	role, _ := s.Field("role")
	assert.Equal(t, "MEMBER", role.Default)
	assert.Equal(t, map[string]string{"MEMBER": "1", "MANAGER": "2"}, role.Enum)

	review, _ := s.Field("review_on")
	assert.Equal(t, time.Date(2020, time.January, 31, 11, 0, 0, 0, time.UTC), review.Default)

	level, _ := s.Field("level")
	assert.Equal(t, 1.0, level.Default)

	idx, ok := s.Index("by-role")
	require.True(t, ok)
	assert.Equal(t, table.Projection{Type: table.ProjectInclude, Include: []string{"name"}}, idx.Projection)
	gsi, _ := s.Index("sample-gsi")
	assert.True(t, gsi.Projection.IsComplete())
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"malformed":      "table: [",
		"missing name":   "table: {hashKey: id}",
		"unknown kind":   "table: {name: things, hashKey: id, fields: [{name: id, kind: blob}]}",
		"bad default":    "table: {name: things, hashKey: id, fields: [{name: id, kind: text}, {name: n, kind: number, default: abc}]}",
		"bad timestamp":  "table: {name: things, hashKey: id, fields: [{name: id, kind: text}, {name: at, kind: timestamp, default: yesterday}]}",
		"invalid schema": "table: {name: things, hashKey: missing, fields: [{name: id, kind: text}]}",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte(tests["invalid schema"]))
	assert.ErrorIs(t, err, table.ErrInvalidSchema)
}

func TestMarshal_RoundTrip(t *testing.T) {
	s, err := Parse([]byte(employeesYAML))
	require.NoError(t, err)

	data, err := Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2020-01-31T11:00:00Z")

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("employees.yaml", employeesYAML)
	write("events.yaml", `
table:
  name: events
  hashKey: stream
  rangeKey: seq
  fields:
    - {name: stream, kind: text}
    - {name: seq, kind: number}
`)

	schemas, err := Load(filepath.Join(dir, "*.yaml"))
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, "employees2", schemas[0].Name)
	assert.Equal(t, "events", schemas[1].Name)

	t.Run("duplicate table", func(t *testing.T) {
		write("copy.yaml", employeesYAML)
		_, err := Load(filepath.Join(dir, "*.yaml"))
		assert.ErrorContains(t, err, "declared in both")
	})

	t.Run("no match", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "*.json"))
		assert.Error(t, err)
	})
}
