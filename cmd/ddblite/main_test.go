package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddblite/ddblite/ddbstore"
	"github.com/ddblite/ddblite/table"
)

func TestLoadConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, configFileName), []byte(`
engine: bolt
path: data/store.bolt
schemas: schema/*.yaml
logLevel: debug
`), 0o644))

	t.Chdir(nested)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	// t.TempDir may sit behind a symlink; compare against the resolved directory.
	dir := filepath.Dir(findConfigFile())
	assert.Equal(t, Config{
		Engine:   "bolt",
		Path:     filepath.Join(dir, "data", "store.bolt"),
		Schemas:  filepath.Join(dir, "schema", "*.yaml"),
		LogLevel: "debug",
	}, cfg)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte("engine: [\n"), 0o644))
	_, err := loadConfigFile(path)
	assert.Error(t, err)
}

func TestParseArgs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	hash := fs.String("hash", "", "")
	desc := fs.Bool("desc", false, "")

	pos, err := parseArgs(fs, []string{"employees2", "-hash", "AS", "extra", "-desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"employees2", "extra"}, pos)
	assert.Equal(t, "AS", *hash)
	assert.True(t, *desc)
}

func TestParseArgs_NegativeNumbers(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	value := fs.String("value", "", "")
	limit := fs.Int("limit", 0, "")
	desc := fs.Bool("desc", false, "")

	pos, err := parseArgs(fs, []string{"events", "s1", "-5", "-value", "-2.5", "-desc", "-limit=-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "s1", "-5"}, pos)
	assert.Equal(t, "-2.5", *value)
	assert.Equal(t, -1, *limit)
	assert.True(t, *desc)

	pos, err = parseArgs(fs, []string{"-desc", "--", "events", "-x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "-x"}, pos)

	_, err = parseArgs(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-unknown"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"", "debug", "INFO", "warn", "error"} {
		_, err := parseLevel(lvl)
		assert.NoError(t, err, lvl)
	}
	_, err := parseLevel("loud")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	v, err := parseValue(table.FieldDef{Name: "n", Kind: table.KindNumber}, "19079")
	require.NoError(t, err)
	assert.Equal(t, 19079.0, v)

	v, err = parseValue(table.FieldDef{Name: "b", Kind: table.KindBool}, "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	day := time.Date(2020, time.January, 2, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2020-01-02", "2020-01-02T00:00:00Z", "2020-01-02T09:00:00+09:00", "2020-01-02T00:00:00.000000+0000"} {
		v, err = parseValue(table.FieldDef{Name: "t", Kind: table.KindTimestamp}, raw)
		require.NoError(t, err, raw)
		assert.True(t, day.Equal(v.(time.Time)), raw)
	}

	_, err = parseValue(table.FieldDef{Name: "n", Kind: table.KindNumber}, "many")
	assert.Error(t, err)
	_, err = parseValue(table.FieldDef{Name: "t", Kind: table.KindTimestamp}, "soon")
	assert.Error(t, err)
}

func TestRecordFromJSON(t *testing.T) {
	rec, err := recordFromJSON(demoSchema, []byte(`{"employee_no": 19079, "name": "t3yamoto", "joined_on": "2020-01-01T00:00:00Z", "is_byod": true}`))
	require.NoError(t, err)
	assert.Equal(t, 19079.0, rec["employee_no"])
	assert.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), rec["joined_on"])

	_, err = recordFromJSON(demoSchema, []byte(`{"joined_on": "yesterday"}`))
	assert.Error(t, err)
	_, err = recordFromJSON(demoSchema, []byte(`[1]`))
	assert.Error(t, err)
}

func TestRangeCondition(t *testing.T) {
	f := table.FieldDef{Name: "joined_on", Kind: table.KindTimestamp}
	for _, op := range []string{"eq", "lt", "le", "gt", "ge", ">=", "begins_with"} {
		c, err := rangeCondition(f, op, "2020-01-02", "")
		require.NoError(t, err, op)
		assert.False(t, c.IsZero(), op)
	}
	_, err := rangeCondition(f, "between", "2020-01-02", "2020-01-04")
	assert.NoError(t, err)
	_, err = rangeCondition(f, "between", "2020-01-02", "")
	assert.Error(t, err)
	_, err = rangeCondition(f, "near", "2020-01-02", "")
	assert.Error(t, err)
}

func TestDemo(t *testing.T) {
	db, err := ddbstore.Open(ddbstore.Options{Engine: "memory"})
	require.NoError(t, err)
	defer db.Close()

	var out bytes.Buffer
	require.NoError(t, demo(context.Background(), db, &out))

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		names = append(names, rec["name"].(string))
	}
	assert.Equal(t, []string{"taro", "jiro", "shiro"}, names)

	// Running it again finds the table and overwrites the same records.
	out.Reset()
	require.NoError(t, demo(context.Background(), db, &out))
	assert.Equal(t, uint64(10), db.Stats().Puts)
}
