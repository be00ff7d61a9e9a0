package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/ddbstore"
	"github.com/ddblite/ddblite/table"
)

// storeFlags are the flags every command that opens a store accepts.
type storeFlags struct {
	engine   *string
	path     *string
	schemas  *string
	logLevel *string
}

func addStoreFlags(fs *flag.FlagSet) *storeFlags {
	return &storeFlags{
		engine:   fs.String("engine", "", "storage engine: badger, bolt or memory (default badger)"),
		path:     fs.String("db", "", "database directory (badger) or file (bolt)"),
		schemas:  fs.String("schemas", "", "glob of schema files"),
		logLevel: fs.String("log-level", "", "log level: debug, info, warn or error"),
	}
}

// config merges ddblite.yaml with the flags given on the command line.
func (f *storeFlags) config() (Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return cfg, err
	}
	if *f.engine != "" {
		cfg.Engine = *f.engine
	}
	if *f.path != "" {
		cfg.Path = *f.path
	}
	if *f.schemas != "" {
		cfg.Schemas = *f.schemas
	}
	if *f.logLevel != "" {
		cfg.LogLevel = *f.logLevel
	}
	return cfg, nil
}

// open opens the configured store.
func (f *storeFlags) open() (*ddbstore.DB, Config, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, cfg, err
	}
	logger, err := configureLogging(cfg.LogLevel)
	if err != nil {
		return nil, cfg, err
	}
	if cfg.Path == "" && cfg.Engine != "memory" {
		return nil, cfg, fmt.Errorf("no database path: set -db or path in %s", configFileName)
	}

	db, err := ddbstore.Open(ddbstore.Options{
		Engine: cfg.Engine,
		Path:   cfg.Path,
		Logger: logger,
	})
	if err != nil {
		return nil, cfg, err
	}
	return db, cfg, nil
}

// parseArgs parses flags that may appear before, between or after the
// positional arguments and returns the positional ones. Negative numbers
// are positional unless they are the value of a flag, and everything after
// "--" is positional.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case !strings.HasPrefix(arg, "-") || arg == "-" || isNumber(arg):
			positional = append(positional, arg)
		default:
			flags = append(flags, arg)
			if takesValue(fs, arg) && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		}
	}
	if err := fs.Parse(flags); err != nil {
		return nil, err
	}
	return append(positional, fs.Args()...), nil
}

// takesValue reports whether arg names a defined non-bool flag whose value
// is the next argument.
func takesValue(fs *flag.FlagSet, arg string) bool {
	name := strings.TrimLeft(arg, "-")
	if strings.Contains(name, "=") {
		return false
	}
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return false
	}
	return true
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// writeRecord prints rec as one line of JSON.
func writeRecord(w io.Writer, rec codec.Record) error {
	return json.NewEncoder(w).Encode(rec)
}

// parseValue converts a command line argument to a value of field f.
func parseValue(f table.FieldDef, raw string) (any, error) {
	switch f.Kind {
	case table.KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", f.Name, raw)
		}
		return n, nil
	case table.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a bool", f.Name, raw)
		}
		return b, nil
	case table.KindTimestamp:
		t, err := parseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		return t, nil
	}
	return raw, nil
}

var timeLayouts = []string{time.RFC3339Nano, codec.TimestampLayout, "2006-01-02T15:04:05", "2006-01-02"}

// parseTime accepts RFC 3339, the stored layout and plain dates (as UTC).
func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a timestamp", raw)
}

// recordFromJSON decodes a JSON object into a record of s. Timestamps are
// given as strings.
func recordFromJSON(s table.TableSchema, data []byte) (codec.Record, error) {
	var rec codec.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	for name, v := range rec {
		f, ok := s.Field(name)
		if !ok || f.Kind != table.KindTimestamp {
			continue
		}
		if str, ok := v.(string); ok {
			t, err := parseTime(str)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			rec[name] = t
		}
	}
	return rec, nil
}

// parseKey builds a primary key of s from one or two arguments.
func parseKey(s table.TableSchema, args []string) (table.Key, error) {
	want := len(s.KeyFields())
	if len(args) != want {
		return table.Key{}, fmt.Errorf("table %s needs %d key value(s), got %d", s.Name, want, len(args))
	}
	var key table.Key
	for i, name := range s.KeyFields() {
		f, _ := s.Field(name)
		v, err := parseValue(f, args[i])
		if err != nil {
			return table.Key{}, err
		}
		if i == 0 {
			key.Hash = v
		} else {
			key.Range = v
		}
	}
	return key, nil
}

func logStats(logger *slog.Logger, db *ddbstore.DB) {
	st := db.Stats()
	logger.Debug("store stats", "puts", st.Puts, "deletes", st.Deletes, "queries", st.Queries,
		"resolved", st.Resolved, "primaryLookups", st.PrimaryLookups)
}
