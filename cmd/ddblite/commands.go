package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/ddbstore"
	"github.com/ddblite/ddblite/filter"
	"github.com/ddblite/ddblite/schema"
	"github.com/ddblite/ddblite/table"
)

var errNotFound = errors.New("not found")

func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Printf("ddblite %s - %s\n\nFlags:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func runTables(args []string) error {
	fs := newFlagSet("tables", "List tables. Usage: ddblite tables [-v]")
	sf := addStoreFlags(fs)
	verbose := fs.Bool("v", false, "print the schema of each table as JSON")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	db, _, err := sf.open()
	if err != nil {
		return err
	}
	defer db.Close()

	enc := json.NewEncoder(os.Stdout)
	for _, name := range db.ListTables() {
		if !*verbose {
			fmt.Println(name)
			continue
		}
		tbl, err := db.Table(name)
		if err != nil {
			return err
		}
		if err := enc.Encode(schema.FromTableSchema(tbl.Schema())); err != nil {
			return err
		}
	}
	return nil
}

func runCreate(args []string) error {
	fs := newFlagSet("create", "Create the tables declared in schema files. Usage: ddblite create [-schemas glob]")
	sf := addStoreFlags(fs)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	db, cfg, err := sf.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Schemas == "" {
		return fmt.Errorf("no schema files: set -schemas or schemas in %s", configFileName)
	}
	schemas, err := schema.Load(cfg.Schemas)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, s := range schemas {
		if db.TableExists(s.Name) {
			slog.Info("table exists, skipping", "table", s.Name)
			continue
		}
		if _, err := db.CreateTable(ctx, s); err != nil {
			return err
		}
		fmt.Println(s.Name)
	}
	return nil
}

func openTable(sf *storeFlags, name string) (*ddbstore.DB, *ddbstore.Table, error) {
	db, _, err := sf.open()
	if err != nil {
		return nil, nil, err
	}
	tbl, err := db.Table(name)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, tbl, nil
}

func runPut(args []string) error {
	fs := newFlagSet("put", "Write a record. Usage: ddblite put <table> '<json>'")
	sf := addStoreFlags(fs)
	old := fs.Bool("old", false, "print the replaced record")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		fs.Usage()
		return fmt.Errorf("expected <table> and <json>")
	}

	db, tbl, err := openTable(sf, pos[0])
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := recordFromJSON(tbl.Schema(), []byte(pos[1]))
	if err != nil {
		return err
	}
	prev, err := tbl.Put(context.Background(), rec)
	if err != nil {
		return err
	}
	if *old && prev != nil {
		return writeRecord(os.Stdout, prev)
	}
	return nil
}

func runGet(args []string) error {
	fs := newFlagSet("get", "Read a record. Usage: ddblite get <table> <hash> [range]")
	sf := addStoreFlags(fs)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) < 2 {
		fs.Usage()
		return fmt.Errorf("expected <table> and a key")
	}

	db, tbl, err := openTable(sf, pos[0])
	if err != nil {
		return err
	}
	defer db.Close()

	key, err := parseKey(tbl.Schema(), pos[1:])
	if err != nil {
		return err
	}
	rec, err := tbl.Get(context.Background(), key)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%s %s: %w", tbl.Name(), key, errNotFound)
	}
	return writeRecord(os.Stdout, rec)
}

func runDelete(args []string) error {
	fs := newFlagSet("delete", "Delete a record. Usage: ddblite delete <table> <hash> [range]")
	sf := addStoreFlags(fs)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) < 2 {
		fs.Usage()
		return fmt.Errorf("expected <table> and a key")
	}

	db, tbl, err := openTable(sf, pos[0])
	if err != nil {
		return err
	}
	defer db.Close()

	key, err := parseKey(tbl.Schema(), pos[1:])
	if err != nil {
		return err
	}
	rec, err := tbl.Delete(context.Background(), key)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%s %s: %w", tbl.Name(), key, errNotFound)
	}
	return writeRecord(os.Stdout, rec)
}

func runQuery(args []string) error {
	fs := newFlagSet("query", "Query a table or index. Usage: ddblite query <table> -hash <value> [flags]")
	sf := addStoreFlags(fs)
	var (
		index  = fs.String("index", "", "secondary index to query (default: the table)")
		hash   = fs.String("hash", "", "hash key value")
		op     = fs.String("op", "", "range key operator: eq, lt, le, gt, ge, between, begins_with")
		value  = fs.String("value", "", "range key operand")
		value2 = fs.String("value2", "", "upper bound for between")
		expr   = fs.String("filter", "", "CEL filter expression over the record fields")
		desc   = fs.Bool("desc", false, "descending range key order")
		limit  = fs.Int("limit", 0, "maximum number of records")
	)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		fs.Usage()
		return fmt.Errorf("expected <table>")
	}

	db, tbl, err := openTable(sf, pos[0])
	if err != nil {
		return err
	}
	defer db.Close()
	s := tbl.Schema()

	hashKey, rangeKey := s.HashKey, s.RangeKey
	if *index != "" {
		idx, ok := s.Index(*index)
		if !ok {
			return fmt.Errorf("%w: %s", ddbstore.ErrIndexNotFound, *index)
		}
		hashKey, rangeKey = idx.HashKey, idx.RangeKey
	}

	q := ddbstore.Query{Index: *index, Descending: *desc, Limit: *limit}
	hf, _ := s.Field(hashKey)
	if q.Hash, err = parseValue(hf, *hash); err != nil {
		return err
	}
	if *op != "" {
		if rangeKey == "" {
			return fmt.Errorf("-op given but %s has no range key", pos[0])
		}
		rf, _ := s.Field(rangeKey)
		if q.Range, err = rangeCondition(rf, *op, *value, *value2); err != nil {
			return err
		}
	}
	if *expr != "" {
		if q.Filter, err = filter.CEL(s, *expr); err != nil {
			return err
		}
	}

	seq, err := tbl.Query(context.Background(), q)
	if err != nil {
		return err
	}
	if err := writeAll(seq); err != nil {
		return err
	}
	logStats(slog.Default(), db)
	return nil
}

func runScan(args []string) error {
	fs := newFlagSet("scan", "Read every record of a table. Usage: ddblite scan <table> [-filter expr]")
	sf := addStoreFlags(fs)
	expr := fs.String("filter", "", "CEL filter expression over the record fields")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		fs.Usage()
		return fmt.Errorf("expected <table>")
	}

	db, tbl, err := openTable(sf, pos[0])
	if err != nil {
		return err
	}
	defer db.Close()

	var keep func(codec.Record) bool
	if *expr != "" {
		if keep, err = filter.CEL(tbl.Schema(), *expr); err != nil {
			return err
		}
	}
	return writeAll(tbl.Scan(context.Background(), keep))
}

func writeAll(seq func(func(codec.Record, error) bool)) error {
	for rec, err := range seq {
		if err != nil {
			return err
		}
		if err := writeRecord(os.Stdout, rec); err != nil {
			return err
		}
	}
	return nil
}

// rangeCondition builds the condition named by op on range key field f.
func rangeCondition(f table.FieldDef, op, value, value2 string) (ddbstore.RangeCondition, error) {
	if op == "begins_with" {
		return ddbstore.BeginsWith(value), nil
	}
	v, err := parseValue(f, value)
	if err != nil {
		return ddbstore.RangeCondition{}, err
	}
	switch op {
	case "eq", "=":
		return ddbstore.Equal(v), nil
	case "lt", "<":
		return ddbstore.LessThan(v), nil
	case "le", "<=":
		return ddbstore.LessOrEqual(v), nil
	case "gt", ">":
		return ddbstore.GreaterThan(v), nil
	case "ge", ">=":
		return ddbstore.GreaterOrEqual(v), nil
	case "between":
		v2, err := parseValue(f, value2)
		if err != nil {
			return ddbstore.RangeCondition{}, err
		}
		return ddbstore.Between(v, v2), nil
	}
	return ddbstore.RangeCondition{}, fmt.Errorf("unknown range operator %q", op)
}
