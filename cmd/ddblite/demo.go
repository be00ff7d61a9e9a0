package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/ddbstore"
	"github.com/ddblite/ddblite/filter"
	"github.com/ddblite/ddblite/table"
)

var demoSchema = table.TableSchema{
	Name:    "employees2",
	HashKey: "employee_no",
	Fields: []table.FieldDef{
		{Name: "employee_no", Kind: table.KindNumber},
		{Name: "name", Kind: table.KindText},
		{Name: "joined_on", Kind: table.KindTimestamp},
		{Name: "is_byod", Kind: table.KindBool, Default: false},
		{Name: "department", Kind: table.KindText},
		{Name: "role", Kind: table.KindEnum, Default: "MEMBER", Enum: map[string]string{"MEMBER": "1", "MANAGER": "2"}},
	},
	Indexes: []table.IndexSchema{
		{Name: "sample-gsi", HashKey: "department", RangeKey: "joined_on"},
	},
}

func runDemo(args []string) error {
	fs := newFlagSet("demo", "Create the employees2 table in memory, fill it and query it")
	level := fs.String("log-level", "", "log level: debug, info, warn or error")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	logger, err := configureLogging(*level)
	if err != nil {
		return err
	}

	db, err := ddbstore.Open(ddbstore.Options{Engine: "memory", Logger: logger})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := demo(context.Background(), db, os.Stdout); err != nil {
		return err
	}
	logStats(logger, db)
	return nil
}

func demo(ctx context.Context, db *ddbstore.DB, w io.Writer) error {
	if !db.TableExists(demoSchema.Name) {
		if _, err := db.CreateTable(ctx, demoSchema); err != nil {
			return err
		}
	}
	tbl, err := db.Table(demoSchema.Name)
	if err != nil {
		return err
	}

	joined := func(day int) time.Time {
		return time.Date(2020, time.January, day, 0, 0, 0, 0, time.UTC)
	}
	employees := []codec.Record{
		{"employee_no": codec.Number(1), "name": "taro", "joined_on": joined(1), "department": "AS", "is_byod": true, "role": "MANAGER"},
		{"employee_no": codec.Number(2), "name": "jiro", "joined_on": joined(2), "department": "AS", "is_byod": true},
		{"employee_no": codec.Number(3), "name": "saburo", "joined_on": joined(3), "department": "AS", "is_byod": false},
		{"employee_no": codec.Number(4), "name": "shiro", "joined_on": joined(4), "department": "AS", "is_byod": true},
		{"employee_no": codec.Number(5), "name": "goro", "joined_on": joined(5), "department": "CI"},
	}
	for _, rec := range employees {
		if _, err := tbl.Put(ctx, rec); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "# get employee_no=1")
	rec, err := tbl.Get(ctx, table.Key{Hash: codec.Number(1)})
	if err != nil {
		return err
	}
	if err := writeRecord(w, rec); err != nil {
		return err
	}

	fmt.Fprintln(w, "# query sample-gsi: department=AS, joined_on>=2020-01-02, is_byod=true")
	seq, err := tbl.Query(ctx, ddbstore.Query{
		Index:  "sample-gsi",
		Hash:   "AS",
		Range:  ddbstore.GreaterOrEqual(joined(2)),
		Filter: filter.Equal("is_byod", true),
	})
	if err != nil {
		return err
	}
	for rec, err := range seq {
		if err != nil {
			return err
		}
		if err := writeRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}
