// ddblite is a command line client for ddblite stores.
//
// # Installation
//
//	go install github.com/ddblite/ddblite/cmd/ddblite@latest
//
// # Commands
//
//	ddblite tables   List tables
//	ddblite create   Create tables from schema files
//	ddblite put      Write a record
//	ddblite get      Read a record by primary key
//	ddblite delete   Delete a record by primary key
//	ddblite query    Query a table or one of its indexes
//	ddblite scan     Read every record of a table
//	ddblite demo     Run the employees walkthrough on an in-memory store
//
// # Quick Start
//
// Declare tables in YAML schema files and create them:
//
//	ddblite create -db ./data -schemas 'schema/*.yaml'
//
// Then write and query records:
//
//	ddblite put -db ./data employees2 '{"employee_no": 1, "name": "taro", "joined_on": "2020-01-01T00:00:00Z", "department": "AS"}'
//	ddblite query -db ./data employees2 -index sample-gsi -hash AS -op ge -value 2020-01-02 -filter 'is_byod'
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "tables", "ls":
		err = runTables(args)
	case "create":
		err = runCreate(args)
	case "put":
		err = runPut(args)
	case "get":
		err = runGet(args)
	case "delete", "rm":
		err = runDelete(args)
	case "query":
		err = runQuery(args)
	case "scan":
		err = runScan(args)
	case "demo":
		err = runDemo(args)
	case "help", "-h", "--help":
		printUsage()
		return
	case "version", "-v", "--version":
		fmt.Printf("ddblite version %s\n", version)
		return
	default:
		fmt.Fprintf(os.Stderr, "ddblite: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ddblite %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ddblite - embedded record store with secondary indexes

Usage:
  ddblite <command> [flags] [args]

Commands:
  tables   List tables
  create   Create tables from schema files (existing tables are kept)
  put      Write a record given as JSON
  get      Read a record by primary key
  delete   Delete a record by primary key
  query    Query a table or one of its indexes
  scan     Read every record of a table
  demo     Run the employees walkthrough on an in-memory store

Examples:
  ddblite create -db ./data -schemas 'schema/*.yaml'
  ddblite get -db ./data employees2 1
  ddblite query -db ./data employees2 -index sample-gsi -hash AS -op ge -value 2020-01-02

Configuration (optional):
  Create ddblite.yaml for defaults:

    engine: badger          # badger, bolt or memory
    path: ./data            # database directory or file
    schemas: schema/*.yaml  # schema files used by create
    logLevel: info          # debug, info, warn or error

Records are printed as JSON, one per line.
Run 'ddblite <command> -help' for more information on a command.`)
}
