// Package schema defines the file format table schemas are declared in.
// A schema file holds one table:
//
//	table:
//	  name: employees2
//	  hashKey: employee_no
//	  fields:
//	    - {name: employee_no, kind: number}
//	    - {name: joined_on, kind: timestamp}
//	    - {name: is_byod, kind: bool, default: false}
//	    - {name: department, kind: text, nullable: true}
//	  indexes:
//	    - {name: sample-gsi, hashKey: department, rangeKey: joined_on}
package schema

// File is the root of a schema file.
type File struct {
	Table Table `yaml:"table" json:"table"`
}

// Table describes a table structure.
type Table struct {
	Name     string  `yaml:"name" json:"name"`
	HashKey  string  `yaml:"hashKey" json:"hashKey"`
	RangeKey string  `yaml:"rangeKey,omitempty" json:"rangeKey,omitempty"`
	Fields   []Field `yaml:"fields" json:"fields"`
	Indexes  []Index `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

// Field describes a record field.
type Field struct {
	Name     string `yaml:"name" json:"name"`
	Kind     string `yaml:"kind" json:"kind"` // "number", "text", "bool", "timestamp" or "enum"
	Nullable bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	// Timestamps are written as RFC 3339 strings.
	Default any               `yaml:"default,omitempty" json:"default,omitempty"`
	Enum    map[string]string `yaml:"enum,omitempty" json:"enum,omitempty"`
}

// Index describes a secondary index.
type Index struct {
	Name       string   `yaml:"name" json:"name"`
	HashKey    string   `yaml:"hashKey" json:"hashKey"`
	RangeKey   string   `yaml:"rangeKey,omitempty" json:"rangeKey,omitempty"`
	Projection string   `yaml:"projection,omitempty" json:"projection,omitempty"` // "ALL", "KEYS_ONLY" or "INCLUDE"
	Include    []string `yaml:"include,omitempty" json:"include,omitempty"`
}
