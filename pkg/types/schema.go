package types

import "database/sql"

// Column is a table column resolved against a concrete backend. Kind is
// never KindInferred after composition.
type Column struct {
	Name       string
	Kind       ColumnKind
	SQLType    string
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	Default    string
	References string
}

// Table is one queryable table of a composed schema.
type Table struct {
	Name    string
	Columns []Column
}

// Column returns the resolved column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Schema maps table name to its resolved table. It is the result of
// applying every registered table definition (core and plugin) to the
// active backend's column builders.
type Schema map[string]*Table

// DB bundles the open connection with the schema it was composed for.
// It is the handle route handlers and plugins query through.
type DB struct {
	Conn   *sql.DB
	Schema Schema
}

// Status reports the lifecycle state of the database layer. It is safe
// to construct and read at any stage; Dialect is empty until configured.
type Status struct {
	Configured  bool   `json:"configured"`
	Initialized bool   `json:"initialized"`
	Dialect     string `json:"dialect,omitempty"`
}
