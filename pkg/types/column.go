package types

// ColumnKind enumerates the dialect-neutral column types a definition may
// carry. KindInferred defers the choice to the composer's name-based
// inference, which exists for plugin tables declared without explicit
// kinds.
type ColumnKind int

const (
	KindInferred ColumnKind = iota
	KindText
	KindInteger
	KindTimestamp
	KindBoolean
)

// String returns the kind name for logs and error messages.
func (k ColumnKind) String() string {
	switch k {
	case KindInferred:
		return "inferred"
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindTimestamp:
		return "timestamp"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// ColumnDef describes one table column independent of any backend.
// The composer materializes it against the active backend's builder at
// composition time.
type ColumnDef struct {
	Name       string
	Kind       ColumnKind
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	Default    string // literal default expression, empty for none
	References string // "table.column" foreign key target, empty for none
}

// TableDef is a named set of column definitions describing one logical
// table, either core or plugin-contributed.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// Column returns the definition of the named column, or false if the
// table does not declare it.
func (t TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}
