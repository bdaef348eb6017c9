package schema

import (
	"sort"

	"github.com/homebase-sh/homebase/pkg/types"
)

// DDLStatements renders CREATE TABLE statements for every table of a
// composed schema, core tables first in dependency order, then plugin
// tables sorted by name.
func DDLStatements(s types.Schema) []string {
	stmts := make([]string, 0, len(s))
	seen := make(map[string]bool, len(s))

	for _, def := range coreTables {
		if table, ok := s[def.Name]; ok {
			stmts = append(stmts, TableDDL(table))
			seen[def.Name] = true
		}
	}

	rest := make([]string, 0, len(s))
	for name := range s {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		stmts = append(stmts, TableDDL(s[name]))
	}
	return stmts
}
