package schema

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/homebase-sh/homebase/pkg/types"
)

// Composer merges the fixed core table definitions with an open set of
// plugin-contributed definitions and resolves them against a backend's
// column types. Compose may be called again after further registrations
// to regenerate the schema.
type Composer struct {
	mu     sync.RWMutex
	core   []types.TableDef
	plugin map[string]types.TableDef // full key "pluginID_table" -> def
	owner  map[string]string         // full key -> registering plugin id
	logger *slog.Logger
}

// NewComposer creates a composer seeded with the core definitions.
func NewComposer(logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		core:   CoreTables(),
		plugin: make(map[string]types.TableDef),
		owner:  make(map[string]string),
		logger: logger,
	}
}

// RegisterPluginTables merges the given definitions under keys
// "<pluginID>_<table>". Re-registration by the same plugin overwrites
// (last registration wins); the same full key claimed by a different
// plugin is a configuration error that is logged, with the later
// registration still winning so behavior stays deterministic.
func (c *Composer) RegisterPluginTables(pluginID string, defs []types.TableDef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, def := range defs {
		key := pluginID + "_" + def.Name
		if prev, ok := c.owner[key]; ok && prev != pluginID {
			c.logger.Error("plugin table key collision",
				"key", key, "registered_by", prev, "claimed_by", pluginID)
		}
		namespaced := def
		namespaced.Name = key
		c.plugin[key] = namespaced
		c.owner[key] = pluginID
	}
}

// PluginTableCount reports how many plugin tables are registered.
func (c *Composer) PluginTableCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plugin)
}

// Compose resolves every core and plugin definition against the given
// backend's column types. Composition is deterministic and total: each
// registered definition yields a table or the whole composition fails.
func (c *Composer) Compose(backend string) (types.Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if backend != types.BackendSQLite {
		return nil, fmt.Errorf("compose schema: %w: %s", types.ErrBackendUnknown, backend)
	}

	out := make(types.Schema, len(c.core)+len(c.plugin))
	for _, def := range c.core {
		table, err := resolveTable(def)
		if err != nil {
			return nil, err
		}
		out[def.Name] = table
	}

	// Sort plugin keys so composition order, and therefore any error
	// reported, is stable across runs.
	keys := make([]string, 0, len(c.plugin))
	for k := range c.plugin {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		table, err := resolveTable(c.plugin[k])
		if err != nil {
			return nil, err
		}
		out[k] = table
	}
	return out, nil
}

// resolveTable materializes one definition into a concrete table.
func resolveTable(def types.TableDef) (*types.Table, error) {
	table := &types.Table{Name: def.Name, Columns: make([]types.Column, 0, len(def.Columns))}
	for _, col := range def.Columns {
		kind := col.Kind
		if kind == types.KindInferred {
			kind = InferColumnKind(def.Name, col.Name)
		}
		sqlType, err := sqliteColumnType(kind)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", def.Name, col.Name, err)
		}
		table.Columns = append(table.Columns, types.Column{
			Name:       col.Name,
			Kind:       kind,
			SQLType:    sqlType,
			PrimaryKey: col.PrimaryKey,
			NotNull:    col.NotNull,
			Unique:     col.Unique,
			Default:    col.Default,
			References: col.References,
		})
	}
	return table, nil
}

// integerHints are the column-name fragments that map to an integer
// column when no explicit kind is declared.
var integerHints = []string{"count", "age", "quantity", "order", "status", "number", "id"}

// InferColumnKind maps a column name to a kind for definitions declared
// without one. This is the single inference function used everywhere so
// runtime composition and static DDL can never drift: a "_at" suffix or a
// "date" fragment means timestamp, a numeric hint word means integer, and
// the users table's id column is always text. Everything else is text.
func InferColumnKind(tableName, columnName string) types.ColumnKind {
	name := strings.ToLower(columnName)
	if tableName == TableUsers && name == "id" {
		return types.KindText
	}
	if strings.HasSuffix(name, "_at") || strings.Contains(name, "date") {
		return types.KindTimestamp
	}
	for _, hint := range integerHints {
		if strings.Contains(name, hint) {
			return types.KindInteger
		}
	}
	return types.KindText
}

// sqliteColumnType projects a resolved kind onto SQLite's type names.
// Adding a backend means adding one function like this one.
func sqliteColumnType(kind types.ColumnKind) (string, error) {
	switch kind {
	case types.KindText:
		return "TEXT", nil
	case types.KindInteger, types.KindBoolean:
		return "INTEGER", nil
	case types.KindTimestamp:
		// RFC 3339 strings; SQLite has no native timestamp type.
		return "TEXT", nil
	default:
		return "", fmt.Errorf("%w: %s", types.ErrUnsupportedKind, kind)
	}
}

// TableDDL renders the CREATE TABLE statement for a resolved table.
func TableDDL(t *types.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)

	lines := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		line := "    " + col.Name + " " + col.SQLType
		if col.PrimaryKey {
			line += " PRIMARY KEY"
		}
		if col.NotNull && !col.PrimaryKey {
			line += " NOT NULL"
		}
		if col.Unique && !col.PrimaryKey {
			line += " UNIQUE"
		}
		if col.Default != "" {
			line += " DEFAULT " + col.Default
		}
		lines = append(lines, line)
	}
	for _, col := range t.Columns {
		if col.References == "" {
			continue
		}
		target := strings.SplitN(col.References, ".", 2)
		if len(target) != 2 {
			continue
		}
		lines = append(lines, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s(%s)",
			col.Name, target[0], target[1]))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n);")
	return b.String()
}
