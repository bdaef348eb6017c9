package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homebase-sh/homebase/internal/logging"
	"github.com/homebase-sh/homebase/pkg/types"
)

func TestCompose_CoreTables(t *testing.T) {
	c := NewComposer(logging.Discard())

	s, err := c.Compose(types.BackendSQLite)
	require.NoError(t, err)

	for _, name := range []string{
		TableUsers, TableRoles, TableAuthUser, TableAuthSession, TableAuthKey,
		TableTeams, TableTeamMemberships, TableSettingGroups, TableSettings,
		TableEmailVerifyTokens,
	} {
		assert.Contains(t, s, name)
	}
	assert.Len(t, s, len(coreTables))
}

func TestCompose_UnknownBackend(t *testing.T) {
	c := NewComposer(logging.Discard())

	_, err := c.Compose("postgres")
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestCompose_UsersIDIsText(t *testing.T) {
	c := NewComposer(logging.Discard())

	s, err := c.Compose(types.BackendSQLite)
	require.NoError(t, err)

	col, ok := s[TableUsers].Column("id")
	require.True(t, ok)
	assert.Equal(t, types.KindText, col.Kind)
	assert.Equal(t, "TEXT", col.SQLType)
}

func TestRegisterPluginTables_Merge(t *testing.T) {
	c := NewComposer(logging.Discard())

	c.RegisterPluginTables("p1", []types.TableDef{{
		Name: "myTable",
		Columns: []types.ColumnDef{
			{Name: "id"},
			{Name: "name"},
		},
	}})

	s, err := c.Compose(types.BackendSQLite)
	require.NoError(t, err)

	table, ok := s["p1_myTable"]
	require.True(t, ok, "plugin table must compose under namespaced key")
	require.Len(t, table.Columns, 2)

	id, ok := table.Column("id")
	require.True(t, ok)
	assert.Equal(t, types.KindInteger, id.Kind, "id infers integer outside the users table")

	name, ok := table.Column("name")
	require.True(t, ok)
	assert.Equal(t, types.KindText, name.Kind)
}

func TestRegisterPluginTables_LastRegistrationWins(t *testing.T) {
	c := NewComposer(logging.Discard())

	c.RegisterPluginTables("p1", []types.TableDef{{
		Name:    "items",
		Columns: []types.ColumnDef{{Name: "id"}},
	}})
	c.RegisterPluginTables("p1", []types.TableDef{{
		Name:    "items",
		Columns: []types.ColumnDef{{Name: "id"}, {Name: "label"}},
	}})

	s, err := c.Compose(types.BackendSQLite)
	require.NoError(t, err)
	assert.Len(t, s["p1_items"].Columns, 2)
}

func TestCompose_Reinvocable(t *testing.T) {
	c := NewComposer(logging.Discard())

	first, err := c.Compose(types.BackendSQLite)
	require.NoError(t, err)
	assert.NotContains(t, first, "p1_widgets")

	c.RegisterPluginTables("p1", []types.TableDef{{
		Name:    "widgets",
		Columns: []types.ColumnDef{{Name: "id"}, {Name: "name"}},
	}})

	second, err := c.Compose(types.BackendSQLite)
	require.NoError(t, err)
	assert.Contains(t, second, "p1_widgets")
	assert.NotContains(t, first, "p1_widgets", "earlier schema object stays unchanged")
}

func TestInferColumnKind(t *testing.T) {
	tests := []struct {
		table, column string
		want          types.ColumnKind
	}{
		{"posts", "created_at", types.KindTimestamp},
		{"posts", "publish_date", types.KindTimestamp},
		{"posts", "view_count", types.KindInteger},
		{"posts", "status", types.KindInteger},
		{"posts", "sort_order", types.KindInteger},
		{"posts", "id", types.KindInteger},
		{"users", "id", types.KindText},
		{"posts", "title", types.KindText},
		{"posts", "body", types.KindText},
	}
	for _, tt := range tests {
		t.Run(tt.table+"."+tt.column, func(t *testing.T) {
			assert.Equal(t, tt.want, InferColumnKind(tt.table, tt.column))
		})
	}
}

func TestTableDDL(t *testing.T) {
	c := NewComposer(logging.Discard())
	s, err := c.Compose(types.BackendSQLite)
	require.NoError(t, err)

	ddl := TableDDL(s[TableAuthSession])
	assert.True(t, strings.HasPrefix(ddl, "CREATE TABLE IF NOT EXISTS auth_session ("))
	assert.Contains(t, ddl, "id TEXT PRIMARY KEY")
	assert.Contains(t, ddl, "user_id TEXT NOT NULL")
	assert.Contains(t, ddl, "FOREIGN KEY (user_id) REFERENCES auth_user(id)")
}
