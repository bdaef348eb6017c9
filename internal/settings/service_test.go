package settings

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/homebase-sh/homebase/internal/logging"
	"github.com/homebase-sh/homebase/internal/schema"
	"github.com/homebase-sh/homebase/pkg/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	composed, err := schema.NewComposer(logging.Discard()).Compose(types.BackendSQLite)
	require.NoError(t, err)
	for _, stmt := range schema.DDLStatements(composed) {
		_, err := conn.Exec(stmt)
		require.NoError(t, err)
	}
	return New(conn, logging.Discard())
}

func TestGet_MissingKey(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, types.ErrSettingNotFound)
}

func TestSet_CreatesThenUpdates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Set(ctx, "site_name", "My Site", TypeString)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "My Site", created.Value)

	updated, err := svc.Set(ctx, "site_name", "Renamed", TypeString)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "upsert must keep the row id")
	assert.Equal(t, "Renamed", updated.Value)

	got, err := svc.Get(ctx, "site_name")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Value)
}

func TestSet_DefaultsValueType(t *testing.T) {
	svc := newTestService(t)

	st, err := svc.Set(context.Background(), "anything", "x", "")
	require.NoError(t, err)
	assert.Equal(t, TypeString, st.ValueType)
}

func TestEnsureGroup_Idempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	g1, err := svc.EnsureGroup(ctx, "general", "General", 0)
	require.NoError(t, err)

	g2, err := svc.EnsureGroup(ctx, "general", "Renamed Label", 9)
	require.NoError(t, err)
	assert.Equal(t, g1.ID, g2.ID)
	assert.Equal(t, "General", g2.Label, "existing group is returned unchanged")
}

func TestList_ByGroup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	g, err := svc.EnsureGroup(ctx, "mail", "Mail", 0)
	require.NoError(t, err)

	_, err = svc.SetInGroup(ctx, "smtp_host", "localhost", TypeString, g.ID)
	require.NoError(t, err)
	_, err = svc.Set(ctx, "ungrouped", "v", TypeString)
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	grouped, err := svc.List(ctx, "mail")
	require.NoError(t, err)
	require.Len(t, grouped, 1)
	assert.Equal(t, "smtp_host", grouped[0].Key)

	_, err = svc.List(ctx, "absent")
	assert.ErrorIs(t, err, types.ErrGroupNotFound)
}

func TestDelete_Idempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, "temp", "v", TypeString)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "temp"))
	require.NoError(t, svc.Delete(ctx, "temp"))

	_, err = svc.Get(ctx, "temp")
	assert.ErrorIs(t, err, types.ErrSettingNotFound)
}

func TestSeed_DoesNotOverwrite(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))

	st, err := svc.Get(ctx, "site_name")
	require.NoError(t, err)
	assert.Equal(t, "Homebase", st.Value)

	_, err = svc.Set(ctx, "site_name", "Customized", TypeString)
	require.NoError(t, err)

	require.NoError(t, svc.Seed(ctx), "seeding again is safe")

	st, err = svc.Get(ctx, "site_name")
	require.NoError(t, err)
	assert.Equal(t, "Customized", st.Value, "seed must not clobber user values")

	groups, err := svc.Groups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 3)
	assert.Equal(t, "general", groups[0].Key, "groups come back in sort order")
}
