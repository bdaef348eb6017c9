// Package schema holds the table definitions of the homebase backend and
// composes them, together with plugin-contributed definitions, into a
// concrete schema for the active database backend.
package schema

import "github.com/homebase-sh/homebase/pkg/types"

// Core table names.
const (
	TableUsers               = "users"
	TableRoles               = "roles"
	TableAuthUser            = "auth_user"
	TableAuthSession         = "auth_session"
	TableAuthKey             = "auth_key"
	TableTeams               = "teams"
	TableTeamMemberships     = "team_memberships"
	TableSettingGroups       = "global_setting_groups"
	TableSettings            = "global_settings"
	TableEmailVerifyTokens   = "email_verification_tokens"
)

// Core table definitions, fixed at compile time. Columns carry explicit
// kinds; the name-based inference only applies to plugin tables declared
// without them.
var (
	usersTable = types.TableDef{
		Name: TableUsers,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindText, PrimaryKey: true},
			{Name: "email", Kind: types.KindText, NotNull: true, Unique: true},
			{Name: "name", Kind: types.KindText},
			{Name: "avatar_url", Kind: types.KindText},
			{Name: "created_at", Kind: types.KindTimestamp, NotNull: true},
			{Name: "updated_at", Kind: types.KindTimestamp, NotNull: true},
		},
	}

	rolesTable = types.TableDef{
		Name: TableRoles,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindInteger, PrimaryKey: true},
			{Name: "name", Kind: types.KindText, NotNull: true, Unique: true},
			{Name: "description", Kind: types.KindText},
		},
	}

	authUserTable = types.TableDef{
		Name: TableAuthUser,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindText, PrimaryKey: true},
			{Name: "user_id", Kind: types.KindText, NotNull: true, References: "users.id"},
			{Name: "email", Kind: types.KindText, NotNull: true, Unique: true},
			{Name: "email_verified", Kind: types.KindBoolean, NotNull: true, Default: "0"},
			{Name: "github_id", Kind: types.KindText},
			{Name: "role_id", Kind: types.KindInteger, References: "roles.id"},
			{Name: "created_at", Kind: types.KindTimestamp, NotNull: true},
		},
	}

	authSessionTable = types.TableDef{
		Name: TableAuthSession,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindText, PrimaryKey: true},
			{Name: "user_id", Kind: types.KindText, NotNull: true, References: "auth_user.id"},
			{Name: "expires_at", Kind: types.KindTimestamp, NotNull: true},
			{Name: "created_at", Kind: types.KindTimestamp, NotNull: true},
		},
	}

	authKeyTable = types.TableDef{
		Name: TableAuthKey,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindText, PrimaryKey: true},
			{Name: "user_id", Kind: types.KindText, NotNull: true, References: "auth_user.id"},
			{Name: "hashed_password", Kind: types.KindText},
			{Name: "provider", Kind: types.KindText, NotNull: true},
			{Name: "provider_user_id", Kind: types.KindText},
			{Name: "created_at", Kind: types.KindTimestamp, NotNull: true},
		},
	}

	teamsTable = types.TableDef{
		Name: TableTeams,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindText, PrimaryKey: true},
			{Name: "name", Kind: types.KindText, NotNull: true},
			{Name: "slug", Kind: types.KindText, NotNull: true, Unique: true},
			{Name: "owner_id", Kind: types.KindText, NotNull: true, References: "users.id"},
			{Name: "created_at", Kind: types.KindTimestamp, NotNull: true},
			{Name: "updated_at", Kind: types.KindTimestamp, NotNull: true},
		},
	}

	teamMembershipsTable = types.TableDef{
		Name: TableTeamMemberships,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindText, PrimaryKey: true},
			{Name: "team_id", Kind: types.KindText, NotNull: true, References: "teams.id"},
			{Name: "user_id", Kind: types.KindText, NotNull: true, References: "users.id"},
			{Name: "role", Kind: types.KindText, NotNull: true, Default: "'member'"},
			{Name: "created_at", Kind: types.KindTimestamp, NotNull: true},
		},
	}

	settingGroupsTable = types.TableDef{
		Name: TableSettingGroups,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindText, PrimaryKey: true},
			{Name: "key", Kind: types.KindText, NotNull: true, Unique: true},
			{Name: "label", Kind: types.KindText},
			{Name: "sort_order", Kind: types.KindInteger, NotNull: true, Default: "0"},
			{Name: "created_at", Kind: types.KindTimestamp, NotNull: true},
		},
	}

	settingsTable = types.TableDef{
		Name: TableSettings,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindText, PrimaryKey: true},
			{Name: "group_id", Kind: types.KindText, References: "global_setting_groups.id"},
			{Name: "key", Kind: types.KindText, NotNull: true, Unique: true},
			{Name: "value", Kind: types.KindText},
			{Name: "value_type", Kind: types.KindText, NotNull: true, Default: "'string'"},
			{Name: "updated_at", Kind: types.KindTimestamp, NotNull: true},
		},
	}

	emailVerifyTokensTable = types.TableDef{
		Name: TableEmailVerifyTokens,
		Columns: []types.ColumnDef{
			{Name: "id", Kind: types.KindText, PrimaryKey: true},
			{Name: "user_id", Kind: types.KindText, NotNull: true, References: "auth_user.id"},
			{Name: "token", Kind: types.KindText, NotNull: true, Unique: true},
			{Name: "expires_at", Kind: types.KindTimestamp, NotNull: true},
			{Name: "created_at", Kind: types.KindTimestamp, NotNull: true},
		},
	}
)

// coreTables lists all core definitions in dependency order.
var coreTables = []types.TableDef{
	usersTable,
	rolesTable,
	authUserTable,
	authSessionTable,
	authKeyTable,
	teamsTable,
	teamMembershipsTable,
	settingGroupsTable,
	settingsTable,
	emailVerifyTokensTable,
}

// CoreTables returns a copy of the core table definitions.
func CoreTables() []types.TableDef {
	out := make([]types.TableDef, len(coreTables))
	copy(out, coreTables)
	return out
}
