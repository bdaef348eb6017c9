package types

import (
	"context"
	"net/http"
)

// PluginMeta identifies a plugin. ID must be unique across all loaded
// plugins and is used to namespace routes and table names.
type PluginMeta struct {
	ID          string
	Version     string
	Description string
}

// Plugin is the contract every plugin implements. Initialize is called
// once during startup; db is nil when the database has not been
// configured yet, and implementations must tolerate that.
type Plugin interface {
	Meta() PluginMeta
	Initialize(ctx context.Context, db *DB) error
}

// DatabaseExtension is implemented by plugins that contribute tables.
// TableDefs are merged into the composer under "<pluginID>_<table>"
// before schema composition. OnDatabaseInit runs once after the schema
// containing the plugin's tables is live, for data seeding.
type DatabaseExtension interface {
	TableDefs() []TableDef
	OnDatabaseInit(ctx context.Context, db *DB) error
}

// RouteRegistrar is implemented by plugins that serve HTTP routes. Every
// registered route is rewritten under /plugin/<id>/ by the manager; the
// path the plugin requests is relative to that prefix regardless of how
// it is spelled.
type RouteRegistrar interface {
	RegisterRoutes(routes RouteManager, db *DB)
}

// Reinitializer is implemented by plugins that need to be told about a
// database that became available after their own initialization.
type Reinitializer interface {
	Reinitialize(ctx context.Context, db *DB) error
}

// Shutdowner is implemented by plugins holding resources that need
// releasing at process shutdown.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// RouteManager is the isolated route-registration surface handed to a
// plugin's RegisterRoutes.
type RouteManager interface {
	Handle(path string, handler http.Handler)
	HandleFunc(path string, handler func(http.ResponseWriter, *http.Request))
}
