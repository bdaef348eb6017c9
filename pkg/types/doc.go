// Package types defines the shared contracts of the homebase backend:
// the database configuration record, the dialect-neutral column and table
// definition model consumed by the schema composer, the plugin contract,
// and the sentinel errors exchanged between components.
package types
