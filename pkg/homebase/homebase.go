// Package homebase carries module-level metadata.
package homebase

// Version is the homebase release version.
const Version = "0.1.0"
