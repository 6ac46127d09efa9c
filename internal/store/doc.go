// Package store persists video exclusions in a local SQLite database so the
// client can restore them on startup before any server state arrives.
package store
