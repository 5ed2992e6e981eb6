// Package stores provides the persistence layer for vtree sessions.
// It includes a SQLite-based store with embedded migrations that keeps
// a history of cycles, the diff events of each cycle, and the latest
// resource registry of every session. Observer adapts a Store to the
// session observer hook.
package stores
