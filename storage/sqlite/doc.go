// Package sqlite provides a SQLite-backed storage.Repo for persisted client
// session state.
package sqlite
