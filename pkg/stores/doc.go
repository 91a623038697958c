// Package stores provides the run-history persistence layer: migration
// runs, their per-item errors, and the source-to-target id mappings each
// run produced. The only implementation is SQLite (modernc.org/sqlite,
// CGO-free) with schema migrations embedded and applied through
// golang-migrate.
package stores
