// Package repository defines the data access interface for netcensus.
//
// Each aggregation run is stored whole: the run row carries the complete
// inventory document, and a per-run device index makes the latest
// inventory queryable without decoding the document. The implementation
// lives in the sqlite subpackage.
//
// # SQLite Implementation
//
// The sqlite repository uses the pure-Go modernc.org/sqlite driver with WAL
// mode. A run and its device index are written in one transaction, so a
// reader never observes a partially saved run.
//
// # Schema Migration
//
// The schema is created on startup with CREATE IF NOT EXISTS statements.
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository
