// Package repository defines the storage interface for the request journal.
//
// The sqlite subpackage implements it on an SQLite database (WAL mode,
// pure Go driver). Records are appended by a background writer so that
// journaling never delays a response; Recent reads them back for the
// history command and the admin API.
//
// # Schema Migration
//
// The sqlite repository creates its table and indexes on startup.
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository
