// Package store provides persistent storage for turn-admin using SQLite.
//
// # Architecture
//
// Two narrow interfaces are combined into Store:
//
//   - AuditStore: append-only log of logins and privileged relay operations
//   - CredentialStore: administrator credentials for the sqlite backend
//
// SQLiteStore implements both; MockStore is an in-memory stand-in for tests.
//
// # SQLite Configuration
//
// The store uses modernc.org/sqlite (pure Go, no cgo) with:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Timestamps are stored as fixed-width UTC strings so ORDER BY ts sorts
// chronologically.
//
// # Migrations
//
// Columns added after the first release are applied by runMigrations, which
// checks pragma_table_info before each ALTER TABLE and is safe to rerun.
package store
