// Package database provides SQLite-based storage for pubchemscan.
//
// This package implements the CompoundDB, which stores:
//   - The latest extraction result per compound (the lookup cache)
//   - Every extraction ever saved (the lookup history)
//   - Related identifiers per compound, so reverse lookups
//     ("which compounds reference substance X?") need no PubChem call
//
// Each stored result carries a SHA3-256 hash of its serialized JSON, which
// makes change detection between two lookups a string comparison.
//
// The database is a single file opened through modernc.org/sqlite, a
// CGO-free driver, in WAL mode.
package database
