// Package store provides the SQLite-backed relational store of an archive.
//
// Measurements and molecules use joined-table inheritance: a base table
// with the shared columns and a discriminator, plus one table per subtype
// keyed by the base key. Subtype rows cascade with their base row, and
// measurements cascade with the molecule they reference.
//
// # Critical Patterns
//
// Stable ordering:
//   - Every query ends its ORDER BY with the entity key
//   - Identical archives yield identical result order
//
// Allocation:
//   - Keys are allocated as max(key)+1 inside a write transaction
//   - The connection uses BEGIN IMMEDIATE, so the read and the insert hold
//     the write lock together
//   - A primary key conflict surfaces as ErrKeyConflict for the caller to
//     retry
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity and cascades
//   - case_sensitive_like=ON: LIKE distinguishes case; ILIKE lowers both sides
package store
