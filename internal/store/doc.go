// Package store provides SQLite-backed storage for stockroom's business records.
//
// The store mirrors an IndexedDB database: one table per entity kind, each
// record kept whole as JSON and keyed by its id (metadata by its key), with
// secondary index columns copied from the record on every write.
//
// # Guarantees
//
//   - Lazy open: New returns an unopened Store; the first operation opens it,
//     and concurrent first callers converge on a single handle.
//   - Atomic bulk writes: BulkAdd and BulkPut run in one transaction, so a
//     failing record rolls back the batch and surfaces one *BulkError.
//   - Upsert: Put and BulkPut replace by key; the last write for a key wins.
//   - Versioned schema: PRAGMA user_version tracks migrations.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - a single connection, so a transaction is a consistent view of all kinds
package store
