// Package store provides SQLite-backed history of resolution runs.
//
// Each run records which registry key every alias resolved to, with the
// module fingerprint, plus the aliases that were not found or stayed
// deferred. Comparing two runs shows what a rebuild of the host
// application moved, lost or reshaped.
//
// # Ordering
//
//   - Runs are ordered by seq, a counter assigned at write time, never by
//     wall time
//   - Resolutions are read ORDER BY resolution_order ASC, alias COLLATE BINARY ASC
//   - Misses are read in the order the report listed them
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
