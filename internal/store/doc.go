// Package store provides a SQLite-backed object register and notification log.
//
// The store holds two tables:
//   - objects: an objstore.Store register keyed by (store, key). Arc state
//     markers and manifests live here when a deployment has no bucket.
//   - notify_events: an append-only log of downstream notifications, one row
//     per published event, idempotent on the event id.
//
// # Ordering
//
// Listings are ordered by key and event reads by seq, so repeated reads of
// the same state return identical results.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
