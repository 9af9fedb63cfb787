// Package store provides the SQLite-backed key-value medium feedbackflow
// persists its collections to.
//
// The medium is deliberately dumb: one table of string keys to string values,
// each write a full overwrite of the previous value. There are no partial
// updates and no transactions spanning keys; the persist package layers the
// collection semantics on top.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - single open connection: one writer, and ":memory:" databases stay shared
package store
