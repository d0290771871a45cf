// Package store provides the SQLite-backed handle shared by every flowstate
// component.
//
// The schema holds:
//   - binary_<family>: binary interaction parameters, one table per family
//   - pp_*: physical-property metadata keyed by caller-supplied ids
//   - status_version: named snapshots of a model
//   - node_params: one row per (model, graphic node, version code)
//
// # Transactions
//
// Every reconciliation or propagation call runs inside exactly one
// transaction obtained through WithTx. The pool is capped at one connection,
// which gives single-writer semantics; callers that write the same scope
// concurrently must still serialize externally, because the load-then-delete
// window is not guarded by any row lock.
//
// # Errors
//
// Write paths return *Error values carrying one of NOT_FOUND,
// UNKNOWN_VARIANT, CONSTRAINT_VIOLATION or TRANSACTION_FAILURE. Use the
// IsXxx predicates; they see through fmt.Errorf wrapping.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000 unless overridden with WithBusyTimeout
//   - foreign_keys=ON
package store
