// Package reconcile makes a persisted dataset equal to an incoming batch of
// documents.
//
// Reconciliation matches documents to rows by a natural key, updates the rows
// that matched, inserts the keys that did not, and deletes rows whose key is
// absent from the batch. The engine is generic over the document type, row
// type and key so every dataset (interaction-parameter families, property
// metadata, node parameters) shares one implementation.
//
// Match is pure and can be tested without a database. Run performs the
// writes inside a caller-supplied transaction; Sync wraps Run in its own
// transaction and records metrics. A batch is applied atomically: after any
// error nothing of it is visible.
//
// An empty batch is a full reconciliation to the empty set and deletes every
// row in scope.
package reconcile
