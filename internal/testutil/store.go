// Package testutil provides fixtures shared by package tests: temp-dir
// stores, engines, deterministic clocks and id generators.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/flowstate/internal/reconcile"
	"github.com/roach88/flowstate/internal/store"
)

// DiscardLogger returns a logger that writes nowhere.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenStore opens a fresh store in t's temp dir and closes it on cleanup.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithLogger(DiscardLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// NewEngine returns an engine over a fresh store.
func NewEngine(t *testing.T, opts ...reconcile.EngineOption) *reconcile.Engine {
	t.Helper()
	return reconcile.NewEngine(OpenStore(t), opts...)
}

// CountRows returns the number of rows in table matching where (may be
// empty).
func CountRows(t *testing.T, s *store.Store, table, where string, args ...any) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	require.NoError(t, s.DB().QueryRow(query, args...).Scan(&n))
	return n
}
