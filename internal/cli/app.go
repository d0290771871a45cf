package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/flowstate/internal/config"
	"github.com/roach88/flowstate/internal/metrics"
	"github.com/roach88/flowstate/internal/reconcile"
	"github.com/roach88/flowstate/internal/store"
)

// app is the per-invocation wiring shared by every subcommand.
type app struct {
	cfg      config.Config
	out      *OutputFormatter
	logger   *slog.Logger
	store    *store.Store
	engine   *reconcile.Engine
	registry *prometheus.Registry
	opts     *RootOptions
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openApp loads config, applies flag overrides and opens the store.
// Failures are already reported through the formatter.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, out.Fail(ErrCodeOpenStore, err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, out.Fail(ErrCodeOpenStore, err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	logger.Debug("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path,
		store.WithBusyTimeout(cfg.Database.BusyTimeoutMS),
		store.WithLogger(logger))
	if err != nil {
		return nil, out.Fail(ErrCodeOpenStore, fmt.Errorf("failed to open database: %w", err))
	}

	registry := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(registry)
	if err != nil {
		st.Close()
		return nil, out.Fail(ErrCodeGeneric, err)
	}

	e := reconcile.NewEngine(st,
		reconcile.WithLogger(logger),
		reconcile.WithMetrics(rec),
		reconcile.WithRejectDuplicates(cfg.Reconcile.RejectDuplicateKeys))

	return &app{
		cfg:      cfg,
		out:      out,
		logger:   logger,
		store:    st,
		engine:   e,
		registry: registry,
		opts:     opts,
	}, nil
}

// close writes the metrics file if requested and closes the store.
func (a *app) close() {
	if a.opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.opts.MetricsFile, a.registry); err != nil {
			a.logger.Error("error writing metrics file", "path", a.opts.MetricsFile, "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// readInput returns the contents of path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// inputCode classifies a readInput failure.
func inputCode(err error) string {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrCodeNotFound
	}
	return ErrCodeBadInput
}
