package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/flowstate/internal/nodeparams"
)

// VersionOptions holds flags for the version commands.
type VersionOptions struct {
	*RootOptions
	Name     string
	CopyFrom string
}

// NewVersionCommand creates the version command group.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VersionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage status versions of a model",
	}

	create := &cobra.Command{
		Use:   "create <model> <code>",
		Short: "Create a version, copying the nodes of another",
		Long: `Create a status version of a model.

The new version receives a copy of every node of --copy-from, or of the most
recently updated version when the flag is omitted.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionCreate(opts, args[0], args[1], cmd)
		},
	}
	create.Flags().StringVar(&opts.Name, "name", "", "display name")
	create.Flags().StringVar(&opts.CopyFrom, "copy-from", "", "version code to copy nodes from")

	cmd.AddCommand(create)
	cmd.AddCommand(&cobra.Command{
		Use:           "delete <model> <code>...",
		Short:         "Delete versions and their nodes",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionDelete(rootOpts, args[0], args[1:], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list <model>",
		Short:         "List versions, most recently updated first",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionList(rootOpts, args[0], cmd)
		},
	})
	return cmd
}

func (a *app) versionStore() *nodeparams.VersionStore {
	return nodeparams.NewVersionStore(a.engine, nodeparams.WithDefaultCode(a.cfg.Nodes.DefaultCode))
}

func runVersionCreate(opts *VersionOptions, model, code string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	v, err := a.versionStore().CreateVersion(cmd.Context(), model, code, opts.Name, opts.CopyFrom)
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}
	return a.out.Result(v, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Created version %s of %s (%s)\n", v.Code, v.ModelID, v.ID)
	})
}

func runVersionDelete(opts *RootOptions, model string, codes []string, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.versionStore().DeleteVersions(cmd.Context(), model, codes)
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}
	return a.out.Result(map[string]int{"deleted": n}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Deleted %d version(s)\n", n)
	})
}

func runVersionList(opts *RootOptions, model string, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	vs, err := a.versionStore().ListVersions(cmd.Context(), model)
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}
	if vs == nil {
		vs = []nodeparams.Version{}
	}
	return a.out.Result(vs, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d version(s)\n", model, len(vs))
		for _, v := range vs {
			fmt.Fprintf(w, "  %s  %-12s %s\n", v.UpdateAt.UTC().Format(time.RFC3339), v.Code, v.Name)
		}
	})
}
