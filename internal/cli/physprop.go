package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/flowstate/internal/physprop"
)

// NewPhyspropCommand creates the physprop command group.
func NewPhyspropCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "physprop",
		Short: "Reconcile and list physical-property metadata",
		Long: `Reconcile and list physical-property metadata.

Kinds: basePhysical, function, relation (case-insensitive). Each kind is a
single global table keyed by document id.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync <kind> <batch.json>",
		Short: "Make a metadata table equal to a batch",
		Example: `  flowstate physprop sync basePhysical props.json
  flowstate physprop sync relation relations.json --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhyspropSync(rootOpts, args[0], args[1], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list <kind>",
		Short:         "List a metadata table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhyspropList(rootOpts, args[0], cmd)
		},
	})
	return cmd
}

func runPhyspropSync(opts *RootOptions, kind, path string, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := readInput(cmd, path)
	if err != nil {
		return a.out.Fail(inputCode(err), err)
	}
	sum, err := physprop.NewSyncer(a.engine).Sync(cmd.Context(), kind, data)
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}
	return outputSummary(a.out, sum)
}

func runPhyspropList(opts *RootOptions, kind string, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := physprop.NewSyncer(a.engine).List(cmd.Context(), kind)
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}
	return a.out.Result(rows, func(w io.Writer) {
		switch rs := rows.(type) {
		case []physprop.BaseProperty:
			fmt.Fprintf(w, "%d base propert(ies)\n", len(rs))
			for _, r := range rs {
				fmt.Fprintf(w, "  %d %s (%s) key=%s phase=%s\n", r.ID, r.Name, r.Code, r.Key, r.Phase)
			}
		case []physprop.CalcFunction:
			fmt.Fprintf(w, "%d function(s)\n", len(rs))
			for _, r := range rs {
				fmt.Fprintf(w, "  %d %s (%s) args=%s\n", r.ID, r.Name, r.Code, r.Args)
			}
		case []physprop.CalcRelation:
			fmt.Fprintf(w, "%d relation(s)\n", len(rs))
			for _, r := range rs {
				fmt.Fprintf(w, "  %d base=%d function=%d default=%d\n", r.ID, r.BasePhysicalID, r.FunctionID, r.DefaultFunctionID)
			}
		}
	})
}
