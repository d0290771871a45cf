package cli

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowstate/internal/binary"
	"github.com/roach88/flowstate/internal/reconcile"
)

// BinaryOptions holds flags for the binary commands.
type BinaryOptions struct {
	*RootOptions
	FluidPackage string
}

// NewBinaryCommand creates the binary command group.
func NewBinaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BinaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "binary",
		Short: "Reconcile and list binary interaction parameters",
		Long: `Reconcile and list binary interaction parameters.

Families: PR, RK, SRK, NRTL, NRTL-RK, WILSON, UNIQUAC, PSRK (case-insensitive).
Rows are scoped by fluid package; the default scope is the global
physical-property library.`,
	}

	cmd.PersistentFlags().StringVar(&opts.FluidPackage, "fluid-package", "", "fluid package scope (empty = global library)")

	cmd.AddCommand(newBinarySyncCommand(opts))
	cmd.AddCommand(newBinaryListCommand(opts))
	return cmd
}

func newBinarySyncCommand(opts *BinaryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <family> <batch.json>",
		Short: "Make a family's rows in scope equal to a batch",
		Long: `Make a family's rows in scope equal to a JSON array of documents.

Pairs present in the batch are updated (absent fields keep their value),
new pairs are inserted and every other row in scope is deleted. An empty
array deletes the whole scope.

Example:
  flowstate binary sync PR pr.json --fluid-package fp1
  cat nrtl.json | flowstate binary sync nrtl -`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBinarySync(opts, args[0], args[1], cmd)
		},
	}
}

func runBinarySync(opts *BinaryOptions, family, path string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := readInput(cmd, path)
	if err != nil {
		return a.out.Fail(inputCode(err), err)
	}
	docs, err := binary.DecodeDocs(bytes.NewReader(data))
	if err != nil {
		return a.out.Fail(ErrCodeBadInput, err)
	}
	a.out.VerboseLog("Reconciling %d document(s) into %s (scope %q)", len(docs), family, opts.FluidPackage)

	sum, err := binary.NewSyncer(a.engine).Sync(cmd.Context(), family, opts.FluidPackage, docs)
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}
	return outputSummary(a.out, sum)
}

func newBinaryListCommand(opts *BinaryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <family>",
		Short:         "List a family's rows in scope",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBinaryList(opts, args[0], cmd)
		},
	}
}

func runBinaryList(opts *BinaryOptions, family string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	fam, err := binary.ParseFamily(family)
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}
	rows, err := binary.NewSyncer(a.engine).ListByScope(cmd.Context(), family, opts.FluidPackage)
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}

	records := make([]map[string]any, len(rows))
	for i, r := range rows {
		records[i] = r.Record(fam.Variant)
	}
	return a.out.Result(records, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d row(s)\n", fam.Selector, len(rows))
		fields := fam.Variant.Fields()
		for i, r := range rows {
			vals := make([]string, len(fields))
			for j, f := range fields {
				v := records[i][f]
				if v == nil {
					v = "-"
				}
				vals[j] = fmt.Sprintf("%s=%v", f, v)
			}
			fmt.Fprintf(w, "  %s %s/%s %s\n", r.Key(), r.ComponentI, r.ComponentJ, strings.Join(vals, " "))
		}
	})
}

// outputSummary prints a reconcile summary.
func outputSummary(out *OutputFormatter, sum reconcile.Summary) error {
	return out.Result(sum, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s\n", sum)
	})
}
