package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/flowstate/internal/nodeparams"
	"github.com/roach88/flowstate/internal/reconcile"
	"github.com/roach88/flowstate/internal/store"
)

// NodeOptions holds flags for the node commands.
type NodeOptions struct {
	*RootOptions
	Code string
	All  bool
}

// NewNodeCommand creates the node command group.
func NewNodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Write and read versioned node parameters",
		Long: `Write and read versioned node parameters.

Every version of a model holds the same node set: adding or removing a node
in one version repeats the change in all others.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "add <model> <doc.json>",
		Short:         "Upsert one node into every version",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeWrite(rootOpts, cmd, args[1], false,
				func(a *app, docs []nodeparams.Document) (reconcile.Summary, error) {
					return a.versionStore().AddNodeToAllVersions(cmd.Context(), args[0], docs[0])
				})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sync <model> <code> <batch.json>",
		Short: "Make a version's nodes equal to a batch",
		Example: `  flowstate node sync m1 Normal nodes.json
  flowstate node sync m1 Startup - < nodes.json`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeWrite(rootOpts, cmd, args[2], true,
				func(a *app, docs []nodeparams.Document) (reconcile.Summary, error) {
					return a.versionStore().SyncBatchForVersion(cmd.Context(), args[0], args[1], docs)
				})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "propagate <model> <code> <doc.json>",
		Short:         "Apply one node edit to every version",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeWrite(rootOpts, cmd, args[2], false,
				func(a *app, docs []nodeparams.Document) (reconcile.Summary, error) {
					return a.versionStore().PropagateUpdate(cmd.Context(), args[0], args[1], docs[0])
				})
		},
	})

	get := &cobra.Command{
		Use:           "get <model> <graphic-id>",
		Short:         "Read a node",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeGet(opts, args[0], args[1], cmd)
		},
	}
	get.Flags().StringVar(&opts.Code, "code", "", "version code (default from config)")
	get.Flags().BoolVar(&opts.All, "all", false, "read the node from every version")
	cmd.AddCommand(get)

	return cmd
}

// runNodeWrite decodes path as one document, or an array when batch is set,
// and applies write.
func runNodeWrite(opts *RootOptions, cmd *cobra.Command, path string, batch bool,
	write func(a *app, docs []nodeparams.Document) (reconcile.Summary, error)) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := readInput(cmd, path)
	if err != nil {
		return a.out.Fail(inputCode(err), err)
	}
	docs, err := decodeNodeDocs(data, batch)
	if err != nil {
		return a.out.Fail(ErrCodeBadInput, err)
	}

	sum, err := write(a, docs)
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}
	return outputSummary(a.out, sum)
}

// decodeNodeDocs keeps numbers as json.Number so payloads round-trip
// exactly.
func decodeNodeDocs(data []byte, batch bool) ([]nodeparams.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if batch {
		var docs []nodeparams.Document
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("invalid node batch: %w", err)
		}
		if docs == nil {
			return nil, store.ConstraintViolation("node decode", "invalid node batch: expected an array, got null")
		}
		return docs, nil
	}
	var doc nodeparams.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid node document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("invalid node document: null")
	}
	return []nodeparams.Document{doc}, nil
}

func runNodeGet(opts *NodeOptions, model, graphicID string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	vs := a.versionStore()
	var docs []nodeparams.Document
	if opts.All {
		docs, err = vs.GetNodeAllVersions(cmd.Context(), model, graphicID)
	} else {
		var doc nodeparams.Document
		doc, err = vs.GetNode(cmd.Context(), model, graphicID, opts.Code)
		docs = []nodeparams.Document{doc}
	}
	if err != nil {
		return a.out.Fail(ErrCodeGeneric, err)
	}

	var data any = docs
	if !opts.All {
		data = docs[0]
	}
	return a.out.Result(data, func(w io.Writer) {
		for _, d := range docs {
			b, _ := json.MarshalIndent(d, "", "  ")
			fmt.Fprintln(w, string(b))
		}
	})
}
