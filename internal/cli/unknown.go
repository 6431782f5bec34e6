package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/plugmods/internal/catalogue"
	"github.com/roach88/plugmods/internal/finder"
)

// UnknownOptions holds flags for the unknown command.
type UnknownOptions struct {
	*RootOptions
	Exclude []string
}

// UnknownResult is the payload of the unknown command.
type UnknownResult struct {
	Keys     []string `json:"keys"`
	Claimed  int      `json:"claimed"`
	Registry int      `json:"registry"`
}

// NewUnknownCommand creates the unknown command.
func NewUnknownCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UnknownOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "unknown <catalogue> <snapshot>",
		Short: "List registry keys no alias claims",
		Long: `Resolve the catalogue against the snapshot and list the registry keys
that no alias resolved to. These are the modules still waiting for a
catalogue entry.

Keys under an excluded prefix are never listed; by default the
application's own named modules and compiled templates are excluded.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnknown(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", finder.DefaultExcludedPrefixes, "registry key prefixes never listed")

	return cmd
}

func runUnknown(opts *UnknownOptions, cataloguePath, snapshotPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	snap, err := loadSnapshot(snapshotPath)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	cat, err := loadCatalogue(cataloguePath, catalogue.Options{}, catalogue.FailFast)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	res, err := resolve(cat, snap.Registry, opts.Exclude, opts.Logger(cmd.ErrOrStderr()))
	if err != nil {
		return reportLoadError(formatter, err)
	}

	result := UnknownResult{
		Keys:     res.Report.Unknown,
		Claimed:  len(res.Report.Resolved),
		Registry: snap.Registry.Len(),
	}

	if formatter.isJSON() {
		return formatter.Success(result)
	}
	if len(result.Keys) == 0 {
		fmt.Fprintln(formatter.Writer, "✓ Every registry key is claimed or excluded")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d unknown module(s) of %d registry key(s)\n", len(result.Keys), result.Registry)
	for _, key := range result.Keys {
		fmt.Fprintf(formatter.Writer, "  %s\n", key)
	}
	return nil
}
