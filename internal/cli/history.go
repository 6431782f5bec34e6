package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/plugmods/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Diff     bool   // compare two runs given as arguments
	Alias    string // show one alias across runs
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history --db <file> [--diff <from> <to>] [--alias <name>]",
		Short: "Inspect recorded resolution runs",
		Long: `List the runs recorded by resolve --db, compare two of them, or follow
one alias across every run.

A diff lists aliases found or lost between the runs, aliases that moved
to another registry key, and aliases whose module changed shape.

Examples:
  plugmods history --db runs.db
  plugmods history --db runs.db --diff <from-id> <to-id>
  plugmods history --db runs.db --alias plug/views/Row`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.Diff {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "run history database (required)")
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "compare the two runs given as arguments")
	cmd.Flags().StringVar(&opts.Alias, "alias", "", "show the resolutions of one alias")
	_ = cmd.MarkFlagRequired("db")
	cmd.MarkFlagsMutuallyExclusive("diff", "alias")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	switch {
	case opts.Diff:
		return historyDiff(ctx, st, formatter, args[0], args[1])
	case opts.Alias != "":
		return historyAlias(ctx, st, formatter, opts.Alias)
	default:
		return historyList(ctx, st, formatter)
	}
}

func historyList(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	if f.isJSON() {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded")
		return nil
	}
	for _, r := range runs {
		label := r.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(f.Writer, "#%d %s %s resolved=%d missed=%d\n", r.Seq, r.ID, label, r.Resolved, r.Missed)
	}
	return nil
}

func historyAlias(ctx context.Context, st *store.Store, f *OutputFormatter, alias string) error {
	history, err := st.AliasHistory(ctx, alias)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	if f.isJSON() {
		return f.Success(history)
	}
	if len(history) == 0 {
		fmt.Fprintf(f.Writer, "%s was never resolved\n", alias)
		return nil
	}
	for _, res := range history {
		fmt.Fprintf(f.Writer, "%s = %s (order %d, shape %s)\n", res.Alias, res.Key, res.Order, shortDigest(res.Fingerprint))
	}
	return nil
}

func historyDiff(ctx context.Context, st *store.Store, f *OutputFormatter, from, to string) error {
	diff, err := st.DiffRuns(ctx, from, to)
	if errors.Is(err, store.ErrRunNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	if f.isJSON() {
		return f.Success(diff)
	}
	printDiff(f.Writer, diff)
	return nil
}

func printDiff(w io.Writer, d *store.Diff) {
	if d.Empty() {
		fmt.Fprintln(w, "✓ No changes")
		return
	}
	if len(d.Found) > 0 {
		fmt.Fprintf(w, "Found (%d)\n", len(d.Found))
		for _, c := range d.Found {
			fmt.Fprintf(w, "  %s = %s\n", c.Alias, c.ToKey)
		}
	}
	if len(d.Lost) > 0 {
		fmt.Fprintf(w, "Lost (%d)\n", len(d.Lost))
		for _, c := range d.Lost {
			fmt.Fprintf(w, "  %s (was %s)\n", c.Alias, c.FromKey)
		}
	}
	if len(d.Moved) > 0 {
		fmt.Fprintf(w, "Moved (%d)\n", len(d.Moved))
		for _, c := range d.Moved {
			fmt.Fprintf(w, "  %s: %s -> %s\n", c.Alias, c.FromKey, c.ToKey)
		}
	}
	if len(d.Reshaped) > 0 {
		fmt.Fprintf(w, "Reshaped (%d)\n", len(d.Reshaped))
		for _, c := range d.Reshaped {
			fmt.Fprintf(w, "  %s: %s -> %s\n", c.Alias, shortDigest(c.FromFingerprint), shortDigest(c.ToFingerprint))
		}
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
