package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/plugmods/internal/browser"
	"github.com/roach88/plugmods/internal/catalogue"
	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/snapshot"
	"github.com/roach88/plugmods/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Database    string   // record the run in this SQLite database
	Label       string   // free-form label stored with the run
	Register    bool     // publish resolved aliases into the registry
	Out         string   // write the (possibly published) registry as a snapshot
	Exclude     []string // registry key prefixes never reported as unknown
	URL         string   // capture the registry from a live page instead of a file
	DebuggerURL string   // attach to a running Chrome instead of launching one

	// RunIDs generates run ids; nil uses UUIDv7. Tests inject a fixed
	// generator.
	RunIDs store.RunIDGenerator
}

// ResolveResult is the payload of the resolve command.
type ResolveResult struct {
	Report    *finder.Report    `json:"report"`
	Published map[string]string `json:"published,omitempty"`
	Snapshot  string            `json:"snapshot_digest"`
	Catalogue string            `json:"catalogue_digest"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <catalogue> [snapshot]",
		Short: "Resolve catalogue aliases against a registry snapshot",
		Long: `Run every detective of the catalogue against a registry snapshot and
print which registry key each alias resolved to.

The registry comes from a snapshot file, or from a live page with --url.
A live page also backs element conditions, which render view classes.

Exit codes:
  0 - Every alias resolved
  1 - Some aliases were not found or deferred, or a detective failed
  2 - Command error (invalid paths, unreadable snapshot, etc.)

Examples:
  plugmods resolve ./catalogue snapshot.yaml
  plugmods resolve ./catalogue snapshot.yaml --db runs.db --label nightly
  plugmods resolve ./catalogue snapshot.yaml --register --out published.yaml
  plugmods resolve ./catalogue --url http://localhost:8080/app`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshotPath := ""
			if len(args) == 2 {
				snapshotPath = args[1]
			}
			return runResolve(cmd.Context(), opts, args[0], snapshotPath, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label stored with the recorded run")
	cmd.Flags().BoolVar(&opts.Register, "register", false, "publish resolved aliases and print the alias table")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the registry as a snapshot file after resolving")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", finder.DefaultExcludedPrefixes, "registry key prefixes never reported as unknown")
	cmd.Flags().StringVar(&opts.URL, "url", "", "capture the registry from this page instead of a snapshot file")
	cmd.Flags().StringVar(&opts.DebuggerURL, "debugger-url", "", "attach to a running Chrome (with --url)")

	return cmd
}

func runResolve(ctx context.Context, opts *ResolveOptions, cataloguePath, snapshotPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())

	if (snapshotPath == "") == (opts.URL == "") {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "exactly one of a snapshot path or --url is required", nil)
	}

	var (
		snap    *snapshot.Snapshot
		catOpts catalogue.Options
	)
	if opts.URL != "" {
		session, err := openSession(ctx, opts.URL, opts.DebuggerURL, logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBrowser, err.Error(), nil)
		}
		defer func() {
			if closeErr := session.Close(); closeErr != nil {
				logger.Error("error closing browser", "error", closeErr)
			}
		}()
		snap, err = session.CaptureSnapshot(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBrowser, err.Error(), nil)
		}
		catOpts.Renderer = session.Renderer(ctx)
	} else {
		var err error
		if snap, err = loadSnapshot(snapshotPath); err != nil {
			return reportLoadError(formatter, err)
		}
	}
	formatter.VerboseLog("Loaded %d registry key(s)", snap.Registry.Len())

	cat, err := loadCatalogue(cataloguePath, catOpts, catalogue.FailFast)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	formatter.VerboseLog("Compiled %d catalogue entries from %d file(s)", len(cat.Entries), cat.FileCount)

	res, err := resolve(cat, snap.Registry, opts.Exclude, logger)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	result := &ResolveResult{
		Report:    res.Report,
		Snapshot:  snap.Digest,
		Catalogue: cat.Digest,
	}

	if opts.Register {
		if err := res.Context.Register(); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		result.Published = res.Report.Keys()
	}

	if opts.Out != "" {
		if err := writeSnapshotFile(opts.Out, snap.Registry); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
		formatter.VerboseLog("Wrote snapshot to %s", opts.Out)
	}

	runID := ""
	if opts.Database != "" {
		run, err := recordRun(ctx, opts.Database, opts.RunIDs, res.Report, snap.Digest, cat.Digest, opts.Label)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		runID = run.ID
		logger.Info("run recorded", "id", run.ID, "seq", run.Seq)
	}

	if formatter.isJSON() {
		if err := formatter.SuccessWithRun(result, runID); err != nil {
			return err
		}
	} else {
		printReport(formatter.Writer, res.Report)
		if opts.Register {
			printPublished(formatter.Writer, res.Report)
		}
		if runID != "" {
			fmt.Fprintf(formatter.Writer, "Recorded run %s\n", runID)
		}
	}

	return reportOutcome(res.Report)
}

// reportOutcome maps a report to the command's exit status.
func reportOutcome(r *finder.Report) error {
	missing := len(r.NotFound) + len(r.Deferred)
	if missing == 0 && len(r.Errors) == 0 {
		return nil
	}
	return NewExitError(ExitFailure,
		fmt.Sprintf("%s: %d alias(es) unresolved, %d error(s)", ErrCodeUnresolved, missing, len(r.Errors)))
}

// recordRun stores a report in the run history at dbPath.
func recordRun(ctx context.Context, dbPath string, ids store.RunIDGenerator, r *finder.Report, snapshotDigest, catalogueDigest, label string) (run *store.Run, err error) {
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()

	run = store.NewRun(ids, r, snapshotDigest, catalogueDigest, label)
	if err := st.WriteRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// openSession starts a browser session on url.
func openSession(ctx context.Context, url, debuggerURL string, logger *slog.Logger) (*browser.Session, error) {
	cfg := browser.DefaultConfig()
	cfg.URL = url
	cfg.DebuggerURL = debuggerURL
	return browser.Open(ctx, cfg, logger)
}

func writeSnapshotFile(path string, reg finder.Registry) error {
	data, err := snapshot.Marshal(reg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// printReport writes the human-readable form of a report.
func printReport(w io.Writer, r *finder.Report) {
	fmt.Fprintf(w, "Resolved %d alias(es)\n", len(r.Resolved))
	for _, res := range r.Resolved {
		fmt.Fprintf(w, "  [%d] %s = %s\n", res.Order, res.Alias, res.Key)
	}
	printList(w, "Not found", r.NotFound)
	printList(w, "Deferred", r.Deferred)
	if len(r.Unknown) > 0 {
		fmt.Fprintf(w, "Unknown: %d registry key(s) unclaimed\n", len(r.Unknown))
	}
	printList(w, "Errors", r.Errors)
}

func printPublished(w io.Writer, r *finder.Report) {
	fmt.Fprintln(w, "Published")
	for _, res := range r.Resolved {
		fmt.Fprintf(w, "  %s -> %s\n", res.Alias, res.Key)
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d)\n", title, len(items))
	fmt.Fprintf(w, "  %s\n", strings.Join(items, "\n  "))
}
