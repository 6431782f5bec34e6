package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/plugmods/internal/catalogue"
	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/store"
)

const defaultDebounce = 300 * time.Millisecond

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
	Exclude  []string
	Database string
	Label    string

	// RunIDs generates run ids; nil uses UUIDv7.
	RunIDs store.RunIDGenerator

	// armed is closed once the file watches are in place.
	armed chan struct{}
}

// WatchPass is one re-resolution in the watch stream.
type WatchPass struct {
	Pass   int            `json:"pass"`
	Report *finder.Report `json:"report,omitempty"`
	Diff   *store.Diff    `json:"diff,omitempty"`
	Error  string         `json:"error,omitempty"`
	RunID  string         `json:"run_id,omitempty"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <catalogue> <snapshot>",
		Short: "Re-resolve whenever the catalogue or snapshot changes",
		Long: `Resolve the catalogue against the snapshot, then again every time a
catalogue file or the snapshot changes, printing what moved since the
previous pass.

A catalogue that fails to compile is reported and the watch continues.
Stop with Ctrl-C.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", defaultDebounce, "quiet period before re-resolving")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", finder.DefaultExcludedPrefixes, "registry key prefixes never reported as unknown")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record every pass in this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "watch", "label stored with recorded passes")

	return cmd
}

func runWatch(parent context.Context, opts *WatchOptions, cataloguePath, snapshotPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())

	for _, p := range []string{cataloguePath, snapshotPath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("not found: %s", p), nil)
		}
	}

	catAbs, err := filepath.Abs(cataloguePath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	snapAbs, err := filepath.Abs(snapshotPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("create watcher: %v", err), nil)
	}
	defer func() {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Error("error closing watcher", "error", closeErr)
		}
	}()

	// Editors replace files by renaming, so directories are watched rather
	// than the files themselves.
	dirs := []string{filepath.Dir(snapAbs)}
	if info, err := os.Stat(catAbs); err == nil && info.IsDir() {
		dirs = append(dirs, catAbs)
	} else {
		dirs = append(dirs, filepath.Dir(catAbs))
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("watch %s: %v", dir, err), nil)
		}
	}

	ctx, cancel := notifyContext(parent, logger)
	defer cancel()

	w := &watchLoop{
		opts:      opts,
		formatter: formatter,
		logger:    logger,
		catalogue: cataloguePath,
		snapshot:  snapshotPath,
	}
	relevant := func(name string) bool {
		if name == snapAbs {
			return true
		}
		if name == catAbs {
			return true
		}
		return filepath.Ext(name) == ".cue" && filepath.Dir(name) == catAbs
	}

	w.pass(ctx)
	if opts.armed != nil {
		close(opts.armed)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped", "passes", w.passes)
			return nil

		case evt, ok := <-fsw.Events:
			if !ok {
				return formatter.Fail(ExitCommandError, ErrCodeGeneric, "watcher event channel closed", nil)
			}
			name, err := filepath.Abs(evt.Name)
			if err != nil || !relevant(name) {
				continue
			}
			if evt.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("change detected", "path", name, "op", evt.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.pass(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return formatter.Fail(ExitCommandError, ErrCodeGeneric, "watcher error channel closed", nil)
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// watchLoop carries state between passes.
type watchLoop struct {
	opts      *WatchOptions
	formatter *OutputFormatter
	logger    *slog.Logger
	catalogue string
	snapshot  string

	passes   int
	previous *store.Run
}

// pass resolves once and reports the outcome. Load failures are reported
// and leave the previous run in place.
func (w *watchLoop) pass(ctx context.Context) {
	w.passes++
	out := WatchPass{Pass: w.passes}

	run, err := w.resolve(ctx, &out)
	if err != nil {
		out.Error = err.Error()
		w.logger.Warn("pass failed", "pass", w.passes, "error", err)
	} else {
		if w.previous != nil {
			out.Diff = store.CompareRuns(w.previous, run)
		}
		w.previous = run
	}
	w.emit(out, err)
}

func (w *watchLoop) resolve(ctx context.Context, out *WatchPass) (*store.Run, error) {
	snap, err := loadSnapshot(w.snapshot)
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalogue(w.catalogue, catalogue.Options{}, catalogue.CollectAll)
	if err != nil {
		return nil, err
	}
	res, err := resolve(cat, snap.Registry, w.opts.Exclude, w.logger)
	if err != nil {
		return nil, err
	}
	out.Report = res.Report

	if w.opts.Database != "" {
		run, err := recordRun(ctx, w.opts.Database, w.opts.RunIDs, res.Report, snap.Digest, cat.Digest, w.opts.Label)
		if err != nil {
			return nil, fmt.Errorf("record pass: %w", err)
		}
		out.RunID = run.ID
		return run, nil
	}
	return store.NewRun(passIDs{w.passes}, res.Report, snap.Digest, cat.Digest, w.opts.Label), nil
}

func (w *watchLoop) emit(out WatchPass, err error) {
	f := w.formatter
	if f.isJSON() {
		if err := f.SuccessWithRun(out, out.RunID); err != nil {
			w.logger.Error("write pass", "error", err)
		}
		return
	}

	fmt.Fprintf(f.Writer, "=== pass %d (%s)\n", out.Pass, time.Now().Format(time.TimeOnly))
	if err != nil {
		fmt.Fprintf(f.Writer, "✗ %s\n", err)
		var le *LoadError
		if errors.As(err, &le) {
			printDetails(f.Writer, le.Details)
		}
		return
	}
	printReport(f.Writer, out.Report)
	if out.Diff != nil {
		printDiff(f.Writer, out.Diff)
	}
}

// passIDs names unrecorded runs after their pass number.
type passIDs struct{ n int }

func (p passIDs) Generate() string { return fmt.Sprintf("pass-%d", p.n) }

// notifyContext returns a context cancelled on SIGINT or SIGTERM.
func notifyContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan) // Prevent signal handler leak
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	return ctx, cancel
}
