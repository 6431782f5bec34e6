package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/plugmods/internal/browser"
	"github.com/roach88/plugmods/internal/snapshot"
)

// CaptureOptions holds flags for the capture command.
type CaptureOptions struct {
	*RootOptions
	URL         string
	Out         string
	DebuggerURL string
	Registry    string
	MaxDepth    int
	Timeout     time.Duration
	Headful     bool
}

// CaptureResult is the payload of the capture command.
type CaptureResult struct {
	Path   string `json:"path"`
	Keys   int    `json:"keys"`
	Digest string `json:"digest"`
}

// NewCaptureCommand creates the capture command.
func NewCaptureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CaptureOptions{RootOptions: rootOpts}
	defaults := browser.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "capture --url <page> --out <snapshot>",
		Short: "Capture a registry snapshot from a live page",
		Long: `Load the application in Chrome, wait for its module registry and
write the registry to a snapshot file.

Chrome is launched headless unless --debugger-url attaches to a running
instance.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "page to load (required)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "snapshot file to write (required)")
	cmd.Flags().StringVar(&opts.DebuggerURL, "debugger-url", "", "attach to a running Chrome")
	cmd.Flags().StringVar(&opts.Registry, "registry", defaults.Registry, "expression evaluating to the module registry")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", defaults.MaxDepth, "deepest member nesting to capture")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", defaults.NavigationTimeout(), "page load timeout")
	cmd.Flags().BoolVar(&opts.Headful, "headful", false, "show the browser window")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runCapture(opts *CaptureOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	cfg := browser.DefaultConfig()
	cfg.URL = opts.URL
	cfg.DebuggerURL = opts.DebuggerURL
	cfg.Headless = !opts.Headful
	cfg.Registry = opts.Registry
	cfg.MaxDepth = opts.MaxDepth
	cfg.NavigationTimeoutMs = int(opts.Timeout / time.Millisecond)

	session, err := browser.Open(ctx, cfg, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBrowser, err.Error(), nil)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Error("error closing browser", "error", closeErr)
		}
	}()

	// Decoding before writing keeps unloadable snapshots off disk.
	snap, err := session.CaptureSnapshot(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBrowser, err.Error(), nil)
	}

	f, err := os.Create(opts.Out)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
	}
	if err := snapshot.Encode(f, snap.Registry); err != nil {
		f.Close()
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
	}
	if err := f.Close(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
	}
	logger.Info("snapshot written", "path", opts.Out, "keys", snap.Registry.Len())

	result := CaptureResult{Path: opts.Out, Keys: snap.Registry.Len(), Digest: snap.Digest}
	if formatter.isJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Captured %d module(s) to %s\n", result.Keys, result.Path)
	return nil
}
