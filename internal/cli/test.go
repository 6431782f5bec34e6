package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/plugmods/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Golden bool   // compare reports with golden files
	Filter string // keep scenario files whose name contains this
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run catalogue scenarios",
		Long: `Run every scenario in a directory through the resolution engine.

Each scenario pairs a registry (inline or a snapshot file) with a
catalogue and states which aliases must resolve, stay unresolved or be
reported unknown. Reports can also be compared with golden files kept in
<scenarios-dir>/testdata/golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  plugmods test ./scenarios
  plugmods test ./scenarios --filter media
  plugmods test ./scenarios --golden
  plugmods test ./scenarios --update
  plugmods test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().BoolVar(&opts.Golden, "golden", false, "compare reports with golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenario files whose name contains this")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Validate directory
	info, err := os.Stat(scenariosDir)
	if os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
	}
	if err != nil || !info.IsDir() {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("not a directory: %s", scenariosDir), nil)
	}

	h := harness.New(harness.WithLogger(opts.Logger(cmd.ErrOrStderr())))
	result, err := h.RunSuite(scenariosDir, harness.SuiteOptions{
		Filter: opts.Filter,
		Golden: opts.Golden,
		Update: opts.Update,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if opts.Update {
		formatter.VerboseLog("Golden files written to %s", filepath.Join(scenariosDir, harness.GoldenDir))
	}

	// Output results
	if formatter.isJSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputTestText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%s: %d of %d scenario(s) failed", ErrCodeScenarioFailed, result.Failed, result.Total))
	}
	return nil
}

// outputTestText writes failures and a summary line.
func outputTestText(f *OutputFormatter, result *harness.SuiteResult) {
	if result.Total == 0 {
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return
	}

	for _, failure := range result.Failures {
		name := failure.Scenario
		if name == "" {
			name = filepath.Base(failure.Path)
		}
		fmt.Fprintf(f.Writer, "✗ %s\n", name)
		for _, line := range strings.Split(strings.TrimRight(failure.Error, "\n"), "\n") {
			fmt.Fprintf(f.Writer, "  %s\n", line)
		}
	}

	fmt.Fprintln(f.Writer)
	if result.Failed == 0 {
		fmt.Fprintf(f.Writer, "✓ %d scenario(s) passed\n", result.Passed)
		return
	}
	fmt.Fprintf(f.Writer, "%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
