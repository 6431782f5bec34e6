package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/plugmods/internal/catalogue"
)

// ValidationResult is the JSON payload of validate.
type ValidationResult struct {
	Valid   bool      `json:"valid"`
	Entries int       `json:"entries"`
	Errors  []Problem `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalogue>",
		Short: "Compile a catalogue and report every error",
		Long: `Compile a CUE catalogue without resolving anything.

Every invalid entry is reported with its file position, not just the
first one.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, cataloguePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(cataloguePath); errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "catalogue not found: "+cataloguePath, nil)
	}

	cat, problems := ValidateCatalogue(cataloguePath)
	if len(problems) > 0 {
		printProblems(formatter, problems)
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d catalogue error(s)", ErrCodeCatalogue, len(problems)))
	}

	formatter.VerboseLog("Compiled %d entries from %d file(s)", len(cat.Entries), cat.FileCount)
	if formatter.isJSON() {
		return formatter.Success(ValidationResult{Valid: true, Entries: len(cat.Entries)})
	}
	fmt.Fprintf(formatter.Writer, "✓ Catalogue valid (%d entries)\n", len(cat.Entries))
	return nil
}

// ValidateCatalogue compiles the catalogue at path and returns one
// Problem per error, in file order.
func ValidateCatalogue(path string) (*catalogue.Catalogue, []Problem) {
	cat, errs := catalogue.LoadPath(path, catalogue.Options{}, catalogue.CollectAll)

	var problems []Problem
	var flatten func(err error)
	flatten = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				flatten(inner)
			}
			return
		}
		problems = append(problems, problemOf(err))
	}
	for _, err := range errs {
		flatten(err)
	}
	if cat == nil && len(problems) == 0 {
		problems = append(problems, problemOf(errors.New("catalogue failed to load")))
	}
	return cat, problems
}

func printProblems(f *OutputFormatter, problems []Problem) {
	if f.isJSON() {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		_ = enc.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Errors: problems},
			Error:  &CLIError{Code: ErrCodeCatalogue, Message: problems[0].Message},
		})
		return
	}

	fmt.Fprint(f.Writer, "✗ Validation failed\n\n")
	for _, p := range problems {
		if p.Line > 0 {
			fmt.Fprintf(f.Writer, "%s:%d:%d\n", p.File, p.Line, p.Column)
		}
		var subject string
		switch {
		case p.Entry != "":
			subject = fmt.Sprintf("module %q: %s: ", p.Entry, p.Field)
		case p.Field != "":
			subject = p.Field + ": "
		}
		fmt.Fprintf(f.Writer, "  %s: %s%s\n\n", ErrCodeCatalogue, subject, p.Message)
	}
}
