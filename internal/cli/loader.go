package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/plugmods/internal/catalogue"
	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/snapshot"
)

// LoadError represents an error that occurred while loading the inputs of
// a command.
type LoadError struct {
	Code    string
	Message string

	// Details carries one line per underlying problem, e.g. every compile
	// error of a catalogue.
	Details []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Problem is one catalogue compile error in machine-readable form.
type Problem struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Entry   string `json:"entry,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// problemOf flattens a catalogue error for output.
func problemOf(err error) Problem {
	var ce *catalogue.CompileError
	if !errors.As(err, &ce) {
		return Problem{Message: err.Error()}
	}
	p := Problem{Entry: ce.Entry, Field: ce.Field, Message: ce.Message}
	if ce.Pos.IsValid() {
		p.File = ce.Pos.Filename()
		p.Line = ce.Pos.Line()
		p.Column = ce.Pos.Column()
	}
	return p
}

// loadCatalogue loads a catalogue directory or file.
func loadCatalogue(path string, opts catalogue.Options, mode catalogue.LoadMode) (*catalogue.Catalogue, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalogue not found: %s", path)}
	}
	cat, errs := catalogue.LoadPath(path, opts, mode)
	if len(errs) == 0 {
		return cat, nil
	}
	details := make([]string, len(errs))
	for i, err := range errs {
		details[i] = err.Error()
	}
	return nil, &LoadError{
		Code:    ErrCodeCatalogue,
		Message: fmt.Sprintf("catalogue %s has %d error(s)", path, len(errs)),
		Details: details,
	}
}

// loadSnapshot decodes a snapshot file.
func loadSnapshot(path string) (*snapshot.Snapshot, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("snapshot not found: %s", path)}
	}
	snap, err := snapshot.Load(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSnapshot, Message: err.Error()}
	}
	return snap, nil
}

// resolution is one complete pass of the engine over a snapshot.
type resolution struct {
	Context *finder.Context
	Report  *finder.Report
}

// resolve installs the catalogue into a fresh context over reg and runs
// it to completion.
func resolve(cat *catalogue.Catalogue, reg finder.Registry, excludes []string, logger *slog.Logger) (*resolution, error) {
	ctx := finder.New(reg,
		finder.WithLogger(logger),
		finder.WithExcludedPrefixes(excludes...),
	)
	if err := cat.Install(ctx); err != nil {
		return nil, &LoadError{Code: ErrCodeCatalogue, Message: err.Error()}
	}
	ctx.Run()
	return &resolution{Context: ctx, Report: ctx.Report()}, nil
}

// reportLoadError writes err through the formatter and maps it to an exit
// code: missing inputs and unreadable files are command errors.
func reportLoadError(f *OutputFormatter, err error) error {
	var le *LoadError
	if !errors.As(err, &le) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	var details any
	if len(le.Details) > 0 {
		details = le.Details
	}
	if f.Format != "json" && len(le.Details) > 0 && !f.Verbose {
		// Compile errors are the whole point of the message in text mode.
		_ = f.Error(le.Code, le.Message, nil)
		printDetails(f.Writer, le.Details)
		return NewExitError(ExitCommandError, le.Error())
	}
	return f.Fail(ExitCommandError, le.Code, le.Message, details)
}

func printDetails(w io.Writer, details []string) {
	for _, d := range details {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
