package catalogue

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports an invalid catalogue entry.
type CompileError struct {
	// Entry is the alias of the offending entry, if any.
	Entry string

	// Field is the catalogue field at fault, e.g. "match.equals".
	Field string

	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	field := e.Field
	if e.Entry != "" {
		field = fmt.Sprintf("module %q: %s", e.Entry, e.Field)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			field, e.Message)
	}
	return fmt.Sprintf("%s: %s", field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// withEntry attributes a compile error to an entry.
func withEntry(err error, name string) error {
	if ce, ok := err.(*CompileError); ok && ce.Entry == "" {
		ce.Entry = name
	}
	return err
}
