package finder

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel detective outcomes.
var (
	// ErrNotFound means the detective looked and no module matched. The
	// attempt is permanent.
	ErrNotFound = errors.New("module not found")

	// ErrDeferred means a prerequisite is not resolved yet. The detective
	// stays pending and will be attempted again.
	ErrDeferred = errors.New("prerequisites not resolved")
)

// ResolveErrorCode categorizes resolution diagnostics.
type ResolveErrorCode string

const (
	// ErrCodeDuplicateAlias indicates a second detective was added under
	// an existing name.
	ErrCodeDuplicateAlias ResolveErrorCode = "DUPLICATE_ALIAS"

	// ErrCodeCycleDetected indicates a name was required while its own
	// detective was still running.
	ErrCodeCycleDetected ResolveErrorCode = "CYCLE_DETECTED"

	// ErrCodeDetectivePanic indicates a detective panicked.
	ErrCodeDetectivePanic ResolveErrorCode = "DETECTIVE_PANIC"

	// ErrCodeDetectiveFailed indicates a detective returned an error other
	// than ErrNotFound or ErrDeferred, or a key the registry does not hold.
	ErrCodeDetectiveFailed ResolveErrorCode = "DETECTIVE_FAILED"

	// ErrCodeCleanupFailed indicates a cleanup step panicked after a
	// successful match.
	ErrCodeCleanupFailed ResolveErrorCode = "CLEANUP_FAILED"

	// ErrCodeAlreadyClaimed indicates a module is already aliased by
	// another name.
	ErrCodeAlreadyClaimed ResolveErrorCode = "ALREADY_CLAIMED"

	// ErrCodeAliasConflict indicates an alias was redefined to a different
	// target, or would form a chain back to itself.
	ErrCodeAliasConflict ResolveErrorCode = "ALIAS_CONFLICT"

	// ErrCodeRegistryUnavailable indicates the context has no registry.
	ErrCodeRegistryUnavailable ResolveErrorCode = "REGISTRY_UNAVAILABLE"

	// ErrCodeRegistryReadOnly indicates Register was called on a registry
	// that cannot be written.
	ErrCodeRegistryReadOnly ResolveErrorCode = "REGISTRY_READ_ONLY"
)

// ResolveError is a diagnostic raised while resolving an alias.
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Alias is the detective or alias name involved, if any.
	Alias string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Alias != "" {
		msg = fmt.Sprintf("%s (alias=%s)", msg, e.Alias)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is a ResolveError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code ResolveErrorCode) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsCycleError returns true if the error is a cycle detection error.
func IsCycleError(err error) bool {
	return HasCode(err, ErrCodeCycleDetected)
}

// IsDuplicateAlias returns true if the error reports a duplicate detective.
func IsDuplicateAlias(err error) bool {
	return HasCode(err, ErrCodeDuplicateAlias)
}

// IsAlreadyClaimed returns true if the error reports a double claim.
func IsAlreadyClaimed(err error) bool {
	return HasCode(err, ErrCodeAlreadyClaimed)
}

func newDuplicateAlias(name string) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeDuplicateAlias,
		Alias:   name,
		Message: "a detective is already registered under this name",
	}
}

func newCycleError(name string, path []string) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeCycleDetected,
		Alias:   name,
		Message: fmt.Sprintf("required while resolving itself: %s", strings.Join(path, " -> ")),
	}
}

func newPanicError(name string, recovered any) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeDetectivePanic,
		Alias:   name,
		Message: fmt.Sprintf("detective panicked: %v", recovered),
	}
}
