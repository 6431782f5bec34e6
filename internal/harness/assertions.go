package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/plugmods/internal/finder"
)

// Expectation names, used as AssertionError.Type.
const (
	ExpectResolved = "resolved"
	ExpectNotFound = "not_found"
	ExpectDeferred = "deferred"
	ExpectUnknown  = "unknown"
	ExpectOrder    = "order"
	ExpectErrors   = "errors"
)

// AssertionError is returned when an expectation fails.
// It includes the resolved table to help debug the failure.
type AssertionError struct {
	Type     string // Expectation name
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Resolved []finder.Resolution
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Resolved) > 0 {
		fmt.Fprintf(&buf, "\nResolved:\n")
		for _, r := range e.Resolved {
			fmt.Fprintf(&buf, "  [%d] %s = %s\n", r.Order, r.Alias, r.Key)
		}
	}
	return buf.String()
}

// EvaluateExpectations checks every expectation against a report and
// returns one message per failure, in a fixed order.
func EvaluateExpectations(r *finder.Report, exp Expectations) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if exp.Resolved != nil {
		add(assertResolved(r, exp.Resolved))
	}
	if exp.NotFound != nil {
		add(assertSet(r, ExpectNotFound, exp.NotFound, r.NotFound))
	}
	if exp.Deferred != nil {
		add(assertSet(r, ExpectDeferred, exp.Deferred, r.Deferred))
	}
	if exp.Unknown != nil {
		add(assertSet(r, ExpectUnknown, exp.Unknown, r.Unknown))
	}
	if len(exp.Order) > 0 {
		add(assertOrder(r, exp.Order))
	}
	if len(exp.Errors) > 0 || exp.NoErrors {
		add(assertErrors(r, exp.Errors, exp.NoErrors))
	}
	return errs
}

// assertResolved checks that every listed alias resolved to its key.
// Aliases are checked in sorted order so the first failure is stable.
func assertResolved(r *finder.Report, want map[string]string) error {
	got := r.Keys()
	aliases := make([]string, 0, len(want))
	for alias := range want {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		key, ok := got[alias]
		if !ok {
			return &AssertionError{
				Type:     ExpectResolved,
				Expected: fmt.Sprintf("%s = %s", alias, want[alias]),
				Actual:   "alias did not resolve",
				Resolved: r.Resolved,
			}
		}
		if key != want[alias] {
			return &AssertionError{
				Type:     ExpectResolved,
				Expected: fmt.Sprintf("%s = %s", alias, want[alias]),
				Actual:   fmt.Sprintf("%s = %s", alias, key),
				Resolved: r.Resolved,
			}
		}
	}
	return nil
}

// assertSet compares two lists ignoring order.
func assertSet(r *finder.Report, kind string, want, got []string) error {
	a := slices.Sorted(slices.Values(want))
	b := slices.Sorted(slices.Values(got))
	if slices.Equal(a, b) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%v", a),
		Actual:   fmt.Sprintf("%v", b),
		Resolved: r.Resolved,
	}
}

// assertOrder checks that aliases resolved in the listed relative order.
// Intervening aliases are allowed.
func assertOrder(r *finder.Report, want []string) error {
	positions := make(map[string]int64, len(r.Resolved))
	for _, res := range r.Resolved {
		positions[res.Alias] = res.Order
	}

	for _, alias := range want {
		if _, ok := positions[alias]; !ok {
			return &AssertionError{
				Type:     ExpectOrder,
				Expected: fmt.Sprintf("all aliases resolved: %v", want),
				Actual:   fmt.Sprintf("missing alias: %s", alias),
				Resolved: r.Resolved,
			}
		}
	}

	for i := 1; i < len(want); i++ {
		prev, curr := want[i-1], want[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     ExpectOrder,
				Expected: fmt.Sprintf("aliases in order: %v", want),
				Actual: fmt.Sprintf("%s (order %d) should be before %s (order %d)",
					prev, positions[prev], curr, positions[curr]),
				Resolved: r.Resolved,
			}
		}
	}
	return nil
}

func assertErrors(r *finder.Report, substrings []string, none bool) error {
	if none && len(r.Errors) > 0 {
		return &AssertionError{
			Type:     ExpectErrors,
			Expected: "no errors",
			Actual:   strings.Join(r.Errors, "; "),
		}
	}
	for _, sub := range substrings {
		found := slices.ContainsFunc(r.Errors, func(e string) bool {
			return strings.Contains(e, sub)
		})
		if !found {
			return &AssertionError{
				Type:     ExpectErrors,
				Expected: fmt.Sprintf("an error containing %q", sub),
				Actual:   fmt.Sprintf("%v", r.Errors),
			}
		}
	}
	return nil
}
