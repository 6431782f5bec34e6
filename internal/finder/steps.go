package finder

import (
	"fmt"

	"github.com/roach88/plugmods/internal/module"
)

// SetupFunc provokes a side effect that makes a module discoverable, for
// example pushing a recognisable entry into a collection.
type SetupFunc func(c *Context)

// CleanupFunc undoes a setup side effect once the module has been found.
type CleanupFunc func(m module.Value, c *Context)

// Before runs setup, then evaluates d. When d declares prerequisites
// (see Needer), setup waits until all of them resolve: a deferred attempt
// never runs it.
func Before(setup SetupFunc, d Detective) Detective {
	return before(setup, d, needsOf(d))
}

func before(setup SetupFunc, d Detective, needs []string) Detective {
	return DetectiveFunc(func(c *Context) (string, error) {
		for _, name := range needs {
			if _, ok := c.Require(name); !ok {
				return "", ErrDeferred
			}
		}
		setup(c)
		return d.Detect(c)
	})
}

func needsOf(d Detective) []string {
	if n, ok := d.(Needer); ok {
		return n.Needs()
	}
	return nil
}

// After evaluates d and, only when d found a module, runs cleanup with it.
// A panic in cleanup is recorded as a diagnostic; the match stands.
func After(d Detective, cleanup CleanupFunc) Detective {
	return DetectiveFunc(func(c *Context) (string, error) {
		key, err := d.Detect(c)
		if err != nil || key == "" {
			return key, err
		}
		m, _ := c.literal(key)
		c.runCleanup(key, m, cleanup)
		return key, nil
	})
}

// Stepwise composes setup, d and cleanup: setup runs before d scans and
// only once d's prerequisites are in place, cleanup runs once after d
// succeeds and never when it fails.
func Stepwise(setup SetupFunc, d Detective, cleanup CleanupFunc) Detective {
	needs := needsOf(d)
	if cleanup != nil {
		d = After(d, cleanup)
	}
	if setup != nil {
		d = before(setup, d, needs)
	}
	return d
}

func (c *Context) runCleanup(key string, m module.Value, cleanup CleanupFunc) {
	defer func() {
		if r := recover(); r != nil {
			c.record(&ResolveError{
				Code:    ErrCodeCleanupFailed,
				Alias:   c.current(),
				Message: fmt.Sprintf("cleanup for %s panicked: %v", key, r),
			})
		}
	}()
	cleanup(m, c)
}
