package finder

import (
	"github.com/roach88/plugmods/internal/module"
	"github.com/roach88/plugmods/internal/predicate"
)

// Matcher is a detective that scans the registry for the first unclaimed
// module satisfying a predicate.
type Matcher struct {
	pred predicate.Func
}

// Match returns a Matcher for pred.
//
// Keys are scanned in registry enumeration order. Absent or falsy entries
// and entries already claimed by an alias are skipped. A predicate that
// panics for one candidate counts as a non-match for that candidate only;
// the scan continues.
func Match(pred predicate.Func) *Matcher {
	return &Matcher{pred: pred}
}

// Predicate returns the predicate the matcher scans with.
func (m *Matcher) Predicate() predicate.Func {
	return m.pred
}

// Detect implements Detective.
func (m *Matcher) Detect(c *Context) (string, error) {
	if c.registry == nil {
		return "", ErrNotFound
	}
	for _, key := range c.registry.Keys() {
		v, ok := c.registry.Get(key)
		if !ok || !module.Truthy(v) || c.isClaimed(key, v) {
			continue
		}
		if c.evaluate(m.pred, v, key) {
			return key, nil
		}
	}
	return "", ErrNotFound
}

// Both returns a Matcher whose predicate holds when both a's and b's do,
// evaluated against the same candidate, key and context. b is not
// evaluated for candidates a rejects.
func Both(a, b *Matcher) *Matcher {
	return Match(predicate.And(a.pred, b.pred))
}
