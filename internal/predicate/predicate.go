package predicate

import (
	"github.com/roach88/plugmods/internal/module"
)

// Resolver is the part of the resolution context a predicate may consult.
type Resolver interface {
	// Require returns the module for an alias or registry key, resolving
	// it on demand.
	Require(name string) (module.Value, bool)

	// IsInSameNamespace reports whether the registry key `name` shares a
	// directory with the key that `other` resolves to.
	IsInSameNamespace(name, other string) bool
}

// Func tests a candidate module found under registry key `key`.
type Func func(m module.Value, key string, r Resolver) bool

// Of lifts a plain shape test into a Func.
func Of(test func(m module.Value) bool) Func {
	return func(m module.Value, _ string, _ Resolver) bool {
		return test(m)
	}
}

// Safe wraps f so that a panic inside it counts as a non-match.
func Safe(f Func) Func {
	return func(m module.Value, key string, r Resolver) (ok bool) {
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		return f(m, key, r)
	}
}

// And holds when every predicate holds. Evaluation stops at the first
// false. And() with no predicates holds for every candidate.
func And(preds ...Func) Func {
	return func(m module.Value, key string, r Resolver) bool {
		for _, p := range preds {
			if !p(m, key, r) {
				return false
			}
		}
		return true
	}
}

// Or holds when any predicate holds.
func Or(preds ...Func) Func {
	return func(m module.Value, key string, r Resolver) bool {
		for _, p := range preds {
			if p(m, key, r) {
				return true
			}
		}
		return false
	}
}

// Not negates a predicate.
func Not(p Func) Func {
	return func(m module.Value, key string, r Resolver) bool {
		return !p(m, key, r)
	}
}
