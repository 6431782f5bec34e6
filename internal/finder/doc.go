// Package finder implements the module resolution engine.
//
// A Context borrows a Registry (the host application's table of opaque
// module keys) and owns a set of named detectives. Each detective locates
// one module, either by scanning the registry with a predicate (Match) or
// by deriving the module from modules already resolved (Fetch). Once found,
// the module is aliased under the detective's name and claimed, so no other
// detective can take it.
//
// RESOLUTION MODEL:
//
// Require is memoized and re-entrant. Resolving a name checks, in order:
//  1. a literal registry key of that name
//  2. the alias table, following chains
//  3. the named detective, attempted at most once
//
// A detective wrapped in Depends requires its prerequisites first, which
// recursively attempts their detectives. Missing prerequisites yield
// ErrDeferred, which is NOT an attempt: the detective stays pending and is
// retried by a later Require or Run pass. Any other outcome (found, not
// found, error, panic) is final for that detective.
//
// Run drives every declared name through Require and repeats passes while
// a pass made progress, so catalogues may be declared in any order.
//
// An in-progress guard turns dependency cycles into CYCLE_DETECTED
// diagnostics instead of unbounded recursion; the inner Require yields
// absent and the outer detective defers.
//
// CONCURRENCY:
//
// A Context is not safe for concurrent use. Resolution is synchronous and
// single-threaded; the registry must not change during a Run.
package finder
