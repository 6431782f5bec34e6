// Package predicate provides the fingerprint tests that identify modules.
//
// A predicate is a total function over a candidate module: it never panics
// and answers false for nil candidates and for any shape mismatch. Two
// layers are provided:
//
//   - plain helpers over module.Value (IsView, FunctionContains,
//     FunctionsSeemEqual, ...) for hand-written fingerprints
//   - Func constructors (Callable, Equals, CollectionOf, ...) that the
//     catalogue compiler composes from declarative entries
//
// Predicates that must consult other resolved modules do so through the
// Resolver interface, which the resolution context implements.
package predicate
