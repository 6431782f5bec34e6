// Package module models the opaque values found in the registry of a
// bundled AMD application.
//
// Values are a sealed sum type. All other internal packages import module;
// module imports nothing internal.
//
// Key design constraints:
//   - Composite values (*Object, *Func, *Array) are pointers, so == is
//     identity and two registry entries hold "the same module" exactly when
//     their values compare equal
//   - Accessors never panic: a missing member, a nil value or a shape
//     mismatch yields nil or false
//   - Object fields keep insertion order so enumeration is deterministic
//   - Fingerprints hash canonical JSON, never floats
package module
