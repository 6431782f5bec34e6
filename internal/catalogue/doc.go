// Package catalogue compiles declarative detective catalogues written in
// CUE.
//
// A catalogue declares one entry per alias under the top-level "module"
// struct:
//
//	module: "plug/models/Media": match: {
//		defaults: true
//		has: ["prototype.defaults.cid"]
//	}
//
//	module: "plug/collections/playlists": {
//		needs: ["plug/models/Playlist"]
//		match: collectionOf: "plug/models/Playlist"
//	}
//
//	module: "plug/core/Events": fetch: {from: "plug/core/Class", path: "events"}
//
//	module: "plug/actions/media/MediaDeleteAction": action: {
//		method:  "POST"
//		pattern: "/media/delete$"
//	}
//
//	module: "plug/handlers/AlertHandler": handler: "AlertEvent:alert"
//
// Each entry names exactly one way to find its module: match, both, fetch,
// action or handler. needs lists prerequisites the detective waits for.
// setup and cleanup name Go hooks supplied through Options.
//
// # Match conditions
//
// Every condition in a match struct must hold:
//
//   - callable, has, truthy: member paths (string or list)
//   - protoCallable, protoOwn: prototype member names
//   - bases: base type names the candidate is an instance of
//   - equals: {path: scalar}
//   - source: substring of the candidate's own source
//   - contains, matches, seemsEqual: {path: substring | regexp | source}
//   - view, dialog, defaults: true (or false to exclude)
//   - attributes: model attribute names
//   - collectionOf, sameNamespaceAs: an alias
//   - refEquals: {path: "alias" or "alias.member.path"}
//   - notRef: aliases the candidate must not be
//   - element: a selector the rendered view must contain
//   - not: a nested match that must not hold
//   - any: a list of nested matches, one of which must hold
//
// # Validation
//
// Unknown fields, unknown hooks, an entry that needs itself, and cycles
// among the prerequisites of declared entries are compile errors carrying
// CUE source positions. Prerequisites that are not declared entries are
// allowed; they may be raw registry keys.
package catalogue
