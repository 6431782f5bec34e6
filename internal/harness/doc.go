// Package harness runs resolution scenarios as executable contract tests
// for detective catalogues.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: media_library
//	description: "What this scenario validates"
//	snapshot: ../snapshots/app.yaml      # or an inline `registry:` document
//	catalogue_path: ../catalogues/plug   # or inline `catalogue:` CUE source
//	define:
//	  - alias: plug/util/Util
//	    target: de369/u
//	exclude: ["plug/"]
//	expect:
//	  resolved:
//	    plug/models/Media: de369/a
//	  not_found: [plug/views/dialogs/AlertDialog]
//	  deferred: []
//	  unknown: [de369/z]
//	  order: [plug/models/Playlist, plug/collections/playlists]
//	  no_errors: true
//
// Unknown fields are rejected, so a typo fails loudly instead of silently
// disabling an expectation.
//
// # Expectations
//
//   - resolved: each listed alias resolved to the given registry key
//   - not_found, deferred, unknown: the report lists exactly these names
//   - order: the listed aliases resolved in this relative order
//   - errors: each substring appears in some recorded error
//   - no_errors: the run recorded no errors
//
// # Golden Reports
//
// RunWithGolden compares the canonical report of a scenario with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// Outside tests, RunSuite and CheckGolden do the same comparison for the
// `plugmods test` command.
package harness
