package store

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun builds a run with the given resolutions, keyed alias -> key.
// Orders follow argument order starting at 1; fingerprints are "fp-<key>".
func createTestRun(id string, pairs ...string) *Run {
	run := &Run{
		ID:              id,
		SnapshotDigest:  "snap-" + id,
		CatalogueDigest: "cat",
		Resolutions:     []Resolution{},
		Misses:          []Miss{},
		Unknown:         []string{},
		Errors:          []string{},
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		run.Resolutions = append(run.Resolutions, Resolution{
			Alias:       pairs[i],
			Key:         pairs[i+1],
			Order:       int64(i/2 + 1),
			Fingerprint: "fp-" + pairs[i+1],
		})
	}
	return run
}
