package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareRuns(t *testing.T) {
	a := createTestRun("a",
		"plug/models/User", "de369/a",
		"plug/views/Old", "de369/b",
		"plug/core/Class", "de369/c",
		"plug/util/dom", "de369/d",
	)
	b := createTestRun("b",
		"plug/models/User", "de369/a",
		"plug/core/Class", "de369/e",
		"plug/util/dom", "de369/d",
		"plug/views/New", "de369/f",
	)
	b.Resolutions[2].Fingerprint = "fp-changed"

	got := CompareRuns(a, b)
	want := &Diff{
		From:  "a",
		To:    "b",
		Found: []Change{{Alias: "plug/views/New", ToKey: "de369/f", ToFingerprint: "fp-de369/f"}},
		Lost:  []Change{{Alias: "plug/views/Old", FromKey: "de369/b", FromFingerprint: "fp-de369/b"}},
		Moved: []Change{{
			Alias: "plug/core/Class", FromKey: "de369/c", ToKey: "de369/e",
			FromFingerprint: "fp-de369/c", ToFingerprint: "fp-de369/e",
		}},
		Reshaped: []Change{{
			Alias: "plug/util/dom", FromKey: "de369/d", ToKey: "de369/d",
			FromFingerprint: "fp-de369/d", ToFingerprint: "fp-changed",
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CompareRuns() mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.Empty())
}

func TestCompareRuns_Identical(t *testing.T) {
	a := createTestRun("a", "x", "k1", "y", "k2")
	b := createTestRun("b", "y", "k2", "x", "k1")
	assert.True(t, CompareRuns(a, b).Empty())
}

func TestDiffRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("a", "x", "k1")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("b", "x", "k1", "y", "k2")))

	d, err := s.DiffRuns(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []Change{{Alias: "y", ToKey: "k2", ToFingerprint: "fp-k2"}}, d.Found)
	assert.Empty(t, d.Lost)

	_, err = s.DiffRuns(ctx, "a", "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
