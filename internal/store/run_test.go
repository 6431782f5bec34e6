package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plugmods/internal/finder"
)

func testReport() *finder.Report {
	return &finder.Report{
		Resolved: []finder.Resolution{
			{Alias: "Manual", Key: "de369/z", Order: 0, Fingerprint: "fp0"},
			{Alias: "plug/models/User", Key: "de369/a", Order: 1, Fingerprint: "fp1"},
			{Alias: "plug/collections/users", Key: "de369/b", Order: 2, Fingerprint: "fp2"},
		},
		NotFound: []string{"plug/views/Dialog"},
		Deferred: []string{"plug/models/Orphan"},
		Unknown:  []string{"de369/c"},
		Errors:   []string{"NOT_FOUND: detective found nothing (alias=plug/views/Dialog)"},
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun(NewFixedGenerator("run-1"), testReport(), "snap", "cat", "app.yaml")

	want := &Run{
		ID:              "run-1",
		Label:           "app.yaml",
		SnapshotDigest:  "snap",
		CatalogueDigest: "cat",
		Resolutions: []Resolution{
			{Alias: "Manual", Key: "de369/z", Order: 0, Fingerprint: "fp0"},
			{Alias: "plug/models/User", Key: "de369/a", Order: 1, Fingerprint: "fp1"},
			{Alias: "plug/collections/users", Key: "de369/b", Order: 2, Fingerprint: "fp2"},
		},
		Misses: []Miss{
			{Alias: "plug/views/Dialog", Reason: MissNotFound},
			{Alias: "plug/models/Orphan", Reason: MissDeferred},
		},
		Unknown: []string{"de369/c"},
		Errors:  []string{"NOT_FOUND: detective found nothing (alias=plug/views/Dialog)"},
	}
	if diff := cmp.Diff(want, run); diff != "" {
		t.Errorf("NewRun() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRun_ReadRunRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := NewRun(NewFixedGenerator("run-1"), testReport(), "snap", "cat", "app.yaml")
	require.NoError(t, s.WriteRun(ctx, run))
	assert.Equal(t, int64(1), run.Seq)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("ReadRun() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRun_AssignsIncreasingSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		run := createTestRun(id)
		require.NoError(t, s.WriteRun(ctx, run))
		assert.Equal(t, int64(i+1), run.Seq, "run %s", id)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRun("r1", "plug/models/User", "de369/a")
	require.NoError(t, s.WriteRun(ctx, first))

	again := createTestRun("r1", "plug/models/User", "de369/other")
	require.NoError(t, s.WriteRun(ctx, again))
	assert.Equal(t, first.Seq, again.Seq)

	got, err := s.ReadRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got.Resolutions, 1)
	assert.Equal(t, "de369/a", got.Resolutions[0].Key)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestWriteRun_RequiresID(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteRun(context.Background(), &Run{})
	assert.ErrorContains(t, err, "id is required")
}

func TestWriteRun_UUIDv7(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := NewRun(UUIDv7Generator{}, testReport(), "snap", "cat", "")
	parsed, err := uuid.Parse(run.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	require.NoError(t, s.WriteRun(ctx, run))
	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReadRun_OrdersResolutions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("r1")
	run.Resolutions = []Resolution{
		{Alias: "b", Key: "k2", Order: 2, Fingerprint: "f"},
		{Alias: "z", Key: "k1", Order: 1, Fingerprint: "f"},
		{Alias: "a", Key: "k3", Order: 2, Fingerprint: "f"},
	}
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "r1")
	require.NoError(t, err)
	var aliases []string
	for _, r := range got.Resolutions {
		aliases = append(aliases, r.Alias)
	}
	assert.Equal(t, []string{"z", "a", "b"}, aliases)
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	require.NoError(t, s.WriteRun(ctx, NewRun(NewFixedGenerator("r1"), testReport(), "s1", "c", "first")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("r2", "x", "k")))

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	want := []RunSummary{
		{ID: "r1", Seq: 1, Label: "first", SnapshotDigest: "s1", CatalogueDigest: "c", Resolved: 3, Missed: 2},
		{ID: "r2", Seq: 2, SnapshotDigest: "snap-r2", CatalogueDigest: "cat", Resolved: 1},
	}
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Errorf("ListRuns() mismatch (-want +got):\n%s", diff)
	}
}

func TestLatestRun_Empty(t *testing.T) {
	s := createTestStore(t)
	_, err := s.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestAliasHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("r1", "plug/models/User", "de369/a")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("r2", "other", "de369/x")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("r3", "plug/models/User", "de369/q")))

	hist, err := s.AliasHistory(ctx, "plug/models/User")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "de369/a", hist[0].Key)
	assert.Equal(t, "de369/q", hist[1].Key)
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
