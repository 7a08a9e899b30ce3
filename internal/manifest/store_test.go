package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linusmossberg/light-field-renderer/internal/capture"
	"github.com/linusmossberg/light-field-renderer/internal/host"
	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testInfo(t *testing.T) capture.Info {
	t.Helper()
	g, err := lightfield.NewGrid(lightfield.Aperture{Extent: 800, Count: 27}, lightfield.Aperture{Extent: 400, Count: 9})
	require.NoError(t, err)
	return capture.Info{
		ID:        uuid.NewString(),
		Camera:    "Camera",
		Grid:      g,
		Lens:      host.Lens{FocalLength: 50, SensorWidth: 36},
		Dir:       "/tmp/out",
		StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOpenMigrates(t *testing.T) {
	s := openTestStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	ctx := context.Background()
	s, err := Open(ctx, path)
	require.NoError(t, err)
	info := testInfo(t)
	require.NoError(t, s.BeginSession(ctx, info))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	sess, err := s.Session(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "running", sess.Status)
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	info := testInfo(t)
	require.NoError(t, s.BeginSession(ctx, info))

	ok := capture.View{
		Sample:     info.Grid.At(0, 1),
		Identifier: "Camera_00_01",
		Path:       "/tmp/out/Camera_00_01.png",
		Seed:       1,
		Duration:   1500 * time.Millisecond,
	}
	bad := capture.View{Sample: info.Grid.At(0, 0), Identifier: "Camera_00_00", Path: "/tmp/out/Camera_00_00.png"}
	require.NoError(t, s.RecordView(ctx, info.ID, ok, nil))
	require.NoError(t, s.RecordView(ctx, info.ID, bad, errors.New("disk full")))
	require.NoError(t, s.FinishSession(ctx, info.ID, capture.StatusIncomplete))

	sess, err := s.Session(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.Camera, sess.Camera)
	assert.Equal(t, info.Grid, sess.Grid)
	assert.Equal(t, info.Lens, sess.Lens)
	assert.Equal(t, capture.StatusIncomplete, sess.Status)
	assert.True(t, sess.StartedAt.Equal(info.StartedAt))
	assert.False(t, sess.FinishedAt.IsZero())
	assert.Equal(t, 1, sess.Captured)
	assert.Equal(t, 1, sess.Failed)

	caps, err := s.Captures(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, caps, 2)
	assert.Equal(t, 0, caps[0].Sample.Index)
	assert.Equal(t, "disk full", caps[0].Error)
	assert.Equal(t, ok.Sample, caps[1].Sample)
	assert.Equal(t, int64(1), caps[1].Seed)
	assert.Equal(t, 1500*time.Millisecond, caps[1].Duration)
	assert.Empty(t, caps[1].Error)
}

func TestRecordViewReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	info := testInfo(t)
	require.NoError(t, s.BeginSession(ctx, info))

	v := capture.View{Sample: info.Grid.At(1, 1), Identifier: "x", Path: "x.png"}
	require.NoError(t, s.RecordView(ctx, info.ID, v, errors.New("boom")))
	require.NoError(t, s.RecordView(ctx, info.ID, v, nil))

	caps, err := s.Captures(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Empty(t, caps[0].Error)
}

func TestRecordViewUnknownSession(t *testing.T) {
	s := openTestStore(t)
	err := s.RecordView(context.Background(), "missing", capture.View{Identifier: "x"}, nil)
	assert.Error(t, err)
}

func TestSessionsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	older, newer := testInfo(t), testInfo(t)
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	require.NoError(t, s.BeginSession(ctx, older))
	require.NoError(t, s.BeginSession(ctx, newer))

	list, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Session(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.FinishSession(ctx, "nope", capture.StatusComplete), ErrNotFound))
	assert.True(t, errors.Is(s.DeleteSession(ctx, "nope"), ErrNotFound))
}

func TestDeleteSessionCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	info := testInfo(t)
	require.NoError(t, s.BeginSession(ctx, info))
	require.NoError(t, s.RecordView(ctx, info.ID, capture.View{Sample: info.Grid.At(0, 0), Identifier: "a"}, nil))

	require.NoError(t, s.DeleteSession(ctx, info.ID))
	caps, err := s.Captures(ctx, info.ID)
	require.NoError(t, err)
	assert.Empty(t, caps)
}

func TestStoreAsRecorder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	h := &stubHost{}
	g, err := lightfield.NewGrid(lightfield.Aperture{Extent: 10, Count: 2}, lightfield.Aperture{Extent: 10, Count: 3})
	require.NoError(t, err)

	res, err := capture.Run(ctx, h, capture.Options{Grid: g, Dir: t.TempDir(), Recorder: s})
	require.NoError(t, err)

	sess, err := s.Session(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, capture.StatusComplete, sess.Status)
	assert.Equal(t, 6, sess.Captured)
	caps, err := s.Captures(ctx, res.SessionID)
	require.NoError(t, err)
	for i, c := range caps {
		assert.Equal(t, int64(i), c.Seed)
		assert.Equal(t, res.Views[i].Identifier, c.Identifier)
	}
}

func TestMigrateDown(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.MigrateDown())
	version, _, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	_, err = s.Sessions(context.Background())
	assert.Error(t, err)
	require.NoError(t, s.MigrateUp())
}
