package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipsmith/clipsmith/internal/config"
	"github.com/clipsmith/clipsmith/internal/database"
	"github.com/clipsmith/clipsmith/internal/models"
	"github.com/clipsmith/clipsmith/internal/repository"
)

func newTestSessionService(t *testing.T) *SessionService {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: "silent",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db.DB))
	t.Cleanup(func() { _ = db.Close() })

	return NewSessionService(
		repository.NewSessionRepository(db.DB),
		repository.NewSessionStateRepository(db.DB),
		repository.NewSessionVersionRepository(db.DB),
	)
}

func TestSessionService_CreateValidation(t *testing.T) {
	svc := newTestSessionService(t)
	ctx := context.Background()

	err := svc.Create(ctx, &models.Session{UserID: "u1", SessionID: "s1"})
	assert.ErrorIs(t, err, models.ErrAppNameRequired)

	err = svc.Create(ctx, &models.Session{AppName: "clipsmith", SessionID: "s1"})
	assert.ErrorIs(t, err, models.ErrUserIDRequired)

	err = svc.Create(ctx, &models.Session{AppName: "clipsmith", UserID: "u1"})
	assert.ErrorIs(t, err, models.ErrSessionIDRequired)
}

func TestSessionService_CreateAndGet(t *testing.T) {
	svc := newTestSessionService(t)
	ctx := context.Background()

	session := &models.Session{
		AppName:   "clipsmith",
		UserID:    "u1",
		SessionID: "s1",
		VideoURL:  "gs://bucket/orig.mp4",
	}
	require.NoError(t, svc.Create(ctx, session))

	got, err := svc.Get(ctx, "clipsmith", "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/orig.mp4", got.VideoURL)

	_, err = svc.Get(ctx, "clipsmith", "u1", "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	// duplicate create rejected
	err = svc.Create(ctx, &models.Session{AppName: "clipsmith", UserID: "u1", SessionID: "s1"})
	assert.Error(t, err)
}

func TestSessionService_GetOrCreate(t *testing.T) {
	svc := newTestSessionService(t)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "clipsmith", "u1", "s1")
	require.NoError(t, err)

	second, err := svc.GetOrCreate(ctx, "clipsmith", "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSessionService_EditQueueRoundTrip(t *testing.T) {
	svc := newTestSessionService(t)
	ctx := context.Background()

	session, err := svc.GetOrCreate(ctx, "clipsmith", "u1", "s1")
	require.NoError(t, err)

	_, err = svc.LoadEditQueue(ctx, session)
	assert.ErrorIs(t, err, models.ErrNoEditQueue)

	q := models.NewEditQueue("s1", "gs://bucket/orig.mp4", "vid-1")
	q.AddEdit(models.NewEdit(models.EditTypeVoiceover, models.Params{"text": "hi", "start_ms": 500}))
	require.NoError(t, svc.SaveEditQueue(ctx, session, q))

	got, err := svc.LoadEditQueue(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/orig.mp4", got.OriginalVideoURL)
	require.Len(t, got.Edits, 1)
	assert.Equal(t, 500, got.Edits[0].Params.Int("start_ms"))
}

func TestSessionService_RecordVersion(t *testing.T) {
	svc := newTestSessionService(t)
	ctx := context.Background()

	session, err := svc.GetOrCreate(ctx, "clipsmith", "u1", "s1")
	require.NoError(t, err)

	v1, err := svc.RecordVersion(ctx, session, "gs://bucket/v1.mp4", json.RawMessage(`{"edits":1}`))
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)

	v2, err := svc.RecordVersion(ctx, session, "gs://bucket/v2.mp4", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)

	versions, err := svc.ListVersions(ctx, session)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "gs://bucket/v1.mp4", versions[0].VideoURL)
}

func TestSessionService_Delete(t *testing.T) {
	svc := newTestSessionService(t)
	ctx := context.Background()

	session, err := svc.GetOrCreate(ctx, "clipsmith", "u1", "s1")
	require.NoError(t, err)
	require.NoError(t, svc.SaveEditQueue(ctx, session, models.NewEditQueue("s1", "orig", "")))

	require.NoError(t, svc.Delete(ctx, "clipsmith", "u1", "s1"))

	_, err = svc.Get(ctx, "clipsmith", "u1", "s1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	err = svc.Delete(ctx, "clipsmith", "u1", "s1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}
