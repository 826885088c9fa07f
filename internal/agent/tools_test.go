package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipsmith/clipsmith/internal/config"
	"github.com/clipsmith/clipsmith/internal/database"
	"github.com/clipsmith/clipsmith/internal/media"
	"github.com/clipsmith/clipsmith/internal/models"
	"github.com/clipsmith/clipsmith/internal/pipeline"
	"github.com/clipsmith/clipsmith/internal/repository"
	"github.com/clipsmith/clipsmith/internal/service"
)

type stubTTS struct {
	calls int
	err   error
}

func (s *stubTTS) Synthesize(ctx context.Context, text, voiceName, languageCode string) (*media.SpeechResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &media.SpeechResult{LocalPath: fmt.Sprintf("/tmp/voice-%d.wav", s.calls)}, nil
}

type stubEditor struct {
	renders int
	err     error
}

func (s *stubEditor) AddTextOverlay(ctx context.Context, videoURL, userID, sessionID string, p media.TextOverlayParams) (string, error) {
	s.renders++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("https://storage.googleapis.com/scratch/render-%d.mp4", s.renders), nil
}

func (s *stubEditor) AddAudioOverlay(ctx context.Context, videoURL, userID, sessionID string, p media.AudioOverlayParams) (string, error) {
	s.renders++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("https://storage.googleapis.com/scratch/render-%d.mp4", s.renders), nil
}

func newTestTools(t *testing.T) (*Tools, *service.SessionService, *stubTTS, *stubEditor) {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: "silent",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db.DB))
	t.Cleanup(func() { _ = db.Close() })

	sessions := service.NewSessionService(
		repository.NewSessionRepository(db.DB),
		repository.NewSessionStateRepository(db.DB),
		repository.NewSessionVersionRepository(db.DB),
	)

	tts := &stubTTS{}
	editor := &stubEditor{}
	engine := pipeline.NewEngine(tts, editor, nil, nil)

	return NewTools(sessions, engine, nil), sessions, tts, editor
}

var testScope = Scope{AppName: "clipsmith", UserID: "u1", SessionID: "s1"}

func TestAddVoiceoverEdit_InitializesQueue(t *testing.T) {
	tools, sessions, tts, editor := newTestTools(t)
	ctx := context.Background()

	res := tools.AddVoiceoverEdit(ctx, testScope, "hello world", 2500, "gs://bucket/orig.mp4")
	require.Equal(t, "success", res.Status)
	assert.Equal(t, "Added voiceover at 2500ms", res.Message)
	assert.NotEmpty(t, res.EditID)
	assert.NotEmpty(t, res.VideoURL)
	assert.Equal(t, 1, tts.calls)
	assert.Equal(t, 1, editor.renders)

	// the queue and the version snapshot were persisted
	session, err := sessions.Get(ctx, testScope.AppName, testScope.UserID, testScope.SessionID)
	require.NoError(t, err)
	q, err := sessions.LoadEditQueue(ctx, session)
	require.NoError(t, err)
	require.Len(t, q.Edits, 1)
	assert.Equal(t, "gs://bucket/orig.mp4", q.OriginalVideoURL)
	assert.Equal(t, res.VideoURL, q.CurrentVideoURL)
	assert.Equal(t, res.VideoURL, q.Edits[0].ResultVideoURL)

	versions, err := sessions.ListVersions(ctx, session)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, res.VideoURL, versions[0].VideoURL)
}

func TestAddVoiceoverEdit_UsesSessionVideoURL(t *testing.T) {
	tools, sessions, _, _ := newTestTools(t)
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, &models.Session{
		AppName:   testScope.AppName,
		UserID:    testScope.UserID,
		SessionID: testScope.SessionID,
		VideoURL:  "gs://bucket/configured.mp4",
	}))

	res := tools.AddVoiceoverEdit(ctx, testScope, "hi", 0, "")
	require.Equal(t, "success", res.Status)

	session, err := sessions.Get(ctx, testScope.AppName, testScope.UserID, testScope.SessionID)
	require.NoError(t, err)
	q, err := sessions.LoadEditQueue(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/configured.mp4", q.OriginalVideoURL)
}

func TestAddVoiceoverEdit_MissingVideoURL(t *testing.T) {
	tools, _, tts, _ := newTestTools(t)

	res := tools.AddVoiceoverEdit(context.Background(), testScope, "hi", 0, "")
	assert.Equal(t, "error", res.Status)
	assert.Contains(t, res.Message, "no video URL")
	assert.Zero(t, tts.calls)
}

func TestAddVoiceoverEdit_RenderFailureNotPersisted(t *testing.T) {
	tools, sessions, _, editor := newTestTools(t)
	ctx := context.Background()
	editor.err = fmt.Errorf("ffmpeg exploded")

	res := tools.AddVoiceoverEdit(ctx, testScope, "hi", 0, "gs://bucket/orig.mp4")
	assert.Equal(t, "error", res.Status)
	assert.Contains(t, res.Message, "ffmpeg exploded")

	// session was lazily created but no queue was saved
	session, err := sessions.Get(ctx, testScope.AppName, testScope.UserID, testScope.SessionID)
	require.NoError(t, err)
	_, err = sessions.LoadEditQueue(ctx, session)
	assert.ErrorIs(t, err, models.ErrNoEditQueue)
}

func TestUpdateVoiceoverTiming(t *testing.T) {
	tools, sessions, tts, editor := newTestTools(t)
	ctx := context.Background()

	added := tools.AddVoiceoverEdit(ctx, testScope, "hi", 1000, "gs://bucket/orig.mp4")
	require.Equal(t, "success", added.Status)

	res := tools.UpdateVoiceoverTiming(ctx, testScope, added.EditID, 5000)
	require.Equal(t, "success", res.Status)
	assert.Equal(t, "Updated voiceover timing to 5000ms", res.Message)

	// timing change invalidated the cached result and forced a re-render,
	// but the synthesized audio was reused
	assert.Equal(t, 2, editor.renders)
	assert.Equal(t, 1, tts.calls)

	session, err := sessions.Get(ctx, testScope.AppName, testScope.UserID, testScope.SessionID)
	require.NoError(t, err)
	q, err := sessions.LoadEditQueue(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 5000, q.Edits[0].Params.Int("start_ms"))
}

func TestUpdateVoiceoverTiming_EditNotFound(t *testing.T) {
	tools, _, _, _ := newTestTools(t)
	ctx := context.Background()

	require.Equal(t, "success", tools.AddVoiceoverEdit(ctx, testScope, "hi", 0, "gs://bucket/orig.mp4").Status)

	res := tools.UpdateVoiceoverTiming(ctx, testScope, "nonexistent", 5000)
	assert.Equal(t, "error", res.Status)
	assert.Contains(t, res.Message, "edit not found")
}

func TestAddTextOverlayEdit_Defaults(t *testing.T) {
	tools, sessions, _, _ := newTestTools(t)
	ctx := context.Background()

	res := tools.AddTextOverlayEdit(ctx, testScope, "SALE", 1000, 4000, "gs://bucket/orig.mp4", TextOverlayArgs{})
	require.Equal(t, "success", res.Status)
	assert.Equal(t, `Added text overlay "SALE" from 1000ms to 4000ms`, res.Message)

	session, err := sessions.Get(ctx, testScope.AppName, testScope.UserID, testScope.SessionID)
	require.NoError(t, err)
	q, err := sessions.LoadEditQueue(ctx, session)
	require.NoError(t, err)
	edit := q.Edits[0]
	assert.Equal(t, models.EditTypeTextOverlay, edit.Type)
	assert.Equal(t, 70, edit.Params.Int("fontsize"))
	assert.Equal(t, "white", edit.Params.String("color"))
	assert.Equal(t, "center", edit.Params.String("position"))
}

func TestRemoveEdit_RebuildsRemaining(t *testing.T) {
	tools, sessions, _, editor := newTestTools(t)
	ctx := context.Background()

	first := tools.AddVoiceoverEdit(ctx, testScope, "one", 0, "gs://bucket/orig.mp4")
	require.Equal(t, "success", first.Status)
	second := tools.AddTextOverlayEdit(ctx, testScope, "two", 0, 2000, "", TextOverlayArgs{})
	require.Equal(t, "success", second.Status)

	before := editor.renders
	res := tools.RemoveEdit(ctx, testScope, first.EditID)
	require.Equal(t, "success", res.Status)

	// the surviving overlay was re-rendered from the original video
	assert.Equal(t, before+1, editor.renders)

	session, err := sessions.Get(ctx, testScope.AppName, testScope.UserID, testScope.SessionID)
	require.NoError(t, err)
	q, err := sessions.LoadEditQueue(ctx, session)
	require.NoError(t, err)
	require.Len(t, q.Edits, 1)
	assert.Equal(t, second.EditID, q.Edits[0].ID)
}

func TestRemoveEdit_NotFound(t *testing.T) {
	tools, _, _, _ := newTestTools(t)
	ctx := context.Background()

	require.Equal(t, "success", tools.AddVoiceoverEdit(ctx, testScope, "hi", 0, "gs://bucket/orig.mp4").Status)

	res := tools.RemoveEdit(ctx, testScope, "nope")
	assert.Equal(t, "error", res.Status)
}

func TestGetEditQueueInfo(t *testing.T) {
	tools, _, _, _ := newTestTools(t)
	ctx := context.Background()

	res := tools.GetEditQueueInfo(ctx, testScope)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "No edit queue found", res.Message)
	assert.Nil(t, res.Queue)

	require.Equal(t, "success", tools.AddVoiceoverEdit(ctx, testScope, "hi", 0, "gs://bucket/orig.mp4").Status)

	res = tools.GetEditQueueInfo(ctx, testScope)
	require.Equal(t, "success", res.Status)
	require.NotNil(t, res.Queue)
	assert.Len(t, res.Queue.Edits, 1)
}

func TestFindVoiceoverEdit(t *testing.T) {
	tools, _, _, _ := newTestTools(t)
	ctx := context.Background()

	res := tools.FindVoiceoverEdit(ctx, testScope)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "No edit queue found", res.Message)

	require.Equal(t, "success", tools.AddTextOverlayEdit(ctx, testScope, "txt", 0, 1000, "gs://bucket/orig.mp4", TextOverlayArgs{}).Status)

	res = tools.FindVoiceoverEdit(ctx, testScope)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "No voiceover edit found", res.Message)
	assert.Nil(t, res.Edit)

	first := tools.AddVoiceoverEdit(ctx, testScope, "one", 0, "")
	second := tools.AddVoiceoverEdit(ctx, testScope, "two", 1000, "")
	require.Equal(t, "success", first.Status)
	require.Equal(t, "success", second.Status)

	res = tools.FindVoiceoverEdit(ctx, testScope)
	require.NotNil(t, res.Edit)
	assert.Equal(t, second.EditID, res.Edit.ID)
}

func TestToolResult_Map(t *testing.T) {
	m := ToolResult{Status: "success", Message: "ok", VideoURL: "v.mp4", EditID: "e1"}.Map()
	assert.Equal(t, "success", m["status"])
	assert.Equal(t, "ok", m["message"])
	assert.Equal(t, "v.mp4", m["video_url"])
	assert.Equal(t, "e1", m["edit_id"])
	assert.NotContains(t, m, "edit_queue")
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("a")
	done := make(chan struct{})
	go func() {
		u := km.Lock("a")
		u()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second lock acquired while first held")
	default:
	}

	unlock()
	<-done
}
