package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipsmith/clipsmith/internal/media"
	"github.com/clipsmith/clipsmith/internal/models"
)

type fakeTTS struct {
	calls []string
	err   error
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, voiceName, languageCode string) (*media.SpeechResult, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return &media.SpeechResult{
		LocalPath: fmt.Sprintf("/tmp/voice-%d.wav", len(f.calls)),
		AudioURL:  fmt.Sprintf("https://storage.googleapis.com/scratch/audio/voice-%d.wav", len(f.calls)),
	}, nil
}

type overlayCall struct {
	kind     string
	videoURL string
	audio    media.AudioOverlayParams
	text     media.TextOverlayParams
}

type fakeEditor struct {
	calls []overlayCall
	err   error
}

func (f *fakeEditor) AddTextOverlay(ctx context.Context, videoURL, userID, sessionID string, p media.TextOverlayParams) (string, error) {
	f.calls = append(f.calls, overlayCall{kind: "text", videoURL: videoURL, text: p})
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("https://storage.googleapis.com/scratch/render-%d.mp4", len(f.calls)), nil
}

func (f *fakeEditor) AddAudioOverlay(ctx context.Context, videoURL, userID, sessionID string, p media.AudioOverlayParams) (string, error) {
	f.calls = append(f.calls, overlayCall{kind: "audio", videoURL: videoURL, audio: p})
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("https://storage.googleapis.com/scratch/render-%d.mp4", len(f.calls)), nil
}

func newTestEngine() (*Engine, *fakeTTS, *fakeEditor) {
	tts := &fakeTTS{}
	editor := &fakeEditor{}
	engine := NewEngine(tts, editor, func(string) string { return "#1e1e1e" }, nil)
	return engine, tts, editor
}

var testScope = Scope{UserID: "u1", SessionID: "s1"}

func TestApplyEditQueue_NoChanges_NoBackendCalls(t *testing.T) {
	engine, tts, editor := newTestEngine()

	q := models.NewEditQueue("s1", "orig.mp4", "")
	e := models.NewEdit(models.EditTypeVoiceover, models.Params{"text": "hi"})
	e.ResultVideoURL = "cached.mp4"
	q.AddEdit(e)
	q.CurrentVideoURL = "cached.mp4"

	url, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)

	assert.Equal(t, "cached.mp4", url)
	assert.Empty(t, tts.calls)
	assert.Empty(t, editor.calls)
}

func TestApplyEditQueue_VoiceoverTruncatesOffset(t *testing.T) {
	engine, tts, editor := newTestEngine()

	q := models.NewEditQueue("s1", "orig.mp4", "")
	q.AddEdit(models.NewEdit(models.EditTypeVoiceover, models.Params{
		"text":     "Hi",
		"start_ms": 500,
	}))

	url, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)

	require.Len(t, tts.calls, 1)
	assert.Equal(t, "Hi", tts.calls[0])

	require.Len(t, editor.calls, 1)
	call := editor.calls[0]
	assert.Equal(t, "audio", call.kind)
	assert.Equal(t, "orig.mp4", call.videoURL)
	// 500ms truncates to 0s by integer division
	assert.Equal(t, 0, call.audio.StartOffsetSec)
	assert.Equal(t, 1.0, call.audio.VolumeOverlay)
	assert.Equal(t, 0.3, call.audio.VolumeOriginal)

	assert.Equal(t, url, q.CurrentVideoURL)
	assert.Equal(t, url, q.Edits[0].ResultVideoURL)
}

func TestApplyEditQueue_VoiceoverCachesAudioPath(t *testing.T) {
	engine, tts, _ := newTestEngine()

	q := models.NewEditQueue("s1", "orig.mp4", "")
	q.AddEdit(models.NewEdit(models.EditTypeVoiceover, models.Params{"text": "Hi", "start_ms": 0}))

	_, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)
	require.Len(t, tts.calls, 1)
	audioPath := q.Edits[0].Params.String("audio_path")
	assert.NotEmpty(t, audioPath)

	// force another rebuild; the cached audio path must survive
	q.Edits[0].ResultVideoURL = ""
	_, err = engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)

	assert.Len(t, tts.calls, 1, "TTS must not be called again for cached audio")
	assert.Equal(t, audioPath, q.Edits[0].Params.String("audio_path"))
}

func TestApplyEditQueue_TextOverlayTiming(t *testing.T) {
	engine, _, editor := newTestEngine()

	q := models.NewEditQueue("s1", "orig.mp4", "vid-1")
	q.AddEdit(models.NewEdit(models.EditTypeTextOverlay, models.Params{
		"text":     "Sale!",
		"start_ms": 1000,
		"end_ms":   4000,
	}))

	_, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)

	require.Len(t, editor.calls, 1)
	call := editor.calls[0]
	assert.Equal(t, "text", call.kind)
	assert.Equal(t, 1, call.text.StartSec)
	assert.Equal(t, 3, call.text.DurationSec)
	assert.Equal(t, media.DefaultFontSize, call.text.FontSize)
	assert.Equal(t, "white", call.text.Color)
	assert.Equal(t, "center", call.text.Position)
	assert.Equal(t, "#1e1e1e", call.text.BrandColor)
	assert.Equal(t, "vid-1", call.text.VideoID)
}

func TestApplyEditQueue_NilBrandColorUsesDefault(t *testing.T) {
	tts := &fakeTTS{}
	editor := &fakeEditor{}
	engine := NewEngine(tts, editor, nil, nil)

	q := models.NewEditQueue("s1", "orig.mp4", "")
	q.AddEdit(models.NewEdit(models.EditTypeTextOverlay, models.Params{
		"text":     "Hi",
		"start_ms": 0,
		"end_ms":   1000,
	}))

	_, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)

	require.Len(t, editor.calls, 1)
	assert.Equal(t, media.DefaultBrandColor, editor.calls[0].text.BrandColor)
}

func TestApplyEditQueue_VideoIDReachesVoiceoverRender(t *testing.T) {
	engine, _, editor := newTestEngine()

	q := models.NewEditQueue("s1", "orig.mp4", "vid-7")
	q.AddEdit(models.NewEdit(models.EditTypeVoiceover, models.Params{"text": "Hi", "start_ms": 0}))

	_, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)

	require.Len(t, editor.calls, 1)
	assert.Equal(t, "vid-7", editor.calls[0].audio.VideoID)
}

func TestApplyEditQueue_OverwrittenForcesFullRebuild(t *testing.T) {
	engine, _, editor := newTestEngine()

	q := models.NewEditQueue("s1", "orig.mp4", "")
	first := models.NewEdit(models.EditTypeTextOverlay, models.Params{"text": "a", "start_ms": 0, "end_ms": 1000})
	first.Status = models.EditStatusOverwritten
	first.ResultVideoURL = "stale-1.mp4"
	second := models.NewEdit(models.EditTypeTextOverlay, models.Params{"text": "b", "start_ms": 0, "end_ms": 1000})
	second.ResultVideoURL = "stale-2.mp4"
	q.AddEdit(first)
	q.AddEdit(second)
	q.CurrentVideoURL = "stale-2.mp4"

	url, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)

	// only the applied edit renders, and it starts from the original
	require.Len(t, editor.calls, 1)
	assert.Equal(t, "orig.mp4", editor.calls[0].videoURL)
	assert.Equal(t, "b", editor.calls[0].text.Text)

	assert.Empty(t, first.ResultVideoURL)
	assert.Equal(t, url, second.ResultVideoURL)
	assert.Equal(t, url, q.CurrentVideoURL)
}

func TestApplyEditQueue_SequentialChaining(t *testing.T) {
	engine, _, editor := newTestEngine()

	q := models.NewEditQueue("s1", "orig.mp4", "")
	q.AddEdit(models.NewEdit(models.EditTypeVoiceover, models.Params{"text": "one", "start_ms": 0}))
	q.AddEdit(models.NewEdit(models.EditTypeTextOverlay, models.Params{"text": "two", "start_ms": 0, "end_ms": 2000}))

	url, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)

	require.Len(t, editor.calls, 2)
	assert.Equal(t, "orig.mp4", editor.calls[0].videoURL)
	// second edit renders against the first edit's output
	assert.Equal(t, q.Edits[0].ResultVideoURL, editor.calls[1].videoURL)
	assert.Equal(t, url, q.Edits[1].ResultVideoURL)
}

func TestApplyEditQueue_TrimAndFilterPassThrough(t *testing.T) {
	engine, tts, editor := newTestEngine()

	q := models.NewEditQueue("s1", "orig.mp4", "")
	q.AddEdit(models.NewEdit(models.EditTypeTrim, models.Params{"start_ms": 0, "end_ms": 1000}))
	q.AddEdit(models.NewEdit(models.EditTypeFilter, models.Params{"name": "sepia"}))

	url, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.NoError(t, err)

	assert.Equal(t, "orig.mp4", url)
	assert.Empty(t, tts.calls)
	assert.Empty(t, editor.calls)
	assert.Equal(t, "orig.mp4", q.Edits[0].ResultVideoURL)
	assert.Equal(t, "orig.mp4", q.Edits[1].ResultVideoURL)
}

func TestApplyEditQueue_UnknownTypeFatal(t *testing.T) {
	engine, _, _ := newTestEngine()

	q := models.NewEditQueue("s1", "orig.mp4", "")
	bad := models.NewEdit(models.EditType("hologram"), models.Params{})
	q.AddEdit(bad)

	_, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownEditType)
}

func TestApplyEditQueue_BackendFailureAborts(t *testing.T) {
	engine, _, editor := newTestEngine()
	editor.err = errors.New("transcoder exploded")

	q := models.NewEditQueue("s1", "orig.mp4", "")
	q.AddEdit(models.NewEdit(models.EditTypeTextOverlay, models.Params{"text": "x", "start_ms": 0, "end_ms": 1000}))

	_, err := engine.ApplyEditQueue(context.Background(), testScope, q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcoder exploded")
	assert.Empty(t, q.Edits[0].ResultVideoURL)
}

func TestApplyEditQueue_RemoveAndReapplyRebuildsInOrder(t *testing.T) {
	engine, _, editor := newTestEngine()
	ctx := context.Background()

	q := models.NewEditQueue("s1", "orig.mp4", "")
	e1 := models.NewEdit(models.EditTypeTextOverlay, models.Params{"text": "a", "start_ms": 0, "end_ms": 1000})
	e2 := models.NewEdit(models.EditTypeTextOverlay, models.Params{"text": "b", "start_ms": 0, "end_ms": 1000})
	e3 := models.NewEdit(models.EditTypeTextOverlay, models.Params{"text": "c", "start_ms": 0, "end_ms": 1000})
	q.AddEdit(e1)
	q.AddEdit(e2)
	q.AddEdit(e3)

	_, err := engine.ApplyEditQueue(ctx, testScope, q)
	require.NoError(t, err)
	require.Len(t, editor.calls, 3)

	q.RemoveEdit(e2.ID)
	q.Invalidate()
	editor.calls = nil

	_, err = engine.ApplyEditQueue(ctx, testScope, q)
	require.NoError(t, err)

	require.Len(t, editor.calls, 2)
	assert.Equal(t, "orig.mp4", editor.calls[0].videoURL)
	assert.Equal(t, "a", editor.calls[0].text.Text)
	assert.Equal(t, "c", editor.calls[1].text.Text)
}
