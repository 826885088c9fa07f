package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEdit(t *testing.T) {
	e := NewEdit(EditTypeVoiceover, Params{"text": "hello"})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EditTypeVoiceover, e.Type)
	assert.Equal(t, EditStatusApplied, e.Status)
	assert.NotEmpty(t, e.Timestamp)
	assert.Empty(t, e.ResultVideoURL)
	assert.Equal(t, "hello", e.Params.String("text"))
}

func TestNewEdit_NilParams(t *testing.T) {
	e := NewEdit(EditTypeTextOverlay, nil)
	require.NotNil(t, e.Params)
}

func TestParams_Int(t *testing.T) {
	p := Params{
		"as_int":     42,
		"as_int64":   int64(43),
		"as_float":   float64(44),
		"as_number":  json.Number("45"),
		"not_number": "abc",
	}

	assert.Equal(t, 42, p.Int("as_int"))
	assert.Equal(t, 43, p.Int("as_int64"))
	assert.Equal(t, 44, p.Int("as_float"))
	assert.Equal(t, 45, p.Int("as_number"))
	assert.Equal(t, 0, p.Int("not_number"))
	assert.Equal(t, 0, p.Int("missing"))
	assert.Equal(t, 7, p.IntDefault("missing", 7))
	assert.Equal(t, 42, p.IntDefault("as_int", 7))
}

func TestParams_StringDefault(t *testing.T) {
	p := Params{"color": "white", "empty": ""}

	assert.Equal(t, "white", p.StringDefault("color", "black"))
	assert.Equal(t, "black", p.StringDefault("empty", "black"))
	assert.Equal(t, "black", p.StringDefault("missing", "black"))
}

func TestEditQueue_AddAndGet(t *testing.T) {
	q := NewEditQueue("s1", "gs://bucket/orig.mp4", "vid-1")
	assert.Equal(t, "gs://bucket/orig.mp4", q.CurrentVideoURL)

	e1 := NewEdit(EditTypeVoiceover, Params{"text": "one"})
	e2 := NewEdit(EditTypeTextOverlay, Params{"text": "two"})
	q.AddEdit(e1)
	q.AddEdit(e2)

	require.Len(t, q.Edits, 2)
	assert.Same(t, e1, q.Edits[0])
	assert.Same(t, e2, q.Edits[1])
	assert.Same(t, e1, q.GetEdit(e1.ID))
	assert.Nil(t, q.GetEdit("nope"))
}

func TestEditQueue_RemoveEdit(t *testing.T) {
	q := NewEditQueue("s1", "orig", "")
	e1 := NewEdit(EditTypeVoiceover, nil)
	e2 := NewEdit(EditTypeTextOverlay, nil)
	e3 := NewEdit(EditTypeTrim, nil)
	q.AddEdit(e1)
	q.AddEdit(e2)
	q.AddEdit(e3)

	assert.True(t, q.RemoveEdit(e2.ID))
	assert.False(t, q.RemoveEdit(e2.ID))

	require.Len(t, q.Edits, 2)
	assert.Same(t, e1, q.Edits[0])
	assert.Same(t, e3, q.Edits[1])
}

func TestEditQueue_UpdateEdit(t *testing.T) {
	q := NewEditQueue("s1", "orig", "")
	e := NewEdit(EditTypeTextOverlay, Params{"text": "old", "fontsize": 24})
	e.ResultVideoURL = "gs://bucket/stale.mp4"
	q.AddEdit(e)
	before := e.Timestamp

	ok := q.UpdateEdit(e.ID, Params{"text": "new"})
	require.True(t, ok)

	assert.Equal(t, "new", e.Params.String("text"))
	assert.Equal(t, 24, e.Params.Int("fontsize"))
	assert.Empty(t, e.ResultVideoURL)
	assert.GreaterOrEqual(t, e.Timestamp, before)

	assert.False(t, q.UpdateEdit("missing", Params{"text": "x"}))
}

func TestEditQueue_AppliedEdits(t *testing.T) {
	q := NewEditQueue("s1", "orig", "")
	e1 := NewEdit(EditTypeVoiceover, nil)
	e2 := NewEdit(EditTypeTextOverlay, nil)
	e2.Status = EditStatusReverted
	e3 := NewEdit(EditTypeTextOverlay, nil)
	q.AddEdit(e1)
	q.AddEdit(e2)
	q.AddEdit(e3)

	applied := q.AppliedEdits()
	require.Len(t, applied, 2)
	assert.Same(t, e1, applied[0])
	assert.Same(t, e3, applied[1])
}

func TestEditQueue_FindEditByType_ReturnsLatestApplied(t *testing.T) {
	q := NewEditQueue("s1", "orig", "")
	older := NewEdit(EditTypeVoiceover, Params{"text": "older"})
	newer := NewEdit(EditTypeVoiceover, Params{"text": "newer"})
	retired := NewEdit(EditTypeVoiceover, Params{"text": "retired"})
	retired.Status = EditStatusOverwritten
	q.AddEdit(older)
	q.AddEdit(newer)
	q.AddEdit(retired)

	found := q.FindEditByType(EditTypeVoiceover)
	require.NotNil(t, found)
	assert.Same(t, newer, found)

	assert.Nil(t, q.FindEditByType(EditTypeTrim))
}

func TestEditQueue_Invalidate(t *testing.T) {
	q := NewEditQueue("s1", "orig", "")
	e := NewEdit(EditTypeVoiceover, nil)
	e.ResultVideoURL = "gs://bucket/step1.mp4"
	q.AddEdit(e)
	q.CurrentVideoURL = "gs://bucket/step1.mp4"

	q.Invalidate()

	assert.Equal(t, "orig", q.CurrentVideoURL)
	assert.Empty(t, e.ResultVideoURL)
}

func TestQueueRoundTrip(t *testing.T) {
	q := NewEditQueue("s1", "gs://bucket/orig.mp4", "vid-1")
	e := NewEdit(EditTypeTextOverlay, Params{"text": "hi", "start_ms": 1000})
	e.ResultVideoURL = "gs://bucket/out.mp4"
	q.AddEdit(e)
	q.CurrentVideoURL = "gs://bucket/out.mp4"

	raw, err := MarshalQueue(q)
	require.NoError(t, err)

	got, err := UnmarshalQueue(raw)
	require.NoError(t, err)

	assert.Equal(t, q.SessionID, got.SessionID)
	assert.Equal(t, q.OriginalVideoURL, got.OriginalVideoURL)
	assert.Equal(t, q.CurrentVideoURL, got.CurrentVideoURL)
	require.Len(t, got.Edits, 1)
	assert.Equal(t, e.ID, got.Edits[0].ID)
	assert.Equal(t, EditTypeTextOverlay, got.Edits[0].Type)
	// numbers come back as float64; the accessor hides that
	assert.Equal(t, 1000, got.Edits[0].Params.Int("start_ms"))
}

func TestUnmarshalQueue_EmptyEdits(t *testing.T) {
	got, err := UnmarshalQueue([]byte(`{"session_id":"s1","original_video_url":"orig","current_video_url":"orig"}`))
	require.NoError(t, err)
	assert.NotNil(t, got.Edits)
	assert.Empty(t, got.Edits)
}
