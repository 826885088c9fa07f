package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EditType determines which rendering routine applies to an edit.
type EditType string

const (
	// EditTypeVoiceover synthesizes speech and mixes it over the video audio track.
	EditTypeVoiceover EditType = "voiceover"
	// EditTypeTextOverlay burns a text caption into the video frames.
	EditTypeTextOverlay EditType = "text_overlay"
	// EditTypeTrim cuts the video to a time range. Declared but not yet rendered.
	EditTypeTrim EditType = "trim"
	// EditTypeFilter applies a visual filter. Declared but not yet rendered.
	EditTypeFilter EditType = "filter"
)

// EditStatus tracks the lifecycle of an edit within the queue.
// Only edits in applied status are rendered into the output; the other
// statuses mark an edit as logically retired without deleting its history.
type EditStatus string

const (
	EditStatusPending     EditStatus = "pending"
	EditStatusApplied     EditStatus = "applied"
	EditStatusReverted    EditStatus = "reverted"
	EditStatusOverwritten EditStatus = "overwritten"
	EditStatusSuperseded  EditStatus = "superseded"
)

// Params is the open key/value bag of type-specific edit parameters.
// Values round-trip through JSON, so numbers read back as float64.
type Params map[string]any

// String returns the string value for key, or the empty string.
func (p Params) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the integer value for key, tolerating the numeric types
// JSON deserialization produces. Returns 0 when absent.
func (p Params) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}

// IntDefault returns the integer value for key, or def when absent.
func (p Params) IntDefault(key string, def int) int {
	if _, ok := p[key]; !ok {
		return def
	}
	return p.Int(key)
}

// StringDefault returns the string value for key, or def when absent or empty.
func (p Params) StringDefault(key, def string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return def
}

// Edit is a single, typed, timestamped editing instruction.
type Edit struct {
	// ID is an opaque unique identifier, assigned at creation, immutable.
	ID string `json:"id"`

	// Type determines which rendering routine applies.
	Type EditType `json:"type"`

	// Params holds type-specific parameters (text, start_ms, end_ms,
	// fontsize, color, position; voiceover caches audio_path here).
	Params Params `json:"params"`

	// Timestamp is the ISO-formatted creation/last-modification time,
	// refreshed whenever Params is mutated.
	Timestamp string `json:"timestamp"`

	// Status controls whether the edit is rendered into the output.
	Status EditStatus `json:"status"`

	// ResultVideoURL is the URL of the video after this edit was last
	// rendered, used as a rendering cache. Empty means not yet rendered
	// since the last change.
	ResultVideoURL string `json:"result_video_url,omitempty"`
}

// NewEdit creates an applied edit of the given type with a fresh id.
func NewEdit(editType EditType, params Params) *Edit {
	if params == nil {
		params = Params{}
	}
	return &Edit{
		ID:        uuid.NewString(),
		Type:      editType,
		Params:    params,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    EditStatusApplied,
	}
}

// IsApplied reports whether the edit is rendered into the output.
func (e *Edit) IsApplied() bool {
	return e.Status == EditStatusApplied
}

// Touch refreshes the modification timestamp.
func (e *Edit) Touch() {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339)
}

// EditQueue is the ordered log of edits anchored to one original video.
// Insertion order is application order; the engine must never reorder it.
type EditQueue struct {
	// SessionID identifies the owning session.
	SessionID string `json:"session_id"`

	// OriginalVideoURL is the untouched source video, never mutated
	// after creation.
	OriginalVideoURL string `json:"original_video_url"`

	// Edits is the ordered sequence of edits.
	Edits []*Edit `json:"edits"`

	// CurrentVideoURL is the most recently rendered output. Starts equal
	// to OriginalVideoURL.
	CurrentVideoURL string `json:"current_video_url"`

	// VideoID is an optional external video identifier carried through
	// to rendering for asset naming.
	VideoID string `json:"video_id,omitempty"`
}

// NewEditQueue creates an empty queue for a session whose render cursor
// starts at the original video.
func NewEditQueue(sessionID, originalVideoURL, videoID string) *EditQueue {
	return &EditQueue{
		SessionID:        sessionID,
		OriginalVideoURL: originalVideoURL,
		Edits:            []*Edit{},
		CurrentVideoURL:  originalVideoURL,
		VideoID:          videoID,
	}
}

// AddEdit appends an edit to the ordered sequence.
func (q *EditQueue) AddEdit(edit *Edit) {
	q.Edits = append(q.Edits, edit)
}

// RemoveEdit removes the first edit matching id and reports whether a
// removal occurred. Other edits keep their positions.
func (q *EditQueue) RemoveEdit(id string) bool {
	for i, e := range q.Edits {
		if e.ID == id {
			q.Edits = append(q.Edits[:i], q.Edits[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateEdit merges newParams into the matching edit's params (shallow key
// overwrite), refreshes its timestamp, and reports whether a match was
// found. The edit's cached result is cleared since it no longer reflects
// the new params.
func (q *EditQueue) UpdateEdit(id string, newParams Params) bool {
	e := q.GetEdit(id)
	if e == nil {
		return false
	}
	for k, v := range newParams {
		e.Params[k] = v
	}
	e.ResultVideoURL = ""
	e.Touch()
	return true
}

// GetEdit returns the edit with the given id, or nil.
func (q *EditQueue) GetEdit(id string) *Edit {
	for _, e := range q.Edits {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// AppliedEdits returns the order-preserving sub-sequence of edits in
// applied status.
func (q *EditQueue) AppliedEdits() []*Edit {
	applied := make([]*Edit, 0, len(q.Edits))
	for _, e := range q.Edits {
		if e.IsApplied() {
			applied = append(applied, e)
		}
	}
	return applied
}

// FindEditByType scans from the most recent edit backward and returns the
// latest applied edit of that type, or nil. A user saying "change the
// voiceover timing" binds to the newest matching edit, not the first.
func (q *EditQueue) FindEditByType(editType EditType) *Edit {
	for i := len(q.Edits) - 1; i >= 0; i-- {
		if q.Edits[i].Type == editType && q.Edits[i].IsApplied() {
			return q.Edits[i]
		}
	}
	return nil
}

// Invalidate clears every cached per-edit result and resets the render
// cursor to the original video. Called after structural changes so a stale
// cached URL is never reused.
func (q *EditQueue) Invalidate() {
	q.CurrentVideoURL = q.OriginalVideoURL
	for _, e := range q.Edits {
		e.ResultVideoURL = ""
	}
}

// MarshalQueue serializes the queue for session-state storage.
func MarshalQueue(q *EditQueue) (json.RawMessage, error) {
	return json.Marshal(q)
}

// UnmarshalQueue deserializes a queue from session-state storage.
func UnmarshalQueue(data json.RawMessage) (*EditQueue, error) {
	var q EditQueue
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	if q.Edits == nil {
		q.Edits = []*Edit{}
	}
	return &q, nil
}
