// Package agent exposes the edit-queue tool surface and the
// conversational agent that drives it.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clipsmith/clipsmith/internal/models"
	"github.com/clipsmith/clipsmith/internal/observability"
	"github.com/clipsmith/clipsmith/internal/pipeline"
	"github.com/clipsmith/clipsmith/internal/service"
)

// Scope identifies the session a tool invocation operates on. It is
// request-scoped and passed explicitly so concurrent sessions never
// share state.
type Scope struct {
	AppName   string `json:"app_name"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	FeatureID string `json:"feature_id,omitempty"`
}

func (s Scope) key() string {
	return s.AppName + "/" + s.UserID + "/" + s.SessionID
}

// ToolResult is the structured outcome every tool operation returns.
// Errors are carried in-band; a tool call never surfaces a raw error to
// the model.
type ToolResult struct {
	Status   string            `json:"status"`
	Message  string            `json:"message,omitempty"`
	VideoURL string            `json:"video_url,omitempty"`
	EditID   string            `json:"edit_id,omitempty"`
	Queue    *models.EditQueue `json:"edit_queue,omitempty"`
	Edit     *models.Edit      `json:"edit,omitempty"`
}

// Map converts the result into the generic shape function responses use.
func (r ToolResult) Map() map[string]any {
	raw, err := json.Marshal(r)
	if err != nil {
		return map[string]any{"status": "error", "message": err.Error()}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{"status": "error", "message": err.Error()}
	}
	return m
}

func errorResult(err error) ToolResult {
	return ToolResult{Status: "error", Message: err.Error()}
}

// Tools implements the edit-queue tool surface. Every mutating operation
// runs the full load-mutate-render-persist cycle under the session's
// lock.
type Tools struct {
	sessions *service.SessionService
	engine   *pipeline.Engine
	locks    *keyedMutex
	logger   *slog.Logger
}

// NewTools creates the tool surface.
func NewTools(sessions *service.SessionService, engine *pipeline.Engine, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{
		sessions: sessions,
		engine:   engine,
		locks:    newKeyedMutex(),
		logger:   observability.WithComponent(logger, "tools"),
	}
}

// AddVoiceoverEdit appends an applied voiceover edit and regenerates the
// video. originalVideoURL may be empty when the session already carries a
// video.
func (t *Tools) AddVoiceoverEdit(ctx context.Context, scope Scope, text string, startMS int, originalVideoURL string) ToolResult {
	unlock := t.locks.Lock(scope.key())
	defer unlock()

	session, q, err := t.loadOrInitQueue(ctx, scope, originalVideoURL)
	if err != nil {
		return errorResult(err)
	}

	edit := models.NewEdit(models.EditTypeVoiceover, models.Params{
		"text":     text,
		"start_ms": startMS,
	})
	q.AddEdit(edit)

	videoURL, err := t.renderAndPersist(ctx, scope, session, q)
	if err != nil {
		return errorResult(err)
	}

	return ToolResult{
		Status:   "success",
		Message:  fmt.Sprintf("Added voiceover at %dms", startMS),
		VideoURL: videoURL,
		EditID:   edit.ID,
	}
}

// UpdateVoiceoverTiming merges a new start time into an existing edit's
// params and regenerates the video.
func (t *Tools) UpdateVoiceoverTiming(ctx context.Context, scope Scope, editID string, newStartMS int) ToolResult {
	unlock := t.locks.Lock(scope.key())
	defer unlock()

	session, q, err := t.loadQueue(ctx, scope)
	if err != nil {
		return errorResult(err)
	}

	if !q.UpdateEdit(editID, models.Params{"start_ms": newStartMS}) {
		return errorResult(fmt.Errorf("edit %s: %w", editID, models.ErrEditNotFound))
	}

	videoURL, err := t.renderAndPersist(ctx, scope, session, q)
	if err != nil {
		return errorResult(err)
	}

	return ToolResult{
		Status:   "success",
		Message:  fmt.Sprintf("Updated voiceover timing to %dms", newStartMS),
		VideoURL: videoURL,
	}
}

// TextOverlayArgs are the optional style parameters for a text overlay.
type TextOverlayArgs struct {
	FontSize int
	Color    string
	Position string
}

// AddTextOverlayEdit appends an applied text overlay edit and regenerates
// the video.
func (t *Tools) AddTextOverlayEdit(ctx context.Context, scope Scope, text string, startMS, endMS int, originalVideoURL string, style TextOverlayArgs) ToolResult {
	unlock := t.locks.Lock(scope.key())
	defer unlock()

	session, q, err := t.loadOrInitQueue(ctx, scope, originalVideoURL)
	if err != nil {
		return errorResult(err)
	}

	if style.FontSize <= 0 {
		style.FontSize = 70
	}
	if style.Color == "" {
		style.Color = "white"
	}
	if style.Position == "" {
		style.Position = "center"
	}

	edit := models.NewEdit(models.EditTypeTextOverlay, models.Params{
		"text":     text,
		"start_ms": startMS,
		"end_ms":   endMS,
		"fontsize": style.FontSize,
		"color":    style.Color,
		"position": style.Position,
	})
	q.AddEdit(edit)

	videoURL, err := t.renderAndPersist(ctx, scope, session, q)
	if err != nil {
		return errorResult(err)
	}

	return ToolResult{
		Status:   "success",
		Message:  fmt.Sprintf("Added text overlay %q from %dms to %dms", text, startMS, endMS),
		VideoURL: videoURL,
		EditID:   edit.ID,
	}
}

// RemoveEdit removes an edit, invalidates every cached result, and
// regenerates the remaining sequence from the original video.
func (t *Tools) RemoveEdit(ctx context.Context, scope Scope, editID string) ToolResult {
	unlock := t.locks.Lock(scope.key())
	defer unlock()

	session, q, err := t.loadQueue(ctx, scope)
	if err != nil {
		return errorResult(err)
	}

	if !q.RemoveEdit(editID) {
		return errorResult(fmt.Errorf("edit %s: %w", editID, models.ErrEditNotFound))
	}
	q.Invalidate()

	videoURL, err := t.renderAndPersist(ctx, scope, session, q)
	if err != nil {
		return errorResult(err)
	}

	return ToolResult{
		Status:   "success",
		Message:  "Edit removed successfully",
		VideoURL: videoURL,
	}
}

// GetEditQueueInfo returns a read-only snapshot of the queue.
func (t *Tools) GetEditQueueInfo(ctx context.Context, scope Scope) ToolResult {
	_, q, err := t.loadQueue(ctx, scope)
	if err != nil {
		if isNoQueue(err) {
			return ToolResult{Status: "success", Message: "No edit queue found"}
		}
		return errorResult(err)
	}
	return ToolResult{Status: "success", Queue: q}
}

// FindVoiceoverEdit returns the most recent applied voiceover edit.
func (t *Tools) FindVoiceoverEdit(ctx context.Context, scope Scope) ToolResult {
	_, q, err := t.loadQueue(ctx, scope)
	if err != nil {
		if isNoQueue(err) {
			return ToolResult{Status: "success", Message: "No edit queue found"}
		}
		return errorResult(err)
	}

	edit := q.FindEditByType(models.EditTypeVoiceover)
	if edit == nil {
		return ToolResult{Status: "success", Message: "No voiceover edit found"}
	}
	return ToolResult{Status: "success", Edit: edit}
}

func isNoQueue(err error) bool {
	return errors.Is(err, models.ErrNoEditQueue) || errors.Is(err, models.ErrSessionNotFound)
}

// loadQueue fetches the session and its queue; both must exist.
func (t *Tools) loadQueue(ctx context.Context, scope Scope) (*models.Session, *models.EditQueue, error) {
	session, err := t.sessions.Get(ctx, scope.AppName, scope.UserID, scope.SessionID)
	if err != nil {
		return nil, nil, err
	}
	q, err := t.sessions.LoadEditQueue(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	return session, q, nil
}

// loadOrInitQueue fetches the queue, lazily creating the session and
// queue. The source video is the explicit argument, the queue's current
// cursor, or the session's configured video, in that order.
func (t *Tools) loadOrInitQueue(ctx context.Context, scope Scope, originalVideoURL string) (*models.Session, *models.EditQueue, error) {
	session, err := t.sessions.GetOrCreate(ctx, scope.AppName, scope.UserID, scope.SessionID)
	if err != nil {
		return nil, nil, err
	}

	q, err := t.sessions.LoadEditQueue(ctx, session)
	if err == nil {
		return session, q, nil
	}
	if !isNoQueue(err) {
		return nil, nil, err
	}

	if originalVideoURL == "" {
		originalVideoURL = session.VideoURL
	}
	if originalVideoURL == "" {
		return nil, nil, models.ErrMissingVideoURL
	}

	q = models.NewEditQueue(scope.SessionID, originalVideoURL, session.VideoID)
	return session, q, nil
}

// renderAndPersist applies the queue, persists it, records a version
// snapshot, and updates the session's current video. On a render failure
// nothing is persisted; the last saved state stays authoritative.
func (t *Tools) renderAndPersist(ctx context.Context, scope Scope, session *models.Session, q *models.EditQueue) (string, error) {
	videoURL, err := t.engine.ApplyEditQueue(ctx, pipeline.Scope{
		UserID:    scope.UserID,
		SessionID: scope.SessionID,
	}, q)
	if err != nil {
		return "", err
	}

	if err := t.sessions.SaveEditQueue(ctx, session, q); err != nil {
		return "", err
	}

	snapshot, _ := models.MarshalQueue(q)
	if _, err := t.sessions.RecordVersion(ctx, session, videoURL, snapshot); err != nil {
		t.logger.Warn("failed to record session version", "error", err.Error())
	}

	t.logger.Info("edit queue rendered",
		"session_id", scope.SessionID,
		"video_url", videoURL,
		"edits", len(q.Edits),
	)
	return videoURL, nil
}
