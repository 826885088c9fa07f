// Package pipeline converts an edit queue's declarative edit sequence into
// one concrete rendered video URL, minimizing redundant rendering work.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clipsmith/clipsmith/internal/media"
	"github.com/clipsmith/clipsmith/internal/models"
	"github.com/clipsmith/clipsmith/internal/observability"
)

// Fixed mix levels for voiceover overlays: the synthesized voice is kept
// at full volume while the original track is attenuated under it.
const (
	voiceoverVolume     = 1.0
	originalTrackVolume = 0.3
)

// audioPathParam caches the synthesized voiceover file on the edit so
// repeated rebuilds do not re-synthesize.
const audioPathParam = "audio_path"

// BrandColorFunc resolves the brand color for a video, used as the text
// overlay box background.
type BrandColorFunc func(videoURL string) string

// Scope identifies whose artifacts a render run produces.
type Scope struct {
	UserID    string
	SessionID string
}

// Engine applies edit queues.
type Engine struct {
	tts        media.SpeechSynthesizer
	editor     media.VideoEditor
	brandColor BrandColorFunc
	logger     *slog.Logger
}

// NewEngine creates a pipeline engine. brandColor may be nil when no
// feature configuration is available.
func NewEngine(tts media.SpeechSynthesizer, editor media.VideoEditor, brandColor BrandColorFunc, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if brandColor == nil {
		brandColor = func(string) string { return media.DefaultBrandColor }
	}
	return &Engine{
		tts:        tts,
		editor:     editor,
		brandColor: brandColor,
		logger:     observability.WithComponent(logger, "pipeline"),
	}
}

// ApplyEditQueue renders the queue and returns the final video URL.
//
// A full rebuild from the original video happens when any edit is marked
// overwritten, or when any applied edit has no cached result. Otherwise
// the cached current URL is returned without touching any backend. On a
// rebuild every cached result is discarded first; a stale URL must never
// survive a structural change.
func (e *Engine) ApplyEditQueue(ctx context.Context, scope Scope, q *models.EditQueue) (string, error) {
	applied := q.AppliedEdits()

	if !needsRebuild(q, applied) {
		e.logger.Debug("queue unchanged, reusing current render",
			slog.String("session_id", q.SessionID),
			slog.String("video_url", q.CurrentVideoURL),
		)
		return q.CurrentVideoURL, nil
	}

	done := observability.TimedOperation(ctx, e.logger, "apply_edit_queue")
	defer done()

	e.logger.Info("rebuilding video from original",
		slog.String("session_id", q.SessionID),
		slog.Int("applied_edits", len(applied)),
	)

	q.Invalidate()
	cursor := q.OriginalVideoURL

	for i, edit := range applied {
		url, err := e.applyEdit(ctx, scope, edit, cursor, q.VideoID)
		if err != nil {
			// Abort immediately; the caller must not persist the
			// half-rendered queue.
			return "", fmt.Errorf("applying edit %s (%d/%d): %w", edit.ID, i+1, len(applied), err)
		}
		edit.ResultVideoURL = url
		cursor = url
	}

	q.CurrentVideoURL = cursor
	return cursor, nil
}

// needsRebuild reports whether any cached intermediate result is no
// longer trustworthy. Overwritten edits are checked across the full list,
// not just applied ones.
func needsRebuild(q *models.EditQueue, applied []*models.Edit) bool {
	for _, edit := range q.Edits {
		if edit.Status == models.EditStatusOverwritten {
			return true
		}
	}
	for _, edit := range applied {
		if edit.ResultVideoURL == "" {
			return true
		}
	}
	return false
}

// applyEdit renders a single edit against the current cursor video and
// returns the new URL. videoID is the queue's external video identifier,
// carried into artifact names.
func (e *Engine) applyEdit(ctx context.Context, scope Scope, edit *models.Edit, videoURL, videoID string) (string, error) {
	switch edit.Type {
	case models.EditTypeVoiceover:
		return e.applyVoiceover(ctx, scope, edit, videoURL, videoID)
	case models.EditTypeTextOverlay:
		return e.applyTextOverlay(ctx, scope, edit, videoURL, videoID)
	case models.EditTypeTrim, models.EditTypeFilter:
		// Declared but not rendered. Pass the input through rather than
		// fabricating a result.
		e.logger.Warn("edit type not implemented, passing through",
			slog.String("edit_id", edit.ID),
			slog.String("type", string(edit.Type)),
		)
		return videoURL, nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnknownEditType, edit.Type)
	}
}

func (e *Engine) applyVoiceover(ctx context.Context, scope Scope, edit *models.Edit, videoURL, videoID string) (string, error) {
	audioPath := edit.Params.String(audioPathParam)
	if audioPath == "" {
		result, err := e.tts.Synthesize(ctx,
			edit.Params.String("text"),
			edit.Params.String("voice_name"),
			edit.Params.String("language_code"),
		)
		if err != nil {
			return "", fmt.Errorf("synthesizing voiceover: %w", err)
		}
		audioPath = result.LocalPath
		edit.Params[audioPathParam] = audioPath
	}

	// Millisecond offsets truncate to whole seconds.
	startOffset := edit.Params.Int("start_ms") / 1000

	url, err := e.editor.AddAudioOverlay(ctx, videoURL, scope.UserID, scope.SessionID, media.AudioOverlayParams{
		AudioPath:      audioPath,
		StartOffsetSec: startOffset,
		VolumeOverlay:  voiceoverVolume,
		VolumeOriginal: originalTrackVolume,
		VideoID:        videoID,
	})
	if err != nil {
		return "", fmt.Errorf("overlaying voiceover audio: %w", err)
	}
	return url, nil
}

func (e *Engine) applyTextOverlay(ctx context.Context, scope Scope, edit *models.Edit, videoURL, videoID string) (string, error) {
	startMS := edit.Params.Int("start_ms")
	endMS := edit.Params.Int("end_ms")

	url, err := e.editor.AddTextOverlay(ctx, videoURL, scope.UserID, scope.SessionID, media.TextOverlayParams{
		Text:        edit.Params.String("text"),
		StartSec:    startMS / 1000,
		DurationSec: (endMS - startMS) / 1000,
		FontSize:    edit.Params.IntDefault("fontsize", media.DefaultFontSize),
		Color:       edit.Params.StringDefault("color", media.DefaultFontColor),
		Position:    edit.Params.StringDefault("position", media.DefaultPosition),
		BrandColor:  e.brandColor(videoURL),
		VideoID:     videoID,
	})
	if err != nil {
		return "", fmt.Errorf("overlaying text: %w", err)
	}
	return url, nil
}
