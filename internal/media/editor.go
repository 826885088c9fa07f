package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clipsmith/clipsmith/internal/config"
	"github.com/clipsmith/clipsmith/internal/ffmpeg"
	"github.com/clipsmith/clipsmith/internal/observability"
	"github.com/clipsmith/clipsmith/internal/storage"
)

// VideoEditor renders individual edits onto a video and returns the URL
// of the new artifact.
type VideoEditor interface {
	AddTextOverlay(ctx context.Context, videoURL, userID, sessionID string, p TextOverlayParams) (string, error)
	AddAudioOverlay(ctx context.Context, videoURL, userID, sessionID string, p AudioOverlayParams) (string, error)
}

// TextOverlayParams describes a burned-in caption.
type TextOverlayParams struct {
	Text        string
	StartSec    int
	DurationSec int
	FontSize    int
	Color       string
	Position    string // top, center, bottom
	BrandColor  string // "#rrggbb" box background
	VideoID     string // external video identifier, carried into artifact names
}

// AudioOverlayParams describes a voiceover mix.
type AudioOverlayParams struct {
	AudioPath      string
	StartOffsetSec int
	VolumeOverlay  float64
	VolumeOriginal float64
	VideoID        string // external video identifier, carried into artifact names
}

// artifactKind builds the artifact-type prefix for rendered videos. The
// external video ID, when known, becomes part of every object name.
func artifactKind(videoID string) string {
	if videoID == "" {
		return "video"
	}
	return "video_" + videoID
}

// Editor implements VideoEditor using FFmpeg with GCS-backed artifacts.
type Editor struct {
	store    storage.ArtifactStore
	detector *ffmpeg.BinaryDetector
	cfg      config.FFmpegConfig
	tempDir  string
	logger   *slog.Logger
}

// NewEditor creates an Editor.
func NewEditor(store storage.ArtifactStore, detector *ffmpeg.BinaryDetector, cfg config.FFmpegConfig, tempDir string, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		store:    store,
		detector: detector,
		cfg:      cfg,
		tempDir:  tempDir,
		logger:   observability.WithComponent(logger, "editor"),
	}
}

// AddTextOverlay downloads the video, burns in a wrapped, boxed caption
// with drawtext, uploads the result, and returns its URL.
func (e *Editor) AddTextOverlay(ctx context.Context, videoURL, userID, sessionID string, p TextOverlayParams) (string, error) {
	if p.FontSize <= 0 {
		p.FontSize = DefaultFontSize
	}
	if p.Color == "" {
		p.Color = DefaultFontColor
	}
	if p.Position == "" {
		p.Position = DefaultPosition
	}

	ctx, cancel := e.renderContext(ctx)
	defer cancel()

	info, err := e.detector.Detect(ctx)
	if err != nil {
		return "", err
	}

	inputPath, cleanup, err := e.downloadInput(ctx, videoURL)
	if err != nil {
		return "", err
	}
	defer cleanup()

	// Caption width is capped at 80% of the frame; fall back to 1080p
	// when ffprobe is unavailable.
	width := 1920
	if info.FFprobePath != "" {
		dims, err := ffmpeg.NewProber(info.FFprobePath).ProbeDimensions(ctx, inputPath)
		if err != nil {
			e.logger.Warn("probe failed, using default width", slog.String("error", err.Error()))
		} else {
			width = dims.Width
		}
	}

	lines := wrapText(p.Text, int(float64(width)*0.8), p.FontSize)
	textFilePath, err := e.writeTempFile("overlay-*.txt", []byte(strings.Join(lines, "\n")))
	if err != nil {
		return "", err
	}
	defer os.Remove(textFilePath)

	outputPath := filepath.Join(e.tempDir, fmt.Sprintf("render-%s.mp4", uuid.NewString()))
	defer os.Remove(outputPath)

	filter := drawtextFilter(
		e.cfg.FontFile, textFilePath, p.Color, p.FontSize,
		yExpression(p.Position), boxColor(p.BrandColor),
		p.StartSec, p.DurationSec,
	)

	cmd := ffmpeg.NewCommandBuilder(info.FFmpegPath).
		HideBanner().
		Overwrite().
		Input(inputPath).
		VideoFilter(filter).
		AudioCodec("copy").
		Output(outputPath).
		Build()

	e.logger.Info("rendering text overlay",
		slog.String("video_url", videoURL),
		slog.Int("lines", len(lines)),
		slog.Int("start_sec", p.StartSec),
		slog.Int("duration_sec", p.DurationSec),
	)
	e.logger.Debug("ffmpeg command", slog.String("cmd", cmd.String()))

	if err := cmd.Run(ctx); err != nil {
		return "", fmt.Errorf("rendering text overlay: %w", err)
	}

	return e.store.UploadFile(ctx, outputPath, userID, sessionID, artifactKind(p.VideoID))
}

// AddAudioOverlay downloads the video, mixes the voiceover over the
// original audio track with the configured volumes and delay, uploads the
// result, and returns its URL. The video stream is passed through.
func (e *Editor) AddAudioOverlay(ctx context.Context, videoURL, userID, sessionID string, p AudioOverlayParams) (string, error) {
	if p.VolumeOverlay == 0 {
		p.VolumeOverlay = 1.0
	}
	if p.VolumeOriginal == 0 {
		p.VolumeOriginal = 0.3
	}

	if _, err := os.Stat(p.AudioPath); err != nil {
		return "", fmt.Errorf("audio file not found at %s: %w", p.AudioPath, err)
	}

	ctx, cancel := e.renderContext(ctx)
	defer cancel()

	info, err := e.detector.Detect(ctx)
	if err != nil {
		return "", err
	}

	inputPath, cleanup, err := e.downloadInput(ctx, videoURL)
	if err != nil {
		return "", err
	}
	defer cleanup()

	outputPath := filepath.Join(e.tempDir, fmt.Sprintf("render-%s.mp4", uuid.NewString()))
	defer os.Remove(outputPath)

	cmd := ffmpeg.NewCommandBuilder(info.FFmpegPath).
		HideBanner().
		Overwrite().
		Input(inputPath).
		Input(p.AudioPath).
		FilterComplex(audioMixFilter(p.StartOffsetSec, p.VolumeOverlay, p.VolumeOriginal)).
		Map("0:v").
		Map("[aout]").
		VideoCodec("copy").
		AudioCodec("aac").
		AudioBitrate("128k").
		Output(outputPath).
		Build()

	e.logger.Info("rendering audio overlay",
		slog.String("video_url", videoURL),
		slog.Int("start_offset_sec", p.StartOffsetSec),
	)
	e.logger.Debug("ffmpeg command", slog.String("cmd", cmd.String()))

	if err := cmd.Run(ctx); err != nil {
		return "", fmt.Errorf("rendering audio overlay: %w", err)
	}

	return e.store.UploadFile(ctx, outputPath, userID, sessionID, artifactKind(p.VideoID))
}

// renderContext bounds a single render by the configured timeout.
func (e *Editor) renderContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.RenderTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.RenderTimeout)
}

// downloadInput fetches the source video to a temp file.
func (e *Editor) downloadInput(ctx context.Context, videoURL string) (string, func(), error) {
	inputPath := filepath.Join(e.tempDir, fmt.Sprintf("input-%s.mp4", uuid.NewString()))
	if err := e.store.Download(ctx, videoURL, inputPath); err != nil {
		return "", nil, fmt.Errorf("downloading source video: %w", err)
	}
	return inputPath, func() { os.Remove(inputPath) }, nil
}

// writeTempFile writes data to a new file in the temp dir.
func (e *Editor) writeTempFile(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(e.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

var _ VideoEditor = (*Editor)(nil)
