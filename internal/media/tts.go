package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/clipsmith/clipsmith/internal/config"
	"github.com/clipsmith/clipsmith/internal/observability"
	"github.com/clipsmith/clipsmith/internal/storage"
)

// SpeechResult is the outcome of a synthesis call.
type SpeechResult struct {
	// LocalPath is the synthesized WAV file on local disk, ready to feed
	// into an audio overlay render.
	LocalPath string
	// AudioURL is the uploaded copy of the audio artifact.
	AudioURL string
}

// SpeechSynthesizer turns text into a voiceover audio file.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceName, languageCode string) (*SpeechResult, error)
}

// GeminiSynthesizer implements SpeechSynthesizer using the Gemini TTS
// models.
type GeminiSynthesizer struct {
	client  *genai.Client
	cfg     config.GeminiConfig
	store   storage.ArtifactStore
	tempDir string
	logger  *slog.Logger
}

// NewGeminiSynthesizer creates a synthesizer backed by the given client.
func NewGeminiSynthesizer(client *genai.Client, cfg config.GeminiConfig, store storage.ArtifactStore, tempDir string, logger *slog.Logger) *GeminiSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiSynthesizer{
		client:  client,
		cfg:     cfg,
		store:   store,
		tempDir: tempDir,
		logger:  observability.WithComponent(logger, "tts"),
	}
}

// Synthesize generates speech, writes it to a local WAV file, uploads a
// copy, and returns both locations. Empty voiceName/languageCode fall
// back to the configured defaults.
func (s *GeminiSynthesizer) Synthesize(ctx context.Context, text, voiceName, languageCode string) (*SpeechResult, error) {
	if voiceName == "" {
		voiceName = s.cfg.TTSVoice
	}
	if languageCode == "" {
		languageCode = s.cfg.TTSLanguage
	}

	s.logger.Info("generating speech",
		slog.Int("text_length", len(text)),
		slog.String("voice", voiceName),
	)

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voiceName,
				},
			},
			LanguageCode: languageCode,
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.cfg.TTSModel, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("generating speech: %w", err)
	}

	pcm, err := extractAudioData(resp)
	if err != nil {
		return nil, err
	}

	wav := pcmToWAV(pcm, ttsSampleRate, ttsChannels, ttsBitsPerSample)

	localPath := filepath.Join(s.tempDir, fmt.Sprintf("voiceover-%s.wav", uuid.NewString()))
	if err := os.WriteFile(localPath, wav, 0o644); err != nil {
		return nil, fmt.Errorf("writing audio file: %w", err)
	}

	audioURL, err := s.store.UploadBytes(ctx, wav, "audio", "generated", "audio", ".wav")
	if err != nil {
		// The local file is what the render pipeline needs; the uploaded
		// copy is informational.
		s.logger.Warn("audio upload failed", slog.String("error", err.Error()))
		audioURL = ""
	}

	s.logger.Info("speech generated",
		slog.String("local_path", localPath),
		slog.Int("pcm_bytes", len(pcm)),
	)

	return &SpeechResult{LocalPath: localPath, AudioURL: audioURL}, nil
}

// extractAudioData pulls the inline audio bytes out of a response.
func extractAudioData(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from TTS model")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("no audio data in TTS response")
}

var _ SpeechSynthesizer = (*GeminiSynthesizer)(nil)
