package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/clipsmith/clipsmith/internal/media"
)

// DefaultBrandColor is used when a video has no feature configuration.
const DefaultBrandColor = media.DefaultBrandColor

// Feature is one entry of the feature configuration file: a video with
// its branding.
type Feature struct {
	ID                string `json:"id"`
	Name              string `json:"name,omitempty"`
	VideoURL          string `json:"videoUrl"`
	PrimaryBrandColor string `json:"primary_brand_color,omitempty"`

	// Prompt is appended to the agent's system instruction when the
	// feature is active.
	Prompt string `json:"prompt,omitempty"`
}

// FeatureService loads and serves the feature configuration.
type FeatureService struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	features []Feature
	loaded   bool
}

// NewFeatureService creates a feature service reading from path. Loading
// is lazy; a missing file yields an empty feature list.
func NewFeatureService(path string, logger *slog.Logger) *FeatureService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureService{path: path, logger: logger}
}

// Features returns all configured features.
func (s *FeatureService) Features() []Feature {
	s.mu.RLock()
	if s.loaded {
		features := s.features
		s.mu.RUnlock()
		return features
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.features = s.load()
		s.loaded = true
	}
	return s.features
}

// Reload re-reads the configuration file.
func (s *FeatureService) Reload() []Feature {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = s.load()
	s.loaded = true
	return s.features
}

func (s *FeatureService) load() []Feature {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("feature config not loaded", "path", s.path, "error", err.Error())
		return nil
	}
	var features []Feature
	if err := json.Unmarshal(data, &features); err != nil {
		s.logger.Error("invalid feature config", "path", s.path, "error", err.Error())
		return nil
	}
	s.logger.Info("feature config loaded", "path", s.path, "features", len(features))
	return features
}

// Get returns the feature with the given id.
func (s *FeatureService) Get(featureID string) (*Feature, error) {
	for _, f := range s.Features() {
		if f.ID == featureID {
			return &f, nil
		}
	}
	return nil, fmt.Errorf("feature not found: %s", featureID)
}

// PromptFor returns the extra instruction configured for a feature, or
// empty when unconfigured.
func (s *FeatureService) PromptFor(featureID string) string {
	if featureID == "" {
		return ""
	}
	f, err := s.Get(featureID)
	if err != nil {
		return ""
	}
	return f.Prompt
}

// BrandColorForVideo returns the primary brand color configured for a
// video URL, or the default when unconfigured.
func (s *FeatureService) BrandColorForVideo(videoURL string) string {
	for _, f := range s.Features() {
		if f.VideoURL == videoURL && f.PrimaryBrandColor != "" {
			return f.PrimaryBrandColor
		}
	}
	return DefaultBrandColor
}
