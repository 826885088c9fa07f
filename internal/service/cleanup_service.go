package service

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Temp file prefixes produced by the render pipeline.
var tempFilePrefixes = []string{"input-", "render-", "voiceover-", "overlay-"}

// CleanupService removes stale render temp files, on demand and on a cron
// schedule.
type CleanupService struct {
	tempDir string
	maxAge  time.Duration
	logger  *slog.Logger
	cron    *cron.Cron
}

// NewCleanupService creates a cleanup service for tempDir. Files older
// than maxAge are eligible for removal.
func NewCleanupService(tempDir string, maxAge time.Duration, logger *slog.Logger) *CleanupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupService{
		tempDir: tempDir,
		maxAge:  maxAge,
		logger:  logger,
	}
}

// Run removes render temp files older than the cutoff and returns how
// many were removed.
func (s *CleanupService) Run() (int, error) {
	if _, err := os.Stat(s.tempDir); os.IsNotExist(err) {
		s.logger.Debug("temp directory does not exist, skipping cleanup", "path", s.tempDir)
		return 0, nil
	}

	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.maxAge)
	var removed int

	for _, entry := range entries {
		if entry.IsDir() || !isRenderTempFile(entry.Name()) {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove temp file", "path", path, "error", err.Error())
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("removed stale render temp files",
			"path", s.tempDir,
			"count", removed,
		)
	}
	return removed, nil
}

// Start schedules Run on the given cron expression (with seconds field)
// and runs one sweep immediately.
func (s *CleanupService) Start(spec string) error {
	if _, err := s.Run(); err != nil {
		s.logger.Warn("initial temp cleanup failed", "error", err.Error())
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Run(); err != nil {
			s.logger.Warn("scheduled temp cleanup failed", "error", err.Error())
		}
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c

	s.logger.Info("temp cleanup scheduled", "cron", spec, "path", s.tempDir)
	return nil
}

// Stop stops the cron scheduler.
func (s *CleanupService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// isRenderTempFile reports whether a file name matches a pipeline temp
// file prefix.
func isRenderTempFile(name string) bool {
	for _, prefix := range tempFilePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
