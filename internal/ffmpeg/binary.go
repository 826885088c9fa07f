// Package ffmpeg provides FFmpeg/FFprobe binary detection and a command
// wrapper for video rendering.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BinaryInfo contains information about the FFmpeg/FFprobe installation.
type BinaryInfo struct {
	FFmpegPath   string `json:"ffmpeg_path"`
	FFprobePath  string `json:"ffprobe_path"`
	Version      string `json:"version"`
	MajorVersion int    `json:"major_version"`
	MinorVersion int    `json:"minor_version"`
}

// BinaryDetector handles detection and caching of FFmpeg binaries.
// Configured paths take precedence; otherwise PATH is searched.
type BinaryDetector struct {
	mu           sync.RWMutex
	ffmpegPath   string
	ffprobePath  string
	info         *BinaryInfo
	lastDetected time.Time
	cacheTTL     time.Duration
}

// NewBinaryDetector creates a new binary detector. Empty paths mean
// auto-detect from PATH.
func NewBinaryDetector(ffmpegPath, ffprobePath string) *BinaryDetector {
	return &BinaryDetector{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		cacheTTL:    5 * time.Minute,
	}
}

// WithCacheTTL sets the cache TTL for binary detection.
func (d *BinaryDetector) WithCacheTTL(ttl time.Duration) *BinaryDetector {
	d.cacheTTL = ttl
	return d
}

// Detect locates the FFmpeg and FFprobe binaries and reads their version.
// Results are cached.
func (d *BinaryDetector) Detect(ctx context.Context) (*BinaryInfo, error) {
	d.mu.RLock()
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		info := d.info
		d.mu.RUnlock()
		return info, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		return d.info, nil
	}

	info, err := d.detect(ctx)
	if err != nil {
		return nil, err
	}

	d.info = info
	d.lastDetected = time.Now()
	return info, nil
}

// Clear clears the cached binary information.
func (d *BinaryDetector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.info = nil
}

func (d *BinaryDetector) detect(ctx context.Context) (*BinaryInfo, error) {
	info := &BinaryInfo{}

	ffmpegPath, err := resolveBinary(d.ffmpegPath, "ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	info.FFmpegPath = ffmpegPath

	// ffprobe is optional; probing degrades to defaults without it.
	if ffprobePath, err := resolveBinary(d.ffprobePath, "ffprobe"); err == nil {
		info.FFprobePath = ffprobePath
	}

	out, err := exec.CommandContext(ctx, ffmpegPath, "-version").Output()
	if err != nil {
		return nil, fmt.Errorf("querying ffmpeg version: %w", err)
	}
	info.Version, info.MajorVersion, info.MinorVersion = parseVersion(string(out))

	return info, nil
}

// resolveBinary returns the configured path when set, else searches PATH.
func resolveBinary(configured, name string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return exec.LookPath(name)
}

var versionRe = regexp.MustCompile(`ffmpeg version (\S+)`)

// parseVersion extracts the version string and major/minor numbers from
// `ffmpeg -version` output.
func parseVersion(output string) (version string, major, minor int) {
	m := versionRe.FindStringSubmatch(output)
	if m == nil {
		return "", 0, 0
	}
	version = m[1]

	numeric := strings.TrimLeft(version, "nv")
	parts := strings.SplitN(numeric, ".", 3)
	if len(parts) > 0 {
		major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(strings.SplitN(parts[1], "-", 2)[0])
	}
	return version, major, minor
}
