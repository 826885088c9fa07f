package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Dimensions holds the pixel dimensions of a video stream.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Prober inspects media files using ffprobe.
type Prober struct {
	ffprobePath string
}

// NewProber creates a prober using the given ffprobe binary.
func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

// ProbeDimensions returns the width and height of the first video stream.
func (p *Prober) ProbeDimensions(ctx context.Context, path string) (Dimensions, error) {
	if p.ffprobePath == "" {
		return Dimensions{}, fmt.Errorf("ffprobe not available")
	}

	out, err := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return Dimensions{}, fmt.Errorf("probing %s: %w", path, err)
	}

	return parseDimensions(string(out))
}

// parseDimensions parses ffprobe csv output of the form "1920,1080".
func parseDimensions(output string) (Dimensions, error) {
	line := strings.TrimSpace(output)
	parts := strings.Split(strings.TrimSuffix(line, ","), ",")
	if len(parts) < 2 {
		return Dimensions{}, fmt.Errorf("unexpected ffprobe output: %q", output)
	}

	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Dimensions{}, fmt.Errorf("parsing width: %w", err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Dimensions{}, fmt.Errorf("parsing height: %w", err)
	}
	return Dimensions{Width: width, Height: height}, nil
}
