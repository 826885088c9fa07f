// Package media renders edits onto videos using FFmpeg and synthesizes
// voiceover audio.
package media

import (
	"fmt"
	"strings"
)

// Defaults for text overlays.
const (
	DefaultFontSize  = 70
	DefaultFontColor = "white"
	DefaultPosition  = "center"

	// DefaultBrandColor is the box background used when a video has no
	// feature branding.
	DefaultBrandColor = "#1e1e1e"

	// boxAlphaHex is 0.8 opacity expressed as a hex byte.
	boxAlphaHex = "CC"
)

// wrapText breaks text into lines that fit maxWidth pixels at the given
// font size, estimating average glyph width as 55% of the font size.
// Words longer than a line get a line of their own.
func wrapText(text string, maxWidth, fontSize int) []string {
	avgCharWidth := float64(fontSize) * 0.55
	maxCharsPerLine := int(float64(maxWidth) / avgCharWidth)

	words := strings.Fields(text)
	var lines []string
	var current []string

	for _, word := range words {
		test := strings.Join(append(append([]string{}, current...), word), " ")
		if len(test) <= maxCharsPerLine {
			current = append(current, word)
			continue
		}
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
			current = []string{word}
		} else {
			lines = append(lines, word)
			current = nil
		}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}

// yExpression maps a named vertical position to a drawtext y expression.
func yExpression(position string) string {
	switch position {
	case "top":
		return "30"
	case "bottom":
		return "h-text_h-30"
	default:
		return "(h-text_h)/2"
	}
}

// boxColor converts a "#rrggbb" brand color into the drawtext boxcolor
// value with 0.8 alpha. An empty color falls back to the default so the
// filter never carries a bare alpha value ffmpeg would reject.
func boxColor(brandColor string) string {
	hex := strings.TrimPrefix(brandColor, "#")
	if hex == "" {
		hex = strings.TrimPrefix(DefaultBrandColor, "#")
	}
	return "0x" + hex + boxAlphaHex
}

// drawtextFilter assembles the drawtext video filter for a boxed, centered
// caption visible between start and start+duration seconds.
func drawtextFilter(fontFile, textFilePath, fontColor string, fontSize int, yExpr, boxColorValue string, startSec, durationSec int) string {
	return fmt.Sprintf(
		"drawtext=fontfile=%s:textfile=%s:fontcolor=%s:fontsize=%d:x=(w-text_w)/2:y=%s:box=1:boxcolor=%s:boxborderw=20:line_spacing=10:enable='between(t,%d,%d)'",
		fontFile, textFilePath, fontColor, fontSize, yExpr, boxColorValue, startSec, startSec+durationSec,
	)
}

// audioMixFilter assembles the filter graph that delays the voiceover by
// startOffset seconds, scales both tracks, and mixes them.
func audioMixFilter(startOffsetSec int, volumeOverlay, volumeOriginal float64) string {
	delayMS := startOffsetSec * 1000
	return fmt.Sprintf(
		"[0:a]volume=%g[a0];[1:a]adelay=%d|%d,volume=%g[a1];[a0][a1]amix=inputs=2:duration=longest[aout]",
		volumeOriginal, delayMS, delayMS, volumeOverlay,
	)
}
