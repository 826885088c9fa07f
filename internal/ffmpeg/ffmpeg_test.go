package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBuilder_SingleInput(t *testing.T) {
	cmd := NewCommandBuilder("/usr/bin/ffmpeg").
		HideBanner().
		Overwrite().
		Input("in.mp4").
		VideoFilter("drawtext=text='hi'").
		Output("out.mp4").
		Build()

	assert.Equal(t, "/usr/bin/ffmpeg", cmd.Binary)
	assert.Equal(t, []string{
		"-loglevel", "error",
		"-hide_banner",
		"-y",
		"-i", "in.mp4",
		"-vf", "drawtext=text='hi'",
		"out.mp4",
	}, cmd.Args)
}

func TestCommandBuilder_MultiInputFilterComplex(t *testing.T) {
	cmd := NewCommandBuilder("ffmpeg").
		Overwrite().
		Input("video.mp4").
		Input("voiceover.wav").
		FilterComplex("[1:a]adelay=2000|2000[vo];[0:a][vo]amix=inputs=2[aout]").
		Map("0:v").
		Map("[aout]").
		VideoCodec("copy").
		AudioCodec("aac").
		AudioBitrate("128k").
		Output("out.mp4").
		Build()

	args := cmd.Args
	assert.Contains(t, args, "-filter_complex")
	assert.Equal(t, []string{"-i", "video.mp4"}, args[3:5])
	assert.Equal(t, []string{"-i", "voiceover.wav"}, args[5:7])

	// output options come after filters, output path is last
	assert.Equal(t, "out.mp4", args[len(args)-1])
	assert.Contains(t, args, "copy")
	assert.Contains(t, args, "128k")
}

func TestCommandBuilder_InputWithArgs(t *testing.T) {
	cmd := NewCommandBuilder("ffmpeg").
		InputWithArgs("in.mp4", "-ss", "5").
		Output("out.mp4").
		Build()

	assert.Equal(t, []string{"-loglevel", "error", "-ss", "5", "-i", "in.mp4", "out.mp4"}, cmd.Args)
}

func TestParseVersion(t *testing.T) {
	version, major, minor := parseVersion("ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023")
	assert.Equal(t, "6.1.1-3ubuntu5", version)
	assert.Equal(t, 6, major)
	assert.Equal(t, 1, minor)

	version, major, minor = parseVersion("ffmpeg version n7.0 Copyright")
	assert.Equal(t, "n7.0", version)
	assert.Equal(t, 7, major)
	assert.Equal(t, 0, minor)

	version, major, minor = parseVersion("garbage")
	assert.Empty(t, version)
	assert.Zero(t, major)
	assert.Zero(t, minor)
}

func TestParseDimensions(t *testing.T) {
	d, err := parseDimensions("1920,1080\n")
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 1920, Height: 1080}, d)

	// some ffprobe builds emit a trailing comma
	d, err = parseDimensions("1280,720,\n")
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 1280, Height: 720}, d)

	_, err = parseDimensions("")
	assert.Error(t, err)
}

func TestCommand_StderrTailBounded(t *testing.T) {
	cmd := &Command{}
	for i := 0; i < stderrTailLines*2; i++ {
		cmd.appendStderr("line")
	}
	tailLen := len(cmd.stderrLines)
	assert.Equal(t, stderrTailLines, tailLen)
}
