package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// stderrTailLines bounds how much stderr is kept for error reporting.
const stderrTailLines = 40

// CommandBuilder builds FFmpeg commands with a fluent API.
type CommandBuilder struct {
	binary     string
	globalArgs []string
	inputs     []input
	filterArgs []string
	outputArgs []string
	output     string
	logLevel   string
	overwrite  bool
}

type input struct {
	args []string
	path string
}

// NewCommandBuilder creates a new FFmpeg command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		binary:   ffmpegPath,
		logLevel: "error",
	}
}

// LogLevel sets the FFmpeg log level.
func (b *CommandBuilder) LogLevel(level string) *CommandBuilder {
	b.logLevel = level
	return b
}

// HideBanner hides the FFmpeg banner.
func (b *CommandBuilder) HideBanner() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-hide_banner")
	return b
}

// Overwrite enables output file overwriting.
func (b *CommandBuilder) Overwrite() *CommandBuilder {
	b.overwrite = true
	return b
}

// Input adds an input source. Inputs keep their order; per-input
// arguments apply to the most recently added input.
func (b *CommandBuilder) Input(path string) *CommandBuilder {
	b.inputs = append(b.inputs, input{path: path})
	return b
}

// InputWithArgs adds an input source preceded by input-specific arguments.
func (b *CommandBuilder) InputWithArgs(path string, args ...string) *CommandBuilder {
	b.inputs = append(b.inputs, input{path: path, args: args})
	return b
}

// VideoFilter sets a simple video filter chain (-vf).
func (b *CommandBuilder) VideoFilter(filter string) *CommandBuilder {
	b.filterArgs = append(b.filterArgs, "-vf", filter)
	return b
}

// FilterComplex sets a filter graph spanning multiple inputs.
func (b *CommandBuilder) FilterComplex(graph string) *CommandBuilder {
	b.filterArgs = append(b.filterArgs, "-filter_complex", graph)
	return b
}

// Map selects a stream for the output.
func (b *CommandBuilder) Map(spec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-map", spec)
	return b
}

// VideoCodec sets the video codec ("copy" passes through).
func (b *CommandBuilder) VideoCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:v", codec)
	return b
}

// AudioCodec sets the audio codec.
func (b *CommandBuilder) AudioCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:a", codec)
	return b
}

// AudioBitrate sets the audio bitrate, e.g. "128k".
func (b *CommandBuilder) AudioBitrate(bitrate string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-b:a", bitrate)
	return b
}

// OutputArgs adds arbitrary output arguments.
func (b *CommandBuilder) OutputArgs(args ...string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, args...)
	return b
}

// Output sets the output destination.
func (b *CommandBuilder) Output(path string) *CommandBuilder {
	b.output = path
	return b
}

// Args assembles the full argument list.
func (b *CommandBuilder) Args() []string {
	args := []string{}
	if b.logLevel != "" {
		args = append(args, "-loglevel", b.logLevel)
	}
	args = append(args, b.globalArgs...)
	if b.overwrite {
		args = append(args, "-y")
	}
	for _, in := range b.inputs {
		args = append(args, in.args...)
		args = append(args, "-i", in.path)
	}
	args = append(args, b.filterArgs...)
	args = append(args, b.outputArgs...)
	if b.output != "" {
		args = append(args, b.output)
	}
	return args
}

// Build creates the runnable command.
func (b *CommandBuilder) Build() *Command {
	return &Command{
		Binary: b.binary,
		Args:   b.Args(),
	}
}

// Command is a runnable FFmpeg invocation.
type Command struct {
	Binary string
	Args   []string

	mu          sync.Mutex
	stderrLines []string
}

// Run executes the command, blocking until it exits. On failure the error
// includes the tail of stderr, which is where FFmpeg reports its
// diagnostics.
func (c *Command) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("attaching stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		c.appendStderr(scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg canceled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, c.StderrTail())
	}
	return nil
}

func (c *Command) appendStderr(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stderrLines = append(c.stderrLines, line)
	if len(c.stderrLines) > stderrTailLines {
		c.stderrLines = c.stderrLines[len(c.stderrLines)-stderrTailLines:]
	}
}

// StderrTail returns the retained tail of stderr output.
func (c *Command) StderrTail() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.stderrLines, "\n")
}

// String returns the command line for logging.
func (c *Command) String() string {
	return c.Binary + " " + strings.Join(c.Args, " ")
}
