package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// Options configures binary lookup for the executor
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int
}

// New creates a new ffmpeg executor. Binary names are resolved through PATH.
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	ffmpegName := opts.FFmpegPath
	if ffmpegName == "" {
		ffmpegName = "ffmpeg"
	}
	ffprobeName := opts.FFprobePath
	if ffprobeName == "" {
		ffprobeName = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(ffmpegName)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath(ffprobeName)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
	}, nil
}

// FFmpegPath returns the resolved ffmpeg binary
func (e *Executor) FFmpegPath() string {
	return e.ffmpegPath
}

// FFprobePath returns the resolved ffprobe binary
func (e *Executor) FFprobePath() string {
	return e.ffprobePath
}

// Run executes ffmpeg with the given arguments and streams progress. A
// non-zero exit is returned as *ExecutionError carrying the engine's
// diagnostic output.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	binary := opts.Binary
	if binary == "" {
		binary = e.ffmpegPath
	}

	// Build args with threads BEFORE other arguments
	baseArgs := []string{"-hide_banner", "-nostdin", "-nostats", "-loglevel", "info"}

	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", strconv.Itoa(e.threads))
	}

	baseArgs = append(baseArgs, "-progress", "pipe:2")
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", binary).
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, binary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var (
		wg    sync.WaitGroup
		diag  strings.Builder
		outMu sync.Mutex
	)
	logLine := func(line string) {
		outMu.Lock()
		diag.WriteString(line)
		diag.WriteByte('\n')
		outMu.Unlock()
		if opts.LogHandler != nil {
			opts.LogHandler(line)
		}
	}

	wg.Add(2)

	// Stream stderr (progress + logs)
	go func() {
		defer wg.Done()
		e.streamOutput(stderr, opts, logLine)
	}()

	// Stream stdout
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			logLine(scanner.Text())
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &ExecutionError{
			ExitCode:    exitCode,
			Diagnostics: diag.String(),
			Err:         err,
		}
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput separates -progress key=value lines from log lines. Progress
// blocks are delivered to the progress handler; everything else is a log line.
func (e *Executor) streamOutput(r io.Reader, opts RunOptions, logLine func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		key, value, ok := progressField(line)
		if !ok {
			logLine(line)
			continue
		}

		switch key {
		case "frame":
			progressData.Frame, _ = strconv.Atoi(value)
		case "fps":
			progressData.FPS, _ = strconv.ParseFloat(value, 64)
		case "bitrate":
			progressData.Bitrate = value
		case "out_time":
			progressData.Time = value
		case "out_time_us":
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && opts.Duration > 0 {
				pct := float64(us) / float64(opts.Duration.Microseconds()) * 100
				progressData.Percentage = min(pct, 100)
			}
		case "speed":
			progressData.Speed = value
		case "progress":
			// End of progress block
			if opts.ProgressHandler != nil && progressData.Frame > 0 {
				opts.ProgressHandler(progressData)
			}
			progressData = &Progress{}
		}
	}
}

// progressField matches the bare key=value lines written by -progress
func progressField(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, "=")
	if !ok || key == "" || strings.ContainsAny(key, " \t[") {
		return "", "", false
	}
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return "", "", false
		}
	}
	return key, strings.TrimSpace(value), true
}
