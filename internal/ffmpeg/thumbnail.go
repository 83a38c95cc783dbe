package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kikiluvv/reelcannon/pkg/util"
)

// ThumbnailOptions defines frame grab parameters
type ThumbnailOptions struct {
	At       time.Duration
	Duration time.Duration
	Output   string
}

// ThumbnailTime clamps the requested timestamp into the media duration so
// short clips still yield a frame
func ThumbnailTime(at, duration time.Duration) time.Duration {
	if at < 0 {
		at = 0
	}
	if duration > 0 && at >= duration {
		at = duration / 2
	}
	return at
}

// Thumbnail writes a single JPEG frame taken from the input
func (e *Executor) Thumbnail(ctx context.Context, input string, opts ThumbnailOptions) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if err := util.EnsureDir(filepath.Dir(opts.Output)); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	at := ThumbnailTime(opts.At, opts.Duration)
	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("at", at).
		Msg("generating thumbnail")

	args := []string{
		"-ss", util.FormatDuration(at),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		opts.Output,
	}

	runOpts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("thumbnail output")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("thumbnail failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("thumbnail written")
	return nil
}
