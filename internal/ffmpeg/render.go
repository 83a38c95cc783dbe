package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kikiluvv/reelcannon/internal/render"
	"github.com/kikiluvv/reelcannon/pkg/util"
)

// RenderOptions configures execution of an assembled invocation
type RenderOptions struct {
	// Duration of the primary input, used for progress percentages
	Duration     time.Duration
	ProgressFunc ProgressFunc
}

// Render executes an assembled invocation. The engine writes to a hidden
// partial file next to the destination, which is renamed into place only
// after a zero exit; on failure nothing is left at the destination path.
func (e *Executor) Render(ctx context.Context, inv render.Invocation, opts RenderOptions) error {
	if err := validateInvocation(inv); err != nil {
		return fmt.Errorf("invalid invocation: %w", err)
	}

	if err := util.EnsureDir(filepath.Dir(inv.OutputPath)); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	partial := partialPath(inv.OutputPath)

	e.logger.Info().
		Str("input", inv.PrimaryInput).
		Str("output", inv.OutputPath).
		Int("extra_inputs", len(inv.ExtraInputs)).
		Msg("starting render")
	e.logger.Debug().Str("filter_complex", inv.FilterGraph).Msg("filter graph")

	binary := inv.Executable
	if binary == "" || binary == render.DefaultExecutable {
		binary = e.ffmpegPath
	}

	runOpts := RunOptions{
		Binary:          binary,
		Args:            inv.ArgsWithOutput(partial),
		Duration:        opts.Duration,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("render output")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		util.CleanupFiles(partial)
		return fmt.Errorf("render failed: %w", err)
	}

	if err := os.Rename(partial, inv.OutputPath); err != nil {
		util.CleanupFiles(partial)
		return fmt.Errorf("failed to move render into place: %w", err)
	}

	e.logger.Info().Str("output", inv.OutputPath).Msg("render completed")
	return nil
}

// partialPath keeps the destination extension last so ffmpeg still infers
// the container from it
func partialPath(output string) string {
	dir, base := filepath.Split(output)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, "."+stem+"."+uuid.NewString()+".partial"+ext)
}

// validateInvocation validates the invocation before anything is started
func validateInvocation(inv render.Invocation) error {
	if inv.PrimaryInput == "" {
		return fmt.Errorf("input path is required")
	}
	if inv.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if len(inv.Maps) == 0 {
		return fmt.Errorf("at least one stream map is required")
	}
	return nil
}
