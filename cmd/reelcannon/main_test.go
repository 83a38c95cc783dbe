package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kikiluvv/reelcannon/internal/ffmpeg"
	"github.com/kikiluvv/reelcannon/internal/render"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"config", fmt.Errorf("build stage: %w", &render.ConfigError{Field: "template_id", Value: "x"}), exitConfig},
		{"probe", fmt.Errorf("wrapped: %w", &ffmpeg.ProbeError{Path: "in.mp4", Err: errors.New("bad")}), exitProbe},
		{"execution", fmt.Errorf("render failed: %w", &ffmpeg.ExecutionError{ExitCode: 1}), exitExecution},
		{"interrupted", fmt.Errorf("render failed: %w", context.Canceled), exitInterrupted},
		{"other", errors.New("disk full"), exitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
