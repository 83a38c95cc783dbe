// Package pipeline orchestrates a render job from request to output file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/reelcannon/internal/ffmpeg"
	"github.com/kikiluvv/reelcannon/internal/metrics"
	"github.com/kikiluvv/reelcannon/internal/render"
	"github.com/kikiluvv/reelcannon/internal/request"
)

// Deps are the collaborators a Pipeline drives
type Deps struct {
	Prober  Prober
	Engine  Engine
	Fetcher Fetcher
	Assets  AssetResolver
	Metrics *metrics.Recorder
}

// Pipeline runs fetch, probe, asset resolution, graph build, assembly and
// execution for one request at a time
type Pipeline struct {
	logger  zerolog.Logger
	config  Config
	prober  Prober
	engine  Engine
	fetcher Fetcher
	assets  AssetResolver
	metrics *metrics.Recorder
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Prober == nil || deps.Engine == nil || deps.Fetcher == nil || deps.Assets == nil {
		return nil, fmt.Errorf("pipeline: missing dependency")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if cfg.Executable == "" {
		cfg.Executable = render.DefaultExecutable
	}

	return &Pipeline{
		logger:  logger.With().Str("component", "pipeline").Logger(),
		config:  cfg,
		prober:  deps.Prober,
		engine:  deps.Engine,
		fetcher: deps.Fetcher,
		assets:  deps.Assets,
		metrics: deps.Metrics,
	}, nil
}

// job carries the state of one run between phases
type job struct {
	id      string
	logger  zerolog.Logger
	config  render.RenderConfig
	started time.Time
	result  *Result
}

func (j *job) phase(p *Pipeline, name string, fn func() error) error {
	start := time.Now()
	j.logger.Debug().Str("phase", name).Msg("phase started")
	err := fn()
	elapsed := time.Since(start)
	if err != nil {
		j.logger.Error().Err(err).Str("phase", name).Dur("elapsed", elapsed).Msg("phase failed")
		return err
	}
	j.result.Phases = append(j.result.Phases, PhaseTiming{Name: name, Elapsed: elapsed})
	p.metrics.ObservePhase(name, elapsed)
	j.logger.Info().Str("phase", name).Dur("elapsed", elapsed).Msg("phase complete")
	return nil
}

// Plan resolves sources and builds the invocation without executing it.
// Remote sources are still downloaded because the primary input must be
// probed to choose the stages.
func (p *Pipeline) Plan(ctx context.Context, req *request.Request) (*Result, error) {
	j, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	j.result.Elapsed = time.Since(j.started)
	return j.result, nil
}

// Render executes the full job and returns the finished result
func (p *Pipeline) Render(ctx context.Context, req *request.Request) (*Result, error) {
	started := time.Now()
	res, err := p.render(ctx, req)
	elapsed := time.Since(started)
	p.metrics.ObserveRender(Status(err), elapsed)
	if err != nil {
		return nil, err
	}
	res.Elapsed = elapsed
	return res, nil
}

func (p *Pipeline) render(ctx context.Context, req *request.Request) (*Result, error) {
	j, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	res := j.result

	err = j.phase(p, PhaseExecute, func() error {
		return p.engine.Render(ctx, res.Invocation, ffmpeg.RenderOptions{
			Duration:     res.Media.Duration,
			ProgressFunc: p.progressFunc(j.logger),
		})
	})
	if err != nil {
		return nil, err
	}
	res.OutputPath = res.Invocation.OutputPath

	if p.config.Thumbnail {
		thumb := filepath.Join(p.config.OutputsDir, ThumbnailName)
		err := j.phase(p, PhaseThumbnail, func() error {
			return p.engine.Thumbnail(ctx, res.OutputPath, ffmpeg.ThumbnailOptions{
				At:       p.config.ThumbnailAt,
				Duration: res.Media.Duration,
				Output:   thumb,
			})
		})
		// the render itself succeeded, so a missing thumbnail is not fatal
		if err != nil {
			j.logger.Warn().Err(err).Msg("thumbnail skipped")
		} else {
			res.ThumbnailPath = thumb
		}
	}

	j.logger.Info().
		Str("output", res.OutputPath).
		Dur("elapsed", time.Since(j.started)).
		Msg("render job complete")
	return res, nil
}

// prepare runs every phase up to and including assembly
func (p *Pipeline) prepare(ctx context.Context, req *request.Request) (*job, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	cfg, err := req.Config()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	j := &job{
		id:      id,
		logger:  p.logger.With().Str("job", id).Logger(),
		config:  cfg,
		started: time.Now(),
		result:  &Result{JobID: id},
	}
	res := j.result

	j.logger.Info().
		Str("video", req.VideoURL).
		Str("subtitles", req.SubtitleURL).
		Str("template", string(cfg.TemplateID)).
		Str("subtitle_style", string(cfg.SubtitleStyle)).
		Str("crop", string(cfg.CropMode)).
		Bool("zoom", cfg.ZoomEffect).
		Str("format", cfg.Format()).
		Msg("starting render job")

	err = j.phase(p, PhaseFetch, func() error {
		var err error
		res.VideoPath, err = p.resolveSource(ctx, req.VideoURL, p.videoDest)
		if err != nil {
			return fmt.Errorf("video source: %w", err)
		}
		if req.SubtitleURL == "" {
			return nil
		}
		res.SubtitlePath, err = p.resolveSource(ctx, req.SubtitleURL, func(request.Source) string {
			return filepath.Join(p.config.DownloadsDir, SubtitleFileName)
		})
		if err != nil {
			return fmt.Errorf("subtitle source: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cfg.SubtitleStyle != render.SubtitleNone && res.SubtitlePath == "" {
		j.logger.Warn().
			Str("subtitle_style", string(cfg.SubtitleStyle)).
			Msg("subtitle style set without a subtitle file, skipping subtitles")
	}

	err = j.phase(p, PhaseProbe, func() error {
		var err error
		res.Media, err = p.prober.MediaProperties(ctx, res.VideoPath)
		return err
	})
	if err != nil {
		return nil, err
	}
	j.logger.Info().
		Int("width", res.Media.Width).
		Int("height", res.Media.Height).
		Dur("duration", res.Media.Duration).
		Bool("has_audio", res.Media.HasAudio).
		Msg("video metadata extracted")

	var avail render.AssetAvailability
	_ = j.phase(p, PhaseAssets, func() error {
		avail = p.assets.ResolveAll()
		for name, asset := range avail {
			if !asset.Exists {
				j.logger.Debug().Str("asset", name).Str("path", asset.Path).Msg("asset not found")
			}
		}
		return nil
	})

	err = j.phase(p, PhaseBuild, func() error {
		g, err := render.Build(render.BuildInput{
			Config:   cfg,
			Media:    res.Media,
			Assets:   avail,
			Subtitle: res.SubtitlePath,
		})
		if err != nil {
			return err
		}
		res.Stages = g.StageNames()
		res.Invocation = render.Assemble(g, render.AssembleInput{
			Executable:   p.config.Executable,
			PrimaryInput: res.VideoPath,
			OutputPath:   filepath.Join(p.config.OutputsDir, OutputFileStem),
			HasAudio:     res.Media.HasAudio,
			OutputFormat: cfg.Format(),
			Policy:       p.config.Policy,
		})
		p.metrics.SetFilterStages(len(g.Stages))
		return nil
	})
	if err != nil {
		return nil, err
	}

	j.logger.Info().
		Strs("stages", res.Stages).
		Str("output", res.Invocation.OutputPath).
		Msg("invocation assembled")
	j.logger.Debug().Str("command", res.Invocation.String()).Msg("ffmpeg command")

	return j, nil
}

func (p *Pipeline) videoDest(src request.Source) string {
	ext := src.Ext()
	if ext == "" {
		ext = defaultVideoExt
	}
	return filepath.Join(p.config.DownloadsDir, VideoFileStem+ext)
}

// resolveSource downloads remote sources and checks local ones
func (p *Pipeline) resolveSource(ctx context.Context, raw string, dest func(request.Source) string) (string, error) {
	src, err := request.ParseSource(raw)
	if err != nil {
		return "", err
	}
	if src.Kind == request.SourceLocal {
		info, err := os.Stat(src.Path)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", src.Path)
		}
		return src.Path, nil
	}

	path := dest(src)
	n, err := p.fetcher.Download(ctx, src.URL, path)
	if err != nil {
		return "", err
	}
	p.metrics.AddDownloadBytes(n)
	return path, nil
}

func (p *Pipeline) progressFunc(logger zerolog.Logger) ffmpeg.ProgressFunc {
	return func(prog *ffmpeg.Progress) {
		if speed, ok := parseSpeed(prog.Speed); ok {
			p.metrics.SetEncodeSpeed(speed)
		}
		logger.Debug().
			Int("frame", prog.Frame).
			Float64("fps", prog.FPS).
			Str("time", prog.Time).
			Str("speed", prog.Speed).
			Float64("percent", prog.Percentage).
			Msg("render progress")
	}
}

// parseSpeed reads values like "1.87x"
func parseSpeed(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "x")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Status classifies a job error into a metrics outcome label
func Status(err error) string {
	var (
		cfgErr   *render.ConfigError
		probeErr *ffmpeg.ProbeError
		execErr  *ffmpeg.ExecutionError
	)
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.As(err, &cfgErr):
		return metrics.StatusConfigError
	case errors.As(err, &probeErr):
		return metrics.StatusProbeError
	case errors.As(err, &execErr):
		return metrics.StatusExecutionError
	default:
		return metrics.StatusError
	}
}
