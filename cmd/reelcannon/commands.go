package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/reelcannon/internal/assets"
	"github.com/kikiluvv/reelcannon/internal/config"
	"github.com/kikiluvv/reelcannon/internal/ffmpeg"
	"github.com/kikiluvv/reelcannon/internal/fetch"
	"github.com/kikiluvv/reelcannon/internal/metrics"
	"github.com/kikiluvv/reelcannon/internal/pipeline"
	"github.com/kikiluvv/reelcannon/internal/render"
	"github.com/kikiluvv/reelcannon/internal/request"
)

var renderCmd = &cobra.Command{
	Use:   "render [request.json]",
	Short: "Render a video from a JSON request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		req, err := request.Load(args[0])
		if err != nil {
			return err
		}

		pipe, rec, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		res, renderErr := pipe.Render(cmd.Context(), req)
		if cfg.Metrics.Textfile != "" {
			if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				log.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("failed to write metrics")
			}
		}
		if renderErr != nil {
			return renderErr
		}

		for _, ph := range res.Phases {
			log.Info().Str("phase", ph.Name).Dur("elapsed", ph.Elapsed).Msg("timing")
		}
		log.Info().
			Str("job", res.JobID).
			Str("output", res.OutputPath).
			Str("thumbnail", res.ThumbnailPath).
			Dur("elapsed", res.Elapsed).
			Msg("render complete")

		fmt.Fprintln(cmd.OutOrStdout(), res.OutputPath)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [request.json]",
	Short: "Print the ffmpeg command for a request without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		req, err := request.Load(args[0])
		if err != nil {
			return err
		}

		pipe, _, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		res, err := pipe.Plan(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# stages: %s\n", strings.Join(res.Stages, ", "))
		fmt.Fprintln(out, res.Invocation.String())
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [video]",
	Short: "Show the media properties used to plan a render",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := newExecutor(cfg, log.Logger)
		if err != nil {
			return err
		}

		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return printYAML(cmd, map[string]any{
			"path":        info.FilePath,
			"width":       info.Width,
			"height":      info.Height,
			"duration":    info.Duration.String(),
			"fps":         info.FPS,
			"video_codec": info.VideoCodec,
			"has_audio":   info.HasAudio,
			"audio_codec": info.AudioCodec,
			"landscape":   info.MediaProperties().Landscape(),
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printYAML(cmd, config.FromContext(cmd.Context()))
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "reelcannon.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:       "list [templates|styles|assets]",
	Short:     "List available resources",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"templates", "styles", "assets"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		out := cmd.OutOrStdout()

		switch args[0] {
		case "templates":
			for _, t := range []render.TemplateID{render.Template1, render.Template2} {
				fmt.Fprintln(out, t)
			}
		case "styles":
			for _, s := range []render.SubtitleStyle{render.SubtitleBoldWhiteBox, render.SubtitleYellowBold} {
				style, err := render.ForceStyle(s)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", s, style)
			}
		case "assets":
			avail := newAssetRegistry(cfg).ResolveAll()
			names := make([]string, 0, len(avail))
			for name := range avail {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				a := avail[name]
				state := "missing"
				if a.Exists {
					state = "ok"
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", name, state, a.Path)
			}
		default:
			return fmt.Errorf("unknown resource %q", args[0])
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func newExecutor(cfg *config.Config, logger zerolog.Logger) (*ffmpeg.Executor, error) {
	return ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
	})
}

func newAssetRegistry(cfg *config.Config) *assets.Registry {
	return assets.DefaultRegistry(cfg.Dir(cfg.AssetsDir), cfg.Assets)
}

// newPipeline wires the pipeline from configuration
func newPipeline(cfg *config.Config) (*pipeline.Pipeline, *metrics.Recorder, error) {
	exec, err := newExecutor(cfg, log.Logger)
	if err != nil {
		return nil, nil, err
	}

	rec := metrics.New()
	downloader := fetch.New(log.Logger, fetch.Options{
		Timeout:     cfg.DownloadTimeout(),
		MaxAttempts: cfg.Download.MaxAttempts,
	})

	pipe, err := pipeline.New(log.Logger, pipeline.Config{
		DownloadsDir: cfg.Dir(cfg.DownloadsDir),
		OutputsDir:   cfg.Dir(cfg.OutputsDir),
		Executable:   exec.FFmpegPath(),
		Policy:       cfg.OutputPolicy(),
		Thumbnail:    cfg.Thumbnail.Enabled,
		ThumbnailAt:  cfg.ThumbnailAt(),
	}, pipeline.Deps{
		Prober:  exec,
		Engine:  exec,
		Fetcher: downloader,
		Assets:  newAssetRegistry(cfg),
		Metrics: rec,
	})
	if err != nil {
		return nil, nil, err
	}
	return pipe, rec, nil
}

func printYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
