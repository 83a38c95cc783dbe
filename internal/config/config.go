package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/reelcannon/internal/render"
	"github.com/kikiluvv/reelcannon/pkg/util"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir      string `yaml:"work_dir" toml:"work_dir"`
	DownloadsDir string `yaml:"downloads_dir" toml:"downloads_dir"`
	OutputsDir   string `yaml:"outputs_dir" toml:"outputs_dir"`
	AssetsDir    string `yaml:"assets_dir" toml:"assets_dir"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg" toml:"ffmpeg"`

	// Download settings
	Download DownloadConfig `yaml:"download" toml:"download"`

	// Asset file overrides keyed by logical name
	Assets map[string]string `yaml:"assets" toml:"assets"`

	// Thumbnail settings
	Thumbnail ThumbnailConfig `yaml:"thumbnail" toml:"thumbnail"`

	// Metrics settings
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

type FFmpegConfig struct {
	BinaryPath   string `yaml:"binary_path" toml:"binary_path"`
	ProbePath    string `yaml:"probe_path" toml:"probe_path"`
	Threads      int    `yaml:"threads" toml:"threads"`
	VideoCodec   string `yaml:"video_codec" toml:"video_codec"`
	PixelFormat  string `yaml:"pixel_format" toml:"pixel_format"`
	Preset       string `yaml:"preset" toml:"preset"`
	CRF          int    `yaml:"crf" toml:"crf"`
	AudioCodec   string `yaml:"audio_codec" toml:"audio_codec"`
	AudioBitrate string `yaml:"audio_bitrate" toml:"audio_bitrate"`
}

type DownloadConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" toml:"timeout_seconds"`
	MaxAttempts    int `yaml:"max_attempts" toml:"max_attempts"`
}

type ThumbnailConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Timestamp string `yaml:"timestamp" toml:"timestamp"`
}

type MetricsConfig struct {
	// Textfile is a node-exporter textfile collector path; empty disables export
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(c)
	default:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		errs = append(errs, fmt.Errorf("ffmpeg.crf must be between 0 and 51"))
	}
	if c.FFmpeg.Threads < 0 {
		errs = append(errs, fmt.Errorf("ffmpeg.threads cannot be negative"))
	}
	if c.Download.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("download.max_attempts must be at least 1"))
	}
	if c.Download.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("download.timeout_seconds must be at least 1"))
	}
	if c.Thumbnail.Timestamp != "" {
		if _, err := util.ParseTimestamp(c.Thumbnail.Timestamp); err != nil {
			errs = append(errs, fmt.Errorf("thumbnail.timestamp: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Dir resolves one of the configured directories against WorkDir
func (c *Config) Dir(dir string) string {
	if filepath.IsAbs(dir) || c.WorkDir == "" {
		return dir
	}
	return filepath.Join(c.WorkDir, dir)
}

// DownloadTimeout returns the per-request download timeout
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Download.TimeoutSeconds) * time.Second
}

// ThumbnailAt returns the thumbnail timestamp, defaulting to 5s
func (c *Config) ThumbnailAt() time.Duration {
	at, err := util.ParseTimestamp(c.Thumbnail.Timestamp)
	if err != nil || c.Thumbnail.Timestamp == "" {
		return 5 * time.Second
	}
	return at
}

// OutputPolicy returns the encoder settings for the command assembler
func (c *Config) OutputPolicy() render.OutputPolicy {
	return render.OutputPolicy{
		VideoCodec:   c.FFmpeg.VideoCodec,
		PixelFormat:  c.FFmpeg.PixelFormat,
		Preset:       c.FFmpeg.Preset,
		CRF:          c.FFmpeg.CRF,
		AudioCodec:   c.FFmpeg.AudioCodec,
		AudioBitrate: c.FFmpeg.AudioBitrate,
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	policy := render.DefaultOutputPolicy()
	return &Config{
		WorkDir:      ".",
		DownloadsDir: "downloads",
		OutputsDir:   "outputs",
		AssetsDir:    "assets",
		FFmpeg: FFmpegConfig{
			BinaryPath:   "ffmpeg",
			ProbePath:    "ffprobe",
			Threads:      0,
			VideoCodec:   policy.VideoCodec,
			PixelFormat:  policy.PixelFormat,
			Preset:       policy.Preset,
			CRF:          policy.CRF,
			AudioCodec:   policy.AudioCodec,
			AudioBitrate: policy.AudioBitrate,
		},
		Download: DownloadConfig{
			TimeoutSeconds: 30,
			MaxAttempts:    3,
		},
		Assets: make(map[string]string),
		Thumbnail: ThumbnailConfig{
			Enabled:   false,
			Timestamp: "5",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./reelcannon.yaml",
		"./reelcannon.yml",
		"./reelcannon.toml",
		filepath.Join(os.Getenv("HOME"), ".reelcannon", "config.yaml"),
	}

	for _, path := range candidates {
		if util.FileExists(path) {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
