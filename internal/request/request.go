// Package request decodes render requests into validated render configs.
package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kikiluvv/reelcannon/internal/render"
)

// Request is the JSON document handed to the render command
type Request struct {
	VideoURL     string       `json:"video_url"`
	SubtitleURL  string       `json:"subtitle_url,omitempty"`
	RenderConfig RenderConfig `json:"render_config"`
}

// RenderConfig is the raw render_config object. Values are parsed into
// render enums by Request.Config.
type RenderConfig struct {
	TemplateID    string `json:"template_id,omitempty"`
	SubtitleStyle string `json:"subtitle_style,omitempty"`
	CropMode      string `json:"crop_mode,omitempty"`
	ZoomEffect    bool   `json:"zoom_effect,omitempty"`
	OutputFormat  string `json:"output_format,omitempty"`
}

// Load reads and validates a request file
func Load(path string) (*Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open request: %w", err)
	}
	defer f.Close()

	req, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// Decode parses a request document and validates it
func Decode(r io.Reader) (*Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks that the sources are usable and the render config is known
func (r *Request) Validate() error {
	if strings.TrimSpace(r.VideoURL) == "" {
		return &render.ConfigError{Field: "video_url", Value: r.VideoURL}
	}
	if _, err := ParseSource(r.VideoURL); err != nil {
		return err
	}
	if r.SubtitleURL != "" {
		if _, err := ParseSource(r.SubtitleURL); err != nil {
			return err
		}
	}
	_, err := r.Config()
	return err
}

// Config converts the raw render_config into a validated render.RenderConfig
func (r *Request) Config() (render.RenderConfig, error) {
	raw := r.RenderConfig

	template, err := render.ParseTemplateID(raw.TemplateID)
	if err != nil {
		return render.RenderConfig{}, err
	}
	style, err := render.ParseSubtitleStyle(raw.SubtitleStyle)
	if err != nil {
		return render.RenderConfig{}, err
	}
	crop, err := render.ParseCropMode(raw.CropMode)
	if err != nil {
		return render.RenderConfig{}, err
	}

	cfg := render.RenderConfig{
		TemplateID:    template,
		SubtitleStyle: style,
		CropMode:      crop,
		ZoomEffect:    raw.ZoomEffect,
		OutputFormat:  strings.TrimSpace(raw.OutputFormat),
	}
	if err := cfg.Validate(); err != nil {
		return render.RenderConfig{}, err
	}
	return cfg, nil
}

// SourceKind tells the pipeline whether a source must be downloaded
type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceRemote
)

func (k SourceKind) String() string {
	if k == SourceRemote {
		return "remote"
	}
	return "local"
}

// Source is a parsed video or subtitle location
type Source struct {
	Kind SourceKind
	// URL is set for remote sources
	URL string
	// Path is set for local sources
	Path string
}

// Ext returns the lower-cased file extension of the source, including the dot
func (s Source) Ext() string {
	name := s.Path
	if s.Kind == SourceRemote {
		if u, err := url.Parse(s.URL); err == nil {
			name = u.Path
		}
	}
	return strings.ToLower(filepath.Ext(name))
}

// ParseSource accepts http(s) URLs, file:// URLs and plain paths
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || isDriveLetter(u.Scheme) {
		return Source{Kind: SourceLocal, Path: raw}, nil
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return Source{}, &render.ConfigError{Field: "source", Value: raw}
		}
		return Source{Kind: SourceRemote, URL: raw}, nil
	case "file":
		if u.Path == "" {
			return Source{}, &render.ConfigError{Field: "source", Value: raw}
		}
		return Source{Kind: SourceLocal, Path: filepath.FromSlash(u.Path)}, nil
	default:
		return Source{}, &render.ConfigError{Field: "source", Value: raw}
	}
}

// C:\clips\in.mp4 parses as scheme "c"
func isDriveLetter(scheme string) bool {
	return len(scheme) == 1
}
