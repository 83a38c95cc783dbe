package render

import (
	"fmt"
	"strings"
	"time"
)

// TemplateID selects a branding template
type TemplateID string

const (
	TemplateNone TemplateID = ""
	Template1    TemplateID = "template_1"
	Template2    TemplateID = "template_2"
)

// SubtitleStyle selects a burn-in style bundle
type SubtitleStyle string

const (
	SubtitleNone         SubtitleStyle = ""
	SubtitleBoldWhiteBox SubtitleStyle = "bold_white_box"
	SubtitleYellowBold   SubtitleStyle = "yellow_bold"
)

// CropMode selects how the source frame is reframed
type CropMode string

const (
	CropNone   CropMode = ""
	CropCenter CropMode = "center_crop"
)

// DefaultOutputFormat is used when a request does not name a container
const DefaultOutputFormat = "mp4"

// RenderConfig describes one render request
type RenderConfig struct {
	TemplateID    TemplateID
	SubtitleStyle SubtitleStyle
	CropMode      CropMode
	ZoomEffect    bool
	OutputFormat  string
}

// Validate reports the first enum field holding a value outside its closed set
func (c RenderConfig) Validate() error {
	switch c.TemplateID {
	case TemplateNone, Template1, Template2:
	default:
		return &ConfigError{Field: "template_id", Value: string(c.TemplateID)}
	}
	if c.SubtitleStyle != SubtitleNone {
		if _, ok := subtitleStyles[c.SubtitleStyle]; !ok {
			return &ConfigError{Field: "subtitle_style", Value: string(c.SubtitleStyle)}
		}
	}
	switch c.CropMode {
	case CropNone, CropCenter:
	default:
		return &ConfigError{Field: "crop_mode", Value: string(c.CropMode)}
	}
	if c.OutputFormat != "" && !validFormat(c.OutputFormat) {
		return &ConfigError{Field: "output_format", Value: c.OutputFormat}
	}
	return nil
}

// Format returns the output container extension, falling back to mp4
func (c RenderConfig) Format() string {
	if c.OutputFormat == "" {
		return DefaultOutputFormat
	}
	return strings.ToLower(c.OutputFormat)
}

// validFormat accepts plain alphanumeric extensions only, so the value can
// never smuggle a path separator into the destination name.
func validFormat(format string) bool {
	if len(format) > 8 {
		return false
	}
	for _, r := range format {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// ParseTemplateID maps a request value to a TemplateID. Empty and "none" mean no template.
func ParseTemplateID(s string) (TemplateID, error) {
	switch v := normalize(s); v {
	case "":
		return TemplateNone, nil
	case string(Template1), string(Template2):
		return TemplateID(v), nil
	default:
		return TemplateNone, &ConfigError{Field: "template_id", Value: s}
	}
}

// ParseSubtitleStyle maps a request value to a SubtitleStyle
func ParseSubtitleStyle(s string) (SubtitleStyle, error) {
	v := normalize(s)
	if v == "" {
		return SubtitleNone, nil
	}
	if _, ok := subtitleStyles[SubtitleStyle(v)]; !ok {
		return SubtitleNone, &ConfigError{Field: "subtitle_style", Value: s}
	}
	return SubtitleStyle(v), nil
}

// ParseCropMode maps a request value to a CropMode
func ParseCropMode(s string) (CropMode, error) {
	switch v := normalize(s); v {
	case "":
		return CropNone, nil
	case string(CropCenter):
		return CropCenter, nil
	default:
		return CropNone, &ConfigError{Field: "crop_mode", Value: s}
	}
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "none" {
		return ""
	}
	return s
}

// MediaProperties holds probed facts about the primary input
type MediaProperties struct {
	Width    int
	Height   int
	Duration time.Duration
	HasAudio bool
}

// Landscape reports whether the frame is wider than it is tall
func (m MediaProperties) Landscape() bool {
	return m.Width > m.Height
}

// Logical asset names understood by the template stages
const (
	AssetBrandBar      = "brand_bar"
	AssetWatermarkLogo = "watermark_logo"
)

// Asset is the resolution result for one logical asset name
type Asset struct {
	Exists bool
	Path   string
}

// AssetAvailability maps logical asset names to their resolution result.
// A name without an entry is treated as absent.
type AssetAvailability map[string]Asset

// Lookup returns the asset path when it exists on disk
func (a AssetAvailability) Lookup(name string) (string, bool) {
	asset, ok := a[name]
	if !ok || !asset.Exists || asset.Path == "" {
		return "", false
	}
	return asset.Path, true
}

// Size is a frame size in pixels
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// InputRole says how the engine consumes an extra input
type InputRole string

const (
	RoleOverlayImage InputRole = "overlay_image"
	RoleSubtitleFile InputRole = "subtitle_file"
)

// ExtraInput is an auxiliary file the graph depends on
type ExtraInput struct {
	Label string
	Path  string
	Role  InputRole
}

// FilterStage is one wired node of the filter graph
type FilterStage struct {
	Name   string
	Inputs []string
	Output string
	Expr   string
	// Size is the frame size this stage produces
	Size Size
}

// FilterGraph is the ordered, wired stage list produced by Build
type FilterGraph struct {
	Stages      []FilterStage
	Output      string
	ExtraInputs []ExtraInput
}

// Empty reports whether the graph is a pass-through
func (g FilterGraph) Empty() bool {
	return len(g.Stages) == 0
}

// StageNames lists stage names in emission order
func (g FilterGraph) StageNames() []string {
	names := make([]string, len(g.Stages))
	for i, st := range g.Stages {
		names[i] = st.Name
	}
	return names
}
