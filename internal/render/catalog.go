package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ZoomGrowthRate is the continuous per-second growth of the slow zoom effect
const ZoomGrowthRate = 0.05

// Template geometry
const (
	brandBarHeight    = 50
	brandBarColor     = "blue@0.7"
	brandCaption      = "Your Brand Here"
	borderInset       = 10
	borderThickness   = 5
	watermarkMargin   = 10
	captionFontSize   = 24
	captionTopMargin  = 20
	captionBoxOpacity = "black@0.5"
)

// stageContext is everything a generator may read. frame is the size of the
// stream the generator would consume.
type stageContext struct {
	config   RenderConfig
	media    MediaProperties
	assets   AssetAvailability
	subtitle string
	frame    Size
}

// step is a stage before the builder wires its labels
type step struct {
	name     string
	expr     string
	overlay  string
	subtitle string
	size     Size
}

type generator struct {
	name string
	fn   func(stageContext) ([]step, error)
}

// catalog is applied strictly in this order; later stages assume the frame
// produced by earlier ones.
var catalog = []generator{
	{name: "crop", fn: cropStage},
	{name: "zoom", fn: zoomStage},
	{name: "template", fn: templateStage},
	{name: "subtitles", fn: subtitleStage},
}

// CenterCropGeometry returns the even 9:16 target width for a frame of the
// given size and the horizontal offset that centers it
func CenterCropGeometry(width, height int) (targetWidth, offsetX int) {
	targetWidth = int(math.Round(float64(height) * 9 / 16))
	targetWidth -= targetWidth % 2
	if maxWidth := width - width%2; targetWidth > maxWidth {
		targetWidth = maxWidth
	}
	if targetWidth < 2 {
		targetWidth = 2
	}
	offsetX = (width - targetWidth) / 2
	return targetWidth, offsetX
}

func cropStage(sc stageContext) ([]step, error) {
	if sc.config.CropMode != CropCenter || !sc.media.Landscape() {
		return nil, nil
	}
	tw, x := CenterCropGeometry(sc.frame.Width, sc.frame.Height)
	expr := NewFilterChain().Crop(tw, sc.frame.Height, x, 0).Build()
	return []step{{
		name: "crop",
		expr: expr,
		size: Size{Width: tw, Height: sc.frame.Height},
	}}, nil
}

func zoomStage(sc stageContext) ([]step, error) {
	if !sc.config.ZoomEffect {
		return nil, nil
	}
	growth := "pow(" + strconv.FormatFloat(1+ZoomGrowthRate, 'f', -1, 64) + ",t)"
	expr := NewFilterChain().
		ScaleExpr("iw*"+growth, "ih*"+growth).
		CenterCrop(sc.frame.Width, sc.frame.Height).
		Build()
	return []step{{name: "zoom", expr: expr, size: sc.frame}}, nil
}

func templateStage(sc stageContext) ([]step, error) {
	switch sc.config.TemplateID {
	case Template1:
		return brandTemplate(sc), nil
	case Template2:
		return borderTemplate(sc), nil
	default:
		return nil, nil
	}
}

// brandTemplate places a branding bar along the bottom edge and a fixed
// caption at the top. A missing bar image falls back to a translucent box.
func brandTemplate(sc stageContext) []step {
	var steps []step
	if path, ok := sc.assets.Lookup(AssetBrandBar); ok {
		steps = append(steps, step{
			name:    "brand_bar",
			expr:    "overlay=x=0:y=main_h-overlay_h",
			overlay: path,
			size:    sc.frame,
		})
	} else {
		steps = append(steps, step{
			name: "brand_bar_fallback",
			expr: fmt.Sprintf("drawbox=x=0:y=ih-%d:w=iw:h=%d:color=%s:t=fill",
				brandBarHeight, brandBarHeight, brandBarColor),
			size: sc.frame,
		})
	}
	steps = append(steps, step{
		name: "caption",
		expr: fmt.Sprintf("drawtext=text='%s':x=(w-text_w)/2:y=%d:fontsize=%d:fontcolor=white:box=1:boxcolor=%s:boxborderw=5",
			brandCaption, captionTopMargin, captionFontSize, captionBoxOpacity),
		size: sc.frame,
	})
	return steps
}

// borderTemplate draws an inset border and, when the logo exists, a
// bottom-right watermark. There is no fallback for the watermark.
func borderTemplate(sc stageContext) []step {
	steps := []step{{
		name: "border",
		expr: fmt.Sprintf("drawbox=x=%d:y=%d:w=iw-%d:h=ih-%d:color=white:t=%d",
			borderInset, borderInset, 2*borderInset, 2*borderInset, borderThickness),
		size: sc.frame,
	}}
	if path, ok := sc.assets.Lookup(AssetWatermarkLogo); ok {
		steps = append(steps, step{
			name: "watermark",
			expr: fmt.Sprintf("overlay=x=main_w-overlay_w-%d:y=main_h-overlay_h-%d",
				watermarkMargin, watermarkMargin),
			overlay: path,
			size:    sc.frame,
		})
	}
	return steps
}

// subtitleStyleSpec is one entry of the burn-in style table, expressed in
// ASS force_style terms
type subtitleStyleSpec struct {
	FontName      string
	FontSize      int
	PrimaryColour string
	Bold          bool
	BorderStyle   int
	Outline       int
	OutlineColour string
	BackColour    string
	MarginV       int
}

var subtitleStyles = map[SubtitleStyle]subtitleStyleSpec{
	SubtitleBoldWhiteBox: {
		FontName:      "Arial",
		FontSize:      24,
		PrimaryColour: "&H00FFFFFF&",
		Bold:          true,
		BorderStyle:   3,
		OutlineColour: "&H80000000&",
		BackColour:    "&H80000000&",
		MarginV:       15,
	},
	SubtitleYellowBold: {
		FontName:      "Arial",
		FontSize:      24,
		PrimaryColour: "&H0000FFFF&",
		Bold:          true,
		BorderStyle:   1,
		Outline:       1,
		MarginV:       15,
	},
}

// ForceStyle renders the bundle as a force_style value
func (s subtitleStyleSpec) ForceStyle() string {
	parts := []string{
		"FontName=" + s.FontName,
		"FontSize=" + strconv.Itoa(s.FontSize),
		"PrimaryColour=" + s.PrimaryColour,
	}
	if s.Bold {
		parts = append(parts, "Bold=1")
	}
	parts = append(parts, "BorderStyle="+strconv.Itoa(s.BorderStyle))
	if s.Outline > 0 {
		parts = append(parts, "Outline="+strconv.Itoa(s.Outline))
	}
	if s.OutlineColour != "" {
		parts = append(parts, "OutlineColour="+s.OutlineColour)
	}
	if s.BackColour != "" {
		parts = append(parts, "BackColour="+s.BackColour)
	}
	parts = append(parts, "MarginV="+strconv.Itoa(s.MarginV))
	return strings.Join(parts, ",")
}

// ForceStyle returns the force_style value for a subtitle style
func ForceStyle(style SubtitleStyle) (string, error) {
	spec, ok := subtitleStyles[style]
	if !ok {
		return "", &ConfigError{Field: "subtitle_style", Value: string(style)}
	}
	return spec.ForceStyle(), nil
}

func subtitleStage(sc stageContext) ([]step, error) {
	if sc.config.SubtitleStyle == SubtitleNone || sc.subtitle == "" {
		return nil, nil
	}
	style, err := ForceStyle(sc.config.SubtitleStyle)
	if err != nil {
		return nil, err
	}
	return []step{{
		name:     "subtitles",
		expr:     fmt.Sprintf("subtitles=filename=%s:force_style='%s'", EscapeFilterPath(sc.subtitle), style),
		subtitle: sc.subtitle,
		size:     sc.frame,
	}}, nil
}
