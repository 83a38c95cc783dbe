package pipeline

import (
	"context"
	"time"

	"github.com/kikiluvv/reelcannon/internal/ffmpeg"
	"github.com/kikiluvv/reelcannon/internal/render"
)

// Prober reads the properties of the primary input
type Prober interface {
	MediaProperties(ctx context.Context, path string) (render.MediaProperties, error)
}

// Engine executes assembled invocations
type Engine interface {
	Render(ctx context.Context, inv render.Invocation, opts ffmpeg.RenderOptions) error
	Thumbnail(ctx context.Context, input string, opts ffmpeg.ThumbnailOptions) error
}

// Fetcher downloads remote sources
type Fetcher interface {
	Download(ctx context.Context, url, dest string) (int64, error)
}

// AssetResolver snapshots which template assets exist
type AssetResolver interface {
	ResolveAll() render.AssetAvailability
}

// Phase names, also used as metric labels
const (
	PhaseFetch     = "fetch"
	PhaseProbe     = "probe"
	PhaseAssets    = "assets"
	PhaseBuild     = "build"
	PhaseExecute   = "execute"
	PhaseThumbnail = "thumbnail"
)

// Fixed file names inside the downloads and outputs directories
const (
	VideoFileStem    = "input_video"
	SubtitleFileName = "input_subtitles.srt"
	OutputFileStem   = "final_render"
	ThumbnailName    = "thumbnail.jpg"
	defaultVideoExt  = ".mp4"
)

// Config holds pipeline-specific configuration
type Config struct {
	DownloadsDir string
	OutputsDir   string
	// Executable is the engine binary named in assembled invocations
	Executable  string
	Policy      render.OutputPolicy
	Thumbnail   bool
	ThumbnailAt time.Duration
}

// PhaseTiming is the wall time of one completed phase
type PhaseTiming struct {
	Name    string
	Elapsed time.Duration
}

// Result describes a planned or finished render job
type Result struct {
	JobID         string
	VideoPath     string
	SubtitlePath  string
	Media         render.MediaProperties
	Stages        []string
	Invocation    render.Invocation
	OutputPath    string
	ThumbnailPath string
	Phases        []PhaseTiming
	Elapsed       time.Duration
}
