package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/reelcannon/internal/ffmpeg"
	"github.com/kikiluvv/reelcannon/internal/metrics"
	"github.com/kikiluvv/reelcannon/internal/render"
	"github.com/kikiluvv/reelcannon/internal/request"
)

type fakeProber struct {
	props render.MediaProperties
	err   error
	paths []string
}

func (f *fakeProber) MediaProperties(_ context.Context, path string) (render.MediaProperties, error) {
	f.paths = append(f.paths, path)
	return f.props, f.err
}

type fakeEngine struct {
	renders    []render.Invocation
	thumbnails []ffmpeg.ThumbnailOptions
	renderErr  error
	thumbErr   error
}

func (f *fakeEngine) Render(_ context.Context, inv render.Invocation, opts ffmpeg.RenderOptions) error {
	f.renders = append(f.renders, inv)
	if opts.ProgressFunc != nil {
		opts.ProgressFunc(&ffmpeg.Progress{Frame: 10, Speed: "1.5x"})
	}
	return f.renderErr
}

func (f *fakeEngine) Thumbnail(_ context.Context, _ string, opts ffmpeg.ThumbnailOptions) error {
	f.thumbnails = append(f.thumbnails, opts)
	return f.thumbErr
}

type fakeFetcher struct {
	downloads map[string]string
	err       error
}

func (f *fakeFetcher) Download(_ context.Context, url, dest string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.downloads == nil {
		f.downloads = make(map[string]string)
	}
	f.downloads[url] = dest
	return 100, nil
}

type fakeAssets render.AssetAvailability

func (f fakeAssets) ResolveAll() render.AssetAvailability {
	return render.AssetAvailability(f)
}

type fixture struct {
	dir     string
	prober  *fakeProber
	engine  *fakeEngine
	fetcher *fakeFetcher
	metrics *metrics.Recorder
	p       *Pipeline
}

func newFixture(t *testing.T, thumbnail bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	props := render.MediaProperties{Width: 1920, Height: 1080, Duration: 12 * time.Second, HasAudio: true}
	f := &fixture{
		dir:     dir,
		prober:  &fakeProber{props: props},
		engine:  &fakeEngine{},
		fetcher: &fakeFetcher{},
		metrics: metrics.New(),
	}
	p, err := New(zerolog.Nop(), Config{
		DownloadsDir: filepath.Join(dir, "downloads"),
		OutputsDir:   filepath.Join(dir, "outputs"),
		Thumbnail:    thumbnail,
		ThumbnailAt:  5 * time.Second,
	}, Deps{
		Prober:  f.prober,
		Engine:  f.engine,
		Fetcher: f.fetcher,
		Assets:  fakeAssets{render.AssetBrandBar: {Exists: true, Path: "/assets/brand_bar.png"}},
		Metrics: f.metrics,
	})
	require.NoError(t, err)
	f.p = p
	return f
}

func TestRenderRemoteSources(t *testing.T) {
	f := newFixture(t, true)
	req := &request.Request{
		VideoURL:    "https://cdn.example.com/raw.mov",
		SubtitleURL: "https://cdn.example.com/raw.srt",
		RenderConfig: request.RenderConfig{
			TemplateID:    "template_1",
			SubtitleStyle: "bold_white_box",
			CropMode:      "center_crop",
			ZoomEffect:    true,
		},
	}

	res, err := f.p.Render(context.Background(), req)
	require.NoError(t, err)

	video := filepath.Join(f.dir, "downloads", "input_video.mov")
	subs := filepath.Join(f.dir, "downloads", "input_subtitles.srt")
	assert.Equal(t, video, f.fetcher.downloads["https://cdn.example.com/raw.mov"])
	assert.Equal(t, subs, f.fetcher.downloads["https://cdn.example.com/raw.srt"])
	assert.Equal(t, []string{video}, f.prober.paths)

	assert.Equal(t, []string{"crop", "zoom", "brand_bar", "caption", "subtitles"}, res.Stages)
	assert.Equal(t, filepath.Join(f.dir, "outputs", "final_render.mp4"), res.OutputPath)
	assert.Equal(t, filepath.Join(f.dir, "outputs", "thumbnail.jpg"), res.ThumbnailPath)

	require.Len(t, f.engine.renders, 1)
	inv := f.engine.renders[0]
	assert.Equal(t, []string{"/assets/brand_bar.png"}, inv.ExtraInputs)
	assert.Equal(t, []string{"[v5]", "0:a?"}, inv.Maps)

	require.Len(t, f.engine.thumbnails, 1)
	assert.Equal(t, 12*time.Second, f.engine.thumbnails[0].Duration)

	var phases []string
	for _, ph := range res.Phases {
		phases = append(phases, ph.Name)
	}
	assert.Equal(t, []string{PhaseFetch, PhaseProbe, PhaseAssets, PhaseBuild, PhaseExecute, PhaseThumbnail}, phases)

	n, err := testutil.GatherAndCount(f.metrics.Registry(), "reelcannon_renders_total", "reelcannon_download_bytes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRenderLocalSource(t *testing.T) {
	f := newFixture(t, false)
	input := filepath.Join(f.dir, "clip.mp4")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))

	res, err := f.p.Render(context.Background(), &request.Request{VideoURL: input})
	require.NoError(t, err)

	assert.Empty(t, f.fetcher.downloads)
	assert.Equal(t, input, res.VideoPath)
	assert.Empty(t, res.Stages)
	assert.Empty(t, res.ThumbnailPath)
	assert.Equal(t, []string{"0:v", "0:a?"}, f.engine.renders[0].Maps)
}

func TestRenderMissingLocalSource(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.p.Render(context.Background(), &request.Request{VideoURL: filepath.Join(f.dir, "nope.mp4")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, f.prober.paths)
	assert.Empty(t, f.engine.renders)
}

func TestRenderProbeErrorStopsBeforeExecution(t *testing.T) {
	f := newFixture(t, false)
	f.prober.err = &ffmpeg.ProbeError{Path: "in.mp4", Err: errors.New("invalid data")}

	_, err := f.p.Render(context.Background(), &request.Request{VideoURL: "https://cdn.example.com/in.mp4"})
	var probeErr *ffmpeg.ProbeError
	require.True(t, errors.As(err, &probeErr))
	assert.Empty(t, f.engine.renders)
	assert.Equal(t, metrics.StatusProbeError, Status(err))
}

func TestRenderExecutionError(t *testing.T) {
	f := newFixture(t, true)
	f.engine.renderErr = &ffmpeg.ExecutionError{ExitCode: 1, Diagnostics: "No such filter"}

	_, err := f.p.Render(context.Background(), &request.Request{VideoURL: "https://cdn.example.com/in.mp4"})
	assert.Equal(t, metrics.StatusExecutionError, Status(err))
	assert.Empty(t, f.engine.thumbnails)
}

func TestRenderThumbnailFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, true)
	f.engine.thumbErr = errors.New("no frame")

	res, err := f.p.Render(context.Background(), &request.Request{VideoURL: "https://cdn.example.com/in.mp4"})
	require.NoError(t, err)
	assert.Empty(t, res.ThumbnailPath)
	assert.NotEmpty(t, res.OutputPath)
}

func TestRenderRejectsUnknownValues(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.p.Render(context.Background(), &request.Request{
		VideoURL:     "https://cdn.example.com/in.mp4",
		RenderConfig: request.RenderConfig{TemplateID: "template_7"},
	})
	var cfgErr *render.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, f.fetcher.downloads, "nothing is fetched for an invalid request")
}

func TestPlanDoesNotExecute(t *testing.T) {
	f := newFixture(t, true)
	res, err := f.p.Plan(context.Background(), &request.Request{
		VideoURL:     "https://cdn.example.com/in.webm",
		RenderConfig: request.RenderConfig{CropMode: "center_crop", OutputFormat: "webm"},
	})
	require.NoError(t, err)

	assert.Empty(t, f.engine.renders)
	assert.Empty(t, f.engine.thumbnails)
	assert.Equal(t, []string{"crop"}, res.Stages)
	assert.True(t, strings.HasSuffix(res.Invocation.OutputPath, "final_render.webm"))
	assert.Contains(t, res.Invocation.FilterGraph, "crop=w=608:h=1080:x=656:y=0")
}

func TestSubtitleStyleWithoutFileSkipsStage(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.p.Plan(context.Background(), &request.Request{
		VideoURL:     "https://cdn.example.com/in.mp4",
		RenderConfig: request.RenderConfig{SubtitleStyle: "yellow_bold"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Stages)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, metrics.StatusSuccess, Status(nil))
	assert.Equal(t, metrics.StatusConfigError, Status(&render.ConfigError{Field: "crop_mode"}))
	assert.Equal(t, metrics.StatusError, Status(errors.New("boom")))
}

func TestParseSpeed(t *testing.T) {
	v, ok := parseSpeed("1.87x")
	assert.True(t, ok)
	assert.InDelta(t, 1.87, v, 1e-9)

	_, ok = parseSpeed("N/A")
	assert.False(t, ok)
}
