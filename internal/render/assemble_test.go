package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemblePassThrough(t *testing.T) {
	g, err := Build(BuildInput{Media: landscape()})
	require.NoError(t, err)

	inv := Assemble(g, AssembleInput{
		PrimaryInput: "in.mp4",
		OutputPath:   "out/final_render.mp4",
		HasAudio:     true,
	})

	assert.Empty(t, inv.FilterGraph)
	assert.NotContains(t, inv.Args(), "-filter_complex")
	assert.Equal(t, []string{"0:v", "0:a?"}, inv.Maps)
	assert.Equal(t, []string{
		"-i", "in.mp4",
		"-map", "0:v",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-y",
		"out/final_render.mp4",
	}, inv.Args())
}

func TestAssembleCropWithoutAudio(t *testing.T) {
	g, err := Build(BuildInput{Config: RenderConfig{CropMode: CropCenter}, Media: landscape()})
	require.NoError(t, err)

	inv := Assemble(g, AssembleInput{
		PrimaryInput: "in.mp4",
		OutputPath:   "final_render.webm",
		OutputFormat: "webm",
	})

	assert.Equal(t, "[0:v]crop=w=608:h=1080:x=656:y=0[v1]", inv.FilterGraph)
	assert.Equal(t, []string{"[v1]"}, inv.Maps)
	assert.NotContains(t, inv.OutputOptions, "-c:a")
	assert.NotContains(t, inv.OutputOptions, "-movflags")
	assert.Equal(t, "-y", inv.OutputOptions[len(inv.OutputOptions)-1])
}

func TestAssembleRemapsOverlayInputs(t *testing.T) {
	g, err := Build(BuildInput{
		Config:   RenderConfig{TemplateID: Template2, SubtitleStyle: SubtitleYellowBold},
		Media:    portrait(),
		Assets:   allAssets("/assets"),
		Subtitle: "/tmp/subs.srt",
	})
	require.NoError(t, err)

	inv := Assemble(g, AssembleInput{PrimaryInput: "in.mp4", OutputPath: "final_render.mp4", HasAudio: true})

	// the subtitle file is opened by the filter, not registered with -i
	assert.Equal(t, []string{"/assets/watermark_logo.png"}, inv.ExtraInputs)

	parts := strings.Split(inv.FilterGraph, ";")
	require.Len(t, parts, 3)
	assert.Equal(t, "[0:v]drawbox=x=10:y=10:w=iw-20:h=ih-20:color=white:t=5[v1]", parts[0])
	assert.Equal(t, "[v1][1:v]overlay=x=main_w-overlay_w-10:y=main_h-overlay_h-10[v2]", parts[1])
	assert.True(t, strings.HasPrefix(parts[2], "[v2]subtitles=filename=/tmp/subs.srt:force_style='"))
	assert.True(t, strings.HasSuffix(parts[2], "'[v3]"))

	args := inv.Args()
	assert.Equal(t, []string{"-i", "in.mp4", "-i", "/assets/watermark_logo.png", "-filter_complex"}, args[:5])
	assert.Equal(t, []string{"[v3]", "0:a?"}, inv.Maps)
}

func TestAssembleAppendsFormatExtension(t *testing.T) {
	inv := Assemble(FilterGraph{Output: PrimaryLabel}, AssembleInput{
		PrimaryInput: "in.mp4",
		OutputPath:   "outputs/final_render",
		OutputFormat: "mov",
	})
	assert.Equal(t, "outputs/final_render.mov", inv.OutputPath)
	assert.Contains(t, inv.OutputOptions, "+faststart")
}

func TestAssembleOutputPolicyOverrides(t *testing.T) {
	inv := Assemble(FilterGraph{Output: PrimaryLabel}, AssembleInput{
		Executable:   "/opt/ffmpeg/bin/ffmpeg",
		PrimaryInput: "in.mp4",
		OutputPath:   "out.mp4",
		Policy:       OutputPolicy{Preset: "veryfast", CRF: 18},
	})
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", inv.Executable)
	assert.Contains(t, strings.Join(inv.OutputOptions, " "), "-preset veryfast -crf 18")
	assert.Contains(t, inv.OutputOptions, "libx264")
}

func TestArgsWithOutput(t *testing.T) {
	inv := Assemble(FilterGraph{Output: PrimaryLabel}, AssembleInput{PrimaryInput: "in.mp4", OutputPath: "out.mp4"})
	args := inv.ArgsWithOutput("/tmp/.out.partial.mp4")
	assert.Equal(t, "/tmp/.out.partial.mp4", args[len(args)-1])
	assert.Equal(t, "out.mp4", inv.Args()[len(inv.Args())-1])
}

func TestInvocationString(t *testing.T) {
	g, err := Build(BuildInput{Config: RenderConfig{CropMode: CropCenter}, Media: landscape()})
	require.NoError(t, err)
	inv := Assemble(g, AssembleInput{PrimaryInput: "in.mp4", OutputPath: "out.mp4"})

	s := inv.String()
	assert.True(t, strings.HasPrefix(s, "ffmpeg -i in.mp4 -filter_complex "))
	assert.Contains(t, s, `"[0:v]crop=w=608:h=1080:x=656:y=0[v1]"`)
}
