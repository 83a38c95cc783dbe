package render

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Default encoding settings
const (
	DefaultExecutable   = "ffmpeg"
	DefaultVideoCodec   = "libx264"
	DefaultPixelFormat  = "yuv420p"
	DefaultPreset       = "medium"
	DefaultCRF          = 23
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "128k"
)

// OutputPolicy holds the codec settings applied to every render
type OutputPolicy struct {
	VideoCodec   string
	PixelFormat  string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

// DefaultOutputPolicy returns broadly compatible H.264/AAC settings
func DefaultOutputPolicy() OutputPolicy {
	return OutputPolicy{
		VideoCodec:   DefaultVideoCodec,
		PixelFormat:  DefaultPixelFormat,
		Preset:       DefaultPreset,
		CRF:          DefaultCRF,
		AudioCodec:   DefaultAudioCodec,
		AudioBitrate: DefaultAudioBitrate,
	}
}

func (p OutputPolicy) withDefaults() OutputPolicy {
	d := DefaultOutputPolicy()
	if p.VideoCodec == "" {
		p.VideoCodec = d.VideoCodec
	}
	if p.PixelFormat == "" {
		p.PixelFormat = d.PixelFormat
	}
	if p.Preset == "" {
		p.Preset = d.Preset
	}
	if p.CRF == 0 {
		p.CRF = d.CRF
	}
	if p.AudioCodec == "" {
		p.AudioCodec = d.AudioCodec
	}
	if p.AudioBitrate == "" {
		p.AudioBitrate = d.AudioBitrate
	}
	return p
}

// AssembleInput carries everything besides the graph that the command needs
type AssembleInput struct {
	Executable   string
	PrimaryInput string
	OutputPath   string
	HasAudio     bool
	OutputFormat string
	Policy       OutputPolicy
}

// Invocation is a fully assembled engine command
type Invocation struct {
	Executable    string
	PrimaryInput  string
	ExtraInputs   []string
	FilterGraph   string
	Maps          []string
	OutputOptions []string
	OutputPath    string
}

// Args returns the argument list writing to OutputPath
func (inv Invocation) Args() []string {
	return inv.ArgsWithOutput(inv.OutputPath)
}

// ArgsWithOutput returns the argument list writing to a different path,
// used to render into a temporary file first
func (inv Invocation) ArgsWithOutput(output string) []string {
	args := make([]string, 0, 8+2*len(inv.ExtraInputs)+2*len(inv.Maps)+len(inv.OutputOptions))
	args = append(args, "-i", inv.PrimaryInput)
	for _, in := range inv.ExtraInputs {
		args = append(args, "-i", in)
	}
	if inv.FilterGraph != "" {
		args = append(args, "-filter_complex", inv.FilterGraph)
	}
	for _, m := range inv.Maps {
		args = append(args, "-map", m)
	}
	args = append(args, inv.OutputOptions...)
	args = append(args, output)
	return args
}

// String renders the invocation as a shell-like command line for logs
func (inv Invocation) String() string {
	args := inv.Args()
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, inv.Executable)
	for _, a := range args {
		if strings.ContainsAny(a, " ;'[]") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Assemble serializes the graph and wraps it with inputs, stream maps and
// output options. It is a pure function and never fails.
func Assemble(g FilterGraph, in AssembleInput) Invocation {
	exe := in.Executable
	if exe == "" {
		exe = DefaultExecutable
	}

	format := in.OutputFormat
	if format == "" {
		format = DefaultOutputFormat
	}
	output := in.OutputPath
	if filepath.Ext(output) == "" {
		output += "." + format
	}

	inv := Invocation{
		Executable:   exe,
		PrimaryInput: in.PrimaryInput,
		FilterGraph:  Serialize(g),
		OutputPath:   output,
	}
	for _, extra := range g.ExtraInputs {
		if extra.Role == RoleOverlayImage {
			inv.ExtraInputs = append(inv.ExtraInputs, extra.Path)
		}
	}

	if g.Empty() {
		inv.Maps = append(inv.Maps, PrimaryLabel)
	} else {
		inv.Maps = append(inv.Maps, "["+g.Output+"]")
	}
	if in.HasAudio {
		inv.Maps = append(inv.Maps, "0:a?")
	}

	policy := in.Policy.withDefaults()
	inv.OutputOptions = []string{
		"-c:v", policy.VideoCodec,
		"-pix_fmt", policy.PixelFormat,
		"-preset", policy.Preset,
		"-crf", strconv.Itoa(policy.CRF),
	}
	if in.HasAudio {
		inv.OutputOptions = append(inv.OutputOptions, "-c:a", policy.AudioCodec, "-b:a", policy.AudioBitrate)
	}
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(output), ".")) {
	case "mp4", "mov", "m4v":
		inv.OutputOptions = append(inv.OutputOptions, "-movflags", "+faststart")
	}
	inv.OutputOptions = append(inv.OutputOptions, "-y")

	return inv
}

// InputIndexes maps each overlay extra input label to its engine stream
// label. Overlay inputs follow the primary input in registration order.
func InputIndexes(g FilterGraph) map[string]string {
	idx := make(map[string]string, len(g.ExtraInputs))
	n := 0
	for _, extra := range g.ExtraInputs {
		if extra.Role != RoleOverlayImage {
			continue
		}
		n++
		idx[extra.Label] = strconv.Itoa(n) + ":v"
	}
	return idx
}

// Serialize renders the graph in filter_complex syntax. An empty graph
// serializes to the empty string.
func Serialize(g FilterGraph) string {
	if g.Empty() {
		return ""
	}
	remap := InputIndexes(g)
	var b strings.Builder
	for i, st := range g.Stages {
		if i > 0 {
			b.WriteByte(';')
		}
		for _, in := range st.Inputs {
			if mapped, ok := remap[in]; ok {
				in = mapped
			}
			b.WriteString("[" + in + "]")
		}
		b.WriteString(st.Expr)
		b.WriteString("[" + st.Output + "]")
	}
	return b.String()
}
