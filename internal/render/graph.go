package render

import (
	"fmt"
	"strconv"
)

// PrimaryLabel is the reserved label of the primary input's video stream
const PrimaryLabel = "0:v"

// Label prefixes minted by the builder
const (
	stageLabelPrefix = "v"
	extraLabelPrefix = "x"
)

// BuildInput is the snapshot a single graph is built from
type BuildInput struct {
	Config   RenderConfig
	Media    MediaProperties
	Assets   AssetAvailability
	Subtitle string
}

// labeler mints unique labels from a counter. Labels are never derived from
// stage content, so identical stages never collide.
type labeler struct {
	prefix string
	n      int
}

func (l *labeler) next() string {
	l.n++
	return l.prefix + strconv.Itoa(l.n)
}

// Build runs the stage catalog in order and wires the applicable stages into
// a single chain. The only error it returns is a *ConfigError for a value
// outside the supported enums.
func Build(in BuildInput) (FilterGraph, error) {
	if err := in.Config.Validate(); err != nil {
		return FilterGraph{}, err
	}

	g := FilterGraph{Output: PrimaryLabel}
	stageLabels := labeler{prefix: stageLabelPrefix}
	extraLabels := labeler{prefix: extraLabelPrefix}

	sc := stageContext{
		config:   in.Config,
		media:    in.Media,
		assets:   in.Assets,
		subtitle: in.Subtitle,
		frame:    Size{Width: in.Media.Width, Height: in.Media.Height},
	}

	for _, gen := range catalog {
		steps, err := gen.fn(sc)
		if err != nil {
			return FilterGraph{}, fmt.Errorf("%s stage: %w", gen.name, err)
		}
		for _, st := range steps {
			inputs := []string{g.Output}
			if st.overlay != "" {
				label := extraLabels.next()
				g.ExtraInputs = append(g.ExtraInputs, ExtraInput{Label: label, Path: st.overlay, Role: RoleOverlayImage})
				inputs = append(inputs, label)
			}
			if st.subtitle != "" {
				g.ExtraInputs = append(g.ExtraInputs, ExtraInput{Label: extraLabels.next(), Path: st.subtitle, Role: RoleSubtitleFile})
			}

			out := stageLabels.next()
			g.Stages = append(g.Stages, FilterStage{
				Name:   st.name,
				Inputs: inputs,
				Output: out,
				Expr:   st.expr,
				Size:   st.size,
			})
			g.Output = out
			sc.frame = st.size
		}
	}

	return g, nil
}
