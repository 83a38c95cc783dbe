package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/reelcannon/internal/render"
	"github.com/kikiluvv/reelcannon/pkg/util"
)

// ProbeVideo extracts metadata from a video file
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, &ProbeError{Path: filePath, Err: errors.New("file path is required")}
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"--", filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, &ProbeError{Path: filePath, Err: fmt.Errorf("ffprobe failed: %w", err)}
	}

	info, err := parseProbeOutput(filePath, output)
	if err != nil {
		return nil, &ProbeError{Path: filePath, Err: err}
	}

	e.logger.Debug().
		Str("path", filePath).
		Int("width", info.Width).
		Int("height", info.Height).
		Dur("duration", info.Duration).
		Bool("has_audio", info.HasAudio).
		Msg("probed media")

	return info, nil
}

// MediaProperties probes a file and returns the facts the graph builder needs
func (e *Executor) MediaProperties(ctx context.Context, filePath string) (render.MediaProperties, error) {
	info, err := e.ProbeVideo(ctx, filePath)
	if err != nil {
		return render.MediaProperties{}, err
	}
	return info.MediaProperties(), nil
}

// MediaProperties converts probe metadata to the builder's input
func (v *VideoInfo) MediaProperties() render.MediaProperties {
	return render.MediaProperties{
		Width:    v.Width,
		Height:   v.Height,
		Duration: v.Duration,
		HasAudio: v.HasAudio,
	}
}

func parseProbeOutput(filePath string, output []byte) (*VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &VideoInfo{
		FilePath: filePath,
	}

	// Parse duration
	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(dur * float64(time.Second))
	}

	// Parse bitrate
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	// Extract stream info; the first video stream wins
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if info.Width > 0 || stream.Disposition.AttachedPic == 1 {
				continue
			}
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName

			// Calculate FPS from r_frame_rate (e.g., "30/1")
			if stream.RFrameRate != "" {
				info.FPS = util.ParseFrameRate(stream.RFrameRate)
			}
			if info.Duration == 0 {
				if dur, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
					info.Duration = time.Duration(dur * float64(time.Second))
				}
			}
		case "audio":
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
			if br, err := strconv.ParseInt(stream.BitRate, 10, 64); err == nil {
				info.AudioBitrate = br
			}
		}
	}

	if info.Width <= 0 || info.Height <= 0 {
		return nil, errors.New("no video stream with positive dimensions")
	}

	return info, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType   string `json:"codec_type"`
		CodecName   string `json:"codec_name"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		RFrameRate  string `json:"r_frame_rate"`
		BitRate     string `json:"bit_rate"`
		Duration    string `json:"duration"`
		Disposition struct {
			AttachedPic int `json:"attached_pic"`
		} `json:"disposition"`
	} `json:"streams"`
}
