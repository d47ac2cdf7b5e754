package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultFrameRate is used when the container reports no usable frame rate.
const DefaultFrameRate = 30.0

// Metadata is the timing information derived from one video.
type Metadata struct {
	Duration  float64 `json:"duration"`
	FrameRate float64 `json:"frameRate"`
}

// ErrNoDuration is wrapped by ProbeError when the container has no positive duration.
var ErrNoDuration = errors.New("container reports no duration")

// ProbeError reports a video that could not be read. It is fatal to annotation and never retried.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// FFprobe inspects videos with the ffprobe binary.
type FFprobe struct{ Path string }

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

func NewFFprobe(path string) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{Path: path}
}

// Probe returns duration and frame rate for the video at filePath.
func (f *FFprobe) Probe(ctx context.Context, filePath string) (Metadata, error) {
	cmd := exec.CommandContext(ctx, f.Path, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", filePath)
	output, err := cmd.Output()
	if err != nil {
		return Metadata{}, &ProbeError{Path: filePath, Err: fmt.Errorf("ffprobe failed: %w", err)}
	}
	md, err := ParseProbeOutput(output)
	if err != nil {
		return Metadata{}, &ProbeError{Path: filePath, Err: err}
	}
	return md, nil
}

// ParseProbeOutput extracts Metadata from ffprobe's JSON output.
func ParseProbeOutput(data []byte) (Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil || math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return Metadata{}, ErrNoDuration
	}

	rate := ""
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			rate = s.RFrameRate
			break
		}
	}
	if rate == "" && len(out.Streams) > 0 {
		rate = out.Streams[0].RFrameRate
	}

	return Metadata{Duration: duration, FrameRate: ParseFrameRate(rate)}, nil
}

// ParseFrameRate parses a rational "num/den" (e.g. "30000/1001") or a plain
// number. Anything unusable, including den <= 0, yields DefaultFrameRate.
func ParseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFrameRate
	}

	numStr, denStr, rational := strings.Cut(s, "/")
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return DefaultFrameRate
	}

	fps := num
	if rational {
		den, err := strconv.ParseFloat(denStr, 64)
		if err != nil || den <= 0 {
			return DefaultFrameRate
		}
		fps = num / den
	}

	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		return DefaultFrameRate
	}
	return fps
}
