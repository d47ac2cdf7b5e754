package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

const ffmpegTimeout = time.Minute

// FFmpeg extracts still frames from videos.
type FFmpeg struct {
	path string
	log  *slog.Logger
}

func NewFFmpeg(path string, log *slog.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, log: log}
}

// ExtractFrame writes a single JPEG frame taken at the given offset (seconds) to outPath.
func (f *FFmpeg) ExtractFrame(ctx context.Context, videoPath string, at float64, outPath string) error {
	if at < 0 {
		at = 0
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ffmpegTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.path,
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("extract frame: timed out after %v", ffmpegTimeout)
		}
		if f.log != nil {
			f.log.Debug("ffmpeg frame extraction failed",
				slog.String("video", videoPath),
				slog.String("output", string(output)))
		}
		return fmt.Errorf("extract frame: %w", err)
	}
	return nil
}
