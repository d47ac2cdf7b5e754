package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"coach-annotator/internal/platform/logger"
)

func TestFFmpeg_ExtractFrame(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	script := writeScript(t, `echo "$@" > `+argsFile+`
for last; do :; done
echo jpg > "$last"`)

	out := filepath.Join(t.TempDir(), "thumbs", "v1", "3.jpg")
	if err := NewFFmpeg(script, logger.Discard()).ExtractFrame(context.Background(), "/videos/run.mp4", 12.5, out); err != nil {
		t.Fatalf("ExtractFrame: %v", err)
	}

	if _, err := os.Stat(out); err != nil {
		t.Errorf("frame not written: %v", err)
	}
	args, _ := os.ReadFile(argsFile)
	if !strings.HasPrefix(string(args), "-ss 12.500 -i /videos/run.mp4 -frames:v 1") {
		t.Errorf("unexpected args %q", args)
	}
}

func TestFFmpeg_ExtractFrame_failure(t *testing.T) {
	script := writeScript(t, "echo 'Invalid data found' >&2\nexit 1")
	out := filepath.Join(t.TempDir(), "1.jpg")
	if err := NewFFmpeg(script, logger.Discard()).ExtractFrame(context.Background(), "bad.mp4", 1, out); err == nil {
		t.Error("expected error from failing ffmpeg")
	}
}
