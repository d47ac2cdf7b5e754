package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"coach-annotator/internal/annotation"
	"coach-annotator/internal/media"

	"github.com/hibiken/asynq"
)

// Processor annotates a registered video and records the outcome.
type Processor interface {
	Process(ctx context.Context, id annotation.VideoID) (*annotation.Video, error)
}

// AnnotateHandler processes TaskAnnotateVideo tasks.
type AnnotateHandler struct {
	processor Processor
	log       *slog.Logger
}

func NewAnnotateHandler(p Processor, log *slog.Logger) *AnnotateHandler {
	return &AnnotateHandler{processor: p, log: log}
}

// ProcessTask annotates the video named in the payload. Unreadable videos and
// videos that no longer exist are not retried.
func (h *AnnotateHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p AnnotatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.VideoID == "" {
		return fmt.Errorf("invalid payload %q: %w", t.Payload(), asynq.SkipRetry)
	}

	log := h.log.With(slog.String("video_id", string(p.VideoID)))
	log.Info("job: annotating video")

	v, err := h.processor.Process(ctx, p.VideoID)
	var perr *media.ProbeError
	switch {
	case err == nil:
		log.Info("job: video ready", slog.Int("segments", len(v.Segments)))
		return nil
	case errors.As(err, &perr), errors.Is(err, annotation.ErrVideoNotFound):
		log.Warn("job: annotation failed permanently", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	default:
		log.Error("job: annotation failed", slog.String("error", err.Error()))
		return err
	}
}
