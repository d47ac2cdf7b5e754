package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"coach-annotator/internal/annotation"
	"coach-annotator/internal/media"
	"coach-annotator/internal/platform/logger"

	"github.com/hibiken/asynq"
)

type fakeProcessor struct {
	err   error
	calls []annotation.VideoID
}

func (p *fakeProcessor) Process(_ context.Context, id annotation.VideoID) (*annotation.Video, error) {
	p.calls = append(p.calls, id)
	if p.err != nil {
		return nil, p.err
	}
	return &annotation.Video{ID: id, Status: annotation.StatusReady}, nil
}

func TestNewAnnotateTask(t *testing.T) {
	task, err := NewAnnotateTask("v1")
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TaskAnnotateVideo {
		t.Errorf("type: %s", task.Type())
	}
	var p AnnotatePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil || p.VideoID != "v1" {
		t.Errorf("payload: %s err=%v", task.Payload(), err)
	}
}

func TestAnnotateHandler_ProcessTask(t *testing.T) {
	task, _ := NewAnnotateTask("v1")

	t.Run("success", func(t *testing.T) {
		p := &fakeProcessor{}
		if err := NewAnnotateHandler(p, logger.Discard()).ProcessTask(context.Background(), task); err != nil {
			t.Fatalf("ProcessTask: %v", err)
		}
		if len(p.calls) != 1 || p.calls[0] != "v1" {
			t.Errorf("calls: %v", p.calls)
		}
	})

	t.Run("unreadable_video_is_not_retried", func(t *testing.T) {
		p := &fakeProcessor{err: &media.ProbeError{Path: "x.mp4", Err: media.ErrNoDuration}}
		err := NewAnnotateHandler(p, logger.Discard()).ProcessTask(context.Background(), task)
		if !errors.Is(err, asynq.SkipRetry) || !errors.Is(err, media.ErrNoDuration) {
			t.Errorf("expected SkipRetry wrapping the probe error, got %v", err)
		}
	})

	t.Run("missing_video_is_not_retried", func(t *testing.T) {
		p := &fakeProcessor{err: annotation.ErrVideoNotFound}
		if err := NewAnnotateHandler(p, logger.Discard()).ProcessTask(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
			t.Errorf("expected SkipRetry, got %v", err)
		}
	})

	t.Run("store_error_is_retried", func(t *testing.T) {
		p := &fakeProcessor{err: errors.New("redis: connection refused")}
		err := NewAnnotateHandler(p, logger.Discard()).ProcessTask(context.Background(), task)
		if err == nil || errors.Is(err, asynq.SkipRetry) {
			t.Errorf("expected retryable error, got %v", err)
		}
	})

	t.Run("bad_payload", func(t *testing.T) {
		p := &fakeProcessor{}
		err := NewAnnotateHandler(p, logger.Discard()).ProcessTask(context.Background(), asynq.NewTask(TaskAnnotateVideo, []byte("{")))
		if !errors.Is(err, asynq.SkipRetry) || len(p.calls) != 0 {
			t.Errorf("expected SkipRetry without processing, got %v calls=%v", err, p.calls)
		}
	})
}
