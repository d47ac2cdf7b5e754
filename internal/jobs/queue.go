package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coach-annotator/internal/annotation"

	"github.com/hibiken/asynq"
)

const (
	TaskAnnotateVideo = "video:annotate"

	annotateMaxRetry = 2
	annotateTimeout  = 10 * time.Minute
)

// AnnotatePayload is the body of a TaskAnnotateVideo task.
type AnnotatePayload struct {
	VideoID annotation.VideoID `json:"video_id"`
}

// Queue runs annotation in background workers backed by Redis.
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

// NewQueue connects to Redis at addr. concurrency <= 0 uses 2 workers.
func NewQueue(addr, password string, db, concurrency int, log *slog.Logger) *Queue {
	if concurrency <= 0 {
		concurrency = 2
	}
	redisOpt := asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		LogLevel:    asynq.WarnLevel,
	})
	return &Queue{
		client: asynq.NewClient(redisOpt),
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log,
	}
}

func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

// EnqueueAnnotation queues video id for annotation. The task id is the video id, so a video
// already waiting in the queue is not queued twice.
func (q *Queue) EnqueueAnnotation(ctx context.Context, id annotation.VideoID) error {
	task, err := NewAnnotateTask(id)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.TaskID(string(id)),
		asynq.MaxRetry(annotateMaxRetry),
		asynq.Timeout(annotateTimeout),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		q.log.Info("annotation already queued", slog.String("video_id", string(id)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	q.log.Debug("annotation queued", slog.String("video_id", string(id)), slog.String("task_id", info.ID))
	return nil
}

// Start runs the workers in the background.
func (q *Queue) Start() error {
	q.log.Info("job queue worker starting")
	return q.server.Start(q.mux)
}

// Stop waits for running tasks and closes the Redis connections.
func (q *Queue) Stop() {
	q.server.Shutdown()
	q.client.Close()
}

// NewAnnotateTask builds the task for video id.
func NewAnnotateTask(id annotation.VideoID) (*asynq.Task, error) {
	data, err := json.Marshal(AnnotatePayload{VideoID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TaskAnnotateVideo, data), nil
}
