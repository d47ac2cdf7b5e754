package uploads

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor removes uploads (and their thumbnails) older than a TTL on a cron schedule.
type Janitor struct {
	storage  *Storage
	ttl      time.Duration
	onExpire func(ctx context.Context, id string)
	log      *slog.Logger
	cron     *cron.Cron
	now      func() time.Time
}

// NewJanitor returns a janitor; onExpire (optional) is told about every removed upload id.
func NewJanitor(s *Storage, ttl time.Duration, onExpire func(ctx context.Context, id string), log *slog.Logger) *Janitor {
	return &Janitor{
		storage:  s,
		ttl:      ttl,
		onExpire: onExpire,
		log:      log,
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start schedules Sweep with a cron spec such as "@every 10m".
func (j *Janitor) Start(spec string) error {
	_, err := j.cron.AddFunc(spec, func() {
		if _, err := j.Sweep(context.Background()); err != nil {
			j.log.Error("upload sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the schedule; the returned context is done once a running sweep finishes.
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}

// Sweep deletes expired uploads and returns how many videos were removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.ttl)
	entries, err := os.ReadDir(j.storage.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.storage.dir, e.Name())); err != nil {
			j.log.Warn("remove expired upload", slog.String("file", e.Name()), slog.String("error", err.Error()))
			continue
		}

		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		os.RemoveAll(filepath.Join(j.storage.dir, ThumbnailDir, id))
		if j.onExpire != nil {
			j.onExpire(ctx, id)
		}
		removed++
	}

	if removed > 0 {
		j.log.Info("expired uploads removed", slog.Int("count", removed))
	}
	return removed, nil
}
