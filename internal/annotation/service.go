package annotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coach-annotator/internal/coach"
	"coach-annotator/internal/media"
	"coach-annotator/internal/platform/metrics"

	"golang.org/x/sync/errgroup"
)

// ErrVideoNotFound is returned for ids the store does not know (never uploaded or expired).
var ErrVideoNotFound = errors.New("video not found")

// Prober reads timing metadata from a video file.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Metadata, error)
}

// CoachingFetcher produces commentary for one segment. It never fails.
type CoachingFetcher interface {
	Coaching(ctx context.Context, c coach.Context, segment, total int) coach.Commentary
}

// FrameExtractor writes a still image of the video at a position.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, videoPath string, at float64, outPath string) error
}

// ThumbnailFunc maps (video, segment) to the frame's file path and public URL.
type ThumbnailFunc func(id VideoID, segment int) (path, url string)

// Options tune the annotation pass. Zero values mean defaults.
type Options struct {
	SegmentCount   int
	MaxConcurrency int // 0 = one goroutine per segment, unbounded
	Frames         FrameExtractor
	Thumbnail      ThumbnailFunc
}

// Service runs the annotation pipeline and keeps video records in a Store.
type Service struct {
	prober  Prober
	fetcher CoachingFetcher
	store   Store
	log     *slog.Logger
	metrics *metrics.Metrics
	opts    Options
}

// NewService returns a Service. Metrics may be nil; if opts.SegmentCount <= 0, DefaultSegmentCount is used.
func NewService(prober Prober, fetcher CoachingFetcher, store Store, log *slog.Logger, m *metrics.Metrics, opts Options) *Service {
	if opts.SegmentCount <= 0 {
		opts.SegmentCount = DefaultSegmentCount
	}
	return &Service{prober: prober, fetcher: fetcher, store: store, log: log, metrics: m, opts: opts}
}

// Annotate probes the video at path, plans its segments and fetches coaching for all of them
// concurrently. Segments come back ordered by id whatever order the fetches finish in.
// A probe failure is returned as *media.ProbeError; generator failures never surface here.
func (s *Service) Annotate(ctx context.Context, path string, c coach.Context) (Annotation, error) {
	return s.annotate(ctx, "", path, c)
}

func (s *Service) annotate(ctx context.Context, id VideoID, path string, c coach.Context) (Annotation, error) {
	start := time.Now()

	meta, err := s.prober.Probe(ctx, path)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncProbeFailures()
		}
		return Annotation{}, err
	}

	plan, err := Plan(meta.Duration, s.opts.SegmentCount)
	if err != nil {
		return Annotation{}, fmt.Errorf("plan segments: %w", err)
	}

	out := make([]AnnotatedSegment, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	if s.opts.MaxConcurrency > 0 {
		g.SetLimit(s.opts.MaxConcurrency)
	}
	for i, seg := range plan {
		g.Go(func() error {
			out[i] = AnnotatedSegment{
				Segment:   seg,
				Coaching:  s.fetcher.Coaching(gctx, c, seg.ID, len(plan)),
				Thumbnail: s.thumbnail(gctx, id, path, seg),
			}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return Annotation{}, err
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveAnnotation(elapsed.Seconds())
	}
	s.log.Info("video annotated",
		slog.String("path", path),
		slog.Float64("duration", meta.Duration),
		slog.Int("segments", len(out)),
		slog.Duration("elapsed", elapsed))

	return Annotation{Metadata: meta, Segments: out}, nil
}

func (s *Service) thumbnail(ctx context.Context, id VideoID, path string, seg Segment) string {
	if s.opts.Frames == nil || s.opts.Thumbnail == nil || id == "" {
		return ""
	}
	out, url := s.opts.Thumbnail(id, seg.ID)
	if err := s.opts.Frames.ExtractFrame(ctx, path, seg.FreezeAt, out); err != nil {
		s.log.Warn("thumbnail extraction failed",
			slog.String("video_id", string(id)),
			slog.Int("segment", seg.ID),
			slog.String("error", err.Error()))
		return ""
	}
	return url
}

// Register stores a new video in the processing state.
func (s *Service) Register(ctx context.Context, v *Video) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.Status = StatusProcessing
	return s.store.SetVideo(ctx, v)
}

// Process annotates a registered video and stores the outcome. The video is
// marked failed when annotation fails; the annotation error is still returned.
func (s *Service) Process(ctx context.Context, id VideoID) (*Video, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	a, err := s.annotate(ctx, id, v.Path, v.Context)
	if err != nil {
		// An aborted pass still settles the record so it does not stay processing.
		storeCtx := ctx
		if ctx.Err() != nil {
			storeCtx = context.WithoutCancel(ctx)
		}
		v.Status = StatusFailed
		v.Error = err.Error()
		if serr := s.store.SetVideo(storeCtx, v); serr != nil {
			s.log.Error("store failed video", slog.String("video_id", string(id)), slog.String("error", serr.Error()))
		}
		return v, err
	}

	v.Metadata = a.Metadata
	v.Segments = a.Segments
	v.Status = StatusReady
	v.Error = ""
	if err := s.store.SetVideo(ctx, v); err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}
	return v, nil
}

// Get returns the stored video or ErrVideoNotFound.
func (s *Service) Get(ctx context.Context, id VideoID) (*Video, error) {
	v, ok, err := s.store.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVideoNotFound
	}
	return v, nil
}

// Forget drops the record for id. Used when its upload expires.
func (s *Service) Forget(ctx context.Context, id VideoID) {
	if err := s.store.DeleteVideo(ctx, id); err != nil {
		s.log.Warn("forget video", slog.String("video_id", string(id)), slog.String("error", err.Error()))
	}
}

// CountByStatus counts stored videos per status.
func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	ids, err := s.store.ListVideoIDs(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[Status]int)
	for _, id := range ids {
		if v, ok, err := s.store.GetVideo(ctx, id); err == nil && ok {
			counts[v.Status]++
		}
	}
	return counts, nil
}
