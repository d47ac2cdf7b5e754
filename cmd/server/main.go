package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coach-annotator/internal/annotation"
	"coach-annotator/internal/coach"
	"coach-annotator/internal/jobs"
	"coach-annotator/internal/llm"
	"coach-annotator/internal/media"
	"coach-annotator/internal/platform/config"
	"coach-annotator/internal/platform/httputil"
	"coach-annotator/internal/platform/logger"
	"coach-annotator/internal/platform/metrics"
	"coach-annotator/internal/playback"
	"coach-annotator/internal/uploads"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "3000")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	uploadDir := config.GetEnv("UPLOAD_DIR", "uploads")
	staticDir := config.GetEnv("STATIC_DIR", "public")
	uploadTTL := config.GetEnvDuration("UPLOAD_TTL", 24*time.Hour)
	segmentCount := config.GetEnvInt("SEGMENT_COUNT", annotation.DefaultSegmentCount)
	maxConcurrency := config.GetEnvInt("ANNOTATE_MAX_CONCURRENCY", 0)
	async := config.GetEnvBool("ANNOTATE_ASYNC", false)
	redisAddr := config.GetEnv("REDIS_ADDR", "")

	log := logger.New(logLevel, logFormat)
	met := metrics.New()

	storage, err := uploads.NewStorage(uploadDir, "/uploads", config.GetEnvInt64("MAX_UPLOAD_BYTES", uploads.DefaultMaxBytes))
	if err != nil {
		log.Error("upload storage", "error", err)
		os.Exit(1)
	}

	var gen coach.Generator = llm.Disabled{}
	if apiKey := config.GetEnv("LLM_API_KEY", ""); apiKey != "" {
		gen = llm.New(llm.Config{
			APIKey:        apiKey,
			BaseURL:       config.GetEnv("LLM_BASE_URL", llm.DefaultBaseURL),
			Model:         config.GetEnv("LLM_MODEL", llm.DefaultModel),
			Temperature:   float32(config.GetEnvFloat("LLM_TEMPERATURE", 0.7)),
			MaxTokens:     config.GetEnvInt("LLM_MAX_TOKENS", 0),
			CallTimeout:   config.GetEnvDuration("LLM_CALL_TIMEOUT", 30*time.Second),
			RatePerSecond: config.GetEnvFloat("LLM_RATE_LIMIT", 0),
			Burst:         config.GetEnvInt("LLM_BURST", 1),
		})
	} else {
		log.Warn("LLM_API_KEY not set, every segment will get fallback commentary")
	}

	fetcher := coach.NewFetcher(gen, coach.DefaultPolicy(), log, met)
	recommender := coach.NewRecommendationCache(fetcher, config.GetEnvDuration("RECOMMENDATION_CACHE_TTL", time.Hour))

	var store annotation.Store = annotation.NewInMemoryStore()
	var rdb *redis.Client
	if redisAddr != "" {
		rdb, err = annotation.ConnectRedis(context.Background(), redisAddr, config.GetEnv("REDIS_PASSWORD", ""), config.GetEnvInt("REDIS_DB", 0))
		if err != nil {
			log.Error("redis", "error", err)
			os.Exit(1)
		}
		store = annotation.NewRedisStore(rdb, uploadTTL)
	}

	opts := annotation.Options{SegmentCount: segmentCount, MaxConcurrency: maxConcurrency}
	if config.GetEnvBool("THUMBNAILS", true) {
		opts.Frames = media.NewFFmpeg(config.GetEnv("FFMPEG_PATH", "ffmpeg"), log)
		opts.Thumbnail = func(id annotation.VideoID, n int) (string, string) {
			return storage.ThumbnailPath(string(id), n)
		}
	}
	svc := annotation.NewService(media.NewFFprobe(config.GetEnv("FFPROBE_PATH", "ffprobe")), fetcher, store, log, met, opts)

	var queue *jobs.Queue
	var enqueuer annotation.Enqueuer
	if async {
		if redisAddr == "" {
			log.Error("ANNOTATE_ASYNC requires REDIS_ADDR")
			os.Exit(1)
		}
		queue = jobs.NewQueue(redisAddr, config.GetEnv("REDIS_PASSWORD", ""), config.GetEnvInt("REDIS_DB", 0), config.GetEnvInt("WORKER_CONCURRENCY", 2), log)
		queue.RegisterHandler(jobs.TaskAnnotateVideo, jobs.NewAnnotateHandler(svc, log))
		if err := queue.Start(); err != nil {
			log.Error("job queue", "error", err)
			os.Exit(1)
		}
		enqueuer = queue
	}

	registry := playback.NewRegistry(recommender, config.GetEnvFloat("PLAYBACK_TOLERANCE", playback.DefaultTolerance), log, met)

	janitor := uploads.NewJanitor(storage, uploadTTL, func(ctx context.Context, id string) {
		registry.RemoveVideo(annotation.VideoID(id))
		svc.Forget(ctx, annotation.VideoID(id))
	}, log)
	if err := janitor.Start(config.GetEnv("UPLOAD_SWEEP_SCHEDULE", "@every 10m")); err != nil {
		log.Error("upload janitor", "error", err)
		os.Exit(1)
	}

	videoHandler := annotation.NewHandler(svc, storage, recommender, enqueuer, log)
	sessionHandler := playback.NewHandler(registry, svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok", "sessions": registry.ActiveCount()}
		if counts, err := svc.CountByStatus(r.Context()); err == nil {
			body["videos"] = counts
		}
		httputil.WriteJSON(w, http.StatusOK, body)
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveSessions(registry.ActiveCount()) }).ServeHTTP(w, r)
	})
	r.Route("/api", func(r chi.Router) {
		videoHandler.Routes(r)
		sessionHandler.Routes(r)
	})
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
	if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"segment_count", segmentCount,
		"max_concurrency", maxConcurrency,
		"async", async,
		"redis", redisAddr != "",
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	registry.CloseAll()
	<-janitor.Stop().Done()
	if queue != nil {
		queue.Stop()
	}
	if rdb != nil {
		rdb.Close()
	}

	log.Info("server stopped")
}
