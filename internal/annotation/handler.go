package annotation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"coach-annotator/internal/coach"
	"coach-annotator/internal/media"
	"coach-annotator/internal/platform/httputil"
	"coach-annotator/internal/uploads"

	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart body is buffered in memory before spilling to disk.
const multipartMemory = 32 << 20

// Recommender returns practice drills for a context. It never fails.
type Recommender interface {
	Recommendations(ctx context.Context, c coach.Context) []coach.Recommendation
}

// Enqueuer hands a registered video to a background worker.
type Enqueuer interface {
	EnqueueAnnotation(ctx context.Context, id VideoID) error
}

// Handler exposes the upload and video endpoints using go-chi.
type Handler struct {
	svc         *Service
	storage     *uploads.Storage
	recommender Recommender
	enqueuer    Enqueuer
	log         *slog.Logger
}

// NewHandler returns a Handler. With a nil enqueuer uploads are annotated inside the
// request; otherwise they are queued and the response is 202.
func NewHandler(svc *Service, storage *uploads.Storage, rec Recommender, enq Enqueuer, log *slog.Logger) *Handler {
	return &Handler{svc: svc, storage: storage, recommender: rec, enqueuer: enq, log: log}
}

// Routes mounts the handler's endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Route("/video/{videoId}", func(r chi.Router) {
		r.Get("/", h.GetVideo)
		r.Get("/recommendations", h.GetRecommendations)
		r.Get("/coaching.vtt", h.GetCoachingTrack)
	})
}

type uploadResponse struct {
	Success  bool               `json:"success"`
	VideoID  VideoID            `json:"videoId"`
	VideoURL string             `json:"videoUrl"`
	Segments []AnnotatedSegment `json:"segments,omitempty"`
	Status   Status             `json:"status,omitempty"`
}

// Upload handles POST /api/upload.
// Multipart form: video (file), sport, terrain.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.storage.MaxBytes()+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, uploads.ErrTooLarge.Error())
			return
		}
		h.log.Debug("invalid upload form", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusBadRequest, "未上传视频文件")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "未上传视频文件")
		return
	}
	defer file.Close()

	c := coach.Context{
		Activity: strings.TrimSpace(r.FormValue("sport")),
		Terrain:  strings.TrimSpace(r.FormValue("terrain")),
	}
	if !c.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "缺少运动类型或地形信息")
		return
	}

	stored, err := h.storage.Save(file, header.Filename)
	switch {
	case errors.Is(err, uploads.ErrUnsupportedFormat):
		httputil.WriteError(w, http.StatusBadRequest, "不支持的文件格式。仅支持 MP4, MOV, AVI, WEBM")
		return
	case errors.Is(err, uploads.ErrTooLarge):
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		h.log.Error("save upload failed", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "视频处理失败")
		return
	}

	v := &Video{ID: VideoID(stored.ID), URL: stored.URL, Path: stored.Path, Context: c}
	if err := h.svc.Register(r.Context(), v); err != nil {
		h.log.Error("register video failed", slog.String("video_id", stored.ID), slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "视频处理失败")
		return
	}

	h.log.Info("video uploaded",
		slog.String("video_id", stored.ID),
		slog.String("file", header.Filename),
		slog.String("activity", c.Activity),
		slog.String("terrain", c.Terrain))

	if h.enqueuer != nil {
		if err := h.enqueuer.EnqueueAnnotation(r.Context(), v.ID); err != nil {
			h.log.Error("enqueue annotation failed", slog.String("video_id", stored.ID), slog.String("error", err.Error()))
			httputil.WriteError(w, http.StatusInternalServerError, "视频处理失败")
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, uploadResponse{
			Success: true, VideoID: v.ID, VideoURL: v.URL, Status: StatusProcessing,
		})
		return
	}

	v, err = h.svc.Process(r.Context(), v.ID)
	if err != nil {
		var perr *media.ProbeError
		switch {
		case errors.As(err, &perr):
			h.log.Info("upload rejected, video unreadable", slog.String("video_id", stored.ID), slog.String("error", err.Error()))
			httputil.WriteError(w, http.StatusUnprocessableEntity, "视频处理失败: "+perr.Err.Error())
		case r.Context().Err() != nil:
			h.log.Info("upload aborted by client", slog.String("video_id", stored.ID))
		default:
			h.log.Error("annotation failed", slog.String("video_id", stored.ID), slog.String("error", err.Error()))
			httputil.WriteError(w, http.StatusInternalServerError, "视频处理失败")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, uploadResponse{
		Success: true, VideoID: v.ID, VideoURL: v.URL, Segments: v.Segments,
	})
}

// GetVideo handles GET /api/video/{videoId}.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	v, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// GetRecommendations handles GET /api/video/{videoId}/recommendations?sport=&terrain=.
// Query parameters win; otherwise the context stored with the video is used.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	c := coach.Context{
		Activity: strings.TrimSpace(r.URL.Query().Get("sport")),
		Terrain:  strings.TrimSpace(r.URL.Query().Get("terrain")),
	}
	if !c.Valid() {
		v, ok := h.lookup(w, r)
		if !ok {
			return
		}
		c = v.Context
		if !c.Valid() {
			httputil.WriteError(w, http.StatusBadRequest, "缺少运动类型或地形信息")
			return
		}
	}

	recs := h.recommender.Recommendations(r.Context(), c)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

// GetCoachingTrack handles GET /api/video/{videoId}/coaching.vtt.
func (h *Handler) GetCoachingTrack(w http.ResponseWriter, r *http.Request) {
	v, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if v.Status != StatusReady {
		httputil.WriteError(w, http.StatusConflict, "video is not ready")
		return
	}

	w.Header().Set("Content-Type", vttContentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(BuildCoachingTrack(v.Duration, v.Segments)))
}

// lookup resolves {videoId}, writing the error response itself when it fails.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Video, bool) {
	id := VideoID(chi.URLParam(r, "videoId"))
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing video id")
		return nil, false
	}

	v, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, ErrVideoNotFound) {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		h.log.Error("load video failed", slog.String("video_id", string(id)), slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load video")
		return nil, false
	}
	return v, true
}
