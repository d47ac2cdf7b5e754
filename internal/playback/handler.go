package playback

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"coach-annotator/internal/annotation"
	"coach-annotator/internal/coach"
	"coach-annotator/internal/platform/httputil"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// VideoSource resolves the video a session is opened for.
type VideoSource interface {
	Get(ctx context.Context, id annotation.VideoID) (*annotation.Video, error)
}

// Handler exposes playback sessions over REST and a websocket.
type Handler struct {
	registry *Registry
	videos   VideoSource
	log      *slog.Logger
}

func NewHandler(registry *Registry, videos VideoSource, log *slog.Logger) *Handler {
	return &Handler{registry: registry, videos: videos, log: log}
}

// Routes mounts the session endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionId}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/events", h.PostEvent)
		r.Get("/ws", h.Stream)
	})
}

type createSessionRequest struct {
	VideoID annotation.VideoID `json:"videoId"`
}

type sessionView struct {
	SessionID       SessionID              `json:"sessionId"`
	VideoID         annotation.VideoID     `json:"videoId"`
	State           PlaybackState          `json:"state"`
	Recommendations []coach.Recommendation `json:"recommendations,omitempty"`
}

type eventResponse struct {
	State  PlaybackState `json:"state"`
	Events []Event       `json:"events"`
}

// wsMessage is the envelope of every server-to-client websocket frame.
type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// CreateSession handles POST /api/sessions. Body: { "videoId": "..." }.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := httputil.ReadJSON(r, &req); err != nil || req.VideoID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "videoId is required")
		return
	}

	v, err := h.videos.Get(r.Context(), req.VideoID)
	if errors.Is(err, annotation.ErrVideoNotFound) {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log.Error("load video failed", slog.String("video_id", string(req.VideoID)), slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load video")
		return
	}

	sess, err := h.registry.Create(v)
	if errors.Is(err, ErrVideoNotReady) {
		httputil.WriteError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info("playback session opened",
		slog.String("session_id", string(sess.ID)),
		slog.String("video_id", string(v.ID)))
	httputil.WriteJSON(w, http.StatusCreated, view(sess))
}

// GetSession handles GET /api/sessions/{sessionId}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view(sess))
}

// DeleteSession handles DELETE /api/sessions/{sessionId}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "sessionId"))
	if !h.registry.Remove(id) {
		httputil.WriteError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}
	h.log.Info("playback session closed", slog.String("session_id", string(id)))
	w.WriteHeader(http.StatusNoContent)
}

// PostEvent handles POST /api/sessions/{sessionId}/events.
// Body: { "type": "sample", "position": 29.8 }.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var in Input
	if err := httputil.ReadJSON(r, &in); err != nil {
		h.log.Debug("invalid playback input", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusBadRequest, "invalid input body")
		return
	}

	state, events, err := sess.Sync.Apply(in)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if events == nil {
		events = []Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, eventResponse{State: state, Events: events})
}

// Stream handles GET /api/sessions/{sessionId}/ws. The client sends Input frames; the server
// answers each with the resulting state and pushes every session event as it happens.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := sess.Sync.Subscribe()
	defer unsubscribe()

	log := h.log.With(slog.String("session_id", string(sess.ID)))
	log.Debug("websocket client connected")

	replies := make(chan wsMessage, 8)
	go func() {
		defer cancel()
		for {
			var in Input
			if err := wsjson.Read(ctx, conn, &in); err != nil {
				return
			}
			msg := wsMessage{Event: "state"}
			state, _, err := sess.Sync.Apply(in)
			if err != nil {
				msg = wsMessage{Event: "error", Data: httputil.ErrorBody{Error: err.Error()}}
			} else {
				msg.Data = state
			}
			select {
			case replies <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := wsjson.Write(ctx, conn, wsMessage{Event: "snapshot", Data: view(sess)}); err != nil {
		return
	}

	for {
		var msg wsMessage
		select {
		case <-ctx.Done():
			log.Debug("websocket client disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case e, open := <-events:
			if !open {
				conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			msg = eventMessage(e)
		case msg = <-replies:
			// Apply broadcasts before it returns, so events caused by this
			// input are already queued and must go out ahead of the reply.
			if err := writeQueued(ctx, conn, events); err != nil {
				return
			}
		}
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			return
		}
	}
}

func eventMessage(e Event) wsMessage {
	return wsMessage{Event: string(e.Type), Data: e}
}

// writeQueued sends every event already waiting on events without blocking for more.
func writeQueued(ctx context.Context, conn *websocket.Conn, events <-chan Event) error {
	for {
		select {
		case e, open := <-events:
			if !open {
				return nil
			}
			if err := wsjson.Write(ctx, conn, eventMessage(e)); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := h.registry.Get(SessionID(chi.URLParam(r, "sessionId")))
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return nil, false
	}
	return sess, true
}

func view(sess *Session) sessionView {
	state, recs := sess.Sync.Snapshot()
	return sessionView{SessionID: sess.ID, VideoID: sess.VideoID, State: state, Recommendations: recs}
}
