package playback

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"coach-annotator/internal/annotation"
	"coach-annotator/internal/platform/metrics"

	"github.com/google/uuid"
)

// SessionID identifies one playback session.
type SessionID string

var (
	// ErrSessionNotFound is returned for unknown or closed sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrVideoNotReady is returned when a session is requested for a video that is still being annotated or failed.
	ErrVideoNotReady = errors.New("video is not ready for playback")
)

// Session binds a synchronizer to the video it plays.
type Session struct {
	ID        SessionID
	VideoID   annotation.VideoID
	CreatedAt time.Time
	Sync      *Synchronizer
}

// Registry is a concurrency-safe in-memory set of open sessions.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[SessionID]*Session
	recommender Recommender
	tolerance   float64
	log         *slog.Logger
	metrics     *metrics.Metrics
}

// NewRegistry returns an empty registry. Metrics may be nil.
func NewRegistry(rec Recommender, tolerance float64, log *slog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		sessions:    make(map[SessionID]*Session),
		recommender: rec,
		tolerance:   tolerance,
		log:         log,
		metrics:     m,
	}
}

// Create opens a session for a ready video.
func (r *Registry) Create(v *annotation.Video) (*Session, error) {
	if v.Status != annotation.StatusReady {
		return nil, ErrVideoNotReady
	}

	sess := &Session{
		ID:        SessionID(uuid.NewString()),
		VideoID:   v.ID,
		CreatedAt: time.Now().UTC(),
		Sync:      NewSynchronizer(v.Segments, v.Context, r.recommender, r.tolerance, r.log.With(slog.String("video_id", string(v.ID))), r.metrics),
	}

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	n := len(r.sessions)
	r.mu.Unlock()

	r.setGauge(n)
	return sess, nil
}

// Get returns the session with id.
func (r *Registry) Get(id SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Remove closes and forgets a session. Removing an unknown session is a no-op that reports false.
func (r *Registry) Remove(id SessionID) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}
	sess.Sync.Close()
	r.setGauge(n)
	return true
}

// RemoveVideo closes every session playing video id and returns how many there were.
func (r *Registry) RemoveVideo(id annotation.VideoID) int {
	r.mu.Lock()
	var closing []*Session
	for sid, sess := range r.sessions {
		if sess.VideoID == id {
			closing = append(closing, sess)
			delete(r.sessions, sid)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, sess := range closing {
		sess.Sync.Close()
	}
	if len(closing) > 0 {
		r.setGauge(n)
	}
	return len(closing)
}

// ActiveCount returns the number of open sessions. Used for metrics.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every session, e.g. on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[SessionID]*Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Sync.Close()
	}
	r.setGauge(0)
}

func (r *Registry) setGauge(n int) {
	if r.metrics != nil {
		r.metrics.SetActiveSessions(n)
	}
}
