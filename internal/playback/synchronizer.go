package playback

import (
	"context"
	"log/slog"
	"sync"

	"coach-annotator/internal/annotation"
	"coach-annotator/internal/coach"
	"coach-annotator/internal/platform/metrics"
)

// Recommender returns practice drills for a context. It never fails.
type Recommender interface {
	Recommendations(ctx context.Context, c coach.Context) []coach.Recommendation
}

// Synchronizer owns one session's PlaybackState. Inputs are serialised by a mutex; the
// recommendations fetch runs in the background and reports through the hub.
type Synchronizer struct {
	mu        sync.Mutex
	state     PlaybackState
	segments  []annotation.AnnotatedSegment
	tolerance float64

	coaching        coach.Context
	recommender     Recommender
	recommendations []coach.Recommendation
	fetching        bool

	hub     *Hub
	log     *slog.Logger
	metrics *metrics.Metrics

	lifetime context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSynchronizer starts an idle session over segments (ordered by id). Metrics may be nil;
// tolerance <= 0 uses DefaultTolerance.
func NewSynchronizer(segments []annotation.AnnotatedSegment, c coach.Context, rec Recommender, tolerance float64, log *slog.Logger, m *metrics.Metrics) *Synchronizer {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		state:       NewPlaybackState(),
		segments:    append([]annotation.AnnotatedSegment(nil), segments...),
		tolerance:   tolerance,
		coaching:    c,
		recommender: rec,
		hub:         NewHub(),
		log:         log,
		metrics:     m,
		lifetime:    ctx,
		cancel:      cancel,
	}
}

// Apply feeds one input through Transition and broadcasts the resulting events.
func (s *Synchronizer) Apply(in Input) (PlaybackState, []Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, events, err := Transition(s.state, s.segments, in, s.tolerance)
	if err != nil {
		return s.state.Clone(), nil, err
	}
	s.state = next

	triggered := 0
	for _, e := range events {
		switch e.Type {
		case EventSegmentTriggered:
			triggered++
		case EventEnded:
			s.revealLocked()
		case EventStalled:
			s.log.Warn("playback stalled", slog.String("reason", e.Reason))
		}
	}
	if in.Type == InputReveal {
		s.revealLocked()
	}
	if triggered > 0 && s.metrics != nil {
		s.metrics.AddSegmentsTriggered(triggered)
	}

	s.hub.Broadcast(events...)
	return s.state.Clone(), events, nil
}

// Snapshot returns the current state and the recommendations once they are available.
func (s *Synchronizer) Snapshot() (PlaybackState, []coach.Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.recommendations
}

// Subscribe streams every event the session emits from now on.
func (s *Synchronizer) Subscribe() (<-chan Event, func()) {
	return s.hub.Subscribe()
}

// Close cancels any in-flight fetch, waits for it, and closes all subscriptions.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.hub.Close()
}

// revealLocked starts the recommendations fetch unless one is stored or in flight.
// Caller must hold s.mu.
func (s *Synchronizer) revealLocked() {
	if s.recommendations != nil || s.fetching || s.lifetime.Err() != nil {
		return
	}
	s.fetching = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		recs := s.recommender.Recommendations(s.lifetime, s.coaching)
		if recs == nil {
			recs = []coach.Recommendation{}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.fetching = false
		if s.lifetime.Err() != nil {
			return
		}
		s.recommendations = recs
		s.state.RecommendationsRevealed = true
		s.hub.Broadcast(Event{Type: EventRecommendationsReady, Recommendations: recs})
	}()
}
