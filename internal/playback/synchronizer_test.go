package playback

import (
	"context"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"coach-annotator/internal/annotation"
	"coach-annotator/internal/coach"
	"coach-annotator/internal/platform/logger"
)

type countingRecommender struct {
	calls   atomic.Int32
	release chan struct{} // nil = answer immediately
}

func (r *countingRecommender) Recommendations(ctx context.Context, _ coach.Context) []coach.Recommendation {
	r.calls.Add(1)
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
		}
	}
	return coach.FallbackRecommendations()
}

func newTestSynchronizer(t *testing.T, rec Recommender, segs []annotation.AnnotatedSegment) *Synchronizer {
	t.Helper()
	s := NewSynchronizer(segs, coach.Context{Activity: "skiing", Terrain: "moguls"}, rec, 0, logger.Discard(), nil)
	t.Cleanup(s.Close)
	return s
}

func mustApply(t *testing.T, s *Synchronizer, in Input) PlaybackState {
	t.Helper()
	state, _, err := s.Apply(in)
	if err != nil {
		t.Fatalf("Apply(%+v): %v", in, err)
	}
	return state
}

func waitEvent(t *testing.T, ch <-chan Event, want EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				t.Fatalf("subscription closed while waiting for %s", want)
			}
			if e.Type == want {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestSynchronizer_end_to_end(t *testing.T) {
	plan, err := annotation.Plan(50, 5)
	if err != nil {
		t.Fatal(err)
	}
	segs := make([]annotation.AnnotatedSegment, len(plan))
	for i, p := range plan {
		segs[i] = annotation.AnnotatedSegment{Segment: p, Coaching: coach.FallbackCommentary(p.ID)}
	}

	rec := &countingRecommender{}
	s := newTestSynchronizer(t, rec, segs)
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	mustApply(t, s, Input{Type: InputPlay})
	for pos := 0.0; pos <= 50; pos += 0.25 {
		if st := mustApply(t, s, sample(pos)); st.State == StatePaused {
			mustApply(t, s, Input{Type: InputPlay})
		}
	}
	mustApply(t, s, Input{Type: InputEnd})

	var order []EventType
	var ids []int
	for len(order) < 7 {
		select {
		case e := <-events:
			order = append(order, e.Type)
			if e.Type == EventSegmentTriggered {
				ids = append(ids, e.SegmentID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", order)
		}
	}

	if !slices.Equal(ids, []int{1, 2, 3, 4, 5}) {
		t.Errorf("trigger order: %v", ids)
	}
	if order[5] != EventEnded || order[6] != EventRecommendationsReady {
		t.Errorf("event order: %v", order)
	}
	if n := rec.calls.Load(); n != 1 {
		t.Errorf("expected exactly one recommendations fetch, got %d", n)
	}

	state, recs := s.Snapshot()
	if !state.RecommendationsRevealed || len(recs) != 1 {
		t.Errorf("snapshot: revealed=%v recs=%v", state.RecommendationsRevealed, recs)
	}

	// resume via seek and end again: no second fetch
	mustApply(t, s, Input{Type: InputSeek, Position: 10})
	mustApply(t, s, Input{Type: InputPlay})
	mustApply(t, s, Input{Type: InputEnd})
	time.Sleep(20 * time.Millisecond)
	if n := rec.calls.Load(); n != 1 {
		t.Errorf("re-entering ended must not refetch, got %d calls", n)
	}
}

func TestSynchronizer_fetch_in_flight_is_not_duplicated(t *testing.T) {
	rec := &countingRecommender{release: make(chan struct{})}
	s := newTestSynchronizer(t, rec, segmentsAt(5))
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	mustApply(t, s, Input{Type: InputPlay})
	mustApply(t, s, Input{Type: InputEnd})
	mustApply(t, s, Input{Type: InputPlay})
	mustApply(t, s, Input{Type: InputEnd})
	mustApply(t, s, Input{Type: InputReveal})

	// inputs keep flowing while the fetch is blocked
	if st := mustApply(t, s, Input{Type: InputSeek, Position: 2}); st.CurrentPosition != 2 {
		t.Errorf("seek during fetch: %+v", st)
	}

	close(rec.release)
	waitEvent(t, events, EventRecommendationsReady)

	if n := rec.calls.Load(); n != 1 {
		t.Errorf("expected one fetch, got %d", n)
	}
}

func TestSynchronizer_reveal_on_request(t *testing.T) {
	rec := &countingRecommender{}
	s := newTestSynchronizer(t, rec, segmentsAt(5))
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	mustApply(t, s, Input{Type: InputReveal})
	e := waitEvent(t, events, EventRecommendationsReady)
	if len(e.Recommendations) != 1 || e.Recommendations[0].Name == "" {
		t.Errorf("unexpected event %+v", e)
	}
	if st, _ := s.Snapshot(); st.State != StateIdle {
		t.Errorf("reveal must not change the playback state, got %s", st.State)
	}
}

func TestSynchronizer_close_cancels_fetch(t *testing.T) {
	rec := &countingRecommender{release: make(chan struct{})}
	s := NewSynchronizer(segmentsAt(5), coach.Context{Activity: "skiing", Terrain: "moguls"}, rec, 0, logger.Discard(), nil)
	events, _ := s.Subscribe()

	mustApply(t, s, Input{Type: InputReveal})

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	for e := range events {
		if e.Type == EventRecommendationsReady {
			t.Error("no recommendations should be published after Close")
		}
	}
	if _, recs := s.Snapshot(); recs != nil {
		t.Errorf("recommendations stored after Close: %v", recs)
	}
}

func TestSynchronizer_error_keeps_state(t *testing.T) {
	s := newTestSynchronizer(t, &countingRecommender{}, segmentsAt(5))
	mustApply(t, s, Input{Type: InputPlay})

	state, events, err := s.Apply(Input{Type: InputSelect, SegmentID: 42})
	if err == nil || events != nil || state.State != StatePlaying {
		t.Errorf("got state=%s events=%v err=%v", state.State, events, err)
	}
}

func TestHub(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe()
	b, _ := h.Subscribe()
	if h.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", h.SubscriberCount())
	}

	h.Broadcast(Event{Type: EventEnded})
	if e := <-a; e.Type != EventEnded {
		t.Errorf("a got %v", e)
	}
	if e := <-b; e.Type != EventEnded {
		t.Errorf("b got %v", e)
	}

	unsubA()
	unsubA()
	if _, open := <-a; open {
		t.Error("unsubscribed channel should be closed")
	}

	// a full subscriber does not block the broadcaster
	for i := 0; i < subscriberBuffer*2; i++ {
		h.Broadcast(Event{Type: EventStalled})
	}

	h.Close()
	late, _ := h.Subscribe()
	if _, open := <-late; open {
		t.Error("subscription after Close should be closed")
	}
}
