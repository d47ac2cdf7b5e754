package playback

import (
	"coach-annotator/internal/annotation"
	"coach-annotator/internal/coach"
)

// DefaultTolerance is how close (in seconds) a position sample must be to a
// segment's pause point to trigger it.
const DefaultTolerance = 0.5

// State is the coarse playback phase of a session.
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

// PlaybackState is the full per-session state threaded through Transition.
type PlaybackState struct {
	State                   State   `json:"state"`
	CurrentPosition         float64 `json:"currentPosition"`
	Triggered               []int   `json:"triggered"` // ascending ids, never shrinks
	HighlightedSegmentID    *int    `json:"highlightedSegmentId,omitempty"`
	RecommendationsRevealed bool    `json:"recommendationsRevealed"`
	Stalled                 bool    `json:"stalled"`
	StallReason             string  `json:"stallReason,omitempty"`
}

// NewPlaybackState returns the state of a session that has not started playing.
func NewPlaybackState() PlaybackState {
	return PlaybackState{State: StateIdle, Triggered: []int{}}
}

// Clone returns a copy that shares no slices or pointers with s.
func (s PlaybackState) Clone() PlaybackState {
	out := s
	out.Triggered = append([]int{}, s.Triggered...)
	if s.HighlightedSegmentID != nil {
		id := *s.HighlightedSegmentID
		out.HighlightedSegmentID = &id
	}
	return out
}

// InputType names a playback input.
type InputType string

const (
	InputPlay   InputType = "play"
	InputPause  InputType = "pause"
	InputSample InputType = "sample"
	InputSeek   InputType = "seek"
	InputSelect InputType = "select"
	InputEnd    InputType = "end"
	InputFail   InputType = "fail"
	// InputReveal asks for the recommendations without waiting for the end of playback.
	InputReveal InputType = "reveal"
)

// Input is one position sample or user action.
type Input struct {
	Type      InputType `json:"type"`
	Position  float64   `json:"position,omitempty"`
	SegmentID int       `json:"segmentId,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// EventType names an event emitted to the rendering side.
type EventType string

const (
	EventSegmentTriggered     EventType = "segment_triggered"
	EventEnded                EventType = "ended"
	EventRecommendationsReady EventType = "recommendations_ready"
	EventStalled              EventType = "stalled"
)

// Event is a state change worth telling the player about.
type Event struct {
	Type            EventType                    `json:"type"`
	SegmentID       int                          `json:"segmentId,omitempty"`
	Segment         *annotation.AnnotatedSegment `json:"segment,omitempty"`
	Recommendations []coach.Recommendation       `json:"recommendations,omitempty"`
	Reason          string                       `json:"reason,omitempty"`
}
