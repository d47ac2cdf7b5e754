package playback

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"coach-annotator/internal/annotation"
)

var (
	ErrUnknownSegment  = errors.New("unknown segment")
	ErrInvalidPosition = errors.New("position must be a finite number")
	ErrUnknownInput    = errors.New("unknown input type")
)

// Transition applies one input to s and returns the new state plus the events it caused.
// It does not modify s. segments must be ordered by id. On error s is returned unchanged.
func Transition(s PlaybackState, segments []annotation.AnnotatedSegment, in Input, tolerance float64) (PlaybackState, []Event, error) {
	next := s.Clone()

	switch in.Type {
	case InputPlay:
		next.State = StatePlaying
		clearStall(&next)
		return next, nil, nil

	case InputPause:
		if next.State == StatePlaying {
			next.State = StatePaused
		}
		return next, nil, nil

	case InputSample:
		pos, err := position(in.Position)
		if err != nil {
			return s, nil, err
		}
		next.CurrentPosition = pos
		if next.State != StatePlaying {
			return next, nil, nil
		}
		events := trigger(&next, segments, tolerance)
		if len(events) > 0 {
			next.State = StatePaused
		}
		return next, events, nil

	case InputSeek:
		pos, err := position(in.Position)
		if err != nil {
			return s, nil, err
		}
		next.CurrentPosition = pos
		return next, nil, nil

	case InputSelect:
		i := slices.IndexFunc(segments, func(seg annotation.AnnotatedSegment) bool { return seg.ID == in.SegmentID })
		if i < 0 {
			return s, nil, fmt.Errorf("%w: %d", ErrUnknownSegment, in.SegmentID)
		}
		id := segments[i].ID
		next.CurrentPosition = segments[i].FreezeAt
		next.HighlightedSegmentID = &id
		next.State = StatePlaying
		clearStall(&next)
		return next, nil, nil

	case InputEnd:
		if next.State != StatePlaying && next.State != StatePaused {
			return next, nil, nil
		}
		next.State = StateEnded
		return next, []Event{{Type: EventEnded}}, nil

	case InputFail:
		next.Stalled = true
		next.StallReason = in.Reason
		return next, []Event{{Type: EventStalled, Reason: in.Reason}}, nil

	case InputReveal:
		return next, nil, nil
	}

	return s, nil, fmt.Errorf("%w: %q", ErrUnknownInput, in.Type)
}

// trigger marks every untriggered segment within tolerance of the current position.
// Matches fire in ascending id order within the same update.
func trigger(s *PlaybackState, segments []annotation.AnnotatedSegment, tolerance float64) []Event {
	var events []Event
	for i := range segments {
		seg := segments[i]
		if math.Abs(s.CurrentPosition-seg.FreezeAt) >= tolerance {
			continue
		}
		at, found := slices.BinarySearch(s.Triggered, seg.ID)
		if found {
			continue
		}
		s.Triggered = slices.Insert(s.Triggered, at, seg.ID)
		events = append(events, Event{Type: EventSegmentTriggered, SegmentID: seg.ID, Segment: &seg})
	}
	return events
}

func position(p float64) (float64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, ErrInvalidPosition
	}
	return math.Max(p, 0), nil
}

func clearStall(s *PlaybackState) {
	s.Stalled = false
	s.StallReason = ""
}
