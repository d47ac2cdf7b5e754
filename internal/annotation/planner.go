package annotation

import (
	"errors"
	"math"
)

// DefaultSegmentCount is how many pause points a video gets unless configured otherwise.
const DefaultSegmentCount = 5

var (
	ErrInvalidDuration     = errors.New("duration must be positive")
	ErrInvalidSegmentCount = errors.New("segment count must be positive")
)

// Plan divides [0, duration) into count equal windows and places one pause
// point at the centre of each, rounded to a tenth of a second.
func Plan(duration float64, count int) ([]Segment, error) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, ErrInvalidDuration
	}
	if count <= 0 {
		return nil, ErrInvalidSegmentCount
	}

	window := duration / float64(count)
	segments := make([]Segment, count)
	for i := range segments {
		segments[i] = Segment{
			ID:       i + 1,
			FreezeAt: roundTenth(float64(i)*window + window/2),
		}
	}
	return segments, nil
}

// windowEnd is where segment id's window closes, clamped to duration.
func windowEnd(duration float64, count, id int) float64 {
	return math.Min(duration, float64(id)*duration/float64(count))
}

func roundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}
