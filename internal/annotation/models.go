package annotation

import (
	"time"

	"coach-annotator/internal/coach"
	"coach-annotator/internal/media"
)

// VideoID identifies an uploaded video. It is also the upload's file stem.
type VideoID string

// Status tracks a video through annotation.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Segment is one planned pause point on the video timeline.
type Segment struct {
	ID       int     `json:"id"`
	FreezeAt float64 `json:"freeze_at"`
}

// AnnotatedSegment is a segment with its coaching commentary attached.
type AnnotatedSegment struct {
	Segment
	Coaching  coach.Commentary `json:"coaching"`
	Thumbnail string           `json:"thumbnail,omitempty"`
}

// Annotation is the result of one annotation pass.
type Annotation struct {
	Metadata media.Metadata
	Segments []AnnotatedSegment
}

// Video is everything a playback session needs to know about an upload.
// The JSON shape is what GET /api/video/{videoId} returns.
type Video struct {
	ID   VideoID `json:"videoId"`
	URL  string  `json:"videoUrl"`
	Path string  `json:"-"`
	coach.Context
	media.Metadata
	Status    Status             `json:"status"`
	Segments  []AnnotatedSegment `json:"segments"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Clone returns a deep copy so stored records are never shared with callers.
func (v *Video) Clone() *Video {
	if v == nil {
		return nil
	}
	out := *v
	if v.Segments != nil {
		out.Segments = make([]AnnotatedSegment, len(v.Segments))
		copy(out.Segments, v.Segments)
	}
	return &out
}
