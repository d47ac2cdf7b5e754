package annotation

import (
	"fmt"
	"math"
	"strings"
)

const vttContentType = "text/vtt; charset=utf-8"

var vttEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// BuildCoachingTrack renders segments (ordered by id) as a WebVTT text track.
// Each cue starts at the segment's pause point and lasts until the end of its window,
// so a plain <track> element shows the commentary while that part of the run plays.
// A zero duration or an empty segment list yields just the header.
func BuildCoachingTrack(duration float64, segments []AnnotatedSegment) string {
	var b strings.Builder

	b.WriteString("WEBVTT\n")
	if duration <= 0 || len(segments) == 0 {
		return b.String()
	}

	for _, seg := range segments {
		start := seg.FreezeAt
		end := windowEnd(duration, len(segments), seg.ID)
		if end <= start {
			end = math.Min(duration, start+1)
		}

		b.WriteString(fmt.Sprintf("\n%d\n", seg.ID))
		b.WriteString(fmt.Sprintf("%s --> %s\n", vttTimestamp(start), vttTimestamp(end)))
		b.WriteString(cueText(seg.Coaching.Title))
		b.WriteString("\n")
		b.WriteString(cueText(seg.Coaching.Text))
		b.WriteString("\n")
	}

	return b.String()
}

// vttTimestamp formats seconds as hh:mm:ss.mmm.
func vttTimestamp(seconds float64) string {
	ms := int64(math.Round(seconds * 1000))
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// cueText escapes markup and drops blank lines, which would end the cue early.
func cueText(s string) string {
	lines := strings.Split(vttEscaper.Replace(s), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
