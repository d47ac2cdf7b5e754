package annotation

import (
	"strings"
	"testing"

	"coach-annotator/internal/coach"
)

func TestBuildCoachingTrack_empty(t *testing.T) {
	if got := BuildCoachingTrack(0, nil); got != "WEBVTT\n" {
		t.Errorf("expected bare header, got %q", got)
	}
}

func TestBuildCoachingTrack(t *testing.T) {
	segs := []AnnotatedSegment{
		{Segment: Segment{ID: 1, FreezeAt: 10}, Coaching: coach.Commentary{Title: "入弯", Text: "重心前压"}},
		{Segment: Segment{ID: 2, FreezeAt: 30}, Coaching: coach.Commentary{Title: "<b>出弯</b>", Text: "放松\n\n膝盖 & 脚踝"}},
	}

	got := BuildCoachingTrack(40, segs)

	if !strings.HasPrefix(got, "WEBVTT\n") {
		t.Fatalf("missing header: %q", got)
	}
	for _, want := range []string{
		"\n1\n00:00:10.000 --> 00:00:20.000\n入弯\n重心前压\n",
		"\n2\n00:00:30.000 --> 00:00:40.000\n&lt;b&gt;出弯&lt;/b&gt;\n放松\n膝盖 &amp; 脚踝\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("track missing cue %q\n%s", want, got)
		}
	}
}

func TestVTTTimestamp(t *testing.T) {
	for _, tc := range []struct {
		in   float64
		want string
	}{
		{0, "00:00:00.000"},
		{1.5, "00:00:01.500"},
		{75.25, "00:01:15.250"},
		{3723.0, "01:02:03.000"},
		{-2, "00:00:00.000"},
	} {
		if got := vttTimestamp(tc.in); got != tc.want {
			t.Errorf("vttTimestamp(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
