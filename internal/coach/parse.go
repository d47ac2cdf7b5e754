package coach

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIncompleteCommentary = errors.New("commentary is missing title or text")
	ErrNoRecommendations    = errors.New("response contains no recommendations")
)

const fence = "```"

// StripCodeFence removes a leading ``` (optionally tagged json) and a trailing ```
// around a model reply. Unfenced text only has surrounding whitespace trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, fence); ok {
		if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
			rest = rest[4:]
		}
		s = strings.TrimSpace(rest)
	}
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

// ParseCommentary decodes {"title": ..., "text": ...}.
func ParseCommentary(raw string) (Commentary, error) {
	var c Commentary
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &c); err != nil {
		return Commentary{}, fmt.Errorf("decode commentary: %w", err)
	}
	c.Title = strings.TrimSpace(c.Title)
	c.Text = strings.TrimSpace(c.Text)
	if c.Title == "" || c.Text == "" {
		return Commentary{}, ErrIncompleteCommentary
	}
	return c, nil
}

// ParseRecommendations decodes {"recommendations": [...]}. Unnamed drills are
// numbered and missing key points become an empty list.
func ParseRecommendations(raw string) ([]Recommendation, error) {
	var body struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &body); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	if len(body.Recommendations) == 0 {
		return nil, ErrNoRecommendations
	}
	for i := range body.Recommendations {
		r := &body.Recommendations[i]
		if strings.TrimSpace(r.Name) == "" {
			r.Name = fmt.Sprintf("练习 %d", i+1)
		}
		if r.KeyPoints == nil {
			r.KeyPoints = []string{}
		}
	}
	return body.Recommendations, nil
}
