package coach

import "strings"

// Kinds label the two fetch flavours in logs and metrics.
const (
	KindCoaching        = "coaching"
	KindRecommendations = "recommendations"
)

// Context is the {activity, terrain} pair that parameterises every prompt.
type Context struct {
	Activity string `json:"activity"`
	Terrain  string `json:"terrain"`
}

// Valid reports whether both halves are present.
func (c Context) Valid() bool {
	return strings.TrimSpace(c.Activity) != "" && strings.TrimSpace(c.Terrain) != ""
}

func (c Context) key() string {
	return strings.ToLower(strings.TrimSpace(c.Activity)) + "|" + strings.ToLower(strings.TrimSpace(c.Terrain))
}

// Commentary is the coaching feedback attached to one segment.
type Commentary struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Recommendation is one practice drill suggested after playback.
type Recommendation struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	KeyPoints   []string `json:"keyPoints"`
}
