package coach

import "fmt"

// FallbackCommentary is served for a segment when generation is exhausted.
func FallbackCommentary(segment int) Commentary {
	return Commentary{
		Title: fmt.Sprintf("片段 %d 分析", segment),
		Text:  fmt.Sprintf("这是第%d个视频片段。由于AI分析暂时不可用，请继续观看视频，注意保持平衡和正确的姿势。", segment),
	}
}

// FallbackRecommendations is served when the drill list cannot be generated.
// A fresh slice is returned on every call.
func FallbackRecommendations() []Recommendation {
	return []Recommendation{
		{
			Name:        "基础平衡练习 (Basic Balance)",
			Description: "在平地上练习保持平衡，这是所有技术的基础。",
			KeyPoints:   []string{"保持身体中心", "放松膝盖", "目视前方"},
		},
	}
}
