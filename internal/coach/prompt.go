package coach

import "fmt"

var terrainLabels = map[string]string{
	"beginner":     "平地/绿道（初级）",
	"intermediate": "蓝道（中级）",
	"advanced":     "黑道（高级陡坡）",
	"moguls":       "蘑菇道（雪包）",
	"freestyle":    "自由式（公园、跳台）",
}

// discipline returns the display name and teaching framework for an activity.
// Anything other than skiing is coached as snowboarding.
func discipline(activity string) (name, framework string) {
	if activity == "skiing" {
		return "双板滑雪", "CSIA"
	}
	return "单板滑雪", "CASI"
}

// TerrainLabel returns the localized terrain description, or the raw value when unknown.
func TerrainLabel(terrain string) string {
	if label, ok := terrainLabels[terrain]; ok {
		return label
	}
	return terrain
}

// CoachingPrompt builds the request for one segment's commentary.
func CoachingPrompt(c Context, segment, total int) string {
	name, framework := discipline(c.Activity)
	return fmt.Sprintf(`你是一位专业的%s教练，使用%s教学框架。请分析这段视频片段（第%d/%d段），地形为%s。

要求：
1. 生成一个5-10字的中文标题，概括这个片段的关键技术点
2. 提供3-5句话的详细反馈，包括：
   - 姿势分析
   - 技术问题
   - 改进建议
3. 语气要鼓励性、建设性
4. 使用简体中文
5. 根据地形给出针对性建议

请以JSON格式返回：
{
  "title": "标题",
  "text": "详细反馈内容"
}`, name, framework, segment, total, TerrainLabel(c.Terrain))
}

// RecommendationsPrompt builds the request for the post-playback drill list.
func RecommendationsPrompt(c Context) string {
	name, framework := discipline(c.Activity)
	return fmt.Sprintf(`你是一位专业的%s教练，使用%s教学框架。根据地形%s，推荐3-5个适合的练习。

要求：
1. 每个练习包含：
   - 练习名称（中英文）
   - 练习描述（2-3句话）
   - 关键要点（数组形式）
2. 使用简体中文
3. 根据地形针对性推荐

请以JSON格式返回：
{
  "recommendations": [
    {
      "name": "练习名称（中英文）",
      "description": "练习描述",
      "keyPoints": ["要点1", "要点2", "要点3"]
    }
  ]
}`, name, framework, TerrainLabel(c.Terrain))
}
