// internal/models/caption.go
package models

// CaptionLine 描述解析后的单条字幕行
// 由字幕解析器从SRT文本生成，解析后不可变
type CaptionLine struct {
	ID        int     `json:"id"`
	StartTime float64 `json:"start_time"` // 秒
	EndTime   float64 `json:"end_time"`   // 秒
	Text      string  `json:"text"`
}

// Duration 返回字幕行的持续时长（秒）
func (l CaptionLine) Duration() float64 {
	return l.EndTime - l.StartTime
}

// 动画意图分类，由分段优化器为每个片段标注
const (
	IntentEmphasis = "emphasis" // 强调关键词
	IntentList     = "list"     // 列举步骤或要点
	IntentNumber   = "number"   // 数字、统计数据
	IntentQuote    = "quote"    // 引用、金句
	IntentGeneric  = "generic"  // 普通陈述
)

// Segment 将一条或多条连续字幕行组合为一个动画单元
// 由分段优化器创建，仅在一次合成过程中存活，不单独持久化
type Segment struct {
	ID                int     `json:"id"`
	StartTime         float64 `json:"start_time"`
	EndTime           float64 `json:"end_time"`
	Text              string  `json:"text"`
	AnimationIntent   string  `json:"animation_intent"`
	SourceLineIndices []int   `json:"source_line_indices"`
}

// Duration 返回片段的持续时长（秒）
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}
