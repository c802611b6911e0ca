// internal/models/composition.go
package models

import "time"

// SceneEntry 场景表中的一项，把场景映射到主时间轴上的绝对区间
// 区间为半开区间 [AbsoluteStart, AbsoluteEnd)
type SceneEntry struct {
	SceneID       string  `json:"scene_id"`
	AbsoluteStart float64 `json:"absolute_start"`
	AbsoluteEnd   float64 `json:"absolute_end"`
}

// MergedComposition 最终合成产物：一个自包含的可渲染文档
// 生成后不可变，是持久化和交给播放器的对象
type MergedComposition struct {
	HTML          string       `json:"html"`
	SceneTable    []SceneEntry `json:"scene_table"`
	// TotalDuration 是最后一个场景的结束时间，作为宿主视频时长不可用时的后备估计
	TotalDuration float64      `json:"total_duration"`
	GeneratedAt   time.Time    `json:"generated_at"`
}

// GeneratedBundle 一个项目的全部生成内容，整体替换式保存
type GeneratedBundle struct {
	RawCaptionText string        `json:"raw_caption_text"`
	CaptionLines   []CaptionLine `json:"caption_lines"`
	MergedHTML     string        `json:"merged_html"`
	SceneTable     []SceneEntry  `json:"scene_table"`
}

// Project 项目元数据
type Project struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Topic        string    `json:"topic"`
	VideoPath    string    `json:"video_path,omitempty"`
	PosterPath   string    `json:"poster_path,omitempty"`
	HasComposed  bool      `json:"has_composed"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
}
