// internal/services/segment_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/subtitle"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
)

// SegmentService 负责两个生成决策：字幕行怎么分组、每组配什么动画
// 模型输出是不可信输入，进入下游前必须校验或矫正到满足片段不变量
type SegmentService struct {
	LLM *LLMService
}

// NewSegmentService 创建分段服务
func NewSegmentService(llmService *LLMService) *SegmentService {
	return &SegmentService{LLM: llmService}
}

// 模型返回的分段计划
type segmentPlanResponse struct {
	Segments []segmentPlan `json:"segments"`
}

type segmentPlan struct {
	SourceLineIndices []int  `json:"source_line_indices"`
	Text              string `json:"text"`
	AnimationIntent   string `json:"animation_intent"`
}

// 模型返回的选型计划
type selectionPlanResponse struct {
	Selections []selectionPlan `json:"selections"`
}

type selectionPlan struct {
	SegmentID   int                    `json:"segment_id"`
	ComponentID string                 `json:"component_id"`
	Parameters  map[string]interface{} `json:"parameters"`
}

var validIntents = map[string]bool{
	models.IntentEmphasis: true,
	models.IntentList:     true,
	models.IntentNumber:   true,
	models.IntentQuote:    true,
	models.IntentGeneric:  true,
}

// OptimizeSegments 把字幕行分组为动画片段
// 失败直接返回错误，绝不返回半成品片段列表
func (s *SegmentService) OptimizeSegments(ctx context.Context, lines []models.CaptionLine, topic string) ([]models.Segment, error) {
	if len(lines) == 0 {
		return nil, apperrors.NewValidationError("字幕行列表为空，无法分段", nil)
	}

	prompt := buildSegmentPrompt(lines, topic)
	systemPrompt := "你是短视频动效导演。把字幕行分组为语义连贯的动画片段，" +
		"每个片段将获得恰好一个动画效果。" +
		"animation_intent 只能取: emphasis / list / number / quote / generic。"

	var plan segmentPlanResponse
	if err := s.LLM.CreateStructuredCompletion(ctx, prompt, systemPrompt, &plan); err != nil {
		return nil, err
	}

	segments, err := coerceSegments(lines, plan.Segments)
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// SelectComponents 为每个片段选择组件和参数
// schemas 只包含声明式描述，模型看不到渲染器内部
func (s *SegmentService) SelectComponents(ctx context.Context, segments []models.Segment, schemas []models.ComponentDescriptor) ([]models.Selection, error) {
	if len(segments) == 0 {
		return nil, apperrors.NewValidationError("片段列表为空，无法选型", nil)
	}
	if len(schemas) == 0 {
		return nil, apperrors.NewValidationError("没有可用的组件", nil)
	}

	prompt := buildSelectionPrompt(segments, schemas)
	systemPrompt := "你是短视频动效导演。为每个片段从组件清单中选择最合适的组件，" +
		"并按该组件的参数schema给出具体参数值。必填参数必须提供。"

	var plan selectionPlanResponse
	if err := s.LLM.CreateStructuredCompletion(ctx, prompt, systemPrompt, &plan); err != nil {
		return nil, err
	}

	selections := coerceSelections(segments, plan.Selections)
	if len(selections) == 0 {
		return nil, apperrors.NewBadModelOutputError("模型没有返回任何有效的组件选择", nil)
	}
	return selections, nil
}

// coerceSegments 把模型的分段计划矫正为满足不变量的片段列表
// 行下标去重排序后必须严格递增且在范围内；时间从引用的字幕行推导，
// 不信任模型自己报的时间；无法矫正的计划跳过并记日志
func coerceSegments(lines []models.CaptionLine, plans []segmentPlan) ([]models.Segment, error) {
	var segments []models.Segment

	for _, plan := range plans {
		indices := normalizeIndices(plan.SourceLineIndices, len(lines))
		if len(indices) == 0 {
			utils.Warnf("⚠️ 丢弃一个没有有效行下标的分段计划: %v", plan.SourceLineIndices)
			continue
		}

		start := lines[indices[0]].StartTime
		end := lines[indices[len(indices)-1]].EndTime
		if end <= start {
			utils.Warnf("⚠️ 丢弃一个时间区间无效的分段计划: [%g, %g]", start, end)
			continue
		}

		text := strings.TrimSpace(plan.Text)
		if text == "" {
			var parts []string
			for _, idx := range indices {
				parts = append(parts, lines[idx].Text)
			}
			text = strings.Join(parts, " ")
		}

		intent := plan.AnimationIntent
		if !validIntents[intent] {
			intent = models.IntentGeneric
		}

		segments = append(segments, models.Segment{
			StartTime:         start,
			EndTime:           end,
			Text:              text,
			AnimationIntent:   intent,
			SourceLineIndices: indices,
		})
	}

	if len(segments) == 0 {
		return nil, apperrors.NewBadModelOutputError("模型没有返回任何有效的分段", nil)
	}

	// 按开始时间排序保证时间单调，ID按最终顺序分配
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})
	for i := range segments {
		segments[i].ID = i + 1
	}

	return segments, nil
}

// normalizeIndices 过滤越界下标，去重并升序排列
func normalizeIndices(raw []int, lineCount int) []int {
	seen := make(map[int]bool)
	var indices []int
	for _, idx := range raw {
		if idx < 0 || idx >= lineCount || seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// coerceSelections 矫正模型的选型计划
// 引用不存在片段的选择丢弃；同一片段出现多次时第一个生效；
// 未注册的组件ID保留原样，装配时由后备策略兜底
func coerceSelections(segments []models.Segment, plans []selectionPlan) []models.Selection {
	segmentIDs := make(map[int]bool, len(segments))
	for _, seg := range segments {
		segmentIDs[seg.ID] = true
	}

	chosen := make(map[int]bool)
	var selections []models.Selection
	for _, plan := range plans {
		if !segmentIDs[plan.SegmentID] {
			utils.Warnf("⚠️ 丢弃一个引用未知片段 %d 的选择", plan.SegmentID)
			continue
		}
		if chosen[plan.SegmentID] {
			utils.Warnf("⚠️ 片段 %d 出现多个选择，保留第一个", plan.SegmentID)
			continue
		}
		if plan.ComponentID == "" {
			utils.Warnf("⚠️ 丢弃片段 %d 的空组件选择", plan.SegmentID)
			continue
		}

		chosen[plan.SegmentID] = true
		params := plan.Parameters
		if params == nil {
			params = map[string]interface{}{}
		}
		selections = append(selections, models.Selection{
			SegmentID:   plan.SegmentID,
			ComponentID: plan.ComponentID,
			Parameters:  params,
		})
	}

	return selections
}

func buildSegmentPrompt(lines []models.CaptionLine, topic string) string {
	var b strings.Builder

	b.WriteString("视频主题: ")
	if topic == "" {
		b.WriteString("（未提供）")
	} else {
		b.WriteString(topic)
	}
	b.WriteString("\n\n字幕行（下标从0开始）:\n")

	for i, line := range lines {
		fmt.Fprintf(&b, "[%d] %s --> %s  %s\n",
			i,
			subtitle.FormatTimestamp(line.StartTime),
			subtitle.FormatTimestamp(line.EndTime),
			line.Text)
	}

	b.WriteString(`
把这些字幕行分组为语义连贯的动画片段。要求:
1. 每个片段引用一组严格递增的行下标 source_line_indices
2. 相邻行讲同一件事就合并到一个片段
3. 给每个片段标注 animation_intent
4. text 是这个片段要展示的核心文字（可以精炼，不必逐字照抄）

返回JSON: {"segments": [{"source_line_indices": [0, 1], "text": "...", "animation_intent": "emphasis"}]}`)

	return b.String()
}

func buildSelectionPrompt(segments []models.Segment, schemas []models.ComponentDescriptor) string {
	var b strings.Builder

	b.WriteString("可用组件:\n")
	for _, schema := range schemas {
		fmt.Fprintf(&b, "- id: %s（%s）类别: %s\n  说明: %s\n  参数:\n",
			schema.ID, schema.Name, schema.Category, schema.Description)
		for name, spec := range schema.ParamsSchema {
			required := "可选"
			if spec.Required {
				required = "必填"
			}
			fmt.Fprintf(&b, "    %s (%s, %s): %s\n", name, spec.Type, required, spec.Description)
		}
	}

	b.WriteString("\n片段:\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, "- segment_id: %d 时长: %.1f秒 意图: %s 文字: %s\n",
			seg.ID, seg.Duration(), seg.AnimationIntent, seg.Text)
	}

	b.WriteString(`
为每个片段选择一个组件并给出参数。组件类别和片段意图尽量匹配。

返回JSON: {"selections": [{"segment_id": 1, "component_id": "title_reveal", "parameters": {"title": "..."}}]}`)

	return b.String()
}
