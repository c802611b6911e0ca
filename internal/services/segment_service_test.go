// internal/services/segment_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
	"github.com/Corphon/ClipMotionMCP/internal/llm"
	"github.com/Corphon/ClipMotionMCP/internal/models"
)

func testCaptionLines() []models.CaptionLine {
	return []models.CaptionLine{
		{ID: 1, StartTime: 0.0, EndTime: 2.5, Text: "大家好"},
		{ID: 2, StartTime: 2.5, EndTime: 5.0, Text: "今天讲三个要点"},
		{ID: 3, StartTime: 5.0, EndTime: 8.0, Text: "第一是效率"},
		{ID: 4, StartTime: 8.0, EndTime: 11.0, Text: "增长了百分之四十"},
	}
}

func TestCoerceSegmentsBasic(t *testing.T) {
	plans := []segmentPlan{
		{SourceLineIndices: []int{0, 1}, Text: "开场", AnimationIntent: "emphasis"},
		{SourceLineIndices: []int{2, 3}, Text: "要点", AnimationIntent: "list"},
	}

	segments, err := coerceSegments(testCaptionLines(), plans)
	if err != nil {
		t.Fatalf("矫正失败: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("期望2个片段，得到 %d", len(segments))
	}

	// 时间从引用的字幕行推导，不信任模型
	if segments[0].StartTime != 0.0 || segments[0].EndTime != 5.0 {
		t.Errorf("片段时间应该来自字幕行: [%g, %g]", segments[0].StartTime, segments[0].EndTime)
	}
	// ID按时间顺序分配
	if segments[0].ID != 1 || segments[1].ID != 2 {
		t.Errorf("片段ID应该按顺序分配: %d, %d", segments[0].ID, segments[1].ID)
	}
}

// TestCoerceSegmentsNormalizesIndices 行下标乱序、重复、越界都要矫正
func TestCoerceSegmentsNormalizesIndices(t *testing.T) {
	plans := []segmentPlan{
		{SourceLineIndices: []int{1, 0, 1, 99, -3}, AnimationIntent: "generic"},
	}

	segments, err := coerceSegments(testCaptionLines(), plans)
	if err != nil {
		t.Fatalf("矫正失败: %v", err)
	}

	got := segments[0].SourceLineIndices
	want := []int{0, 1}
	if len(got) != len(want) {
		t.Fatalf("期望下标 %v，得到 %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("下标必须严格递增且在范围内: %v", got)
		}
	}
}

func TestCoerceSegmentsDropsInvalidPlans(t *testing.T) {
	plans := []segmentPlan{
		{SourceLineIndices: []int{}, Text: "没有下标"},
		{SourceLineIndices: []int{100, 200}, Text: "全部越界"},
		{SourceLineIndices: []int{0}, Text: "有效", AnimationIntent: "emphasis"},
	}

	segments, err := coerceSegments(testCaptionLines(), plans)
	if err != nil {
		t.Fatalf("矫正失败: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("无效计划应该被丢弃，只保留1个片段，得到 %d", len(segments))
	}
	if segments[0].Text != "有效" {
		t.Errorf("保留的片段错误: %s", segments[0].Text)
	}
}

func TestCoerceSegmentsAllInvalid(t *testing.T) {
	plans := []segmentPlan{
		{SourceLineIndices: []int{}},
	}

	_, err := coerceSegments(testCaptionLines(), plans)
	if !apperrors.IsBadModelOutputError(err) {
		t.Errorf("全部计划无效应该归类为模型输出错误，得到: %v", err)
	}
}

func TestCoerceSegmentsUnknownIntent(t *testing.T) {
	plans := []segmentPlan{
		{SourceLineIndices: []int{0}, AnimationIntent: "explosion"},
	}

	segments, err := coerceSegments(testCaptionLines(), plans)
	if err != nil {
		t.Fatalf("矫正失败: %v", err)
	}
	if segments[0].AnimationIntent != models.IntentGeneric {
		t.Errorf("未知意图应该回退为generic，得到: %s", segments[0].AnimationIntent)
	}
}

func TestCoerceSegmentsFillsTextFromLines(t *testing.T) {
	plans := []segmentPlan{
		{SourceLineIndices: []int{0, 1}, Text: "  "},
	}

	segments, err := coerceSegments(testCaptionLines(), plans)
	if err != nil {
		t.Fatalf("矫正失败: %v", err)
	}
	if segments[0].Text != "大家好 今天讲三个要点" {
		t.Errorf("空文字应该用字幕行原文拼接，得到: %s", segments[0].Text)
	}
}

func TestCoerceSelections(t *testing.T) {
	segments := []models.Segment{
		{ID: 1}, {ID: 2},
	}
	plans := []selectionPlan{
		{SegmentID: 1, ComponentID: "title_reveal", Parameters: map[string]interface{}{"title": "a"}},
		{SegmentID: 1, ComponentID: "keyword_pop"}, // 重复，丢弃
		{SegmentID: 9, ComponentID: "quote_card"},  // 未知片段，丢弃
		{SegmentID: 2, ComponentID: ""},            // 空组件，丢弃
	}

	selections := coerceSelections(segments, plans)
	if len(selections) != 1 {
		t.Fatalf("期望1个有效选择，得到 %d", len(selections))
	}
	if selections[0].ComponentID != "title_reveal" {
		t.Errorf("同一片段应该保留第一个选择，得到: %s", selections[0].ComponentID)
	}
}

func TestOptimizeSegmentsEndToEnd(t *testing.T) {
	provider := &stubProvider{response: `{
		"segments": [
			{"source_line_indices": [0, 1], "text": "开场白", "animation_intent": "emphasis"},
			{"source_line_indices": [2], "text": "第一要点", "animation_intent": "list"},
			{"source_line_indices": [3], "text": "增长40%", "animation_intent": "number"}
		]
	}`}
	service := NewSegmentService(newStubLLMService(t, provider))

	segments, err := service.OptimizeSegments(context.Background(), testCaptionLines(), "产品发布")
	if err != nil {
		t.Fatalf("分段失败: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("期望3个片段，得到 %d", len(segments))
	}
	if segments[2].AnimationIntent != models.IntentNumber {
		t.Errorf("意图标签应该保留，得到: %s", segments[2].AnimationIntent)
	}
}

// TestOptimizeSegmentsQuotaError 配额错误按类型透传，不产生任何片段
func TestOptimizeSegmentsQuotaError(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("quota exceeded: %w", llm.ErrRateLimited)}
	service := NewSegmentService(newStubLLMService(t, provider))

	segments, err := service.OptimizeSegments(context.Background(), testCaptionLines(), "")
	if !apperrors.IsRateLimitedError(err) {
		t.Errorf("配额错误应该按类型透传，得到: %v", err)
	}
	if segments != nil {
		t.Error("失败时不应该返回任何片段")
	}
}

func TestSelectComponentsEndToEnd(t *testing.T) {
	provider := &stubProvider{response: `{
		"selections": [
			{"segment_id": 1, "component_id": "title_reveal", "parameters": {"title": "开场"}},
			{"segment_id": 2, "component_id": "made_up_widget", "parameters": {}}
		]
	}`}
	service := NewSegmentService(newStubLLMService(t, provider))

	segments := []models.Segment{
		{ID: 1, StartTime: 0, EndTime: 3, Text: "开场"},
		{ID: 2, StartTime: 3, EndTime: 6, Text: "第二段"},
	}
	schemas := []models.ComponentDescriptor{
		{ID: "title_reveal", Name: "标题揭示"},
	}

	selections, err := service.SelectComponents(context.Background(), segments, schemas)
	if err != nil {
		t.Fatalf("选型失败: %v", err)
	}
	// 未注册的组件ID保留原样，由装配层的后备策略兜底
	if len(selections) != 2 {
		t.Fatalf("期望2个选择，得到 %d", len(selections))
	}
	if selections[1].ComponentID != "made_up_widget" {
		t.Errorf("未知组件ID应该保留原样: %s", selections[1].ComponentID)
	}
}

func TestOptimizeSegmentsEmptyLines(t *testing.T) {
	service := NewSegmentService(NewEmptyLLMService())
	if _, err := service.OptimizeSegments(context.Background(), nil, ""); !apperrors.IsValidationError(err) {
		t.Errorf("空字幕行应该是校验错误，得到: %v", err)
	}
}
