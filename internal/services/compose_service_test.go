// internal/services/compose_service_test.go
package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Corphon/ClipMotionMCP/internal/components"
	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
	"github.com/Corphon/ClipMotionMCP/internal/llm"
	"github.com/Corphon/ClipMotionMCP/internal/models"
)

const testSRT = `1
00:00:00,000 --> 00:00:02,500
大家好

2
00:00:02,500 --> 00:00:05,000
今天讲三个要点

3
00:00:05,000 --> 00:00:08,000
第一是效率
`

// stubPipelineProvider 按调用顺序依次返回分段计划和选型计划
type stubPipelineProvider struct {
	responses []string
	errAt     int // 第几次调用返回错误，0表示不出错
	err       error
	calls     int
}

func (p *stubPipelineProvider) Initialize(config map[string]string) error { return nil }
func (p *stubPipelineProvider) GetName() string                           { return "pipeline-stub" }
func (p *stubPipelineProvider) GetSupportedModels() []string              { return nil }

func (p *stubPipelineProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	if p.errAt > 0 && p.calls >= p.errAt {
		return nil, p.err
	}
	idx := p.calls - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return &llm.CompletionResponse{Text: p.responses[idx]}, nil
}

func newTestComposeService(t *testing.T, provider llm.Provider) *ComposeService {
	t.Helper()

	name := fmt.Sprintf("pipeline_%s", t.Name())
	llm.Register(name, func() llm.Provider { return provider })

	llmService := newBaseLLMService()
	if err := llmService.UpdateProvider(name, nil); err != nil {
		t.Fatalf("配置stub提供商失败: %v", err)
	}

	registry := components.NewRegistry()
	components.RegisterBuiltins(registry)

	return NewComposeService(
		NewSegmentService(llmService),
		newTestProjectService(t),
		registry,
	)
}

func pipelineResponses() []string {
	return []string{
		`{"segments": [
			{"source_line_indices": [0, 1], "text": "开场", "animation_intent": "emphasis"},
			{"source_line_indices": [2], "text": "第一是效率", "animation_intent": "list"}
		]}`,
		`{"selections": [
			{"segment_id": 1, "component_id": "keyword_pop", "parameters": {"keywords": ["开场"]}},
			{"segment_id": 2, "component_id": "bullet_list", "parameters": {"items": ["效率"]}}
		]}`,
	}
}

func TestComposeFullPipeline(t *testing.T) {
	provider := &stubPipelineProvider{responses: pipelineResponses()}
	s := newTestComposeService(t, provider)

	project, _ := s.Projects.CreateProject("全流程", "测试主题")

	result, err := s.Compose(context.Background(), project.ID, testSRT, "测试主题")
	if err != nil {
		t.Fatalf("合成失败: %v", err)
	}

	if len(result.CaptionLines) != 3 {
		t.Errorf("期望3条字幕行，得到 %d", len(result.CaptionLines))
	}
	if len(result.Segments) != 2 {
		t.Errorf("期望2个片段，得到 %d", len(result.Segments))
	}
	if len(result.Composition.SceneTable) != 2 {
		t.Errorf("期望2个场景，得到 %d", len(result.Composition.SceneTable))
	}
	if !strings.Contains(result.Composition.HTML, "ctl-scene-1") {
		t.Error("合成文档缺少场景容器")
	}

	// 管线成功后生成内容已经落盘
	bundle, err := s.Projects.LoadGenerated(project.ID)
	if err != nil {
		t.Fatalf("生成内容没有持久化: %v", err)
	}
	if bundle.MergedHTML != result.Composition.HTML {
		t.Error("持久化的文档和返回的不一致")
	}
}

// TestComposeNoPartialWrites 管线中途失败时不落任何生成内容
func TestComposeNoPartialWrites(t *testing.T) {
	// 第二次调用（选型）时配额受限
	provider := &stubPipelineProvider{
		responses: pipelineResponses(),
		errAt:     2,
		err:       fmt.Errorf("429: %w", llm.ErrRateLimited),
	}
	s := newTestComposeService(t, provider)

	project, _ := s.Projects.CreateProject("半途失败", "")

	_, err := s.Compose(context.Background(), project.ID, testSRT, "")
	if !apperrors.IsRateLimitedError(err) {
		t.Fatalf("配额错误应该按类型透传，得到: %v", err)
	}

	// 项目里不能有任何生成产物
	if _, err := s.Projects.LoadGenerated(project.ID); !apperrors.IsNotFoundError(err) {
		t.Errorf("失败的管线不应该留下生成内容，得到: %v", err)
	}
	meta, _ := s.Projects.GetProject(project.ID)
	if meta.HasComposed {
		t.Error("失败的管线不应该标记项目为已合成")
	}
}

func TestComposeInvalidSRT(t *testing.T) {
	provider := &stubPipelineProvider{responses: pipelineResponses()}
	s := newTestComposeService(t, provider)

	project, _ := s.Projects.CreateProject("坏字幕", "")

	_, err := s.Compose(context.Background(), project.ID, "这根本不是SRT", "")
	if !apperrors.IsValidationError(err) {
		t.Errorf("无法解析的字幕应该是校验错误，得到: %v", err)
	}
	if provider.calls != 0 {
		t.Error("字幕解析失败时不应该调用模型")
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	provider := &stubPipelineProvider{responses: pipelineResponses()}
	s := newTestComposeService(t, provider)

	result, err := s.Preview(context.Background(), "预览", testSRT, "")
	if err != nil {
		t.Fatalf("预览失败: %v", err)
	}
	if result.Composition == nil || result.Composition.HTML == "" {
		t.Fatal("预览应该产出完整文档")
	}

	// 预览不触碰任何项目
	projects, _ := s.Projects.ListProjects()
	if len(projects) != 0 {
		t.Error("预览不应该创建或修改项目")
	}
}

func TestComposeManual(t *testing.T) {
	provider := &stubPipelineProvider{responses: pipelineResponses()}
	s := newTestComposeService(t, provider)

	project, _ := s.Projects.CreateProject("手动", "")

	segments := []models.Segment{
		{ID: 1, StartTime: 0, EndTime: 3, Text: "手动片段", SourceLineIndices: []int{0}},
	}
	selections := []models.Selection{
		{SegmentID: 1, ComponentID: "plain_text", Parameters: map[string]interface{}{"text": "手动片段"}},
	}

	result, err := s.ComposeManual(project.ID, testSRT, segments, selections)
	if err != nil {
		t.Fatalf("手动合成失败: %v", err)
	}
	if provider.calls != 0 {
		t.Error("手动合成不应该调用模型")
	}
	if len(result.Composition.SceneTable) != 1 {
		t.Errorf("期望1个场景，得到 %d", len(result.Composition.SceneTable))
	}
}
