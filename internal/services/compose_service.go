// internal/services/compose_service.go
package services

import (
	"context"

	"github.com/Corphon/ClipMotionMCP/internal/components"
	"github.com/Corphon/ClipMotionMCP/internal/composer"
	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/subtitle"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
)

// ComposeService 串起完整的合成管线：字幕解析 → 分段 → 选型 → 装配 → 持久化
// 任何一步失败整个管线失败，不落任何中间产物；
// 只有装配出完整文档后才写入存储
type ComposeService struct {
	Segments  *SegmentService
	Projects  *ProjectService
	Registry  *components.Registry
	assembler *composer.Assembler
}

// NewComposeService 创建合成服务
func NewComposeService(segments *SegmentService, projects *ProjectService, registry *components.Registry) *ComposeService {
	return &ComposeService{
		Segments:  segments,
		Projects:  projects,
		Registry:  registry,
		assembler: composer.NewAssembler(registry),
	}
}

// ComposeResult 一次合成的完整结果
type ComposeResult struct {
	CaptionLines []models.CaptionLine      `json:"caption_lines"`
	Segments     []models.Segment          `json:"segments"`
	Selections   []models.Selection        `json:"selections"`
	Composition  *models.MergedComposition `json:"composition"`
}

// Compose 对一份SRT字幕执行全自动合成并保存到项目
func (s *ComposeService) Compose(ctx context.Context, projectID, rawSRT, topic string) (*ComposeResult, error) {
	project, err := s.Projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	result, err := s.composePipeline(ctx, project.Title, rawSRT, topic)
	if err != nil {
		return nil, err
	}

	bundle := &models.GeneratedBundle{
		RawCaptionText: rawSRT,
		CaptionLines:   result.CaptionLines,
		MergedHTML:     result.Composition.HTML,
		SceneTable:     result.Composition.SceneTable,
	}
	if err := s.Projects.SaveGenerated(projectID, bundle); err != nil {
		return nil, err
	}

	utils.Infof("✅ 项目 %s 合成完成: %d 个场景, 总时长 %.1f 秒",
		projectID, len(result.Composition.SceneTable), result.Composition.TotalDuration)
	return result, nil
}

// Preview 执行合成管线但不持久化，用于快速试验
func (s *ComposeService) Preview(ctx context.Context, title, rawSRT, topic string) (*ComposeResult, error) {
	return s.composePipeline(ctx, title, rawSRT, topic)
}

// ComposeManual 跳过生成决策，用调用方给定的片段和选择直接装配并保存
// 片段和选择通常来自UI里的人工编辑
func (s *ComposeService) ComposeManual(projectID, rawSRT string, segments []models.Segment, selections []models.Selection) (*ComposeResult, error) {
	project, err := s.Projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, apperrors.NewValidationError("片段列表为空", nil)
	}

	lines := subtitle.ParseSRT(rawSRT)

	composition, err := s.assembler.Assemble(project.Title, segments, selections)
	if err != nil {
		return nil, apperrors.NewProcessingError("装配合成文档失败", err)
	}

	bundle := &models.GeneratedBundle{
		RawCaptionText: rawSRT,
		CaptionLines:   lines,
		MergedHTML:     composition.HTML,
		SceneTable:     composition.SceneTable,
	}
	if err := s.Projects.SaveGenerated(projectID, bundle); err != nil {
		return nil, err
	}

	return &ComposeResult{
		CaptionLines: lines,
		Segments:     segments,
		Selections:   selections,
		Composition:  composition,
	}, nil
}

func (s *ComposeService) composePipeline(ctx context.Context, title, rawSRT, topic string) (*ComposeResult, error) {
	lines := subtitle.ParseSRT(rawSRT)
	if len(lines) == 0 {
		return nil, apperrors.NewValidationError("字幕内容无法解析出任何有效字幕行", nil)
	}

	segments, err := s.Segments.OptimizeSegments(ctx, lines, topic)
	if err != nil {
		return nil, err
	}

	selections, err := s.Segments.SelectComponents(ctx, segments, s.Registry.Schemas())
	if err != nil {
		return nil, err
	}

	composition, err := s.assembler.Assemble(title, segments, selections)
	if err != nil {
		return nil, apperrors.NewProcessingError("装配合成文档失败", err)
	}

	return &ComposeResult{
		CaptionLines: lines,
		Segments:     segments,
		Selections:   selections,
		Composition:  composition,
	}, nil
}
